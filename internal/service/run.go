package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/uniminuto/minuni-api/internal/domain"
)

// ExecuteRun submits a user turn as an assistant run and polls it to a
// terminal status. Runs on the same chat are serialized: a second turn while
// one is in flight gets ErrRunConflict. Terminal failure and cancellation are
// not errors; the caller receives the fallback reply and the turn is still
// persisted.
func (s *Service) ExecuteRun(ctx context.Context, chat *domain.Chat, input string) (*domain.TurnResult, error) {
	if !s.locks.acquire(chat.ChatID) {
		return nil, fmt.Errorf("chat %s: %w", chat.ChatID, domain.ErrRunConflict)
	}
	defer s.locks.release(chat.ChatID)

	// A run left behind by a previous process also blocks the chat until
	// the startup sweep expires it.
	if active, err := s.store.GetActiveRun(ctx, chat.ChatID); err != nil {
		return nil, fmt.Errorf("failed to check active run: %w", err)
	} else if active != nil {
		return nil, fmt.Errorf("chat %s has run %s pending: %w", chat.ChatID, active.RunID, domain.ErrRunConflict)
	}

	// User turn first; if this write fails the turn fails before the
	// provider is involved.
	if err := s.appendMessage(ctx, chat.ChatID, domain.SenderUser, input); err != nil {
		return nil, fmt.Errorf("failed to persist user turn: %w", err)
	}

	if err := s.provider.PostMessage(ctx, chat.ChatID, "user", input); err != nil {
		return nil, fmt.Errorf("failed to post message to thread: %w", err)
	}

	remoteRunID, status, err := s.provider.CreateRun(ctx, chat.ChatID)
	if err != nil {
		return nil, fmt.Errorf("failed to create run: %w", err)
	}

	run := &domain.Run{
		RunID:       "run_" + uuid.New().String()[:8],
		ChatID:      chat.ChatID,
		RemoteRunID: remoteRunID,
		Status:      status,
		CreatedAt:   time.Now(),
	}
	if err := s.store.CreateRun(ctx, run); err != nil {
		return nil, fmt.Errorf("failed to persist run: %w", err)
	}

	s.logger.Info("run started", "chat_id", chat.ChatID, "run_id", run.RunID, "status", status)

	status, err = s.pollRun(ctx, run, status)
	if err != nil {
		return nil, err
	}

	result := &domain.TurnResult{ChatID: chat.ChatID, RunID: run.RunID}

	switch status {
	case domain.RunStatusCompleted:
		content, err := s.provider.LatestAssistantMessage(ctx, chat.ChatID)
		if err != nil {
			// Completed but unreadable; treat like a failed run.
			s.logger.Error("failed to fetch run output", "run_id", run.RunID, "error", err)
			content = domain.FallbackReply
		}
		result.Content = content
	default:
		// failed or cancelled: the caller gets a safe fixed reply, never
		// raw provider detail.
		s.logger.Warn("run ended without output", "run_id", run.RunID, "status", status)
		result.Content = domain.FallbackReply
	}

	if err := s.store.CompleteRun(ctx, run.RunID, status); err != nil {
		s.logger.Error("failed to mark run terminal", "run_id", run.RunID, "error", err)
	}

	// Assistant turn persisted after the user turn regardless of outcome.
	// If the write fails the already-generated reply is still returned.
	if err := s.appendMessage(ctx, chat.ChatID, domain.SenderAssistant, result.Content); err != nil {
		s.logger.Error("failed to persist assistant turn, returning reply anyway",
			"chat_id", chat.ChatID, "run_id", run.RunID, "error", err)
	}

	return result, nil
}

// pollRun polls the remote run at the configured interval until it reaches a
// terminal status or the wall-clock ceiling passes.
func (s *Service) pollRun(ctx context.Context, run *domain.Run, status domain.RunStatus) (domain.RunStatus, error) {
	deadline := time.Now().Add(s.config.RunTimeout)
	ticker := time.NewTicker(s.config.RunPollInterval)
	defer ticker.Stop()

	for !status.Terminal() {
		if time.Now().After(deadline) {
			return s.abandonRun(ctx, run, domain.ErrRunTimeout)
		}

		select {
		case <-ctx.Done():
			return s.abandonRun(ctx, run, ctx.Err())
		case <-ticker.C:
		}

		next, err := s.provider.GetRunStatus(ctx, run.ChatID, run.RemoteRunID)
		if err != nil {
			return s.abandonRun(ctx, run, fmt.Errorf("failed to poll run: %w", err))
		}
		if next != status {
			status = next
			if err := s.store.UpdateRunStatus(ctx, run.RunID, status); err != nil {
				s.logger.Error("failed to update run status", "run_id", run.RunID, "error", err)
			}
		}
	}
	return status, nil
}

// abandonRun cancels the remote run best-effort, marks the local record
// failed and returns the causing error. The chat lock is released by the
// caller's defer, so a later turn can proceed.
func (s *Service) abandonRun(ctx context.Context, run *domain.Run, cause error) (domain.RunStatus, error) {
	// The request context may already be dead; detach for cleanup.
	cleanupCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := s.provider.CancelRun(cleanupCtx, run.ChatID, run.RemoteRunID); err != nil {
		s.logger.Warn("failed to cancel remote run", "run_id", run.RunID, "error", err)
	}
	if err := s.store.CompleteRun(cleanupCtx, run.RunID, domain.RunStatusFailed); err != nil {
		s.logger.Error("failed to mark run failed", "run_id", run.RunID, "error", err)
	}
	return domain.RunStatusFailed, cause
}

func (s *Service) appendMessage(ctx context.Context, chatID string, sender domain.SenderKind, content string) error {
	return s.store.AppendMessage(ctx, &domain.Message{
		MessageID: "msg_" + uuid.New().String()[:8],
		ChatID:    chatID,
		Sender:    sender,
		Content:   content,
		CreatedAt: time.Now(),
	})
}
