package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/uniminuto/minuni-api/internal/adapter/azure"
	"github.com/uniminuto/minuni-api/internal/domain"
)

// StreamTurn streams an assistant reply for a direct-mode turn. Each content
// delta is handed to emit in arrival order while the full text accumulates
// for persistence. Persistence of the assistant turn is all-or-nothing: a
// broken or cancelled stream persists no assistant record.
func (s *Service) StreamTurn(ctx context.Context, chat *domain.Chat, input string, emit func(delta string) error) error {
	history, err := s.store.ListMessages(ctx, chat.ChatID)
	if err != nil {
		return fmt.Errorf("failed to load chat history: %w", err)
	}

	// User turn persisted before the provider call; if this fails the turn
	// fails.
	if err := s.appendMessage(ctx, chat.ChatID, domain.SenderUser, input); err != nil {
		return fmt.Errorf("failed to persist user turn: %w", err)
	}

	messages := make([]azure.ChatMessage, 0, len(history)+2)
	messages = append(messages, azure.ChatMessage{Role: "system", Content: s.config.SystemPrompt})
	for _, m := range history {
		role := "user"
		if m.Sender == domain.SenderAssistant {
			role = "assistant"
		}
		messages = append(messages, azure.ChatMessage{Role: role, Content: m.Content})
	}
	messages = append(messages, azure.ChatMessage{Role: "user", Content: input})

	var reply strings.Builder
	err = s.provider.StreamCompletion(ctx, messages, func(delta string) error {
		if err := emit(delta); err != nil {
			return err
		}
		reply.WriteString(delta)
		return nil
	})
	if err != nil {
		if errors.Is(err, context.Canceled) {
			// Caller went away; the upstream request context closed the
			// provider stream. Partial content is discarded.
			s.logger.Info("stream cancelled by caller", "chat_id", chat.ChatID)
			return err
		}
		s.logger.Error("assistant stream failed", "chat_id", chat.ChatID, "error", err)
		return fmt.Errorf("%w: %v", domain.ErrStreamFailure, err)
	}

	if err := s.appendMessage(ctx, chat.ChatID, domain.SenderAssistant, reply.String()); err != nil {
		// The reply already reached the caller; log loudly and move on.
		s.logger.Error("failed to persist assistant turn after stream",
			"chat_id", chat.ChatID, "error", err)
	}
	return nil
}
