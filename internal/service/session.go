package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/uniminuto/minuni-api/internal/config"
	"github.com/uniminuto/minuni-api/internal/domain"
)

// ResolveOrCreateChat resolves a supplied chat id or mints a new chat. In run
// mode a new chat first creates a provider thread and adopts the thread id as
// the chat id; that id never changes for the life of the chat.
func (s *Service) ResolveOrCreateChat(ctx context.Context, chatID, participantName, participantEmail string) (*domain.Chat, error) {
	if chatID != "" {
		chat, err := s.store.GetChat(ctx, chatID)
		if err != nil {
			return nil, fmt.Errorf("failed to get chat: %w", err)
		}
		if chat != nil {
			return chat, nil
		}
		if s.config.Mode == config.ModeRun {
			// The chat id doubles as the remote thread id in run mode;
			// an unknown id has no thread behind it.
			return nil, fmt.Errorf("chat %s: %w", chatID, domain.ErrChatNotFound)
		}
		// Direct mode trusts the supplied id and backfills the record.
		chat = &domain.Chat{
			ChatID:           chatID,
			ParticipantName:  participantName,
			ParticipantEmail: participantEmail,
			CreatedAt:        time.Now(),
		}
		if err := s.store.CreateChat(ctx, chat); err != nil {
			return nil, fmt.Errorf("failed to create chat: %w", err)
		}
		return chat, nil
	}

	newID := "chat_" + uuid.New().String()[:8]
	if s.config.Mode == config.ModeRun {
		threadID, err := s.provider.CreateThread(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to create thread: %w", err)
		}
		newID = threadID
	}

	chat := &domain.Chat{
		ChatID:           newID,
		ParticipantName:  participantName,
		ParticipantEmail: participantEmail,
		CreatedAt:        time.Now(),
	}
	if err := s.store.CreateChat(ctx, chat); err != nil {
		return nil, fmt.Errorf("failed to create chat: %w", err)
	}
	s.logger.Info("chat created", "chat_id", chat.ChatID, "mode", s.config.Mode)
	return chat, nil
}
