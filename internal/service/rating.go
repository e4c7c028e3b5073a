package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/uniminuto/minuni-api/internal/domain"
)

// ErrInvalidRating means the score is outside 1..5.
var ErrInvalidRating = errors.New("rating must be between 1 and 5")

// SaveRating stores a participant rating for a chat.
func (s *Service) SaveRating(ctx context.Context, chatID string, score int, comment string) (*domain.Rating, error) {
	if score < 1 || score > 5 {
		return nil, ErrInvalidRating
	}
	rating := &domain.Rating{
		RatingID:  "rat_" + uuid.New().String()[:8],
		ChatID:    chatID,
		Score:     score,
		Comment:   comment,
		CreatedAt: time.Now(),
	}
	if err := s.store.CreateRating(ctx, rating); err != nil {
		return nil, fmt.Errorf("failed to save rating: %w", err)
	}
	return rating, nil
}

// ListRatings retrieves ratings matching the filter.
func (s *Service) ListRatings(ctx context.Context, filter domain.RatingFilter) ([]domain.Rating, error) {
	ratings, err := s.store.ListRatings(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list ratings: %w", err)
	}
	return ratings, nil
}

// ChatHistory retrieves messages matching the filter.
func (s *Service) ChatHistory(ctx context.Context, filter domain.MessageFilter) ([]domain.Message, error) {
	messages, err := s.store.QueryMessages(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to query messages: %w", err)
	}
	return messages, nil
}

// SaveMessage manually appends an assistant-side message to a chat. Kept for
// front ends that record canned replies themselves.
func (s *Service) SaveMessage(ctx context.Context, chatID, content string) error {
	if err := s.appendMessage(ctx, chatID, domain.SenderAssistant, content); err != nil {
		return fmt.Errorf("failed to save message: %w", err)
	}
	return nil
}
