// Package store defines the storage interface and its SQLite implementation.
package store

import (
	"context"
	"time"

	"github.com/uniminuto/minuni-api/internal/domain"
)

// Store defines the interface for data persistence.
type Store interface {
	// Chat operations
	CreateChat(ctx context.Context, chat *domain.Chat) error
	GetChat(ctx context.Context, chatID string) (*domain.Chat, error)

	// Message operations (append-only transcript)
	AppendMessage(ctx context.Context, message *domain.Message) error
	ListMessages(ctx context.Context, chatID string) ([]domain.Message, error)
	QueryMessages(ctx context.Context, filter domain.MessageFilter) ([]domain.Message, error)

	// Run operations
	CreateRun(ctx context.Context, run *domain.Run) error
	GetRun(ctx context.Context, runID string) (*domain.Run, error)
	GetActiveRun(ctx context.Context, chatID string) (*domain.Run, error)
	UpdateRunStatus(ctx context.Context, runID string, status domain.RunStatus) error
	CompleteRun(ctx context.Context, runID string, status domain.RunStatus) error
	ExpireStaleRuns(ctx context.Context, olderThan time.Duration) (int64, error)

	// Rating operations
	CreateRating(ctx context.Context, rating *domain.Rating) error
	ListRatings(ctx context.Context, filter domain.RatingFilter) ([]domain.Rating, error)

	// Lifecycle
	Close() error
}
