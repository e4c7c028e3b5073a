// Package service implements the conversation orchestration core: session
// resolution, run lifecycle, streaming relay and transcript persistence.
package service

import (
	"log/slog"

	"github.com/uniminuto/minuni-api/internal/adapter/azure"
	"github.com/uniminuto/minuni-api/internal/config"
	"github.com/uniminuto/minuni-api/internal/policy"
	store "github.com/uniminuto/minuni-api/internal/repository"
)

// Service coordinates the store, the assistant provider and the admission
// policy. One instance serves all chats; per-chat exclusivity is handled by
// the lock arena.
type Service struct {
	store    store.Store
	provider azure.Provider
	policy   *policy.Engine
	config   *config.Config
	logger   *slog.Logger
	locks    *chatLocks
}

// New creates a new service.
func New(st store.Store, provider azure.Provider, policyEngine *policy.Engine, cfg *config.Config, logger *slog.Logger) *Service {
	return &Service{
		store:    st,
		provider: provider,
		policy:   policyEngine,
		config:   cfg,
		logger:   logger,
		locks:    newChatLocks(),
	}
}

// Mode reports the configured interaction mode.
func (s *Service) Mode() config.Mode {
	return s.config.Mode
}
