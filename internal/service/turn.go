package service

import (
	"context"
	"fmt"
	"unicode/utf8"

	"github.com/uniminuto/minuni-api/internal/domain"
	"github.com/uniminuto/minuni-api/internal/policy"
)

// PrepareTurn gates a turn through the admission policy and resolves its
// chat. The returned chat id is the one the caller must be told, even when
// the reply body is a stream.
func (s *Service) PrepareTurn(ctx context.Context, req domain.TurnRequest) (*domain.Chat, error) {
	decision, err := s.policy.Evaluate(ctx, policy.TurnInput{
		Input:            req.Input,
		InputRunes:       utf8.RuneCountInString(req.Input),
		MaxInputRunes:    s.config.MaxInputRunes,
		ParticipantEmail: req.ParticipantEmail,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to evaluate turn policy: %w", err)
	}
	if decision != "allow" {
		return nil, fmt.Errorf("policy decision %q: %w", decision, domain.ErrTurnRejected)
	}

	return s.ResolveOrCreateChat(ctx, req.ChatID, req.ParticipantName, req.ParticipantEmail)
}

// Turn handles one complete run-mode turn: admission, session resolution,
// run execution. Direct mode goes through PrepareTurn + StreamTurn instead,
// since the transport owns the outgoing stream.
func (s *Service) Turn(ctx context.Context, req domain.TurnRequest) (*domain.TurnResult, error) {
	chat, err := s.PrepareTurn(ctx, req)
	if err != nil {
		return nil, err
	}
	return s.ExecuteRun(ctx, chat, req.Input)
}
