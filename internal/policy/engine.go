// Package policy gates turn submissions with an OPA rego policy.
package policy

import (
	"context"
	"fmt"

	"github.com/open-policy-agent/opa/v1/rego"
)

// Engine is the OPA admission engine.
type Engine struct {
	query rego.PreparedEvalQuery
}

// NewEngine creates a new admission engine with the given policy content.
func NewEngine(ctx context.Context, policyContent string) (*Engine, error) {
	r := rego.New(
		rego.Query("data.turn_policy.decision"),
		rego.Module("turn_policy.rego", policyContent),
	)

	query, err := r.PrepareForEval(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare rego: %w", err)
	}

	return &Engine{query: query}, nil
}

// TurnInput is the document evaluated against the policy.
type TurnInput struct {
	Input            string `json:"input"`
	InputRunes       int    `json:"input_runes"`
	MaxInputRunes    int    `json:"max_input_runes"`
	ParticipantEmail string `json:"participant_email"`
}

// Evaluate checks the turn policy. Returns "allow" or "block".
func (e *Engine) Evaluate(ctx context.Context, input TurnInput) (string, error) {
	results, err := e.query.Eval(ctx, rego.EvalInput(input))
	if err != nil {
		return "", fmt.Errorf("failed to evaluate policy: %w", err)
	}

	if len(results) == 0 || len(results[0].Expressions) == 0 {
		// The policy defines a default; an empty result means it was removed.
		return "allow", nil
	}

	if s, ok := results[0].Expressions[0].Value.(string); ok {
		return s, nil
	}
	return "allow", nil
}

// DefaultPolicy is the default admission policy content.
const DefaultPolicy = `
package turn_policy

default decision := "allow"

# Blank turns carry nothing to answer
decision := "block" if {
	trim_space(input.input) == ""
}

# Oversized turns are rejected before reaching the provider
decision := "block" if {
	input.input_runes > input.max_input_runes
}
`
