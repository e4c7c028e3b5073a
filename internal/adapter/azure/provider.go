// Package azure provides the Azure OpenAI client for both interaction modes:
// streaming chat completions and assistant thread runs.
package azure

import (
	"context"

	"github.com/uniminuto/minuni-api/internal/domain"
)

// ChatMessage is one context entry sent to the completions API.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// StreamCallback is called for each non-empty content delta in a streaming
// completion.
type StreamCallback func(delta string) error

// Provider defines the operations the orchestration core needs from the
// assistant provider.
type Provider interface {
	// StreamCompletion opens a streaming completion over the given context
	// messages and invokes the callback per content delta, in arrival order.
	StreamCompletion(ctx context.Context, messages []ChatMessage, callback StreamCallback) error

	// CreateThread creates a remote conversation thread and returns its id.
	CreateThread(ctx context.Context) (string, error)

	// PostMessage appends a message to a thread.
	PostMessage(ctx context.Context, threadID, role, content string) error

	// CreateRun starts an assistant run on a thread. The initial status is
	// whatever the provider reports; callers must not assume "queued".
	CreateRun(ctx context.Context, threadID string) (runID string, status domain.RunStatus, err error)

	// GetRunStatus retrieves the current status of a run.
	GetRunStatus(ctx context.Context, threadID, runID string) (domain.RunStatus, error)

	// CancelRun requests cancellation of a run. Best effort.
	CancelRun(ctx context.Context, threadID, runID string) error

	// LatestAssistantMessage returns the text of the most recent assistant
	// message on a thread.
	LatestAssistantMessage(ctx context.Context, threadID string) (string, error)
}

// Ensure both implementations satisfy the interface.
var (
	_ Provider = (*Client)(nil)
	_ Provider = (*MockProvider)(nil)
)
