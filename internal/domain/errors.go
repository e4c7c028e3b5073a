package domain

import "errors"

// Orchestration errors. Handlers map these to status codes; everything else
// is treated as an internal error and logged with full detail.
var (
	// ErrChatNotFound means the supplied chat id has no backing record.
	ErrChatNotFound = errors.New("chat not found")

	// ErrRunConflict means a run is already active for the chat.
	ErrRunConflict = errors.New("a run is already active for this chat")

	// ErrRunTimeout means polling exceeded the configured ceiling.
	ErrRunTimeout = errors.New("run did not complete in time")

	// ErrStreamFailure means the upstream stream broke mid-flight.
	ErrStreamFailure = errors.New("assistant stream interrupted")

	// ErrTurnRejected means the admission policy blocked the turn.
	ErrTurnRejected = errors.New("turn rejected by policy")
)

// FallbackReply is returned to the caller when a run ends failed or
// cancelled. Raw provider detail never reaches the caller.
const FallbackReply = "error retrieving response, please try again"
