// Package domain defines the core domain models for the chat service.
package domain

import "time"

// SenderKind identifies who produced a message.
type SenderKind string

const (
	SenderUser      SenderKind = "user"
	SenderAssistant SenderKind = "assistant"
)

// RunStatus represents the status of an assistant run, as reported by the
// provider.
type RunStatus string

const (
	RunStatusQueued     RunStatus = "queued"
	RunStatusInProgress RunStatus = "in_progress"
	RunStatusCancelling RunStatus = "cancelling"
	RunStatusCompleted  RunStatus = "completed"
	RunStatusFailed     RunStatus = "failed"
	RunStatusCancelled  RunStatus = "cancelled"
)

// Terminal reports whether the status is a final one.
func (s RunStatus) Terminal() bool {
	switch s {
	case RunStatusCompleted, RunStatusFailed, RunStatusCancelled:
		return true
	}
	return false
}

// Chat represents one durable conversation. In assistant-run mode the ChatID
// is the provider thread id; either way it never changes after creation.
type Chat struct {
	ChatID           string    `json:"chat_id"`
	ParticipantName  string    `json:"participant_name"`
	ParticipantEmail string    `json:"participant_email"`
	CreatedAt        time.Time `json:"created_at"`
}

// Message is one entry in a chat's append-only transcript.
type Message struct {
	MessageID string     `json:"message_id"`
	ChatID    string     `json:"chat_id"`
	Sender    SenderKind `json:"sender"`
	Content   string     `json:"content"`
	CreatedAt time.Time  `json:"created_at"`
}

// Run tracks one assistant invocation in run mode.
type Run struct {
	RunID       string     `json:"run_id"`
	ChatID      string     `json:"chat_id"`
	RemoteRunID string     `json:"remote_run_id,omitempty"`
	Status      RunStatus  `json:"status"`
	CreatedAt   time.Time  `json:"created_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// Rating is a participant's score for a chat, 1 to 5.
type Rating struct {
	RatingID  string    `json:"rating_id"`
	ChatID    string    `json:"chat_id"`
	Score     int       `json:"score"`
	Comment   string    `json:"comment,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// TurnRequest is a user turn submitted to the orchestrator.
type TurnRequest struct {
	Input            string `json:"input"`
	ChatID           string `json:"chat_id,omitempty"`
	ParticipantName  string `json:"participant_name"`
	ParticipantEmail string `json:"participant_email"`
}

// TurnResult is the single-shot response produced in run mode.
type TurnResult struct {
	ChatID  string `json:"chat_id"`
	RunID   string `json:"run_id"`
	Content string `json:"content"`
}

// MessageFilter narrows chat history queries.
type MessageFilter struct {
	ChatID    string
	StartDate *time.Time
	EndDate   *time.Time
}

// RatingFilter narrows rating queries.
type RatingFilter struct {
	ChatID   string
	MinScore int
	MaxScore int
}
