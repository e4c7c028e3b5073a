package azure

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/uniminuto/minuni-api/internal/domain"
)

// MockProvider is a credential-free Provider for local development. Threads
// live in memory; runs complete after a fixed number of polls.
type MockProvider struct {
	mu      sync.Mutex
	threads map[string][]ChatMessage
	polls   map[string]int
}

// NewMockProvider creates a new mock provider.
func NewMockProvider() *MockProvider {
	return &MockProvider{
		threads: make(map[string][]ChatMessage),
		polls:   make(map[string]int),
	}
}

// StreamCompletion emits a canned reply in small chunks.
func (m *MockProvider) StreamCompletion(ctx context.Context, messages []ChatMessage, callback StreamCallback) error {
	reply := m.generateReply(messages)
	for i := 0; i < len(reply); i += 8 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		end := i + 8
		if end > len(reply) {
			end = len(reply)
		}
		if err := callback(reply[i:end]); err != nil {
			return err
		}
	}
	return nil
}

func (m *MockProvider) CreateThread(ctx context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	threadID := "thread_mock_" + uuid.New().String()[:8]
	m.threads[threadID] = nil
	return threadID, nil
}

func (m *MockProvider) PostMessage(ctx context.Context, threadID, role, content string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.threads[threadID]; !ok {
		return fmt.Errorf("unknown thread %s", threadID)
	}
	m.threads[threadID] = append(m.threads[threadID], ChatMessage{Role: role, Content: content})
	return nil
}

func (m *MockProvider) CreateRun(ctx context.Context, threadID string) (string, domain.RunStatus, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.threads[threadID]; !ok {
		return "", "", fmt.Errorf("unknown thread %s", threadID)
	}
	runID := fmt.Sprintf("run_mock_%d", time.Now().UnixNano())
	m.polls[runID] = 0
	return runID, domain.RunStatusQueued, nil
}

func (m *MockProvider) GetRunStatus(ctx context.Context, threadID, runID string) (domain.RunStatus, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n, ok := m.polls[runID]
	if !ok {
		return "", fmt.Errorf("unknown run %s", runID)
	}
	m.polls[runID] = n + 1
	if n == 0 {
		return domain.RunStatusInProgress, nil
	}
	m.threads[threadID] = append(m.threads[threadID], ChatMessage{
		Role:    "assistant",
		Content: m.generateReply(m.threads[threadID]),
	})
	return domain.RunStatusCompleted, nil
}

func (m *MockProvider) CancelRun(ctx context.Context, threadID, runID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.polls, runID)
	return nil
}

func (m *MockProvider) LatestAssistantMessage(ctx context.Context, threadID string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	msgs := m.threads[threadID]
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i].Role == "assistant" {
			return msgs[i].Content, nil
		}
	}
	return "", fmt.Errorf("no assistant message on thread %s", threadID)
}

func (m *MockProvider) generateReply(messages []ChatMessage) string {
	last := ""
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == "user" {
			last = messages[i].Content
			break
		}
	}
	return fmt.Sprintf("Hola 👋 (respuesta simulada a: %q)", last)
}
