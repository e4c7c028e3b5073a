package service

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/uniminuto/minuni-api/internal/adapter/azure"
	"github.com/uniminuto/minuni-api/internal/config"
	"github.com/uniminuto/minuni-api/internal/domain"
	"github.com/uniminuto/minuni-api/internal/policy"
	store "github.com/uniminuto/minuni-api/internal/repository"
)

func newTestService(t *testing.T, mode config.Mode, provider azure.Provider) (*Service, store.Store) {
	t.Helper()
	st, err := store.NewSQLiteStore(":memory:")
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	engine, err := policy.NewEngine(context.Background(), policy.DefaultPolicy)
	if err != nil {
		t.Fatalf("NewEngine failed: %v", err)
	}

	cfg := &config.Config{
		Mode:            mode,
		SystemPrompt:    "prompt de prueba",
		RunPollInterval: 2 * time.Millisecond,
		RunTimeout:      200 * time.Millisecond,
		MaxInputRunes:   100,
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return New(st, provider, engine, cfg, logger), st
}

// fakeProvider is a scripted azure.Provider. GetRunStatus consumes statuses
// in order and reports in_progress once the script runs out.
type fakeProvider struct {
	mu       sync.Mutex
	statuses []domain.RunStatus
	reply    string
	chunks   []string

	streamErr error
	threadErr error

	threadID string
	posted   map[string][]string
	contexts [][]azure.ChatMessage

	cancelled bool

	// runStarted, when set, is closed on CreateRun. holdPolls, when set,
	// blocks every GetRunStatus until closed.
	runStarted chan struct{}
	holdPolls  chan struct{}
}

var _ azure.Provider = (*fakeProvider)(nil)

func newFakeProvider() *fakeProvider {
	return &fakeProvider{
		threadID: "thread_fake_1",
		posted:   make(map[string][]string),
	}
}

func (f *fakeProvider) StreamCompletion(ctx context.Context, messages []azure.ChatMessage, callback azure.StreamCallback) error {
	f.mu.Lock()
	f.contexts = append(f.contexts, messages)
	chunks := f.chunks
	streamErr := f.streamErr
	f.mu.Unlock()

	for _, chunk := range chunks {
		if err := callback(chunk); err != nil {
			return err
		}
	}
	return streamErr
}

func (f *fakeProvider) CreateThread(ctx context.Context) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.threadErr != nil {
		return "", f.threadErr
	}
	return f.threadID, nil
}

func (f *fakeProvider) PostMessage(ctx context.Context, threadID, role, content string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.posted[threadID] = append(f.posted[threadID], content)
	return nil
}

func (f *fakeProvider) CreateRun(ctx context.Context, threadID string) (string, domain.RunStatus, error) {
	f.mu.Lock()
	started := f.runStarted
	f.runStarted = nil
	f.mu.Unlock()
	if started != nil {
		close(started)
	}
	return "remote-run-1", domain.RunStatusQueued, nil
}

func (f *fakeProvider) GetRunStatus(ctx context.Context, threadID, runID string) (domain.RunStatus, error) {
	f.mu.Lock()
	hold := f.holdPolls
	f.mu.Unlock()
	if hold != nil {
		<-hold
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.statuses) == 0 {
		return domain.RunStatusInProgress, nil
	}
	next := f.statuses[0]
	f.statuses = f.statuses[1:]
	return next, nil
}

func (f *fakeProvider) CancelRun(ctx context.Context, threadID, runID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cancelled = true
	return nil
}

func (f *fakeProvider) LatestAssistantMessage(ctx context.Context, threadID string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.reply, nil
}

func (f *fakeProvider) wasCancelled() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.cancelled
}

func (f *fakeProvider) setStatuses(statuses ...domain.RunStatus) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.statuses = statuses
}

func (f *fakeProvider) postedTo(threadID string) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.posted[threadID]...)
}

func (f *fakeProvider) streamContexts() [][]azure.ChatMessage {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([][]azure.ChatMessage(nil), f.contexts...)
}

func seedChat(t *testing.T, st store.Store, chatID string) *domain.Chat {
	t.Helper()
	chat := &domain.Chat{
		ChatID:           chatID,
		ParticipantName:  "Ana",
		ParticipantEmail: "ana@uniminuto.edu",
		CreatedAt:        time.Now(),
	}
	if err := st.CreateChat(context.Background(), chat); err != nil {
		t.Fatalf("CreateChat failed: %v", err)
	}
	return chat
}
