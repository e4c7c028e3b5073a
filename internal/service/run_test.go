package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/uniminuto/minuni-api/internal/config"
	"github.com/uniminuto/minuni-api/internal/domain"
)

func TestExecuteRunCompletes(t *testing.T) {
	ctx := context.Background()
	fake := newFakeProvider()
	fake.statuses = []domain.RunStatus{domain.RunStatusInProgress, domain.RunStatusCompleted}
	fake.reply = "¡Hola! 😊 Soy Minuni."
	svc, st := newTestService(t, config.ModeRun, fake)

	chat := seedChat(t, st, "thread_fake_1")

	result, err := svc.ExecuteRun(ctx, chat, "hola")
	if err != nil {
		t.Fatalf("ExecuteRun failed: %v", err)
	}
	if result.Content != fake.reply {
		t.Fatalf("unexpected content: %q", result.Content)
	}
	if result.ChatID != chat.ChatID {
		t.Fatalf("unexpected chat id: %q", result.ChatID)
	}

	messages, err := st.ListMessages(ctx, chat.ChatID)
	if err != nil {
		t.Fatalf("ListMessages failed: %v", err)
	}
	if len(messages) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(messages))
	}
	if messages[0].Sender != domain.SenderUser || messages[0].Content != "hola" {
		t.Fatalf("unexpected user turn: %+v", messages[0])
	}
	if messages[1].Sender != domain.SenderAssistant || messages[1].Content != fake.reply {
		t.Fatalf("unexpected assistant turn: %+v", messages[1])
	}

	run, err := st.GetRun(ctx, result.RunID)
	if err != nil {
		t.Fatalf("GetRun failed: %v", err)
	}
	if run == nil || run.Status != domain.RunStatusCompleted || run.CompletedAt == nil {
		t.Fatalf("run not terminal: %+v", run)
	}
	if posted := fake.postedTo(chat.ChatID); len(posted) != 1 || posted[0] != "hola" {
		t.Fatalf("unexpected posted messages: %v", posted)
	}
}

func TestExecuteRunFallbackOnFailedRun(t *testing.T) {
	ctx := context.Background()
	fake := newFakeProvider()
	fake.statuses = []domain.RunStatus{domain.RunStatusFailed}
	svc, st := newTestService(t, config.ModeRun, fake)

	chat := seedChat(t, st, "thread_fake_1")

	result, err := svc.ExecuteRun(ctx, chat, "hola")
	if err != nil {
		t.Fatalf("ExecuteRun failed: %v", err)
	}
	if result.Content != domain.FallbackReply {
		t.Fatalf("expected fallback reply, got %q", result.Content)
	}

	// Both turns are still on the transcript.
	messages, err := st.ListMessages(ctx, chat.ChatID)
	if err != nil {
		t.Fatalf("ListMessages failed: %v", err)
	}
	if len(messages) != 2 || messages[1].Content != domain.FallbackReply {
		t.Fatalf("unexpected transcript: %+v", messages)
	}

	run, err := st.GetRun(ctx, result.RunID)
	if err != nil {
		t.Fatalf("GetRun failed: %v", err)
	}
	if run.Status != domain.RunStatusFailed || run.CompletedAt == nil {
		t.Fatalf("run not marked failed: %+v", run)
	}
}

func TestExecuteRunTimeout(t *testing.T) {
	ctx := context.Background()
	fake := newFakeProvider() // never reaches a terminal status
	svc, st := newTestService(t, config.ModeRun, fake)

	chat := seedChat(t, st, "thread_fake_1")

	_, err := svc.ExecuteRun(ctx, chat, "hola")
	if !errors.Is(err, domain.ErrRunTimeout) {
		t.Fatalf("expected ErrRunTimeout, got %v", err)
	}
	if !fake.wasCancelled() {
		t.Fatalf("expected remote cancel on timeout")
	}

	// No assistant record after a timeout; the user turn stays.
	messages, err := st.ListMessages(ctx, chat.ChatID)
	if err != nil {
		t.Fatalf("ListMessages failed: %v", err)
	}
	if len(messages) != 1 || messages[0].Sender != domain.SenderUser {
		t.Fatalf("unexpected transcript: %+v", messages)
	}

	active, err := st.GetActiveRun(ctx, chat.ChatID)
	if err != nil {
		t.Fatalf("GetActiveRun failed: %v", err)
	}
	if active != nil {
		t.Fatalf("timed-out run still active: %+v", active)
	}

	// The chat is usable again: the lock was released and the run expired.
	fake.setStatuses(domain.RunStatusCompleted)
	fake.reply = "ahora sí"
	result, err := svc.ExecuteRun(ctx, chat, "¿sigues ahí?")
	if err != nil {
		t.Fatalf("ExecuteRun after timeout failed: %v", err)
	}
	if result.Content != "ahora sí" {
		t.Fatalf("unexpected content: %q", result.Content)
	}
}

func TestExecuteRunConflict(t *testing.T) {
	ctx := context.Background()
	fake := newFakeProvider()
	fake.runStarted = make(chan struct{})
	fake.holdPolls = make(chan struct{})
	fake.statuses = []domain.RunStatus{domain.RunStatusCompleted}
	fake.reply = "listo"
	svc, st := newTestService(t, config.ModeRun, fake)

	chat := seedChat(t, st, "thread_fake_1")

	firstDone := make(chan error, 1)
	go func() {
		_, err := svc.ExecuteRun(ctx, chat, "primer turno")
		firstDone <- err
	}()

	// Wait until the first turn holds the chat, then collide with it.
	select {
	case <-fake.runStarted:
	case <-time.After(time.Second):
		t.Fatalf("first run never started")
	}
	_, err := svc.ExecuteRun(ctx, chat, "segundo turno")
	if !errors.Is(err, domain.ErrRunConflict) {
		t.Fatalf("expected ErrRunConflict, got %v", err)
	}

	close(fake.holdPolls)
	select {
	case err := <-firstDone:
		if err != nil {
			t.Fatalf("first run failed: %v", err)
		}
	case <-time.After(time.Second):
		t.Fatalf("first run never finished")
	}

	// Only the winning turn reached the transcript.
	messages, err := st.ListMessages(ctx, chat.ChatID)
	if err != nil {
		t.Fatalf("ListMessages failed: %v", err)
	}
	if len(messages) != 2 || messages[0].Content != "primer turno" {
		t.Fatalf("unexpected transcript: %+v", messages)
	}
}

func TestExecuteRunBlockedByStoredRun(t *testing.T) {
	ctx := context.Background()
	fake := newFakeProvider()
	svc, st := newTestService(t, config.ModeRun, fake)

	chat := seedChat(t, st, "thread_fake_1")

	// A non-terminal run left behind by another process blocks the chat.
	stale := &domain.Run{RunID: "r-stale", ChatID: chat.ChatID, Status: domain.RunStatusInProgress, CreatedAt: time.Now()}
	if err := st.CreateRun(ctx, stale); err != nil {
		t.Fatalf("CreateRun failed: %v", err)
	}

	_, err := svc.ExecuteRun(ctx, chat, "hola")
	if !errors.Is(err, domain.ErrRunConflict) {
		t.Fatalf("expected ErrRunConflict, got %v", err)
	}
	if posted := fake.postedTo(chat.ChatID); len(posted) != 0 {
		t.Fatalf("provider reached despite conflict: %v", posted)
	}
}
