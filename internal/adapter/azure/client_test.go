package azure

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/uniminuto/minuni-api/internal/domain"
)

func newTestClient(endpoint string) *Client {
	return NewClient(ClientOptions{
		Endpoint:    endpoint,
		APIKey:      "secret",
		APIVersion:  "2024-05-01-preview",
		Deployment:  "gpt-4o",
		AssistantID: "asst_1",
		Temperature: 0.7,
		Timeout:     time.Second,
	})
}

func TestClientStreamCompletion(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/openai/deployments/gpt-4o/chat/completions" {
			t.Fatalf("unexpected path: %s", r.URL.Path)
		}
		if got := r.URL.Query().Get("api-version"); got != "2024-05-01-preview" {
			t.Fatalf("unexpected api-version: %q", got)
		}
		if got := r.Header.Get("api-key"); got != "secret" {
			t.Fatalf("unexpected api-key header: %q", got)
		}
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, "data: {\"choices\":[{\"delta\":{\"content\":\"Hola\"}}]}\n\n")
		fmt.Fprint(w, "data: {\"choices\":[{\"delta\":{\"content\":\" 😊\"}}]}\n\n")
		fmt.Fprint(w, "data: {\"choices\":[{\"delta\":{},\"finish_reason\":\"stop\"}]}\n\n")
		fmt.Fprint(w, "data: [DONE]\n\n")
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	var reply strings.Builder
	err := client.StreamCompletion(context.Background(), []ChatMessage{
		{Role: "user", Content: "hola"},
	}, func(delta string) error {
		reply.WriteString(delta)
		return nil
	})
	if err != nil {
		t.Fatalf("StreamCompletion failed: %v", err)
	}
	if reply.String() != "Hola 😊" {
		t.Fatalf("unexpected reply: %q", reply.String())
	}
}

func TestClientStreamCompletionAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		fmt.Fprint(w, `{"error":{"message":"bad key","type":"invalid_request_error"}}`)
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	err := client.StreamCompletion(context.Background(), []ChatMessage{
		{Role: "user", Content: "hola"},
	}, func(string) error { return nil })
	if err == nil {
		t.Fatalf("expected error")
	}
	if !strings.Contains(err.Error(), "bad key") {
		t.Fatalf("error lost the API message: %v", err)
	}
}

func TestClientStreamCompletionCallbackError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, "data: {\"choices\":[{\"delta\":{\"content\":\"uno\"}}]}\n\n")
		fmt.Fprint(w, "data: {\"choices\":[{\"delta\":{\"content\":\"dos\"}}]}\n\n")
		fmt.Fprint(w, "data: [DONE]\n\n")
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	calls := 0
	err := client.StreamCompletion(context.Background(), []ChatMessage{
		{Role: "user", Content: "hola"},
	}, func(string) error {
		calls++
		return fmt.Errorf("stop")
	})
	if err == nil || calls != 1 {
		t.Fatalf("expected callback error to stop the stream, err=%v calls=%d", err, calls)
	}
}

func TestClientAssistantRunLifecycle(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /openai/threads", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"id":"thread_1"}`)
	})
	mux.HandleFunc("POST /openai/threads/thread_1/messages", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"id":"msg_1"}`)
	})
	mux.HandleFunc("POST /openai/threads/thread_1/runs", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"id":"run_1","status":"queued"}`)
	})
	mux.HandleFunc("GET /openai/threads/thread_1/runs/run_1", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"id":"run_1","status":"completed"}`)
	})
	mux.HandleFunc("GET /openai/threads/thread_1/messages", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"data":[
			{"role":"assistant","content":[{"type":"text","text":{"value":"¡Hola! 😊"}}]},
			{"role":"user","content":[{"type":"text","text":{"value":"hola"}}]}
		]}`)
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	ctx := context.Background()
	client := newTestClient(server.URL)

	threadID, err := client.CreateThread(ctx)
	if err != nil {
		t.Fatalf("CreateThread failed: %v", err)
	}
	if threadID != "thread_1" {
		t.Fatalf("unexpected thread id: %q", threadID)
	}

	if err := client.PostMessage(ctx, threadID, "user", "hola"); err != nil {
		t.Fatalf("PostMessage failed: %v", err)
	}

	runID, status, err := client.CreateRun(ctx, threadID)
	if err != nil {
		t.Fatalf("CreateRun failed: %v", err)
	}
	if runID != "run_1" || status != domain.RunStatusQueued {
		t.Fatalf("unexpected run: %s %s", runID, status)
	}

	status, err = client.GetRunStatus(ctx, threadID, runID)
	if err != nil {
		t.Fatalf("GetRunStatus failed: %v", err)
	}
	if status != domain.RunStatusCompleted {
		t.Fatalf("unexpected status: %s", status)
	}

	content, err := client.LatestAssistantMessage(ctx, threadID)
	if err != nil {
		t.Fatalf("LatestAssistantMessage failed: %v", err)
	}
	if content != "¡Hola! 😊" {
		t.Fatalf("unexpected content: %q", content)
	}
}

func TestClientCancelRun(t *testing.T) {
	cancelled := false
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/openai/threads/thread_1/runs/run_1/cancel" {
			t.Fatalf("unexpected path: %s", r.URL.Path)
		}
		cancelled = true
		fmt.Fprint(w, `{"id":"run_1","status":"cancelling"}`)
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	if err := client.CancelRun(context.Background(), "thread_1", "run_1"); err != nil {
		t.Fatalf("CancelRun failed: %v", err)
	}
	if !cancelled {
		t.Fatalf("cancel endpoint never hit")
	}
}

func TestClientAssistantAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		fmt.Fprint(w, `{"error":{"message":"no thread","type":"invalid_request_error"}}`)
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	if _, err := client.GetRunStatus(context.Background(), "ghost", "run_1"); err == nil {
		t.Fatalf("expected error")
	}
}
