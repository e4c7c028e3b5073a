package azure

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/uniminuto/minuni-api/internal/domain"
)

// Client talks to Azure OpenAI over HTTP. A single Client is shared across
// all chats; individual calls carry no mutable state.
type Client struct {
	endpoint    string
	apiKey      string
	apiVersion  string
	deployment  string
	assistantID string
	temperature float64
	httpClient  *http.Client
}

// ClientOptions configures a Client.
type ClientOptions struct {
	Endpoint    string
	APIKey      string
	APIVersion  string
	Deployment  string
	AssistantID string
	Temperature float64
	Timeout     time.Duration
}

// NewClient creates a new Azure OpenAI client.
func NewClient(opts ClientOptions) *Client {
	return &Client{
		endpoint:    strings.TrimSuffix(opts.Endpoint, "/"),
		apiKey:      opts.APIKey,
		apiVersion:  opts.APIVersion,
		deployment:  opts.Deployment,
		assistantID: opts.AssistantID,
		temperature: opts.Temperature,
		httpClient: &http.Client{
			Timeout: opts.Timeout,
		},
	}
}

type completionRequest struct {
	Messages    []ChatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	Stream      bool          `json:"stream,omitempty"`
}

type streamChunk struct {
	Choices []struct {
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
		FinishReason string `json:"finish_reason,omitempty"`
	} `json:"choices"`
}

type errorResponse struct {
	Error *apiError `json:"error"`
}

type apiError struct {
	Message string `json:"message"`
	Type    string `json:"type"`
	Code    string `json:"code,omitempty"`
}

// StreamCompletion opens a streaming chat completion and forwards content
// deltas to the callback as they arrive.
func (c *Client) StreamCompletion(ctx context.Context, messages []ChatMessage, callback StreamCallback) error {
	body, err := json.Marshal(completionRequest{
		Messages:    messages,
		Temperature: c.temperature,
		Stream:      true,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/openai/deployments/%s/chat/completions?api-version=%s", c.endpoint, c.deployment, c.apiVersion)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	c.setHeaders(httpReq)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return c.readAPIError(resp)
	}

	// Parse SSE stream
	reader := bufio.NewReader(resp.Body)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		line, err := reader.ReadString('\n')
		if err != nil {
			if err == io.EOF {
				return nil
			}
			return fmt.Errorf("failed to read stream: %w", err)
		}

		line = strings.TrimSpace(line)
		if !strings.HasPrefix(line, "data: ") {
			continue
		}

		data := strings.TrimPrefix(line, "data: ")
		if data == "[DONE]" {
			return nil
		}

		var chunk streamChunk
		if err := json.Unmarshal([]byte(data), &chunk); err != nil {
			// Skip malformed chunks
			continue
		}
		if len(chunk.Choices) == 0 {
			continue
		}
		if delta := chunk.Choices[0].Delta.Content; delta != "" {
			if err := callback(delta); err != nil {
				return err
			}
		}
	}
}

type threadResponse struct {
	ID string `json:"id"`
}

// CreateThread creates a remote conversation thread.
func (c *Client) CreateThread(ctx context.Context) (string, error) {
	var resp threadResponse
	if err := c.doJSON(ctx, http.MethodPost, "/openai/threads", map[string]interface{}{}, &resp); err != nil {
		return "", fmt.Errorf("failed to create thread: %w", err)
	}
	return resp.ID, nil
}

// PostMessage appends a message to a thread.
func (c *Client) PostMessage(ctx context.Context, threadID, role, content string) error {
	path := fmt.Sprintf("/openai/threads/%s/messages", threadID)
	body := map[string]string{"role": role, "content": content}
	if err := c.doJSON(ctx, http.MethodPost, path, body, nil); err != nil {
		return fmt.Errorf("failed to post message: %w", err)
	}
	return nil
}

type runResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

// CreateRun starts an assistant run on a thread.
func (c *Client) CreateRun(ctx context.Context, threadID string) (string, domain.RunStatus, error) {
	path := fmt.Sprintf("/openai/threads/%s/runs", threadID)
	body := map[string]string{"assistant_id": c.assistantID}
	var resp runResponse
	if err := c.doJSON(ctx, http.MethodPost, path, body, &resp); err != nil {
		return "", "", fmt.Errorf("failed to create run: %w", err)
	}
	return resp.ID, domain.RunStatus(resp.Status), nil
}

// GetRunStatus retrieves the current status of a run.
func (c *Client) GetRunStatus(ctx context.Context, threadID, runID string) (domain.RunStatus, error) {
	path := fmt.Sprintf("/openai/threads/%s/runs/%s", threadID, runID)
	var resp runResponse
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return "", fmt.Errorf("failed to retrieve run: %w", err)
	}
	return domain.RunStatus(resp.Status), nil
}

// CancelRun requests cancellation of a run.
func (c *Client) CancelRun(ctx context.Context, threadID, runID string) error {
	path := fmt.Sprintf("/openai/threads/%s/runs/%s/cancel", threadID, runID)
	if err := c.doJSON(ctx, http.MethodPost, path, map[string]interface{}{}, nil); err != nil {
		return fmt.Errorf("failed to cancel run: %w", err)
	}
	return nil
}

type threadMessagesResponse struct {
	Data []struct {
		Role    string `json:"role"`
		Content []struct {
			Type string `json:"type"`
			Text struct {
				Value string `json:"value"`
			} `json:"text"`
		} `json:"content"`
	} `json:"data"`
}

// LatestAssistantMessage returns the most recent assistant message on a
// thread. The thread messages endpoint lists most recent first.
func (c *Client) LatestAssistantMessage(ctx context.Context, threadID string) (string, error) {
	path := fmt.Sprintf("/openai/threads/%s/messages", threadID)
	var resp threadMessagesResponse
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return "", fmt.Errorf("failed to list thread messages: %w", err)
	}
	for _, msg := range resp.Data {
		if msg.Role != "assistant" {
			continue
		}
		for _, part := range msg.Content {
			if part.Type == "text" {
				return part.Text.Value, nil
			}
		}
	}
	return "", fmt.Errorf("no assistant message on thread %s", threadID)
}

// doJSON performs a JSON request against the assistants API.
func (c *Client) doJSON(ctx context.Context, method, path string, body interface{}, out interface{}) error {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	url := fmt.Sprintf("%s%s?api-version=%s", c.endpoint, path, c.apiVersion)
	httpReq, err := http.NewRequestWithContext(ctx, method, url, reqBody)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	c.setHeaders(httpReq)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return c.readAPIError(resp)
	}

	if out == nil {
		io.Copy(io.Discard, resp.Body)
		return nil
	}

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("failed to unmarshal response: %w", err)
	}
	return nil
}

func (c *Client) readAPIError(resp *http.Response) error {
	respBody, _ := io.ReadAll(resp.Body)
	var errResp errorResponse
	if err := json.Unmarshal(respBody, &errResp); err == nil && errResp.Error != nil {
		return fmt.Errorf("provider API error [%d]: %s (type: %s)", resp.StatusCode, errResp.Error.Message, errResp.Error.Type)
	}
	return fmt.Errorf("provider API error [%d]: %s", resp.StatusCode, string(respBody))
}

// setHeaders sets common request headers. Azure uses api-key auth.
func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("api-key", c.apiKey)
	}
}
