// Package ollama implements the agent backend over a local Ollama
// server. It needs no credentials, which makes it the backend of last
// resort when no API key is configured.
package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/braedonsaunders/codetriage/internal/adapter/agent"
	llmhttp "github.com/braedonsaunders/codetriage/internal/adapter/llm/http"
	"github.com/braedonsaunders/codetriage/internal/adapter/tools"
)

const (
	defaultBaseURL = "http://localhost:11434"
	// Local models run on whatever hardware is at hand, so allow far
	// longer than a hosted API would need.
	defaultTimeout = 600 * time.Second
)

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
	Tools    []toolSpec    `json:"tools,omitempty"`
	Stream   bool          `json:"stream"`
}

type chatMessage struct {
	Role      string     `json:"role"`
	Content   string     `json:"content"`
	ToolCalls []toolCall `json:"tool_calls,omitempty"`
}

// toolCall carries arguments as a decoded object, unlike OpenAI's
// string encoding. Ollama assigns no call IDs.
type toolCall struct {
	Function functionCall `json:"function"`
}

type functionCall struct {
	Name      string                 `json:"name"`
	Arguments map[string]interface{} `json:"arguments"`
}

type toolSpec struct {
	Type     string       `json:"type"`
	Function functionSpec `json:"function"`
}

type functionSpec struct {
	Name        string       `json:"name"`
	Description string       `json:"description,omitempty"`
	Parameters  tools.Schema `json:"parameters"`
}

type chatResponse struct {
	Model   string      `json:"model"`
	Message chatMessage `json:"message"`
	Done    bool        `json:"done"`
	Error   string      `json:"error"`
}

// Client implements agent.Client against a local Ollama server.
type Client struct {
	model   string
	baseURL string
	client  *http.Client
	logger  llmhttp.Logger
}

// NewClient creates a new Ollama client.
func NewClient(model string) *Client {
	return &Client{
		model:   model,
		baseURL: defaultBaseURL,
		client:  &http.Client{Timeout: defaultTimeout},
	}
}

// SetBaseURL sets a custom base URL (for testing or remote hosts).
func (c *Client) SetBaseURL(url string) {
	c.baseURL = url
}

// SetTimeout sets the HTTP timeout.
func (c *Client) SetTimeout(timeout time.Duration) {
	c.client.Timeout = timeout
}

// SetLogger attaches a request/response logger.
func (c *Client) SetLogger(logger llmhttp.Logger) {
	c.logger = logger
}

// Name identifies the backend.
func (c *Client) Name() string {
	return "ollama"
}

// Send submits the conversation and returns the model's next turn.
// There is no retry schedule here; a local server that refuses the
// connection will not recover within a request's lifetime.
func (c *Client) Send(ctx context.Context, system string, messages []agent.Message, defs []agent.ToolDef) (agent.Response, error) {
	reqBody := chatRequest{
		Model:    c.model,
		Messages: encodeMessages(system, messages),
		Stream:   false,
	}
	for _, def := range defs {
		reqBody.Tools = append(reqBody.Tools, toolSpec{
			Type: "function",
			Function: functionSpec{
				Name:        def.Name,
				Description: def.Description,
				Parameters:  def.Schema,
			},
		})
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return agent.Response{}, fmt.Errorf("failed to marshal request: %w", err)
	}

	start := time.Now()
	if c.logger != nil {
		c.logger.LogRequest(ctx, llmhttp.RequestLog{
			Provider:    c.Name(),
			Model:       c.model,
			Timestamp:   start,
			PromptChars: len(jsonData),
		})
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/api/chat", bytes.NewBuffer(jsonData))
	if err != nil {
		return agent.Response{}, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return agent.Response{}, llmhttp.NewServiceUnavailableError(c.Name(),
			fmt.Sprintf("ollama unreachable at %s: %v", c.baseURL, err))
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return agent.Response{}, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode >= 400 {
		return agent.Response{}, c.handleErrorResponse(resp.StatusCode, bodyBytes)
	}

	var apiResp chatResponse
	if err := json.Unmarshal(bodyBytes, &apiResp); err != nil {
		return agent.Response{}, fmt.Errorf("failed to parse response: %w", err)
	}
	if apiResp.Error != "" {
		return agent.Response{}, llmhttp.NewInvalidRequestError(c.Name(), apiResp.Error)
	}

	if c.logger != nil {
		c.logger.LogResponse(ctx, llmhttp.ResponseLog{
			Provider:   c.Name(),
			Model:      apiResp.Model,
			Timestamp:  time.Now(),
			Duration:   time.Since(start),
			StatusCode: resp.StatusCode,
		})
	}

	return decodeResponse(apiResp.Message), nil
}

func encodeMessages(system string, messages []agent.Message) []chatMessage {
	encoded := make([]chatMessage, 0, len(messages)+1)
	if system != "" {
		encoded = append(encoded, chatMessage{Role: "system", Content: system})
	}
	for _, m := range messages {
		switch m.Role {
		case agent.RoleAssistant:
			cm := chatMessage{Role: "assistant", Content: m.Content}
			for _, call := range m.ToolCalls {
				cm.ToolCalls = append(cm.ToolCalls, toolCall{
					Function: functionCall{Name: call.Name, Arguments: call.Params},
				})
			}
			encoded = append(encoded, cm)
		case agent.RoleTool:
			encoded = append(encoded, chatMessage{Role: "tool", Content: m.Content})
		default:
			encoded = append(encoded, chatMessage{Role: "user", Content: m.Content})
		}
	}
	return encoded
}

// decodeResponse extracts text and tool calls. Ollama assigns no call
// IDs, so synthetic ones keep the conversation bookkeeping uniform
// across backends.
func decodeResponse(m chatMessage) agent.Response {
	out := agent.Response{Text: m.Content}
	for i, call := range m.ToolCalls {
		params := call.Function.Arguments
		if params == nil {
			params = map[string]interface{}{}
		}
		out.ToolCalls = append(out.ToolCalls, agent.ToolCall{
			ID:     fmt.Sprintf("call_%d", i),
			Name:   call.Function.Name,
			Params: params,
		})
	}
	return out
}

func (c *Client) handleErrorResponse(statusCode int, body []byte) error {
	message := fmt.Sprintf("HTTP %d", statusCode)
	var errResp chatResponse
	if err := json.Unmarshal(body, &errResp); err == nil && errResp.Error != "" {
		message = errResp.Error
	}

	switch statusCode {
	case http.StatusNotFound:
		return llmhttp.NewModelNotFoundError(c.Name(), message)
	case http.StatusBadRequest:
		return llmhttp.NewInvalidRequestError(c.Name(), message)
	case http.StatusServiceUnavailable, http.StatusInternalServerError:
		return llmhttp.NewServiceUnavailableError(c.Name(), message)
	default:
		return &llmhttp.Error{
			Type:       llmhttp.ErrTypeUnknown,
			Message:    message,
			StatusCode: statusCode,
			Retryable:  false,
			Provider:   c.Name(),
		}
	}
}

// Compile-time interface check
var _ agent.Client = (*Client)(nil)
