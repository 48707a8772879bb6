// Package openai implements the agent backend over the OpenAI
// chat/completions API. The same client serves any compatible gateway
// (OpenRouter among them) by pointing it at a different base URL.
package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/braedonsaunders/codetriage/internal/adapter/agent"
	llmhttp "github.com/braedonsaunders/codetriage/internal/adapter/llm/http"
)

const (
	defaultBaseURL   = "https://api.openai.com/v1"
	defaultTimeout   = 120 * time.Second
	defaultMaxTokens = 8192
)

// Client implements agent.Client against an OpenAI-compatible API.
type Client struct {
	apiKey    string
	model     string
	baseURL   string
	name      string
	maxTokens int
	client    *http.Client
	logger    llmhttp.Logger
	retry     llmhttp.RetryConfig
}

// NewClient creates a new OpenAI client.
func NewClient(apiKey, model string) *Client {
	return &Client{
		apiKey:    apiKey,
		model:     model,
		baseURL:   defaultBaseURL,
		name:      "openai",
		maxTokens: defaultMaxTokens,
		client:    &http.Client{Timeout: defaultTimeout},
		retry:     llmhttp.DefaultRetryConfig(),
	}
}

// NewOpenRouterClient creates a client routed through OpenRouter.
func NewOpenRouterClient(apiKey, model string) *Client {
	c := NewClient(apiKey, model)
	c.baseURL = "https://openrouter.ai/api/v1"
	c.name = "openrouter"
	return c
}

// SetBaseURL sets a custom base URL (for testing or gateways).
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

// SetRetryConfig overrides the backoff schedule.
func (c *Client) SetRetryConfig(config llmhttp.RetryConfig) {
	c.retry = config
}

// Name identifies the backend.
func (c *Client) Name() string {
	return c.name
}

// Send submits the conversation and returns the model's next turn.
func (c *Client) Send(ctx context.Context, system string, messages []agent.Message, defs []agent.ToolDef) (agent.Response, error) {
	reqBody := chatRequest{
		Model:     c.model,
		MaxTokens: c.maxTokens,
		Messages:  encodeMessages(system, messages),
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
			APIKey:      c.apiKey,
		})
	}

	url := c.baseURL + "/chat/completions"
	var resp *http.Response

	err = llmhttp.RetryWithBackoff(ctx, func(ctx context.Context) error {
		// Recreate request for each retry with fresh context
		req, reqErr := http.NewRequestWithContext(ctx, "POST", url, bytes.NewBuffer(jsonData))
		if reqErr != nil {
			return &llmhttp.Error{
				Type:      llmhttp.ErrTypeUnknown,
				Message:   reqErr.Error(),
				Retryable: false,
				Provider:  c.Name(),
			}
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+c.apiKey)

		var callErr error
		resp, callErr = c.client.Do(req)
		if callErr != nil {
			return &llmhttp.Error{
				Type:      llmhttp.ErrTypeTimeout,
				Message:   callErr.Error(),
				Retryable: true,
				Provider:  c.Name(),
			}
		}

		if resp.StatusCode >= 400 {
			bodyBytes, _ := io.ReadAll(resp.Body)
			resp.Body.Close()
			return c.handleErrorResponse(resp.StatusCode, bodyBytes)
		}
		return nil
	}, c.retry)

	if err != nil {
		c.logError(ctx, err, time.Since(start))
		return agent.Response{}, err
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return agent.Response{}, fmt.Errorf("failed to read response body: %w", err)
	}

	var apiResp chatResponse
	if err := json.Unmarshal(bodyBytes, &apiResp); err != nil {
		return agent.Response{}, fmt.Errorf("failed to parse response: %w", err)
	}
	if len(apiResp.Choices) == 0 {
		return agent.Response{}, fmt.Errorf("response contained no choices")
	}

	if c.logger != nil {
		c.logger.LogResponse(ctx, llmhttp.ResponseLog{
			Provider:     c.Name(),
			Model:        apiResp.Model,
			Timestamp:    time.Now(),
			Duration:     time.Since(start),
			TokensIn:     apiResp.Usage.PromptTokens,
			TokensOut:    apiResp.Usage.CompletionTokens,
			StatusCode:   resp.StatusCode,
			FinishReason: apiResp.Choices[0].FinishReason,
		})
	}

	return decodeResponse(apiResp.Choices[0].Message), nil
}

// encodeMessages converts conversation messages to API wire shape.
// The system prompt rides as the leading system-role message.
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
				args, err := json.Marshal(call.Params)
				if err != nil {
					args = []byte("{}")
				}
				cm.ToolCalls = append(cm.ToolCalls, toolCall{
					ID:   call.ID,
					Type: "function",
					Function: functionCall{
						Name:      call.Name,
						Arguments: string(args),
					},
				})
			}
			encoded = append(encoded, cm)

		case agent.RoleTool:
			encoded = append(encoded, chatMessage{
				Role:       "tool",
				Content:    m.Content,
				ToolCallID: m.ToolCallID,
			})

		default:
			encoded = append(encoded, chatMessage{Role: "user", Content: m.Content})
		}
	}
	return encoded
}

// decodeResponse extracts text and tool calls from the assistant turn.
// Malformed tool arguments degrade to empty params so the tool layer
// can report the missing fields itself.
func decodeResponse(m chatMessage) agent.Response {
	out := agent.Response{Text: m.Content}
	for _, call := range m.ToolCalls {
		params := map[string]interface{}{}
		if call.Function.Arguments != "" {
			if err := json.Unmarshal([]byte(call.Function.Arguments), &params); err != nil {
				params = map[string]interface{}{}
			}
		}
		out.ToolCalls = append(out.ToolCalls, agent.ToolCall{
			ID:     call.ID,
			Name:   call.Function.Name,
			Params: params,
		})
	}
	return out
}

// handleErrorResponse maps HTTP status codes to typed errors.
func (c *Client) handleErrorResponse(statusCode int, body []byte) error {
	var errResp errorResponse
	message := fmt.Sprintf("HTTP %d", statusCode)
	if err := json.Unmarshal(body, &errResp); err == nil && errResp.Error.Message != "" {
		message = errResp.Error.Message
	}

	switch statusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		return llmhttp.NewAuthenticationError(c.Name(), message)
	case http.StatusTooManyRequests:
		return llmhttp.NewRateLimitError(c.Name(), message)
	case http.StatusBadRequest:
		return llmhttp.NewInvalidRequestError(c.Name(), message)
	case http.StatusNotFound:
		return llmhttp.NewModelNotFoundError(c.Name(), message)
	case http.StatusServiceUnavailable, http.StatusInternalServerError, http.StatusBadGateway:
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

func (c *Client) logError(ctx context.Context, err error, duration time.Duration) {
	if c.logger == nil {
		return
	}
	entry := llmhttp.ErrorLog{
		Provider:  c.Name(),
		Model:     c.model,
		Timestamp: time.Now(),
		Duration:  duration,
		Error:     err,
	}
	var typed *llmhttp.Error
	if errors.As(err, &typed) {
		entry.ErrorType = typed.Type
		entry.StatusCode = typed.StatusCode
		entry.Retryable = typed.Retryable
	}
	c.logger.LogError(ctx, entry)
}

// Compile-time interface check
var _ agent.Client = (*Client)(nil)
