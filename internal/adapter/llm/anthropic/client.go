package anthropic

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
	defaultBaseURL          = "https://api.anthropic.com"
	defaultTimeout          = 120 * time.Second
	defaultMaxTokens        = 8192
	defaultAnthropicVersion = "2023-06-01"
)

// Client implements agent.Client against Anthropic's Messages API,
// using native tool_use content blocks for tool calls.
type Client struct {
	apiKey    string
	model     string
	baseURL   string
	maxTokens int
	client    *http.Client
	logger    llmhttp.Logger
	retry     llmhttp.RetryConfig
}

// NewClient creates a new Anthropic client.
func NewClient(apiKey, model string) *Client {
	return &Client{
		apiKey:    apiKey,
		model:     model,
		baseURL:   defaultBaseURL,
		maxTokens: defaultMaxTokens,
		client:    &http.Client{Timeout: defaultTimeout},
		retry:     llmhttp.DefaultRetryConfig(),
	}
}

// SetBaseURL sets a custom base URL (for testing).
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
	return "anthropic"
}

// Send submits the conversation and returns the model's next turn.
func (c *Client) Send(ctx context.Context, system string, messages []agent.Message, defs []agent.ToolDef) (agent.Response, error) {
	reqBody := messagesRequest{
		Model:     c.model,
		System:    system,
		MaxTokens: c.maxTokens,
		Messages:  encodeMessages(messages),
	}
	for _, def := range defs {
		reqBody.Tools = append(reqBody.Tools, toolSpec{
			Name:        def.Name,
			Description: def.Description,
			InputSchema: def.Schema,
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

	url := c.baseURL + "/v1/messages"
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
		req.Header.Set("x-api-key", c.apiKey)
		req.Header.Set("anthropic-version", defaultAnthropicVersion)

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

	var apiResp messagesResponse
	if err := json.Unmarshal(bodyBytes, &apiResp); err != nil {
		return agent.Response{}, fmt.Errorf("failed to parse response: %w", err)
	}

	if c.logger != nil {
		c.logger.LogResponse(ctx, llmhttp.ResponseLog{
			Provider:     c.Name(),
			Model:        apiResp.Model,
			Timestamp:    time.Now(),
			Duration:     time.Since(start),
			TokensIn:     apiResp.Usage.InputTokens,
			TokensOut:    apiResp.Usage.OutputTokens,
			StatusCode:   resp.StatusCode,
			FinishReason: apiResp.StopReason,
		})
	}

	return decodeResponse(apiResp), nil
}

// encodeMessages converts conversation messages to API wire shape.
// Consecutive tool results collapse into a single user turn because the
// API requires strictly alternating user/assistant roles.
func encodeMessages(messages []agent.Message) []message {
	var encoded []message
	for _, m := range messages {
		switch m.Role {
		case agent.RoleAssistant:
			blocks := []contentBlock{}
			if m.Content != "" {
				blocks = append(blocks, contentBlock{Type: "text", Text: m.Content})
			}
			for _, call := range m.ToolCalls {
				blocks = append(blocks, contentBlock{
					Type:  "tool_use",
					ID:    call.ID,
					Name:  call.Name,
					Input: call.Params,
				})
			}
			encoded = append(encoded, message{Role: "assistant", Content: blocks})

		case agent.RoleTool:
			block := contentBlock{
				Type:      "tool_result",
				ToolUseID: m.ToolCallID,
				Content:   m.Content,
			}
			if n := len(encoded); n > 0 && encoded[n-1].Role == "user" && isToolResultTurn(encoded[n-1]) {
				encoded[n-1].Content = append(encoded[n-1].Content, block)
				continue
			}
			encoded = append(encoded, message{Role: "user", Content: []contentBlock{block}})

		default:
			encoded = append(encoded, message{
				Role:    "user",
				Content: []contentBlock{{Type: "text", Text: m.Content}},
			})
		}
	}
	return encoded
}

func isToolResultTurn(m message) bool {
	return len(m.Content) > 0 && m.Content[0].Type == "tool_result"
}

// decodeResponse extracts text and tool calls from response blocks.
func decodeResponse(apiResp messagesResponse) agent.Response {
	var out agent.Response
	for _, block := range apiResp.Content {
		switch block.Type {
		case "text":
			out.Text += block.Text
		case "tool_use":
			out.ToolCalls = append(out.ToolCalls, agent.ToolCall{
				ID:     block.ID,
				Name:   block.Name,
				Params: block.Input,
			})
		}
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
	case 529: // Anthropic-specific: overloaded
		return llmhttp.NewServiceUnavailableError(c.Name(), message)
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
