package anthropic

import "github.com/braedonsaunders/codetriage/internal/adapter/tools"

// messagesRequest represents a request to Anthropic's Messages API.
type messagesRequest struct {
	Model       string     `json:"model"`
	Messages    []message  `json:"messages"`
	System      string     `json:"system,omitempty"`
	MaxTokens   int        `json:"max_tokens"`
	Temperature float64    `json:"temperature,omitempty"`
	Tools       []toolSpec `json:"tools,omitempty"`
}

// message is one conversation turn. Content is a list of blocks so a
// single turn can mix text, tool_use, and tool_result.
type message struct {
	Role    string         `json:"role"` // "user" or "assistant"
	Content []contentBlock `json:"content"`
}

// contentBlock is a single content element.
// Type selects which fields are populated: "text" uses Text, "tool_use"
// uses ID/Name/Input, "tool_result" uses ToolUseID/Content.
type contentBlock struct {
	Type      string                 `json:"type"`
	Text      string                 `json:"text,omitempty"`
	ID        string                 `json:"id,omitempty"`
	Name      string                 `json:"name,omitempty"`
	Input     map[string]interface{} `json:"input,omitempty"`
	ToolUseID string                 `json:"tool_use_id,omitempty"`
	Content   string                 `json:"content,omitempty"`
}

// toolSpec declares a tool to the API.
type toolSpec struct {
	Name        string       `json:"name"`
	Description string       `json:"description"`
	InputSchema tools.Schema `json:"input_schema"`
}

// messagesResponse represents a response from Anthropic's Messages API.
type messagesResponse struct {
	ID         string         `json:"id"`
	Type       string         `json:"type"` // "message"
	Role       string         `json:"role"` // "assistant"
	Content    []contentBlock `json:"content"`
	Model      string         `json:"model"`
	StopReason string         `json:"stop_reason"`
	Usage      usage          `json:"usage"`
}

// usage represents token usage statistics.
type usage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

// errorResponse represents an error response from Anthropic's API.
type errorResponse struct {
	Type  string      `json:"type"` // "error"
	Error errorDetail `json:"error"`
}

// errorDetail contains error information.
type errorDetail struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}
