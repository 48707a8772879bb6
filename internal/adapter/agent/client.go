package agent

import (
	"context"

	"github.com/braedonsaunders/codetriage/internal/adapter/tools"
)

// Message roles for the analysis conversation.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleTool      = "tool"
)

// ToolCall is a single tool invocation requested by the reasoning backend.
type ToolCall struct {
	ID     string                 `json:"id"`
	Name   string                 `json:"name"`
	Params map[string]interface{} `json:"parameters"`
}

// Message is one turn in the analysis conversation. Tool-role messages
// carry the ToolCallID of the call they answer.
type Message struct {
	Role       string     `json:"role"`
	Content    string     `json:"content"`
	ToolCalls  []ToolCall `json:"toolCalls,omitempty"`
	ToolCallID string     `json:"toolCallId,omitempty"`
}

// ToolDef declares a tool to the reasoning backend: its name, a
// description, and a JSON-schema parameter description.
type ToolDef struct {
	Name        string       `json:"name"`
	Description string       `json:"description"`
	Schema      tools.Schema `json:"schema"`
}

// Response is one reasoning-backend turn: free text, tool calls, or both.
type Response struct {
	Text      string
	ToolCalls []ToolCall
}

// Client abstracts a reasoning backend capable of multi-turn tool use.
// Implementations live under adapter/llm.
type Client interface {
	// Send submits the conversation and available tools and returns the
	// backend's next turn.
	Send(ctx context.Context, system string, messages []Message, toolDefs []ToolDef) (Response, error)

	// Name identifies the backend for logging and result attribution.
	Name() string
}
