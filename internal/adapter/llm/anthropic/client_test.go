package anthropic_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/braedonsaunders/codetriage/internal/adapter/agent"
	"github.com/braedonsaunders/codetriage/internal/adapter/llm/anthropic"
	llmhttp "github.com/braedonsaunders/codetriage/internal/adapter/llm/http"
	"github.com/braedonsaunders/codetriage/internal/adapter/tools"
)

func TestClient_Send_TextResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/messages", r.URL.Path)
		assert.Equal(t, "test-key", r.Header.Get("x-api-key"))
		assert.NotEmpty(t, r.Header.Get("anthropic-version"))

		var req map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "claude-test", req["model"])
		assert.Equal(t, "be helpful", req["system"])

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": "msg_1",
			"type": "message",
			"role": "assistant",
			"content": [{"type": "text", "text": "ANALYSIS_COMPLETE"}],
			"model": "claude-test",
			"stop_reason": "end_turn",
			"usage": {"input_tokens": 10, "output_tokens": 5}
		}`))
	}))
	defer server.Close()

	client := anthropic.NewClient("test-key", "claude-test")
	client.SetBaseURL(server.URL)

	resp, err := client.Send(context.Background(), "be helpful",
		[]agent.Message{{Role: agent.RoleUser, Content: "analyze this"}}, nil)
	require.NoError(t, err)
	assert.Equal(t, "ANALYSIS_COMPLETE", resp.Text)
	assert.Empty(t, resp.ToolCalls)
}

func TestClient_Send_ToolUse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))

		// Tool declarations must be forwarded with input_schema
		declared, ok := req["tools"].([]interface{})
		require.True(t, ok)
		require.Len(t, declared, 1)
		tool := declared[0].(map[string]interface{})
		assert.Equal(t, "read_file", tool["name"])
		assert.Contains(t, tool, "input_schema")

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"content": [
				{"type": "text", "text": "Let me look."},
				{"type": "tool_use", "id": "toolu_1", "name": "read_file", "input": {"path": "main.go"}}
			],
			"model": "claude-test",
			"stop_reason": "tool_use",
			"usage": {"input_tokens": 10, "output_tokens": 5}
		}`))
	}))
	defer server.Close()

	client := anthropic.NewClient("test-key", "claude-test")
	client.SetBaseURL(server.URL)

	defs := []agent.ToolDef{{
		Name:        "read_file",
		Description: "read a file",
		Schema: tools.Schema{Type: "object", Properties: map[string]tools.Property{
			"path": {Type: "string"},
		}},
	}}

	resp, err := client.Send(context.Background(), "sys",
		[]agent.Message{{Role: agent.RoleUser, Content: "go"}}, defs)
	require.NoError(t, err)
	assert.Equal(t, "Let me look.", resp.Text)
	require.Len(t, resp.ToolCalls, 1)
	assert.Equal(t, "toolu_1", resp.ToolCalls[0].ID)
	assert.Equal(t, "read_file", resp.ToolCalls[0].Name)
	assert.Equal(t, "main.go", resp.ToolCalls[0].Params["path"])
}

func TestClient_Send_ToolResultsCollapseIntoOneUserTurn(t *testing.T) {
	var captured map[string]interface{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"content": [{"type": "text", "text": "ok"}], "usage": {}}`))
	}))
	defer server.Close()

	client := anthropic.NewClient("test-key", "claude-test")
	client.SetBaseURL(server.URL)

	messages := []agent.Message{
		{Role: agent.RoleUser, Content: "go"},
		{Role: agent.RoleAssistant, ToolCalls: []agent.ToolCall{
			{ID: "t1", Name: "read_file", Params: map[string]interface{}{"path": "a.go"}},
			{ID: "t2", Name: "read_file", Params: map[string]interface{}{"path": "b.go"}},
		}},
		{Role: agent.RoleTool, Content: "contents a", ToolCallID: "t1"},
		{Role: agent.RoleTool, Content: "contents b", ToolCallID: "t2"},
	}

	_, err := client.Send(context.Background(), "sys", messages, nil)
	require.NoError(t, err)

	wireMessages := captured["messages"].([]interface{})
	// user, assistant, then ONE user turn carrying both tool results
	require.Len(t, wireMessages, 3)
	last := wireMessages[2].(map[string]interface{})
	assert.Equal(t, "user", last["role"])
	blocks := last["content"].([]interface{})
	require.Len(t, blocks, 2)
	first := blocks[0].(map[string]interface{})
	assert.Equal(t, "tool_result", first["type"])
	assert.Equal(t, "t1", first["tool_use_id"])
}

func TestClient_Send_AuthErrorNotRetried(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"type": "error", "error": {"type": "authentication_error", "message": "bad key"}}`))
	}))
	defer server.Close()

	client := anthropic.NewClient("bad-key", "claude-test")
	client.SetBaseURL(server.URL)

	_, err := client.Send(context.Background(), "sys",
		[]agent.Message{{Role: agent.RoleUser, Content: "go"}}, nil)
	require.Error(t, err)

	var httpErr *llmhttp.Error
	require.True(t, errors.As(err, &httpErr))
	assert.Equal(t, llmhttp.ErrTypeAuthentication, httpErr.Type)
	assert.False(t, httpErr.Retryable)
	assert.Equal(t, 1, calls, "authentication errors must not be retried")
}

func TestClient_Name(t *testing.T) {
	client := anthropic.NewClient("k", "m")
	assert.Equal(t, "anthropic", client.Name())
}
