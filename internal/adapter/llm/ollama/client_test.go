package ollama_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/braedonsaunders/codetriage/internal/adapter/agent"
	llmhttp "github.com/braedonsaunders/codetriage/internal/adapter/llm/http"
	"github.com/braedonsaunders/codetriage/internal/adapter/llm/ollama"
)

func TestClient_Send_Text(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/chat", r.URL.Path)
		assert.Empty(t, r.Header.Get("Authorization"))

		var req map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, false, req["stream"])
		assert.Equal(t, "llama3", req["model"])

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"model": "llama3",
			"message": {"role": "assistant", "content": "no issues found"},
			"done": true
		}`))
	}))
	defer server.Close()

	client := ollama.NewClient("llama3")
	client.SetBaseURL(server.URL)

	resp, err := client.Send(context.Background(), "sys",
		[]agent.Message{{Role: agent.RoleUser, Content: "analyze"}}, nil)
	require.NoError(t, err)
	assert.Equal(t, "no issues found", resp.Text)
	assert.Empty(t, resp.ToolCalls)
}

func TestClient_Send_ToolCallsGetSyntheticIDs(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"model": "llama3",
			"message": {
				"role": "assistant",
				"content": "",
				"tool_calls": [
					{"function": {"name": "read_file", "arguments": {"path": "main.go"}}},
					{"function": {"name": "list_files", "arguments": {}}}
				]
			},
			"done": true
		}`))
	}))
	defer server.Close()

	client := ollama.NewClient("llama3")
	client.SetBaseURL(server.URL)

	resp, err := client.Send(context.Background(), "sys",
		[]agent.Message{{Role: agent.RoleUser, Content: "go"}}, nil)
	require.NoError(t, err)
	require.Len(t, resp.ToolCalls, 2)
	assert.Equal(t, "call_0", resp.ToolCalls[0].ID)
	assert.Equal(t, "read_file", resp.ToolCalls[0].Name)
	assert.Equal(t, "main.go", resp.ToolCalls[0].Params["path"])
	assert.Equal(t, "call_1", resp.ToolCalls[1].ID)
	assert.NotNil(t, resp.ToolCalls[1].Params)
}

func TestClient_Send_ModelNotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error": "model 'missing' not found"}`))
	}))
	defer server.Close()

	client := ollama.NewClient("missing")
	client.SetBaseURL(server.URL)

	_, err := client.Send(context.Background(), "sys",
		[]agent.Message{{Role: agent.RoleUser, Content: "go"}}, nil)
	require.Error(t, err)

	var httpErr *llmhttp.Error
	require.True(t, errors.As(err, &httpErr))
	assert.Equal(t, llmhttp.ErrTypeModelNotFound, httpErr.Type)
}

func TestClient_Send_Unreachable(t *testing.T) {
	client := ollama.NewClient("llama3")
	// Reserved TEST-NET address, nothing listens here
	client.SetBaseURL("http://192.0.2.1:11434")
	client.SetTimeout(100 * time.Millisecond)

	_, err := client.Send(context.Background(), "sys",
		[]agent.Message{{Role: agent.RoleUser, Content: "go"}}, nil)
	require.Error(t, err)

	var httpErr *llmhttp.Error
	require.True(t, errors.As(err, &httpErr))
	assert.Equal(t, llmhttp.ErrTypeServiceUnavailable, httpErr.Type)
}

func TestClient_Name(t *testing.T) {
	assert.Equal(t, "ollama", ollama.NewClient("llama3").Name())
}
