package http_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	llmhttp "github.com/braedonsaunders/codetriage/internal/adapter/llm/http"
)

func TestError_Error(t *testing.T) {
	err := &llmhttp.Error{
		Type:       llmhttp.ErrTypeAuthentication,
		Message:    "invalid API key",
		StatusCode: 401,
		Provider:   "anthropic",
	}

	assert.Equal(t, "anthropic: authentication error: invalid API key (status: 401)", err.Error())
}

func TestError_IsMatchesOnType(t *testing.T) {
	rateLimited := llmhttp.NewRateLimitError("anthropic", "slow down")

	assert.True(t, errors.Is(rateLimited, &llmhttp.Error{Type: llmhttp.ErrTypeRateLimit}))
	assert.False(t, errors.Is(rateLimited, &llmhttp.Error{Type: llmhttp.ErrTypeAuthentication}))
	assert.False(t, errors.Is(rateLimited, errors.New("rate limit exceeded")))
}

func TestConstructors(t *testing.T) {
	tests := []struct {
		name       string
		err        *llmhttp.Error
		wantType   llmhttp.ErrorType
		wantStatus int
		retryable  bool
	}{
		{"authentication", llmhttp.NewAuthenticationError("openai", "bad key"), llmhttp.ErrTypeAuthentication, 401, false},
		{"rate limit", llmhttp.NewRateLimitError("anthropic", "too many requests"), llmhttp.ErrTypeRateLimit, 429, true},
		{"service unavailable", llmhttp.NewServiceUnavailableError("anthropic", "overloaded"), llmhttp.ErrTypeServiceUnavailable, 503, true},
		{"invalid request", llmhttp.NewInvalidRequestError("openai", "missing field"), llmhttp.ErrTypeInvalidRequest, 400, false},
		{"timeout", llmhttp.NewTimeoutError("ollama", "deadline exceeded"), llmhttp.ErrTypeTimeout, 0, true},
		{"model not found", llmhttp.NewModelNotFoundError("ollama", "no such model"), llmhttp.ErrTypeModelNotFound, 404, false},
		{"content filtered", llmhttp.NewContentFilteredError("openai", "blocked"), llmhttp.ErrTypeContentFiltered, 400, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantType, tt.err.Type)
			assert.Equal(t, tt.wantStatus, tt.err.StatusCode)
			assert.Equal(t, tt.retryable, tt.err.IsRetryable())
			assert.NotEmpty(t, tt.err.Message)
			assert.NotEmpty(t, tt.err.Provider)
		})
	}
}

func TestErrorType_String(t *testing.T) {
	assert.Equal(t, "rate limit exceeded", llmhttp.ErrTypeRateLimit.String())
	assert.Equal(t, "unknown error", llmhttp.ErrTypeUnknown.String())
	assert.Equal(t, "unknown error", llmhttp.ErrorType("").String())
}
