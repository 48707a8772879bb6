package http

import "fmt"

// ErrorType categorizes a backend failure so callers can branch on the
// kind of problem rather than on status codes or message text.
type ErrorType string

const (
	ErrTypeAuthentication     ErrorType = "authentication error"
	ErrTypeRateLimit          ErrorType = "rate limit exceeded"
	ErrTypeServiceUnavailable ErrorType = "service unavailable"
	ErrTypeInvalidRequest     ErrorType = "invalid request"
	ErrTypeTimeout            ErrorType = "timeout"
	ErrTypeModelNotFound      ErrorType = "model not found"
	ErrTypeContentFiltered    ErrorType = "content filtered"
	ErrTypeUnknown            ErrorType = "unknown error"
)

func (e ErrorType) String() string {
	if e == "" {
		return string(ErrTypeUnknown)
	}
	return string(e)
}

// Error is the typed failure returned by the backend clients.
// Retryable drives the retry loop; transient categories set it.
type Error struct {
	Type       ErrorType
	Message    string
	StatusCode int
	Retryable  bool
	Provider   string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s: %s (status: %d)", e.Provider, e.Type, e.Message, e.StatusCode)
}

// Is matches on error category, so errors.Is(err, &Error{Type: ErrTypeRateLimit})
// works regardless of provider or message.
func (e *Error) Is(target error) bool {
	other, ok := target.(*Error)
	return ok && e.Type == other.Type
}

// IsRetryable reports whether the retry loop should try again.
func (e *Error) IsRetryable() bool {
	return e.Retryable
}

// NewAuthenticationError reports a rejected credential. Never retryable.
func NewAuthenticationError(provider, message string) *Error {
	return &Error{Type: ErrTypeAuthentication, Message: message, StatusCode: 401, Provider: provider}
}

// NewRateLimitError reports request throttling. Retryable after backoff.
func NewRateLimitError(provider, message string) *Error {
	return &Error{Type: ErrTypeRateLimit, Message: message, StatusCode: 429, Retryable: true, Provider: provider}
}

// NewServiceUnavailableError reports a transient server-side failure.
func NewServiceUnavailableError(provider, message string) *Error {
	return &Error{Type: ErrTypeServiceUnavailable, Message: message, StatusCode: 503, Retryable: true, Provider: provider}
}

// NewInvalidRequestError reports a malformed request. Never retryable;
// retrying the same payload cannot succeed.
func NewInvalidRequestError(provider, message string) *Error {
	return &Error{Type: ErrTypeInvalidRequest, Message: message, StatusCode: 400, Provider: provider}
}

// NewTimeoutError reports an exceeded deadline. Retryable.
func NewTimeoutError(provider, message string) *Error {
	return &Error{Type: ErrTypeTimeout, Message: message, Retryable: true, Provider: provider}
}

// NewModelNotFoundError reports a model name the backend does not serve.
func NewModelNotFoundError(provider, message string) *Error {
	return &Error{Type: ErrTypeModelNotFound, Message: message, StatusCode: 404, Provider: provider}
}

// NewContentFilteredError reports a response blocked by the backend's
// safety filters.
func NewContentFilteredError(provider, message string) *Error {
	return &Error{Type: ErrTypeContentFiltered, Message: message, StatusCode: 400, Provider: provider}
}
