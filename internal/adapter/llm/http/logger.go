package http

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sort"
	"strings"
	"time"
)

// Logger receives structured events from the backend clients. API keys
// are redacted before they reach any sink.
type Logger interface {
	LogRequest(ctx context.Context, req RequestLog)
	LogResponse(ctx context.Context, resp ResponseLog)
	LogError(ctx context.Context, err ErrorLog)
	LogWarning(ctx context.Context, message string, fields map[string]interface{})
	LogInfo(ctx context.Context, message string, fields map[string]interface{})
}

// RequestLog describes an outgoing backend call.
type RequestLog struct {
	Provider    string
	Model       string
	Timestamp   time.Time
	PromptChars int
	APIKey      string
}

// ResponseLog describes a completed backend call.
type ResponseLog struct {
	Provider     string
	Model        string
	Timestamp    time.Time
	Duration     time.Duration
	TokensIn     int
	TokensOut    int
	Cost         float64
	StatusCode   int
	FinishReason string
}

// ErrorLog describes a failed backend call.
type ErrorLog struct {
	Provider   string
	Model      string
	Timestamp  time.Time
	Duration   time.Duration
	Error      error
	ErrorType  ErrorType
	StatusCode int
	Retryable  bool
}

// LogLevel filters what the default logger emits.
type LogLevel int

const (
	LogLevelDebug LogLevel = iota
	LogLevelInfo
	LogLevelError
)

// LogFormat selects human or machine readable output.
type LogFormat int

const (
	LogFormatHuman LogFormat = iota
	LogFormatJSON
)

// DefaultLogger writes events through the standard log package.
type DefaultLogger struct {
	level      LogLevel
	format     LogFormat
	redactKeys bool
}

// NewDefaultLogger creates a logger. With redactKeys set, API keys are
// reduced to their last four characters in every event.
func NewDefaultLogger(level LogLevel, format LogFormat, redactKeys bool) *DefaultLogger {
	return &DefaultLogger{level: level, format: format, redactKeys: redactKeys}
}

// SetRedaction toggles API key redaction.
func (l *DefaultLogger) SetRedaction(enabled bool) {
	l.redactKeys = enabled
}

// LogRequest emits at debug level only; request events are noisy.
func (l *DefaultLogger) LogRequest(ctx context.Context, req RequestLog) {
	if l.level > LogLevelDebug {
		return
	}
	l.emit("debug", "[DEBUG]",
		fmt.Sprintf("%s/%s: request sent", req.Provider, req.Model),
		map[string]interface{}{
			"type":         "request",
			"provider":     req.Provider,
			"model":        req.Model,
			"prompt_chars": req.PromptChars,
			"api_key":      l.RedactAPIKey(req.APIKey),
		})
}

func (l *DefaultLogger) LogResponse(ctx context.Context, resp ResponseLog) {
	if l.level > LogLevelInfo {
		return
	}
	l.emit("info", "[INFO]",
		fmt.Sprintf("%s/%s: response received", resp.Provider, resp.Model),
		map[string]interface{}{
			"type":          "response",
			"provider":      resp.Provider,
			"model":         resp.Model,
			"duration_ms":   resp.Duration.Milliseconds(),
			"tokens_in":     resp.TokensIn,
			"tokens_out":    resp.TokensOut,
			"cost":          resp.Cost,
			"status_code":   resp.StatusCode,
			"finish_reason": resp.FinishReason,
		})
}

func (l *DefaultLogger) LogError(ctx context.Context, entry ErrorLog) {
	retryable := "non-retryable"
	if entry.Retryable {
		retryable = "retryable"
	}
	l.emit("error", "[ERROR]",
		fmt.Sprintf("%s/%s: call failed (%s): %v", entry.Provider, entry.Model, retryable, entry.Error),
		map[string]interface{}{
			"type":        "error",
			"provider":    entry.Provider,
			"model":       entry.Model,
			"duration_ms": entry.Duration.Milliseconds(),
			"error":       entry.Error.Error(),
			"error_type":  entry.ErrorType.String(),
			"status_code": entry.StatusCode,
			"retryable":   entry.Retryable,
		})
}

func (l *DefaultLogger) LogWarning(ctx context.Context, message string, fields map[string]interface{}) {
	if l.level > LogLevelInfo {
		return
	}
	l.emit("warning", "[WARN]", message, fields)
}

func (l *DefaultLogger) LogInfo(ctx context.Context, message string, fields map[string]interface{}) {
	if l.level > LogLevelInfo {
		return
	}
	l.emit("info", "[INFO]", message, fields)
}

// emit renders one event. JSON format flattens the fields into the
// entry; human format appends sorted key=value pairs.
func (l *DefaultLogger) emit(level, prefix, message string, fields map[string]interface{}) {
	if l.format == LogFormatJSON {
		entry := map[string]interface{}{
			"level":     level,
			"message":   message,
			"timestamp": time.Now().Format(time.RFC3339),
		}
		for k, v := range fields {
			entry[k] = v
		}
		data, err := json.Marshal(entry)
		if err != nil {
			log.Printf(`{"level":%q,"message":%q}`, level, message)
			return
		}
		log.Print(string(data))
		return
	}

	if len(fields) == 0 {
		log.Printf("%s %s", prefix, message)
		return
	}
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	pairs := make([]string, 0, len(keys))
	for _, k := range keys {
		pairs = append(pairs, fmt.Sprintf("%s=%v", k, fields[k]))
	}
	log.Printf("%s %s (%s)", prefix, message, strings.Join(pairs, " "))
}

// RedactAPIKey keeps only the last four characters of a key. Keys too
// short to truncate safely are fully masked.
func (l *DefaultLogger) RedactAPIKey(key string) string {
	if !l.redactKeys {
		return key
	}
	if len(key) <= 4 {
		return "[REDACTED]"
	}
	return fmt.Sprintf("[REDACTED-%s]", key[len(key)-4:])
}
