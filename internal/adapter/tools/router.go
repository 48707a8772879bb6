package tools

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"
)

// DefaultCallTimeout bounds a single tool invocation.
const DefaultCallTimeout = 60 * time.Second

// Logger allows the router to emit diagnostics without depending on a
// concrete logging implementation.
type Logger interface {
	LogInfo(ctx context.Context, msg string, fields map[string]interface{})
	LogWarning(ctx context.Context, msg string, fields map[string]interface{})
}

// Redactor scrubs secrets out of tool output before it is handed back
// to the model.
type Redactor interface {
	Redact(input string) string
}

// Router dispatches named tool calls to registered tools.
// Every call is time-boxed; a timeout surfaces as a tool error,
// never as a hung or crashed process.
type Router struct {
	tools    map[string]Tool
	order    []string
	timeout  time.Duration
	logger   Logger
	redactor Redactor
}

// RouterOption configures a Router.
type RouterOption func(*Router)

// WithTimeout overrides the per-call timeout.
func WithTimeout(d time.Duration) RouterOption {
	return func(r *Router) {
		if d > 0 {
			r.timeout = d
		}
	}
}

// WithLogger attaches a logger to the router.
func WithLogger(logger Logger) RouterOption {
	return func(r *Router) {
		r.logger = logger
	}
}

// WithRedactor runs all tool output through the given redactor.
func WithRedactor(redactor Redactor) RouterOption {
	return func(r *Router) {
		r.redactor = redactor
	}
}

// NewRouter creates a router over the given tools.
// Registration order is preserved for prompt construction.
func NewRouter(toolList []Tool, opts ...RouterOption) *Router {
	r := &Router{
		tools:   make(map[string]Tool, len(toolList)),
		timeout: DefaultCallTimeout,
	}
	for _, t := range toolList {
		if _, exists := r.tools[t.Name()]; exists {
			continue
		}
		r.tools[t.Name()] = t
		r.order = append(r.order, t.Name())
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Tools returns the registered tools in registration order.
func (r *Router) Tools() []Tool {
	result := make([]Tool, 0, len(r.order))
	for _, name := range r.order {
		result = append(result, r.tools[name])
	}
	return result
}

// Has reports whether a tool with the given name is registered.
func (r *Router) Has(name string) bool {
	_, ok := r.tools[name]
	return ok
}

// Call executes the named tool with the given parameters.
// Unknown tools and execution failures return an error; the caller
// decides how to surface it (typically as a tool-result message).
func (r *Router) Call(ctx context.Context, name string, params map[string]interface{}) (string, error) {
	tool, ok := r.tools[name]
	if !ok {
		return "", fmt.Errorf("unknown tool %q", name)
	}

	callCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	start := time.Now()
	output, err := tool.Execute(callCtx, params)
	elapsed := time.Since(start)

	if err != nil {
		if errors.Is(callCtx.Err(), context.DeadlineExceeded) {
			err = fmt.Errorf("tool %s timed out after %s", name, r.timeout)
		}
		r.logWarning(ctx, "tool call failed", map[string]interface{}{
			"tool":     name,
			"duration": elapsed.String(),
			"error":    err.Error(),
		})
		return "", err
	}

	if r.redactor != nil {
		output = r.redactor.Redact(output)
	}

	r.logInfo(ctx, "tool call completed", map[string]interface{}{
		"tool":     name,
		"duration": elapsed.String(),
		"bytes":    len(output),
	})
	return output, nil
}

func (r *Router) logInfo(ctx context.Context, msg string, fields map[string]interface{}) {
	if r.logger != nil {
		r.logger.LogInfo(ctx, msg, fields)
	}
}

func (r *Router) logWarning(ctx context.Context, msg string, fields map[string]interface{}) {
	if r.logger != nil {
		r.logger.LogWarning(ctx, msg, fields)
		return
	}
	log.Printf("WARN: %s %v", msg, fields)
}
