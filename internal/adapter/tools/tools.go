package tools

import (
	"context"
	"fmt"
	"path"
	"strings"

	"github.com/braedonsaunders/codetriage/internal/adapter/repository"
)

// MaxToolOutputLength is the maximum length of tool output before truncation.
// This prevents runaway memory usage from large files or command output.
const MaxToolOutputLength = 50000

// Repository provides the filesystem and process capabilities tools need.
// Both LocalRepository and GitRepository satisfy it.
type Repository interface {
	ReadFile(path string) ([]byte, error)
	FileExists(path string) bool
	Stat(path string) (repository.FileInfo, error)
	Glob(pattern string) ([]string, error)
	ListFiles() ([]string, error)
	Grep(pattern string, paths ...string) ([]repository.GrepMatch, error)
	RunCommand(ctx context.Context, cmd string, args ...string) (repository.CommandResult, error)
}

// Schema describes a tool's parameters in JSON-schema shape.
// It is surfaced verbatim to the reasoning backend.
type Schema struct {
	Type       string              `json:"type"`
	Properties map[string]Property `json:"properties"`
	Required   []string            `json:"required,omitempty"`
}

// Property describes a single named parameter.
type Property struct {
	Type        string `json:"type"`
	Description string `json:"description,omitempty"`
}

// Tool defines the interface for analysis tools exposed to the agent.
type Tool interface {
	// Name returns the tool identifier used in tool calls and logs.
	Name() string

	// Description returns a human-readable description for the agent prompt.
	Description() string

	// Schema returns the tool's parameter schema.
	Schema() Schema

	// Execute runs the tool with the given parameters and returns the result.
	// The context allows for cancellation and timeout.
	Execute(ctx context.Context, params map[string]interface{}) (string, error)
}

// stringParam extracts a string parameter, returning an error when a
// required parameter is missing or has the wrong type.
func stringParam(params map[string]interface{}, key string, required bool) (string, error) {
	raw, ok := params[key]
	if !ok {
		if required {
			return "", fmt.Errorf("parameter %q required", key)
		}
		return "", nil
	}
	s, ok := raw.(string)
	if !ok {
		return "", fmt.Errorf("parameter %q must be a string", key)
	}
	return s, nil
}

// validatePath checks that a path is safe (no traversal, no absolute paths).
func validatePath(filePath string) error {
	// Block absolute paths
	if strings.HasPrefix(filePath, "/") {
		return fmt.Errorf("absolute paths not allowed: %s", filePath)
	}

	// Clean the path to resolve any . or .. components
	cleaned := path.Clean(filePath)

	// After cleaning, check for path traversal attempts
	if strings.HasPrefix(cleaned, "..") {
		return fmt.Errorf("path traversal not allowed: %s", filePath)
	}

	// Check for hidden files/directories (starting with .)
	// This prevents access to .git, .env, etc.
	parts := strings.Split(cleaned, "/")
	for _, part := range parts {
		if strings.HasPrefix(part, ".") && part != "." {
			return fmt.Errorf("hidden files/directories not allowed: %s", filePath)
		}
	}

	return nil
}

// validateGlobPattern checks that a glob pattern is safe.
func validateGlobPattern(pattern string) error {
	// Block absolute paths
	if strings.HasPrefix(pattern, "/") {
		return fmt.Errorf("absolute paths not allowed in glob: %s", pattern)
	}

	// Block patterns that start with path traversal
	if strings.HasPrefix(pattern, "..") {
		return fmt.Errorf("path traversal not allowed in glob: %s", pattern)
	}

	// Block patterns explicitly targeting hidden/sensitive directories.
	// Patterns like "**/*.go" that might incidentally match hidden dirs are
	// allowed; explicit targeting like ".git/*" or ".env" is not.
	for _, forbidden := range []string{".git", ".env", ".ssh", ".aws", ".config", ".secret"} {
		if strings.Contains(pattern, forbidden) {
			return fmt.Errorf("pattern targets forbidden directory: %s", forbidden)
		}
	}

	return nil
}

// truncateOutput truncates output that exceeds MaxToolOutputLength.
func truncateOutput(s string) string {
	if len(s) <= MaxToolOutputLength {
		return s
	}
	return s[:MaxToolOutputLength] + "\n... [output truncated]"
}
