package redaction

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"regexp"
	"strings"
)

// Engine scrubs secrets out of text before it leaves the process. Tool
// output that may contain repository file contents is run through it
// before being handed to a remote model.
type Engine struct {
	patterns []*regexp.Regexp
}

// NewEngine creates an engine with the default secret patterns, plus any
// extra patterns supplied by the caller.
func NewEngine(extra ...string) *Engine {
	patterns := append([]*regexp.Regexp{}, defaultPatterns...)
	for _, p := range extra {
		patterns = append(patterns, regexp.MustCompile(p))
	}
	return &Engine{patterns: patterns}
}

// Redact replaces every detected secret with a stable placeholder. The
// placeholder is derived from the secret's hash so repeated occurrences
// of the same secret map to the same marker.
func (e *Engine) Redact(input string) string {
	if input == "" {
		return input
	}

	placeholders := make(map[string]string)
	for _, pattern := range e.patterns {
		for _, match := range pattern.FindAllString(input, -1) {
			if _, seen := placeholders[match]; seen {
				continue
			}
			placeholders[match] = placeholder(match)
		}
	}

	result := input
	for secret, marker := range placeholders {
		result = strings.ReplaceAll(result, secret, marker)
	}
	return result
}

// IsRedacted reports whether the content contains redaction markers.
func (e *Engine) IsRedacted(content string) bool {
	return strings.Contains(content, "<REDACTED:")
}

func placeholder(secret string) string {
	sum := sha256.Sum256([]byte(secret))
	return fmt.Sprintf("<REDACTED:%s>", hex.EncodeToString(sum[:])[:8])
}

var defaultPatterns = compilePatterns(
	// OpenAI and Anthropic style API keys
	`sk-[a-zA-Z0-9\-]{20,}`,
	// AWS access key IDs
	`AKIA[0-9A-Z]{16}`,
	// AWS secret access keys near an "aws" marker
	`aws.{0,20}?['\"][0-9a-zA-Z/+]{40}['\"]`,
	// GitHub tokens
	`gh[posr]_[a-zA-Z0-9]{20,}`,
	// Google API keys
	`AIza[0-9A-Za-z\-_]{35}`,
	// JWTs
	`eyJ[a-zA-Z0-9_-]+\.eyJ[a-zA-Z0-9_-]+\.[a-zA-Z0-9_-]+`,
	// PEM private keys
	`-----BEGIN\s+(?:RSA|EC|OPENSSH|DSA|ENCRYPTED)\s+PRIVATE\s+KEY-----[\s\S]*?-----END\s+(?:RSA|EC|OPENSSH|DSA|ENCRYPTED)\s+PRIVATE\s+KEY-----`,
	// Slack tokens
	`xox[baprs]-[a-zA-Z0-9\-]{10,}`,
	// Bearer credentials in headers
	`Bearer\s+[a-zA-Z0-9_\-\.]+`,
)

func compilePatterns(patterns ...string) []*regexp.Regexp {
	compiled := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		compiled = append(compiled, regexp.MustCompile(p))
	}
	return compiled
}
