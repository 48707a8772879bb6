package skip_test

import (
	"testing"

	"github.com/braedonsaunders/codetriage/internal/usecase/skip"
)

func TestContainsSkipTrigger(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		expected bool
	}{
		{
			name:     "bracket format with space",
			text:     "[skip triage]",
			expected: true,
		},
		{
			name:     "trigger inside commit message",
			text:     "fix: update README [skip triage]",
			expected: true,
		},
		{
			name:     "trigger at beginning",
			text:     "[skip triage] WIP: initial commit",
			expected: true,
		},
		{
			name:     "bracket format with hyphen",
			text:     "[skip-triage]",
			expected: true,
		},
		{
			name:     "uppercase",
			text:     "[SKIP TRIAGE]",
			expected: true,
		},
		{
			name:     "mixed case",
			text:     "[Skip-Triage]",
			expected: true,
		},
		{
			name:     "multiline with trigger in middle",
			text:     "## Description\n\nWork in progress.\n\n[skip triage]\n\n## Changes",
			expected: true,
		},
		{
			name:     "no trigger",
			text:     "fix: update tests",
			expected: false,
		},
		{
			name:     "empty string",
			text:     "",
			expected: false,
		},
		{
			name:     "missing brackets",
			text:     "skip triage",
			expected: false,
		},
		{
			name:     "only opening bracket",
			text:     "[skip triage",
			expected: false,
		},
		{
			name:     "similar but different text",
			text:     "[skip-ci]",
			expected: false,
		},
		{
			name:     "typo in trigger",
			text:     "[skip triag]",
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := skip.ContainsSkipTrigger(tt.text)
			if result != tt.expected {
				t.Errorf("ContainsSkipTrigger(%q) = %v, want %v", tt.text, result, tt.expected)
			}
		})
	}
}

func TestCheck(t *testing.T) {
	tests := []struct {
		name           string
		request        skip.CheckRequest
		expectedSkip   bool
		expectedReason string
	}{
		{
			name: "skip from commit message",
			request: skip.CheckRequest{
				CommitMessages: []string{"feat: add new feature [skip triage]"},
			},
			expectedSkip:   true,
			expectedReason: "commit message",
		},
		{
			name: "skip from later commit message",
			request: skip.CheckRequest{
				CommitMessages: []string{
					"feat: initial work",
					"fix: follow up [skip triage]",
				},
			},
			expectedSkip:   true,
			expectedReason: "commit message",
		},
		{
			name: "skip from description",
			request: skip.CheckRequest{
				Description: "## WIP\n\n[skip triage]\n\nNot ready yet.",
			},
			expectedSkip:   true,
			expectedReason: "description",
		},
		{
			name: "commit message takes precedence",
			request: skip.CheckRequest{
				CommitMessages: []string{"[skip triage]"},
				Description:    "[skip triage]",
			},
			expectedSkip:   true,
			expectedReason: "commit message",
		},
		{
			name: "skip from title",
			request: skip.CheckRequest{
				Title: "WIP: Draft feature [skip-triage]",
			},
			expectedSkip:   true,
			expectedReason: "title",
		},
		{
			name: "no skip",
			request: skip.CheckRequest{
				CommitMessages: []string{"feat: add feature"},
				Description:    "A normal change",
			},
			expectedSkip: false,
		},
		{
			name:         "empty request",
			request:      skip.CheckRequest{},
			expectedSkip: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := skip.Check(tt.request)
			if result.ShouldSkip != tt.expectedSkip {
				t.Errorf("Check() ShouldSkip = %v, want %v", result.ShouldSkip, tt.expectedSkip)
			}
			if result.Reason != tt.expectedReason {
				t.Errorf("Check() Reason = %q, want %q", result.Reason, tt.expectedReason)
			}
		})
	}
}
