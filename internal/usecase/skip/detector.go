// Package skip provides skip trigger detection for analysis runs.
// It allows users to bypass analysis in CI by including specific
// patterns in commit messages or change descriptions.
package skip

import (
	"regexp"
	"strings"
)

// skipTriggerPattern matches [skip triage] or [skip-triage] (case-insensitive).
var skipTriggerPattern = regexp.MustCompile(`(?i)\[skip[ -]triage\]`)

// ContainsSkipTrigger checks if text contains a skip trigger pattern.
// Supported patterns:
//   - [skip triage]
//   - [skip-triage]
//
// Matching is case-insensitive.
func ContainsSkipTrigger(text string) bool {
	return skipTriggerPattern.MatchString(text)
}

// CheckRequest contains the inputs to check for skip triggers.
type CheckRequest struct {
	CommitMessages []string // Commit messages to inspect (optional)
	Title          string   // Change title (optional)
	Description    string   // Change description/body (optional)
}

// CheckResult contains the result of checking for skip triggers.
type CheckResult struct {
	ShouldSkip bool   // True if a skip trigger was found
	Reason     string // Source where the trigger was found
}

// Check examines commit messages and change metadata for skip triggers.
// It checks in order: commit messages, title, description, and returns
// the first match found.
func Check(req CheckRequest) CheckResult {
	for _, msg := range req.CommitMessages {
		if ContainsSkipTrigger(msg) {
			return CheckResult{ShouldSkip: true, Reason: "commit message"}
		}
	}

	if ContainsSkipTrigger(strings.TrimSpace(req.Title)) {
		return CheckResult{ShouldSkip: true, Reason: "title"}
	}

	if ContainsSkipTrigger(req.Description) {
		return CheckResult{ShouldSkip: true, Reason: "description"}
	}

	return CheckResult{}
}
