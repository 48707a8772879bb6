package agent

import (
	"encoding/json"
	"regexp"
	"strings"
	"time"

	"github.com/braedonsaunders/codetriage/internal/domain"
)

// codeBlockPattern matches markdown code blocks (with optional json language tag)
var codeBlockPattern = regexp.MustCompile("(?s)```(?:json)?\\s*\\n?(.+?)\\n?```")

// jsonPayloadPattern matches a bare JSON object or array
var jsonPayloadPattern = regexp.MustCompile(`(?s)[\{\[].+[\}\]]`)

// extractJSON finds and extracts JSON from text, handling code blocks.
func extractJSON(text string) string {
	// Try to find JSON in code blocks first
	if matches := codeBlockPattern.FindStringSubmatch(text); len(matches) >= 2 {
		candidate := strings.TrimSpace(matches[1])
		if isValidJSON(candidate) {
			return candidate
		}
	}

	// Try to find a bare JSON payload
	if match := jsonPayloadPattern.FindString(text); match != "" {
		if isValidJSON(match) {
			return match
		}
	}

	return ""
}

// isValidJSON checks if a string is valid JSON.
func isValidJSON(s string) bool {
	var js json.RawMessage
	return json.Unmarshal([]byte(s), &js) == nil
}

// rawIssue is the wire shape the backend uses to report an issue.
type rawIssue struct {
	Category    string `json:"category"`
	Severity    string `json:"severity"`
	File        string `json:"file"`
	Line        int    `json:"line"`
	Column      int    `json:"column"`
	EndLine     int    `json:"endLine"`
	EndColumn   int    `json:"endColumn"`
	Message     string `json:"message"`
	Description string `json:"description"`
	Suggestion  string `json:"suggestion"`
	Snippet     string `json:"snippet"`
}

// issueEnvelope handles responses that wrap the list in an object.
type issueEnvelope struct {
	Issues []rawIssue `json:"issues"`
}

// parseIssues extracts structured issues from free-text backend output.
// Accepts a bare array, an {"issues": [...]} envelope, or a single object.
// Unparseable content yields zero issues, never an error.
func parseIssues(text string, source string, now time.Time) []domain.Issue {
	payload := extractJSON(text)
	if payload == "" {
		return nil
	}

	var raws []rawIssue
	switch {
	case strings.HasPrefix(payload, "["):
		if err := json.Unmarshal([]byte(payload), &raws); err != nil {
			return nil
		}
	default:
		var envelope issueEnvelope
		if err := json.Unmarshal([]byte(payload), &envelope); err == nil && len(envelope.Issues) > 0 {
			raws = envelope.Issues
			break
		}
		var single rawIssue
		if err := json.Unmarshal([]byte(payload), &single); err == nil && single.Message != "" {
			raws = []rawIssue{single}
		}
	}

	issues := make([]domain.Issue, 0, len(raws))
	for _, raw := range raws {
		if raw.Message == "" || raw.File == "" {
			continue
		}
		issues = append(issues, issueFromRaw(raw, source, now))
	}
	return issues
}

// issueFromRaw normalizes a wire issue into a domain issue.
func issueFromRaw(raw rawIssue, source string, now time.Time) domain.Issue {
	metadata := map[string]interface{}{"source": source}
	if raw.Category != "" {
		metadata["rawCategory"] = raw.Category
	}
	if raw.Severity != "" {
		metadata["rawSeverity"] = raw.Severity
	}

	return domain.NewIssue(domain.IssueInput{
		Category:    domain.MapCategory(raw.Category),
		Severity:    domain.MapSeverity(raw.Severity),
		File:        raw.File,
		Line:        raw.Line,
		Column:      raw.Column,
		EndLine:     raw.EndLine,
		EndColumn:   raw.EndColumn,
		Message:     raw.Message,
		Description: raw.Description,
		Suggestion:  raw.Suggestion,
		Snippet:     raw.Snippet,
		Metadata:    metadata,
	}, now)
}

// issueFromParams maps create_issue tool-call parameters to a domain issue.
func issueFromParams(params map[string]interface{}, source string, now time.Time) (domain.Issue, bool) {
	raw := rawIssue{
		Category:    paramString(params, "category"),
		Severity:    paramString(params, "severity"),
		File:        paramString(params, "file"),
		Line:        paramInt(params, "line"),
		Column:      paramInt(params, "column"),
		EndLine:     paramInt(params, "endLine"),
		EndColumn:   paramInt(params, "endColumn"),
		Message:     paramString(params, "message"),
		Description: paramString(params, "description"),
		Suggestion:  paramString(params, "suggestion"),
		Snippet:     paramString(params, "snippet"),
	}
	if raw.Message == "" || raw.File == "" {
		return domain.Issue{}, false
	}
	return issueFromRaw(raw, source, now), true
}

func paramString(params map[string]interface{}, key string) string {
	if s, ok := params[key].(string); ok {
		return s
	}
	return ""
}

func paramInt(params map[string]interface{}, key string) int {
	switch v := params[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	case json.Number:
		n, err := v.Int64()
		if err == nil {
			return int(n)
		}
	}
	return 0
}
