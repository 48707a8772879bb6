package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"
)

// Category classifies an issue by the kind of problem it reports.
type Category string

const (
	CategoryBug       Category = "bug"
	CategorySecurity  Category = "security"
	CategoryLint      Category = "lint"
	CategoryType      Category = "type"
	CategoryStub      Category = "stub"
	CategoryDuplicate Category = "duplicate"
	CategoryDeadCode  Category = "dead-code"
	CategoryCoverage  Category = "coverage"
	CategoryLLM       Category = "llm"
)

// Categories returns every known category in a stable order.
// Summaries include every entry even when its count is zero.
func Categories() []Category {
	return []Category{
		CategoryBug,
		CategorySecurity,
		CategoryLint,
		CategoryType,
		CategoryStub,
		CategoryDuplicate,
		CategoryDeadCode,
		CategoryCoverage,
		CategoryLLM,
	}
}

// categoryRank orders categories for prioritization. Correctness and
// security come before style concerns.
var categoryRank = map[Category]int{
	CategorySecurity:  0,
	CategoryBug:       1,
	CategoryType:      2,
	CategoryLLM:       3,
	CategoryStub:      4,
	CategoryDuplicate: 5,
	CategoryDeadCode:  6,
	CategoryCoverage:  7,
	CategoryLint:      8,
}

// Rank returns the priority rank for the category (lower sorts first).
// Unknown categories rank last.
func (c Category) Rank() int {
	if r, ok := categoryRank[c]; ok {
		return r
	}
	return len(categoryRank)
}

// Severity expresses how serious an issue is.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
	SeverityInfo    Severity = "info"
	SeverityHint    Severity = "hint"
)

// Severities returns every known severity from most to least severe.
func Severities() []Severity {
	return []Severity{SeverityError, SeverityWarning, SeverityInfo, SeverityHint}
}

var severityRank = map[Severity]int{
	SeverityError:   0,
	SeverityWarning: 1,
	SeverityInfo:    2,
	SeverityHint:    3,
}

// Rank returns the sort rank for the severity (error first).
// Unknown severities rank last.
func (s Severity) Rank() int {
	if r, ok := severityRank[s]; ok {
		return r
	}
	return len(severityRank)
}

// Status is the lifecycle state of a tracked issue.
type Status string

const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in_progress"
	StatusResolved   Status = "resolved"
	StatusFailed     Status = "failed"
	StatusSkipped    Status = "skipped"
)

// Statuses returns every lifecycle state in progression order.
func Statuses() []Status {
	return []Status{
		StatusPending,
		StatusInProgress,
		StatusResolved,
		StatusFailed,
		StatusSkipped,
	}
}

// validTransitions encodes the issue lifecycle state machine.
// failed -> pending is the explicit retry-reset path.
var validTransitions = map[Status][]Status{
	StatusPending:    {StatusInProgress, StatusSkipped},
	StatusInProgress: {StatusResolved, StatusFailed, StatusSkipped},
	StatusFailed:     {StatusPending},
}

// CanTransition reports whether the lifecycle permits moving from one
// status to another.
func CanTransition(from, to Status) bool {
	for _, next := range validTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Issue represents a single finding in the analyzed source tree.
type Issue struct {
	ID          string                 `json:"id"`
	Category    Category               `json:"category"`
	Severity    Severity               `json:"severity"`
	File        string                 `json:"file"`
	Line        int                    `json:"line"`
	Column      int                    `json:"column,omitempty"`
	EndLine     int                    `json:"endLine,omitempty"`
	EndColumn   int                    `json:"endColumn,omitempty"`
	Message     string                 `json:"message"`
	Description string                 `json:"description,omitempty"`
	Suggestion  string                 `json:"suggestion,omitempty"`
	Snippet     string                 `json:"snippet,omitempty"`
	Metadata    map[string]interface{} `json:"metadata,omitempty"`
	Status      Status                 `json:"status"`
	RetryCount  int                    `json:"retryCount"`
	LastError   string                 `json:"lastError,omitempty"`
	CreatedAt   time.Time              `json:"createdAt"`
	UpdatedAt   time.Time              `json:"updatedAt"`
	ResolvedAt  *time.Time             `json:"resolvedAt,omitempty"`
}

// IssueInput captures the information required to create an Issue.
type IssueInput struct {
	Category    Category
	Severity    Severity
	File        string
	Line        int
	Column      int
	EndLine     int
	EndColumn   int
	Message     string
	Description string
	Suggestion  string
	Snippet     string
	Metadata    map[string]interface{}
}

// NewIssue constructs a pending Issue with a deterministic ID so that
// repeated scans produce the same ID for the same finding.
func NewIssue(input IssueInput, now time.Time) Issue {
	return Issue{
		ID:          hashIssue(input),
		Category:    input.Category,
		Severity:    input.Severity,
		File:        input.File,
		Line:        input.Line,
		Column:      input.Column,
		EndLine:     input.EndLine,
		EndColumn:   input.EndColumn,
		Message:     input.Message,
		Description: input.Description,
		Suggestion:  input.Suggestion,
		Snippet:     input.Snippet,
		Metadata:    input.Metadata,
		Status:      StatusPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// hashIssue derives the issue ID from category, file, line, and a content
// fingerprint of the message.
func hashIssue(input IssueInput) string {
	fingerprint := sha256.Sum256([]byte(input.Message))
	payload := fmt.Sprintf("%s|%s|%d|%s",
		input.Category,
		input.File,
		input.Line,
		hex.EncodeToString(fingerprint[:8]),
	)
	sum := sha256.Sum256([]byte(payload))
	return hex.EncodeToString(sum[:])
}

// DedupKey identifies a finding independently of which analyzer produced
// it. Issues sharing a key are the same finding.
type DedupKey struct {
	File    string
	Line    int
	Message string
}

// Key returns the deduplication key for the issue.
func (i Issue) Key() DedupKey {
	return DedupKey{File: i.File, Line: i.Line, Message: i.Message}
}
