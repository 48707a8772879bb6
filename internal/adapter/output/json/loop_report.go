package json

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/braedonsaunders/codetriage/internal/domain"
)

// LoopReport captures the full fix/verify loop outcome for transparency.
type LoopReport struct {
	GeneratedAt string          `json:"generated_at"`
	Repository  string          `json:"repository"`
	Iterations  int             `json:"iterations"`
	Clean       bool            `json:"clean"`
	Summary     string          `json:"summary"`
	Total       int             `json:"total_count"`
	Resolved    int             `json:"resolved_count"`
	Failed      int             `json:"failed_count"`
	Issues      []LoopIssueInfo `json:"issues"`
}

// LoopIssueInfo captures the loop outcome for a single issue.
type LoopIssueInfo struct {
	ID       string `json:"id"`
	File     string `json:"file"`
	Line     int    `json:"line"`
	Severity string `json:"severity"`
	Category string `json:"category"`
	Message  string `json:"message"`

	Status    string `json:"status"`
	Retries   int    `json:"retries,omitempty"`
	LastError string `json:"last_error,omitempty"`
}

// WriteLoopReport writes a detailed fix/verify loop report to JSON.
func WriteLoopReport(outputDir, repository string, result domain.AnalysisLoopResult) (string, error) {
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return "", fmt.Errorf("creating output directory: %w", err)
	}

	issues := make([]LoopIssueInfo, 0, len(result.AllIssues))
	for _, issue := range result.AllIssues {
		issues = append(issues, LoopIssueInfo{
			ID:        issue.ID,
			File:      issue.File,
			Line:      issue.Line,
			Severity:  string(issue.Severity),
			Category:  string(issue.Category),
			Message:   issue.Message,
			Status:    string(issue.Status),
			Retries:   issue.RetryCount,
			LastError: issue.LastError,
		})
	}

	report := LoopReport{
		GeneratedAt: time.Now().UTC().Format(time.RFC3339),
		Repository:  repository,
		Iterations:  result.Iterations,
		Clean:       result.IsClean,
		Summary:     result.Summary,
		Total:       len(result.AllIssues),
		Resolved:    len(result.ResolvedIssues),
		Failed:      len(result.FailedIssues),
		Issues:      issues,
	}

	filename := fmt.Sprintf("%s_loop_report.json", sanitizeFilename(repository))
	path := filepath.Join(outputDir, filename)

	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshaling report: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("writing report: %w", err)
	}

	return path, nil
}
