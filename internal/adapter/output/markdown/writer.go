package markdown

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/braedonsaunders/codetriage/internal/domain"
)

type clock func() string

// Writer renders analysis results into Markdown files.
type Writer struct {
	now clock
}

// NewWriter constructs a Markdown writer with a timestamp supplier.
func NewWriter(now clock) *Writer {
	return &Writer{now: now}
}

// Artifact encapsulates the report generation inputs.
type Artifact struct {
	OutputDir  string
	Repository string
	Result     domain.AnalysisResult
}

// Write persists a Markdown report to disk.
func (w *Writer) Write(ctx context.Context, artifact Artifact) (string, error) {
	if err := os.MkdirAll(artifact.OutputDir, 0o755); err != nil {
		return "", fmt.Errorf("create output dir: %w", err)
	}

	filename := fmt.Sprintf("%s_analysis_%s.md",
		sanitise(artifact.Repository),
		w.now(),
	)
	path := filepath.Join(artifact.OutputDir, filename)

	content := buildContent(artifact)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return "", fmt.Errorf("write markdown: %w", err)
	}

	return path, nil
}

func buildContent(artifact Artifact) string {
	var builder strings.Builder
	caser := cases.Title(language.English)
	result := artifact.Result

	builder.WriteString("# Code Analysis Report\n\n")
	builder.WriteString(fmt.Sprintf("- Repository: %s\n", artifact.Repository))
	builder.WriteString(fmt.Sprintf("- Analyzers: %s\n", strings.Join(result.AnalyzersRun, ", ")))
	builder.WriteString(fmt.Sprintf("- Duration: %s\n", result.Duration.Round(time.Millisecond)))
	builder.WriteString(fmt.Sprintf("- Total issues: %d\n\n", result.Summary.Total))

	builder.WriteString("## Summary\n\n")
	builder.WriteString("| Severity | Count |\n|---|---|\n")
	for _, severity := range domain.Severities() {
		builder.WriteString(fmt.Sprintf("| %s | %d |\n", caser.String(string(severity)), result.Summary.BySeverity[severity]))
	}
	builder.WriteString("\n| Category | Count |\n|---|---|\n")
	for _, category := range domain.Categories() {
		if count := result.Summary.ByCategory[category]; count > 0 {
			builder.WriteString(fmt.Sprintf("| %s | %d |\n", category, count))
		}
	}
	builder.WriteString("\n")

	if len(result.Issues) == 0 {
		builder.WriteString("No issues found.\n")
		return builder.String()
	}

	builder.WriteString("## Issues\n\n")
	for _, issue := range result.Issues {
		builder.WriteString(fmt.Sprintf("### %s (%s)\n", issue.Message, caser.String(string(issue.Severity))))
		builder.WriteString(fmt.Sprintf("- File: %s:%d\n", issue.File, issue.Line))
		builder.WriteString(fmt.Sprintf("- Category: %s\n", issue.Category))
		if issue.Description != "" {
			builder.WriteString(fmt.Sprintf("- Details: %s\n", issue.Description))
		}
		if issue.Suggestion != "" {
			builder.WriteString(fmt.Sprintf("- Suggestion: %s\n", issue.Suggestion))
		}
		if issue.Snippet != "" {
			builder.WriteString(fmt.Sprintf("\n```\n%s\n```\n", issue.Snippet))
		}
		builder.WriteString("\n")
	}

	return builder.String()
}

func sanitise(value string) string {
	if value == "" {
		return "unknown"
	}
	value = strings.ToLower(value)
	value = strings.ReplaceAll(value, string(filepath.Separator), "-")
	value = strings.ReplaceAll(value, " ", "-")
	return value
}
