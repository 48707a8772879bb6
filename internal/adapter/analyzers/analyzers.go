// Package analyzers provides the static fallback roster: language
// agnostic heuristics that run when no reasoning backend is available.
// Each analyzer implements the analyze.Analyzer contract and reports
// one issue category.
package analyzers

import (
	"context"
	"path/filepath"
	"strings"
	"time"

	"github.com/braedonsaunders/codetriage/internal/domain"
	"github.com/braedonsaunders/codetriage/internal/usecase/analyze"
)

// Reader provides file contents by root-relative path.
type Reader interface {
	ReadFile(path string) (string, error)
}

// Version stamped into every roster manifest.
const Version = "1.0.0"

// Register adds the full static roster to the registry.
func Register(registry *analyze.Registry, reader Reader) error {
	roster := []analyze.Analyzer{
		NewSecurityAnalyzer(reader),
		NewStubAnalyzer(reader),
		NewBugAnalyzer(reader),
		NewTypeAnalyzer(reader),
		NewDuplicateAnalyzer(reader),
		NewDeadCodeAnalyzer(reader),
		NewCoverageAnalyzer(),
		NewLintAnalyzer(reader),
	}
	for _, analyzer := range roster {
		manifest := analyze.Manifest{
			Name:        analyzer.Name(),
			Version:     Version,
			Description: analyzer.Description(),
		}
		if err := registry.Register(manifest, analyzer); err != nil {
			return err
		}
	}
	return nil
}

// NewRoster builds a registry pre-populated with the static roster.
func NewRoster(reader Reader) (*analyze.Registry, error) {
	registry := analyze.NewRegistry()
	if err := Register(registry, reader); err != nil {
		return nil, err
	}
	return registry, nil
}

// sourceExtensions are the file types the heuristics understand well
// enough to scan. Everything else is skipped.
var sourceExtensions = map[string]bool{
	".go":    true,
	".js":    true,
	".jsx":   true,
	".ts":    true,
	".tsx":   true,
	".py":    true,
	".rb":    true,
	".java":  true,
	".c":     true,
	".h":     true,
	".cpp":   true,
	".cs":    true,
	".rs":    true,
	".swift": true,
	".kt":    true,
	".php":   true,
	".sh":    true,
}

func isSourceFile(path string) bool {
	return sourceExtensions[strings.ToLower(filepath.Ext(path))]
}

func isTestFile(path string) bool {
	base := strings.ToLower(filepath.Base(path))
	return strings.HasSuffix(base, "_test.go") ||
		strings.Contains(base, ".test.") ||
		strings.Contains(base, ".spec.") ||
		strings.HasPrefix(base, "test_")
}

// eachLine reads a file and yields 1-based line numbers. Read failures
// are silently skipped; a missing file is no finding.
func eachLine(reader Reader, path string, fn func(lineNo int, line string)) {
	content, err := reader.ReadFile(path)
	if err != nil {
		return
	}
	for i, line := range strings.Split(content, "\n") {
		fn(i+1, line)
	}
}

func newIssue(category domain.Category, severity domain.Severity, file string, line int, message, snippet string) domain.Issue {
	return domain.NewIssue(domain.IssueInput{
		Category: category,
		Severity: severity,
		File:     file,
		Line:     line,
		Message:  message,
		Snippet:  strings.TrimSpace(snippet),
	}, time.Now())
}

// checkCancelled lets long file loops bail out early.
func checkCancelled(ctx context.Context) bool {
	select {
	case <-ctx.Done():
		return true
	default:
		return false
	}
}
