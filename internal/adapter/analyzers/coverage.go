package analyzers

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/braedonsaunders/codetriage/internal/domain"
	"github.com/braedonsaunders/codetriage/internal/usecase/analyze"
)

// CoverageAnalyzer flags source files with no matching test file in the
// analyzed set. It works from file names alone, so it needs no reader.
type CoverageAnalyzer struct{}

func NewCoverageAnalyzer() *CoverageAnalyzer {
	return &CoverageAnalyzer{}
}

func (a *CoverageAnalyzer) Name() string              { return "coverage" }
func (a *CoverageAnalyzer) Category() domain.Category { return domain.CategoryCoverage }

func (a *CoverageAnalyzer) Description() string {
	return "flags source files without a companion test file"
}

func (a *CoverageAnalyzer) Analyze(ctx context.Context, files []string, opts analyze.Options) ([]domain.Issue, error) {
	testStems := map[string]bool{}
	for _, file := range files {
		if isTestFile(file) {
			testStems[testStem(file)] = true
		}
	}

	var issues []domain.Issue
	for _, file := range files {
		if checkCancelled(ctx) {
			return issues, ctx.Err()
		}
		if !isSourceFile(file) || isTestFile(file) {
			continue
		}
		stem := strings.TrimSuffix(filepath.Base(file), filepath.Ext(file))
		if testStems[strings.ToLower(stem)] {
			continue
		}
		issues = append(issues, newIssue(
			domain.CategoryCoverage, domain.SeverityInfo,
			file, 1,
			fmt.Sprintf("no test file found for %s", filepath.Base(file)), ""))
	}
	return issues, nil
}

// testStem maps a test file name back to the stem of the source file it
// covers: foo_test.go -> foo, foo.spec.ts -> foo, test_foo.py -> foo.
func testStem(path string) string {
	base := strings.ToLower(filepath.Base(path))
	base = strings.TrimSuffix(base, filepath.Ext(base))
	base = strings.TrimSuffix(base, "_test")
	base = strings.TrimSuffix(base, ".test")
	base = strings.TrimSuffix(base, ".spec")
	base = strings.TrimPrefix(base, "test_")
	return base
}
