package analyzers

import (
	"context"
	"regexp"

	"github.com/braedonsaunders/codetriage/internal/domain"
	"github.com/braedonsaunders/codetriage/internal/usecase/analyze"
)

// suspiciousPatterns catch constructs that are almost always mistakes.
var suspiciousPatterns = []struct {
	re       *regexp.Regexp
	severity domain.Severity
	message  string
}{
	{
		regexp.MustCompile(`\bif\s*\(?\s*\w+(\.\w+)*\s=\s[^=]`),
		domain.SeverityError,
		"assignment inside a condition, likely a missing equals sign",
	},
	{
		regexp.MustCompile(`==\s*NaN|NaN\s*==`),
		domain.SeverityError,
		"direct comparison with NaN is always false",
	},
	{
		regexp.MustCompile(`catch\s*\([^)]*\)\s*\{\s*\}`),
		domain.SeverityWarning,
		"empty catch block swallows errors silently",
	},
	{
		regexp.MustCompile(`/\s*0(?:[^.\d]|$)`),
		domain.SeverityWarning,
		"division by a zero literal",
	},
	{
		regexp.MustCompile(`(?i)\bsleep\s*\(\s*\d+\s*\)\s*(//|#).*(race|flak|timing)`),
		domain.SeverityWarning,
		"sleep used to paper over a timing problem",
	},
}

// BugAnalyzer scans for suspicious constructs.
type BugAnalyzer struct {
	reader Reader
}

func NewBugAnalyzer(reader Reader) *BugAnalyzer {
	return &BugAnalyzer{reader: reader}
}

func (a *BugAnalyzer) Name() string              { return "bug" }
func (a *BugAnalyzer) Category() domain.Category { return domain.CategoryBug }

func (a *BugAnalyzer) Description() string {
	return "flags suspicious constructs that usually indicate defects"
}

func (a *BugAnalyzer) Analyze(ctx context.Context, files []string, opts analyze.Options) ([]domain.Issue, error) {
	var issues []domain.Issue
	for _, file := range files {
		if checkCancelled(ctx) {
			return issues, ctx.Err()
		}
		if !isSourceFile(file) || isTestFile(file) {
			continue
		}
		eachLine(a.reader, file, func(lineNo int, line string) {
			for _, pattern := range suspiciousPatterns {
				if pattern.re.MatchString(line) {
					issues = append(issues, newIssue(
						domain.CategoryBug, pattern.severity,
						file, lineNo, pattern.message, line))
					return
				}
			}
		})
	}
	return issues, nil
}
