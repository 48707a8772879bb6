package analyzers

import (
	"context"
	"regexp"

	"github.com/braedonsaunders/codetriage/internal/domain"
	"github.com/braedonsaunders/codetriage/internal/usecase/analyze"
)

var (
	floatEqualityRe = regexp.MustCompile(`[=!]=\s*\d+\.\d+|\d+\.\d+\s*[=!]=`)
	// A leading zero on a multi-digit literal is octal in some languages
	// and decimal in others; either way it rarely means what it says.
	octalLiteralRe = regexp.MustCompile(`(?:^|[\s=(,+\-*/])0\d+(?:[\s),;]|$)`)
	numericStringRe = regexp.MustCompile(`[=!]=\s*["']\d+["']|["']\d+["']\s*[=!]=`)
)

// TypeAnalyzer flags numeric-literal usage that hides type mistakes.
type TypeAnalyzer struct {
	reader Reader
}

func NewTypeAnalyzer(reader Reader) *TypeAnalyzer {
	return &TypeAnalyzer{reader: reader}
}

func (a *TypeAnalyzer) Name() string              { return "type" }
func (a *TypeAnalyzer) Category() domain.Category { return domain.CategoryType }

func (a *TypeAnalyzer) Description() string {
	return "flags numeric literal patterns that suggest type confusion"
}

func (a *TypeAnalyzer) Analyze(ctx context.Context, files []string, opts analyze.Options) ([]domain.Issue, error) {
	var issues []domain.Issue
	for _, file := range files {
		if checkCancelled(ctx) {
			return issues, ctx.Err()
		}
		if !isSourceFile(file) || isTestFile(file) {
			continue
		}
		eachLine(a.reader, file, func(lineNo int, line string) {
			switch {
			case floatEqualityRe.MatchString(line):
				issues = append(issues, newIssue(
					domain.CategoryType, domain.SeverityWarning,
					file, lineNo, "exact equality comparison against a floating point literal", line))
			case numericStringRe.MatchString(line):
				issues = append(issues, newIssue(
					domain.CategoryType, domain.SeverityWarning,
					file, lineNo, "comparison between a number and a numeric string literal", line))
			case octalLiteralRe.MatchString(line):
				issues = append(issues, newIssue(
					domain.CategoryType, domain.SeverityInfo,
					file, lineNo, "numeric literal with a leading zero", line))
			}
		})
	}
	return issues, nil
}
