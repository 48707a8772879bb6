package analyzers

import (
	"context"
	"fmt"
	"strings"

	"github.com/braedonsaunders/codetriage/internal/domain"
	"github.com/braedonsaunders/codetriage/internal/usecase/analyze"
)

// maxLineLength is generous on purpose; the point is flagging lines no
// reviewer can read, not enforcing a house style.
const maxLineLength = 160

// LintAnalyzer flags basic style problems.
type LintAnalyzer struct {
	reader Reader
}

func NewLintAnalyzer(reader Reader) *LintAnalyzer {
	return &LintAnalyzer{reader: reader}
}

func (a *LintAnalyzer) Name() string              { return "lint" }
func (a *LintAnalyzer) Category() domain.Category { return domain.CategoryLint }

func (a *LintAnalyzer) Description() string {
	return "flags overlong lines, trailing whitespace, and mixed indentation"
}

func (a *LintAnalyzer) Analyze(ctx context.Context, files []string, opts analyze.Options) ([]domain.Issue, error) {
	var issues []domain.Issue
	for _, file := range files {
		if checkCancelled(ctx) {
			return issues, ctx.Err()
		}
		if !isSourceFile(file) {
			continue
		}
		eachLine(a.reader, file, func(lineNo int, line string) {
			switch {
			case len(line) > maxLineLength:
				issues = append(issues, newIssue(
					domain.CategoryLint, domain.SeverityHint,
					file, lineNo,
					fmt.Sprintf("line exceeds %d characters", maxLineLength), ""))
			case strings.HasPrefix(line, " \t") || strings.HasPrefix(line, "\t "):
				issues = append(issues, newIssue(
					domain.CategoryLint, domain.SeverityHint,
					file, lineNo, "mixed tab and space indentation", ""))
			case line != "" && strings.TrimRight(line, " \t") != line:
				issues = append(issues, newIssue(
					domain.CategoryLint, domain.SeverityHint,
					file, lineNo, "trailing whitespace", ""))
			}
		})
	}
	return issues, nil
}
