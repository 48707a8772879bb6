package analyzers

import (
	"context"
	"fmt"
	"regexp"

	"github.com/braedonsaunders/codetriage/internal/domain"
	"github.com/braedonsaunders/codetriage/internal/usecase/analyze"
)

var stubMarkerRe = regexp.MustCompile(`(?:^|\W)(TODO|FIXME|HACK|XXX)\b`)

// StubAnalyzer flags TODO/FIXME style markers left in source.
type StubAnalyzer struct {
	reader Reader
}

func NewStubAnalyzer(reader Reader) *StubAnalyzer {
	return &StubAnalyzer{reader: reader}
}

func (a *StubAnalyzer) Name() string              { return "stub" }
func (a *StubAnalyzer) Category() domain.Category { return domain.CategoryStub }

func (a *StubAnalyzer) Description() string {
	return "finds TODO, FIXME, and similar unfinished-work markers"
}

func (a *StubAnalyzer) Analyze(ctx context.Context, files []string, opts analyze.Options) ([]domain.Issue, error) {
	var issues []domain.Issue
	for _, file := range files {
		if checkCancelled(ctx) {
			return issues, ctx.Err()
		}
		if !isSourceFile(file) {
			continue
		}
		eachLine(a.reader, file, func(lineNo int, line string) {
			if m := stubMarkerRe.FindStringSubmatch(line); m != nil {
				issues = append(issues, newIssue(
					domain.CategoryStub, domain.SeverityWarning,
					file, lineNo,
					fmt.Sprintf("%s marker left in code", m[1]), line))
			}
		})
	}
	return issues, nil
}
