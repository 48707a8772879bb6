package analyzers

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/braedonsaunders/codetriage/internal/domain"
	"github.com/braedonsaunders/codetriage/internal/usecase/analyze"
)

// declarationRes match function declarations across the supported
// languages. Group 1 is the symbol name.
var declarationRes = []*regexp.Regexp{
	regexp.MustCompile(`^\s*func\s+(\w+)\s*\(`),
	regexp.MustCompile(`^\s*(?:export\s+)?function\s+(\w+)\s*\(`),
	regexp.MustCompile(`^\s*def\s+(\w+)\s*\(`),
	regexp.MustCompile(`^\s*(?:pub\s+)?fn\s+(\w+)\s*\(`),
}

// neverDead are entry points and hooks invoked by runtimes, not code.
var neverDead = map[string]bool{
	"main": true,
	"init": true,
}

// DeadCodeAnalyzer flags functions declared but never referenced
// anywhere else in the analyzed file set. It is a heuristic: symbols
// reachable from outside the set (exported APIs) produce false
// positives, so findings stay at info severity.
type DeadCodeAnalyzer struct {
	reader Reader
}

func NewDeadCodeAnalyzer(reader Reader) *DeadCodeAnalyzer {
	return &DeadCodeAnalyzer{reader: reader}
}

func (a *DeadCodeAnalyzer) Name() string              { return "dead-code" }
func (a *DeadCodeAnalyzer) Category() domain.Category { return domain.CategoryDeadCode }

func (a *DeadCodeAnalyzer) Description() string {
	return "finds functions that nothing in the analyzed set references"
}

type declaration struct {
	file string
	line int
}

func (a *DeadCodeAnalyzer) Analyze(ctx context.Context, files []string, opts analyze.Options) ([]domain.Issue, error) {
	declarations := map[string]declaration{}

	// First pass collects every declared symbol.
	for _, file := range files {
		if checkCancelled(ctx) {
			return nil, ctx.Err()
		}
		if !isSourceFile(file) {
			continue
		}
		eachLine(a.reader, file, func(lineNo int, line string) {
			name := declaredName(line)
			if name == "" || neverDead[name] || strings.HasPrefix(name, "Test") {
				return
			}
			if _, exists := declarations[name]; !exists {
				declarations[name] = declaration{file: file, line: lineNo}
			}
		})
	}

	// Second pass counts references across the whole set. A symbol used
	// anywhere beyond its own declaration line is live.
	references := map[string]int{}
	for _, file := range files {
		if checkCancelled(ctx) {
			return nil, ctx.Err()
		}
		if !isSourceFile(file) {
			continue
		}
		content, err := a.reader.ReadFile(file)
		if err != nil {
			continue
		}
		for name, decl := range declarations {
			count := strings.Count(content, name)
			if decl.file == file {
				count--
			}
			if count > 0 {
				references[name] += count
			}
		}
	}

	var names []string
	for name := range declarations {
		if references[name] == 0 {
			names = append(names, name)
		}
	}
	sort.Strings(names)

	var issues []domain.Issue
	for _, name := range names {
		decl := declarations[name]
		issues = append(issues, newIssue(
			domain.CategoryDeadCode, domain.SeverityInfo,
			decl.file, decl.line,
			fmt.Sprintf("function %s is never referenced", name), ""))
	}
	return issues, nil
}

func declaredName(line string) string {
	for _, re := range declarationRes {
		if m := re.FindStringSubmatch(line); m != nil {
			return m[1]
		}
	}
	return ""
}
