package analyzers

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/braedonsaunders/codetriage/internal/domain"
	"github.com/braedonsaunders/codetriage/internal/usecase/analyze"
)

// duplicateWindow is how many consecutive substantive lines must match
// before two regions count as duplicated.
const duplicateWindow = 6

// DuplicateAnalyzer finds repeated blocks of code across the file set.
type DuplicateAnalyzer struct {
	reader Reader
}

func NewDuplicateAnalyzer(reader Reader) *DuplicateAnalyzer {
	return &DuplicateAnalyzer{reader: reader}
}

func (a *DuplicateAnalyzer) Name() string              { return "duplicate" }
func (a *DuplicateAnalyzer) Category() domain.Category { return domain.CategoryDuplicate }

func (a *DuplicateAnalyzer) Description() string {
	return "detects blocks of code duplicated across files"
}

type blockLocation struct {
	file string
	line int
}

func (a *DuplicateAnalyzer) Analyze(ctx context.Context, files []string, opts analyze.Options) ([]domain.Issue, error) {
	firstSeen := map[string]blockLocation{}
	reported := map[string]bool{}
	var issues []domain.Issue

	for _, file := range files {
		if checkCancelled(ctx) {
			return issues, ctx.Err()
		}
		if !isSourceFile(file) || isTestFile(file) {
			continue
		}
		content, err := a.reader.ReadFile(file)
		if err != nil {
			continue
		}

		lines, lineNos := substantiveLines(content)
		for i := 0; i+duplicateWindow <= len(lines); i++ {
			hash := hashBlock(lines[i : i+duplicateWindow])
			origin, seen := firstSeen[hash]
			if !seen {
				firstSeen[hash] = blockLocation{file: file, line: lineNos[i]}
				continue
			}
			// Adjacent windows of the same clone hash differently, but
			// overlapping reports at consecutive lines are noise.
			if origin.file == file {
				continue
			}
			key := file + "\x00" + hash
			if reported[key] {
				continue
			}
			reported[key] = true
			issues = append(issues, newIssue(
				domain.CategoryDuplicate, domain.SeverityInfo,
				file, lineNos[i],
				fmt.Sprintf("block of %d lines duplicated from %s:%d", duplicateWindow, origin.file, origin.line),
				strings.Join(lines[i:i+duplicateWindow], "\n")))
			i += duplicateWindow - 1
		}
	}
	return issues, nil
}

// substantiveLines strips blanks and comment-only lines, keeping the
// original line numbers alongside the normalized text.
func substantiveLines(content string) ([]string, []int) {
	var lines []string
	var lineNos []int
	for i, raw := range strings.Split(content, "\n") {
		line := strings.TrimSpace(raw)
		if line == "" || isCommentLine(line) {
			continue
		}
		lines = append(lines, line)
		lineNos = append(lineNos, i+1)
	}
	return lines, lineNos
}

func isCommentLine(line string) bool {
	return strings.HasPrefix(line, "//") ||
		strings.HasPrefix(line, "#") ||
		strings.HasPrefix(line, "*") ||
		strings.HasPrefix(line, "/*")
}

func hashBlock(lines []string) string {
	sum := sha256.Sum256([]byte(strings.Join(lines, "\n")))
	return hex.EncodeToString(sum[:16])
}
