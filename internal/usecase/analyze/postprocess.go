package analyze

import (
	"sort"

	"github.com/braedonsaunders/codetriage/internal/domain"
)

// Dedupe removes issues sharing a (file, line, message) key, keeping the
// first occurrence. It is idempotent.
func Dedupe(issues []domain.Issue) []domain.Issue {
	seen := make(map[domain.DedupKey]bool, len(issues))
	out := make([]domain.Issue, 0, len(issues))
	for _, issue := range issues {
		key := issue.Key()
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, issue)
	}
	return out
}

// Sort orders issues by severity rank, then file, then line. The sort
// is stable so equal issues keep their input order.
func Sort(issues []domain.Issue) []domain.Issue {
	out := make([]domain.Issue, len(issues))
	copy(out, issues)
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Severity.Rank() != b.Severity.Rank() {
			return a.Severity.Rank() < b.Severity.Rank()
		}
		if a.File != b.File {
			return a.File < b.File
		}
		return a.Line < b.Line
	})
	return out
}

// Cap truncates the list to max issues. A non-positive max means no
// limit. Run after Sort so the highest-severity issues survive.
func Cap(issues []domain.Issue, max int) []domain.Issue {
	if max <= 0 || len(issues) <= max {
		return issues
	}
	return issues[:max]
}
