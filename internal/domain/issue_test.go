package domain_test

import (
	"testing"
	"time"

	"github.com/braedonsaunders/codetriage/internal/domain"
	"github.com/stretchr/testify/assert"
)

func TestNewIssue_DeterministicID(t *testing.T) {
	// Given
	now := time.Now()
	input := domain.IssueInput{
		Category: domain.CategorySecurity,
		Severity: domain.SeverityError,
		File:     "internal/server/auth.go",
		Line:     42,
		Message:  "hardcoded credential",
	}

	// When
	first := domain.NewIssue(input, now)
	second := domain.NewIssue(input, now.Add(time.Hour))

	// Then
	assert.Equal(t, first.ID, second.ID, "same finding must produce the same ID across scans")
	assert.Equal(t, domain.StatusPending, first.Status)
	assert.Equal(t, 0, first.RetryCount)
}

func TestNewIssue_IDChangesWithContent(t *testing.T) {
	now := time.Now()
	base := domain.IssueInput{
		Category: domain.CategoryBug,
		File:     "main.go",
		Line:     10,
		Message:  "nil dereference",
	}

	differentLine := base
	differentLine.Line = 11

	differentMessage := base
	differentMessage.Message = "index out of range"

	differentCategory := base
	differentCategory.Category = domain.CategoryLint

	issue := domain.NewIssue(base, now)
	assert.NotEqual(t, issue.ID, domain.NewIssue(differentLine, now).ID)
	assert.NotEqual(t, issue.ID, domain.NewIssue(differentMessage, now).ID)
	assert.NotEqual(t, issue.ID, domain.NewIssue(differentCategory, now).ID)
}

func TestIssue_Key(t *testing.T) {
	now := time.Now()
	a := domain.NewIssue(domain.IssueInput{
		Category: domain.CategorySecurity,
		File:     "a.go",
		Line:     5,
		Message:  "hardcoded credential",
	}, now)
	b := domain.NewIssue(domain.IssueInput{
		Category: domain.CategoryBug, // different analyzer, same finding
		File:     "a.go",
		Line:     5,
		Message:  "hardcoded credential",
	}, now)

	assert.Equal(t, a.Key(), b.Key(), "dedup key ignores category")
}

func TestSeverity_Rank_TotalOrder(t *testing.T) {
	assert.Less(t, domain.SeverityError.Rank(), domain.SeverityWarning.Rank())
	assert.Less(t, domain.SeverityWarning.Rank(), domain.SeverityInfo.Rank())
	assert.Less(t, domain.SeverityInfo.Rank(), domain.SeverityHint.Rank())
	assert.Greater(t, domain.Severity("bogus").Rank(), domain.SeverityHint.Rank())
}

func TestCategory_Rank_FavorsCorrectness(t *testing.T) {
	assert.Less(t, domain.CategorySecurity.Rank(), domain.CategoryLint.Rank())
	assert.Less(t, domain.CategoryBug.Rank(), domain.CategoryCoverage.Rank())
	assert.Greater(t, domain.Category("bogus").Rank(), domain.CategoryLint.Rank())
}

func TestCanTransition(t *testing.T) {
	tests := []struct {
		name string
		from domain.Status
		to   domain.Status
		want bool
	}{
		{"pending to in_progress", domain.StatusPending, domain.StatusInProgress, true},
		{"pending to skipped", domain.StatusPending, domain.StatusSkipped, true},
		{"in_progress to resolved", domain.StatusInProgress, domain.StatusResolved, true},
		{"in_progress to failed", domain.StatusInProgress, domain.StatusFailed, true},
		{"failed to pending (retry reset)", domain.StatusFailed, domain.StatusPending, true},
		{"pending to resolved", domain.StatusPending, domain.StatusResolved, false},
		{"resolved to pending", domain.StatusResolved, domain.StatusPending, false},
		{"failed to resolved", domain.StatusFailed, domain.StatusResolved, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, domain.CanTransition(tt.from, tt.to))
		})
	}
}
