package domain_test

import (
	"testing"
	"time"

	"github.com/braedonsaunders/codetriage/internal/domain"
	"github.com/stretchr/testify/assert"
)

func TestNewSummary_AllKeysPresent(t *testing.T) {
	// Given an empty issue list
	summary := domain.NewSummary(nil)

	// Then every enumerated key exists at zero
	assert.Equal(t, 0, summary.Total)
	assert.Len(t, summary.ByCategory, len(domain.Categories()))
	assert.Len(t, summary.BySeverity, len(domain.Severities()))
	for _, category := range domain.Categories() {
		count, ok := summary.ByCategory[category]
		assert.True(t, ok, "missing category key %q", category)
		assert.Equal(t, 0, count)
	}
	for _, severity := range domain.Severities() {
		count, ok := summary.BySeverity[severity]
		assert.True(t, ok, "missing severity key %q", severity)
		assert.Equal(t, 0, count)
	}
}

func TestNewSummary_Counts(t *testing.T) {
	now := time.Now()
	issues := []domain.Issue{
		domain.NewIssue(domain.IssueInput{Category: domain.CategorySecurity, Severity: domain.SeverityError, File: "a.go", Line: 1, Message: "secret"}, now),
		domain.NewIssue(domain.IssueInput{Category: domain.CategorySecurity, Severity: domain.SeverityError, File: "b.go", Line: 2, Message: "secret"}, now),
		domain.NewIssue(domain.IssueInput{Category: domain.CategoryStub, Severity: domain.SeverityWarning, File: "a.go", Line: 9, Message: "todo"}, now),
	}

	summary := domain.NewSummary(issues)

	assert.Equal(t, 3, summary.Total)
	assert.Equal(t, 2, summary.ByCategory[domain.CategorySecurity])
	assert.Equal(t, 1, summary.ByCategory[domain.CategoryStub])
	assert.Equal(t, 2, summary.BySeverity[domain.SeverityError])
	assert.Equal(t, 1, summary.BySeverity[domain.SeverityWarning])
}

func TestVerificationReport_AllPassed(t *testing.T) {
	pass := &domain.CheckResult{Passed: true}
	fail := &domain.CheckResult{Passed: false, Errors: 2}

	assert.True(t, domain.VerificationReport{}.AllPassed(), "no enabled checks counts as passing")
	assert.True(t, domain.VerificationReport{Lint: pass, Build: pass}.AllPassed())
	assert.False(t, domain.VerificationReport{Lint: pass, Tests: fail}.AllPassed())
}
