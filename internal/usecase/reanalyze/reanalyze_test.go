package reanalyze_test

import (
	"context"
	"errors"
	"strconv"
	"testing"
	"time"

	"github.com/braedonsaunders/codetriage/internal/domain"
	"github.com/braedonsaunders/codetriage/internal/usecase/reanalyze"
)

type mockChecker struct {
	name    string
	enabled bool
	result  domain.CheckResult
	err     error
}

func (m *mockChecker) Name() string  { return m.name }
func (m *mockChecker) Enabled() bool { return m.enabled }

func (m *mockChecker) Run(ctx context.Context, target string) (domain.CheckResult, error) {
	return m.result, m.err
}

type mockJudge struct {
	response string
	err      error
	prompts  []string
}

func (m *mockJudge) Assess(ctx context.Context, prompt string) (string, error) {
	m.prompts = append(m.prompts, prompt)
	return m.response, m.err
}

func passingChecks() []reanalyze.Checker {
	return []reanalyze.Checker{
		&mockChecker{name: "run_lint", enabled: true, result: domain.CheckResult{Passed: true}},
		&mockChecker{name: "run_tests", enabled: true, result: domain.CheckResult{Passed: true}},
	}
}

func testIssue(message string) domain.Issue {
	return domain.NewIssue(domain.IssueInput{
		Category: domain.CategoryBug,
		Severity: domain.SeverityError,
		File:     "main.go",
		Line:     10,
		Message:  message,
	}, time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
}

func TestReAnalyzeNoBackendResolvedByChecks(t *testing.T) {
	r := reanalyze.NewReAnalyzer(passingChecks())
	result, err := r.ReAnalyze(context.Background(), testIssue("nil deref"), "main.go", "added nil guard")
	if err != nil {
		t.Fatalf("ReAnalyze failed: %v", err)
	}
	if !result.IssueResolved {
		t.Error("all checks passed, expected resolved")
	}
	if !result.Success {
		t.Error("expected success")
	}
	if result.Verification.Lint == nil || result.Verification.Tests == nil {
		t.Error("expected lint and tests slots populated")
	}
	if result.Verification.Build != nil {
		t.Error("build was not configured, slot should be nil")
	}
}

func TestReAnalyzeNoBackendFailingCheck(t *testing.T) {
	checks := []reanalyze.Checker{
		&mockChecker{name: "run_lint", enabled: true, result: domain.CheckResult{Passed: true}},
		&mockChecker{name: "run_tests", enabled: true, result: domain.CheckResult{Passed: false, Errors: 2}},
	}
	r := reanalyze.NewReAnalyzer(checks)
	result, err := r.ReAnalyze(context.Background(), testIssue("nil deref"), "main.go", "fix")
	if err != nil {
		t.Fatalf("ReAnalyze failed: %v", err)
	}
	if result.IssueResolved || result.Success {
		t.Error("failing check must mean unresolved and unsuccessful")
	}
}

func TestReAnalyzeJudgedResolvedButCheckFails(t *testing.T) {
	checks := []reanalyze.Checker{
		&mockChecker{name: "run_tests", enabled: true, result: domain.CheckResult{Passed: false, Errors: 1}},
	}
	judge := &mockJudge{response: "```json\n{\"resolved\": true, \"assessment\": \"looks fixed\"}\n```"}

	r := reanalyze.NewReAnalyzer(checks, reanalyze.WithJudge(judge))
	result, err := r.ReAnalyze(context.Background(), testIssue("nil deref"), "main.go", "fix")
	if err != nil {
		t.Fatalf("ReAnalyze failed: %v", err)
	}
	if !result.IssueResolved {
		t.Error("backend judged resolved, flag should reflect that")
	}
	if result.Success {
		t.Error("success must be false when any enabled verification fails")
	}
}

func TestReAnalyzeNewErrorIssueBlocksSuccess(t *testing.T) {
	judge := &mockJudge{response: `{"resolved": true, "assessment": "fixed but introduced a regression", "newIssues": [{"category": "bug", "severity": "critical", "file": "main.go", "line": 22, "message": "regression"}]}`}

	r := reanalyze.NewReAnalyzer(passingChecks(), reanalyze.WithJudge(judge))
	result, err := r.ReAnalyze(context.Background(), testIssue("nil deref"), "main.go", "fix")
	if err != nil {
		t.Fatalf("ReAnalyze failed: %v", err)
	}
	if !result.IssueResolved || !result.Verification.AllPassed() {
		t.Fatal("precondition: resolved and all checks passed")
	}
	if result.Success {
		t.Error("new error-severity issue must block success")
	}
	if len(result.NewIssues) != 1 {
		t.Fatalf("expected 1 new issue, got %d", len(result.NewIssues))
	}
	// critical maps to error severity
	if result.NewIssues[0].Severity != domain.SeverityError {
		t.Errorf("expected severity error, got %s", result.NewIssues[0].Severity)
	}
}

func TestReAnalyzeUnparseableJudgementFallsBack(t *testing.T) {
	judge := &mockJudge{response: "I think it is probably fine now."}

	r := reanalyze.NewReAnalyzer(passingChecks(), reanalyze.WithJudge(judge))
	result, err := r.ReAnalyze(context.Background(), testIssue("nil deref"), "main.go", "fix")
	if err != nil {
		t.Fatalf("ReAnalyze failed: %v", err)
	}
	// Falls back to the checks-only criterion
	if !result.IssueResolved || !result.Success {
		t.Error("expected fallback to checks-only resolution")
	}
}

func TestReAnalyzeCheckErrorLeavesSlotEmpty(t *testing.T) {
	checks := []reanalyze.Checker{
		&mockChecker{name: "run_lint", enabled: true, err: errors.New("linter crashed")},
		&mockChecker{name: "run_tests", enabled: true, result: domain.CheckResult{Passed: true}},
	}
	r := reanalyze.NewReAnalyzer(checks)
	result, err := r.ReAnalyze(context.Background(), testIssue("x"), "main.go", "fix")
	if err != nil {
		t.Fatalf("check error must be absorbed: %v", err)
	}
	if result.Verification.Lint != nil {
		t.Error("errored check should leave a nil slot")
	}
	if !result.Success {
		t.Error("remaining checks passed, expected success")
	}
}

func TestRunAnalysisLoopResolvesBatch(t *testing.T) {
	r := reanalyze.NewReAnalyzer(passingChecks())
	issues := []domain.Issue{testIssue("first"), testIssue("second")}

	var fixed []string
	fix := func(ctx context.Context, issue domain.Issue) (string, string, error) {
		fixed = append(fixed, issue.Message)
		return issue.File, "patched", nil
	}

	result, err := r.RunAnalysisLoop(context.Background(), issues, fix,
		reanalyze.LoopOptions{MaxIterations: 3, StopOnClean: true})
	if err != nil {
		t.Fatalf("RunAnalysisLoop failed: %v", err)
	}
	if len(fixed) != 2 {
		t.Errorf("expected 2 fix attempts, got %d", len(fixed))
	}
	if len(result.ResolvedIssues) != 2 || len(result.FailedIssues) != 0 {
		t.Errorf("expected 2 resolved, got %d resolved %d failed",
			len(result.ResolvedIssues), len(result.FailedIssues))
	}
	if !result.IsClean {
		t.Error("expected clean result")
	}
	if result.Iterations != 1 {
		t.Errorf("expected 1 iteration with StopOnClean, got %d", result.Iterations)
	}
	if result.Summary == "" {
		t.Error("expected a generated summary")
	}
}

func TestRunAnalysisLoopFixFailure(t *testing.T) {
	r := reanalyze.NewReAnalyzer(passingChecks())
	fix := func(ctx context.Context, issue domain.Issue) (string, string, error) {
		return "", "", errors.New("cannot fix automatically")
	}

	result, err := r.RunAnalysisLoop(context.Background(), []domain.Issue{testIssue("x")}, fix,
		reanalyze.LoopOptions{MaxIterations: 2})
	if err != nil {
		t.Fatalf("RunAnalysisLoop failed: %v", err)
	}
	if len(result.FailedIssues) != 1 {
		t.Fatalf("expected 1 failed issue, got %d", len(result.FailedIssues))
	}
	if result.FailedIssues[0].LastError == "" {
		t.Error("failed issue should carry the fix error")
	}
	if result.IsClean {
		t.Error("result with failures is not clean")
	}
}

func TestRunAnalysisLoopMergesDiscoveredIssues(t *testing.T) {
	// First judgement surfaces a new non-error issue, which gets its own
	// fix attempt in the next iteration.
	judge := &mockJudge{response: `{"resolved": true, "assessment": "ok", "newIssues": [{"category": "lint", "severity": "low", "file": "util.go", "line": 4, "message": "unused import"}]}`}
	r := reanalyze.NewReAnalyzer(passingChecks(), reanalyze.WithJudge(judge))

	var attempts []string
	fix := func(ctx context.Context, issue domain.Issue) (string, string, error) {
		attempts = append(attempts, issue.Message)
		if len(attempts) == 2 {
			// Second round: no further findings
			judge.response = `{"resolved": true, "assessment": "ok"}`
		}
		return issue.File, "patched", nil
	}

	result, err := r.RunAnalysisLoop(context.Background(), []domain.Issue{testIssue("original")}, fix,
		reanalyze.LoopOptions{MaxIterations: 3, StopOnClean: true})
	if err != nil {
		t.Fatalf("RunAnalysisLoop failed: %v", err)
	}
	if len(attempts) != 2 {
		t.Fatalf("expected the discovered issue to be attempted, got attempts %v", attempts)
	}
	if attempts[1] != "unused import" {
		t.Errorf("expected second attempt on discovered issue, got %s", attempts[1])
	}
	if len(result.AllIssues) != 2 {
		t.Errorf("expected 2 total issues, got %d", len(result.AllIssues))
	}
	if result.Iterations != 2 {
		t.Errorf("expected 2 iterations, got %d", result.Iterations)
	}
}

func TestRunAnalysisLoopHonorsMaxIterations(t *testing.T) {
	// Every round discovers one more issue, so the loop only stops at the
	// iteration bound.
	counter := 0
	r := reanalyze.NewReAnalyzer(passingChecks(), reanalyze.WithJudge(&alwaysNewJudge{counter: &counter}))

	fix := func(ctx context.Context, issue domain.Issue) (string, string, error) {
		return issue.File, "patched", nil
	}

	result, err := r.RunAnalysisLoop(context.Background(), []domain.Issue{testIssue("seed")}, fix,
		reanalyze.LoopOptions{MaxIterations: 2})
	if err != nil {
		t.Fatalf("RunAnalysisLoop failed: %v", err)
	}
	if result.Iterations != 2 {
		t.Errorf("expected exactly 2 iterations, got %d", result.Iterations)
	}
	if result.IsClean {
		t.Error("workload never drained, result must not be clean")
	}
}

type alwaysNewJudge struct {
	counter *int
}

func (j *alwaysNewJudge) Assess(ctx context.Context, prompt string) (string, error) {
	*j.counter++
	n := strconv.Itoa(*j.counter)
	return `{"resolved": true, "assessment": "ok", "newIssues": [{"category": "lint", "severity": "low", "file": "gen.go", "line": ` +
		n + `, "message": "finding ` + n + `"}]}`, nil
}
