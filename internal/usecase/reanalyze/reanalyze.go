// Package reanalyze verifies applied fixes: it re-runs the enabled
// verification tools, optionally asks a reasoning backend to judge the
// fix, and drives the batch fix/verify loop.
package reanalyze

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	llmhttp "github.com/braedonsaunders/codetriage/internal/adapter/llm/http"
	"github.com/braedonsaunders/codetriage/internal/domain"
)

// Checker is one verification tool (lint, type-check, tests, build).
// *tools.CheckTool satisfies this.
type Checker interface {
	Name() string
	Enabled() bool
	Run(ctx context.Context, target string) (domain.CheckResult, error)
}

// Judge is the optional reasoning backend consulted about whether a fix
// resolved its issue.
type Judge interface {
	Assess(ctx context.Context, prompt string) (string, error)
}

// Reader provides file contents for the judgement prompt.
type Reader interface {
	ReadFile(path string) (string, error)
}

// Logger is the optional structured logging interface.
type Logger interface {
	LogInfo(ctx context.Context, message string, fields map[string]interface{})
	LogWarning(ctx context.Context, message string, fields map[string]interface{})
}

// ReAnalyzer verifies individual fixes.
type ReAnalyzer struct {
	checks []Checker
	judge  Judge
	reader Reader
	logger Logger
	now    func() time.Time
}

// Option configures a ReAnalyzer.
type Option func(*ReAnalyzer)

// WithJudge sets the reasoning backend. Without one, resolution is
// decided purely by the verification tools.
func WithJudge(judge Judge) Option {
	return func(r *ReAnalyzer) { r.judge = judge }
}

// WithReader sets the file source for judgement prompts.
func WithReader(reader Reader) Option {
	return func(r *ReAnalyzer) { r.reader = reader }
}

// WithLogger sets the structured logger.
func WithLogger(logger Logger) Option {
	return func(r *ReAnalyzer) { r.logger = logger }
}

// WithClock overrides time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(r *ReAnalyzer) { r.now = now }
}

// NewReAnalyzer creates a re-analyzer over the given verification tools.
func NewReAnalyzer(checks []Checker, opts ...Option) *ReAnalyzer {
	r := &ReAnalyzer{checks: checks, now: time.Now}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// judgement is the structured verdict parsed from the backend response.
type judgement struct {
	Resolved   bool     `json:"resolved"`
	Assessment string   `json:"assessment"`
	NewIssues  []struct {
		Category string `json:"category"`
		Severity string `json:"severity"`
		File     string `json:"file"`
		Line     int    `json:"line"`
		Message  string `json:"message"`
	} `json:"newIssues"`
	Concerns []string `json:"concerns"`
}

// ReAnalyze verifies a single applied fix. Verification tool failures
// are absorbed: a tool that errors leaves its report slot empty. The
// returned error is reserved for context cancellation.
func (r *ReAnalyzer) ReAnalyze(ctx context.Context, issue domain.Issue, fixedPath, fixDescription string) (domain.ReAnalysisResult, error) {
	result := domain.ReAnalysisResult{
		Verification: r.runChecks(ctx, fixedPath),
	}

	judged := false
	if r.judge != nil {
		if verdict, ok := r.consultJudge(ctx, issue, fixedPath, fixDescription); ok {
			judged = true
			result.IssueResolved = verdict.Resolved
			result.Assessment = verdict.Assessment
			result.Concerns = verdict.Concerns
			for _, raw := range verdict.NewIssues {
				result.NewIssues = append(result.NewIssues, domain.NewIssue(domain.IssueInput{
					Category: domain.MapCategory(raw.Category),
					Severity: domain.MapSeverity(raw.Severity),
					File:     raw.File,
					Line:     raw.Line,
					Message:  raw.Message,
				}, r.now()))
			}
		}
	}
	if !judged {
		// Without a usable judgement, the tools decide.
		result.IssueResolved = result.Verification.AllPassed()
		result.Assessment = "verification tools only, no backend judgement"
	}

	result.Success = result.IssueResolved &&
		result.Verification.AllPassed() &&
		!hasErrorSeverity(result.NewIssues)

	if err := ctx.Err(); err != nil {
		return result, err
	}
	return result, nil
}

// runChecks runs each enabled verification tool, leaving a nil slot for
// tools that are disabled or errored.
func (r *ReAnalyzer) runChecks(ctx context.Context, target string) domain.VerificationReport {
	var report domain.VerificationReport
	for _, check := range r.checks {
		if check == nil || !check.Enabled() {
			continue
		}
		res, err := check.Run(ctx, target)
		if err != nil {
			r.logWarning(ctx, "verification tool failed", map[string]interface{}{
				"tool":  check.Name(),
				"error": err.Error(),
			})
			continue
		}
		entry := res
		switch check.Name() {
		case "run_lint":
			report.Lint = &entry
		case "run_typecheck":
			report.TypeCheck = &entry
		case "run_tests":
			report.Tests = &entry
		case "run_build":
			report.Build = &entry
		}
	}
	return report
}

// consultJudge asks the backend for a verdict. Any failure, including
// an unparseable response, means no judgement.
func (r *ReAnalyzer) consultJudge(ctx context.Context, issue domain.Issue, fixedPath, fixDescription string) (judgement, bool) {
	prompt := r.judgementPrompt(issue, fixedPath, fixDescription)
	response, err := r.judge.Assess(ctx, prompt)
	if err != nil {
		r.logWarning(ctx, "backend judgement failed", map[string]interface{}{
			"issue": issue.ID,
			"error": err.Error(),
		})
		return judgement{}, false
	}

	payload := llmhttp.ExtractJSONFromMarkdown(response)
	var verdict judgement
	if err := json.Unmarshal([]byte(payload), &verdict); err != nil {
		r.logWarning(ctx, "failed to parse judgement response", map[string]interface{}{
			"issue": issue.ID,
			"error": err.Error(),
		})
		return judgement{}, false
	}
	return verdict, true
}

func (r *ReAnalyzer) judgementPrompt(issue domain.Issue, fixedPath, fixDescription string) string {
	var b strings.Builder
	b.WriteString("A fix was applied for the following issue. Judge whether the issue is resolved.\n\n")
	fmt.Fprintf(&b, "Issue: [%s/%s] %s:%d %s\n", issue.Category, issue.Severity, issue.File, issue.Line, issue.Message)
	if issue.Description != "" {
		fmt.Fprintf(&b, "Details: %s\n", issue.Description)
	}
	if fixDescription != "" {
		fmt.Fprintf(&b, "\nApplied fix: %s\n", fixDescription)
	}
	if r.reader != nil {
		if content, err := r.reader.ReadFile(fixedPath); err == nil {
			fmt.Fprintf(&b, "\nCurrent content of %s:\n```\n%s\n```\n", fixedPath, content)
		}
	}
	b.WriteString("\nRespond with a JSON object in a code block:\n")
	b.WriteString("{\"resolved\": bool, \"assessment\": string, \"newIssues\": [{\"category\", \"severity\", \"file\", \"line\", \"message\"}], \"concerns\": [string]}\n")
	return b.String()
}

func hasErrorSeverity(issues []domain.Issue) bool {
	for _, issue := range issues {
		if issue.Severity == domain.SeverityError {
			return true
		}
	}
	return false
}

func (r *ReAnalyzer) logWarning(ctx context.Context, msg string, fields map[string]interface{}) {
	if r.logger != nil {
		r.logger.LogWarning(ctx, msg, fields)
		return
	}
	log.Printf("warning: %s %v", msg, fields)
}
