package domain

import "time"

// AgentAnalyzerName is the sentinel recorded in AnalyzersRun when the
// agentic path handled the whole analysis.
const AgentAnalyzerName = "llm-agent"

// Summary counts issues by category and severity. Every enumerated
// category and severity key is present, even at zero.
type Summary struct {
	Total      int              `json:"total"`
	ByCategory map[Category]int `json:"byCategory"`
	BySeverity map[Severity]int `json:"bySeverity"`
}

// NewSummary builds a Summary from a list of issues.
func NewSummary(issues []Issue) Summary {
	summary := Summary{
		Total:      len(issues),
		ByCategory: make(map[Category]int, len(Categories())),
		BySeverity: make(map[Severity]int, len(Severities())),
	}
	for _, category := range Categories() {
		summary.ByCategory[category] = 0
	}
	for _, severity := range Severities() {
		summary.BySeverity[severity] = 0
	}
	for _, issue := range issues {
		summary.ByCategory[issue.Category]++
		summary.BySeverity[issue.Severity]++
	}
	return summary
}

// AnalysisResult is the output of one orchestrator run.
type AnalysisResult struct {
	Issues       []Issue       `json:"issues"`
	Summary      Summary       `json:"summary"`
	Duration     time.Duration `json:"duration"`
	AnalyzersRun []string      `json:"analyzersRun"`
}

// CheckResult records the outcome of one verification tool run.
type CheckResult struct {
	Passed   bool   `json:"passed"`
	Errors   int    `json:"errors"`
	Warnings int    `json:"warnings"`
	Output   string `json:"output,omitempty"`
}

// VerificationReport holds per-tool results from re-analysis. Each entry
// is nil when the corresponding tool was not enabled for the run.
type VerificationReport struct {
	Lint      *CheckResult `json:"lint,omitempty"`
	TypeCheck *CheckResult `json:"typeCheck,omitempty"`
	Tests     *CheckResult `json:"tests,omitempty"`
	Build     *CheckResult `json:"build,omitempty"`
}

// AllPassed reports whether every enabled verification passed.
func (r VerificationReport) AllPassed() bool {
	for _, check := range []*CheckResult{r.Lint, r.TypeCheck, r.Tests, r.Build} {
		if check != nil && !check.Passed {
			return false
		}
	}
	return true
}

// ReAnalysisResult is the outcome of verifying a single applied fix.
// Success requires the issue to be judged resolved, every enabled
// verification to pass, and no new error-severity issue.
type ReAnalysisResult struct {
	IssueResolved bool               `json:"issueResolved"`
	Assessment    string             `json:"assessment"`
	NewIssues     []Issue            `json:"newIssues"`
	Concerns      []string           `json:"concerns"`
	Verification  VerificationReport `json:"verification"`
	Success       bool               `json:"success"`
}

// AnalysisLoopResult aggregates the outcome of a fix/verify loop across a
// batch of issues.
type AnalysisLoopResult struct {
	AllIssues      []Issue `json:"allIssues"`
	ResolvedIssues []Issue `json:"resolvedIssues"`
	FailedIssues   []Issue `json:"failedIssues"`
	Iterations     int     `json:"iterations"`
	IsClean        bool    `json:"isClean"`
	Summary        string  `json:"summary"`
}
