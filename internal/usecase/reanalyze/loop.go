package reanalyze

import (
	"context"
	"fmt"
	"strings"

	"github.com/braedonsaunders/codetriage/internal/domain"
)

// DefaultLoopIterations bounds the fix/verify loop when the caller does
// not say otherwise.
const DefaultLoopIterations = 3

// FixFunc attempts to fix one issue. It returns the path of the fixed
// file and a short description of what was changed.
type FixFunc func(ctx context.Context, issue domain.Issue) (fixedPath string, description string, err error)

// LoopOptions configures RunAnalysisLoop.
type LoopOptions struct {
	// MaxIterations bounds the number of fix/verify rounds. Non-positive
	// values use DefaultLoopIterations.
	MaxIterations int

	// StopOnClean stops early once an iteration leaves no pending work.
	StopOnClean bool
}

// RunAnalysisLoop drives the fix and verify cycle across a batch of
// issues. Each iteration attempts a fix for every pending issue,
// re-verifies each attempted fix, buckets issues into resolved or
// failed, and merges newly discovered issues into the next iteration's
// workload.
func (r *ReAnalyzer) RunAnalysisLoop(ctx context.Context, issues []domain.Issue, fix FixFunc, opts LoopOptions) (domain.AnalysisLoopResult, error) {
	maxIterations := opts.MaxIterations
	if maxIterations <= 0 {
		maxIterations = DefaultLoopIterations
	}

	result := domain.AnalysisLoopResult{
		AllIssues: append([]domain.Issue{}, issues...),
	}
	seen := make(map[domain.DedupKey]bool, len(issues))
	for _, issue := range issues {
		seen[issue.Key()] = true
	}

	pending := append([]domain.Issue{}, issues...)

	for iteration := 0; iteration < maxIterations && len(pending) > 0; iteration++ {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		result.Iterations++

		var next []domain.Issue
		for _, issue := range pending {
			fixedPath, description, err := fix(ctx, issue)
			if err != nil {
				issue.LastError = err.Error()
				result.FailedIssues = append(result.FailedIssues, issue)
				r.logWarning(ctx, "fix attempt failed", map[string]interface{}{
					"issue": issue.ID,
					"error": err.Error(),
				})
				continue
			}

			verdict, err := r.ReAnalyze(ctx, issue, fixedPath, description)
			if err != nil {
				return result, err
			}

			if verdict.Success {
				result.ResolvedIssues = append(result.ResolvedIssues, issue)
			} else {
				issue.LastError = verdict.Assessment
				result.FailedIssues = append(result.FailedIssues, issue)
			}

			// New findings join the next round's workload.
			for _, discovered := range verdict.NewIssues {
				if seen[discovered.Key()] {
					continue
				}
				seen[discovered.Key()] = true
				result.AllIssues = append(result.AllIssues, discovered)
				next = append(next, discovered)
			}
		}

		pending = next
		if opts.StopOnClean && len(pending) == 0 {
			break
		}
	}

	result.IsClean = len(pending) == 0 && len(result.FailedIssues) == 0
	result.Summary = loopSummary(result)
	return result, nil
}

func loopSummary(result domain.AnalysisLoopResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Completed %d iteration(s): %d resolved, %d failed of %d issue(s).",
		result.Iterations, len(result.ResolvedIssues), len(result.FailedIssues), len(result.AllIssues))
	if result.IsClean {
		b.WriteString(" All issues addressed.")
	} else if len(result.FailedIssues) > 0 {
		b.WriteString(" Some fixes did not verify; see failed issues.")
	}
	return b.String()
}
