package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/briandowns/spinner"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/braedonsaunders/codetriage/internal/domain"
	"github.com/braedonsaunders/codetriage/internal/usecase/analyze"
	"github.com/braedonsaunders/codetriage/internal/usecase/reanalyze"
	"github.com/braedonsaunders/codetriage/internal/usecase/track"
)

// ErrVersionRequested indicates the user requested the CLI version and no further work should be done.
var ErrVersionRequested = errors.New("version requested")

// AnalysisRunner defines the dependency required to run the analyze command.
type AnalysisRunner interface {
	Analyze(ctx context.Context, req analyze.Request) (domain.AnalysisResult, error)
}

// IssueTracker manages the persisted issue lifecycle for the issues and
// fix-verify commands. Satisfied by *track.Tracker.
type IssueTracker interface {
	LoadFromStorage(ctx context.Context) error
	AddIssues(ctx context.Context, issues []domain.Issue) error
	Issues() []domain.Issue
	NextIssue(ctx context.Context) (domain.Issue, bool, error)
	Stats() track.Stats
	MarkInProgress(ctx context.Context, id string) error
	MarkResolved(ctx context.Context, id string) error
	MarkFailed(ctx context.Context, id, reason string) error
	ResetToPending(ctx context.Context, id string) error
	ResetRetryableIssues(ctx context.Context, maxRetries int) (int, error)
	Clear(ctx context.Context) error
}

// IssueVerifier re-checks applied fixes. Satisfied by *reanalyze.ReAnalyzer.
type IssueVerifier interface {
	ReAnalyze(ctx context.Context, issue domain.Issue, fixedPath, fixDescription string) (domain.ReAnalysisResult, error)
	RunAnalysisLoop(ctx context.Context, issues []domain.Issue, fix reanalyze.FixFunc, opts reanalyze.LoopOptions) (domain.AnalysisLoopResult, error)
}

// ReportFunc renders an analysis result to disk and returns the file path.
type ReportFunc func(ctx context.Context, outputDir, repository string, result domain.AnalysisResult) (string, error)

// LoopReportFunc persists a fix/verify loop result and returns the file path.
type LoopReportFunc func(outputDir, repository string, result domain.AnalysisLoopResult) (string, error)

// Arguments encapsulates IO writers injected from the host process.
type Arguments struct {
	OutWriter io.Writer
	ErrWriter io.Writer
}

// Dependencies captures the collaborators for the CLI.
type Dependencies struct {
	Runner       AnalysisRunner
	StaticRunner AnalysisRunner // roster-only runner for --static
	Tracker      IssueTracker
	Verifier     IssueVerifier
	Reporters    map[string]ReportFunc
	LoopReporter LoopReportFunc
	RecordRun    func(ctx context.Context, result domain.AnalysisResult) error

	Args           Arguments
	DefaultOutput  string
	DefaultFormat  string
	DefaultRepo    string
	DefaultInclude []string
	DefaultExclude []string
	DefaultFocus   []string
	LoopIterations int
	StopOnClean    bool
	Version        string
}

// NewRootCommand constructs the root Cobra command.
func NewRootCommand(deps Dependencies) *cobra.Command {
	versionString := deps.Version
	if versionString == "" {
		versionString = "v0.0.0"
	}

	root := &cobra.Command{
		Use:   "ct",
		Short: "Agentic code quality triage CLI",
	}
	root.SilenceUsage = true
	root.SilenceErrors = true

	outWriter := deps.Args.OutWriter
	if outWriter == nil {
		outWriter = os.Stdout
	}
	errWriter := deps.Args.ErrWriter
	if errWriter == nil {
		errWriter = os.Stderr
	}
	root.SetOut(outWriter)
	root.SetErr(errWriter)

	root.AddCommand(analyzeCommand(deps))
	root.AddCommand(issuesCommand(deps))
	root.AddCommand(fixVerifyCommand(deps))
	root.AddCommand(checkSkipCommand())

	var showVersion bool
	root.PersistentFlags().BoolVarP(&showVersion, "version", "v", false, "Show version and exit")
	versionHandler := func(cmd *cobra.Command, args []string) error {
		if showVersion {
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), versionString)
			return ErrVersionRequested
		}
		return nil
	}
	root.PersistentPreRunE = versionHandler
	root.PreRunE = versionHandler
	root.RunE = func(cmd *cobra.Command, args []string) error {
		if err := versionHandler(cmd, args); err != nil {
			return err
		}
		return cmd.Help()
	}

	return root
}

func analyzeCommand(deps Dependencies) *cobra.Command {
	var include []string
	var exclude []string
	var focus []string
	var outputDir string
	var format string
	var repository string
	var static bool
	var quiet bool
	var noSave bool

	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Analyze the repository for code quality issues",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			runner := deps.Runner
			if static {
				if deps.StaticRunner == nil {
					return fmt.Errorf("static analysis runner not configured")
				}
				runner = deps.StaticRunner
			}
			if runner == nil {
				return fmt.Errorf("analysis runner not configured")
			}

			reporter, ok := deps.Reporters[format]
			if !ok {
				return fmt.Errorf("unknown output format %q; supported: %s", format, strings.Join(reporterNames(deps.Reporters), ", "))
			}

			stop := startSpinner(cmd.ErrOrStderr(), quiet, " analyzing...")
			result, err := runner.Analyze(ctx, analyze.Request{
				Include:    include,
				Exclude:    exclude,
				FocusAreas: focus,
			})
			stop()
			if err != nil {
				return fmt.Errorf("analysis failed: %w", err)
			}

			path, err := reporter(ctx, outputDir, repository, result)
			if err != nil {
				return fmt.Errorf("write report: %w", err)
			}

			if deps.Tracker != nil && !noSave {
				if err := deps.Tracker.AddIssues(ctx, result.Issues); err != nil {
					_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "warning: failed to persist issues: %v\n", err)
				}
			}
			if deps.RecordRun != nil {
				if err := deps.RecordRun(ctx, result); err != nil {
					_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "warning: failed to record run: %v\n", err)
				}
			}

			printSummary(cmd.OutOrStdout(), result)
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "\nReport written to %s\n", path)
			return nil
		},
	}

	cmd.Flags().StringSliceVar(&include, "include", deps.DefaultInclude, "Glob patterns of files to analyze (default: all tracked files)")
	cmd.Flags().StringSliceVar(&exclude, "exclude", deps.DefaultExclude, "Glob patterns or directories to skip")
	cmd.Flags().StringSliceVar(&focus, "focus", deps.DefaultFocus, "Areas to prioritize (e.g. security, bugs)")
	defaultOutput := deps.DefaultOutput
	if defaultOutput == "" {
		defaultOutput = "out"
	}
	cmd.Flags().StringVar(&outputDir, "output", defaultOutput, "Directory to write analysis reports")
	defaultFormat := deps.DefaultFormat
	if defaultFormat == "" {
		defaultFormat = "markdown"
	}
	cmd.Flags().StringVar(&format, "format", defaultFormat, "Report format (markdown, json, sarif)")
	cmd.Flags().StringVar(&repository, "repository", deps.DefaultRepo, "Optional repository name override")
	cmd.Flags().BoolVar(&static, "static", false, "Skip the agentic backend and run static analyzers only")
	cmd.Flags().BoolVar(&quiet, "quiet", false, "Suppress the progress spinner")
	cmd.Flags().BoolVar(&noSave, "no-save", false, "Do not persist issues to the local store")

	return cmd
}

func issuesCommand(deps Dependencies) *cobra.Command {
	var statusFilter string
	var categoryFilter string
	var severityFilter string
	var fileFilter string
	var showStats bool
	var showNext bool
	var retryFailed bool
	var maxRetries int
	var clear bool

	cmd := &cobra.Command{
		Use:   "issues",
		Short: "List and manage tracked issues",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if deps.Tracker == nil {
				return fmt.Errorf("issue store not configured; enable store in configuration")
			}
			ctx := cmd.Context()
			if err := deps.Tracker.LoadFromStorage(ctx); err != nil {
				return fmt.Errorf("load issues: %w", err)
			}

			if clear {
				if err := deps.Tracker.Clear(ctx); err != nil {
					return fmt.Errorf("clear issues: %w", err)
				}
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), "All tracked issues cleared.")
				return nil
			}

			if retryFailed {
				count, err := deps.Tracker.ResetRetryableIssues(ctx, maxRetries)
				if err != nil {
					return fmt.Errorf("reset failed issues: %w", err)
				}
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%d failed issue(s) reset to pending.\n", count)
				return nil
			}

			if showStats {
				printStats(cmd.OutOrStdout(), deps.Tracker.Stats())
				return nil
			}

			if showNext {
				issue, ok, err := deps.Tracker.NextIssue(ctx)
				if err != nil {
					return fmt.Errorf("next issue: %w", err)
				}
				if !ok {
					_, _ = fmt.Fprintln(cmd.OutOrStdout(), "No pending issues.")
					return nil
				}
				printIssueLine(cmd.OutOrStdout(), issue)
				if issue.Description != "" {
					_, _ = fmt.Fprintf(cmd.OutOrStdout(), "  %s\n", issue.Description)
				}
				if issue.Suggestion != "" {
					_, _ = fmt.Fprintf(cmd.OutOrStdout(), "  suggestion: %s\n", issue.Suggestion)
				}
				return nil
			}

			issues := filterIssues(deps.Tracker.Issues(), statusFilter, categoryFilter, severityFilter, fileFilter)
			if len(issues) == 0 {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), "No matching issues.")
				return nil
			}
			for _, issue := range issues {
				printIssueLine(cmd.OutOrStdout(), issue)
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "\n%d issue(s)\n", len(issues))
			return nil
		},
	}

	cmd.Flags().StringVar(&statusFilter, "status", "", "Filter by status (pending, in_progress, resolved, failed, skipped)")
	cmd.Flags().StringVar(&categoryFilter, "category", "", "Filter by category")
	cmd.Flags().StringVar(&severityFilter, "severity", "", "Filter by severity (error, warning, info, hint)")
	cmd.Flags().StringVar(&fileFilter, "file", "", "Filter by file path")
	cmd.Flags().BoolVar(&showStats, "stats", false, "Show aggregate counts instead of the issue list")
	cmd.Flags().BoolVar(&showNext, "next", false, "Show the highest priority pending issue")
	cmd.Flags().BoolVar(&retryFailed, "retry-failed", false, "Reset failed issues under the retry budget back to pending")
	cmd.Flags().IntVar(&maxRetries, "max-retries", 3, "Retry budget used with --retry-failed")
	cmd.Flags().BoolVar(&clear, "clear", false, "Delete all tracked issues for this session")

	return cmd
}

func fixVerifyCommand(deps Dependencies) *cobra.Command {
	var fixedPath string
	var description string
	var maxIterations int
	var stopOnClean bool
	var outputDir string

	cmd := &cobra.Command{
		Use:   "fix-verify [issue-id]",
		Short: "Verify applied fixes and update issue state",
		Long: `Verify that fixes applied to the codebase actually resolve tracked issues.

With an issue ID, re-analyzes that single issue and marks it resolved or
failed. Without arguments, runs the verification loop over every pending
issue; fixes are assumed to have been applied outside this tool.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if deps.Verifier == nil {
				return fmt.Errorf("verifier not configured")
			}
			if deps.Tracker == nil {
				return fmt.Errorf("issue store not configured; enable store in configuration")
			}
			ctx := cmd.Context()
			if err := deps.Tracker.LoadFromStorage(ctx); err != nil {
				return fmt.Errorf("load issues: %w", err)
			}

			if len(args) == 1 {
				return verifySingle(ctx, cmd, deps, args[0], fixedPath, description)
			}
			return verifyAll(ctx, cmd, deps, maxIterations, stopOnClean, outputDir)
		},
	}

	cmd.Flags().StringVar(&fixedPath, "fixed-path", "", "Path of the file that was fixed (defaults to the issue's file)")
	cmd.Flags().StringVar(&description, "description", "", "Short description of the applied fix")
	defaultIterations := deps.LoopIterations
	if defaultIterations <= 0 {
		defaultIterations = reanalyze.DefaultLoopIterations
	}
	cmd.Flags().IntVar(&maxIterations, "max-iterations", defaultIterations, "Maximum fix/verify rounds")
	cmd.Flags().BoolVar(&stopOnClean, "stop-on-clean", deps.StopOnClean, "Stop as soon as no pending issues remain")
	loopOutput := deps.DefaultOutput
	if loopOutput == "" {
		loopOutput = "build"
	}
	cmd.Flags().StringVar(&outputDir, "output", loopOutput, "Directory for the loop report")

	return cmd
}

func verifySingle(ctx context.Context, cmd *cobra.Command, deps Dependencies, id, fixedPath, description string) error {
	issue, ok := findIssue(deps.Tracker.Issues(), id)
	if !ok {
		return fmt.Errorf("issue %s not found", id)
	}
	if fixedPath == "" {
		fixedPath = issue.File
	}
	if description == "" {
		description = "fix applied outside this tool"
	}

	// A previously failed issue re-enters the lifecycle through pending.
	if issue.Status == domain.StatusFailed {
		if err := deps.Tracker.ResetToPending(ctx, issue.ID); err != nil {
			return fmt.Errorf("reset issue: %w", err)
		}
	}
	if err := deps.Tracker.MarkInProgress(ctx, issue.ID); err != nil {
		return fmt.Errorf("mark in progress: %w", err)
	}

	verdict, err := deps.Verifier.ReAnalyze(ctx, issue, fixedPath, description)
	if err != nil {
		return fmt.Errorf("re-analysis failed: %w", err)
	}

	if verdict.Success {
		if err := deps.Tracker.MarkResolved(ctx, issue.ID); err != nil {
			return fmt.Errorf("mark resolved: %w", err)
		}
		_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s %s: %s\n", color.GreenString("resolved"), issue.ID, verdict.Assessment)
		return nil
	}

	if err := deps.Tracker.MarkFailed(ctx, issue.ID, verdict.Assessment); err != nil {
		return fmt.Errorf("mark failed: %w", err)
	}
	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s %s: %s\n", color.RedString("failed"), issue.ID, verdict.Assessment)
	if len(verdict.NewIssues) > 0 {
		_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%d new issue(s) surfaced during verification\n", len(verdict.NewIssues))
	}
	return nil
}

func verifyAll(ctx context.Context, cmd *cobra.Command, deps Dependencies, maxIterations int, stopOnClean bool, outputDir string) error {
	pending := filterIssues(deps.Tracker.Issues(), string(domain.StatusPending), "", "", "")
	if len(pending) == 0 {
		_, _ = fmt.Fprintln(cmd.OutOrStdout(), "No pending issues to verify.")
		return nil
	}

	// Fixes happen outside this tool; the loop only verifies.
	fix := func(ctx context.Context, issue domain.Issue) (string, string, error) {
		return issue.File, "fix applied outside this tool", nil
	}

	result, err := deps.Verifier.RunAnalysisLoop(ctx, pending, fix, reanalyze.LoopOptions{
		MaxIterations: maxIterations,
		StopOnClean:   stopOnClean,
	})
	if err != nil {
		return fmt.Errorf("verification loop failed: %w", err)
	}

	known := make(map[string]bool, len(pending))
	for _, issue := range deps.Tracker.Issues() {
		known[issue.ID] = true
	}
	var discovered []domain.Issue
	for _, issue := range result.AllIssues {
		if !known[issue.ID] {
			discovered = append(discovered, issue)
		}
	}
	if len(discovered) > 0 {
		if err := deps.Tracker.AddIssues(ctx, discovered); err != nil {
			_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "warning: failed to persist discovered issues: %v\n", err)
		}
	}

	for _, issue := range result.ResolvedIssues {
		if err := markOutcome(ctx, deps.Tracker, issue.ID, domain.StatusResolved, ""); err != nil {
			_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "warning: failed to mark %s resolved: %v\n", issue.ID, err)
		}
	}
	for _, issue := range result.FailedIssues {
		if err := markOutcome(ctx, deps.Tracker, issue.ID, domain.StatusFailed, issue.LastError); err != nil {
			_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "warning: failed to mark %s failed: %v\n", issue.ID, err)
		}
	}

	_, _ = fmt.Fprintln(cmd.OutOrStdout(), result.Summary)
	if result.IsClean {
		_, _ = fmt.Fprintln(cmd.OutOrStdout(), color.GreenString("All issues verified clean."))
	}

	if deps.LoopReporter != nil {
		path, err := deps.LoopReporter(outputDir, deps.DefaultRepo, result)
		if err != nil {
			return fmt.Errorf("write loop report: %w", err)
		}
		_, _ = fmt.Fprintf(cmd.OutOrStdout(), "\nLoop report written to %s\n", path)
	}
	return nil
}

// markOutcome walks an issue through in_progress to its terminal state.
func markOutcome(ctx context.Context, tracker IssueTracker, id string, to domain.Status, reason string) error {
	if err := tracker.MarkInProgress(ctx, id); err != nil {
		return err
	}
	if to == domain.StatusResolved {
		return tracker.MarkResolved(ctx, id)
	}
	return tracker.MarkFailed(ctx, id, reason)
}

func findIssue(issues []domain.Issue, id string) (domain.Issue, bool) {
	for _, issue := range issues {
		if issue.ID == id {
			return issue, true
		}
	}
	return domain.Issue{}, false
}

func filterIssues(issues []domain.Issue, status, category, severity, file string) []domain.Issue {
	var filtered []domain.Issue
	for _, issue := range issues {
		if status != "" && string(issue.Status) != status {
			continue
		}
		if category != "" && string(issue.Category) != category {
			continue
		}
		if severity != "" && string(issue.Severity) != severity {
			continue
		}
		if file != "" && issue.File != file {
			continue
		}
		filtered = append(filtered, issue)
	}
	return filtered
}

func printIssueLine(w io.Writer, issue domain.Issue) {
	_, _ = fmt.Fprintf(w, "%s  %-7s  %s:%d  %s  [%s]\n",
		issue.ID,
		severityColor(issue.Severity).Sprint(issue.Severity),
		issue.File, issue.Line,
		issue.Message,
		issue.Status,
	)
}

func printSummary(w io.Writer, result domain.AnalysisResult) {
	_, _ = fmt.Fprintf(w, "Found %d issue(s) in %s (analyzers: %s)\n",
		result.Summary.Total,
		result.Duration.Round(time.Millisecond),
		strings.Join(result.AnalyzersRun, ", "),
	)
	for _, severity := range domain.Severities() {
		count := result.Summary.BySeverity[severity]
		if count == 0 {
			continue
		}
		_, _ = fmt.Fprintf(w, "  %s: %d\n", severityColor(severity).Sprint(severity), count)
	}
}

func printStats(w io.Writer, stats track.Stats) {
	_, _ = fmt.Fprintf(w, "Total: %d\n", stats.Total)
	for _, status := range domain.Statuses() {
		if count := stats.ByStatus[status]; count > 0 {
			_, _ = fmt.Fprintf(w, "  %s: %d\n", status, count)
		}
	}
	for _, severity := range domain.Severities() {
		if count := stats.BySeverity[severity]; count > 0 {
			_, _ = fmt.Fprintf(w, "  %s: %d\n", severityColor(severity).Sprint(severity), count)
		}
	}
}

func severityColor(severity domain.Severity) *color.Color {
	switch severity {
	case domain.SeverityError:
		return color.New(color.FgRed)
	case domain.SeverityWarning:
		return color.New(color.FgYellow)
	case domain.SeverityInfo:
		return color.New(color.FgCyan)
	default:
		return color.New(color.FgWhite)
	}
}

// startSpinner shows an activity indicator on interactive terminals.
// The returned func stops it and is safe to call when nothing started.
func startSpinner(w io.Writer, quiet bool, suffix string) func() {
	if quiet || !analyze.IsOutputTerminal() {
		return func() {}
	}
	s := spinner.New(spinner.CharSets[14], 120*time.Millisecond, spinner.WithWriter(w))
	s.Suffix = suffix
	s.Start()
	return s.Stop
}

func reporterNames(reporters map[string]ReportFunc) []string {
	names := make([]string, 0, len(reporters))
	for name := range reporters {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
