package tools

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/braedonsaunders/codetriage/internal/domain"
)

// CheckCommands holds the operator-configured commands for each
// verification check. A nil entry disables that check.
type CheckCommands struct {
	Lint      []string
	Typecheck []string
	Tests     []string
	Build     []string
}

// DefaultGoCheckCommands returns the check commands for a Go project.
func DefaultGoCheckCommands() CheckCommands {
	return CheckCommands{
		Lint:      []string{"go", "vet", "./..."},
		Typecheck: []string{"go", "build", "-o", "/dev/null", "./..."},
		Tests:     []string{"go", "test", "./..."},
		Build:     []string{"go", "build", "./..."},
	}
}

var (
	errorLineRe   = regexp.MustCompile(`(?i)\berror\b|\bfail(ed|ure)?\b`)
	warningLineRe = regexp.MustCompile(`(?i)\bwarn(ing)?\b`)
)

// CheckTool runs a configured verification command (lint, typecheck,
// tests, or build) and reports pass/fail with error and warning counts.
type CheckTool struct {
	name        string
	description string
	command     []string
	repo        Repository
}

// NewLintTool creates the run_lint tool.
func NewLintTool(repo Repository, command []string) *CheckTool {
	return &CheckTool{
		name:        "run_lint",
		description: "Run the project linter and report findings",
		command:     command,
		repo:        repo,
	}
}

// NewTypecheckTool creates the run_typecheck tool.
func NewTypecheckTool(repo Repository, command []string) *CheckTool {
	return &CheckTool{
		name:        "run_typecheck",
		description: "Run the project type checker and report findings",
		command:     command,
		repo:        repo,
	}
}

// NewTestsTool creates the run_tests tool.
func NewTestsTool(repo Repository, command []string) *CheckTool {
	return &CheckTool{
		name:        "run_tests",
		description: "Run the project test suite and report results",
		command:     command,
		repo:        repo,
	}
}

// NewBuildTool creates the run_build tool.
func NewBuildTool(repo Repository, command []string) *CheckTool {
	return &CheckTool{
		name:        "run_build",
		description: "Build the project and report compilation errors",
		command:     command,
		repo:        repo,
	}
}

// Name returns the tool name.
func (t *CheckTool) Name() string {
	return t.name
}

// Description returns the tool description.
func (t *CheckTool) Description() string {
	return t.description
}

// Schema returns the tool's parameter schema.
func (t *CheckTool) Schema() Schema {
	return Schema{
		Type: "object",
		Properties: map[string]Property{
			"target": {Type: "string", Description: "Optional file or package path to restrict the check to"},
		},
	}
}

// Enabled reports whether a command is configured for this check.
func (t *CheckTool) Enabled() bool {
	return len(t.command) > 0
}

// Run executes the check and returns a structured result.
// A nonzero exit is a failed check, not an error; errors are reserved
// for the command being unrunnable.
func (t *CheckTool) Run(ctx context.Context, target string) (domain.CheckResult, error) {
	if !t.Enabled() {
		return domain.CheckResult{}, fmt.Errorf("%s: no command configured", t.name)
	}

	args := append([]string{}, t.command[1:]...)
	if target != "" {
		if err := validatePath(target); err != nil {
			return domain.CheckResult{}, err
		}
		args = append(args, target)
	}

	result, err := t.repo.RunCommand(ctx, t.command[0], args...)
	if err != nil {
		return domain.CheckResult{}, fmt.Errorf("%s: %w", t.name, err)
	}

	combined := result.Stdout
	if result.Stderr != "" {
		if combined != "" {
			combined += "\n"
		}
		combined += result.Stderr
	}

	errCount, warnCount := countDiagnostics(combined)
	return domain.CheckResult{
		Passed:   result.Success(),
		Errors:   errCount,
		Warnings: warnCount,
		Output:   truncateOutput(combined),
	}, nil
}

// Execute runs the check and formats the result for the agent.
func (t *CheckTool) Execute(ctx context.Context, params map[string]interface{}) (string, error) {
	target, err := stringParam(params, "target", false)
	if err != nil {
		return "", err
	}

	check, err := t.Run(ctx, strings.TrimSpace(target))
	if err != nil {
		return "", err
	}

	status := "PASSED"
	if !check.Passed {
		status = "FAILED"
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%s: %s (%d errors, %d warnings)\n", t.name, status, check.Errors, check.Warnings))
	if check.Output != "" {
		sb.WriteString(check.Output)
	}
	return truncateOutput(sb.String()), nil
}

// countDiagnostics counts lines that look like errors or warnings.
// A line matching both counts once, as an error.
func countDiagnostics(output string) (errors, warnings int) {
	for _, line := range strings.Split(output, "\n") {
		switch {
		case errorLineRe.MatchString(line):
			errors++
		case warningLineRe.MatchString(line):
			warnings++
		}
	}
	return errors, warnings
}

// NewRegistry creates the full routed tool set for a repository.
// The create_issue tool is not listed here; the agent loop intercepts
// it before routing.
func NewRegistry(repo Repository, commands CheckCommands) []Tool {
	return []Tool{
		NewLintTool(repo, commands.Lint),
		NewTypecheckTool(repo, commands.Typecheck),
		NewTestsTool(repo, commands.Tests),
		NewBuildTool(repo, commands.Build),
		NewReadFileTool(repo),
		NewSearchCodeTool(repo),
		NewListFilesTool(repo),
		NewFileInfoTool(repo),
	}
}
