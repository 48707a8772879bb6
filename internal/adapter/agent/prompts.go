package agent

import (
	"fmt"
	"strings"

	"github.com/braedonsaunders/codetriage/internal/adapter/tools"
)

// completionSentinel is the phrase the backend emits when it has nothing
// further to report.
const completionSentinel = "ANALYSIS_COMPLETE"

// maxListedFiles caps the file listing embedded in the initial prompt.
const maxListedFiles = 50

// CreateIssueToolName identifies the intercepted issue-reporting tool.
const CreateIssueToolName = "create_issue"

// createIssueDef declares the create_issue tool. It is surfaced to the
// backend alongside the routed tools but handled by the loop itself.
func createIssueDef() ToolDef {
	return ToolDef{
		Name:        CreateIssueToolName,
		Description: "Report a code issue you have found. Call once per distinct issue.",
		Schema: tools.Schema{
			Type: "object",
			Properties: map[string]tools.Property{
				"category":    {Type: "string", Description: "One of: bug, security, lint, type, stub, duplicate, dead-code, coverage, llm"},
				"severity":    {Type: "string", Description: "One of: error, warning, info, hint"},
				"file":        {Type: "string", Description: "File path relative to the project root"},
				"line":        {Type: "integer", Description: "Line number of the issue"},
				"column":      {Type: "integer", Description: "Optional column number"},
				"message":     {Type: "string", Description: "Short one-line summary of the issue"},
				"description": {Type: "string", Description: "Optional longer explanation"},
				"suggestion":  {Type: "string", Description: "Optional suggested fix, advisory only"},
				"snippet":     {Type: "string", Description: "Optional code snippet showing the issue"},
			},
			Required: []string{"category", "severity", "file", "line", "message"},
		},
	}
}

// systemPrompt generates the system prompt describing the agent's task
// and available tools.
func systemPrompt(defs []ToolDef) string {
	var sb strings.Builder

	sb.WriteString(`You are a code analysis agent. Your task is to find real issues in the project: bugs, security problems, unfinished stubs, dead code, type errors, duplicated logic, and missing test coverage.

## How to work
1. Use the investigation tools to read files, search the code, and run the project checks.
2. For every distinct issue you confirm, call the ` + "`create_issue`" + ` tool with precise file, line, category, and severity.
3. Only report issues you have verified against the actual code. Do not guess.
4. When you have finished investigating and reported everything, respond with the single line ` + CompletionSentinel() + ` and no tool calls.

## Severity guidance
- error: will break at runtime or is an exploitable security flaw
- warning: likely incorrect or risky, needs human review
- info: notable but not harmful
- hint: minor improvement opportunity

## Available tools
`)

	for _, def := range defs {
		sb.WriteString(fmt.Sprintf("- **%s**: %s\n", def.Name, def.Description))
	}

	return sb.String()
}

// CompletionSentinel returns the completion marker the backend is asked
// to emit when finished.
func CompletionSentinel() string {
	return completionSentinel
}

// initialPrompt builds the first user message: project root, a capped
// file listing, pre-gathered check summaries, and focus hints.
func initialPrompt(root string, files []string, checkSummaries map[string]string, focusAreas []string) string {
	var sb strings.Builder

	sb.WriteString("## Project to Analyze\n\n")
	sb.WriteString(fmt.Sprintf("**Root**: %s\n", root))
	sb.WriteString(fmt.Sprintf("**Files**: %d\n\n", len(files)))

	listed := files
	if len(listed) > maxListedFiles {
		listed = listed[:maxListedFiles]
	}
	for _, f := range listed {
		sb.WriteString("- " + f + "\n")
	}
	if extra := len(files) - len(listed); extra > 0 {
		sb.WriteString(fmt.Sprintf("- ... +%d more\n", extra))
	}

	if len(checkSummaries) > 0 {
		sb.WriteString("\n## Project Check Results\n\n")
		for _, name := range []string{"run_lint", "run_typecheck", "run_tests", "run_build"} {
			if summary, ok := checkSummaries[name]; ok {
				sb.WriteString(fmt.Sprintf("### %s\n%s\n\n", name, summary))
			}
		}
	}

	if len(focusAreas) > 0 {
		sb.WriteString("\n## Focus Areas\n\n")
		sb.WriteString("Pay particular attention to: " + strings.Join(focusAreas, ", ") + "\n")
	}

	sb.WriteString("\nInvestigate the project and report every issue you can verify.\n")
	return sb.String()
}

// groupPrompt builds a single-turn prompt asking for issues across a
// batch of related files, with their contents inlined.
func groupPrompt(group []string, contents map[string]string) string {
	var sb strings.Builder

	sb.WriteString("Review the following related files together and report issues that span them: duplicated logic, inconsistent behavior, missing error handling shared across the group.\n\n")
	for _, f := range group {
		sb.WriteString(fmt.Sprintf("### %s\n```\n%s\n```\n\n", f, contents[f]))
	}
	sb.WriteString(`Respond with a JSON array of issues, each shaped as:
{"category": "...", "severity": "...", "file": "...", "line": 1, "message": "...", "description": "...", "suggestion": "..."}

Respond with an empty array if the group is clean. Do not call tools.
`)
	return sb.String()
}
