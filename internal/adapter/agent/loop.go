package agent

import (
	"context"
	"fmt"
	"log"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/braedonsaunders/codetriage/internal/adapter/tools"
	"github.com/braedonsaunders/codetriage/internal/domain"
)

// DefaultMaxIterations bounds the conversation with the reasoning backend.
const DefaultMaxIterations = 10

// maxGroupPrompts caps the number of single-turn group analysis calls.
const maxGroupPrompts = 3

// maxGroupFiles caps how many files are inlined into one group prompt.
const maxGroupFiles = 5

// checkContextLimit caps how much of each pre-gathered check summary is
// embedded in the initial prompt.
const checkContextLimit = 1500

// Logger allows the loop to emit diagnostics without depending on a
// concrete logging implementation.
type Logger interface {
	LogInfo(ctx context.Context, msg string, fields map[string]interface{})
	LogWarning(ctx context.Context, msg string, fields map[string]interface{})
}

// Loop drives a bounded multi-turn conversation with a reasoning backend,
// dispatching tool calls through the router and accumulating issues the
// backend reports via create_issue or structured output.
type Loop struct {
	client        Client
	router        *tools.Router
	logger        Logger
	maxIterations int
	groupAnalysis bool
	now           func() time.Time
}

// Option configures a Loop.
type Option func(*Loop)

// WithLogger attaches a logger to the loop.
func WithLogger(logger Logger) Option {
	return func(l *Loop) {
		l.logger = logger
	}
}

// WithMaxIterations overrides the iteration budget.
func WithMaxIterations(n int) Option {
	return func(l *Loop) {
		if n > 0 {
			l.maxIterations = n
		}
	}
}

// WithGroupAnalysis enables the secondary group analysis pass.
func WithGroupAnalysis(enabled bool) Option {
	return func(l *Loop) {
		l.groupAnalysis = enabled
	}
}

// WithClock overrides the time source for deterministic tests.
func WithClock(now func() time.Time) Option {
	return func(l *Loop) {
		l.now = now
	}
}

// NewLoop creates an analysis loop over a backend client and tool router.
func NewLoop(client Client, router *tools.Router, opts ...Option) *Loop {
	l := &Loop{
		client:        client,
		router:        router,
		maxIterations: DefaultMaxIterations,
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// RunOptions parameterize a single analysis run.
type RunOptions struct {
	// Root is the project root path, shown to the backend.
	Root string

	// FocusAreas are optional hints about what to prioritize.
	FocusAreas []string
}

// Run analyzes the given files and returns every issue the backend
// reported. A backend failure mid-conversation stops the loop early and
// returns whatever was collected so far; only a failure before any turn
// completes is surfaced as an error.
func (l *Loop) Run(ctx context.Context, files []string, opts RunOptions) ([]domain.Issue, error) {
	defs := l.toolDefs()
	system := systemPrompt(defs)
	checkSummaries := l.gatherCheckContext(ctx)

	messages := []Message{{
		Role:    RoleUser,
		Content: initialPrompt(opts.Root, files, checkSummaries, opts.FocusAreas),
	}}

	var collected []domain.Issue
	seen := make(map[domain.DedupKey]bool)
	turns := 0

	for i := 0; i < l.maxIterations; i++ {
		if ctx.Err() != nil {
			break
		}

		resp, err := l.client.Send(ctx, system, messages, defs)
		if err != nil {
			if turns == 0 {
				return nil, fmt.Errorf("reasoning backend: %w", err)
			}
			l.logWarning(ctx, "backend call failed, stopping early", map[string]interface{}{
				"iteration": i,
				"error":     err.Error(),
			})
			break
		}
		turns++

		if len(resp.ToolCalls) > 0 {
			messages = append(messages, Message{
				Role:      RoleAssistant,
				Content:   resp.Text,
				ToolCalls: resp.ToolCalls,
			})
			// Tool calls run strictly in order; later calls may depend on
			// earlier results the model has not seen yet.
			for _, call := range resp.ToolCalls {
				result := l.dispatch(ctx, call, seen, &collected)
				messages = append(messages, Message{
					Role:       RoleTool,
					Content:    result,
					ToolCallID: call.ID,
				})
			}
			continue
		}

		parsed := l.merge(parseIssues(resp.Text, l.client.Name(), l.now()), seen, &collected)
		if strings.Contains(resp.Text, completionSentinel) || parsed == 0 {
			break
		}

		messages = append(messages,
			Message{Role: RoleAssistant, Content: resp.Text},
			Message{Role: RoleUser, Content: "Recorded. Continue investigating, or respond with " + completionSentinel + " if you are done."},
		)
	}

	if l.groupAnalysis {
		l.runGroupAnalysis(ctx, files, seen, &collected)
	}

	l.logInfo(ctx, "analysis loop finished", map[string]interface{}{
		"turns":  turns,
		"issues": len(collected),
	})
	return collected, nil
}

// dispatch executes one tool call, intercepting create_issue.
// It always returns result text to feed back into the conversation.
func (l *Loop) dispatch(ctx context.Context, call ToolCall, seen map[domain.DedupKey]bool, collected *[]domain.Issue) string {
	if call.Name == CreateIssueToolName {
		issue, ok := issueFromParams(call.Params, l.client.Name(), l.now())
		if !ok {
			return "Issue rejected: file and message are required"
		}
		if seen[issue.Key()] {
			return "Issue already recorded, not duplicated"
		}
		seen[issue.Key()] = true
		*collected = append(*collected, issue)
		return fmt.Sprintf("Issue recorded: [%s/%s] %s:%d %s",
			issue.Category, issue.Severity, issue.File, issue.Line, issue.Message)
	}

	output, err := l.router.Call(ctx, call.Name, call.Params)
	if err != nil {
		return "Error: " + err.Error()
	}
	return output
}

// merge appends issues not seen before and returns how many were new.
func (l *Loop) merge(issues []domain.Issue, seen map[domain.DedupKey]bool, collected *[]domain.Issue) int {
	added := 0
	for _, issue := range issues {
		if seen[issue.Key()] {
			continue
		}
		seen[issue.Key()] = true
		*collected = append(*collected, issue)
		added++
	}
	return added
}

// gatherCheckContext runs each configured check once up front so the
// backend starts with lint/typecheck/test/build results. Best-effort:
// failures are logged and skipped.
func (l *Loop) gatherCheckContext(ctx context.Context) map[string]string {
	summaries := make(map[string]string)
	for _, name := range []string{"run_lint", "run_typecheck", "run_tests", "run_build"} {
		if !l.router.Has(name) {
			continue
		}
		output, err := l.router.Call(ctx, name, map[string]interface{}{})
		if err != nil {
			l.logWarning(ctx, "pre-analysis check failed", map[string]interface{}{
				"tool":  name,
				"error": err.Error(),
			})
			continue
		}
		if len(output) > checkContextLimit {
			output = output[:checkContextLimit] + "\n... [truncated]"
		}
		summaries[name] = output
	}
	return summaries
}

// runGroupAnalysis sends a few single-turn, tool-free prompts over
// batches of related files and merges any reported issues.
func (l *Loop) runGroupAnalysis(ctx context.Context, files []string, seen map[domain.DedupKey]bool, collected *[]domain.Issue) {
	groups := groupByDirectory(files)
	if len(groups) > maxGroupPrompts {
		groups = groups[:maxGroupPrompts]
	}

	for _, group := range groups {
		if ctx.Err() != nil {
			return
		}

		contents := make(map[string]string, len(group))
		for _, f := range group {
			output, err := l.router.Call(ctx, "read_file", map[string]interface{}{"path": f})
			if err != nil {
				continue
			}
			contents[f] = output
		}
		if len(contents) == 0 {
			continue
		}

		messages := []Message{{Role: RoleUser, Content: groupPrompt(group, contents)}}
		resp, err := l.client.Send(ctx, systemPrompt(nil), messages, nil)
		if err != nil {
			l.logWarning(ctx, "group analysis call failed", map[string]interface{}{
				"files": strings.Join(group, ","),
				"error": err.Error(),
			})
			continue
		}
		l.merge(parseIssues(resp.Text, l.client.Name(), l.now()), seen, collected)
	}
}

// groupByDirectory batches files that share a directory, largest
// directories first, capped at maxGroupFiles per group. Single-file
// directories are not worth a group pass.
func groupByDirectory(files []string) [][]string {
	byDir := make(map[string][]string)
	for _, f := range files {
		dir := filepath.Dir(f)
		byDir[dir] = append(byDir[dir], f)
	}

	dirs := make([]string, 0, len(byDir))
	for dir, group := range byDir {
		if len(group) < 2 {
			continue
		}
		dirs = append(dirs, dir)
	}
	sort.Slice(dirs, func(i, j int) bool {
		if len(byDir[dirs[i]]) != len(byDir[dirs[j]]) {
			return len(byDir[dirs[i]]) > len(byDir[dirs[j]])
		}
		return dirs[i] < dirs[j]
	})

	groups := make([][]string, 0, len(dirs))
	for _, dir := range dirs {
		group := byDir[dir]
		sort.Strings(group)
		if len(group) > maxGroupFiles {
			group = group[:maxGroupFiles]
		}
		groups = append(groups, group)
	}
	return groups
}

// toolDefs declares the routed tools plus the intercepted create_issue.
func (l *Loop) toolDefs() []ToolDef {
	routed := l.router.Tools()
	defs := make([]ToolDef, 0, len(routed)+1)
	for _, t := range routed {
		defs = append(defs, ToolDef{
			Name:        t.Name(),
			Description: t.Description(),
			Schema:      t.Schema(),
		})
	}
	return append(defs, createIssueDef())
}

func (l *Loop) logInfo(ctx context.Context, msg string, fields map[string]interface{}) {
	if l.logger != nil {
		l.logger.LogInfo(ctx, msg, fields)
	}
}

func (l *Loop) logWarning(ctx context.Context, msg string, fields map[string]interface{}) {
	if l.logger != nil {
		l.logger.LogWarning(ctx, msg, fields)
		return
	}
	log.Printf("WARN: %s %v", msg, fields)
}
