package analyze

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/braedonsaunders/codetriage/internal/domain"
)

// DefaultConcurrency bounds how many static analyzers run at once.
const DefaultConcurrency = 4

// AgentRunner is the inbound port of the agent-backed analysis path.
// Nil means no reasoning backend is available and only the static
// roster runs.
type AgentRunner interface {
	Run(ctx context.Context, files []string, root string, focusAreas []string) ([]domain.Issue, error)
}

// ProgressStatus marks a phase of an analyzer's run.
type ProgressStatus string

const (
	ProgressStarted   ProgressStatus = "started"
	ProgressCompleted ProgressStatus = "completed"
	ProgressFailed    ProgressStatus = "failed"
)

// Progress is one orchestration event. IssueCount is meaningful only
// for completed events, Err only for failed ones.
type Progress struct {
	Analyzer   string
	Status     ProgressStatus
	IssueCount int
	Err        error
}

// ProgressFunc receives orchestration events. It is called from the
// orchestrator's goroutine only, never concurrently.
type ProgressFunc func(Progress)

// Logger is the optional structured logging interface.
type Logger interface {
	LogInfo(ctx context.Context, message string, fields map[string]interface{})
	LogWarning(ctx context.Context, message string, fields map[string]interface{})
}

// Orchestrator runs a full analysis pass over a repository.
type Orchestrator struct {
	repo        Repository
	registry    *Registry
	agent       AgentRunner
	concurrency int
	maxIssues   int
	progress    ProgressFunc
	logger      Logger
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithAgent sets the agent-backed primary path.
func WithAgent(agent AgentRunner) Option {
	return func(o *Orchestrator) { o.agent = agent }
}

// WithConcurrency bounds the static analyzer batch size.
func WithConcurrency(n int) Option {
	return func(o *Orchestrator) {
		if n > 0 {
			o.concurrency = n
		}
	}
}

// WithMaxIssues caps the final issue list. Zero means unlimited.
func WithMaxIssues(n int) Option {
	return func(o *Orchestrator) { o.maxIssues = n }
}

// WithProgress registers a progress event callback.
func WithProgress(fn ProgressFunc) Option {
	return func(o *Orchestrator) { o.progress = fn }
}

// WithLogger sets the structured logger.
func WithLogger(logger Logger) Option {
	return func(o *Orchestrator) { o.logger = logger }
}

// NewOrchestrator creates an orchestrator over the given repository and
// static analyzer registry.
func NewOrchestrator(repo Repository, registry *Registry, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		repo:        repo,
		registry:    registry,
		concurrency: DefaultConcurrency,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Request describes one analysis run.
type Request struct {
	Include    []string
	Exclude    []string
	FocusAreas []string
}

// Analyze discovers files and runs the analysis pipeline. The agent
// path runs when configured; if it fails, the static roster runs once
// as a fallback. Individual analyzer failures are absorbed and reported
// through progress events. Only discovery errors propagate.
func (o *Orchestrator) Analyze(ctx context.Context, req Request) (domain.AnalysisResult, error) {
	start := time.Now()

	files, err := DiscoverFiles(o.repo, req.Include, req.Exclude)
	if err != nil {
		return domain.AnalysisResult{}, err
	}

	o.logInfo(ctx, "starting analysis", map[string]interface{}{
		"files":       len(files),
		"concurrency": o.concurrency,
		"agentic":     o.agent != nil,
	})

	if len(files) == 0 {
		return o.finish(nil, nil, start), nil
	}

	opts := Options{Root: o.repo.Root(), FocusAreas: req.FocusAreas}

	if o.agent != nil {
		issues, err := o.runAgent(ctx, files, req.FocusAreas)
		if err == nil {
			return o.finish(issues, []string{domain.AgentAnalyzerName}, start), nil
		}
		o.logWarning(ctx, "agent analysis failed, falling back to static analyzers", map[string]interface{}{
			"error": err.Error(),
		})
	}

	issues, ran := o.runRoster(ctx, files, opts)
	return o.finish(issues, ran, start), nil
}

func (o *Orchestrator) runAgent(ctx context.Context, files []string, focusAreas []string) ([]domain.Issue, error) {
	o.emit(Progress{Analyzer: domain.AgentAnalyzerName, Status: ProgressStarted})
	issues, err := o.agent.Run(ctx, files, o.repo.Root(), focusAreas)
	if err != nil {
		o.emit(Progress{Analyzer: domain.AgentAnalyzerName, Status: ProgressFailed, Err: err})
		return nil, err
	}
	o.emit(Progress{Analyzer: domain.AgentAnalyzerName, Status: ProgressCompleted, IssueCount: len(issues)})
	return issues, nil
}

// runRoster fans the static analyzers out in batches of concurrency.
// Every analyzer contributes either its issues or a failed progress
// event; nothing here returns an error.
func (o *Orchestrator) runRoster(ctx context.Context, files []string, opts Options) ([]domain.Issue, []string) {
	roster := o.registry.List()
	if len(roster) == 0 {
		return nil, nil
	}

	type outcome struct {
		name   string
		issues []domain.Issue
		err    error
	}

	var all []domain.Issue
	var ran []string

	for batchStart := 0; batchStart < len(roster); batchStart += o.concurrency {
		batchEnd := batchStart + o.concurrency
		if batchEnd > len(roster) {
			batchEnd = len(roster)
		}
		batch := roster[batchStart:batchEnd]

		for _, analyzer := range batch {
			o.emit(Progress{Analyzer: analyzer.Name(), Status: ProgressStarted})
		}

		var wg sync.WaitGroup
		results := make(chan outcome, len(batch))

		for _, analyzer := range batch {
			wg.Add(1)
			go func(a Analyzer) {
				defer func() {
					if r := recover(); r != nil {
						results <- outcome{name: a.Name(), err: fmt.Errorf("analyzer %s panicked: %v", a.Name(), r)}
					}
					wg.Done()
				}()
				issues, err := a.Analyze(ctx, files, opts)
				results <- outcome{name: a.Name(), issues: issues, err: err}
			}(analyzer)
		}

		wg.Wait()
		close(results)

		// Drain in registration order so progress and AnalyzersRun stay
		// deterministic regardless of goroutine scheduling.
		byName := make(map[string]outcome, len(batch))
		for res := range results {
			byName[res.name] = res
		}
		for _, analyzer := range batch {
			res := byName[analyzer.Name()]
			ran = append(ran, res.name)
			if res.err != nil {
				o.emit(Progress{Analyzer: res.name, Status: ProgressFailed, Err: res.err})
				o.logWarning(ctx, "analyzer failed", map[string]interface{}{
					"analyzer": res.name,
					"error":    res.err.Error(),
				})
				continue
			}
			o.emit(Progress{Analyzer: res.name, Status: ProgressCompleted, IssueCount: len(res.issues)})
			all = append(all, res.issues...)
		}
	}

	return all, ran
}

func (o *Orchestrator) finish(issues []domain.Issue, ran []string, start time.Time) domain.AnalysisResult {
	issues = Cap(Sort(Dedupe(issues)), o.maxIssues)
	if issues == nil {
		issues = []domain.Issue{}
	}
	if ran == nil {
		ran = []string{}
	}
	return domain.AnalysisResult{
		Issues:       issues,
		Summary:      domain.NewSummary(issues),
		Duration:     time.Since(start),
		AnalyzersRun: ran,
	}
}

func (o *Orchestrator) emit(event Progress) {
	if o.progress != nil {
		o.progress(event)
	}
}

func (o *Orchestrator) logInfo(ctx context.Context, msg string, fields map[string]interface{}) {
	if o.logger != nil {
		o.logger.LogInfo(ctx, msg, fields)
		return
	}
	log.Printf("%s %v", msg, fields)
}

func (o *Orchestrator) logWarning(ctx context.Context, msg string, fields map[string]interface{}) {
	if o.logger != nil {
		o.logger.LogWarning(ctx, msg, fields)
		return
	}
	log.Printf("warning: %s %v", msg, fields)
}
