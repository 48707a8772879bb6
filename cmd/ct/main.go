package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/braedonsaunders/codetriage/internal/adapter/agent"
	"github.com/braedonsaunders/codetriage/internal/adapter/analyzers"
	"github.com/braedonsaunders/codetriage/internal/adapter/cli"
	"github.com/braedonsaunders/codetriage/internal/adapter/llm/anthropic"
	llmhttp "github.com/braedonsaunders/codetriage/internal/adapter/llm/http"
	"github.com/braedonsaunders/codetriage/internal/adapter/llm/ollama"
	"github.com/braedonsaunders/codetriage/internal/adapter/llm/openai"
	"github.com/braedonsaunders/codetriage/internal/adapter/observability"
	jsonwriter "github.com/braedonsaunders/codetriage/internal/adapter/output/json"
	"github.com/braedonsaunders/codetriage/internal/adapter/output/markdown"
	"github.com/braedonsaunders/codetriage/internal/adapter/output/sarif"
	"github.com/braedonsaunders/codetriage/internal/adapter/repository"
	"github.com/braedonsaunders/codetriage/internal/adapter/store/sqlite"
	"github.com/braedonsaunders/codetriage/internal/adapter/tools"
	"github.com/braedonsaunders/codetriage/internal/config"
	"github.com/braedonsaunders/codetriage/internal/domain"
	"github.com/braedonsaunders/codetriage/internal/redaction"
	"github.com/braedonsaunders/codetriage/internal/usecase/analyze"
	"github.com/braedonsaunders/codetriage/internal/usecase/reanalyze"
	"github.com/braedonsaunders/codetriage/internal/usecase/track"
	"github.com/braedonsaunders/codetriage/internal/version"
)

func main() {
	if err := run(); err != nil {
		if errors.Is(err, cli.ErrShouldAnalyze) {
			os.Exit(1)
		}
		// Redact API keys from URLs in error messages before logging
		log.Println(llmhttp.RedactURLSecrets(err.Error()))
		os.Exit(1)
	}
}

func run() error {
	// Create cancellable context with signal handling for graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	cfg, err := config.Load(config.LoaderOptions{
		ConfigPaths: defaultConfigPaths(),
		FileName:    "ct",
		EnvPrefix:   "CT",
	})
	if err != nil {
		return fmt.Errorf("config load failed: %w", err)
	}

	repoDir := cfg.Git.RepositoryDir
	if repoDir == "" {
		repoDir = "."
	}
	repoName := repositoryName(repoDir)
	repo := repository.NewGitRepository(repoDir)

	obs := buildObservability(cfg.Observability)

	var analysisLogger analyze.Logger
	if obs != nil {
		analysisLogger = observability.NewAnalysisLogger(obs)
	}

	registry, err := analyzers.NewRoster(stringReader{repo: repo})
	if err != nil {
		return fmt.Errorf("build analyzer roster: %w", err)
	}

	checkCommands := buildCheckCommands(cfg.Checks)
	toolSet := tools.NewRegistry(repo, checkCommands)
	router := tools.NewRouter(toolSet,
		tools.WithLogger(analysisLogger),
		tools.WithRedactor(redaction.NewEngine()),
	)

	// Agentic path only when a backend credential is available.
	client := buildBackendClient(cfg, obs)
	var agentRunner analyze.AgentRunner
	if client != nil {
		loop := agent.NewLoop(client, router,
			agent.WithLogger(analysisLogger),
			agent.WithMaxIterations(cfg.Analysis.MaxIterations),
			agent.WithGroupAnalysis(true),
		)
		agentRunner = &loopRunner{loop: loop}
	}

	baseOpts := []analyze.Option{
		analyze.WithConcurrency(cfg.Analysis.Concurrency),
		analyze.WithMaxIssues(cfg.Analysis.MaxIssues),
		analyze.WithLogger(analysisLogger),
	}
	orchestrator := analyze.NewOrchestrator(repo, registry, append(baseOpts, analyze.WithAgent(agentRunner))...)
	staticOrchestrator := analyze.NewOrchestrator(repo, registry, baseOpts...)

	// Timestamp function for deterministic output file naming
	nowFunc := func() string {
		return time.Now().UTC().Format("20060102T150405Z")
	}
	markdownWriter := markdown.NewWriter(nowFunc)
	jsonWriter := jsonwriter.NewWriter(nowFunc)
	sarifWriter := sarif.NewWriter(nowFunc)

	reporters := map[string]cli.ReportFunc{
		"markdown": func(ctx context.Context, outputDir, repository string, result domain.AnalysisResult) (string, error) {
			return markdownWriter.Write(ctx, markdown.Artifact{OutputDir: outputDir, Repository: repository, Result: result})
		},
		"json": func(ctx context.Context, outputDir, repository string, result domain.AnalysisResult) (string, error) {
			return jsonWriter.Write(ctx, jsonwriter.Artifact{OutputDir: outputDir, Repository: repository, Result: result})
		},
		"sarif": func(ctx context.Context, outputDir, repository string, result domain.AnalysisResult) (string, error) {
			return sarifWriter.Write(ctx, sarif.Artifact{OutputDir: outputDir, Repository: repository, Result: result})
		},
	}

	var tracker cli.IssueTracker
	var recordRun func(ctx context.Context, result domain.AnalysisResult) error
	if cfg.Store.Enabled {
		storeDir := filepath.Dir(cfg.Store.Path)
		if err := os.MkdirAll(storeDir, 0o755); err != nil {
			log.Printf("warning: failed to create store directory: %v", err)
		} else {
			store, err := sqlite.NewStore(cfg.Store.Path)
			if err != nil {
				log.Printf("warning: failed to initialize store: %v", err)
			} else {
				defer store.Close()
				tracker = track.NewTracker(store, repoName, track.WithLogger(analysisLogger))
				recordRun = func(ctx context.Context, result domain.AnalysisResult) error {
					return store.SaveRun(ctx, sqlite.RunRecord{
						RunID:       uuid.NewString(),
						SessionID:   repoName,
						StartedAt:   time.Now().UTC().Add(-result.Duration),
						Duration:    result.Duration,
						TotalIssues: result.Summary.Total,
						Analyzers:   result.AnalyzersRun,
					})
				}
			}
		}
	}

	verifierOpts := []reanalyze.Option{
		reanalyze.WithReader(stringReader{repo: repo}),
		reanalyze.WithLogger(analysisLogger),
	}
	if client != nil {
		verifierOpts = append(verifierOpts, reanalyze.WithJudge(&clientJudge{client: client}))
	}
	verifier := reanalyze.NewReAnalyzer(buildCheckers(repo, checkCommands), verifierOpts...)

	root := cli.NewRootCommand(cli.Dependencies{
		Runner:         orchestrator,
		StaticRunner:   staticOrchestrator,
		Tracker:        tracker,
		Verifier:       verifier,
		Reporters:      reporters,
		LoopReporter:   jsonwriter.WriteLoopReport,
		RecordRun:      recordRun,
		DefaultOutput:  cfg.Output.Directory,
		DefaultFormat:  cfg.Output.Format,
		DefaultRepo:    repoName,
		DefaultInclude: cfg.Analysis.Include,
		DefaultExclude: cfg.Analysis.Exclude,
		DefaultFocus:   cfg.Analysis.FocusAreas,
		LoopIterations: cfg.Loop.MaxIterations,
		StopOnClean:    cfg.Loop.StopOnClean,
		Version:        version.Value(),
	})

	if err := root.ExecuteContext(ctx); err != nil {
		if errors.Is(err, cli.ErrVersionRequested) {
			return nil
		}
		if errors.Is(err, cli.ErrShouldAnalyze) {
			return err
		}
		return fmt.Errorf("command failed: %w", err)
	}
	return nil
}

func repositoryName(repoDir string) string {
	abs, err := filepath.Abs(repoDir)
	if err != nil {
		return "unknown"
	}
	return filepath.Base(abs)
}

func defaultConfigPaths() []string {
	paths := []string{"."}
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".config", "ct"))
	}
	return paths
}

// buildObservability creates the structured logger based on configuration.
func buildObservability(cfg config.ObservabilityConfig) llmhttp.Logger {
	if !cfg.Logging.Enabled {
		return nil
	}

	logLevel := llmhttp.LogLevelInfo
	switch cfg.Logging.Level {
	case "debug":
		logLevel = llmhttp.LogLevelDebug
	case "error":
		logLevel = llmhttp.LogLevelError
	}

	logFormat := llmhttp.LogFormatHuman
	if cfg.Logging.Format == "json" {
		logFormat = llmhttp.LogFormatJSON
	}

	return llmhttp.NewDefaultLogger(logLevel, logFormat, cfg.Logging.RedactAPIKeys)
}

// buildBackendClient discovers a credential and constructs the matching
// reasoning backend. Returns nil when no backend is available, which
// leaves the static roster as the only analysis path.
func buildBackendClient(cfg config.Config, logger llmhttp.Logger) agent.Client {
	explicit := analyze.Backend(cfg.Backend)
	providerCfg := cfg.Providers[cfg.Backend]

	cred, ok := analyze.DiscoverCredential(explicit, providerCfg.APIKey, os.Getenv)
	if !ok {
		log.Println("no backend credential found, static analyzers only")
		return nil
	}

	backendCfg := cfg.Providers[string(cred.Backend)]
	model := backendCfg.Model
	retry := buildRetryConfig(cfg.HTTP, backendCfg)

	switch cred.Backend {
	case analyze.BackendAnthropic:
		if model == "" {
			model = "claude-sonnet-4-20250514"
		}
		client := anthropic.NewClient(cred.APIKey, model)
		applyHTTPOverrides(client, backendCfg, cfg.HTTP)
		client.SetRetryConfig(retry)
		if logger != nil {
			client.SetLogger(logger)
		}
		return client

	case analyze.BackendOpenAI:
		if model == "" {
			model = "gpt-4o"
		}
		client := openai.NewClient(cred.APIKey, model)
		applyHTTPOverrides(client, backendCfg, cfg.HTTP)
		client.SetRetryConfig(retry)
		if logger != nil {
			client.SetLogger(logger)
		}
		return client

	case analyze.BackendOpenRouter:
		if model == "" {
			model = "anthropic/claude-sonnet-4"
		}
		client := openai.NewOpenRouterClient(cred.APIKey, model)
		applyHTTPOverrides(client, backendCfg, cfg.HTTP)
		client.SetRetryConfig(retry)
		if logger != nil {
			client.SetLogger(logger)
		}
		return client

	case analyze.BackendOllama:
		if model == "" {
			model = "qwen2.5-coder"
		}
		client := ollama.NewClient(model)
		if host := os.Getenv("OLLAMA_HOST"); host != "" {
			client.SetBaseURL(host)
		} else if backendCfg.BaseURL != "" {
			client.SetBaseURL(backendCfg.BaseURL)
		}
		if logger != nil {
			client.SetLogger(logger)
		}
		return client

	default:
		log.Printf("unsupported backend %q, static analyzers only", cred.Backend)
		return nil
	}
}

// httpClient is the configuration surface shared by remote backends.
type httpClient interface {
	SetBaseURL(url string)
	SetTimeout(timeout time.Duration)
}

func applyHTTPOverrides(client httpClient, providerCfg config.ProviderConfig, httpCfg config.HTTPConfig) {
	if providerCfg.BaseURL != "" {
		client.SetBaseURL(providerCfg.BaseURL)
	}

	timeout := httpCfg.Timeout
	if providerCfg.Timeout != nil {
		timeout = *providerCfg.Timeout
	}
	if timeout != "" {
		if parsed, err := time.ParseDuration(timeout); err == nil {
			client.SetTimeout(parsed)
		} else {
			log.Printf("warning: invalid timeout %q, using client default", timeout)
		}
	}
}

func buildRetryConfig(httpCfg config.HTTPConfig, providerCfg config.ProviderConfig) llmhttp.RetryConfig {
	retry := llmhttp.DefaultRetryConfig()

	if httpCfg.MaxRetries > 0 {
		retry.MaxRetries = httpCfg.MaxRetries
	}
	if providerCfg.MaxRetries != nil && *providerCfg.MaxRetries > 0 {
		retry.MaxRetries = *providerCfg.MaxRetries
	}
	if httpCfg.BackoffMultiplier > 0 {
		retry.Multiplier = httpCfg.BackoffMultiplier
	}

	initial := httpCfg.InitialBackoff
	if providerCfg.InitialBackoff != nil {
		initial = *providerCfg.InitialBackoff
	}
	if initial != "" {
		if parsed, err := time.ParseDuration(initial); err == nil {
			retry.InitialBackoff = parsed
		}
	}

	max := httpCfg.MaxBackoff
	if providerCfg.MaxBackoff != nil {
		max = *providerCfg.MaxBackoff
	}
	if max != "" {
		if parsed, err := time.ParseDuration(max); err == nil {
			retry.MaxBackoff = parsed
		}
	}

	return retry
}

func buildCheckCommands(cfg config.ChecksConfig) tools.CheckCommands {
	commands := tools.DefaultGoCheckCommands()
	if cfg.Lint != "" {
		commands.Lint = strings.Fields(cfg.Lint)
	}
	if cfg.TypeCheck != "" {
		commands.Typecheck = strings.Fields(cfg.TypeCheck)
	}
	if cfg.Tests != "" {
		commands.Tests = strings.Fields(cfg.Tests)
	}
	if cfg.Build != "" {
		commands.Build = strings.Fields(cfg.Build)
	}
	return commands
}

func buildCheckers(repo tools.Repository, commands tools.CheckCommands) []reanalyze.Checker {
	return []reanalyze.Checker{
		tools.NewLintTool(repo, commands.Lint),
		tools.NewTypecheckTool(repo, commands.Typecheck),
		tools.NewTestsTool(repo, commands.Tests),
		tools.NewBuildTool(repo, commands.Build),
	}
}

// loopRunner adapts the agent loop to the orchestrator's runner port.
type loopRunner struct {
	loop *agent.Loop
}

func (r *loopRunner) Run(ctx context.Context, files []string, root string, focusAreas []string) ([]domain.Issue, error) {
	return r.loop.Run(ctx, files, agent.RunOptions{Root: root, FocusAreas: focusAreas})
}

// stringReader adapts the repository's byte reads to the string Reader
// interfaces of the static roster and the judgement prompt builder.
type stringReader struct {
	repo *repository.GitRepository
}

func (r stringReader) ReadFile(path string) (string, error) {
	data, err := r.repo.ReadFile(path)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// clientJudge adapts a reasoning backend to the re-analysis judge port.
type clientJudge struct {
	client agent.Client
}

func (j *clientJudge) Assess(ctx context.Context, prompt string) (string, error) {
	resp, err := j.client.Send(ctx, "", []agent.Message{{Role: agent.RoleUser, Content: prompt}}, nil)
	if err != nil {
		return "", err
	}
	return resp.Text, nil
}

// Compile-time interface compliance checks
var _ analyze.Repository = (*repository.GitRepository)(nil)
var _ tools.Repository = (*repository.GitRepository)(nil)
var _ analyzers.Reader = stringReader{}
var _ reanalyze.Reader = stringReader{}
var _ cli.AnalysisRunner = (*analyze.Orchestrator)(nil)
var _ cli.IssueTracker = (*track.Tracker)(nil)
var _ cli.IssueVerifier = (*reanalyze.ReAnalyzer)(nil)
var _ analyze.AgentRunner = (*loopRunner)(nil)
var _ reanalyze.Judge = (*clientJudge)(nil)
var _ agent.Client = (*anthropic.Client)(nil)
var _ agent.Client = (*openai.Client)(nil)
var _ agent.Client = (*ollama.Client)(nil)
