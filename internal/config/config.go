package config

// Config represents the full application configuration.
type Config struct {
	Backend       string                    `yaml:"backend"`
	Providers     map[string]ProviderConfig `yaml:"providers"`
	HTTP          HTTPConfig                `yaml:"http"`
	Analysis      AnalysisConfig            `yaml:"analysis"`
	Checks        ChecksConfig              `yaml:"checks"`
	Loop          LoopConfig                `yaml:"loop"`
	Git           GitConfig                 `yaml:"git"`
	Output        OutputConfig              `yaml:"output"`
	Store         StoreConfig               `yaml:"store"`
	Observability ObservabilityConfig       `yaml:"observability"`
}

// ProviderConfig configures a single LLM backend.
type ProviderConfig struct {
	Enabled bool   `yaml:"enabled"`
	Model   string `yaml:"model"`
	APIKey  string `yaml:"apiKey"`
	BaseURL string `yaml:"baseURL,omitempty"`

	// HTTP overrides (optional, use global HTTP config if not set)
	Timeout        *string `yaml:"timeout,omitempty"`
	MaxRetries     *int    `yaml:"maxRetries,omitempty"`
	InitialBackoff *string `yaml:"initialBackoff,omitempty"`
	MaxBackoff     *string `yaml:"maxBackoff,omitempty"`
}

// HTTPConfig holds global HTTP client settings.
type HTTPConfig struct {
	Timeout           string  `yaml:"timeout"`
	MaxRetries        int     `yaml:"maxRetries"`
	InitialBackoff    string  `yaml:"initialBackoff"`
	MaxBackoff        string  `yaml:"maxBackoff"`
	BackoffMultiplier float64 `yaml:"backoffMultiplier"`
}

// AnalysisConfig configures file discovery and the analysis run itself.
type AnalysisConfig struct {
	Include       []string `yaml:"include"`
	Exclude       []string `yaml:"exclude"`
	FocusAreas    []string `yaml:"focusAreas"`
	Concurrency   int      `yaml:"concurrency"`
	MaxIssues     int      `yaml:"maxIssues"`
	MaxIterations int      `yaml:"maxIterations"` // agent conversation rounds
}

// ChecksConfig configures the external verification commands run during
// re-analysis. An empty command disables the corresponding check.
type ChecksConfig struct {
	Lint      string `yaml:"lint"`
	TypeCheck string `yaml:"typecheck"`
	Tests     string `yaml:"tests"`
	Build     string `yaml:"build"`
}

// LoopConfig configures the fix/verify loop behavior.
type LoopConfig struct {
	MaxIterations int  `yaml:"maxIterations"`
	StopOnClean   bool `yaml:"stopOnClean"`
}

type GitConfig struct {
	RepositoryDir string `yaml:"repositoryDir"`
}

// OutputConfig configures report generation. Format selects between
// markdown and json reports.
type OutputConfig struct {
	Directory string `yaml:"directory"`
	Format    string `yaml:"format"`
}

// StoreConfig configures the persistence layer.
type StoreConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// ObservabilityConfig configures logging.
type ObservabilityConfig struct {
	Logging LoggingConfig `yaml:"logging"`
}

// LoggingConfig configures request/response logging.
type LoggingConfig struct {
	Enabled       bool   `yaml:"enabled"`
	Level         string `yaml:"level"`         // debug, info, error
	Format        string `yaml:"format"`        // json, human
	RedactAPIKeys bool   `yaml:"redactAPIKeys"` // Redact API keys in logs
}

// Merge combines multiple configuration instances, prioritising the latter ones.
func Merge(configs ...Config) Config {
	result := Config{}
	for _, cfg := range configs {
		result = merge(result, cfg)
	}
	return result
}

func merge(base, overlay Config) Config {
	result := base

	if overlay.Backend != "" {
		result.Backend = overlay.Backend
	}
	result.HTTP = chooseHTTP(base.HTTP, overlay.HTTP)
	result.Analysis = chooseAnalysis(base.Analysis, overlay.Analysis)
	result.Checks = chooseChecks(base.Checks, overlay.Checks)
	result.Loop = chooseLoop(base.Loop, overlay.Loop)
	result.Git = chooseGit(base.Git, overlay.Git)
	result.Output = chooseOutput(base.Output, overlay.Output)
	result.Store = chooseStore(base.Store, overlay.Store)
	result.Observability = chooseObservability(base.Observability, overlay.Observability)
	result.Providers = mergeProviders(base.Providers, overlay.Providers)

	return result
}

func mergeProviders(base, overlay map[string]ProviderConfig) map[string]ProviderConfig {
	if len(base) == 0 && len(overlay) == 0 {
		return nil
	}
	result := make(map[string]ProviderConfig, len(base)+len(overlay))
	for key, value := range base {
		result[key] = value
	}
	for key, value := range overlay {
		result[key] = value
	}
	return result
}

func chooseHTTP(base, overlay HTTPConfig) HTTPConfig {
	if overlay.Timeout != "" || overlay.MaxRetries != 0 || overlay.InitialBackoff != "" || overlay.MaxBackoff != "" || overlay.BackoffMultiplier != 0 {
		return overlay
	}
	return base
}

func chooseAnalysis(base, overlay AnalysisConfig) AnalysisConfig {
	result := base

	if len(overlay.Include) > 0 {
		result.Include = overlay.Include
	}
	if len(overlay.Exclude) > 0 {
		result.Exclude = overlay.Exclude
	}
	if len(overlay.FocusAreas) > 0 {
		result.FocusAreas = overlay.FocusAreas
	}
	if overlay.Concurrency != 0 {
		result.Concurrency = overlay.Concurrency
	}
	if overlay.MaxIssues != 0 {
		result.MaxIssues = overlay.MaxIssues
	}
	if overlay.MaxIterations != 0 {
		result.MaxIterations = overlay.MaxIterations
	}

	return result
}

func chooseChecks(base, overlay ChecksConfig) ChecksConfig {
	if overlay.Lint != "" || overlay.TypeCheck != "" || overlay.Tests != "" || overlay.Build != "" {
		return mergeChecks(base, overlay)
	}
	return base
}

func mergeChecks(base, overlay ChecksConfig) ChecksConfig {
	result := base
	if overlay.Lint != "" {
		result.Lint = overlay.Lint
	}
	if overlay.TypeCheck != "" {
		result.TypeCheck = overlay.TypeCheck
	}
	if overlay.Tests != "" {
		result.Tests = overlay.Tests
	}
	if overlay.Build != "" {
		result.Build = overlay.Build
	}
	return result
}

func chooseLoop(base, overlay LoopConfig) LoopConfig {
	if overlay.MaxIterations != 0 || overlay.StopOnClean {
		return overlay
	}
	return base
}

func chooseGit(base, overlay GitConfig) GitConfig {
	if overlay.RepositoryDir != "" {
		return overlay
	}
	return base
}

func chooseOutput(base, overlay OutputConfig) OutputConfig {
	result := base
	if overlay.Directory != "" {
		result.Directory = overlay.Directory
	}
	if overlay.Format != "" {
		result.Format = overlay.Format
	}
	return result
}

func chooseStore(base, overlay StoreConfig) StoreConfig {
	if overlay.Enabled || overlay.Path != "" {
		return overlay
	}
	return base
}

func chooseObservability(base, overlay ObservabilityConfig) ObservabilityConfig {
	result := base

	if overlay.Logging.Enabled || overlay.Logging.Level != "" || overlay.Logging.Format != "" {
		result.Logging = overlay.Logging
	}

	return result
}
