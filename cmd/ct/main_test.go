package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/braedonsaunders/codetriage/internal/adapter/repository"
	"github.com/braedonsaunders/codetriage/internal/config"
)

func clearBackendEnv(t *testing.T) {
	t.Helper()
	t.Setenv("ANTHROPIC_API_KEY", "")
	t.Setenv("OPENAI_API_KEY", "")
	t.Setenv("OPENROUTER_API_KEY", "")
}

func TestBuildBackendClient(t *testing.T) {
	tests := []struct {
		name     string
		cfg      config.Config
		wantName string // empty means no client expected
	}{
		{
			name: "explicit anthropic key",
			cfg: config.Config{
				Backend: "anthropic",
				Providers: map[string]config.ProviderConfig{
					"anthropic": {APIKey: "sk-ant-test", Model: "claude-sonnet-4-20250514"},
				},
			},
			wantName: "anthropic",
		},
		{
			name: "explicit openrouter key",
			cfg: config.Config{
				Backend: "openrouter",
				Providers: map[string]config.ProviderConfig{
					"openrouter": {APIKey: "sk-or-test"},
				},
			},
			wantName: "openrouter",
		},
		{
			name: "key without backend defaults to anthropic",
			cfg: config.Config{
				Providers: map[string]config.ProviderConfig{
					"": {APIKey: "sk-test"},
				},
			},
			wantName: "anthropic",
		},
		{
			name: "ollama needs no key",
			cfg: config.Config{
				Backend: "ollama",
				Providers: map[string]config.ProviderConfig{
					"ollama": {Model: "qwen2.5-coder"},
				},
			},
			wantName: "ollama",
		},
		{
			name:     "no credential yields no client",
			cfg:      config.Config{},
			wantName: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearBackendEnv(t)

			client := buildBackendClient(tt.cfg, nil)
			if tt.wantName == "" {
				if client != nil {
					t.Fatalf("expected no client, got %s", client.Name())
				}
				return
			}
			if client == nil {
				t.Fatal("expected a client, got nil")
			}
			if client.Name() != tt.wantName {
				t.Fatalf("expected %s client, got %s", tt.wantName, client.Name())
			}
		})
	}
}

func TestBuildBackendClientFromEnv(t *testing.T) {
	clearBackendEnv(t)
	t.Setenv("OPENAI_API_KEY", "sk-env-test")

	client := buildBackendClient(config.Config{}, nil)
	if client == nil {
		t.Fatal("expected a client from environment credential")
	}
	if client.Name() != "openai" {
		t.Fatalf("expected openai client, got %s", client.Name())
	}
}

func TestBuildCheckCommands(t *testing.T) {
	commands := buildCheckCommands(config.ChecksConfig{
		Tests: "go test -race ./...",
		Build: "make build",
	})

	if len(commands.Tests) != 4 || commands.Tests[1] != "test" || commands.Tests[2] != "-race" {
		t.Fatalf("unexpected tests command: %v", commands.Tests)
	}
	if len(commands.Build) != 2 || commands.Build[0] != "make" {
		t.Fatalf("unexpected build command: %v", commands.Build)
	}
	// Unset commands keep the Go defaults.
	if len(commands.Lint) == 0 {
		t.Fatal("expected default lint command")
	}
}

func TestBuildRetryConfig(t *testing.T) {
	retries := 2
	retry := buildRetryConfig(config.HTTPConfig{
		MaxRetries:        7,
		InitialBackoff:    "1s",
		MaxBackoff:        "10s",
		BackoffMultiplier: 3,
	}, config.ProviderConfig{
		MaxRetries: &retries,
	})

	if retry.MaxRetries != 2 {
		t.Fatalf("expected provider override to win, got %d", retry.MaxRetries)
	}
	if retry.InitialBackoff != time.Second {
		t.Fatalf("unexpected initial backoff: %v", retry.InitialBackoff)
	}
	if retry.MaxBackoff != 10*time.Second {
		t.Fatalf("unexpected max backoff: %v", retry.MaxBackoff)
	}
	if retry.Multiplier != 3 {
		t.Fatalf("unexpected multiplier: %v", retry.Multiplier)
	}
}

func TestRepositoryName(t *testing.T) {
	if name := repositoryName("."); name == "" || name == "unknown" {
		t.Fatalf("expected a real directory name, got %q", name)
	}
}

func TestStringReader(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "main.go"), []byte("package main\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	reader := stringReader{repo: repository.NewGitRepository(dir)}

	content, err := reader.ReadFile("main.go")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if content != "package main\n" {
		t.Errorf("got %q", content)
	}

	if _, err := reader.ReadFile("absent.go"); err == nil {
		t.Error("expected error for missing file")
	}
}
