package repository_test

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/braedonsaunders/codetriage/internal/adapter/repository"
)

func TestLocalRepository_ReadFile(t *testing.T) {
	tmp := t.TempDir()
	repo := repository.NewLocalRepository(tmp)

	t.Run("reads existing file", func(t *testing.T) {
		content := "package main\n\nfunc main() {}\n"
		path := filepath.Join(tmp, "main.go")
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatalf("failed to write test file: %v", err)
		}

		result, err := repo.ReadFile("main.go")
		if err != nil {
			t.Errorf("unexpected error: %v", err)
		}
		if string(result) != content {
			t.Errorf("got %q, want %q", result, content)
		}
	})

	t.Run("returns error for missing file", func(t *testing.T) {
		_, err := repo.ReadFile("nonexistent.go")
		if err == nil {
			t.Error("expected error for missing file")
		}
	})

	t.Run("prevents path traversal", func(t *testing.T) {
		_, err := repo.ReadFile("../../../etc/passwd")
		if err == nil {
			t.Error("expected error for path traversal attempt")
		}
	})

	t.Run("handles absolute path within root", func(t *testing.T) {
		content := "test content"
		path := filepath.Join(tmp, "test.txt")
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatalf("failed to write test file: %v", err)
		}

		result, err := repo.ReadFile(path)
		if err != nil {
			t.Errorf("unexpected error: %v", err)
		}
		if string(result) != content {
			t.Errorf("got %q, want %q", result, content)
		}
	})
}

func TestLocalRepository_FileExists(t *testing.T) {
	tmp := t.TempDir()
	repo := repository.NewLocalRepository(tmp)

	t.Run("returns true for existing file", func(t *testing.T) {
		path := filepath.Join(tmp, "exists.go")
		if err := os.WriteFile(path, []byte("package main"), 0o644); err != nil {
			t.Fatalf("failed to write test file: %v", err)
		}

		if !repo.FileExists("exists.go") {
			t.Error("expected FileExists to return true for existing file")
		}
	})

	t.Run("returns false for missing file", func(t *testing.T) {
		if repo.FileExists("missing.go") {
			t.Error("expected FileExists to return false for missing file")
		}
	})

	t.Run("returns false for directory", func(t *testing.T) {
		dir := filepath.Join(tmp, "subdir")
		if err := os.Mkdir(dir, 0o755); err != nil {
			t.Fatalf("failed to create test dir: %v", err)
		}

		if repo.FileExists("subdir") {
			t.Error("expected FileExists to return false for directory")
		}
	})

	t.Run("returns false for path traversal", func(t *testing.T) {
		if repo.FileExists("../../../etc/passwd") {
			t.Error("expected FileExists to return false for path traversal")
		}
	})
}

func TestLocalRepository_Stat(t *testing.T) {
	tmp := t.TempDir()
	repo := repository.NewLocalRepository(tmp)

	t.Run("reports size and line count", func(t *testing.T) {
		content := "line one\nline two\nline three\n"
		if err := os.WriteFile(filepath.Join(tmp, "counted.txt"), []byte(content), 0o644); err != nil {
			t.Fatalf("failed to write test file: %v", err)
		}

		info, err := repo.Stat("counted.txt")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if info.Lines != 3 {
			t.Errorf("got %d lines, want 3", info.Lines)
		}
		if info.Size != int64(len(content)) {
			t.Errorf("got size %d, want %d", info.Size, len(content))
		}
	})

	t.Run("counts final line without trailing newline", func(t *testing.T) {
		if err := os.WriteFile(filepath.Join(tmp, "noeol.txt"), []byte("a\nb"), 0o644); err != nil {
			t.Fatalf("failed to write test file: %v", err)
		}

		info, err := repo.Stat("noeol.txt")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if info.Lines != 2 {
			t.Errorf("got %d lines, want 2", info.Lines)
		}
	})

	t.Run("rejects directories", func(t *testing.T) {
		if err := os.Mkdir(filepath.Join(tmp, "adir"), 0o755); err != nil {
			t.Fatalf("failed to create test dir: %v", err)
		}

		_, err := repo.Stat("adir")
		if err == nil {
			t.Error("expected error for directory")
		}
	})
}

func TestLocalRepository_Glob(t *testing.T) {
	tmp := t.TempDir()
	repo := repository.NewLocalRepository(tmp)

	files := []string{"main.go", "util.go", "README.md", "sub/helper.go", "sub/deep/core.go"}
	for _, f := range files {
		path := filepath.Join(tmp, f)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatalf("failed to create dir: %v", err)
		}
		if err := os.WriteFile(path, []byte("test"), 0o644); err != nil {
			t.Fatalf("failed to write file: %v", err)
		}
	}

	t.Run("matches simple pattern", func(t *testing.T) {
		matches, err := repo.Glob("*.go")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(matches) != 2 {
			t.Errorf("got %d matches, want 2: %v", len(matches), matches)
		}
	})

	t.Run("matches recursive pattern", func(t *testing.T) {
		matches, err := repo.Glob("**/*.go")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(matches) != 4 {
			t.Errorf("got %d matches, want 4: %v", len(matches), matches)
		}
	})

	t.Run("returns empty for no matches", func(t *testing.T) {
		matches, err := repo.Glob("*.rs")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(matches) != 0 {
			t.Errorf("got %d matches, want 0", len(matches))
		}
	})
}

func TestLocalRepository_Grep(t *testing.T) {
	tmp := t.TempDir()
	repo := repository.NewLocalRepository(tmp)

	if err := os.WriteFile(filepath.Join(tmp, "a.go"), []byte("func Alpha() {}\nfunc Beta() {}\n"), 0o644); err != nil {
		t.Fatalf("failed to write file: %v", err)
	}
	if err := os.WriteFile(filepath.Join(tmp, "b.go"), []byte("// TODO: implement\nfunc Gamma() {}\n"), 0o644); err != nil {
		t.Fatalf("failed to write file: %v", err)
	}

	t.Run("finds matches with line numbers", func(t *testing.T) {
		matches, err := repo.Grep(`func \w+`, "a.go")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(matches) != 2 {
			t.Fatalf("got %d matches, want 2", len(matches))
		}
		if matches[0].Line != 1 || matches[1].Line != 2 {
			t.Errorf("wrong line numbers: %+v", matches)
		}
	})

	t.Run("searches all files when no paths given", func(t *testing.T) {
		matches, err := repo.Grep("TODO")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(matches) != 1 {
			t.Fatalf("got %d matches, want 1", len(matches))
		}
		if matches[0].File != "b.go" {
			t.Errorf("got file %q, want b.go", matches[0].File)
		}
	})

	t.Run("rejects invalid pattern", func(t *testing.T) {
		_, err := repo.Grep("[unclosed")
		if err == nil {
			t.Error("expected error for invalid regexp")
		}
	})
}

func TestLocalRepository_RunCommand(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("shell commands differ on windows")
	}

	tmp := t.TempDir()
	repo := repository.NewLocalRepository(tmp)
	ctx := context.Background()

	t.Run("captures stdout and exit code", func(t *testing.T) {
		result, err := repo.RunCommand(ctx, "echo", "hello")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if result.Stdout != "hello\n" {
			t.Errorf("got stdout %q, want %q", result.Stdout, "hello\n")
		}
		if !result.Success() {
			t.Errorf("got exit code %d, want 0", result.ExitCode)
		}
	})

	t.Run("returns nonzero exit without error", func(t *testing.T) {
		result, err := repo.RunCommand(ctx, "sh", "-c", "exit 3")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if result.ExitCode != 3 {
			t.Errorf("got exit code %d, want 3", result.ExitCode)
		}
	})

	t.Run("errors for missing binary", func(t *testing.T) {
		_, err := repo.RunCommand(ctx, "definitely-not-a-real-binary")
		if err == nil {
			t.Error("expected error for missing binary")
		}
	})
}

func TestLocalRepository_ListFiles(t *testing.T) {
	tmp := t.TempDir()
	repo := repository.NewLocalRepository(tmp)

	files := []string{"main.go", "sub/helper.go", ".hidden", "image.png"}
	for _, f := range files {
		path := filepath.Join(tmp, f)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatalf("failed to create dir: %v", err)
		}
		if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
			t.Fatalf("failed to write file: %v", err)
		}
	}

	listed, err := repo.ListFiles()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(listed) != 2 {
		t.Errorf("got %d files, want 2 (hidden and binary excluded): %v", len(listed), listed)
	}
}
