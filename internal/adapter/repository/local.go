package repository

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strings"
	"time"
)

// GrepMatch represents a single match from a grep operation.
type GrepMatch struct {
	File    string `json:"file"`
	Line    int    `json:"line"`
	Content string `json:"content"`
}

// CommandResult captures the output of a command execution.
type CommandResult struct {
	Stdout   string `json:"stdout"`
	Stderr   string `json:"stderr"`
	ExitCode int    `json:"exitCode"`
}

// Success returns true if the command exited with code 0.
func (r CommandResult) Success() bool {
	return r.ExitCode == 0
}

// FileInfo describes a file in the repository.
type FileInfo struct {
	Path     string    `json:"path"`
	Size     int64     `json:"size"`
	Lines    int       `json:"lines"`
	Modified time.Time `json:"modified"`
}

// LocalRepository provides filesystem access rooted at a directory.
// All paths are resolved relative to the root directory and traversal
// attempts are blocked.
type LocalRepository struct {
	root string
}

// NewLocalRepository creates a new LocalRepository rooted at the given directory.
func NewLocalRepository(root string) *LocalRepository {
	return &LocalRepository{root: root}
}

// Root returns the repository root directory.
func (r *LocalRepository) Root() string {
	return r.root
}

// ReadFile reads the contents of a file at the given path.
// The path can be relative to the root or absolute (if within root).
func (r *LocalRepository) ReadFile(path string) ([]byte, error) {
	resolved, err := r.resolvePath(path)
	if err != nil {
		return nil, fmt.Errorf("invalid path %q: %w", path, err)
	}
	return os.ReadFile(resolved)
}

// FileExists checks if a file exists at the given path.
// Returns false for directories, permission errors, or traversal attempts.
func (r *LocalRepository) FileExists(path string) bool {
	resolved, err := r.resolvePath(path)
	if err != nil {
		return false
	}
	info, err := os.Stat(resolved)
	if err != nil {
		return false
	}
	return !info.IsDir()
}

// Stat returns metadata about a file, including its line count.
func (r *LocalRepository) Stat(path string) (FileInfo, error) {
	resolved, err := r.resolvePath(path)
	if err != nil {
		return FileInfo{}, fmt.Errorf("invalid path %q: %w", path, err)
	}

	info, err := os.Stat(resolved)
	if err != nil {
		return FileInfo{}, fmt.Errorf("stat %s: %w", path, err)
	}
	if info.IsDir() {
		return FileInfo{}, fmt.Errorf("%s is a directory", path)
	}

	content, err := os.ReadFile(resolved)
	if err != nil {
		return FileInfo{}, fmt.Errorf("reading %s: %w", path, err)
	}
	lines := 0
	if len(content) > 0 {
		lines = strings.Count(string(content), "\n")
		if !strings.HasSuffix(string(content), "\n") {
			lines++
		}
	}

	return FileInfo{
		Path:     path,
		Size:     info.Size(),
		Lines:    lines,
		Modified: info.ModTime(),
	}, nil
}

// Glob returns file paths matching the given pattern.
// Supports standard glob patterns and ** for recursive matching.
func (r *LocalRepository) Glob(pattern string) ([]string, error) {
	if strings.Contains(pattern, "**") {
		return r.globRecursive(pattern)
	}

	fullPattern := filepath.Join(r.root, pattern)
	matches, err := filepath.Glob(fullPattern)
	if err != nil {
		return nil, fmt.Errorf("glob pattern %q: %w", pattern, err)
	}

	result := make([]string, 0, len(matches))
	for _, m := range matches {
		rel, err := filepath.Rel(r.root, m)
		if err != nil {
			continue
		}
		result = append(result, rel)
	}
	return result, nil
}

// ListFiles walks the repository and returns every non-binary file path,
// relative to the root. Hidden directories are skipped.
func (r *LocalRepository) ListFiles() ([]string, error) {
	var files []string
	err := filepath.Walk(r.root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil // Skip inaccessible paths
		}
		base := filepath.Base(path)
		if info.IsDir() {
			if strings.HasPrefix(base, ".") && path != r.root {
				return filepath.SkipDir
			}
			return nil
		}
		if strings.HasPrefix(base, ".") || isBinaryFile(path) {
			return nil
		}
		rel, err := filepath.Rel(r.root, path)
		if err == nil {
			files = append(files, rel)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking directory: %w", err)
	}
	return files, nil
}

// Grep searches for a pattern in the specified files.
// If no paths are provided, searches all files in the repository.
func (r *LocalRepository) Grep(pattern string, paths ...string) ([]GrepMatch, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("invalid pattern %q: %w", pattern, err)
	}

	filesToSearch := paths
	if len(filesToSearch) == 0 {
		filesToSearch, err = r.ListFiles()
		if err != nil {
			return nil, err
		}
	}

	var matches []GrepMatch
	for _, path := range filesToSearch {
		fileMatches, err := r.grepFile(re, path)
		if err != nil {
			continue // Skip files we can't read
		}
		matches = append(matches, fileMatches...)
	}
	return matches, nil
}

// RunCommand executes a command in the repository directory.
//
// Callers are responsible for validating the command against an allowlist
// and enforcing timeouts via the context.
func (r *LocalRepository) RunCommand(ctx context.Context, cmd string, args ...string) (CommandResult, error) {
	command := exec.CommandContext(ctx, cmd, args...)
	command.Dir = r.root

	var stdout, stderr strings.Builder
	command.Stdout = &stdout
	command.Stderr = &stderr

	err := command.Run()

	result := CommandResult{
		Stdout: stdout.String(),
		Stderr: stderr.String(),
	}

	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			result.ExitCode = exitErr.ExitCode()
			return result, nil
		}
		return result, fmt.Errorf("running command %q: %w", cmd, err)
	}
	return result, nil
}

// resolvePath resolves a path and validates it's within the repository root.
// It follows symlinks so a link cannot escape the root.
func (r *LocalRepository) resolvePath(path string) (string, error) {
	var resolved string

	if filepath.IsAbs(path) {
		resolved = path
	} else {
		resolved = filepath.Join(r.root, path)
	}
	resolved = filepath.Clean(resolved)

	realRoot, err := filepath.EvalSymlinks(r.root)
	if err != nil {
		realRoot = filepath.Clean(r.root)
	}

	realPath, err := filepath.EvalSymlinks(resolved)
	if err != nil {
		if !os.IsNotExist(err) {
			return "", fmt.Errorf("resolving symlinks: %w", err)
		}
		// File doesn't exist yet - validate the cleaned path instead
		rel, relErr := filepath.Rel(realRoot, resolved)
		if relErr != nil || strings.HasPrefix(rel, "..") {
			return "", fmt.Errorf("path traversal detected")
		}
		return resolved, nil
	}

	rel, err := filepath.Rel(realRoot, realPath)
	if err != nil || strings.HasPrefix(rel, "..") {
		return "", fmt.Errorf("path traversal detected")
	}
	return realPath, nil
}

// globRecursive handles ** patterns for recursive directory matching.
func (r *LocalRepository) globRecursive(pattern string) ([]string, error) {
	parts := strings.Split(pattern, "**")
	if len(parts) != 2 {
		return nil, fmt.Errorf("only one ** is supported in pattern")
	}

	prefix := strings.TrimSuffix(parts[0], string(filepath.Separator))
	suffix := strings.TrimPrefix(parts[1], string(filepath.Separator))

	var matches []string
	searchRoot := r.root
	if prefix != "" {
		searchRoot = filepath.Join(r.root, prefix)
	}

	err := filepath.Walk(searchRoot, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil // Skip inaccessible paths
		}
		if info.IsDir() {
			return nil
		}

		rel, err := filepath.Rel(r.root, path)
		if err != nil {
			return nil
		}

		if suffix == "" {
			matches = append(matches, rel)
			return nil
		}

		matched, err := filepath.Match(suffix, filepath.Base(path))
		if err == nil && matched {
			matches = append(matches, rel)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking directory: %w", err)
	}
	return matches, nil
}

// grepFile searches for a pattern in a single file.
func (r *LocalRepository) grepFile(re *regexp.Regexp, path string) ([]GrepMatch, error) {
	resolved, err := r.resolvePath(path)
	if err != nil {
		return nil, err
	}

	file, err := os.Open(resolved)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	var matches []GrepMatch
	scanner := bufio.NewScanner(file)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := scanner.Text()
		if re.MatchString(line) {
			matches = append(matches, GrepMatch{
				File:    path,
				Line:    lineNum,
				Content: line,
			})
		}
	}
	return matches, scanner.Err()
}

// isBinaryFile checks if a file is likely binary based on its extension.
func isBinaryFile(path string) bool {
	binaryExtensions := map[string]bool{
		".exe": true, ".dll": true, ".so": true, ".dylib": true,
		".zip": true, ".tar": true, ".gz": true, ".rar": true,
		".png": true, ".jpg": true, ".jpeg": true, ".gif": true, ".bmp": true,
		".pdf": true, ".doc": true, ".docx": true,
		".o": true, ".a": true, ".obj": true,
		".wasm": true, ".bin": true,
	}
	ext := strings.ToLower(filepath.Ext(path))
	return binaryExtensions[ext]
}
