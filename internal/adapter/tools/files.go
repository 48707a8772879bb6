package tools

import (
	"context"
	"fmt"
	"strings"
)

// ReadFileTool reads file contents from the repository.
type ReadFileTool struct {
	repo Repository
}

// NewReadFileTool creates a new read file tool.
func NewReadFileTool(repo Repository) *ReadFileTool {
	return &ReadFileTool{repo: repo}
}

// Name returns the tool name.
func (t *ReadFileTool) Name() string {
	return "read_file"
}

// Description returns the tool description.
func (t *ReadFileTool) Description() string {
	return "Read the contents of a file in the project"
}

// Schema returns the tool's parameter schema.
func (t *ReadFileTool) Schema() Schema {
	return Schema{
		Type: "object",
		Properties: map[string]Property{
			"path": {Type: "string", Description: "File path relative to the project root"},
		},
		Required: []string{"path"},
	}
}

// Execute reads the file at the given path.
func (t *ReadFileTool) Execute(ctx context.Context, params map[string]interface{}) (string, error) {
	filePath, err := stringParam(params, "path", true)
	if err != nil {
		return "", err
	}
	filePath = strings.TrimSpace(filePath)

	// Validate path to prevent traversal attacks
	if err := validatePath(filePath); err != nil {
		return "", err
	}

	content, err := t.repo.ReadFile(filePath)
	if err != nil {
		return "", fmt.Errorf("reading file %s: %w", filePath, err)
	}

	return truncateOutput(string(content)), nil
}

// SearchCodeTool searches for patterns in the repository.
type SearchCodeTool struct {
	repo Repository
}

// NewSearchCodeTool creates a new code search tool.
func NewSearchCodeTool(repo Repository) *SearchCodeTool {
	return &SearchCodeTool{repo: repo}
}

// Name returns the tool name.
func (t *SearchCodeTool) Name() string {
	return "search_code"
}

// Description returns the tool description.
func (t *SearchCodeTool) Description() string {
	return "Search the codebase for a pattern (regex supported)"
}

// Schema returns the tool's parameter schema.
func (t *SearchCodeTool) Schema() Schema {
	return Schema{
		Type: "object",
		Properties: map[string]Property{
			"pattern": {Type: "string", Description: "Pattern to search for"},
			"path":    {Type: "string", Description: "Optional file path to restrict the search to"},
		},
		Required: []string{"pattern"},
	}
}

// Execute searches for the pattern in the repository.
func (t *SearchCodeTool) Execute(ctx context.Context, params map[string]interface{}) (string, error) {
	pattern, err := stringParam(params, "pattern", true)
	if err != nil {
		return "", err
	}
	pattern = strings.TrimSpace(pattern)
	if pattern == "" {
		return "", fmt.Errorf("search pattern required")
	}

	var paths []string
	if p, err := stringParam(params, "path", false); err != nil {
		return "", err
	} else if p != "" {
		if err := validatePath(p); err != nil {
			return "", err
		}
		paths = append(paths, p)
	}

	matches, err := t.repo.Grep(pattern, paths...)
	if err != nil {
		return "", fmt.Errorf("searching for %s: %w", pattern, err)
	}

	if len(matches) == 0 {
		return "No matches found", nil
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Found %d matches:\n", len(matches)))
	for _, m := range matches {
		sb.WriteString(fmt.Sprintf("%s:%d: %s\n", m.File, m.Line, m.Content))
	}

	return truncateOutput(sb.String()), nil
}

// ListFilesTool lists project files, optionally filtered by a glob pattern.
type ListFilesTool struct {
	repo Repository
}

// NewListFilesTool creates a new file listing tool.
func NewListFilesTool(repo Repository) *ListFilesTool {
	return &ListFilesTool{repo: repo}
}

// Name returns the tool name.
func (t *ListFilesTool) Name() string {
	return "list_files"
}

// Description returns the tool description.
func (t *ListFilesTool) Description() string {
	return "List project files, optionally matching a glob pattern (e.g. '**/*.go')"
}

// Schema returns the tool's parameter schema.
func (t *ListFilesTool) Schema() Schema {
	return Schema{
		Type: "object",
		Properties: map[string]Property{
			"pattern": {Type: "string", Description: "Optional glob pattern to filter files"},
		},
	}
}

// Execute lists files, filtered by the pattern when one is given.
func (t *ListFilesTool) Execute(ctx context.Context, params map[string]interface{}) (string, error) {
	pattern, err := stringParam(params, "pattern", false)
	if err != nil {
		return "", err
	}
	pattern = strings.TrimSpace(pattern)

	var files []string
	if pattern == "" {
		files, err = t.repo.ListFiles()
	} else {
		if err := validateGlobPattern(pattern); err != nil {
			return "", err
		}
		files, err = t.repo.Glob(pattern)
	}
	if err != nil {
		return "", fmt.Errorf("listing files: %w", err)
	}

	if len(files) == 0 {
		return "No files found", nil
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Found %d files:\n", len(files)))
	for _, f := range files {
		sb.WriteString(f + "\n")
	}

	return truncateOutput(sb.String()), nil
}

// FileInfoTool reports metadata about a single file.
type FileInfoTool struct {
	repo Repository
}

// NewFileInfoTool creates a new file info tool.
func NewFileInfoTool(repo Repository) *FileInfoTool {
	return &FileInfoTool{repo: repo}
}

// Name returns the tool name.
func (t *FileInfoTool) Name() string {
	return "get_file_info"
}

// Description returns the tool description.
func (t *FileInfoTool) Description() string {
	return "Get metadata about a file: size, line count, last modified time"
}

// Schema returns the tool's parameter schema.
func (t *FileInfoTool) Schema() Schema {
	return Schema{
		Type: "object",
		Properties: map[string]Property{
			"path": {Type: "string", Description: "File path relative to the project root"},
		},
		Required: []string{"path"},
	}
}

// Execute returns metadata about the file at the given path.
func (t *FileInfoTool) Execute(ctx context.Context, params map[string]interface{}) (string, error) {
	filePath, err := stringParam(params, "path", true)
	if err != nil {
		return "", err
	}
	filePath = strings.TrimSpace(filePath)

	if err := validatePath(filePath); err != nil {
		return "", err
	}

	info, err := t.repo.Stat(filePath)
	if err != nil {
		return "", fmt.Errorf("stat %s: %w", filePath, err)
	}

	return fmt.Sprintf("path: %s\nsize: %d bytes\nlines: %d\nmodified: %s\n",
		info.Path, info.Size, info.Lines, info.Modified.Format("2006-01-02 15:04:05")), nil
}
