package json

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/braedonsaunders/codetriage/internal/domain"
)

// Writer persists analysis results as indented JSON files.
type Writer struct {
	now func() string
}

// NewWriter creates a JSON writer with a timestamp supplier.
func NewWriter(now func() string) *Writer {
	return &Writer{now: now}
}

// Artifact encapsulates the report generation inputs.
type Artifact struct {
	OutputDir  string
	Repository string
	Result     domain.AnalysisResult
}

// Write persists an analysis result to disk and returns the file path.
func (w *Writer) Write(ctx context.Context, artifact Artifact) (string, error) {
	if err := os.MkdirAll(artifact.OutputDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}

	filename := fmt.Sprintf("%s_analysis_%s.json", sanitizeFilename(artifact.Repository), w.now())
	path := filepath.Join(artifact.OutputDir, filename)

	file, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create json file: %w", err)
	}
	defer file.Close()

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")

	if err := encoder.Encode(artifact.Result); err != nil {
		return "", fmt.Errorf("failed to encode result to json: %w", err)
	}

	return path, nil
}

func sanitizeFilename(s string) string {
	if s == "" {
		return "unknown"
	}
	result := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9') || c == '-' || c == '_' || c == '.' {
			result = append(result, c)
		} else if c == '/' || c == '\\' || c == ' ' {
			result = append(result, '_')
		}
	}
	return string(result)
}
