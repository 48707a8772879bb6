package json_test

import (
	"context"
	stdjson "encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/braedonsaunders/codetriage/internal/adapter/output/json"
	"github.com/braedonsaunders/codetriage/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriter_Write(t *testing.T) {
	// Given
	tempDir := t.TempDir()
	now := func() string { return "2026-01-01T00-00-00Z" }
	writer := json.NewWriter(now)

	result := domain.AnalysisResult{
		Issues: []domain.Issue{
			{
				ID:       "a1b2c3d4",
				Category: domain.CategorySecurity,
				Severity: domain.SeverityError,
				File:     "config.go",
				Line:     12,
				Message:  "hardcoded credential",
			},
		},
		Summary:      domain.NewSummary([]domain.Issue{{Severity: domain.SeverityError, Category: domain.CategorySecurity}}),
		Duration:     1500 * time.Millisecond,
		AnalyzersRun: []string{"security"},
	}

	artifact := json.Artifact{
		OutputDir:  tempDir,
		Repository: "my-repo",
		Result:     result,
	}

	// When
	path, err := writer.Write(context.Background(), artifact)

	// Then
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(tempDir, "my-repo_analysis_2026-01-01T00-00-00Z.json"), path)

	content, err := os.ReadFile(path)
	require.NoError(t, err)

	var written domain.AnalysisResult
	require.NoError(t, stdjson.Unmarshal(content, &written))
	assert.Equal(t, result.Issues, written.Issues)
	assert.Equal(t, result.AnalyzersRun, written.AnalyzersRun)
	assert.Equal(t, result.Summary.Total, written.Summary.Total)
}

func TestWriter_WriteSanitizesRepositoryName(t *testing.T) {
	tempDir := t.TempDir()
	writer := json.NewWriter(func() string { return "ts" })

	path, err := writer.Write(context.Background(), json.Artifact{
		OutputDir:  tempDir,
		Repository: "org/my repo",
	})

	require.NoError(t, err)
	assert.Equal(t, filepath.Join(tempDir, "org_my_repo_analysis_ts.json"), path)
}

func TestWriteLoopReport(t *testing.T) {
	tempDir := t.TempDir()

	result := domain.AnalysisLoopResult{
		AllIssues: []domain.Issue{
			{ID: "one", File: "a.go", Line: 3, Severity: domain.SeverityError, Category: domain.CategoryBug, Message: "nil deref", Status: domain.StatusResolved},
			{ID: "two", File: "b.go", Line: 9, Severity: domain.SeverityWarning, Category: domain.CategoryStub, Message: "TODO marker left in code", Status: domain.StatusFailed, LastError: "tests still failing"},
		},
		ResolvedIssues: []domain.Issue{{ID: "one"}},
		FailedIssues:   []domain.Issue{{ID: "two"}},
		Iterations:     2,
		IsClean:        false,
		Summary:        "loop summary",
	}

	path, err := json.WriteLoopReport(tempDir, "my-repo", result)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(tempDir, "my-repo_loop_report.json"), path)

	content, err := os.ReadFile(path)
	require.NoError(t, err)

	var report json.LoopReport
	require.NoError(t, stdjson.Unmarshal(content, &report))
	assert.Equal(t, 2, report.Total)
	assert.Equal(t, 1, report.Resolved)
	assert.Equal(t, 1, report.Failed)
	assert.Equal(t, 2, report.Iterations)
	assert.False(t, report.Clean)
	require.Len(t, report.Issues, 2)
	assert.Equal(t, "resolved", report.Issues[0].Status)
	assert.Equal(t, "tests still failing", report.Issues[1].LastError)
}
