package sarif

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/braedonsaunders/codetriage/internal/domain"
)

// Writer persists analysis results as SARIF 2.1.0 files so findings can be
// ingested by code scanning UIs.
type Writer struct {
	now func() string
}

// NewWriter creates a SARIF writer with a timestamp supplier.
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

	filename := fmt.Sprintf("%s_analysis_%s.sarif", sanitizeFilename(artifact.Repository), w.now())
	path := filepath.Join(artifact.OutputDir, filename)

	doc := w.convertToSARIF(artifact)

	file, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create sarif file: %w", err)
	}
	defer file.Close()

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")

	if err := encoder.Encode(doc); err != nil {
		return "", fmt.Errorf("failed to encode result to sarif: %w", err)
	}

	return path, nil
}

// convertToSARIF maps an analysis result onto the SARIF document structure.
func (w *Writer) convertToSARIF(artifact Artifact) map[string]interface{} {
	results := make([]map[string]interface{}, 0, len(artifact.Result.Issues))
	ruleIDs := make(map[string]bool)

	for _, issue := range artifact.Result.Issues {
		// SARIF requires non-empty message text
		messageText := issue.Message
		if messageText == "" {
			messageText = issue.Description
		}
		if messageText == "" {
			messageText = "No description provided"
		}

		ruleID := string(issue.Category)
		if ruleID == "" {
			ruleID = "general"
		}
		ruleIDs[ruleID] = true

		result := map[string]interface{}{
			"ruleId": ruleID,
			"level":  convertSeverity(issue.Severity),
			"message": map[string]interface{}{
				"text": messageText,
			},
		}

		// Omit locations entirely for project-level findings
		if issue.File != "" {
			physicalLocation := map[string]interface{}{
				"artifactLocation": map[string]interface{}{
					"uri": issue.File,
				},
			}

			// Don't fabricate line 1 for findings without specific locations
			if issue.Line >= 1 {
				startLine := issue.Line
				endLine := issue.EndLine
				if endLine < startLine {
					endLine = startLine
				}
				region := map[string]interface{}{
					"startLine": startLine,
					"endLine":   endLine,
				}
				if issue.Column >= 1 {
					region["startColumn"] = issue.Column
				}
				physicalLocation["region"] = region
			}

			result["locations"] = []map[string]interface{}{
				{"physicalLocation": physicalLocation},
			}
		}

		properties := map[string]interface{}{}
		if issue.Suggestion != "" {
			// fixes would require artifactChanges which we don't have
			properties["suggestion"] = issue.Suggestion
		}
		if issue.ID != "" {
			properties["issueId"] = issue.ID
		}
		if len(properties) > 0 {
			result["properties"] = properties
		}

		results = append(results, result)
	}

	return map[string]interface{}{
		"version": "2.1.0",
		"$schema": "https://raw.githubusercontent.com/oasis-tcs/sarif-spec/master/Schemata/sarif-schema-2.1.0.json",
		"runs": []map[string]interface{}{
			{
				"tool": map[string]interface{}{
					"driver": map[string]interface{}{
						"name":           "codetriage",
						"informationUri": "https://github.com/braedonsaunders/codetriage",
						"rules":          buildRules(ruleIDs),
					},
				},
				"results": results,
				"properties": map[string]interface{}{
					"summary":      artifact.Result.Summary,
					"analyzersRun": artifact.Result.AnalyzersRun,
				},
			},
		},
	}
}

// buildRules emits one rule descriptor per category seen in the results.
func buildRules(ruleIDs map[string]bool) []map[string]interface{} {
	rules := make([]map[string]interface{}, 0, len(ruleIDs))
	for _, category := range domain.Categories() {
		id := string(category)
		if !ruleIDs[id] {
			continue
		}
		rules = append(rules, map[string]interface{}{
			"id":               id,
			"name":             id,
			"shortDescription": map[string]interface{}{"text": fmt.Sprintf("%s findings", id)},
		})
	}
	if ruleIDs["general"] {
		rules = append(rules, map[string]interface{}{
			"id":               "general",
			"name":             "general",
			"shortDescription": map[string]interface{}{"text": "uncategorized findings"},
		})
	}
	return rules
}

// convertSeverity maps issue severities to SARIF levels.
func convertSeverity(severity domain.Severity) string {
	switch severity {
	case domain.SeverityError:
		return "error"
	case domain.SeverityWarning:
		return "warning"
	case domain.SeverityInfo, domain.SeverityHint:
		return "note"
	default:
		return "warning"
	}
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
