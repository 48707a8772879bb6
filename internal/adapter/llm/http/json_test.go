package http_test

import (
	"encoding/json"
	"testing"

	"github.com/braedonsaunders/codetriage/internal/adapter/llm/http"
	"github.com/stretchr/testify/assert"
)

func TestExtractJSONFromMarkdown_JSONCodeBlock(t *testing.T) {
	markdown := "```json\n{\"resolved\": true, \"newIssues\": []}\n```"
	result := http.ExtractJSONFromMarkdown(markdown)

	expected := `{"resolved": true, "newIssues": []}`
	assert.Equal(t, expected, result)
}

func TestExtractJSONFromMarkdown_PlainCodeBlock(t *testing.T) {
	markdown := "```\n{\"resolved\": true, \"newIssues\": []}\n```"
	result := http.ExtractJSONFromMarkdown(markdown)

	expected := `{"resolved": true, "newIssues": []}`
	assert.Equal(t, expected, result)
}

func TestExtractJSONFromMarkdown_RawJSON(t *testing.T) {
	rawJSON := `{"resolved": true, "newIssues": []}`
	result := http.ExtractJSONFromMarkdown(rawJSON)

	// Should return trimmed input when no code block
	assert.Equal(t, rawJSON, result)
}

func TestExtractJSONFromMarkdown_EmptyString(t *testing.T) {
	result := http.ExtractJSONFromMarkdown("")
	assert.Equal(t, "", result)
}

func TestExtractJSONFromMarkdown_NoJSON(t *testing.T) {
	plainText := "This is just plain text without JSON"
	result := http.ExtractJSONFromMarkdown(plainText)

	// Should return trimmed input
	assert.Equal(t, plainText, result)
}

func TestExtractJSONFromMarkdown_MultipleCodeBlocks(t *testing.T) {
	markdown := "```json\n{\"first\": true}\n```\nSome text\n```json\n{\"second\": true}\n```"
	result := http.ExtractJSONFromMarkdown(markdown)

	// With greedy matching, extracts everything from first ``` to last ```.
	// Acceptable since backends are instructed to return one code block;
	// greedy matching is what makes nested backticks inside JSON survivable.
	expected := "{\"first\": true}\n```\nSome text\n```json\n{\"second\": true}"
	assert.Equal(t, expected, result)
}

func TestExtractJSONFromMarkdown_WithWhitespace(t *testing.T) {
	markdown := "```json\n\n  {\"resolved\": true}  \n\n```"
	result := http.ExtractJSONFromMarkdown(markdown)

	// Should trim whitespace from extracted content
	expected := `{"resolved": true}`
	assert.Equal(t, expected, result)
}

func TestExtractJSONFromMarkdown_NestedBackticks(t *testing.T) {
	markdown := "```json\n{\"code\": \"`value`\"}\n```"
	result := http.ExtractJSONFromMarkdown(markdown)

	expected := `{"code": "` + "`value`" + `"}`
	assert.Equal(t, expected, result)
}

func TestExtractJSONFromMarkdown_NestedCodeBlocks(t *testing.T) {
	// JSON containing a suggestion with a nested fenced code block
	markdown := "```json\n{\n  \"assessment\": \"fixed\",\n  \"newIssues\": [\n    {\n      \"suggestion\": \"Use this code:\\n\\n```go\\nfunc main() {}\\n```\"\n    }\n  ]\n}\n```"
	result := http.ExtractJSONFromMarkdown(markdown)

	// The greedy regex matches to the LAST ``` (closing the JSON block),
	// not the first ``` (closing the Go code block inside the suggestion).
	expected := "{\n  \"assessment\": \"fixed\",\n  \"newIssues\": [\n    {\n      \"suggestion\": \"Use this code:\\n\\n```go\\nfunc main() {}\\n```\"\n    }\n  ]\n}"
	assert.Equal(t, expected, result)

	var jsonCheck map[string]interface{}
	err := json.Unmarshal([]byte(result), &jsonCheck)
	assert.NoError(t, err, "Extracted content should be valid JSON")
}
