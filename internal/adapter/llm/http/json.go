package http

import (
	"regexp"
	"strings"
)

var (
	// Compile regex once and reuse (thread-safe).
	// Matches from ```json (or ```) at start to the LAST ``` in the text
	// (greedy), not the first, to survive nested code blocks.
	jsonBlockRegex = regexp.MustCompile("(?s)```(?:json)?\\s*([\\s\\S]*)```")
)

// ExtractJSONFromMarkdown extracts JSON from markdown code blocks.
//
// Supports both ```json and ``` code blocks. Uses greedy matching to extract
// content from the first opening backticks to the LAST closing backticks.
//
// The greedy approach handles nested code blocks within JSON content, e.g.
// a suggestion field containing example code fenced with its own backticks.
// If multiple separate code blocks are present the match spans them all and
// may be invalid JSON; callers must validate the result.
//
// Returns extracted JSON or the original text if no code block is found.
func ExtractJSONFromMarkdown(text string) string {
	matches := jsonBlockRegex.FindStringSubmatch(text)
	if len(matches) > 1 {
		return strings.TrimSpace(matches[1])
	}
	// No code block found, might be raw JSON
	return strings.TrimSpace(text)
}
