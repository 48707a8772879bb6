package domain

import "strings"

// categorySynonyms maps normalized raw labels to categories. Labels come
// from analyzer output and LLM responses, so spelling varies widely.
var categorySynonyms = map[string]Category{
	"bug":           CategoryBug,
	"defect":        CategoryBug,
	"logic":         CategoryBug,
	"logic-error":   CategoryBug,
	"correctness":   CategoryBug,
	"security":      CategorySecurity,
	"vulnerability": CategorySecurity,
	"vuln":          CategorySecurity,
	"secret":        CategorySecurity,
	"secrets":       CategorySecurity,
	"injection":     CategorySecurity,
	"lint":          CategoryLint,
	"style":         CategoryLint,
	"format":        CategoryLint,
	"formatting":    CategoryLint,
	"convention":    CategoryLint,
	"type":          CategoryType,
	"types":         CategoryType,
	"type-error":    CategoryType,
	"typing":        CategoryType,
	"stub":          CategoryStub,
	"todo":          CategoryStub,
	"fixme":         CategoryStub,
	"placeholder":   CategoryStub,
	"unimplemented": CategoryStub,
	"duplicate":     CategoryDuplicate,
	"duplication":   CategoryDuplicate,
	"copy-paste":    CategoryDuplicate,
	"dup":           CategoryDuplicate,
	"dead-code":     CategoryDeadCode,
	"deadcode":      CategoryDeadCode,
	"dead":          CategoryDeadCode,
	"unused":        CategoryDeadCode,
	"unreachable":   CategoryDeadCode,
	"coverage":      CategoryCoverage,
	"test-coverage": CategoryCoverage,
	"untested":      CategoryCoverage,
	"missing-tests": CategoryCoverage,
	"llm":           CategoryLLM,
	"ai":            CategoryLLM,
	"agent":         CategoryLLM,
}

// severitySynonyms maps normalized raw labels to severities.
var severitySynonyms = map[string]Severity{
	"error":         SeverityError,
	"critical":      SeverityError,
	"high":          SeverityError,
	"fatal":         SeverityError,
	"blocker":       SeverityError,
	"warning":       SeverityWarning,
	"warn":          SeverityWarning,
	"medium":        SeverityWarning,
	"moderate":      SeverityWarning,
	"info":          SeverityInfo,
	"low":           SeverityInfo,
	"minor":         SeverityInfo,
	"note":          SeverityInfo,
	"informational": SeverityInfo,
	"hint":          SeverityHint,
	"suggestion":    SeverityHint,
	"trivial":       SeverityHint,
	"nit":           SeverityHint,
}

// MapCategory normalizes a raw category label to a known Category.
// Matching is case-insensitive and total: unrecognized labels map to
// CategoryBug, never an error.
func MapCategory(raw string) Category {
	normalized := strings.ToLower(strings.TrimSpace(raw))
	if category, ok := categorySynonyms[normalized]; ok {
		return category
	}
	return CategoryBug
}

// MapSeverity normalizes a raw severity label to a known Severity.
// Matching is case-insensitive and total: unrecognized labels map to
// SeverityWarning, never an error.
func MapSeverity(raw string) Severity {
	normalized := strings.ToLower(strings.TrimSpace(raw))
	if severity, ok := severitySynonyms[normalized]; ok {
		return severity
	}
	return SeverityWarning
}
