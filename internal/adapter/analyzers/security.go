package analyzers

import (
	"context"
	"regexp"

	"github.com/braedonsaunders/codetriage/internal/domain"
	"github.com/braedonsaunders/codetriage/internal/usecase/analyze"
)

// secretPatterns flag credential material committed to source.
var secretPatterns = []struct {
	re      *regexp.Regexp
	message string
}{
	{
		regexp.MustCompile(`(?i)(api[_-]?key|apikey|secret|password|passwd|token|credential)\s*[:=]\s*["'][^"']{8,}["']`),
		"hardcoded credential assigned to a sensitive-looking variable",
	},
	{
		regexp.MustCompile(`AKIA[0-9A-Z]{16}`),
		"AWS access key ID embedded in source",
	},
	{
		regexp.MustCompile(`-----BEGIN (RSA |EC |OPENSSH )?PRIVATE KEY-----`),
		"private key material embedded in source",
	},
	{
		regexp.MustCompile(`(?i)authorization:\s*["']?(bearer|basic)\s+[a-z0-9+/=._-]{16,}`),
		"hardcoded authorization header value",
	},
}

// SecurityAnalyzer scans for secret-like patterns.
type SecurityAnalyzer struct {
	reader Reader
}

func NewSecurityAnalyzer(reader Reader) *SecurityAnalyzer {
	return &SecurityAnalyzer{reader: reader}
}

func (a *SecurityAnalyzer) Name() string              { return "security" }
func (a *SecurityAnalyzer) Category() domain.Category { return domain.CategorySecurity }

func (a *SecurityAnalyzer) Description() string {
	return "detects hardcoded secrets, keys, and credential material"
}

func (a *SecurityAnalyzer) Analyze(ctx context.Context, files []string, opts analyze.Options) ([]domain.Issue, error) {
	var issues []domain.Issue
	for _, file := range files {
		if checkCancelled(ctx) {
			return issues, ctx.Err()
		}
		if !isSourceFile(file) || isTestFile(file) {
			continue
		}
		eachLine(a.reader, file, func(lineNo int, line string) {
			for _, pattern := range secretPatterns {
				if pattern.re.MatchString(line) {
					issues = append(issues, newIssue(
						domain.CategorySecurity, domain.SeverityError,
						file, lineNo, pattern.message, line))
					return
				}
			}
		})
	}
	return issues, nil
}
