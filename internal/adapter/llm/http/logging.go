package http

import (
	"fmt"
	"regexp"
)

// MaxLoggedResponseLength caps how much backend response text reaches
// the logs. Responses carry user source code, so only a prefix is kept.
const MaxLoggedResponseLength = 200

// TruncateForLogging trims a backend response for log output, appending
// the original length when anything was cut.
func TruncateForLogging(response string) string {
	if len(response) <= MaxLoggedResponseLength {
		return response
	}
	return response[:MaxLoggedResponseLength] + fmt.Sprintf("... [truncated, total length=%d bytes]", len(response))
}

// secretParams matches credential-bearing query parameters so URLs in
// error text never leak keys (key=, apiKey=, api_key=, token=,
// access_token=).
var secretParams = regexp.MustCompile(`(key|apiKey|api_key|token|access_token)=[^&"\s]+`)

// RedactURLSecrets masks credential query parameters in the given text.
// Error messages often embed the request URL verbatim; this keeps them
// printable.
func RedactURLSecrets(text string) string {
	if text == "" {
		return text
	}
	return secretParams.ReplaceAllString(text, "$1=[REDACTED]")
}
