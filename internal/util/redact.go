package util

import "regexp"

var secretPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)(api[_-]?key|authorization|token|password|secret)(["']?\s*[:=]\s*["']?)([^\s"',&]+)`),
	regexp.MustCompile(`(?i)(bearer\s+)([A-Za-z0-9._\-]+)`),
	regexp.MustCompile(`sk-[A-Za-z0-9_\-]{8,}`),
}

// RedactSecrets masks credentials that may appear in error strings before
// they are logged.
func RedactSecrets(s string) string {
	s = secretPatterns[1].ReplaceAllString(s, "${1}[REDACTED]")
	s = secretPatterns[0].ReplaceAllString(s, "${1}${2}[REDACTED]")
	return secretPatterns[2].ReplaceAllString(s, "[REDACTED]")
}
