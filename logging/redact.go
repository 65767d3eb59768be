package logging

import (
	"regexp"
	"strings"
)

// RedactedPlaceholder is the string used to replace sensitive data
const RedactedPlaceholder = "[REDACTED]"

// sensitivePatterns are compiled once at package initialization.
// The set covers the secret shapes this service can actually see: the
// OpenAI key from the environment plus generic key=value assignments.
var sensitivePatterns = []*regexp.Regexp{
	// OpenAI API keys: sk-... (legacy) or sk-proj-... (project-scoped)
	regexp.MustCompile(`(?i)(sk-[a-zA-Z0-9_-]{20,})`),
	regexp.MustCompile(`(?i)(bearer\s+[a-zA-Z0-9._-]{20,})`),

	// Generic secret assignments
	regexp.MustCompile(`(?i)(password\s*[:=]\s*[^\s,;]{8,})`),
	regexp.MustCompile(`(?i)(secret\s*[:=]\s*[^\s,;]{8,})`),
	regexp.MustCompile(`(?i)(token\s*[:=]\s*[^\s,;]{8,})`),
	regexp.MustCompile(`(?i)(api_key\s*[:=]\s*[^\s,;]{8,})`),
}

// sensitiveFieldMarkers are field name substrings that indicate sensitive data
var sensitiveFieldMarkers = []string{
	"OPENAI_API_KEY",
	"PASSWORD",
	"SECRET",
	"TOKEN",
	"API_KEY",
	"APIKEY",
}

// RedactSensitiveData scans a string value and redacts detected secrets.
//
// Example:
//
//	RedactSensitiveData("key is sk-abc123def456ghi789jkl")
//	// "key is [REDACTED]"
func RedactSensitiveData(value string) string {
	if value == "" {
		return value
	}

	result := value
	for _, pattern := range sensitivePatterns {
		result = pattern.ReplaceAllString(result, RedactedPlaceholder)
	}
	return result
}

// IsSensitiveField returns true if the field name indicates sensitive data.
func IsSensitiveField(fieldName string) bool {
	upperName := strings.ToUpper(fieldName)

	for _, marker := range sensitiveFieldMarkers {
		if strings.Contains(upperName, marker) {
			return true
		}
	}
	return false
}
