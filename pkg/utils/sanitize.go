package utils

import (
	"regexp"
	"strings"
	"unicode"
)

var (
	htmlTagPattern = regexp.MustCompile(`<[^>]*>`)

	identifierPattern = regexp.MustCompile(`^[\p{L}\p{N}._:-]+$`)
)

// SanitizeString trims whitespace and drops control characters. Values are
// stored as entered; escaping is left to whoever renders them.
func SanitizeString(input string) string {
	return removeControlChars(strings.TrimSpace(input))
}

// SanitizeEmail lowercases and strips markup and control characters.
func SanitizeEmail(email string) string {
	email = strings.ToLower(strings.TrimSpace(email))
	email = htmlTagPattern.ReplaceAllString(email, "")
	return removeControlChars(email)
}

// SanitizeText is used for free-text operator input such as lock reasons.
func SanitizeText(input string) string {
	var result strings.Builder
	for _, r := range strings.TrimSpace(input) {
		if unicode.IsPrint(r) || r == '\n' || r == '\t' {
			result.WriteRune(r)
		}
	}

	return result.String()
}

// NormalizeIdentifier trims surrounding whitespace from a hardware identifier.
// The remaining value is never rewritten; use IsValidIdentifier to reject it.
func NormalizeIdentifier(input string) string {
	return strings.TrimSpace(input)
}

// IsValidIdentifier reports whether input uses only letters, digits and ._:-
// which keeps it safe as a single MQTT topic level and a log field.
func IsValidIdentifier(input string) bool {
	return identifierPattern.MatchString(input)
}

func removeControlChars(input string) string {
	var result strings.Builder
	for _, r := range input {
		if unicode.IsPrint(r) || unicode.IsSpace(r) {
			result.WriteRune(r)
		}
	}
	return result.String()
}
