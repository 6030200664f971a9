// Package redact strips contact details from free text before it reaches a log line.
package redact

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

const (
	PhonePlaceholder = "[phone]"
	EmailPlaceholder = "[email]"
)

var (
	// local@domain.tld
	emailPattern = regexp.MustCompile(`\b[\w.+-]+@[\w.-]+\.[A-Za-z]{2,}\b`)
	// Seven or more characters of digits, spaces and hyphens, starting and
	// ending on a digit, optionally prefixed by "+".
	phonePattern = regexp.MustCompile(`(?:\+|\b)\d[\d \t-]{5,}\d\b`)
)

// Redact replaces email addresses and phone-number-like digit runs with fixed placeholders.
// Text outside the matched spans is returned untouched.
func Redact(text string) string {
	if text == "" {
		return text
	}
	out := emailPattern.ReplaceAllLiteralString(text, EmailPlaceholder)
	return phonePattern.ReplaceAllLiteralString(out, PhonePlaceholder)
}

// Preview redacts text and bounds the result to at most limit runes.
func Preview(text string, limit int) string {
	redacted := Redact(text)
	if limit <= 0 || utf8.RuneCountInString(redacted) <= limit {
		return redacted
	}

	var builder strings.Builder
	count := 0
	for _, r := range redacted {
		if count == limit {
			break
		}
		builder.WriteRune(r)
		count++
	}
	return builder.String()
}
