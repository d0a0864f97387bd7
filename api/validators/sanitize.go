package validators

import (
	"strings"
	"unicode"
)

// SanitizeString cleans free text such as cancellation reasons and payment
// notes before it reaches an order. Control characters other than newline
// are dropped, the result is trimmed and cut to maxLen runes so multi-byte
// names and addresses are never split.
func SanitizeString(input string, maxLen int) string {
	cleaned := strings.Map(func(r rune) rune {
		if r != '\n' && unicode.IsControl(r) {
			return -1
		}
		return r
	}, input)
	cleaned = strings.TrimSpace(cleaned)
	if maxLen <= 0 {
		return cleaned
	}
	runes := []rune(cleaned)
	if len(runes) <= maxLen {
		return cleaned
	}
	return strings.TrimSpace(string(runes[:maxLen]))
}
