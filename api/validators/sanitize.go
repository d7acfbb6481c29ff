package validators

import (
	"strings"
	"unicode/utf8"
)

// SanitizeString trims input and cuts it to at most maxLen bytes without
// splitting a UTF-8 sequence. maxLen <= 0 disables the cut.
func SanitizeString(input string, maxLen int) string {
	s := strings.TrimSpace(input)
	if maxLen <= 0 || len(s) <= maxLen {
		return s
	}
	cut := maxLen
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}

// NormalizeEmail lower-cases and trims an address. Emails are identities here.
func NormalizeEmail(input string) string {
	return strings.ToLower(strings.TrimSpace(input))
}
