// Package email holds small helpers for addresses carried in identity tokens.
package email

import (
	"strings"
	"unicode"
)

// DisplayName guesses a person's name from an address's local part:
// "jane.doe+family@example.com" becomes "Jane Doe". Numeric-only and empty
// local parts yield "".
func DisplayName(addr string) string {
	local := strings.TrimSpace(addr)
	if at := strings.IndexByte(local, '@'); at >= 0 {
		local = local[:at]
	}
	if plus := strings.IndexByte(local, '+'); plus >= 0 {
		local = local[:plus]
	}

	parts := strings.FieldsFunc(local, func(r rune) bool {
		return r == '.' || r == '_' || r == '-'
	})
	words := make([]string, 0, len(parts))
	for _, p := range parts {
		if !strings.ContainsFunc(p, unicode.IsLetter) {
			continue
		}
		words = append(words, capitalize(p))
	}
	return strings.Join(words, " ")
}

func capitalize(s string) string {
	runes := []rune(strings.ToLower(s))
	runes[0] = unicode.ToUpper(runes[0])
	return string(runes)
}
