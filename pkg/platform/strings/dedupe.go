// Package strings holds small string helpers shared by services.
package strings

import (
	"strings"
)

// DedupeAndTrim trims each value and drops empties and repeats, keeping
// first-seen order.
//
//	DedupeAndTrim([]string{"  ann ", "lee", "ann", ""})
//	// []string{"ann", "lee"}
func DedupeAndTrim(values []string) []string {
	if len(values) == 0 {
		return values
	}
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}

// Tokens splits s on whitespace and returns its distinct words.
func Tokens(s string) []string {
	return DedupeAndTrim(strings.Fields(s))
}
