package strings

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDedupeAndTrim(t *testing.T) {
	tests := []struct {
		name     string
		input    []string
		expected []string
	}{
		{name: "nil", input: nil, expected: nil},
		{name: "empty", input: []string{}, expected: []string{}},
		{name: "trims and drops blanks", input: []string{" ann ", "", "   "}, expected: []string{"ann"}},
		{name: "keeps first-seen order", input: []string{"lee", "ann", "lee", " ann"}, expected: []string{"lee", "ann"}},
		{name: "case sensitive", input: []string{"Ann", "ann"}, expected: []string{"Ann", "ann"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, DedupeAndTrim(tt.input))
		})
	}
}

func TestTokens(t *testing.T) {
	assert.Equal(t, []string{"mary", "ann", "lee"}, Tokens("mary  ann lee ann"))
	assert.Empty(t, Tokens("   "))
}
