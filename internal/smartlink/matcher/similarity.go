package matcher

import (
	"math"
	"slices"

	platformstrings "kinship/pkg/platform/strings"
)

// Similarity scores two names in [0, 1] after normalization. It takes the
// better of an edit-distance ratio over the whole string and a Dice
// coefficient over name tokens, so reordered names still score well.
func Similarity(a, b string) float64 {
	na, nb := Normalize(a), Normalize(b)
	if na == "" || nb == "" {
		return 0
	}
	if na == nb {
		return 1
	}
	return round(math.Max(editRatio(na, nb), tokenDice(na, nb)))
}

func editRatio(a, b string) float64 {
	ra, rb := []rune(a), []rune(b)
	longest := max(len(ra), len(rb))
	return 1 - float64(levenshtein(ra, rb))/float64(longest)
}

func levenshtein(a, b []rune) int {
	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(a); i++ {
		curr[0] = i
		for j := 1; j <= len(b); j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			curr[j] = min(prev[j]+1, curr[j-1]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[len(b)]
}

func tokenDice(a, b string) float64 {
	ta, tb := platformstrings.Tokens(a), platformstrings.Tokens(b)
	if len(ta) == 0 || len(tb) == 0 {
		return 0
	}
	common := 0
	for _, t := range ta {
		if slices.Contains(tb, t) {
			common++
		}
	}
	return 2 * float64(common) / float64(len(ta)+len(tb))
}

// round keeps four decimals so scores are stable in JSON and comparisons.
func round(f float64) float64 {
	return math.Round(f*1e4) / 1e4
}
