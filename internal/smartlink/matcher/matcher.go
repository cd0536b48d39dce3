// Package matcher proposes which unlinked member an account most likely is.
// It is pure: callers load candidates and apply the chosen link.
package matcher

import (
	"slices"
	"strings"

	memberModels "kinship/internal/member/models"
	"kinship/internal/smartlink/models"
	"kinship/pkg/email"
)

const (
	DefaultMinScore      = 0.6
	DefaultMaxCandidates = 5
)

type Options struct {
	MinScore      float64
	MaxCandidates int
}

func (o Options) withDefaults() Options {
	if o.MinScore <= 0 || o.MinScore > 1 {
		o.MinScore = DefaultMinScore
	}
	if o.MaxCandidates <= 0 {
		o.MaxCandidates = DefaultMaxCandidates
	}
	return o
}

// Match ranks candidates against the identity. Deleted or already linked
// candidates are ignored. An email match is an auto-match only when exactly
// one candidate carries that address, and it is not repeated in the list.
func Match(identity models.Identity, candidates []*memberModels.Member, opts Options) models.Result {
	opts = opts.withDefaults()
	result := models.Empty()

	pool := make([]*memberModels.Member, 0, len(candidates))
	for _, c := range candidates {
		if c == nil || c.IsDeleted() || c.LinkedAccountID != nil {
			continue
		}
		pool = append(pool, c)
	}

	if addr := NormalizeEmail(identity.Email); addr != "" {
		var hits []*memberModels.Member
		for _, c := range pool {
			if c.Email != "" && NormalizeEmail(c.Email) == addr {
				hits = append(hits, c)
			}
		}
		if len(hits) == 1 {
			result.AutoMatch = models.AutoMatch{Found: true, Member: hits[0]}
		}
	}

	name := queryName(identity)
	if name == "" {
		return result
	}
	for _, c := range pool {
		if result.AutoMatch.Found && c.ID == result.AutoMatch.Member.ID {
			continue
		}
		score := Similarity(name, c.Name)
		if score < opts.MinScore {
			continue
		}
		result.PossibleMatches = append(result.PossibleMatches, models.Candidate{Member: c, Score: score})
	}
	slices.SortFunc(result.PossibleMatches, func(a, b models.Candidate) int {
		switch {
		case a.Score > b.Score:
			return -1
		case a.Score < b.Score:
			return 1
		}
		return a.Member.ID.Compare(b.Member.ID)
	})
	if len(result.PossibleMatches) > opts.MaxCandidates {
		result.PossibleMatches = result.PossibleMatches[:opts.MaxCandidates]
	}
	return result
}

// queryName is the identity's display name, or one derived from the local
// part of its email when the token carries no name.
func queryName(identity models.Identity) string {
	if name := strings.TrimSpace(identity.Name); name != "" {
		return name
	}
	return email.DisplayName(identity.Email)
}
