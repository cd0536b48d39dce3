package models

import (
	memberModels "kinship/internal/member/models"
)

// Identity is the authenticated account asking to be placed in a family.
type Identity struct {
	Name  string
	Email string
}

// Result is what the caller is shown. Nothing is linked until Confirm.
type Result struct {
	AutoMatch       AutoMatch   `json:"auto_match"`
	PossibleMatches []Candidate `json:"possible_matches"`
	// LinkedMember is set when the caller is already linked in this family.
	LinkedMember *memberModels.Member `json:"linked_member,omitempty"`
}

type AutoMatch struct {
	Found  bool                 `json:"found"`
	Member *memberModels.Member `json:"member,omitempty"`
}

type Candidate struct {
	Member *memberModels.Member `json:"member"`
	Score  float64              `json:"score"`
}

// Empty is the no-match result. PossibleMatches encodes as [].
func Empty() Result {
	return Result{PossibleMatches: []Candidate{}}
}
