package models

import (
	memberModels "kinship/internal/member/models"
	id "kinship/pkg/domain"
)

// Tree is a read-only kinship graph for one family, rebuilt on every request.
type Tree struct {
	FamilyID id.FamilyID           `json:"family_id"`
	Nodes    map[id.MemberID]*Node `json:"nodes"`
	// Roots are members with no parent present in the family.
	Roots   []id.MemberID `json:"roots"`
	Couples []Couple      `json:"couples"`
}

// Node lists a member's resolved neighbours. Ids that do not resolve to an
// active member of the family are left out.
type Node struct {
	Member   *memberModels.Member `json:"member"`
	Parents  []id.MemberID        `json:"parents"`
	Spouses  []id.MemberID        `json:"spouses"`
	Children []id.MemberID        `json:"children"`
}

// Couple orders a married pair for display: the smaller id is primary.
type Couple struct {
	Primary   id.MemberID `json:"primary"`
	Secondary id.MemberID `json:"secondary"`
}

// Children returns the children of memberID, or nil when it is not in the tree.
func (t *Tree) Children(memberID id.MemberID) []id.MemberID {
	if n, ok := t.Nodes[memberID]; ok {
		return n.Children
	}
	return nil
}
