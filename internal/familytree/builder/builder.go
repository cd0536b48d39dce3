// Package builder turns a flat member list into a kinship graph.
package builder

import (
	"slices"

	"kinship/internal/familytree/models"
	memberModels "kinship/internal/member/models"
	id "kinship/pkg/domain"
)

// Build derives the tree for familyID from members. Deleted members and
// members of other families are skipped; references to them, or to purged
// ids, are omitted. Children keep the order of the input slice.
func Build(familyID id.FamilyID, members []*memberModels.Member) *models.Tree {
	tree := &models.Tree{
		FamilyID: familyID,
		Nodes:    make(map[id.MemberID]*models.Node, len(members)),
		Roots:    []id.MemberID{},
		Couples:  []models.Couple{},
	}
	order := make([]id.MemberID, 0, len(members))
	for _, m := range members {
		if m == nil || m.IsDeleted() || m.FamilyID != familyID {
			continue
		}
		if _, dup := tree.Nodes[m.ID]; dup {
			continue
		}
		tree.Nodes[m.ID] = &models.Node{
			Member:   m,
			Parents:  []id.MemberID{},
			Spouses:  []id.MemberID{},
			Children: []id.MemberID{},
		}
		order = append(order, m.ID)
	}

	for _, memberID := range order {
		node := tree.Nodes[memberID]
		m := node.Member
		for _, ref := range []*id.MemberID{m.FatherID, m.MotherID} {
			if ref == nil || *ref == m.ID {
				continue
			}
			parent, ok := tree.Nodes[*ref]
			if !ok || slices.Contains(node.Parents, *ref) {
				continue
			}
			node.Parents = append(node.Parents, *ref)
			parent.Children = append(parent.Children, m.ID)
		}
		if len(node.Parents) == 0 {
			tree.Roots = append(tree.Roots, m.ID)
		}

		if m.SpouseID == nil || *m.SpouseID == m.ID {
			continue
		}
		spouse, ok := tree.Nodes[*m.SpouseID]
		if !ok {
			continue
		}
		node.Spouses = append(node.Spouses, spouse.Member.ID)
		if spouse.Member.IsMarriedTo(m.ID) && m.ID.Less(spouse.Member.ID) {
			tree.Couples = append(tree.Couples, models.Couple{Primary: m.ID, Secondary: spouse.Member.ID})
		}
	}
	return tree
}
