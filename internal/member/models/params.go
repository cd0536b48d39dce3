package models

import (
	id "kinship/pkg/domain"
)

// CreateParams describes a new member. Father, mother and spouse are
// attached in the same unit as the insert.
type CreateParams struct {
	FamilyID        id.FamilyID
	Name            string
	Gender          Gender
	Generation      int
	FatherID        *id.MemberID
	MotherID        *id.MemberID
	SpouseID        *id.MemberID
	LinkedAccountID *id.AccountID
	Profile         Profile
}

// Editable is the merge-patch document for Update. Relationship fields are
// absent on purpose: they change only through relationship operations.
type Editable struct {
	Name       string `json:"name"`
	Gender     Gender `json:"gender"`
	Generation int    `json:"generation"`
	Profile
}

func (m *Member) Editable() Editable {
	return Editable{
		Name:       m.Name,
		Gender:     m.Gender,
		Generation: m.Generation,
		Profile:    m.Profile,
	}
}

// ProtectedFields may not appear in an update patch.
var ProtectedFields = []string{
	"id", "family_id", "father_id", "mother_id", "spouse_id",
	"linked_account_id", "created_at", "updated_at", "deleted_at",
}

// RestoreReport lists the pointers restore repair cleared.
type RestoreReport struct {
	ClearedFather  bool `json:"cleared_father"`
	ClearedMother  bool `json:"cleared_mother"`
	ClearedSpouse  bool `json:"cleared_spouse"`
	RelinkedSpouse bool `json:"relinked_spouse"`
	ClearedAccount bool `json:"cleared_account"`
}

func (r RestoreReport) Cleared() []string {
	var out []string
	if r.ClearedFather {
		out = append(out, "father")
	}
	if r.ClearedMother {
		out = append(out, "mother")
	}
	if r.ClearedSpouse {
		out = append(out, "spouse")
	}
	if r.ClearedAccount {
		out = append(out, "linked_account")
	}
	return out
}
