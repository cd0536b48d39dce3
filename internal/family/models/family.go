package models

import (
	"strings"
	"time"

	id "kinship/pkg/domain"
	dErrors "kinship/pkg/domain-errors"
)

const MaxFamilyNameLength = 128

// Family scopes a set of members. Every member operation names its family
// and members of other families read as not found.
//
// Invariants:
//   - Name is non-empty and at most 128 characters
//   - OwnerAccountID is set at creation and never changes
//   - Names are unique per owner, case-insensitively
type Family struct {
	ID             id.FamilyID  `json:"id"`
	Name           string       `json:"name"`
	OwnerAccountID id.AccountID `json:"owner_account_id"`
	CreatedAt      time.Time    `json:"created_at"`
	UpdatedAt      time.Time    `json:"updated_at"`
}

func NewFamily(familyID id.FamilyID, name string, owner id.AccountID, now time.Time) (*Family, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "family name is required")
	}
	if len([]rune(name)) > MaxFamilyNameLength {
		return nil, dErrors.New(dErrors.CodeValidation, "family name must be 128 characters or less")
	}
	if owner.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "family owner is required")
	}
	return &Family{
		ID:             familyID,
		Name:           name,
		OwnerAccountID: owner,
		CreatedAt:      now,
		UpdatedAt:      now,
	}, nil
}

// NameKey is the case-folded name used for uniqueness.
func (f *Family) NameKey() string {
	return strings.ToLower(f.Name)
}
