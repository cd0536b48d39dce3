package models

import (
	"strings"
	"time"

	id "kinship/pkg/domain"
	dErrors "kinship/pkg/domain-errors"
)

type Gender string

const (
	GenderMale   Gender = "male"
	GenderFemale Gender = "female"
	GenderOther  Gender = "other"
)

func ParseGender(s string) (Gender, error) {
	switch g := Gender(strings.ToLower(strings.TrimSpace(s))); g {
	case GenderMale, GenderFemale, GenderOther:
		return g, nil
	default:
		return "", dErrors.New(dErrors.CodeValidation, "gender must be one of male, female, other")
	}
}

// Role is the parent slot a member fills on a child record.
type Role string

const (
	RoleFather Role = "father"
	RoleMother Role = "mother"
)

func ParseRole(s string) (Role, error) {
	switch r := Role(strings.ToLower(strings.TrimSpace(s))); r {
	case RoleFather, RoleMother:
		return r, nil
	default:
		return "", dErrors.New(dErrors.CodeValidation, "role must be father or mother")
	}
}

// Gender is the gender a parent in this role is expected to carry.
func (r Role) Gender() Gender {
	if r == RoleMother {
		return GenderFemale
	}
	return GenderMale
}

// Other returns the opposite parent role.
func (r Role) Other() Role {
	if r == RoleMother {
		return RoleFather
	}
	return RoleMother
}

const MaxNameLength = 200

// Member is one person in a family record.
//
// Invariants for active members, after every completed operation:
//   - SpouseID is symmetric: if A.SpouseID = B then B.SpouseID = A
//   - FatherID, MotherID and SpouseID never equal ID
//   - a member is never its own grandparent through one father/mother hop
//   - LinkedAccountID is held by at most one active member per family
//
// Soft delete sets DeletedAt and keeps every pointer so restore can repair
// them. Pointers to purged members are treated as absent by readers.
type Member struct {
	ID              id.MemberID   `json:"id"`
	FamilyID        id.FamilyID   `json:"family_id"`
	Name            string        `json:"name"`
	Gender          Gender        `json:"gender"`
	Generation      int           `json:"generation"`
	FatherID        *id.MemberID  `json:"father_id"`
	MotherID        *id.MemberID  `json:"mother_id"`
	SpouseID        *id.MemberID  `json:"spouse_id"`
	LinkedAccountID *id.AccountID `json:"linked_account_id"`
	Profile
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
	DeletedAt *time.Time `json:"deleted_at"`
}

// Profile holds the editable descriptive fields of a member.
type Profile struct {
	Email      string `json:"email,omitempty"`
	BirthDate  *Date  `json:"birth_date,omitempty"`
	DeathDate  *Date  `json:"death_date,omitempty"`
	BirthPlace string `json:"birth_place,omitempty"`
	Occupation string `json:"occupation,omitempty"`
	Bio        string `json:"bio,omitempty"`
	PhotoURL   string `json:"photo_url,omitempty"`
}

func (m *Member) IsDeleted() bool { return m.DeletedAt != nil }

// IsAlive reports whether no death date is recorded.
func (m *Member) IsAlive() bool { return m.DeathDate == nil }

func (m *Member) Parent(role Role) *id.MemberID {
	if role == RoleMother {
		return m.MotherID
	}
	return m.FatherID
}

func (m *Member) SetParent(role Role, parentID *id.MemberID) {
	if role == RoleMother {
		m.MotherID = parentID
		return
	}
	m.FatherID = parentID
}

// IsChildOf reports whether parentID is this member's father or mother.
func (m *Member) IsChildOf(parentID id.MemberID) bool {
	return pointsAt(m.FatherID, parentID) || pointsAt(m.MotherID, parentID)
}

// RoleOf returns the role parentID fills for this member, if any.
func (m *Member) RoleOf(parentID id.MemberID) (Role, bool) {
	switch {
	case pointsAt(m.FatherID, parentID):
		return RoleFather, true
	case pointsAt(m.MotherID, parentID):
		return RoleMother, true
	default:
		return "", false
	}
}

func (m *Member) IsMarriedTo(other id.MemberID) bool {
	return pointsAt(m.SpouseID, other)
}

func (m *Member) IsLinkedTo(account id.AccountID) bool {
	return m.LinkedAccountID != nil && *m.LinkedAccountID == account
}

// CanServeAs checks the member's gender against a parent role.
// Members with gender other may fill either role.
func (m *Member) CanServeAs(role Role) error {
	return GenderFits(m.Gender, role)
}

// GenderFits reports GenderMismatch when g cannot fill role.
func GenderFits(g Gender, role Role) error {
	if g == GenderOther || g == role.Gender() {
		return nil
	}
	return dErrors.New(dErrors.CodeGenderMismatch,
		"a "+string(role)+" must have gender "+string(role.Gender())+" or other")
}

// Clone returns a deep copy so stores never share pointers with callers.
func (m *Member) Clone() *Member {
	if m == nil {
		return nil
	}
	c := *m
	c.FatherID = cloneID(m.FatherID)
	c.MotherID = cloneID(m.MotherID)
	c.SpouseID = cloneID(m.SpouseID)
	if m.LinkedAccountID != nil {
		a := *m.LinkedAccountID
		c.LinkedAccountID = &a
	}
	if m.BirthDate != nil {
		d := *m.BirthDate
		c.BirthDate = &d
	}
	if m.DeathDate != nil {
		d := *m.DeathDate
		c.DeathDate = &d
	}
	if m.DeletedAt != nil {
		t := *m.DeletedAt
		c.DeletedAt = &t
	}
	return &c
}

// NewMember validates the core fields and builds an active member with no links.
func NewMember(memberID id.MemberID, familyID id.FamilyID, name string, gender Gender, generation int, profile Profile, now time.Time) (*Member, error) {
	name = strings.TrimSpace(name)
	if err := ValidateCore(name, gender, generation); err != nil {
		return nil, err
	}
	profile.Normalize()
	if err := profile.Validate(); err != nil {
		return nil, err
	}
	return &Member{
		ID:         memberID,
		FamilyID:   familyID,
		Name:       name,
		Gender:     gender,
		Generation: generation,
		Profile:    profile,
		CreatedAt:  now,
		UpdatedAt:  now,
	}, nil
}

func ValidateCore(name string, gender Gender, generation int) error {
	if name == "" {
		return dErrors.New(dErrors.CodeValidation, "name is required")
	}
	if len([]rune(name)) > MaxNameLength {
		return dErrors.New(dErrors.CodeValidation, "name must be 200 characters or less")
	}
	if _, err := ParseGender(string(gender)); err != nil {
		return err
	}
	if generation < 1 {
		return dErrors.New(dErrors.CodeValidation, "generation must be a positive integer")
	}
	return nil
}

func (p *Profile) Normalize() {
	p.Email = strings.TrimSpace(p.Email)
	p.BirthPlace = strings.TrimSpace(p.BirthPlace)
	p.Occupation = strings.TrimSpace(p.Occupation)
	p.PhotoURL = strings.TrimSpace(p.PhotoURL)
}

func (p *Profile) Validate() error {
	if p.Email != "" && !strings.Contains(p.Email, "@") {
		return dErrors.New(dErrors.CodeValidation, "email is malformed")
	}
	if p.BirthDate != nil && p.DeathDate != nil && p.DeathDate.Before(*p.BirthDate) {
		return dErrors.New(dErrors.CodeValidation, "death_date must not precede birth_date")
	}
	return nil
}

func cloneID(p *id.MemberID) *id.MemberID {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func pointsAt(p *id.MemberID, target id.MemberID) bool {
	return p != nil && *p == target
}

// Ref returns a pointer to a copy of memberID.
func Ref(memberID id.MemberID) *id.MemberID {
	return &memberID
}
