package domain

import (
	"bytes"
	"strings"

	"github.com/google/uuid"

	dErrors "kinship/pkg/domain-errors"
)

// Typed identifiers keep member, family and account ids from being mixed up
// at compile time. All of them are UUIDs on the wire.
type (
	MemberID  uuid.UUID
	FamilyID  uuid.UUID
	AccountID uuid.UUID
)

const maxIDLength = 64

func parseUUID(kind, s string) (uuid.UUID, error) {
	if s == "" || strings.TrimSpace(s) == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, kind+" is required")
	}
	if len(s) > maxIDLength {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, kind+" is malformed")
	}
	u, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, kind+" is malformed")
	}
	if u == uuid.Nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, kind+" must not be nil")
	}
	return u, nil
}

// ParseMemberID parses a member id at a trust boundary.
func ParseMemberID(s string) (MemberID, error) {
	u, err := parseUUID("member id", s)
	return MemberID(u), err
}

// ParseFamilyID parses a family id at a trust boundary.
func ParseFamilyID(s string) (FamilyID, error) {
	u, err := parseUUID("family id", s)
	return FamilyID(u), err
}

// ParseAccountID parses an external account id at a trust boundary.
func ParseAccountID(s string) (AccountID, error) {
	u, err := parseUUID("account id", s)
	return AccountID(u), err
}

func NewMemberID() MemberID { return MemberID(uuid.New()) }
func NewFamilyID() FamilyID { return FamilyID(uuid.New()) }

func (id MemberID) String() string  { return uuid.UUID(id).String() }
func (id FamilyID) String() string  { return uuid.UUID(id).String() }
func (id AccountID) String() string { return uuid.UUID(id).String() }

func (id MemberID) IsNil() bool  { return uuid.UUID(id) == uuid.Nil }
func (id FamilyID) IsNil() bool  { return uuid.UUID(id) == uuid.Nil }
func (id AccountID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }

// Less orders member ids by their byte value, which matches the order of
// their canonical string form.
func (id MemberID) Less(other MemberID) bool {
	return bytes.Compare(id[:], other[:]) < 0
}

// Compare returns -1, 0 or 1 for use with slices.SortFunc.
func (id MemberID) Compare(other MemberID) int {
	return bytes.Compare(id[:], other[:])
}

func (id MemberID) MarshalText() ([]byte, error)  { return uuid.UUID(id).MarshalText() }
func (id FamilyID) MarshalText() ([]byte, error)  { return uuid.UUID(id).MarshalText() }
func (id AccountID) MarshalText() ([]byte, error) { return uuid.UUID(id).MarshalText() }

func (id *MemberID) UnmarshalText(b []byte) error {
	u, err := ParseMemberID(string(b))
	if err != nil {
		return err
	}
	*id = u
	return nil
}

func (id *FamilyID) UnmarshalText(b []byte) error {
	u, err := ParseFamilyID(string(b))
	if err != nil {
		return err
	}
	*id = u
	return nil
}

func (id *AccountID) UnmarshalText(b []byte) error {
	u, err := ParseAccountID(string(b))
	if err != nil {
		return err
	}
	*id = u
	return nil
}
