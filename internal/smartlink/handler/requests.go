package handler

import (
	"strings"

	memberModels "kinship/internal/member/models"
	id "kinship/pkg/domain"
	dErrors "kinship/pkg/domain-errors"
)

// ConfirmRequest is the body of POST .../smart-link/confirm.
type ConfirmRequest struct {
	MemberID string `json:"member_id"`

	parsed id.MemberID
}

func (r *ConfirmRequest) Normalize() {
	r.MemberID = strings.TrimSpace(r.MemberID)
}

func (r *ConfirmRequest) Validate() error {
	parsed, err := id.ParseMemberID(r.MemberID)
	if err != nil {
		return dErrors.New(dErrors.CodeValidation, "member_id: "+dErrors.MessageOf(err))
	}
	r.parsed = parsed
	return nil
}

// NewPersonRequest is the body of POST .../smart-link/new-person. Name may be
// omitted; the caller's token name is used instead.
type NewPersonRequest struct {
	Name       string  `json:"name"`
	Gender     string  `json:"gender"`
	Generation int     `json:"generation"`
	FatherID   *string `json:"father_id,omitempty"`
	MotherID   *string `json:"mother_id,omitempty"`
	SpouseID   *string `json:"spouse_id,omitempty"`
	memberModels.Profile

	gender memberModels.Gender
	refs   [3]*id.MemberID
}

func (r *NewPersonRequest) Normalize() {
	r.Name = strings.TrimSpace(r.Name)
	r.Profile.Normalize()
}

func (r *NewPersonRequest) Validate() error {
	gender, err := memberModels.ParseGender(r.Gender)
	if err != nil {
		return err
	}
	r.gender = gender
	if r.Generation < 1 {
		return dErrors.New(dErrors.CodeValidation, "generation must be a positive integer")
	}
	if err := r.Profile.Validate(); err != nil {
		return err
	}
	for i, f := range []struct {
		raw   *string
		field string
	}{{r.FatherID, "father_id"}, {r.MotherID, "mother_id"}, {r.SpouseID, "spouse_id"}} {
		if f.raw == nil || strings.TrimSpace(*f.raw) == "" {
			continue
		}
		parsed, err := id.ParseMemberID(strings.TrimSpace(*f.raw))
		if err != nil {
			return dErrors.New(dErrors.CodeValidation, f.field+": "+dErrors.MessageOf(err))
		}
		r.refs[i] = &parsed
	}
	return nil
}

func (r *NewPersonRequest) Params(familyID id.FamilyID) memberModels.CreateParams {
	return memberModels.CreateParams{
		FamilyID:   familyID,
		Name:       r.Name,
		Gender:     r.gender,
		Generation: r.Generation,
		FatherID:   r.refs[0],
		MotherID:   r.refs[1],
		SpouseID:   r.refs[2],
		Profile:    r.Profile,
	}
}
