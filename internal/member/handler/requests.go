package handler

import (
	"net/url"
	"strconv"
	"strings"

	"kinship/internal/member/models"
	id "kinship/pkg/domain"
	dErrors "kinship/pkg/domain-errors"
)

// CreateMemberRequest is the body of POST /families/{familyID}/members.
type CreateMemberRequest struct {
	Name       string  `json:"name"`
	Gender     string  `json:"gender"`
	Generation int     `json:"generation"`
	FatherID   *string `json:"father_id,omitempty"`
	MotherID   *string `json:"mother_id,omitempty"`
	SpouseID   *string `json:"spouse_id,omitempty"`
	models.Profile

	parsedGender models.Gender
	fatherID     *id.MemberID
	motherID     *id.MemberID
	spouseID     *id.MemberID
}

func (r *CreateMemberRequest) Normalize() {
	r.Name = strings.TrimSpace(r.Name)
	r.Gender = strings.ToLower(strings.TrimSpace(r.Gender))
	r.Profile.Normalize()
}

// Validate checks shape and parses ids. Domain rules run in the service.
func (r *CreateMemberRequest) Validate() error {
	if r.Name == "" {
		return dErrors.New(dErrors.CodeValidation, "name is required")
	}
	gender, err := models.ParseGender(r.Gender)
	if err != nil {
		return err
	}
	r.parsedGender = gender
	if err := r.Profile.Validate(); err != nil {
		return err
	}
	if r.fatherID, err = parseOptionalMemberID(r.FatherID, "father_id"); err != nil {
		return err
	}
	if r.motherID, err = parseOptionalMemberID(r.MotherID, "mother_id"); err != nil {
		return err
	}
	if r.spouseID, err = parseOptionalMemberID(r.SpouseID, "spouse_id"); err != nil {
		return err
	}
	return nil
}

// Params builds the service input for familyID.
func (r *CreateMemberRequest) Params(familyID id.FamilyID) models.CreateParams {
	return models.CreateParams{
		FamilyID:   familyID,
		Name:       r.Name,
		Gender:     r.parsedGender,
		Generation: r.Generation,
		FatherID:   r.fatherID,
		MotherID:   r.motherID,
		SpouseID:   r.spouseID,
		Profile:    r.Profile,
	}
}

// AttachSpouseRequest is the body of POST .../spouse.
type AttachSpouseRequest struct {
	SpouseID string `json:"spouse_id"`

	parsed id.MemberID
}

func (r *AttachSpouseRequest) Normalize() {
	r.SpouseID = strings.TrimSpace(r.SpouseID)
}

func (r *AttachSpouseRequest) Validate() error {
	parsed, err := id.ParseMemberID(r.SpouseID)
	if err != nil {
		return dErrors.New(dErrors.CodeValidation, "spouse_id: "+dErrors.MessageOf(err))
	}
	r.parsed = parsed
	return nil
}

// AttachParentRequest is the body of PUT .../parents/{role}.
type AttachParentRequest struct {
	ParentID string `json:"parent_id"`

	parsed id.MemberID
}

func (r *AttachParentRequest) Normalize() {
	r.ParentID = strings.TrimSpace(r.ParentID)
}

func (r *AttachParentRequest) Validate() error {
	parsed, err := id.ParseMemberID(r.ParentID)
	if err != nil {
		return dErrors.New(dErrors.CodeValidation, "parent_id: "+dErrors.MessageOf(err))
	}
	r.parsed = parsed
	return nil
}

// parseListFilter reads generation, gender, name, status and unlinked from
// the query string.
func parseListFilter(q url.Values) (models.ListFilter, error) {
	var f models.ListFilter
	if raw := strings.TrimSpace(q.Get("generation")); raw != "" {
		g, err := strconv.Atoi(raw)
		if err != nil || g < 1 {
			return f, dErrors.New(dErrors.CodeValidation, "generation must be a positive integer")
		}
		f.Generation = &g
	}
	if raw := q.Get("gender"); raw != "" {
		g, err := models.ParseGender(raw)
		if err != nil {
			return f, err
		}
		f.Gender = &g
	}
	f.NameContains = strings.TrimSpace(q.Get("name"))
	status, err := models.ParseLifeStatus(q.Get("status"))
	if err != nil {
		return f, err
	}
	f.Status = status
	if raw := q.Get("unlinked"); raw != "" {
		unlinked, err := strconv.ParseBool(raw)
		if err != nil {
			return f, dErrors.New(dErrors.CodeValidation, "unlinked must be true or false")
		}
		f.UnlinkedOnly = unlinked
	}
	return f, nil
}

func parseOptionalMemberID(raw *string, field string) (*id.MemberID, error) {
	if raw == nil || strings.TrimSpace(*raw) == "" {
		return nil, nil
	}
	parsed, err := id.ParseMemberID(strings.TrimSpace(*raw))
	if err != nil {
		return nil, dErrors.New(dErrors.CodeValidation, field+": "+dErrors.MessageOf(err))
	}
	return &parsed, nil
}
