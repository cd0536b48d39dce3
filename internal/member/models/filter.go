package models

import (
	"strings"

	dErrors "kinship/pkg/domain-errors"
)

// LifeStatus filters on whether a death date is recorded.
type LifeStatus string

const (
	LifeStatusAny      LifeStatus = ""
	LifeStatusAlive    LifeStatus = "alive"
	LifeStatusDeceased LifeStatus = "deceased"
)

func ParseLifeStatus(s string) (LifeStatus, error) {
	switch st := LifeStatus(strings.ToLower(strings.TrimSpace(s))); st {
	case LifeStatusAny, LifeStatusAlive, LifeStatusDeceased:
		return st, nil
	default:
		return "", dErrors.New(dErrors.CodeValidation, "status must be alive or deceased")
	}
}

// DeletedScope selects active records, tombstones, or both.
type DeletedScope int

const (
	ActiveOnly DeletedScope = iota
	DeletedOnly
	ActiveAndDeleted
)

// ListFilter narrows List. Zero value lists every active member.
type ListFilter struct {
	Generation   *int
	Gender       *Gender
	NameContains string
	Status       LifeStatus
	Scope        DeletedScope
	// UnlinkedOnly keeps members without a linked account.
	UnlinkedOnly bool
}

// Matches is the reference predicate; the SQL store mirrors it in WHERE.
func (f ListFilter) Matches(m *Member) bool {
	switch f.Scope {
	case ActiveOnly:
		if m.IsDeleted() {
			return false
		}
	case DeletedOnly:
		if !m.IsDeleted() {
			return false
		}
	}
	if f.Generation != nil && m.Generation != *f.Generation {
		return false
	}
	if f.Gender != nil && m.Gender != *f.Gender {
		return false
	}
	if f.NameContains != "" && !strings.Contains(strings.ToLower(m.Name), strings.ToLower(f.NameContains)) {
		return false
	}
	switch f.Status {
	case LifeStatusAlive:
		if !m.IsAlive() {
			return false
		}
	case LifeStatusDeceased:
		if m.IsAlive() {
			return false
		}
	}
	if f.UnlinkedOnly && m.LinkedAccountID != nil {
		return false
	}
	return true
}
