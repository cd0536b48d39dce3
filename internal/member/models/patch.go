package models

import (
	"encoding/json"
	"slices"
	"strings"

	jsonpatch "github.com/evanphx/json-patch/v5"

	dErrors "kinship/pkg/domain-errors"
)

// ApplyPatch merges an RFC 7396 patch into the member's editable fields and
// returns the result without touching m. Keys naming identity or
// relationship fields are refused.
func ApplyPatch(m *Member, patch []byte) (Editable, error) {
	var keys map[string]json.RawMessage
	if err := json.Unmarshal(patch, &keys); err != nil {
		return Editable{}, dErrors.New(dErrors.CodeBadRequest, "patch must be a JSON object")
	}
	for k := range keys {
		if slices.Contains(ProtectedFields, k) {
			return Editable{}, dErrors.New(dErrors.CodeValidation,
				k+" cannot be changed by update; use the relationship endpoints")
		}
	}

	original, err := json.Marshal(m.Editable())
	if err != nil {
		return Editable{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to encode member")
	}
	merged, err := jsonpatch.MergePatch(original, patch)
	if err != nil {
		return Editable{}, dErrors.Wrap(err, dErrors.CodeBadRequest, "invalid merge patch")
	}

	var out Editable
	dec := json.NewDecoder(strings.NewReader(string(merged)))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&out); err != nil {
		return Editable{}, dErrors.Wrap(err, dErrors.CodeValidation, "patch contains unknown or mistyped fields")
	}
	out.Name = strings.TrimSpace(out.Name)
	if err := ValidateCore(out.Name, out.Gender, out.Generation); err != nil {
		return Editable{}, err
	}
	out.Profile.Normalize()
	if err := out.Profile.Validate(); err != nil {
		return Editable{}, err
	}
	return out, nil
}

// ApplyEditable copies edited fields onto the member.
func (m *Member) ApplyEditable(e Editable) {
	m.Name = e.Name
	m.Gender = e.Gender
	m.Generation = e.Generation
	m.Profile = e.Profile
}
