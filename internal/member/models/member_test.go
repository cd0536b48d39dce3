package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "kinship/pkg/domain"
	dErrors "kinship/pkg/domain-errors"
)

func newTestMember(t *testing.T, gender Gender, generation int) *Member {
	t.Helper()
	m, err := NewMember(id.NewMemberID(), id.NewFamilyID(), "  Ada Lovelace ", gender, generation, Profile{Email: " ada@example.com "}, time.Now())
	require.NoError(t, err)
	return m
}

func TestNewMember(t *testing.T) {
	m := newTestMember(t, GenderFemale, 2)
	assert.Equal(t, "Ada Lovelace", m.Name)
	assert.Equal(t, "ada@example.com", m.Email)
	assert.False(t, m.IsDeleted())
	assert.True(t, m.IsAlive())

	_, err := NewMember(id.NewMemberID(), id.NewFamilyID(), "", GenderMale, 1, Profile{}, time.Now())
	assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))

	_, err = NewMember(id.NewMemberID(), id.NewFamilyID(), "Bob", "robot", 1, Profile{}, time.Now())
	assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))

	_, err = NewMember(id.NewMemberID(), id.NewFamilyID(), "Bob", GenderMale, 0, Profile{}, time.Now())
	assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))

	birth := NewDate(1900, time.May, 1)
	death := NewDate(1899, time.May, 1)
	_, err = NewMember(id.NewMemberID(), id.NewFamilyID(), "Bob", GenderMale, 1, Profile{BirthDate: &birth, DeathDate: &death}, time.Now())
	assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
}

func TestCanServeAs(t *testing.T) {
	cases := []struct {
		gender Gender
		role   Role
		ok     bool
	}{
		{GenderMale, RoleFather, true},
		{GenderFemale, RoleMother, true},
		{GenderOther, RoleFather, true},
		{GenderOther, RoleMother, true},
		{GenderFemale, RoleFather, false},
		{GenderMale, RoleMother, false},
	}
	for _, tc := range cases {
		t.Run(string(tc.gender)+"/"+string(tc.role), func(t *testing.T) {
			m := &Member{Gender: tc.gender}
			err := m.CanServeAs(tc.role)
			if tc.ok {
				assert.NoError(t, err)
				return
			}
			assert.True(t, dErrors.HasCode(err, dErrors.CodeGenderMismatch))
		})
	}
}

func TestRelationshipAccessors(t *testing.T) {
	child := newTestMember(t, GenderOther, 2)
	father := id.NewMemberID()
	mother := id.NewMemberID()

	child.SetParent(RoleFather, Ref(father))
	child.SetParent(RoleMother, Ref(mother))
	assert.True(t, child.IsChildOf(father))
	assert.True(t, child.IsChildOf(mother))

	role, ok := child.RoleOf(mother)
	assert.True(t, ok)
	assert.Equal(t, RoleMother, role)

	_, ok = child.RoleOf(id.NewMemberID())
	assert.False(t, ok)

	child.SetParent(RoleFather, nil)
	assert.Nil(t, child.Parent(RoleFather))
}

func TestClone(t *testing.T) {
	m := newTestMember(t, GenderMale, 1)
	m.SpouseID = Ref(id.NewMemberID())
	now := time.Now()
	m.DeletedAt = &now

	c := m.Clone()
	*c.SpouseID = id.NewMemberID()
	later := now.Add(time.Hour)
	*c.DeletedAt = later

	assert.NotEqual(t, *m.SpouseID, *c.SpouseID)
	assert.Equal(t, now, *m.DeletedAt)
}

func TestMemberJSON(t *testing.T) {
	m := newTestMember(t, GenderFemale, 1)
	birth := NewDate(1815, time.December, 10)
	m.BirthDate = &birth

	raw, err := json.Marshal(m)
	require.NoError(t, err)

	var doc map[string]any
	require.NoError(t, json.Unmarshal(raw, &doc))
	assert.Equal(t, "1815-12-10", doc["birth_date"])
	assert.Contains(t, doc, "spouse_id")
	assert.Nil(t, doc["spouse_id"])
	assert.Contains(t, doc, "deleted_at")
}

func TestApplyPatch(t *testing.T) {
	t.Run("merges profile fields", func(t *testing.T) {
		m := newTestMember(t, GenderFemale, 1)
		m.Occupation = "Mathematician"

		e, err := ApplyPatch(m, []byte(`{"bio":"Wrote the first program","occupation":null,"death_date":"1852-11-27"}`))
		require.NoError(t, err)
		assert.Equal(t, "Ada Lovelace", e.Name)
		assert.Equal(t, "Wrote the first program", e.Bio)
		assert.Empty(t, e.Occupation)
		require.NotNil(t, e.DeathDate)
		assert.Equal(t, "1852-11-27", e.DeathDate.String())
		assert.Equal(t, "Mathematician", m.Occupation, "source member is untouched")
	})

	t.Run("rejects relationship keys", func(t *testing.T) {
		m := newTestMember(t, GenderFemale, 1)
		_, err := ApplyPatch(m, []byte(`{"spouse_id":null}`))
		assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
	})

	t.Run("rejects unknown keys", func(t *testing.T) {
		m := newTestMember(t, GenderFemale, 1)
		_, err := ApplyPatch(m, []byte(`{"nickname":"Ada"}`))
		assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
	})

	t.Run("rejects non-object patch", func(t *testing.T) {
		m := newTestMember(t, GenderFemale, 1)
		_, err := ApplyPatch(m, []byte(`[1,2]`))
		assert.True(t, dErrors.HasCode(err, dErrors.CodeBadRequest))
	})

	t.Run("validates merged result", func(t *testing.T) {
		m := newTestMember(t, GenderFemale, 1)
		_, err := ApplyPatch(m, []byte(`{"name":null}`))
		assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))

		_, err = ApplyPatch(m, []byte(`{"generation":0}`))
		assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
	})
}

func TestListFilterMatches(t *testing.T) {
	alive := newTestMember(t, GenderMale, 2)
	dead := newTestMember(t, GenderFemale, 3)
	d := NewDate(1950, time.January, 1)
	dead.DeathDate = &d
	deleted := newTestMember(t, GenderMale, 2)
	now := time.Now()
	deleted.DeletedAt = &now

	gen := 2
	male := GenderMale

	assert.True(t, ListFilter{}.Matches(alive))
	assert.False(t, ListFilter{}.Matches(deleted))
	assert.True(t, ListFilter{Scope: DeletedOnly}.Matches(deleted))
	assert.False(t, ListFilter{Scope: DeletedOnly}.Matches(alive))
	assert.True(t, ListFilter{Scope: ActiveAndDeleted}.Matches(deleted))

	assert.True(t, ListFilter{Generation: &gen}.Matches(alive))
	assert.False(t, ListFilter{Generation: &gen}.Matches(dead))
	assert.False(t, ListFilter{Gender: &male}.Matches(dead))
	assert.True(t, ListFilter{NameContains: "LOVE"}.Matches(alive))
	assert.False(t, ListFilter{NameContains: "turing"}.Matches(alive))

	assert.True(t, ListFilter{Status: LifeStatusDeceased}.Matches(dead))
	assert.False(t, ListFilter{Status: LifeStatusAlive}.Matches(dead))

	alive.LinkedAccountID = new(id.AccountID)
	assert.False(t, ListFilter{UnlinkedOnly: true}.Matches(alive))
}
