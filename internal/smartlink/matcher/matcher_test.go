package matcher

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	memberModels "kinship/internal/member/models"
	"kinship/internal/smartlink/models"
	id "kinship/pkg/domain"
)

func newMember(t *testing.T, name, addr string) *memberModels.Member {
	t.Helper()
	m, err := memberModels.NewMember(id.NewMemberID(), id.NewFamilyID(), name, memberModels.GenderOther, 1,
		memberModels.Profile{Email: addr}, time.Now())
	require.NoError(t, err)
	return m
}

func TestNormalize(t *testing.T) {
	assert.Equal(t, "jose obrien", Normalize("  José  O'Brien "))
	assert.Equal(t, "zoe", Normalize("ZOË"))
	assert.Equal(t, "anne marie", Normalize("Anne-Marie"))
	assert.Equal(t, "", Normalize("  ... "))
}

func TestSimilarity(t *testing.T) {
	assert.Equal(t, 1.0, Similarity("Müller", "muller"))
	assert.Equal(t, 1.0, Similarity("John Doe", "Doe John"))
	assert.Equal(t, 0.0, Similarity("", "John"))
	assert.InDelta(t, 0.8, Similarity("Jonny", "Jonne"), 0.0001)
	assert.Less(t, Similarity("John Doe", "Xavier Quint"), DefaultMinScore)
}

func TestMatch(t *testing.T) {
	t.Run("email auto-match is case-insensitive", func(t *testing.T) {
		m := newMember(t, "Eve One", "e1@x.com")
		other := newMember(t, "Someone Else", "e2@x.com")

		res := Match(models.Identity{Email: "E1@X.com"}, []*memberModels.Member{m, other}, Options{})
		require.True(t, res.AutoMatch.Found)
		assert.Equal(t, m.ID, res.AutoMatch.Member.ID)
	})

	t.Run("auto-matched member is not repeated in the list", func(t *testing.T) {
		m := newMember(t, "Eve One", "e1@x.com")
		twin := newMember(t, "Eve One", "")

		res := Match(models.Identity{Name: "Eve One", Email: "e1@x.com"}, []*memberModels.Member{m, twin}, Options{})
		require.True(t, res.AutoMatch.Found)
		require.Len(t, res.PossibleMatches, 1)
		assert.Equal(t, twin.ID, res.PossibleMatches[0].Member.ID)
	})

	t.Run("two members sharing the email is not an auto-match", func(t *testing.T) {
		a := newMember(t, "A", "shared@x.com")
		b := newMember(t, "B", "SHARED@x.com")

		res := Match(models.Identity{Email: "shared@x.com"}, []*memberModels.Member{a, b}, Options{})
		assert.False(t, res.AutoMatch.Found)
	})

	t.Run("no match is an empty result", func(t *testing.T) {
		res := Match(models.Identity{Name: "Zed Zulu", Email: "zed@nowhere.io"},
			[]*memberModels.Member{newMember(t, "Alice Smith", "alice@x.com")}, Options{})
		assert.False(t, res.AutoMatch.Found)
		assert.Nil(t, res.AutoMatch.Member)
		assert.NotNil(t, res.PossibleMatches)
		assert.Empty(t, res.PossibleMatches)
	})

	t.Run("sorted by score then id, truncated to the limit", func(t *testing.T) {
		exact1 := newMember(t, "John Doe", "")
		exact2 := newMember(t, "john doe", "")
		close1 := newMember(t, "Jon Doe", "")
		far := newMember(t, "Mary Major", "")

		res := Match(models.Identity{Name: "John Doe"}, []*memberModels.Member{close1, far, exact2, exact1},
			Options{MaxCandidates: 2})
		require.Len(t, res.PossibleMatches, 2)
		first, second := exact1, exact2
		if exact2.ID.Less(exact1.ID) {
			first, second = exact2, exact1
		}
		assert.Equal(t, first.ID, res.PossibleMatches[0].Member.ID)
		assert.Equal(t, second.ID, res.PossibleMatches[1].Member.ID)
		assert.Equal(t, 1.0, res.PossibleMatches[0].Score)
	})

	t.Run("threshold is configurable", func(t *testing.T) {
		close1 := newMember(t, "Jon Doe", "")
		loose := Match(models.Identity{Name: "John Doe"}, []*memberModels.Member{close1}, Options{MinScore: 0.5})
		strict := Match(models.Identity{Name: "John Doe"}, []*memberModels.Member{close1}, Options{MinScore: 0.95})
		assert.Len(t, loose.PossibleMatches, 1)
		assert.Empty(t, strict.PossibleMatches)
	})

	t.Run("linked and deleted members are skipped", func(t *testing.T) {
		linked := newMember(t, "John Doe", "john@x.com")
		account := id.AccountID(id.NewMemberID())
		linked.LinkedAccountID = &account
		deleted := newMember(t, "John Doe", "")
		now := time.Now()
		deleted.DeletedAt = &now

		res := Match(models.Identity{Name: "John Doe", Email: "john@x.com"}, []*memberModels.Member{linked, deleted}, Options{})
		assert.False(t, res.AutoMatch.Found)
		assert.Empty(t, res.PossibleMatches)
	})

	t.Run("name derived from email when the identity has none", func(t *testing.T) {
		m := newMember(t, "Jane Doe", "")
		res := Match(models.Identity{Email: "jane.doe@example.com"}, []*memberModels.Member{m}, Options{})
		require.Len(t, res.PossibleMatches, 1)
		assert.Equal(t, m.ID, res.PossibleMatches[0].Member.ID)
	})
}
