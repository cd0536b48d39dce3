//go:build integration

package store_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"kinship/internal/member/models"
	"kinship/internal/member/store"
	id "kinship/pkg/domain"
	"kinship/pkg/platform/sentinel"
	"kinship/pkg/testutil/containers"
)

type PostgresMemberSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *store.PostgresStore
	tx       *store.PostgresPairTx
	familyID id.FamilyID
}

func TestPostgresMemberSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresMemberSuite))
}

func (s *PostgresMemberSuite) SetupSuite() {
	s.postgres = containers.GetManager().GetPostgres(s.T())
	s.store = store.NewPostgres(s.postgres.DB)
	s.tx = store.NewPostgresPairTx(s.postgres.DB, 5*time.Second, 5)
}

func (s *PostgresMemberSuite) SetupTest() {
	ctx := context.Background()
	s.Require().NoError(s.postgres.TruncateTables(ctx, "members", "families"))

	s.familyID = id.NewFamilyID()
	now := time.Now().UTC()
	_, err := s.postgres.DB.ExecContext(ctx,
		`INSERT INTO families (id, name, owner_account_id, created_at, updated_at) VALUES ($1, $2, $3, $4, $4)`,
		s.familyID.String(), "Lovelace", uuid.NewString(), now)
	s.Require().NoError(err)
}

func (s *PostgresMemberSuite) newMember(name string, gender models.Gender, generation int) *models.Member {
	m, err := models.NewMember(id.NewMemberID(), s.familyID, name, gender, generation, models.Profile{}, time.Now().UTC().Truncate(time.Microsecond))
	s.Require().NoError(err)
	return m
}

func (s *PostgresMemberSuite) TestRoundTrip() {
	ctx := context.Background()
	m := s.newMember("Ada", models.GenderFemale, 1)
	birth, err := models.ParseDate("1815-12-10")
	s.Require().NoError(err)
	m.BirthDate = &birth
	m.Occupation = "Mathematician"
	s.Require().NoError(s.store.Create(ctx, m))

	found, err := s.store.FindByID(ctx, m.ID)
	s.Require().NoError(err)
	s.Equal(m.Name, found.Name)
	s.Equal("1815-12-10", found.BirthDate.String())
	s.Nil(found.DeathDate)
	s.Nil(found.SpouseID)
	s.True(m.CreatedAt.Equal(found.CreatedAt))

	_, err = s.store.FindByID(ctx, id.NewMemberID())
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *PostgresMemberSuite) TestActiveAccountUniqueness() {
	ctx := context.Background()
	account := id.AccountID(uuid.New())

	first := s.newMember("First", models.GenderMale, 1)
	first.LinkedAccountID = &account
	s.Require().NoError(s.store.Create(ctx, first))

	second := s.newMember("Second", models.GenderMale, 1)
	second.LinkedAccountID = &account
	s.ErrorIs(s.store.Create(ctx, second), sentinel.ErrAlreadyUsed)

	now := time.Now().UTC()
	first.DeletedAt = &now
	s.Require().NoError(s.store.Save(ctx, first))
	s.NoError(s.store.Create(ctx, second), "tombstones do not hold the account")

	found, err := s.store.FindActiveByAccount(ctx, s.familyID, account)
	s.Require().NoError(err)
	s.Equal(second.ID, found.ID)
}

func (s *PostgresMemberSuite) TestListFiltersAndChildren() {
	ctx := context.Background()
	father := s.newMember("Tom", models.GenderMale, 1)
	s.Require().NoError(s.store.Create(ctx, father))

	for _, name := range []string{"Zed", "Amy"} {
		child := s.newMember(name, models.GenderOther, 2)
		child.FatherID = models.Ref(father.ID)
		s.Require().NoError(s.store.Create(ctx, child))
	}

	children, err := s.store.ListChildren(ctx, s.familyID, father.ID)
	s.Require().NoError(err)
	s.Require().Len(children, 2)
	s.Equal("Amy", children[0].Name)

	gen := 2
	listed, err := s.store.List(ctx, s.familyID, models.ListFilter{Generation: &gen, NameContains: "ZE"})
	s.Require().NoError(err)
	s.Require().Len(listed, 1)
	s.Equal("Zed", listed[0].Name)
}

func (s *PostgresMemberSuite) TestPairTxRollsBack() {
	ctx := context.Background()
	a := s.newMember("A", models.GenderMale, 1)
	b := s.newMember("B", models.GenderFemale, 1)
	s.Require().NoError(s.store.Create(ctx, a))
	s.Require().NoError(s.store.Create(ctx, b))

	boom := errors.New("boom")
	err := s.tx.RunInPairTx(ctx, a.ID, b.ID, func(ctx context.Context) error {
		a.SpouseID = models.Ref(b.ID)
		if err := s.store.Save(ctx, a); err != nil {
			return err
		}
		return boom
	})
	s.ErrorIs(err, boom)

	reloaded, err := s.store.FindByID(ctx, a.ID)
	s.Require().NoError(err)
	s.Nil(reloaded.SpouseID)
}

// TestConcurrentPairsSerialize runs opposite-order pair transactions that
// increment a shared counter stored in the generation column.
func (s *PostgresMemberSuite) TestConcurrentPairsSerialize() {
	ctx := context.Background()
	a := s.newMember("A", models.GenderMale, 1)
	b := s.newMember("B", models.GenderFemale, 1)
	s.Require().NoError(s.store.Create(ctx, a))
	s.Require().NoError(s.store.Create(ctx, b))

	const workers = 4
	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for i := range workers {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			first, second := a.ID, b.ID
			if i%2 == 1 {
				first, second = second, first
			}
			errs <- s.tx.RunInPairTx(ctx, first, second, func(ctx context.Context) error {
				m, err := s.store.FindByID(ctx, a.ID)
				if err != nil {
					return err
				}
				m.Generation++
				return s.store.Save(ctx, m)
			})
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		s.Require().NoError(err)
	}

	final, err := s.store.FindByID(ctx, a.ID)
	s.Require().NoError(err)
	s.Equal(1+workers, final.Generation)
}
