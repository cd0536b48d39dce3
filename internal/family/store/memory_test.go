package store

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"kinship/internal/family/models"
	id "kinship/pkg/domain"
	"kinship/pkg/platform/sentinel"
)

type FamilyStoreSuite struct {
	suite.Suite
	store *InMemory
	ctx   context.Context
	owner id.AccountID
}

func TestFamilyStoreSuite(t *testing.T) {
	suite.Run(t, new(FamilyStoreSuite))
}

func (s *FamilyStoreSuite) SetupTest() {
	s.store = NewInMemory()
	s.ctx = context.Background()
	s.owner = id.AccountID(uuid.New())
}

func (s *FamilyStoreSuite) newFamily(name string, owner id.AccountID) *models.Family {
	f, err := models.NewFamily(id.NewFamilyID(), name, owner, time.Now())
	s.Require().NoError(err)
	return f
}

func (s *FamilyStoreSuite) TestCreationAndLookups() {
	s.Run("creates and finds family by ID", func() {
		f := s.newFamily("Lovelace", s.owner)
		s.Require().NoError(s.store.CreateIfNameAvailable(s.ctx, f))

		found, err := s.store.FindByID(s.ctx, f.ID)
		s.Require().NoError(err)
		s.Equal("Lovelace", found.Name)
	})

	s.Run("returns ErrNotFound for unknown ID", func() {
		_, err := s.store.FindByID(s.ctx, id.NewFamilyID())
		s.ErrorIs(err, sentinel.ErrNotFound)
	})
}

func (s *FamilyStoreSuite) TestNameUniquenessPerOwner() {
	s.Require().NoError(s.store.CreateIfNameAvailable(s.ctx, s.newFamily("Byron", s.owner)))

	err := s.store.CreateIfNameAvailable(s.ctx, s.newFamily("BYRON", s.owner))
	s.ErrorIs(err, sentinel.ErrAlreadyUsed)

	s.NoError(s.store.CreateIfNameAvailable(s.ctx, s.newFamily("Byron", id.AccountID(uuid.New()))),
		"another owner may reuse the name")

	n, err := s.store.Count(s.ctx)
	s.Require().NoError(err)
	s.Equal(2, n)
}

func (s *FamilyStoreSuite) TestListByOwner() {
	for _, name := range []string{"zeta", "Alpha", "mid"} {
		s.Require().NoError(s.store.CreateIfNameAvailable(s.ctx, s.newFamily(name, s.owner)))
	}
	s.Require().NoError(s.store.CreateIfNameAvailable(s.ctx, s.newFamily("other", id.AccountID(uuid.New()))))

	families, err := s.store.ListByOwner(s.ctx, s.owner)
	s.Require().NoError(err)
	s.Require().Len(families, 3)
	s.Equal([]string{"Alpha", "mid", "zeta"}, []string{families[0].Name, families[1].Name, families[2].Name})
}
