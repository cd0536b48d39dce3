package store

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"kinship/internal/member/models"
	id "kinship/pkg/domain"
	dErrors "kinship/pkg/domain-errors"
	"kinship/pkg/platform/sentinel"
)

type MemberStoreSuite struct {
	suite.Suite
	store    *InMemory
	tx       *ShardedPairTx
	ctx      context.Context
	familyID id.FamilyID
}

func TestMemberStoreSuite(t *testing.T) {
	suite.Run(t, new(MemberStoreSuite))
}

func (s *MemberStoreSuite) SetupTest() {
	s.store = NewInMemory()
	s.tx = NewShardedPairTx(s.store, time.Second)
	s.ctx = context.Background()
	s.familyID = id.NewFamilyID()
}

func (s *MemberStoreSuite) newMember(name string, gender models.Gender, generation int) *models.Member {
	m, err := models.NewMember(id.NewMemberID(), s.familyID, name, gender, generation, models.Profile{}, time.Now())
	s.Require().NoError(err)
	return m
}

func (s *MemberStoreSuite) TestCreateAndFind() {
	s.Run("round trips a member without aliasing", func() {
		m := s.newMember("Grace", models.GenderFemale, 1)
		s.Require().NoError(s.store.Create(s.ctx, m))

		m.Name = "changed after create"
		found, err := s.store.FindByID(s.ctx, m.ID)
		s.Require().NoError(err)
		s.Equal("Grace", found.Name)

		found.Name = "changed after find"
		again, err := s.store.FindByID(s.ctx, m.ID)
		s.Require().NoError(err)
		s.Equal("Grace", again.Name)
	})

	s.Run("rejects duplicate id", func() {
		m := s.newMember("Alan", models.GenderMale, 1)
		s.Require().NoError(s.store.Create(s.ctx, m))
		s.ErrorIs(s.store.Create(s.ctx, m), sentinel.ErrConflict)
	})

	s.Run("returns ErrNotFound for unknown id", func() {
		_, err := s.store.FindByID(s.ctx, id.NewMemberID())
		s.ErrorIs(err, sentinel.ErrNotFound)
		s.ErrorIs(s.store.Save(s.ctx, s.newMember("Ghost", models.GenderOther, 1)), sentinel.ErrNotFound)
		s.ErrorIs(s.store.Delete(s.ctx, id.NewMemberID()), sentinel.ErrNotFound)
	})
}

func (s *MemberStoreSuite) TestLinkedAccountUniqueness() {
	account := id.AccountID(uuid.New())

	first := s.newMember("First", models.GenderMale, 1)
	first.LinkedAccountID = &account
	s.Require().NoError(s.store.Create(s.ctx, first))

	s.Run("rejects a second active holder in the same family", func() {
		second := s.newMember("Second", models.GenderMale, 1)
		second.LinkedAccountID = &account
		s.ErrorIs(s.store.Create(s.ctx, second), sentinel.ErrAlreadyUsed)
	})

	s.Run("allows the account in another family", func() {
		other, err := models.NewMember(id.NewMemberID(), id.NewFamilyID(), "Other", models.GenderMale, 1, models.Profile{}, time.Now())
		s.Require().NoError(err)
		other.LinkedAccountID = &account
		s.NoError(s.store.Create(s.ctx, other))
	})

	s.Run("allows reuse once the holder is deleted", func() {
		now := time.Now()
		first.DeletedAt = &now
		s.Require().NoError(s.store.Save(s.ctx, first))

		third := s.newMember("Third", models.GenderMale, 1)
		third.LinkedAccountID = &account
		s.NoError(s.store.Create(s.ctx, third))

		found, err := s.store.FindActiveByAccount(s.ctx, s.familyID, account)
		s.Require().NoError(err)
		s.Equal(third.ID, found.ID)
	})
}

func (s *MemberStoreSuite) TestListAndChildren() {
	father := s.newMember("Zed", models.GenderMale, 1)
	child1 := s.newMember("Bea", models.GenderFemale, 2)
	child2 := s.newMember("Al", models.GenderMale, 2)
	deleted := s.newMember("Cy", models.GenderMale, 2)
	child1.FatherID = models.Ref(father.ID)
	child2.FatherID = models.Ref(father.ID)
	deleted.FatherID = models.Ref(father.ID)
	now := time.Now()
	deleted.DeletedAt = &now
	for _, m := range []*models.Member{father, child1, child2, deleted} {
		s.Require().NoError(s.store.Create(s.ctx, m))
	}

	all, err := s.store.List(s.ctx, s.familyID, models.ListFilter{})
	s.Require().NoError(err)
	s.Require().Len(all, 3)
	s.Equal([]string{"Zed", "Al", "Bea"}, []string{all[0].Name, all[1].Name, all[2].Name})

	trash, err := s.store.List(s.ctx, s.familyID, models.ListFilter{Scope: models.DeletedOnly})
	s.Require().NoError(err)
	s.Require().Len(trash, 1)
	s.Equal(deleted.ID, trash[0].ID)

	children, err := s.store.ListChildren(s.ctx, s.familyID, father.ID)
	s.Require().NoError(err)
	s.Len(children, 2)

	empty, err := s.store.List(s.ctx, id.NewFamilyID(), models.ListFilter{})
	s.Require().NoError(err)
	s.NotNil(empty)
	s.Empty(empty)
}

func (s *MemberStoreSuite) TestPairTxRollback() {
	a := s.newMember("A", models.GenderMale, 1)
	b := s.newMember("B", models.GenderFemale, 1)
	s.Require().NoError(s.store.Create(s.ctx, a))
	s.Require().NoError(s.store.Create(s.ctx, b))

	boom := errors.New("second write failed")
	created := s.newMember("C", models.GenderOther, 2)

	err := s.tx.RunInPairTx(s.ctx, a.ID, b.ID, func(ctx context.Context) error {
		a.SpouseID = models.Ref(b.ID)
		s.Require().NoError(s.store.Save(ctx, a))
		s.Require().NoError(s.store.Create(ctx, created))
		s.Require().NoError(s.store.Delete(ctx, b.ID))
		return boom
	})
	s.ErrorIs(err, boom)

	restoredA, err := s.store.FindByID(s.ctx, a.ID)
	s.Require().NoError(err)
	s.Nil(restoredA.SpouseID)

	_, err = s.store.FindByID(s.ctx, b.ID)
	s.NoError(err)

	_, err = s.store.FindByID(s.ctx, created.ID)
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *MemberStoreSuite) TestPairTxCommits() {
	a := s.newMember("A", models.GenderMale, 1)
	s.Require().NoError(s.store.Create(s.ctx, a))

	err := s.tx.RunInPairTx(s.ctx, a.ID, a.ID, func(ctx context.Context) error {
		a.Bio = "kept"
		return s.store.Save(ctx, a)
	})
	s.Require().NoError(err)

	found, err := s.store.FindByID(s.ctx, a.ID)
	s.Require().NoError(err)
	s.Equal("kept", found.Bio)
}

func (s *MemberStoreSuite) TestPairTxCancelledContext() {
	ctx, cancel := context.WithCancel(s.ctx)
	cancel()
	err := s.tx.RunInPairTx(ctx, id.NewMemberID(), id.NewMemberID(), func(context.Context) error {
		s.Fail("fn must not run")
		return nil
	})
	s.True(dErrors.HasCode(err, dErrors.CodeTimeout))
}

// TestPairTxSerializesOppositeOrder runs many transactions over the same
// pair in both argument orders; lock ordering must keep them deadlock-free.
func (s *MemberStoreSuite) TestPairTxSerializesOppositeOrder() {
	a := s.newMember("A", models.GenderMale, 1)
	b := s.newMember("B", models.GenderFemale, 1)
	s.Require().NoError(s.store.Create(s.ctx, a))
	s.Require().NoError(s.store.Create(s.ctx, b))

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		counter int
	)
	for i := range 100 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			first, second := a.ID, b.ID
			if i%2 == 1 {
				first, second = second, first
			}
			_ = s.tx.RunInPairTx(s.ctx, first, second, func(context.Context) error {
				mu.Lock()
				counter++
				mu.Unlock()
				return nil
			})
		}()
	}
	wg.Wait()
	s.Equal(100, counter)
}
