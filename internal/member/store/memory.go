// Package store persists member records. Stores return sentinel errors; the
// member service translates them into domain errors.
package store

import (
	"cmp"
	"context"
	"slices"
	"sync"

	"kinship/internal/member/models"
	id "kinship/pkg/domain"
	"kinship/pkg/platform/sentinel"
)

// InMemory keeps members in a map guarded by a RWMutex. Records are cloned
// on the way in and out so callers never alias stored state.
//
// Writes made inside a PairTx are journaled and undone if the transaction
// function fails.
type InMemory struct {
	mu      sync.RWMutex
	members map[id.MemberID]*models.Member
}

func NewInMemory() *InMemory {
	return &InMemory{
		members: make(map[id.MemberID]*models.Member),
	}
}

// Create inserts a new member.
// Returns sentinel.ErrConflict if the id exists and sentinel.ErrAlreadyUsed
// if another active member of the family holds the linked account.
func (s *InMemory) Create(ctx context.Context, m *models.Member) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.members[m.ID]; ok {
		return sentinel.ErrConflict
	}
	if s.accountTakenLocked(m) {
		return sentinel.ErrAlreadyUsed
	}
	s.recordLocked(ctx, m.ID)
	s.members[m.ID] = m.Clone()
	return nil
}

// Save replaces an existing member.
func (s *InMemory) Save(ctx context.Context, m *models.Member) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.members[m.ID]; !ok {
		return sentinel.ErrNotFound
	}
	if s.accountTakenLocked(m) {
		return sentinel.ErrAlreadyUsed
	}
	s.recordLocked(ctx, m.ID)
	s.members[m.ID] = m.Clone()
	return nil
}

// FindByID returns the member in any state, deleted included.
func (s *InMemory) FindByID(_ context.Context, memberID id.MemberID) (*models.Member, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	m, ok := s.members[memberID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return m.Clone(), nil
}

// Delete removes the record permanently.
func (s *InMemory) Delete(ctx context.Context, memberID id.MemberID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.members[memberID]; !ok {
		return sentinel.ErrNotFound
	}
	s.recordLocked(ctx, memberID)
	delete(s.members, memberID)
	return nil
}

// List returns the family's members matching filter, ordered by generation,
// then name, then id.
func (s *InMemory) List(_ context.Context, familyID id.FamilyID, filter models.ListFilter) ([]*models.Member, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*models.Member, 0)
	for _, m := range s.members {
		if m.FamilyID == familyID && filter.Matches(m) {
			out = append(out, m.Clone())
		}
	}
	sortMembers(out)
	return out, nil
}

// ListChildren returns active members naming parentID as father or mother.
func (s *InMemory) ListChildren(_ context.Context, familyID id.FamilyID, parentID id.MemberID) ([]*models.Member, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*models.Member, 0)
	for _, m := range s.members {
		if m.FamilyID == familyID && !m.IsDeleted() && m.IsChildOf(parentID) {
			out = append(out, m.Clone())
		}
	}
	sortMembers(out)
	return out, nil
}

// FindActiveByAccount returns the active member of the family linked to accountID.
func (s *InMemory) FindActiveByAccount(_ context.Context, familyID id.FamilyID, accountID id.AccountID) (*models.Member, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, m := range s.members {
		if m.FamilyID == familyID && !m.IsDeleted() && m.IsLinkedTo(accountID) {
			return m.Clone(), nil
		}
	}
	return nil, sentinel.ErrNotFound
}

func (s *InMemory) accountTakenLocked(m *models.Member) bool {
	if m.LinkedAccountID == nil || m.IsDeleted() {
		return false
	}
	for _, other := range s.members {
		if other.ID != m.ID && other.FamilyID == m.FamilyID && !other.IsDeleted() && other.IsLinkedTo(*m.LinkedAccountID) {
			return true
		}
	}
	return false
}

func sortMembers(ms []*models.Member) {
	slices.SortFunc(ms, func(a, b *models.Member) int {
		return cmp.Or(
			cmp.Compare(a.Generation, b.Generation),
			cmp.Compare(a.Name, b.Name),
			a.ID.Compare(b.ID),
		)
	})
}
