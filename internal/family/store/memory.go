// Package store persists family records in memory or in PostgreSQL.
package store

import (
	"cmp"
	"context"
	"slices"
	"sync"

	"kinship/internal/family/models"
	id "kinship/pkg/domain"
	"kinship/pkg/platform/sentinel"
)

type ownerName struct {
	owner id.AccountID
	name  string
}

type InMemory struct {
	mu       sync.RWMutex
	families map[id.FamilyID]*models.Family
	names    map[ownerName]id.FamilyID
}

func NewInMemory() *InMemory {
	return &InMemory{
		families: make(map[id.FamilyID]*models.Family),
		names:    make(map[ownerName]id.FamilyID),
	}
}

// CreateIfNameAvailable inserts f unless its owner already has a family of
// the same name.
func (s *InMemory) CreateIfNameAvailable(_ context.Context, f *models.Family) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := ownerName{owner: f.OwnerAccountID, name: f.NameKey()}
	if _, taken := s.names[key]; taken {
		return sentinel.ErrAlreadyUsed
	}
	if _, exists := s.families[f.ID]; exists {
		return sentinel.ErrConflict
	}
	stored := *f
	s.families[f.ID] = &stored
	s.names[key] = f.ID
	return nil
}

func (s *InMemory) FindByID(_ context.Context, familyID id.FamilyID) (*models.Family, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	f, ok := s.families[familyID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	out := *f
	return &out, nil
}

// ListByOwner returns the owner's families ordered by name.
func (s *InMemory) ListByOwner(_ context.Context, owner id.AccountID) ([]*models.Family, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.Family
	for _, f := range s.families {
		if f.OwnerAccountID == owner {
			c := *f
			out = append(out, &c)
		}
	}
	slices.SortFunc(out, func(a, b *models.Family) int {
		return cmp.Or(cmp.Compare(a.NameKey(), b.NameKey()), a.CreatedAt.Compare(b.CreatedAt))
	})
	return out, nil
}

func (s *InMemory) Count(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.families), nil
}
