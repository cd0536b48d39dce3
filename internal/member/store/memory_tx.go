package store

import (
	"context"
	"sync"
	"time"

	"kinship/internal/member/models"
	id "kinship/pkg/domain"
	dErrors "kinship/pkg/domain-errors"
)

const (
	numPairShards        = 128
	defaultPairTxTimeout = 5 * time.Second
)

// ShardedPairTx serializes operations on the same members with sharded
// mutexes. Both shards are taken in ascending order so two transactions
// over the same pair can never deadlock. Not reentrant: fn must not open
// another pair transaction.
type ShardedPairTx struct {
	shards  [numPairShards]sync.Mutex
	store   *InMemory
	timeout time.Duration
}

func NewShardedPairTx(store *InMemory, timeout time.Duration) *ShardedPairTx {
	if timeout <= 0 {
		timeout = defaultPairTxTimeout
	}
	return &ShardedPairTx{store: store, timeout: timeout}
}

// RunInPairTx runs fn while holding the locks for a and b. Writes fn makes
// to the store are rolled back when fn returns an error.
func (t *ShardedPairTx) RunInPairTx(ctx context.Context, a, b id.MemberID, fn func(ctx context.Context) error) error {
	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.timeout)
		defer cancel()
	}

	first, second := shardOf(a), shardOf(b)
	if second < first {
		first, second = second, first
	}
	t.shards[first].Lock()
	defer t.shards[first].Unlock()
	if second != first {
		t.shards[second].Lock()
		defer t.shards[second].Unlock()
	}

	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}

	j := &journal{before: make(map[id.MemberID]*models.Member)}
	if err := fn(context.WithValue(ctx, journalKey{}, j)); err != nil {
		t.store.rollback(j)
		return err
	}
	return nil
}

func shardOf(memberID id.MemberID) int {
	const (
		fnvOffset = 2166136261
		fnvPrime  = 16777619
	)
	h := uint32(fnvOffset)
	for _, b := range memberID {
		h ^= uint32(b)
		h *= fnvPrime
	}
	return int(h % numPairShards)
}

type journalKey struct{}

// journal keeps the first before-image of every record written in a
// transaction. A nil image means the record did not exist.
type journal struct {
	before map[id.MemberID]*models.Member
	order  []id.MemberID
}

func (s *InMemory) recordLocked(ctx context.Context, memberID id.MemberID) {
	j, ok := ctx.Value(journalKey{}).(*journal)
	if !ok {
		return
	}
	if _, seen := j.before[memberID]; seen {
		return
	}
	j.before[memberID] = s.members[memberID].Clone()
	j.order = append(j.order, memberID)
}

func (s *InMemory) rollback(j *journal) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := len(j.order) - 1; i >= 0; i-- {
		memberID := j.order[i]
		if img := j.before[memberID]; img != nil {
			s.members[memberID] = img
		} else {
			delete(s.members, memberID)
		}
	}
}
