package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"kinship/internal/platform/postgres"
	id "kinship/pkg/domain"
	dErrors "kinship/pkg/domain-errors"
	txcontext "kinship/pkg/platform/tx"
)

const defaultPairTxRetries = 3

// PostgresPairTx runs fn in a serializable transaction after locking both
// member rows in id order. Serialization failures and deadlocks are retried.
type PostgresPairTx struct {
	db         *sql.DB
	timeout    time.Duration
	maxRetries int
}

func NewPostgresPairTx(db *sql.DB, timeout time.Duration, maxRetries int) *PostgresPairTx {
	if timeout <= 0 {
		timeout = defaultPairTxTimeout
	}
	if maxRetries <= 0 {
		maxRetries = defaultPairTxRetries
	}
	return &PostgresPairTx{db: db, timeout: timeout, maxRetries: maxRetries}
}

func (t *PostgresPairTx) RunInPairTx(ctx context.Context, a, b id.MemberID, fn func(ctx context.Context) error) error {
	var err error
	for attempt := 0; attempt <= t.maxRetries; attempt++ {
		err = t.runOnce(ctx, a, b, fn)
		if err == nil || !postgres.IsRetryable(err) {
			return err
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return dErrors.Wrap(ctxErr, dErrors.CodeTimeout, "transaction aborted: context cancelled")
		}
	}
	return dErrors.Wrap(err, dErrors.CodeConflict, "concurrent modification, retry the request")
}

func (t *PostgresPairTx) runOnce(ctx context.Context, a, b id.MemberID, fn func(ctx context.Context) error) (err error) {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	tx, err := t.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
				err = errors.Join(err, fmt.Errorf("rollback: %w", rbErr))
			}
		}
	}()

	first, second := a, b
	if second.Less(first) {
		first, second = second, first
	}
	// Rows that do not exist yet (a member being created) simply lock nothing.
	rows, err := tx.QueryContext(ctx,
		`SELECT id FROM members WHERE id IN ($1, $2) ORDER BY id FOR UPDATE`,
		uuid.UUID(first), uuid.UUID(second))
	if err != nil {
		return fmt.Errorf("lock members: %w", err)
	}
	if err = rows.Close(); err != nil {
		return fmt.Errorf("lock members: %w", err)
	}

	if err = fn(txcontext.WithTx(ctx, tx)); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}
