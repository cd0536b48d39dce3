package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"kinship/internal/family/models"
	"kinship/internal/platform/postgres"
	id "kinship/pkg/domain"
	"kinship/pkg/platform/sentinel"
	txcontext "kinship/pkg/platform/tx"
)

const familyColumns = `id, name, owner_account_id, created_at, updated_at`

// PostgresStore persists families. Name uniqueness per owner is enforced by
// the families_owner_name_uidx index.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) CreateIfNameAvailable(ctx context.Context, f *models.Family) error {
	q := txcontext.QuerierFrom(ctx, s.db)
	_, err := q.ExecContext(ctx,
		`INSERT INTO families (`+familyColumns+`) VALUES ($1, $2, $3, $4, $5)`,
		uuid.UUID(f.ID), f.Name, uuid.UUID(f.OwnerAccountID), f.CreatedAt, f.UpdatedAt)
	switch {
	case err == nil:
		return nil
	case postgres.IsUniqueViolation(err, "families_owner_name_uidx"):
		return sentinel.ErrAlreadyUsed
	case postgres.IsUniqueViolation(err, ""):
		return sentinel.ErrConflict
	default:
		return fmt.Errorf("insert family: %w", err)
	}
}

func (s *PostgresStore) FindByID(ctx context.Context, familyID id.FamilyID) (*models.Family, error) {
	q := txcontext.QuerierFrom(ctx, s.db)
	row := q.QueryRowContext(ctx, `SELECT `+familyColumns+` FROM families WHERE id = $1`, uuid.UUID(familyID))
	f, err := scanFamily(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find family: %w", err)
	}
	return f, nil
}

func (s *PostgresStore) ListByOwner(ctx context.Context, owner id.AccountID) ([]*models.Family, error) {
	q := txcontext.QuerierFrom(ctx, s.db)
	rows, err := q.QueryContext(ctx,
		`SELECT `+familyColumns+` FROM families WHERE owner_account_id = $1 ORDER BY lower(name), created_at`,
		uuid.UUID(owner))
	if err != nil {
		return nil, fmt.Errorf("list families: %w", err)
	}
	defer rows.Close()

	var out []*models.Family
	for rows.Next() {
		f, err := scanFamily(rows)
		if err != nil {
			return nil, fmt.Errorf("scan family: %w", err)
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

func (s *PostgresStore) Count(ctx context.Context) (int, error) {
	var n int
	q := txcontext.QuerierFrom(ctx, s.db)
	if err := q.QueryRowContext(ctx, `SELECT count(*) FROM families`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count families: %w", err)
	}
	return n, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanFamily(row rowScanner) (*models.Family, error) {
	var (
		f            models.Family
		familyID     uuid.UUID
		ownerAccount uuid.UUID
	)
	if err := row.Scan(&familyID, &f.Name, &ownerAccount, &f.CreatedAt, &f.UpdatedAt); err != nil {
		return nil, err
	}
	f.ID = id.FamilyID(familyID)
	f.OwnerAccountID = id.AccountID(ownerAccount)
	return &f, nil
}
