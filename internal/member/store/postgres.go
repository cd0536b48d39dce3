package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"kinship/internal/member/models"
	"kinship/internal/platform/postgres"
	id "kinship/pkg/domain"
	"kinship/pkg/platform/sentinel"
	txcontext "kinship/pkg/platform/tx"
)

const activeAccountConstraint = "members_active_account_uidx"

// PostgresStore persists members in the members table. Every query joins
// the transaction carried in the context, if any.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const memberColumns = `
	id, family_id, name, gender, generation, father_id, mother_id, spouse_id,
	linked_account_id, email, birth_date, death_date, birth_place, occupation,
	bio, photo_url, created_at, updated_at, deleted_at
`

func (s *PostgresStore) Create(ctx context.Context, m *models.Member) error {
	query := `INSERT INTO members (` + memberColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)`
	_, err := txcontext.QuerierFrom(ctx, s.db).ExecContext(ctx, query, memberArgs(m)...)
	if err != nil {
		if postgres.IsUniqueViolation(err, activeAccountConstraint) {
			return sentinel.ErrAlreadyUsed
		}
		if postgres.IsUniqueViolation(err, "") {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("insert member: %w", err)
	}
	return nil
}

func (s *PostgresStore) Save(ctx context.Context, m *models.Member) error {
	query := `
		UPDATE members SET
			family_id = $2, name = $3, gender = $4, generation = $5,
			father_id = $6, mother_id = $7, spouse_id = $8, linked_account_id = $9,
			email = $10, birth_date = $11, death_date = $12, birth_place = $13,
			occupation = $14, bio = $15, photo_url = $16, created_at = $17,
			updated_at = $18, deleted_at = $19
		WHERE id = $1
	`
	res, err := txcontext.QuerierFrom(ctx, s.db).ExecContext(ctx, query, memberArgs(m)...)
	if err != nil {
		if postgres.IsUniqueViolation(err, activeAccountConstraint) {
			return sentinel.ErrAlreadyUsed
		}
		return fmt.Errorf("update member: %w", err)
	}
	return requireOneRow(res)
}

func (s *PostgresStore) FindByID(ctx context.Context, memberID id.MemberID) (*models.Member, error) {
	query := `SELECT ` + memberColumns + ` FROM members WHERE id = $1`
	row := txcontext.QuerierFrom(ctx, s.db).QueryRowContext(ctx, query, uuid.UUID(memberID))
	m, err := scanMember(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find member: %w", err)
	}
	return m, nil
}

func (s *PostgresStore) Delete(ctx context.Context, memberID id.MemberID) error {
	res, err := txcontext.QuerierFrom(ctx, s.db).ExecContext(ctx, `DELETE FROM members WHERE id = $1`, uuid.UUID(memberID))
	if err != nil {
		return fmt.Errorf("delete member: %w", err)
	}
	return requireOneRow(res)
}

// List mirrors models.ListFilter.Matches in SQL.
func (s *PostgresStore) List(ctx context.Context, familyID id.FamilyID, filter models.ListFilter) ([]*models.Member, error) {
	where, args := filterClause(familyID, filter)
	query := `SELECT ` + memberColumns + ` FROM members WHERE ` + where + ` ORDER BY generation, name, id`
	return s.query(ctx, query, args...)
}

func (s *PostgresStore) ListChildren(ctx context.Context, familyID id.FamilyID, parentID id.MemberID) ([]*models.Member, error) {
	query := `SELECT ` + memberColumns + ` FROM members
		WHERE family_id = $1 AND deleted_at IS NULL AND (father_id = $2 OR mother_id = $2)
		ORDER BY generation, name, id`
	return s.query(ctx, query, uuid.UUID(familyID), uuid.UUID(parentID))
}

func (s *PostgresStore) FindActiveByAccount(ctx context.Context, familyID id.FamilyID, accountID id.AccountID) (*models.Member, error) {
	query := `SELECT ` + memberColumns + ` FROM members
		WHERE family_id = $1 AND linked_account_id = $2 AND deleted_at IS NULL`
	row := txcontext.QuerierFrom(ctx, s.db).QueryRowContext(ctx, query, uuid.UUID(familyID), uuid.UUID(accountID))
	m, err := scanMember(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find member by account: %w", err)
	}
	return m, nil
}

func (s *PostgresStore) query(ctx context.Context, query string, args ...any) ([]*models.Member, error) {
	rows, err := txcontext.QuerierFrom(ctx, s.db).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query members: %w", err)
	}
	defer rows.Close()

	out := make([]*models.Member, 0)
	for rows.Next() {
		m, err := scanMember(rows)
		if err != nil {
			return nil, fmt.Errorf("scan member: %w", err)
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate members: %w", err)
	}
	return out, nil
}

func filterClause(familyID id.FamilyID, f models.ListFilter) (string, []any) {
	conds := []string{"family_id = $1"}
	args := []any{uuid.UUID(familyID)}
	next := func(v any) string {
		args = append(args, v)
		return "$" + strconv.Itoa(len(args))
	}

	switch f.Scope {
	case models.ActiveOnly:
		conds = append(conds, "deleted_at IS NULL")
	case models.DeletedOnly:
		conds = append(conds, "deleted_at IS NOT NULL")
	}
	if f.Generation != nil {
		conds = append(conds, "generation = "+next(*f.Generation))
	}
	if f.Gender != nil {
		conds = append(conds, "gender = "+next(string(*f.Gender)))
	}
	if f.NameContains != "" {
		conds = append(conds, "strpos(lower(name), lower("+next(f.NameContains)+")) > 0")
	}
	switch f.Status {
	case models.LifeStatusAlive:
		conds = append(conds, "death_date IS NULL")
	case models.LifeStatusDeceased:
		conds = append(conds, "death_date IS NOT NULL")
	}
	if f.UnlinkedOnly {
		conds = append(conds, "linked_account_id IS NULL")
	}
	return strings.Join(conds, " AND "), args
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanMember(row rowScanner) (*models.Member, error) {
	var (
		m                      models.Member
		memberID, familyID     uuid.UUID
		father, mother, spouse uuid.NullUUID
		account                uuid.NullUUID
		gender                 string
		deletedAt              sql.NullTime
	)
	if err := row.Scan(
		&memberID, &familyID, &m.Name, &gender, &m.Generation,
		&father, &mother, &spouse, &account,
		&m.Email, &m.BirthDate, &m.DeathDate, &m.BirthPlace, &m.Occupation,
		&m.Bio, &m.PhotoURL, &m.CreatedAt, &m.UpdatedAt, &deletedAt,
	); err != nil {
		return nil, err
	}
	m.ID = id.MemberID(memberID)
	m.FamilyID = id.FamilyID(familyID)
	m.Gender = models.Gender(gender)
	m.FatherID = memberRef(father)
	m.MotherID = memberRef(mother)
	m.SpouseID = memberRef(spouse)
	if account.Valid {
		a := id.AccountID(account.UUID)
		m.LinkedAccountID = &a
	}
	if deletedAt.Valid {
		t := deletedAt.Time
		m.DeletedAt = &t
	}
	return &m, nil
}

func memberArgs(m *models.Member) []any {
	var account uuid.NullUUID
	if m.LinkedAccountID != nil {
		account = uuid.NullUUID{UUID: uuid.UUID(*m.LinkedAccountID), Valid: true}
	}
	var deletedAt sql.NullTime
	if m.DeletedAt != nil {
		deletedAt = sql.NullTime{Time: *m.DeletedAt, Valid: true}
	}
	return []any{
		uuid.UUID(m.ID), uuid.UUID(m.FamilyID), m.Name, string(m.Gender), m.Generation,
		nullMember(m.FatherID), nullMember(m.MotherID), nullMember(m.SpouseID), account,
		m.Email, nullDate(m.BirthDate), nullDate(m.DeathDate), m.BirthPlace, m.Occupation,
		m.Bio, m.PhotoURL, m.CreatedAt, m.UpdatedAt, deletedAt,
	}
}

func nullMember(p *id.MemberID) uuid.NullUUID {
	if p == nil {
		return uuid.NullUUID{}
	}
	return uuid.NullUUID{UUID: uuid.UUID(*p), Valid: true}
}

func nullDate(d *models.Date) any {
	if d == nil {
		return nil
	}
	return d.Time()
}

func memberRef(n uuid.NullUUID) *id.MemberID {
	if !n.Valid {
		return nil
	}
	return models.Ref(id.MemberID(n.UUID))
}

func requireOneRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}
