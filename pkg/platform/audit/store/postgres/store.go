package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	id "kinship/pkg/domain"
	audit "kinship/pkg/platform/audit"
	txcontext "kinship/pkg/platform/tx"
)

// Store implements audit.Store on the audit_events table. Appends join the
// caller's transaction when one is carried in the context, so an audit row
// commits or rolls back with the mutation it describes.
type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

const insertEvent = `
	INSERT INTO audit_events (
		id, category, timestamp, family_id, member_id, related_id,
		actor_id, action, reason, request_id, device, client_ip
	)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
`

const selectEvents = `
	SELECT category, timestamp, family_id, member_id, related_id,
		   actor_id, action, reason, request_id, device, client_ip
	FROM audit_events
`

func (s *Store) Append(ctx context.Context, event audit.Event) error {
	category := audit.AuditEvent(event.Action).Category()
	_, err := txcontext.QuerierFrom(ctx, s.db).ExecContext(ctx, insertEvent,
		uuid.New(),
		string(category),
		event.Timestamp,
		uuid.UUID(event.FamilyID),
		nullable(uuid.UUID(event.MemberID)),
		nullable(uuid.UUID(event.RelatedID)),
		nullable(uuid.UUID(event.ActorID)),
		event.Action,
		event.Reason,
		event.RequestID,
		event.Device,
		event.ClientIP,
	)
	if err != nil {
		return fmt.Errorf("insert audit event: %w", err)
	}
	return nil
}

func (s *Store) ListByFamily(ctx context.Context, familyID id.FamilyID) ([]audit.Event, error) {
	rows, err := s.db.QueryContext(ctx, selectEvents+`WHERE family_id = $1 ORDER BY timestamp ASC`, uuid.UUID(familyID))
	if err != nil {
		return nil, fmt.Errorf("query audit events: %w", err)
	}
	defer rows.Close()
	return scanEvents(rows)
}

func (s *Store) ListRecent(ctx context.Context, limit int) ([]audit.Event, error) {
	rows, err := s.db.QueryContext(ctx, selectEvents+`ORDER BY timestamp DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("query audit events: %w", err)
	}
	defer rows.Close()
	return scanEvents(rows)
}

func scanEvents(rows *sql.Rows) ([]audit.Event, error) {
	var events []audit.Event
	for rows.Next() {
		var (
			event                      audit.Event
			category                   string
			familyID                   uuid.UUID
			memberID, relatedID, actor uuid.NullUUID
		)
		if err := rows.Scan(
			&category,
			&event.Timestamp,
			&familyID,
			&memberID,
			&relatedID,
			&actor,
			&event.Action,
			&event.Reason,
			&event.RequestID,
			&event.Device,
			&event.ClientIP,
		); err != nil {
			return nil, fmt.Errorf("scan audit event: %w", err)
		}
		event.Category = audit.EventCategory(category)
		event.FamilyID = id.FamilyID(familyID)
		if memberID.Valid {
			event.MemberID = id.MemberID(memberID.UUID)
		}
		if relatedID.Valid {
			event.RelatedID = id.MemberID(relatedID.UUID)
		}
		if actor.Valid {
			event.ActorID = id.AccountID(actor.UUID)
		}
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate audit events: %w", err)
	}
	return events, nil
}

func nullable(u uuid.UUID) uuid.NullUUID {
	return uuid.NullUUID{UUID: u, Valid: u != uuid.Nil}
}
