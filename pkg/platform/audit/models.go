package audit

import (
	"context"
	"time"

	id "kinship/pkg/domain"
)

// EventCategory classifies audit events by their primary purpose.
type EventCategory string

const (
	// CategoryCompliance covers changes to the family record itself: members
	// created, removed, restored, purged, linked to accounts.
	CategoryCompliance EventCategory = "compliance"

	// CategoryOperations covers routine activity that can be sampled.
	CategoryOperations EventCategory = "operations"
)

// Event is emitted from domain logic to capture key actions. Keep it
// transport-agnostic so stores and sinks can fan out.
type Event struct {
	Category  EventCategory
	Timestamp time.Time
	FamilyID  id.FamilyID
	MemberID  id.MemberID
	// RelatedID is the other member touched by a relationship action.
	RelatedID id.MemberID
	// ActorID is the account that performed the action, when known.
	ActorID   id.AccountID
	Action    string
	Reason    string
	RequestID string
	Device    string
	ClientIP  string
}

type AuditEvent string

const (
	EventFamilyCreated AuditEvent = "family_created"

	EventMemberCreated  AuditEvent = "member_created"
	EventMemberUpdated  AuditEvent = "member_updated"
	EventMemberDeleted  AuditEvent = "member_deleted"
	EventMemberRestored AuditEvent = "member_restored"
	EventMemberPurged   AuditEvent = "member_purged"
	EventMemberLinked   AuditEvent = "member_linked"

	EventSpouseAttached AuditEvent = "spouse_attached"
	EventSpouseDetached AuditEvent = "spouse_detached"
	EventParentAttached AuditEvent = "parent_attached"
	EventParentDetached AuditEvent = "parent_detached"

	EventTreeBuilt          AuditEvent = "tree_built"
	EventSmartLinkSuggested AuditEvent = "smartlink_suggested"
)

var eventCategories = map[AuditEvent]EventCategory{
	EventMemberCreated:  CategoryCompliance,
	EventMemberDeleted:  CategoryCompliance,
	EventMemberRestored: CategoryCompliance,
	EventMemberPurged:   CategoryCompliance,
	EventMemberLinked:   CategoryCompliance,

	EventFamilyCreated:      CategoryOperations,
	EventMemberUpdated:      CategoryOperations,
	EventSpouseAttached:     CategoryOperations,
	EventSpouseDetached:     CategoryOperations,
	EventParentAttached:     CategoryOperations,
	EventParentDetached:     CategoryOperations,
	EventTreeBuilt:          CategoryOperations,
	EventSmartLinkSuggested: CategoryOperations,
}

// Category returns the EventCategory for this audit event.
// Unknown events default to CategoryOperations.
func (e AuditEvent) Category() EventCategory {
	if cat, ok := eventCategories[e]; ok {
		return cat
	}
	return CategoryOperations
}

// Store persists audit events.
type Store interface {
	Append(ctx context.Context, event Event) error
	ListByFamily(ctx context.Context, familyID id.FamilyID) ([]Event, error)
	ListRecent(ctx context.Context, limit int) ([]Event, error)
}

// Emitter is the port services publish audit events through.
type Emitter interface {
	Emit(ctx context.Context, event Event) error
}
