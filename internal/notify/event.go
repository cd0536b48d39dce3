// Package notify publishes FamilyChanged events to the real-time delivery
// collaborator. Publishing happens after commit and is best-effort.
package notify

import (
	"context"
	"time"

	id "kinship/pkg/domain"
)

// Action names the mutation that changed the family.
type Action string

const (
	ActionMemberCreated  Action = "member_created"
	ActionMemberUpdated  Action = "member_updated"
	ActionMemberDeleted  Action = "member_deleted"
	ActionMemberRestored Action = "member_restored"
	ActionMemberPurged   Action = "member_purged"
	ActionMemberLinked   Action = "member_linked"
	ActionSpouseAttached Action = "spouse_attached"
	ActionSpouseDetached Action = "spouse_detached"
	ActionParentAttached Action = "parent_attached"
	ActionParentDetached Action = "parent_detached"
)

// FamilyChanged tells subscribers which members of a family changed.
type FamilyChanged struct {
	FamilyID   id.FamilyID   `json:"family_id"`
	MemberIDs  []id.MemberID `json:"member_ids"`
	Action     Action        `json:"action"`
	OccurredAt time.Time     `json:"occurred_at"`
	RequestID  string        `json:"request_id,omitempty"`
}

// Publisher delivers change events.
type Publisher interface {
	Publish(ctx context.Context, event FamilyChanged) error
}
