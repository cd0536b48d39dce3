// Package publishers routes audit events to the publisher for their category.
package publishers

import (
	"context"

	audit "kinship/pkg/platform/audit"
)

// Router sends compliance events through the fail-closed publisher and
// everything else through the sampled tracker.
type Router struct {
	compliance audit.Emitter
	ops        audit.Emitter
}

func NewRouter(compliance, ops audit.Emitter) *Router {
	return &Router{compliance: compliance, ops: ops}
}

func (r *Router) Emit(ctx context.Context, event audit.Event) error {
	if audit.AuditEvent(event.Action).Category() == audit.CategoryCompliance {
		return r.compliance.Emit(ctx, event)
	}
	return r.ops.Emit(ctx, event)
}
