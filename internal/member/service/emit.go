package service

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"kinship/internal/notify"
	"kinship/pkg/attrs"
	id "kinship/pkg/domain"
	dErrors "kinship/pkg/domain-errors"
	audit "kinship/pkg/platform/audit"
	"kinship/pkg/requestcontext"
)

// auditTarget names the records an audit event is about.
type auditTarget struct {
	familyID  id.FamilyID
	memberID  id.MemberID
	relatedID id.MemberID
}

// logAudit writes the audit log line and emits the event. It runs inside the
// pair transaction: a compliance emit failure aborts the mutation.
func (s *Service) logAudit(ctx context.Context, event audit.AuditEvent, target auditTarget, attributes ...any) error {
	attributes = append(attributes,
		"family_id", target.familyID.String(),
		"member_id", target.memberID.String(),
	)
	if !target.relatedID.IsNil() {
		attributes = append(attributes, "related_id", target.relatedID.String())
	}
	if requestID := requestcontext.RequestID(ctx); requestID != "" {
		attributes = append(attributes, "request_id", requestID)
	}
	args := append(attributes, "event", string(event), "log_type", "audit")
	if s.logger != nil {
		s.logger.InfoContext(ctx, string(event), args...)
	}
	if s.auditPublisher == nil {
		return nil
	}
	err := s.auditPublisher.Emit(ctx, audit.Event{
		Category:  event.Category(),
		Timestamp: requestcontext.Now(ctx),
		FamilyID:  target.familyID,
		MemberID:  target.memberID,
		RelatedID: target.relatedID,
		ActorID:   requestcontext.AccountID(ctx),
		Action:    string(event),
		Reason:    attrs.String(attributes, "reason"),
		RequestID: attrs.String(attributes, "request_id"),
		Device:    requestcontext.Device(ctx),
		ClientIP:  requestcontext.ClientIP(ctx),
	})
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to record audit event")
	}
	return nil
}

// publish notifies subscribers after commit. Failures are logged only.
func (s *Service) publish(ctx context.Context, action notify.Action, familyID id.FamilyID, memberIDs ...id.MemberID) {
	if s.notifier == nil {
		return
	}
	event := notify.FamilyChanged{
		FamilyID:   familyID,
		MemberIDs:  memberIDs,
		Action:     action,
		OccurredAt: requestcontext.Now(ctx),
		RequestID:  requestcontext.RequestID(ctx),
	}
	if err := s.notifier.Publish(ctx, event); err != nil && s.logger != nil {
		s.logger.WarnContext(ctx, "family change notification failed",
			"action", string(action),
			"family_id", familyID.String(),
			"request_id", event.RequestID,
			"error", err,
		)
	}
}

// startOp opens a span for a service operation. The returned func records
// the outcome on the span and in metrics; call it with the final error.
func (s *Service) startOp(ctx context.Context, op string, familyID id.FamilyID, memberID id.MemberID) (context.Context, func(error)) {
	start := time.Now()
	ctx, span := s.tracer.Start(ctx, "member."+op, trace.WithAttributes(
		attribute.String("family_id", familyID.String()),
		attribute.String("member_id", memberID.String()),
	))
	return ctx, func(err error) {
		defer span.End()
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, string(dErrors.CodeOf(err)))
		}
		if s.metrics == nil {
			return
		}
		s.metrics.Observe(op, start, err)
		if code := dErrors.CodeOf(err); err != nil && code != dErrors.CodeInternal {
			s.metrics.IncRejection(string(code))
		}
	}
}
