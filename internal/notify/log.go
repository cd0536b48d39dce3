package notify

import (
	"context"
	"log/slog"
)

// LogPublisher writes events to the structured log. It is the default when
// no broker is configured and the fallback when one is unavailable.
type LogPublisher struct {
	logger *slog.Logger
}

func NewLogPublisher(logger *slog.Logger) *LogPublisher {
	return &LogPublisher{logger: logger}
}

func (p *LogPublisher) Publish(ctx context.Context, event FamilyChanged) error {
	ids := make([]string, len(event.MemberIDs))
	for i, m := range event.MemberIDs {
		ids[i] = m.String()
	}
	p.logger.InfoContext(ctx, "family changed",
		"log_type", "notification",
		"family_id", event.FamilyID.String(),
		"action", string(event.Action),
		"member_ids", ids,
		"request_id", event.RequestID,
	)
	return nil
}
