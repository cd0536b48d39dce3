// Package compliance persists the audit events that must never be lost:
// member creation, deletion, restore, purge and account linking.
//
// Emit is synchronous. When the store shares the caller's transaction a
// failed write rolls back the mutation the event describes.
package compliance

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	audit "kinship/pkg/platform/audit"
)

var (
	errNoFamily = errors.New("compliance event requires a family id")
	errNoAction = errors.New("compliance event requires an action")
)

type Publisher struct {
	store   audit.Store
	logger  *slog.Logger
	metrics *Metrics
}

type Option func(*Publisher)

func WithLogger(logger *slog.Logger) Option {
	return func(p *Publisher) { p.logger = logger }
}

func WithMetrics(m *Metrics) Option {
	return func(p *Publisher) { p.metrics = m }
}

func New(store audit.Store, opts ...Option) *Publisher {
	p := &Publisher{store: store}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Emit writes event and reports any failure to the caller, which must then
// abandon its operation.
func (p *Publisher) Emit(ctx context.Context, event audit.Event) error {
	switch {
	case event.FamilyID.IsNil():
		return errNoFamily
	case event.Action == "":
		return errNoAction
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	event.Category = audit.CategoryCompliance

	start := time.Now()
	err := p.store.Append(ctx, event)
	p.observe(ctx, event, time.Since(start), err)
	if err != nil {
		return fmt.Errorf("persist %s audit event: %w", event.Action, err)
	}
	return nil
}

func (p *Publisher) observe(ctx context.Context, event audit.Event, took time.Duration, err error) {
	if err == nil {
		if p.metrics != nil {
			p.metrics.ObservePersistDuration(took.Seconds())
			p.metrics.IncEventsEmitted()
		}
		return
	}
	if p.metrics != nil {
		p.metrics.IncPersistFailures()
	}
	if p.logger != nil {
		p.logger.ErrorContext(ctx, "compliance audit write failed",
			"action", event.Action,
			"family_id", event.FamilyID.String(),
			"member_id", event.MemberID.String(),
			"request_id", event.RequestID,
			"error", err,
		)
	}
}
