// Package ops records sampled operational events. Tracking never fails the
// caller: store errors are logged and counted.
package ops

import (
	"context"
	"log/slog"
	"time"

	audit "kinship/pkg/platform/audit"
)

type Tracker struct {
	store   audit.Store
	sampler *Sampler
	logger  *slog.Logger
	metrics *Metrics
}

type Option func(*Tracker)

func WithSampler(s *Sampler) Option {
	return func(t *Tracker) { t.sampler = s }
}

func WithLogger(logger *slog.Logger) Option {
	return func(t *Tracker) { t.logger = logger }
}

func WithMetrics(m *Metrics) Option {
	return func(t *Tracker) { t.metrics = m }
}

func New(store audit.Store, opts ...Option) *Tracker {
	t := &Tracker{store: store, sampler: NewSampler(1)}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Emit satisfies audit.Emitter and always returns nil.
func (t *Tracker) Emit(ctx context.Context, event audit.Event) error {
	t.Track(ctx, event)
	return nil
}

func (t *Tracker) Track(ctx context.Context, event audit.Event) {
	if !t.sampler.ShouldSample(event.Action) {
		if t.metrics != nil {
			t.metrics.IncSampled()
		}
		return
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	event.Category = audit.CategoryOperations

	if err := t.store.Append(ctx, event); err != nil {
		if t.metrics != nil {
			t.metrics.IncPersistFailures()
		}
		if t.logger != nil {
			t.logger.WarnContext(ctx, "ops audit dropped",
				"action", event.Action,
				"family_id", event.FamilyID,
				"error", err,
			)
		}
		return
	}
	if t.metrics != nil {
		t.metrics.IncTracked()
	}
}
