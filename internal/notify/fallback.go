package notify

import (
	"context"
	"log/slog"

	"kinship/pkg/platform/circuit"
)

// FallbackPublisher sends through a broker and, once the broker has failed
// enough times in a row, through a fallback instead. The primary is still
// tried on every event so the breaker can close again.
type FallbackPublisher struct {
	primary  Publisher
	fallback Publisher
	breaker  *circuit.Breaker
	logger   *slog.Logger
	metrics  *Metrics
}

type FallbackOption func(*FallbackPublisher)

func WithBreaker(b *circuit.Breaker) FallbackOption {
	return func(p *FallbackPublisher) {
		p.breaker = b
	}
}

func WithLogger(logger *slog.Logger) FallbackOption {
	return func(p *FallbackPublisher) {
		p.logger = logger
	}
}

func WithMetrics(m *Metrics) FallbackOption {
	return func(p *FallbackPublisher) {
		p.metrics = m
	}
}

func NewFallbackPublisher(primary, fallback Publisher, opts ...FallbackOption) *FallbackPublisher {
	p := &FallbackPublisher{
		primary:  primary,
		fallback: fallback,
		breaker:  circuit.New("notify"),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *FallbackPublisher) Publish(ctx context.Context, event FamilyChanged) error {
	err := p.primary.Publish(ctx, event)
	if err == nil {
		_, change := p.breaker.RecordSuccess()
		if change.Closed {
			p.log(ctx, slog.LevelInfo, "notification broker recovered", nil)
		}
		p.count("primary", nil)
		return nil
	}

	useFallback, change := p.breaker.RecordFailure()
	if change.Opened {
		p.log(ctx, slog.LevelWarn, "notification broker failing, using fallback", err)
	}
	p.count("primary", err)
	if !useFallback {
		return err
	}
	err = p.fallback.Publish(ctx, event)
	p.count("fallback", err)
	return err
}

// State reports the breaker state for health output.
func (p *FallbackPublisher) State() circuit.State {
	return p.breaker.State()
}

func (p *FallbackPublisher) log(ctx context.Context, level slog.Level, msg string, err error) {
	if p.logger == nil {
		return
	}
	args := []any{"breaker", p.breaker.Name()}
	if err != nil {
		args = append(args, "error", err)
	}
	p.logger.Log(ctx, level, msg, args...)
}

func (p *FallbackPublisher) count(path string, err error) {
	if p.metrics != nil {
		p.metrics.ObservePublish(path, err)
	}
}
