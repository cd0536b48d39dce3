package ops

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	Tracked         prometheus.Counter
	Sampled         prometheus.Counter
	PersistFailures prometheus.Counter
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)
	return &Metrics{
		Tracked: f.NewCounter(prometheus.CounterOpts{
			Name: "kinship_audit_ops_tracked_total",
			Help: "Operational audit events persisted",
		}),
		Sampled: f.NewCounter(prometheus.CounterOpts{
			Name: "kinship_audit_ops_sampled_total",
			Help: "Operational audit events dropped by sampling",
		}),
		PersistFailures: f.NewCounter(prometheus.CounterOpts{
			Name: "kinship_audit_ops_persist_failures_total",
			Help: "Operational audit events that failed to persist",
		}),
	}
}

func (m *Metrics) IncTracked()         { m.Tracked.Inc() }
func (m *Metrics) IncSampled()         { m.Sampled.Inc() }
func (m *Metrics) IncPersistFailures() { m.PersistFailures.Inc() }
