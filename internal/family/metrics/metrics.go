package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics tracks family creation and lookup latency. RequireFamily runs on
// every member request, so its duration is the hot path.
type Metrics struct {
	FamiliesCreated       prometheus.Counter
	RequireFamilyDuration prometheus.Histogram
}

func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		FamiliesCreated: factory.NewCounter(prometheus.CounterOpts{
			Name: "kinship_families_created_total",
			Help: "Total number of families created",
		}),
		RequireFamilyDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "kinship_require_family_duration_seconds",
			Help:    "Duration of family scope checks on member requests",
			Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25},
		}),
	}
}

func (m *Metrics) IncrementFamilyCreated() {
	m.FamiliesCreated.Inc()
}

// ObserveRequireFamily records a scope check started at start.
func (m *Metrics) ObserveRequireFamily(start time.Time) {
	m.RequireFamilyDuration.Observe(time.Since(start).Seconds())
}
