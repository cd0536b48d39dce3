package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for member and relationship operations.
type Metrics struct {
	Operations       *prometheus.CounterVec
	OperationLatency *prometheus.HistogramVec
	Rejections       *prometheus.CounterVec
	RestoreRepairs   *prometheus.CounterVec
}

// New registers the member metrics with reg. A nil reg uses the default registerer.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)
	return &Metrics{
		Operations: f.NewCounterVec(prometheus.CounterOpts{
			Name: "kinship_member_operations_total",
			Help: "Member and relationship operations by outcome",
		}, []string{"operation", "outcome"}),
		OperationLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "kinship_member_operation_duration_seconds",
			Help:    "Duration of member and relationship operations",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}, []string{"operation"}),
		Rejections: f.NewCounterVec(prometheus.CounterOpts{
			Name: "kinship_relationship_rejections_total",
			Help: "Relationship operations refused, by error code",
		}, []string{"code"}),
		RestoreRepairs: f.NewCounterVec(prometheus.CounterOpts{
			Name: "kinship_restore_repairs_total",
			Help: "Pointers cleared by restore repair, by field",
		}, []string{"field"}),
	}
}

// Observe records one operation. Call with time.Now() taken at the start.
func (m *Metrics) Observe(operation string, start time.Time, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.Operations.WithLabelValues(operation, outcome).Inc()
	m.OperationLatency.WithLabelValues(operation).Observe(time.Since(start).Seconds())
}

func (m *Metrics) IncRejection(code string) {
	m.Rejections.WithLabelValues(code).Inc()
}

func (m *Metrics) IncRestoreRepair(field string) {
	m.RestoreRepairs.WithLabelValues(field).Inc()
}
