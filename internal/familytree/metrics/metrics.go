package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	BuildDuration prometheus.Histogram
	Builds        *prometheus.CounterVec
	TreeSize      prometheus.Histogram
}

func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		BuildDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "kinship_tree_build_duration_seconds",
			Help:    "Duration of loading and building a family tree",
			Buckets: prometheus.DefBuckets,
		}),
		Builds: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "kinship_tree_builds_total",
			Help: "Tree requests by whether they shared an in-flight build",
		}, []string{"shared"}),
		TreeSize: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "kinship_tree_nodes",
			Help:    "Number of nodes in built trees",
			Buckets: prometheus.ExponentialBuckets(1, 4, 8),
		}),
	}
}

func (m *Metrics) ObserveBuild(start time.Time, nodes int) {
	m.BuildDuration.Observe(time.Since(start).Seconds())
	m.TreeSize.Observe(float64(nodes))
}

func (m *Metrics) IncBuild(shared bool) {
	if shared {
		m.Builds.WithLabelValues("true").Inc()
		return
	}
	m.Builds.WithLabelValues("false").Inc()
}
