package notify

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	Published *prometheus.CounterVec
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	return &Metrics{
		Published: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "kinship_notifications_total",
			Help: "Family change notifications by delivery path and result",
		}, []string{"path", "result"}),
	}
}

func (m *Metrics) ObservePublish(path string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.Published.WithLabelValues(path, result).Inc()
}
