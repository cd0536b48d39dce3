package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	OutcomeAutoMatch  = "auto_match"
	OutcomeCandidates = "candidates"
	OutcomeNone       = "none"
	OutcomeLinked     = "already_linked"
)

type Metrics struct {
	Suggestions  *prometheus.CounterVec
	Confirmed    prometheus.Counter
	NewPersons   prometheus.Counter
	TopCandidate prometheus.Histogram
}

func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Suggestions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "kinship_smartlink_suggestions_total",
			Help: "Smart-link suggestion requests by outcome",
		}, []string{"outcome"}),
		Confirmed: factory.NewCounter(prometheus.CounterOpts{
			Name: "kinship_smartlink_confirmed_total",
			Help: "Accounts linked to an existing member",
		}),
		NewPersons: factory.NewCounter(prometheus.CounterOpts{
			Name: "kinship_smartlink_new_person_total",
			Help: "Accounts linked to a newly created member",
		}),
		TopCandidate: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "kinship_smartlink_top_score",
			Help:    "Score of the best name candidate when one exists",
			Buckets: prometheus.LinearBuckets(0.5, 0.05, 11),
		}),
	}
}

func (m *Metrics) IncSuggestion(outcome string) {
	m.Suggestions.WithLabelValues(outcome).Inc()
}

func (m *Metrics) ObserveTopScore(score float64) {
	m.TopCandidate.Observe(score)
}

func (m *Metrics) IncConfirmed() { m.Confirmed.Inc() }

func (m *Metrics) IncNewPerson() { m.NewPersons.Inc() }
