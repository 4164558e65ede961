package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the dispute module.
type Metrics struct {
	DisputesCreated  prometheus.Counter
	Transitions      *prometheus.CounterVec
	Resolutions      *prometheus.CounterVec
	DecisionsChanged prometheus.Counter
	SaveConflicts    prometheus.Counter
}

// New registers all dispute metrics on the default registry.
func New() *Metrics {
	return &Metrics{
		DisputesCreated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "verity_disputes_created_total",
			Help: "Disputes opened by customers",
		}),

		Transitions: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "verity_dispute_transitions_total",
			Help: "Dispute status transitions by target status",
		}, []string{"to"}),

		Resolutions: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "verity_dispute_resolutions_total",
			Help: "Resolved disputes by final decision",
		}, []string{"final_decision"}),

		DecisionsChanged: promauto.NewCounter(prometheus.CounterOpts{
			Name: "verity_dispute_decisions_changed_total",
			Help: "Re-verifications whose decision differed from the original",
		}),

		SaveConflicts: promauto.NewCounter(prometheus.CounterOpts{
			Name: "verity_dispute_save_conflicts_total",
			Help: "Optimistic-lock conflicts surfaced to callers",
		}),
	}
}

func (m *Metrics) IncCreated() {
	if m != nil {
		m.DisputesCreated.Inc()
	}
}

func (m *Metrics) IncTransition(to string) {
	if m != nil {
		m.Transitions.WithLabelValues(to).Inc()
	}
}

func (m *Metrics) IncResolution(finalDecision string) {
	if m != nil {
		m.Resolutions.WithLabelValues(finalDecision).Inc()
	}
}

func (m *Metrics) IncDecisionChanged() {
	if m != nil {
		m.DecisionsChanged.Inc()
	}
}

func (m *Metrics) IncSaveConflict() {
	if m != nil {
		m.SaveConflicts.Inc()
	}
}
