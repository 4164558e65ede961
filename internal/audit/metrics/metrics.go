package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the audit trail.
type Metrics struct {
	EntriesAppended  *prometheus.CounterVec
	MalformedSkipped prometheus.Counter
	CorruptedFound   prometheus.Counter
	EntriesPurged    prometheus.Counter
}

// New registers all audit trail metrics on the default registry.
func New() *Metrics {
	return &Metrics{
		EntriesAppended: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "verity_audit_entries_appended_total",
			Help: "Audit entries appended, by entity type and action",
		}, []string{"entity_type", "action"}),

		MalformedSkipped: promauto.NewCounter(prometheus.CounterOpts{
			Name: "verity_audit_malformed_lines_skipped_total",
			Help: "Unparseable audit lines skipped during reads",
		}),

		CorruptedFound: promauto.NewCounter(prometheus.CounterOpts{
			Name: "verity_audit_corrupted_entries_total",
			Help: "Entries whose stored hash failed re-verification",
		}),

		EntriesPurged: promauto.NewCounter(prometheus.CounterOpts{
			Name: "verity_audit_entries_purged_total",
			Help: "Entries removed by retention cleanup",
		}),
	}
}

func (m *Metrics) IncAppended(entityType, action string) {
	if m != nil {
		m.EntriesAppended.WithLabelValues(entityType, action).Inc()
	}
}

func (m *Metrics) IncMalformed() {
	if m != nil {
		m.MalformedSkipped.Inc()
	}
}

func (m *Metrics) AddCorrupted(n int) {
	if m != nil {
		m.CorruptedFound.Add(float64(n))
	}
}

func (m *Metrics) AddPurged(n int) {
	if m != nil {
		m.EntriesPurged.Add(float64(n))
	}
}
