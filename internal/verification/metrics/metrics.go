package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for verification outcomes.
type Metrics struct {
	Verifications      *prometheus.CounterVec
	MismatchesDetected *prometheus.CounterVec
	Duration           prometheus.Histogram
}

// New registers all verification metrics on the default registry.
func New() *Metrics {
	return &Metrics{
		Verifications: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "verity_verifications_total",
			Help: "Completed verifications, by decision and risk tier",
		}, []string{"decision", "tier"}),

		MismatchesDetected: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "verity_verification_mismatches_total",
			Help: "Field mismatches found during verification, by severity",
		}, []string{"severity"}),

		Duration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "verity_verification_duration_ms",
			Help:    "Verification latency in milliseconds",
			Buckets: []float64{0.5, 1, 2.5, 5, 10, 25, 50, 100},
		}),
	}
}

func (m *Metrics) IncVerification(decision string, tier int) {
	if m != nil {
		m.Verifications.WithLabelValues(decision, strconv.Itoa(tier)).Inc()
	}
}

func (m *Metrics) IncMismatch(severity string) {
	if m != nil {
		m.MismatchesDetected.WithLabelValues(severity).Inc()
	}
}

func (m *Metrics) ObserveDuration(d time.Duration) {
	if m != nil {
		m.Duration.Observe(float64(d.Microseconds()) / 1000.0)
	}
}
