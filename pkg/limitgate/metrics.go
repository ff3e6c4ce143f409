package limitgate

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the engine's Prometheus instruments.
type Metrics struct {
	checks      *prometheus.CounterVec
	duration    *prometheus.HistogramVec
	storeErrors prometheus.Counter
	failovers   prometheus.Counter
	degraded    prometheus.Gauge
}

// NewMetrics creates and registers the engine metrics against reg, so tests
// and embedders can use isolated registries. Pass
// prometheus.DefaultRegisterer for the usual global registry.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		checks: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "limitgate_checks_total",
				Help: "Admission checks by tier and result.",
			},
			[]string{"tier", "result"},
		),
		duration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "limitgate_check_duration_seconds",
				Help:    "Latency of admission checks.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"store"},
		),
		storeErrors: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "limitgate_store_errors_total",
				Help: "Transport failures talking to the distributed store.",
			},
		),
		failovers: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "limitgate_store_failovers_total",
				Help: "Transitions from distributed to local mode.",
			},
		),
		degraded: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "limitgate_store_degraded",
				Help: "1 while the local fallback store is active, 0 otherwise.",
			},
		),
	}
}

func (m *Metrics) recordCheck(tier string, allowed bool, storeName string, elapsed time.Duration) {
	result := "allowed"
	if !allowed {
		result = "denied"
	}
	m.checks.WithLabelValues(tier, result).Inc()
	m.duration.WithLabelValues(storeName).Observe(elapsed.Seconds())
}
