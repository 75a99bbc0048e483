// Package metrics expõe os indicadores Prometheus do rate limiter.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics agrega os indicadores publicados pelo rate limiter.
// Os métodos aceitam receiver nil para que o caminho quente não precise
// verificar se a coleta está habilitada.
type Metrics struct {
	decisionsTotal     *prometheus.CounterVec
	storeFailuresTotal prometheus.Counter
	storeRoundTrip     prometheus.Histogram
}

// New cria e registra os indicadores no registry informado.
func New(reg prometheus.Registerer) *Metrics {
	return &Metrics{
		decisionsTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "faculty_api",
				Subsystem: "ratelimit",
				Name:      "decisions_total",
				Help:      "Total rate limit decisions by tier and outcome",
			},
			[]string{"tier", "outcome"},
		),
		storeFailuresTotal: promauto.With(reg).NewCounter(
			prometheus.CounterOpts{
				Namespace: "faculty_api",
				Subsystem: "ratelimit",
				Name:      "store_failures_total",
				Help:      "Total counter store round trips that failed",
			},
		),
		storeRoundTrip: promauto.With(reg).NewHistogram(
			prometheus.HistogramOpts{
				Namespace: "faculty_api",
				Subsystem: "ratelimit",
				Name:      "store_round_trip_seconds",
				Help:      "Counter store round trip duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
		),
	}
}

// ObserveDecision contabiliza uma decisão pelo tier e pelo desfecho.
func (m *Metrics) ObserveDecision(tier string, allowed bool) {
	if m == nil {
		return
	}
	outcome := "denied"
	if allowed {
		outcome = "allowed"
	}
	m.decisionsTotal.WithLabelValues(tier, outcome).Inc()
}

// ObserveStoreFailure contabiliza uma ida ao store que falhou.
func (m *Metrics) ObserveStoreFailure() {
	if m == nil {
		return
	}
	m.storeFailuresTotal.Inc()
}

// ObserveStoreRoundTrip registra a duração de uma ida ao store.
func (m *Metrics) ObserveStoreRoundTrip(seconds float64) {
	if m == nil {
		return
	}
	m.storeRoundTrip.Observe(seconds)
}
