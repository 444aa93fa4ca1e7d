package fetch

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Outcome labels for attempt accounting.
const (
	outcomeSuccess     = "success"
	outcomeRateLimited = "rate_limited"
	outcomeServerError = "server_error"
	outcomeTransport   = "transport"
)

// Metrics holds the Prometheus collectors of the fetch layer.
type Metrics struct {
	attempts  *prometheus.CounterVec
	exhausted *prometheus.CounterVec
	backoff   prometheus.Histogram
}

// NewMetrics creates and registers the fetch collectors on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		attempts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "token_features_fetch_attempts_total",
				Help: "Upstream request attempts by endpoint and outcome",
			},
			[]string{"endpoint", "outcome"},
		),
		exhausted: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "token_features_fetch_exhausted_total",
				Help: "Calls that ran out of retries",
			},
			[]string{"endpoint"},
		),
		backoff: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "token_features_fetch_backoff_seconds",
				Help:    "Backoff delays applied between attempts",
				Buckets: prometheus.ExponentialBuckets(0.5, 2, 8),
			},
		),
	}

	if reg != nil {
		reg.MustRegister(m.attempts, m.exhausted, m.backoff)
	}
	return m
}

func (m *Metrics) attempt(endpoint, outcome string) {
	if m == nil {
		return
	}
	m.attempts.WithLabelValues(endpoint, outcome).Inc()
}

func (m *Metrics) exhaust(endpoint string) {
	if m == nil {
		return
	}
	m.exhausted.WithLabelValues(endpoint).Inc()
}

func (m *Metrics) observeBackoff(seconds float64) {
	if m == nil {
		return
	}
	m.backoff.Observe(seconds)
}
