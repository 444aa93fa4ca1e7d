package aggregate

import (
	"github.com/prometheus/client_golang/prometheus"
)

const (
	statusBuilt         = "built"
	statusFailed        = "failed"
	statusInvalid       = "invalid"
	statusPersistFailed = "persist_failed"
)

// Metrics counts processed tokens by outcome.
type Metrics struct {
	records *prometheus.CounterVec
}

// NewMetrics creates and registers the aggregator collectors on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		records: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "token_features_records_total",
				Help: "Feature records processed by outcome",
			},
			[]string{"status"},
		),
	}
	if reg != nil {
		reg.MustRegister(m.records)
	}
	return m
}

func (m *Metrics) record(status string) {
	if m == nil {
		return
	}
	m.records.WithLabelValues(status).Inc()
}
