package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// EntryMetrics tracks normalization outcomes and inbound auth failures.
type EntryMetrics struct {
	entriesTotal *prometheus.CounterVec
	authFailures prometheus.Counter
}

// NewEntryMetrics creates and registers entry metrics.
func NewEntryMetrics(namespace string, registry *prometheus.Registry) *EntryMetrics {
	em := &EntryMetrics{
		entriesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "entries_total",
				Help:      "Total number of entries by normalization result",
			},
			[]string{"result"},
		),

		authFailures: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "auth_failures_total",
				Help:      "Total number of requests rejected for invalid inbound credentials",
			},
		),
	}

	registry.MustRegister(em.entriesTotal, em.authFailures)
	return em
}

// RecordEntries adds n entries with result.
func (em *EntryMetrics) RecordEntries(result string, n int) {
	em.entriesTotal.WithLabelValues(result).Add(float64(n))
}
