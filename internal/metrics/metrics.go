// Package metrics exposes Prometheus counters for ledger operations.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "roommates"

// Metrics holds the server's collectors on a dedicated registry.
type Metrics struct {
	registry *prometheus.Registry

	applied     prometheus.Counter
	invalidated prometheus.Counter
	errors      *prometheus.CounterVec
	conflicts   prometheus.Counter
}

// New registers all collectors, including the Go runtime and process ones.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		applied: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transactions_applied_total",
			Help:      "Transactions applied to a ledger.",
		}),
		invalidated: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transactions_invalidated_total",
			Help:      "Transactions invalidated and reversed.",
		}),
		errors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ledger_errors_total",
			Help:      "Failed ledger operations by operation and error kind.",
		}, []string{"op", "kind"}),
		conflicts: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ledger_conflicts_total",
			Help:      "Saves rejected because the ledger changed concurrently.",
		}),
	}
}

func (m *Metrics) TransactionApplied()     { m.applied.Inc() }
func (m *Metrics) TransactionInvalidated() { m.invalidated.Inc() }
func (m *Metrics) Conflict()               { m.conflicts.Inc() }

// LedgerError counts a failed operation. kind is a short error class such
// as "invalid_input" or "not_found".
func (m *Metrics) LedgerError(op, kind string) {
	m.errors.WithLabelValues(op, kind).Inc()
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
