// Package metrics defines the Prometheus collectors for the ledger and its
// supporting components. Collectors register on the default registry and are
// exposed by the HTTP server's /metrics endpoint.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// LedgerOperations counts committed/rejected/exhausted ledger operations.
	LedgerOperations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "finaid_ledger_operations_total",
		Help: "Ledger operations by operation and outcome.",
	}, []string{"operation", "status"})

	// LedgerRetries counts optimistic retries after a transient store abort.
	LedgerRetries = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "finaid_ledger_retries_total",
		Help: "Transient-store retries per ledger operation.",
	}, []string{"operation"})

	// PropagationUpdates counts per-transaction category fan-out results.
	PropagationUpdates = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "finaid_propagation_updates_total",
		Help: "Category snapshot fan-out updates by result.",
	}, []string{"status"})

	// SummaryCache counts summary read-cache hits and misses.
	SummaryCache = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "finaid_summary_cache_total",
		Help: "Summary cache lookups by result.",
	}, []string{"result"})
)
