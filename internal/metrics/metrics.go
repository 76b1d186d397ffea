// Package metrics provides Prometheus instrumentation for the Drift chat
// server: gauges for connection, queue and pair counts, plus counters for
// pairing outcomes and relayed messages.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// ConnectionsTotal tracks the current number of active WebSocket connections.
	ConnectionsTotal = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "drift_connections_total",
		Help: "Current number of active WebSocket connections",
	})

	// WaitingQueueSize tracks the current number of clients in the waiting queue.
	WaitingQueueSize = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "drift_waiting_queue_size",
		Help: "Current number of clients waiting for a partner",
	})

	// ActivePairs tracks the current number of established rooms.
	ActivePairs = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "drift_active_pairs",
		Help: "Current number of active chat pairs",
	})

	// PairsTotal counts successfully established pairings.
	PairsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "drift_pairs_total",
		Help: "Total number of pairings established",
	})

	// PairRollbacksTotal counts pairings undone because a matched
	// notification could not be delivered.
	PairRollbacksTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "drift_pair_rollbacks_total",
		Help: "Total number of pairings rolled back after a failed notify",
	})

	// MessagesRelayedTotal counts relayed messages, labeled by type:
	// "chat", "typing", or "system" for local waiting notices.
	MessagesRelayedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "drift_messages_relayed_total",
		Help: "Total number of messages relayed between partners",
	}, []string{"type"})
)

func init() {
	prometheus.MustRegister(
		ConnectionsTotal,
		WaitingQueueSize,
		ActivePairs,
		PairsTotal,
		PairRollbacksTotal,
		MessagesRelayedTotal,
	)
}

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}
