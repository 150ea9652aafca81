package graph

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides Prometheus-compatible metrics collection for turn
// execution monitoring in production environments.
//
// Metrics exposed (all namespaced with "opey_"):
//
//  1. step_latency_ms (histogram): node execution duration in milliseconds.
//     Labels: node_id, status (success/error/cancelled).
//  2. turns_total (counter): completed turns.
//  3. suspensions_total (counter): turns suspended at an interrupt point.
//  4. retrieval_retries_total (counter): query rewrites performed by the
//     retrieval sub-workflow.
//
// Usage:
//
//	registry := prometheus.NewRegistry()
//	metrics := graph.NewMetrics(registry)
//	engine.SetMetrics(metrics)
//	http.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
//
// Thread-safe: the underlying Prometheus collectors handle concurrency.
type Metrics struct {
	stepLatency      *prometheus.HistogramVec
	turns            prometheus.Counter
	suspensions      prometheus.Counter
	retrievalRetries prometheus.Counter
}

// NewMetrics creates Metrics registered against the given registerer.
// Pass prometheus.DefaultRegisterer to use the process-global registry.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		stepLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "opey",
			Name:      "step_latency_ms",
			Help:      "Node execution duration in milliseconds.",
			Buckets:   []float64{1, 5, 10, 50, 100, 500, 1000, 5000, 10000},
		}, []string{"node_id", "status"}),
		turns: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "opey",
			Name:      "turns_total",
			Help:      "Completed conversation turns.",
		}),
		suspensions: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "opey",
			Name:      "suspensions_total",
			Help:      "Turns suspended pending an external decision.",
		}),
		retrievalRetries: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "opey",
			Name:      "retrieval_retries_total",
			Help:      "Query rewrites performed by the retrieval sub-workflow.",
		}),
	}
}

// ObserveStep records a node execution duration with its outcome status.
func (m *Metrics) ObserveStep(nodeID string, elapsed time.Duration, status string) {
	m.stepLatency.WithLabelValues(nodeID, status).Observe(float64(elapsed.Milliseconds()))
}

// TurnCompleted increments the completed-turn counter.
func (m *Metrics) TurnCompleted() {
	m.turns.Inc()
}

// TurnSuspended increments the suspended-turn counter.
func (m *Metrics) TurnSuspended() {
	m.suspensions.Inc()
}

// RetrievalRetry increments the query-rewrite counter.
func (m *Metrics) RetrievalRetry() {
	m.retrievalRetries.Inc()
}
