package otelobs

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics collects Prometheus counters, gauges, and histograms for runner
// throughput, cache effectiveness, and budget consumption, grounded in
// dshills/langgraph-go's PrometheusMetrics (factory-built instruments
// registered against a caller-supplied registry, namespaced metric names,
// WithLabelValues on the hot path) adapted from graph-execution labels
// (run_id/node_id) to this system's status and tool_ref labels.
type Metrics struct {
	nodesTotal    *prometheus.CounterVec
	nodeDuration  *prometheus.HistogramVec
	cacheHits     prometheus.Counter
	cacheMisses   prometheus.Counter
	retriesTotal  *prometheus.CounterVec
	inflightNodes prometheus.Gauge
	budgetTokens  prometheus.Gauge
	budgetCostUSD prometheus.Gauge
}

// NewMetrics registers every workflowcore metric against registry (pass
// prometheus.DefaultRegisterer for the global registry, or a fresh
// prometheus.NewRegistry() for test isolation).
func NewMetrics(registry prometheus.Registerer) *Metrics {
	if registry == nil {
		registry = prometheus.DefaultRegisterer
	}
	factory := promauto.With(registry)

	return &Metrics{
		nodesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "workflowcore",
			Name:      "nodes_total",
			Help:      "Total node executions by terminal status",
		}, []string{"status"}),
		nodeDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "workflowcore",
			Name:      "node_duration_ms",
			Help:      "Node execution duration in milliseconds",
			Buckets:   []float64{1, 5, 10, 50, 100, 500, 1000, 5000, 10000, 30000},
		}, []string{"tool_ref", "status"}),
		cacheHits: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "workflowcore",
			Name:      "cache_hits_total",
			Help:      "Number of node dispatches satisfied from cache",
		}),
		cacheMisses: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "workflowcore",
			Name:      "cache_misses_total",
			Help:      "Number of node dispatches that required a gateway call",
		}),
		retriesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "workflowcore",
			Name:      "retries_total",
			Help:      "Cumulative retry attempts against the execution gateway",
		}, []string{"tool_ref"}),
		inflightNodes: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "workflowcore",
			Name:      "inflight_nodes",
			Help:      "Current number of node tasks executing concurrently",
		}),
		budgetTokens: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "workflowcore",
			Name:      "budget_tokens_spent",
			Help:      "Tokens spent in the current execution's budget tracker",
		}),
		budgetCostUSD: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "workflowcore",
			Name:      "budget_cost_usd_spent",
			Help:      "Monetary cost spent in the current execution's budget tracker",
		}),
	}
}

// RecordNode records one terminal node outcome: its status count and,
// for non-skipped statuses, its duration histogram bucketed by tool ref.
func (m *Metrics) RecordNode(toolRef, status string, duration time.Duration) {
	m.nodesTotal.WithLabelValues(status).Inc()
	if status != "skipped" {
		m.nodeDuration.WithLabelValues(toolRef, status).Observe(float64(duration.Milliseconds()))
	}
}

// RecordCacheHit increments the cache-hit counter.
func (m *Metrics) RecordCacheHit() {
	m.cacheHits.Inc()
}

// RecordCacheMiss increments the cache-miss counter.
func (m *Metrics) RecordCacheMiss() {
	m.cacheMisses.Inc()
}

// RecordRetry increments the retry counter for toolRef.
func (m *Metrics) RecordRetry(toolRef string) {
	m.retriesTotal.WithLabelValues(toolRef).Inc()
}

// SetInflightNodes sets the current concurrently-executing node count.
func (m *Metrics) SetInflightNodes(n int) {
	m.inflightNodes.Set(float64(n))
}

// SetBudgetSpend sets the current token/cost gauges from a budget tracker
// snapshot.
func (m *Metrics) SetBudgetSpend(tokens int64, costUSD float64) {
	m.budgetTokens.Set(float64(tokens))
	m.budgetCostUSD.Set(costUSD)
}
