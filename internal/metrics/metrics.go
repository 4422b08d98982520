// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package metrics provides Prometheus metrics for the discovery pipeline.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "discovery"

var (
	// AdapterCallsTotal counts adapter calls by stage, adapter, and status.
	AdapterCallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "adapter_calls_total",
			Help:      "Total number of source adapter calls",
		},
		[]string{"stage", "adapter", "status"},
	)

	// AdapterDuration measures adapter call latency.
	AdapterDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "adapter_duration_seconds",
			Help:      "Duration of source adapter calls in seconds",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		},
		[]string{"stage", "adapter"},
	)

	// CacheOpsTotal counts cache operations by op and result.
	CacheOpsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_ops_total",
			Help:      "Total number of cache operations",
		},
		[]string{"op", "result"},
	)

	// FullTextOutcomesTotal counts terminal full-text outcomes.
	FullTextOutcomesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fulltext_outcomes_total",
			Help:      "Total number of full-text acquisition outcomes",
		},
		[]string{"state", "cached"},
	)

	// SearchResults observes the number of ranked records per query.
	SearchResults = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "search_results",
			Help:      "Distribution of ranked result counts per query",
			Buckets:   []float64{0, 1, 5, 10, 20, 50, 100, 250},
		},
	)
)

// RecordAdapterCall records one adapter call.
func RecordAdapterCall(stage, adapter, status string, seconds float64) {
	AdapterCallsTotal.WithLabelValues(stage, adapter, status).Inc()
	AdapterDuration.WithLabelValues(stage, adapter).Observe(seconds)
}

// RecordCache records a cache operation; result is hit, miss, ok, or error.
func RecordCache(op, result string) {
	CacheOpsTotal.WithLabelValues(op, result).Inc()
}

// RecordCacheCount records n cache results of one kind.
func RecordCacheCount(op, result string, n int) {
	if n > 0 {
		CacheOpsTotal.WithLabelValues(op, result).Add(float64(n))
	}
}

// RecordFullText records a terminal full-text outcome.
func RecordFullText(state string, cached bool) {
	c := "false"
	if cached {
		c = "true"
	}
	FullTextOutcomesTotal.WithLabelValues(state, c).Inc()
}

// WriteTextfile writes every registered metric to path in the Prometheus
// text exposition format, suitable for the node_exporter textfile collector.
func WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, prometheus.DefaultGatherer)
}
