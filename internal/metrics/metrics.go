// Civitas - Semantic Content Discovery Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/civitas

// Package metrics registers the Prometheus instruments for Civitas.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// API Metrics
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "civitas_api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "civitas_api_request_duration_seconds",
			Help:    "Duration of API requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	)

	APIActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "civitas_api_active_requests",
			Help: "Number of in-flight API requests",
		},
	)

	// Embedding Metrics
	EmbeddingRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "civitas_embedding_requests_total",
			Help: "Embedding attempts per tier",
		},
		[]string{"tier", "result"}, // result: "success", "failure", "skipped", "cache_hit"
	)

	EmbeddingDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "civitas_embedding_duration_seconds",
			Help:    "Duration of embedding calls per tier",
			Buckets: []float64{0.005, 0.025, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"tier"},
	)

	EmbeddingUnavailable = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "civitas_embedding_unavailable_total",
			Help: "Embeddings that failed on every tier",
		},
	)

	// Discovery Metrics
	DiscoveryRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "civitas_discovery_runs_total",
			Help: "Clustering runs by trigger and outcome",
		},
		[]string{"trigger", "result"}, // trigger: "cadence", "on_demand"; result: "success", "error", "skipped"
	)

	DiscoveryRunDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "civitas_discovery_run_duration_seconds",
			Help:    "Duration of a clustering run",
			Buckets: []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		},
	)

	DiscoveryClusters = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "civitas_discovery_clusters",
			Help: "Clusters seen in the last run by stage",
		},
		[]string{"stage"}, // "formed", "qualified", "published", "deferred"
	)

	TopicsPublished = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "civitas_topics_published",
			Help: "Topics in the current snapshot",
		},
	)

	SummarizeRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "civitas_summarize_requests_total",
			Help: "Summarization calls by outcome",
		},
		[]string{"result"}, // "success", "failure", "timeout", "cache_hit"
	)

	ResourceExhausted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "civitas_resource_exhausted_total",
			Help: "Windows or pools truncated at their configured cap",
		},
		[]string{"resource"},
	)

	// Feed Metrics
	FeedPages = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "civitas_feed_pages_total",
			Help: "Feed pages served by mode and result",
		},
		[]string{"mode", "result"}, // result: "ok", "degraded", "topic_ended"
	)

	RankingPoolSize = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "civitas_ranking_pool_size",
			Help:    "Eligible candidates per ranking call",
			Buckets: prometheus.ExponentialBuckets(10, 2, 10),
		},
	)

	NavigationTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "civitas_navigation_transitions_total",
			Help: "Navigation state transitions",
		},
		[]string{"transition"}, // "enter", "reenter", "exit", "auto_exit"
	)

	// Pipeline Metrics
	PipelineMessages = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "civitas_pipeline_messages_total",
			Help: "Bus messages handled by topic and outcome",
		},
		[]string{"topic", "result"},
	)

	// Circuit Breaker Metrics
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CircuitBreakerRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_requests_total",
			Help: "Total number of requests through circuit breaker",
		},
		[]string{"name", "result"}, // result: "success", "failure", "rejected"
	)

	CircuitBreakerConsecutiveFailures = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_consecutive_failures",
			Help: "Current number of consecutive failures",
		},
		[]string{"name"},
	)

	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_state_transitions_total",
			Help: "Total number of circuit breaker state transitions",
		},
		[]string{"name", "from_state", "to_state"},
	)

	// Authorization Metrics
	AuthzDecisions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "civitas_authz_decisions_total",
			Help: "Authorization decisions by action and outcome",
		},
		[]string{"action", "decision"},
	)

	// WebSocket Metrics
	WebSocketClients = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "civitas_websocket_clients",
			Help: "Connected trending-topic stream clients",
		},
	)
)

// RecordAPIRequest records one completed request.
func RecordAPIRequest(method, endpoint, statusCode string, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, endpoint, statusCode).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// TrackActiveRequest increments or decrements the in-flight gauge.
func TrackActiveRequest(inc bool) {
	if inc {
		APIActiveRequests.Inc()
	} else {
		APIActiveRequests.Dec()
	}
}

// RecordEmbedding records one tier attempt.
func RecordEmbedding(tier, result string, duration time.Duration) {
	EmbeddingRequests.WithLabelValues(tier, result).Inc()
	if duration > 0 {
		EmbeddingDuration.WithLabelValues(tier).Observe(duration.Seconds())
	}
}

// RecordDiscoveryRun records a finished or skipped clustering run.
func RecordDiscoveryRun(trigger, result string, duration time.Duration) {
	DiscoveryRuns.WithLabelValues(trigger, result).Inc()
	if duration > 0 {
		DiscoveryRunDuration.Observe(duration.Seconds())
	}
}

// RecordClusterStages sets the per-stage cluster gauges for the last run.
func RecordClusterStages(formed, qualified, published, deferred int) {
	DiscoveryClusters.WithLabelValues("formed").Set(float64(formed))
	DiscoveryClusters.WithLabelValues("qualified").Set(float64(qualified))
	DiscoveryClusters.WithLabelValues("published").Set(float64(published))
	DiscoveryClusters.WithLabelValues("deferred").Set(float64(deferred))
}

// RecordResourceExhausted counts one truncation of resource.
func RecordResourceExhausted(resource string) {
	ResourceExhausted.WithLabelValues(resource).Inc()
}

// RecordFeedPage counts one served page.
func RecordFeedPage(mode, result string) {
	FeedPages.WithLabelValues(mode, result).Inc()
}

// RecordAuthzDecision counts one permission check.
func RecordAuthzDecision(action string, allowed bool) {
	decision := "deny"
	if allowed {
		decision = "allow"
	}
	AuthzDecisions.WithLabelValues(action, decision).Inc()
}
