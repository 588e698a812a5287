// QuestRoute - Quest Itinerary Recommendation Engine
// Copyright 2026 Roamlab
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/roamlab/questroute

// Package metrics provides Prometheus instrumentation for the
// recommendation pipeline: request latency, candidate pool sizes,
// reranker outcomes, and catalog/session storage activity.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Recommendation pipeline metrics
	RecommendRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "questroute_recommend_requests_total",
			Help: "Total number of recommendation requests",
		},
		[]string{"mode"}, // "anchored", "fallback"
	)

	RecommendDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "questroute_recommend_duration_seconds",
			Help:    "End-to-end duration of recommendation requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"mode"},
	)

	CandidatePoolSize = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "questroute_candidate_pool_size",
			Help:    "Number of candidates collected per request",
			Buckets: []float64{0, 1, 5, 10, 20, 30, 40, 50},
		},
	)

	ResultCount = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "questroute_result_count",
			Help:    "Number of quests in the final result",
			Buckets: []float64{0, 1, 2, 3, 4},
		},
	)

	// Reranker metrics
	RerankOutcomes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "questroute_rerank_outcomes_total",
			Help: "Rerank attempts by outcome (accepted or fallback reason)",
		},
		[]string{"outcome"},
	)

	RerankDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "questroute_rerank_duration_seconds",
			Help:    "Duration of AI rerank calls in seconds",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 4, 8},
		},
	)

	RerankBreakerState = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "questroute_rerank_breaker_state",
			Help: "Reranker circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
	)

	// Storage metrics
	CatalogSize = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "questroute_catalog_quests",
			Help: "Number of quests in the in-memory catalog",
		},
	)

	SessionWrites = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "questroute_session_writes_total",
			Help: "Session record writes by status",
		},
		[]string{"status"}, // "ok", "error", "dropped"
	)
)

// ObserveRecommend records one completed recommendation request.
func ObserveRecommend(anchored bool, start time.Time) {
	mode := "fallback"
	if anchored {
		mode = "anchored"
	}
	RecommendRequests.WithLabelValues(mode).Inc()
	RecommendDuration.WithLabelValues(mode).Observe(time.Since(start).Seconds())
}
