// MoviePulse - Title Trend Scoring Pipeline
// Copyright 2026 MoviePulse contributors
// SPDX-License-Identifier: Apache-2.0

// Package metrics exposes prometheus instrumentation for the pipeline.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// EventsPublished counts events accepted by the broker, by topic.
	EventsPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "trend_events_published_total",
			Help: "Total number of events published to the bus",
		},
		[]string{"topic"},
	)

	// EventsProcessed counts handler outcomes.
	// outcome is one of: processed, dropped, retried, dead_lettered.
	EventsProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "trend_events_processed_total",
			Help: "Total number of consumed events by handler and outcome",
		},
		[]string{"handler", "outcome"},
	)

	// FetchOutcomes counts metadata fetch results by outcome
	// (found, not_found, transient).
	FetchOutcomes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "trend_metadata_fetch_total",
			Help: "Total number of metadata provider fetches by outcome",
		},
		[]string{"outcome"},
	)

	// StoreOpDuration tracks record store operation latency.
	StoreOpDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "trend_store_operation_duration_seconds",
			Help:    "Duration of record store operations in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)

	// StoreOpErrors counts record store operation failures.
	StoreOpErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "trend_store_operation_errors_total",
			Help: "Total number of record store operation failures",
		},
		[]string{"operation"},
	)

	// DeadLettersPersisted counts messages written to the dead-letter table.
	DeadLettersPersisted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "trend_dead_letters_persisted_total",
			Help: "Total number of dead-lettered messages persisted for replay",
		},
	)

	// HTTPRequests counts gateway requests.
	HTTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "trend_http_requests_total",
			Help: "Total number of gateway HTTP requests",
		},
		[]string{"method", "path", "status"},
	)
)

// Handler outcome labels for EventsProcessed.
const (
	OutcomeProcessed    = "processed"
	OutcomeDropped      = "dropped"
	OutcomeRetried      = "retried"
	OutcomeDeadLettered = "dead_lettered"
)

// ObserveStoreOp records duration and error state of a store operation.
func ObserveStoreOp(operation string, start time.Time, err error) {
	StoreOpDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
	if err != nil {
		StoreOpErrors.WithLabelValues(operation).Inc()
	}
}
