// Prospectus - Sales Engagement Analytics and Platform Sync
// Copyright 2026 Outbound Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/outboundlabs/prospectus

package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus instrumentation for:
// - Platform API client behavior (requests, retries, rate-limit waits)
// - Sync engine progress (runs, phases, pages, records, budget exits)
// - Database upsert throughput (DuckDB)
// - Continuation queue activity (NATS)
// - HTTP API latency and throughput
// - Analytics cache efficiency

var (
	// Platform client metrics
	PlatformRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "platform_requests_total",
			Help: "Total number of requests issued to external platforms",
		},
		[]string{"platform", "resource", "status"}, // status: "ok", "auth_error", "rate_limited", "transient_error"
	)

	PlatformRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "platform_request_duration_seconds",
			Help:    "Duration of external platform requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"platform", "resource"},
	)

	PlatformRetries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "platform_retries_total",
			Help: "Total number of platform request retries",
		},
		[]string{"platform", "reason"}, // reason: "rate_limit", "transient"
	)

	PlatformRateLimitWaits = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "platform_rate_limit_wait_seconds",
			Help:    "Time spent waiting on the fixed inter-request delay",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"platform"},
	)

	// Sync engine metrics
	SyncRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sync_runs_total",
			Help: "Total number of sync invocations by outcome",
		},
		[]string{"platform", "status"}, // status: "already_syncing", "in_progress", "complete", "error"
	)

	SyncRunDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "sync_run_duration_seconds",
			Help:    "Wall-clock duration of one sync invocation",
			Buckets: []float64{1, 5, 10, 20, 30, 45, 60, 90},
		},
	)

	SyncPhase = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "sync_phase",
			Help: "Current sync phase per workspace (0=contacts 1=sessions 2=metrics 3=linking 4=complete 5=error)",
		},
		[]string{"workspace_id"},
	)

	SyncPagesFetched = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sync_pages_fetched_total",
			Help: "Total number of pages fetched from platform APIs",
		},
		[]string{"platform", "resource"},
	)

	SyncRecordsWritten = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sync_records_written_total",
			Help: "Total number of records upserted during sync",
		},
		[]string{"table"},
	)

	SyncRecordsFailed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sync_records_failed_total",
			Help: "Total number of records that failed to upsert",
		},
		[]string{"table"},
	)

	SyncBudgetExits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sync_budget_exits_total",
			Help: "Total number of invocations ended early by the time budget",
		},
		[]string{"phase"},
	)

	SyncErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sync_errors_total",
			Help: "Total number of sync errors by classification",
		},
		[]string{"error_type"}, // "auth", "rate_limit", "transient", "write", "mapping"
	)

	SyncLastSuccess = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "sync_last_success_timestamp",
			Help: "Unix timestamp of the last completed sync per workspace",
		},
		[]string{"workspace_id"},
	)

	SyncLockContention = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "sync_lock_contention_total",
			Help: "Total number of invocations rejected by a fresh session lock",
		},
	)

	SyncRecordsSkipped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sync_records_skipped_total",
			Help: "Total number of records dropped by shape-variant normalization",
		},
		[]string{"platform", "resource"},
	)

	LinkerLeadsLinked = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "linker_leads_linked_total",
			Help: "Total number of contact/call rows joined to leads",
		},
	)

	LinkerLeadsCreated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "linker_leads_created_total",
			Help: "Total number of leads created lazily during linking",
		},
	)

	// Database metrics
	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "duckdb_query_duration_seconds",
			Help:    "Duration of DuckDB queries in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation", "table"},
	)

	DBQueryErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "duckdb_query_errors_total",
			Help: "Total number of DuckDB query errors",
		},
		[]string{"operation", "table"},
	)

	DBBatchSize = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "duckdb_upsert_batch_size",
			Help:    "Number of rows per upsert batch",
			Buckets: []float64{10, 50, 100, 200, 300, 500},
		},
	)

	// Continuation queue metrics
	QueueMessagesPublished = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "queue_messages_published_total",
			Help: "Total number of continuation messages published",
		},
	)

	QueueMessagesConsumed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "queue_messages_consumed_total",
			Help: "Total number of continuation messages consumed",
		},
	)

	QueueMessagesDeduplicated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "queue_messages_deduplicated_total",
			Help: "Total number of continuation messages skipped as duplicates",
		},
	)

	QueuePublishErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "queue_publish_errors_total",
			Help: "Total number of failed continuation publishes",
		},
	)

	// HTTP API metrics
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"method", "endpoint"},
	)

	// Analytics cache metrics
	CacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cache_hits_total",
			Help: "Total number of cache hits",
		},
		[]string{"cache_type"},
	)

	CacheMisses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cache_misses_total",
			Help: "Total number of cache misses",
		},
		[]string{"cache_type"},
	)

	// Circuit breaker metrics
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
			Help: "Total number of requests through circuit breakers",
		},
		[]string{"name", "result"}, // result: "success", "failure", "rejected"
	)

	// System metrics
	AppInfo = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "app_info",
			Help: "Application version and build information",
		},
		[]string{"version", "go_version"},
	)

	AppUptime = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "app_uptime_seconds",
			Help: "Application uptime in seconds",
		},
	)
)

// phaseValue maps a phase name to its gauge encoding.
var phaseValue = map[string]float64{
	"contacts": 0,
	"sessions": 1,
	"metrics":  2,
	"linking":  3,
	"complete": 4,
	"error":    5,
}

// RecordPlatformRequest records one platform API request outcome.
func RecordPlatformRequest(platform, resource, status string, duration time.Duration) {
	PlatformRequests.WithLabelValues(platform, resource, status).Inc()
	PlatformRequestDuration.WithLabelValues(platform, resource).Observe(duration.Seconds())
}

// RecordSyncRun records one sync invocation outcome.
func RecordSyncRun(platform, status string, duration time.Duration) {
	SyncRuns.WithLabelValues(platform, status).Inc()
	SyncRunDuration.Observe(duration.Seconds())
}

// SetSyncPhase updates the per-workspace phase gauge.
func SetSyncPhase(workspaceID, phase string) {
	if v, ok := phaseValue[phase]; ok {
		SyncPhase.WithLabelValues(workspaceID).Set(v)
	}
}

// RecordUpsert records one upsert batch outcome.
func RecordUpsert(table string, written, failed int, duration time.Duration) {
	SyncRecordsWritten.WithLabelValues(table).Add(float64(written))
	if failed > 0 {
		SyncRecordsFailed.WithLabelValues(table).Add(float64(failed))
	}
	DBBatchSize.Observe(float64(written + failed))
	DBQueryDuration.WithLabelValues("upsert", table).Observe(duration.Seconds())
}

// RecordAPIRequest records an HTTP API request.
func RecordAPIRequest(method, endpoint, statusCode string, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, endpoint, statusCode).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}
