package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Upstream fetch metrics
	UpstreamRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "polylook_upstream_requests_total",
			Help: "Total number of upstream API requests",
		},
		[]string{"endpoint", "status"}, // status: success, http_error, transport_error
	)

	UpstreamRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "polylook_upstream_request_duration_seconds",
			Help:    "Duration of upstream API requests including retries",
			Buckets: []float64{.1, .25, .5, 1, 2.5, 5, 10, 30},
		},
		[]string{"endpoint"},
	)

	UpstreamRetries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "polylook_upstream_retries_total",
			Help: "Total number of upstream request retries",
		},
		[]string{"reason"}, // rate_limited, server_error, transport_error
	)

	// Pagination metrics
	PagesCollected = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "polylook_pages_collected_total",
			Help: "Total number of pages drained by the paginated collector",
		},
	)

	CollectionsTruncated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "polylook_collections_truncated_total",
			Help: "Total number of paginated collections that returned partial results",
		},
	)

	// Aggregation metrics
	SummariesBuilt = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "polylook_wallet_summaries_built_total",
			Help: "Total number of wallet summaries built",
		},
		[]string{"status"}, // complete, degraded
	)

	SummaryBuildDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "polylook_wallet_summary_build_duration_seconds",
			Help:    "Duration of wallet summary reconciliation",
			Buckets: []float64{.25, .5, 1, 2.5, 5, 10, 30},
		},
	)

	FeedWalletFetches = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "polylook_feed_wallet_fetches_total",
			Help: "Total number of per-wallet activity fetches in feed aggregation",
		},
		[]string{"status"}, // success, error
	)

	FeedEntriesEmitted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "polylook_feed_entries_emitted_total",
			Help: "Total number of feed entries emitted after dedup and filtering",
		},
	)

	WhaleScans = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "polylook_whale_scans_total",
			Help: "Total number of whale detection scans",
		},
	)

	WhalesDetected = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "polylook_whales_detected_total",
			Help: "Total number of trades that cleared the whale threshold",
		},
	)

	// Alert metrics
	AlertsSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "polylook_alerts_sent_total",
			Help: "Total number of whale alerts sent",
		},
		[]string{"status", "type"}, // success/error, log/discord
	)

	// System health
	HealthChecks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "polylook_health_checks_total",
			Help: "Total number of health check requests",
		},
		[]string{"status"},
	)
)

// RecordUpstreamRequest records one logical upstream call (including retries).
func RecordUpstreamRequest(endpoint, status string, duration time.Duration) {
	UpstreamRequests.WithLabelValues(endpoint, status).Inc()
	UpstreamRequestDuration.WithLabelValues(endpoint).Observe(duration.Seconds())
}

// RecordRetry records a single retry attempt and its reason.
func RecordRetry(reason string) {
	UpstreamRetries.WithLabelValues(reason).Inc()
}

// RecordSummary records a wallet summary build.
func RecordSummary(duration time.Duration, degraded bool) {
	status := "complete"
	if degraded {
		status = "degraded"
	}
	SummariesBuilt.WithLabelValues(status).Inc()
	SummaryBuildDuration.Observe(duration.Seconds())
}

// RecordFeedFetch records a per-wallet feed fetch outcome.
func RecordFeedFetch(err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	FeedWalletFetches.WithLabelValues(status).Inc()
}

// RecordWhaleScan records a whale detection pass.
func RecordWhaleScan(detected int) {
	WhaleScans.Inc()
	WhalesDetected.Add(float64(detected))
}

// RecordAlert records a whale alert delivery attempt.
func RecordAlert(alertType string, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	AlertsSent.WithLabelValues(status, alertType).Inc()
}

// RecordHealthCheck records health check status.
func RecordHealthCheck(healthy bool) {
	status := "healthy"
	if !healthy {
		status = "unhealthy"
	}
	HealthChecks.WithLabelValues(status).Inc()
}
