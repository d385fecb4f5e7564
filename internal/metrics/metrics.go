// Package metrics defines the Prometheus collectors exported on /metrics.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Catalog import
	SongsImported = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "taste_songs_imported_total",
			Help: "Songs written to the catalog by the importer",
		},
		[]string{"genre"},
	)

	CatalogFetches = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "taste_catalog_fetches_total",
			Help: "Catalog search requests by outcome",
		},
		[]string{"outcome"}, // "ok", "client_error", "transient_error"
	)

	// Sampling and preferences
	SamplesServed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "taste_samples_served_total",
			Help: "Sampling requests served per tier",
		},
		[]string{"tier"},
	)

	SampleShortfall = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "taste_sample_shortfall_total",
			Help: "Sampling requests that returned fewer songs than requested",
		},
	)

	PreferencesRecorded = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "taste_preferences_recorded_total",
			Help: "Ratings received by rating kind",
		},
		[]string{"rating"},
	)

	// Recommendations and the ML service
	RecommendationsGenerated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "taste_recommendations_generated_total",
			Help: "Recommendations persisted, by whether the ML service supplied tracks",
		},
		[]string{"with_tracks"},
	)

	MLRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "taste_ml_requests_total",
			Help: "ML service calls by endpoint and outcome",
		},
		[]string{"endpoint", "outcome"}, // outcome: "success", "failure", "rejected"
	)

	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "taste_circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	// HTTP
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "taste_http_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route", "status"},
	)
)

// RecordHTTPRequest observes one finished HTTP request.
func RecordHTTPRequest(method, route string, status int, duration time.Duration) {
	HTTPRequestDuration.WithLabelValues(method, route, strconv.Itoa(status)).Observe(duration.Seconds())
}

// RecordRecommendation counts a persisted recommendation.
func RecordRecommendation(trackCount int) {
	RecommendationsGenerated.WithLabelValues(strconv.FormatBool(trackCount > 0)).Inc()
}
