// Package metrics defines the Prometheus instruments exported on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RecommendRequests counts recommendation calls by outcome ("ok", "not_found", "error").
	RecommendRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "movierec_recommend_requests_total",
			Help: "Total number of recommendation requests",
		},
		[]string{"outcome"},
	)

	RecommendDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "movierec_recommend_duration_seconds",
			Help:    "Duration of recommendation requests including poster resolution",
			Buckets: prometheus.DefBuckets,
		},
	)

	// PosterLookups counts resolved poster URLs by shape ("poster", "no_poster", "error").
	PosterLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "movierec_poster_lookups_total",
			Help: "Total number of poster lookups by resulting URL shape",
		},
		[]string{"result"},
	)

	PosterFetchDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "movierec_poster_fetch_duration_seconds",
			Help:    "Duration of metadata API calls for poster lookup",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
	)

	// CircuitBreakerState is 0 closed, 1 half-open, 2 open.
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "movierec_circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	ArtifactDownloads = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "movierec_artifact_downloads_total",
			Help: "Startup artifact downloads by artifact and outcome",
		},
		[]string{"artifact", "outcome"},
	)
)
