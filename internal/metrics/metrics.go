// Package metrics provides Prometheus metrics for the companion host.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Fetch outcomes.
const (
	FetchCompleted     = "completed"
	FetchSkipped       = "skipped"
	FetchFailed        = "failed"
	FetchNotConfigured = "not_configured"
)

// Submit outcomes.
const (
	SubmitAccepted      = "accepted"
	SubmitRejected      = "rejected"
	SubmitInvalid       = "invalid"
	SubmitNetworkError  = "network_error"
	SubmitNotConfigured = "not_configured"
)

var (
	// FetchTotal counts nearby fetch attempts by outcome.
	FetchTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "smiles",
			Name:      "fetch_total",
			Help:      "Total number of nearby story fetches",
		},
		[]string{"outcome"},
	)

	// FetchDuration measures store round trips.
	FetchDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "smiles",
			Name:      "fetch_duration_seconds",
			Help:      "Duration of nearby story fetches in seconds",
			Buckets:   prometheus.DefBuckets,
		},
	)

	// StoriesAdded counts stories newly registered by fetches.
	StoriesAdded = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "smiles",
			Name:      "stories_added_total",
			Help:      "Total number of fetched stories registered on the map",
		},
	)

	// SubmitTotal counts submissions by outcome.
	SubmitTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "smiles",
			Name:      "submit_total",
			Help:      "Total number of story submissions",
		},
		[]string{"outcome"},
	)

	// Markers tracks the number of rendered markers.
	Markers = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "smiles",
			Name:      "markers",
			Help:      "Number of story markers currently rendered",
		},
	)
)

// RecordFetch records a fetch outcome.
func RecordFetch(outcome string, added int, duration float64) {
	FetchTotal.WithLabelValues(outcome).Inc()
	if outcome == FetchCompleted || outcome == FetchFailed {
		FetchDuration.Observe(duration)
	}
	if added > 0 {
		StoriesAdded.Add(float64(added))
	}
}

// RecordSubmit records a submission outcome.
func RecordSubmit(outcome string) {
	SubmitTotal.WithLabelValues(outcome).Inc()
}

// SetMarkers sets the rendered marker gauge.
func SetMarkers(n int) {
	Markers.Set(float64(n))
}
