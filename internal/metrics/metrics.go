// file: internal/metrics/metrics.go
// version: 2.0.0
// guid: 31226c84-1090-46ea-9e6e-c0be60ded46b

package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Outcome labels shared by request and refresh counters.
const (
	OutcomeFound    = "found"
	OutcomeNotFound = "not_found"
	OutcomeError    = "error"
	OutcomeSkipped  = "skipped"
	OutcomeFailed   = "failed"
	OutcomeCanceled = "canceled"
	OutcomeCached   = "cached"
)

var (
	registerOnce sync.Once

	lastfmRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "album_enricher",
		Name:      "lastfm_requests_total",
		Help:      "Total number of album.getInfo lookups by outcome",
	}, []string{"outcome"})
	lastfmInFlight = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "album_enricher",
		Name:      "lastfm_requests_in_flight",
		Help:      "Number of outbound Last.fm requests currently holding a pool slot",
	})
	lastfmDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "album_enricher",
		Name:      "lastfm_request_duration_seconds",
		Help:      "Histogram of Last.fm request durations in seconds",
		Buckets:   prometheus.ExponentialBuckets(0.05, 1.6, 10),
	})
	refreshes = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "album_enricher",
		Name:      "refreshes_total",
		Help:      "Total number of album refresh attempts by outcome",
	}, []string{"outcome"})
)

// Register initializes metrics with the global Prometheus registry (idempotent)
func Register() {
	registerOnce.Do(func() {
		prometheus.MustRegister(lastfmRequests, lastfmInFlight, lastfmDuration, refreshes)
	})
}

// Last.fm request helpers
func IncLastfmRequest(outcome string) { lastfmRequests.WithLabelValues(outcome).Inc() }
func IncLastfmInFlight()              { lastfmInFlight.Inc() }
func DecLastfmInFlight()              { lastfmInFlight.Dec() }
func ObserveLastfmDuration(d time.Duration) {
	lastfmDuration.Observe(d.Seconds())
}

// IncRefresh counts a finished refresh attempt.
func IncRefresh(outcome string) { refreshes.WithLabelValues(outcome).Inc() }
