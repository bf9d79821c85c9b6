// Tunereel - Music Discovery Video Feed Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tunereel

package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Candidate fetch metrics
	FetchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "tunereel_fetch_duration_seconds",
			Help:    "Duration of candidate page fetches in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"result"},
	)

	FetchTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tunereel_fetch_total",
			Help: "Total candidate page fetches by result",
		},
		[]string{"result"}, // success, not_authenticated, no_connectivity, upstream
	)

	FetchDroppedDocuments = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "tunereel_fetch_dropped_documents_total",
			Help: "Documents dropped from fetched pages for missing id or storage ref",
		},
	)

	// Ranking metrics
	RankingDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "tunereel_ranking_duration_seconds",
			Help:    "Time spent ranking one page",
			Buckets: []float64{.0001, .0005, .001, .005, .01, .05, .1},
		},
	)

	RankedCandidates = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tunereel_ranked_candidates_total",
			Help: "Candidates ranked, by mode",
		},
		[]string{"mode"}, // cold, personalized
	)

	// Feed session metrics
	FeedSessionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "tunereel_feed_sessions_active",
			Help: "Feed sessions currently alive",
		},
	)

	FeedStateTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tunereel_feed_state_transitions_total",
			Help: "Feed session state transitions",
		},
		[]string{"from", "to"},
	)

	FeedRetriesScheduled = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "tunereel_feed_retries_scheduled_total",
			Help: "Backoff retries scheduled after failed fetches",
		},
	)

	FeedRetryDelay = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "tunereel_feed_retry_delay_seconds",
			Help:    "Backoff delay chosen for scheduled retries",
			Buckets: []float64{0.5, 1, 2, 4, 8, 10, 20},
		},
	)

	FeedMerges = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "tunereel_feed_page_merges_total",
			Help: "Successful page merges into feed windows",
		},
	)

	FeedDuplicatesDropped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "tunereel_feed_duplicates_dropped_total",
			Help: "Candidates dropped on merge because their id was already held or recently evicted",
		},
	)

	FeedWraps = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "tunereel_feed_wraps_total",
			Help: "Times a feed wrapped to the start of its window",
		},
	)

	// Quality resolution metrics
	ResolveTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tunereel_resolve_total",
			Help: "URL resolutions by target tier, served tier and result",
		},
		[]string{"target", "served", "result"},
	)

	ResolveFallbackSteps = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "tunereel_resolve_fallback_steps",
			Help:    "Tiers stepped down before a URL resolved",
			Buckets: []float64{0, 1, 2, 3},
		},
	)

	ResolveCacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "tunereel_resolve_cache_hits_total",
			Help: "Resolved URL cache hits",
		},
	)

	ResolveCacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "tunereel_resolve_cache_misses_total",
			Help: "Resolved URL cache misses",
		},
	)

	// Preload metrics
	PreloadResults = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tunereel_preload_results_total",
			Help: "Preload warm-up outcomes",
		},
		[]string{"result"}, // warm, timeout, error, stale, retry, cold
	)

	PreloadDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "tunereel_preload_duration_seconds",
			Help:    "Time to warm a preload slot",
			Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10},
		},
	)

	// Playback metrics
	PlaybackTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tunereel_playback_state_transitions_total",
			Help: "Playback controller state transitions",
		},
		[]string{"to"},
	)

	PlaybackErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tunereel_playback_errors_total",
			Help: "Playback errors by kind",
		},
		[]string{"kind"}, // not_found, decode, timeout, upstream, other
	)

	// Engagement metrics
	EngagementEvents = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tunereel_engagement_events_total",
			Help: "Engagement events by pipeline stage",
		},
		[]string{"stage"}, // published, publish_failed, invalid, persisted, persist_failed, decode_failed
	)

	// Connectivity metrics
	ConnectivityUp = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "tunereel_connectivity_up",
			Help: "1 when the connectivity probe reports connected",
		},
	)

	ConnectivityChanges = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "tunereel_connectivity_changes_total",
			Help: "Connectivity state flips observed by the probe",
		},
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

	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_state_transitions_total",
			Help: "Total number of circuit breaker state transitions",
		},
		[]string{"name", "from_state", "to_state"},
	)

	// API metrics
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: []float64{.001, .005, .01, .05, .1, .5, 1, 5, 10},
		},
		[]string{"method", "endpoint"},
	)

	WebSocketConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "tunereel_websocket_connections",
			Help: "Open feed event WebSocket connections",
		},
	)
)

// RecordFetch records a candidate page fetch.
func RecordFetch(result string, duration time.Duration) {
	FetchTotal.WithLabelValues(result).Inc()
	FetchDuration.WithLabelValues(result).Observe(duration.Seconds())
}

// RecordRanking records a ranking pass over n candidates.
func RecordRanking(n int, cold bool, duration time.Duration) {
	mode := "personalized"
	if cold {
		mode = "cold"
	}
	RankedCandidates.WithLabelValues(mode).Add(float64(n))
	RankingDuration.Observe(duration.Seconds())
}

// RecordFeedTransition records a feed session state change.
func RecordFeedTransition(from, to string) {
	FeedStateTransitions.WithLabelValues(from, to).Inc()
}

// RecordRetryScheduled records a backoff retry with its delay.
func RecordRetryScheduled(delay time.Duration) {
	FeedRetriesScheduled.Inc()
	FeedRetryDelay.Observe(delay.Seconds())
}

// RecordMerge records a page merge and how many duplicates it dropped.
func RecordMerge(dropped int) {
	FeedMerges.Inc()
	if dropped > 0 {
		FeedDuplicatesDropped.Add(float64(dropped))
	}
}

// RecordResolve records a URL resolution. served is empty on failure.
func RecordResolve(target, served string, steps int, err error) {
	result := "success"
	if err != nil {
		result = "failure"
		served = "none"
	}
	ResolveTotal.WithLabelValues(target, served, result).Inc()
	if err == nil {
		ResolveFallbackSteps.Observe(float64(steps))
	}
}

// RecordResolveCache records a resolved-URL cache lookup.
func RecordResolveCache(hit bool) {
	if hit {
		ResolveCacheHits.Inc()
	} else {
		ResolveCacheMisses.Inc()
	}
}

// RecordPreload records a preload outcome; duration is observed for warm results.
func RecordPreload(result string, duration time.Duration) {
	PreloadResults.WithLabelValues(result).Inc()
	if result == "warm" {
		PreloadDuration.Observe(duration.Seconds())
	}
}

// RecordPlaybackTransition records a playback state change.
func RecordPlaybackTransition(to string) {
	PlaybackTransitions.WithLabelValues(to).Inc()
}

// RecordPlaybackError records a playback error by kind.
func RecordPlaybackError(kind string) {
	PlaybackErrors.WithLabelValues(kind).Inc()
}

// RecordEngagement records an engagement pipeline stage.
func RecordEngagement(stage string) {
	EngagementEvents.WithLabelValues(stage).Inc()
}

// SetConnectivity records the probe's view of connectivity.
func SetConnectivity(up bool) {
	if up {
		ConnectivityUp.Set(1)
	} else {
		ConnectivityUp.Set(0)
	}
}

// RecordAPIRequest records an API request metric.
func RecordAPIRequest(method, endpoint, statusCode string, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, endpoint, statusCode).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}
