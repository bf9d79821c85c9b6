// Tunereel - Music Discovery Video Feed Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tunereel

/*
Package metrics provides Prometheus instrumentation for the feed engine.

Collectors are registered on the default registry through promauto and
exposed at /metrics by the API router.

# Available Metrics

Feed:
  - tunereel_fetch_total / tunereel_fetch_duration_seconds (label: result)
  - tunereel_feed_state_transitions_total (labels: from, to)
  - tunereel_feed_retries_scheduled_total, tunereel_feed_retry_delay_seconds
  - tunereel_feed_page_merges_total, tunereel_feed_duplicates_dropped_total
  - tunereel_feed_wraps_total, tunereel_feed_sessions_active

Ranking and resolution:
  - tunereel_ranked_candidates_total (label: mode)
  - tunereel_resolve_total (labels: target, served, result)
  - tunereel_resolve_fallback_steps

Preload and playback:
  - tunereel_preload_results_total (label: result)
  - tunereel_playback_state_transitions_total, tunereel_playback_errors_total

Infrastructure:
  - circuit_breaker_state, circuit_breaker_requests_total,
    circuit_breaker_state_transitions_total (label: name)
  - http_requests_total, http_request_duration_seconds
  - tunereel_engagement_events_total (label: stage)
  - tunereel_connectivity_up, tunereel_websocket_connections

# Usage

Components call the Record* helpers rather than touching collectors:

	metrics.RecordFetch("success", time.Since(start))
	metrics.RecordPreload("timeout", 0)
*/
package metrics
