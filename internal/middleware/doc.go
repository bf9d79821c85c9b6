// Tunereel - Music Discovery Video Feed Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tunereel

/*
Package middleware provides the HTTP middleware shared by the API router.

All middleware use the chi signature func(http.Handler) http.Handler and
wrap the response writer with chi's WrapResponseWriter, so WebSocket
upgrades keep working through them.

# Middleware

  - RequestID: accepts or generates X-Request-ID and stores it in the
    logging context
  - PrometheusMetrics: records http_requests_total and
    http_request_duration_seconds, labeled by chi route pattern
  - AccessLog: one structured zerolog line per request

# Usage

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.AccessLog(logger))
	r.Use(middleware.PrometheusMetrics)

Metrics are labeled with the matched route pattern (for example
"/api/v1/feed/current") rather than the raw path, which keeps label
cardinality bounded. Unmatched requests share the "unmatched" label.
*/
package middleware
