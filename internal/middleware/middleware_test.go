// Tunereel - Music Discovery Video Feed Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tunereel

package middleware

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/tomtom215/tunereel/internal/logging"
	"github.com/tomtom215/tunereel/internal/metrics"
)

func TestRequestID(t *testing.T) {
	tests := []struct {
		name     string
		incoming string
		wantSame bool
	}{
		{name: "generated when missing", incoming: ""},
		{name: "upstream id reused", incoming: "req-abc-123", wantSame: true},
		{name: "oversized id replaced", incoming: strings.Repeat("x", maxRequestIDLength+1)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var seen string
			handler := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				seen = GetRequestID(r.Context())
			}))

			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.incoming != "" {
				req.Header.Set(RequestIDHeader, tt.incoming)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			if seen == "" {
				t.Fatal("request ID missing from context")
			}
			if got := rec.Header().Get(RequestIDHeader); got != seen {
				t.Errorf("response header = %q, context = %q", got, seen)
			}
			if tt.wantSame && seen != tt.incoming {
				t.Errorf("request ID = %q, want %q", seen, tt.incoming)
			}
			if !tt.wantSame && seen == tt.incoming {
				t.Errorf("request ID %q should have been regenerated", seen)
			}
		})
	}
}

func TestPrometheusMetrics_LabelsByRoutePattern(t *testing.T) {
	r := chi.NewRouter()
	r.Use(PrometheusMetrics)
	r.Get("/mwtest/items/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})
	r.Post("/mwtest/implicit", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})

	teapot := metrics.APIRequestsTotal.WithLabelValues(http.MethodGet, "/mwtest/items/{id}", "418")
	implicit := metrics.APIRequestsTotal.WithLabelValues(http.MethodPost, "/mwtest/implicit", "200")
	beforeTeapot := testutil.ToFloat64(teapot)
	beforeImplicit := testutil.ToFloat64(implicit)

	for _, id := range []string{"a", "b", "c"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/mwtest/items/"+id, nil))
	}
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/mwtest/implicit", nil))

	if got := testutil.ToFloat64(teapot) - beforeTeapot; got != 3 {
		t.Errorf("teapot requests = %v, want 3 under one pattern label", got)
	}
	if got := testutil.ToFloat64(implicit) - beforeImplicit; got != 1 {
		t.Errorf("implicit 200 requests = %v, want 1", got)
	}
}

func TestPrometheusMetrics_Unmatched(t *testing.T) {
	handler := PrometheusMetrics(http.NotFoundHandler())
	counter := metrics.APIRequestsTotal.WithLabelValues(http.MethodDelete, unmatchedRoute, "404")
	before := testutil.ToFloat64(counter)

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodDelete, "/nowhere", nil))

	if got := testutil.ToFloat64(counter) - before; got != 1 {
		t.Errorf("unmatched requests = %v, want 1", got)
	}
}

func TestAccessLog(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		wantLevel string
	}{
		{name: "success at info", status: http.StatusOK, wantLevel: `"level":"info"`},
		{name: "client error at warn", status: http.StatusConflict, wantLevel: `"level":"warn"`},
		{name: "server error at error", status: http.StatusBadGateway, wantLevel: `"level":"error"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			logger := logging.NewTestLogger(&buf)

			handler := RequestID(AccessLog(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
			})))
			req := httptest.NewRequest(http.MethodGet, "/api/v1/feed/current", nil)
			req.Header.Set(RequestIDHeader, "req-1")
			handler.ServeHTTP(httptest.NewRecorder(), req)

			out := buf.String()
			for _, want := range []string{tt.wantLevel, `"request_id":"req-1"`, `"path":"/api/v1/feed/current"`, `"component":"http"`} {
				if !strings.Contains(out, want) {
					t.Errorf("log line %q missing %s", out, want)
				}
			}
		})
	}
}
