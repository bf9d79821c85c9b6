// Tunereel - Music Discovery Video Feed Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tunereel

package api

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/tunereel/internal/auth"
	"github.com/tomtom215/tunereel/internal/cache"
	"github.com/tomtom215/tunereel/internal/feed"
	"github.com/tomtom215/tunereel/internal/fetcher"
	"github.com/tomtom215/tunereel/internal/logging"
	"github.com/tomtom215/tunereel/internal/media"
	"github.com/tomtom215/tunereel/internal/models"
	"github.com/tomtom215/tunereel/internal/preload"
	"github.com/tomtom215/tunereel/internal/quality"
	"github.com/tomtom215/tunereel/internal/recommend"
	"github.com/tomtom215/tunereel/internal/store"
	"github.com/tomtom215/tunereel/internal/websocket"
)

const (
	cdn        = "https://cdn.test"
	testSecret = "0123456789abcdef0123456789abcdef"
)

// switchNetwork is a NetworkStatus toggled by the test.
type switchNetwork struct {
	down atomic.Bool
}

func (n *switchNetwork) IsConnected() bool { return !n.down.Load() }

type testEnv struct {
	registry *feed.Registry
	meta     *store.MemoryMetadata
	hub      *websocket.Hub
	network  *switchNetwork
	verifier *auth.TokenVerifier
	handler  *Handler
	router   http.Handler
}

type envOptions struct {
	docs         int
	staticUser   string
	corsOrigins  []string
	rateLimit    int
	withoutHub   bool
	withVerifier bool
}

func catalog(n int) []models.Candidate {
	docs := make([]models.Candidate, n)
	for i := range docs {
		id := fmt.Sprintf("v%02d", i)
		docs[i] = models.Candidate{
			ID:         id,
			Title:      "Track " + id,
			Artist:     "Artist",
			Genre:      "pop",
			StorageRef: "videos/" + id + ".mp4",
			UploadedAt: time.Date(2026, 5, 1, 0, 0, n-i, 0, time.UTC),
		}
	}
	return docs
}

func newTestEnv(t *testing.T, opts envOptions) *testEnv {
	t.Helper()

	docs := catalog(opts.docs)
	refs := make([]string, len(docs))
	for i, d := range docs {
		refs[i] = d.StorageRef
	}
	meta := store.NewMemoryMetadata(docs...)
	profiles := store.NewMemoryProfiles()

	ranker, err := recommend.NewRanker(nil, logging.Nop())
	if err != nil {
		t.Fatalf("NewRanker() error = %v", err)
	}

	factory := func(userID string) (*feed.Session, error) {
		urls := cache.New(time.Minute)
		resolver := quality.NewResolver(store.NewMemoryBlobs(cdn, refs...), urls, quality.DefaultConfig(), logging.Nop())
		sim := media.NewSimulator(media.SimulatorConfig{OpenLatency: time.Millisecond, ClipLength: time.Second, TickInterval: 20 * time.Millisecond})
		coord := preload.New(resolver, sim, nil, preload.Config{Timeout: time.Second, RetryDelay: 10 * time.Millisecond, Concurrency: 2}, logging.Nop())

		cfg := feed.DefaultConfig()
		cfg.PageSize = 3
		cfg.PreloadThreshold = 1
		cfg.Backoff = feed.BackoffConfig{Initial: 5 * time.Millisecond, Max: 20 * time.Millisecond, Multiplier: 2, MaxAttempts: 2}

		return feed.NewSession(userID, cfg, feed.Deps{
			Fetcher:   fetcher.New(meta, auth.Static(userID), nil, logging.Nop()),
			Ranker:    ranker,
			Preloader: coord,
			Profiles:  profiles,
			URLCache:  urls,
		}, logging.Nop())
	}

	env := &testEnv{
		registry: feed.NewRegistry(factory, time.Minute, logging.Nop()),
		meta:     meta,
		network:  &switchNetwork{},
	}
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = env.registry.DisposeAll(ctx)
	})

	if !opts.withoutHub {
		env.hub = websocket.NewHub(nil, logging.Nop())
	}
	if opts.withVerifier {
		env.verifier, err = auth.NewTokenVerifier(testSecret, time.Hour, "tunereel")
		if err != nil {
			t.Fatalf("NewTokenVerifier() error = %v", err)
		}
	}

	origins := opts.corsOrigins
	if origins == nil {
		origins = []string{"*"}
	}
	env.handler = NewHandler(HandlerOptions{
		Sessions:    env.registry,
		Hub:         env.hub,
		Network:     env.network,
		CORSOrigins: origins,
		Version:     "test",
	})

	cfg := RouterConfig{
		CORSOrigins:       origins,
		RateLimitRequests: opts.rateLimit,
		RateLimitWindow:   time.Minute,
		RateLimitDisabled: opts.rateLimit == 0,
		StaticUserID:      opts.staticUser,
		Logger:            logging.Nop(),
	}
	if env.verifier != nil {
		cfg.Verifier = env.verifier
	}
	env.router = NewRouter(env.handler, cfg)
	return env
}

type envelope struct {
	Status   string           `json:"status"`
	Data     json.RawMessage  `json:"data"`
	Metadata models.Metadata  `json:"metadata"`
	Error    *models.APIError `json:"error"`
}

func (e *testEnv) do(t *testing.T, method, path, body string, header ...string) (int, envelope) {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)

	var env envelope
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("%s %s: decode %q: %v", method, path, rec.Body.String(), err)
	}
	return rec.Code, env
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

// waitReady polls the current item until the first page has loaded.
func (e *testEnv) waitReady(t *testing.T, header ...string) feed.FeedItem {
	t.Helper()
	var item feed.FeedItem
	waitFor(t, "first page", func() bool {
		code, env := e.do(t, http.MethodGet, "/api/v1/feed/current", "", header...)
		if code != http.StatusOK {
			return false
		}
		return json.Unmarshal(env.Data, &item) == nil
	})
	return item
}

func errorCode(env envelope) string {
	if env.Error == nil {
		return ""
	}
	return env.Error.Code
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t, envOptions{docs: 3})

	code, resp := env.do(t, http.MethodGet, "/healthz", "")
	if code != http.StatusOK {
		t.Fatalf("status = %d, want 200", code)
	}
	var health HealthStatus
	if err := json.Unmarshal(resp.Data, &health); err != nil {
		t.Fatal(err)
	}
	if health.Status != "healthy" || !health.Connected || health.Version != "test" {
		t.Errorf("health = %+v", health)
	}

	env.network.down.Store(true)
	_, resp = env.do(t, http.MethodGet, "/healthz", "")
	if err := json.Unmarshal(resp.Data, &health); err != nil {
		t.Fatal(err)
	}
	if health.Status != "degraded" || health.Connected {
		t.Errorf("offline health = %+v, want degraded", health)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	env := newTestEnv(t, envOptions{docs: 3})

	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "go_goroutines") {
		t.Error("metrics output missing go_goroutines")
	}
}

func TestAuthentication(t *testing.T) {
	env := newTestEnv(t, envOptions{docs: 3, withVerifier: true})

	token, err := env.verifier.Issue("u1")
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name     string
		header   []string
		wantCode int
	}{
		{name: "no header", wantCode: http.StatusUnauthorized},
		{name: "wrong scheme", header: []string{"Authorization", "Basic abc"}, wantCode: http.StatusUnauthorized},
		{name: "bad token", header: []string{"Authorization", "Bearer not-a-jwt"}, wantCode: http.StatusUnauthorized},
		{name: "valid token", header: []string{"Authorization", "Bearer " + token}, wantCode: http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, resp := env.do(t, http.MethodGet, "/api/v1/feed/state", "", tt.header...)
			if code != tt.wantCode {
				t.Fatalf("status = %d, want %d (%+v)", code, tt.wantCode, resp.Error)
			}
			if tt.wantCode == http.StatusUnauthorized && errorCode(resp) != ErrCodeAuthentication {
				t.Errorf("code = %q, want %s", errorCode(resp), ErrCodeAuthentication)
			}
		})
	}
}

func TestFeedFlow(t *testing.T) {
	env := newTestEnv(t, envOptions{docs: 5, staticUser: "u1"})

	first := env.waitReady(t)
	if first.Key == "" || first.Candidate.ID == "" {
		t.Fatalf("current item = %+v", first)
	}

	code, resp := env.do(t, http.MethodGet, "/api/v1/feed/lookahead?n=2", "")
	if code != http.StatusOK {
		t.Fatalf("lookahead status = %d (%+v)", code, resp.Error)
	}
	var ahead []feed.FeedItem
	if err := json.Unmarshal(resp.Data, &ahead); err != nil {
		t.Fatal(err)
	}
	if len(ahead) != 2 {
		t.Fatalf("lookahead len = %d, want 2", len(ahead))
	}
	if resp.Metadata.State == "" {
		t.Error("metadata state missing on feed response")
	}

	code, resp = env.do(t, http.MethodPost, "/api/v1/feed/advance", "")
	if code != http.StatusOK {
		t.Fatalf("advance status = %d (%+v)", code, resp.Error)
	}
	var next feed.FeedItem
	if err := json.Unmarshal(resp.Data, &next); err != nil {
		t.Fatal(err)
	}
	if next.Key != ahead[0].Key {
		t.Errorf("advance = %s, want first lookahead %s", next.Key, ahead[0].Key)
	}

	code, resp = env.do(t, http.MethodGet, "/api/v1/feed/state", "")
	if code != http.StatusOK {
		t.Fatalf("state status = %d", code)
	}
	var snap feed.Snapshot
	if err := json.Unmarshal(resp.Data, &snap); err != nil {
		t.Fatal(err)
	}
	if snap.UserID != "u1" || snap.Current == nil || snap.Current.Key != next.Key {
		t.Errorf("snapshot = %+v", snap)
	}

	code, resp = env.do(t, http.MethodPost, "/api/v1/feed/retry", "")
	if code != http.StatusConflict || errorCode(resp) != ErrCodeNotInError {
		t.Errorf("retry outside error = %d %q, want 409 %s", code, errorCode(resp), ErrCodeNotInError)
	}
}

func TestFeedLookahead_Validation(t *testing.T) {
	env := newTestEnv(t, envOptions{docs: 3, staticUser: "u1"})

	tests := []struct {
		query    string
		wantCode string
	}{
		{query: "n=0", wantCode: ErrCodeValidation},
		{query: "n=11", wantCode: ErrCodeValidation},
		{query: "n=abc", wantCode: ErrCodeBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			code, resp := env.do(t, http.MethodGet, "/api/v1/feed/lookahead?"+tt.query, "")
			if code != http.StatusBadRequest || errorCode(resp) != tt.wantCode {
				t.Errorf("status = %d code = %q, want 400 %s", code, errorCode(resp), tt.wantCode)
			}
		})
	}
}

func TestFeed_EmptyCatalog(t *testing.T) {
	env := newTestEnv(t, envOptions{docs: 0, staticUser: "u1"})

	waitFor(t, "empty feed", func() bool {
		code, resp := env.do(t, http.MethodGet, "/api/v1/feed/current", "")
		return code == http.StatusConflict && errorCode(resp) == ErrCodeEmptyFeed
	})
}

func TestFeed_UpstreamFailureReported(t *testing.T) {
	env := newTestEnv(t, envOptions{docs: 3, staticUser: "u1"})
	env.meta.SetError(models.NewUpstreamError("unavailable", nil))

	waitFor(t, "upstream error", func() bool {
		code, resp := env.do(t, http.MethodGet, "/api/v1/feed/current", "")
		return code == http.StatusBadGateway && errorCode(resp) == ErrCodeUpstream
	})
}

func TestLike(t *testing.T) {
	env := newTestEnv(t, envOptions{docs: 3, staticUser: "u1"})
	item := env.waitReady(t)

	tests := []struct {
		name       string
		body       string
		wantStatus int
		wantCode   string
	}{
		{name: "missing id", body: `{"video_id":""}`, wantStatus: http.StatusBadRequest, wantCode: ErrCodeValidation},
		{name: "bad characters", body: `{"video_id":"a b"}`, wantStatus: http.StatusBadRequest, wantCode: ErrCodeValidation},
		{name: "unknown field", body: `{"video":"v1"}`, wantStatus: http.StatusBadRequest, wantCode: ErrCodeBadRequest},
		{name: "malformed", body: `{`, wantStatus: http.StatusBadRequest, wantCode: ErrCodeBadRequest},
		{name: "valid", body: `{"video_id":"` + item.Candidate.ID + `"}`, wantStatus: http.StatusOK},
		{name: "repeat is accepted", body: `{"video_id":"` + item.Candidate.ID + `"}`, wantStatus: http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, resp := env.do(t, http.MethodPost, "/api/v1/engagement/like", tt.body)
			if code != tt.wantStatus {
				t.Fatalf("status = %d, want %d (%+v)", code, tt.wantStatus, resp.Error)
			}
			if errorCode(resp) != tt.wantCode {
				t.Errorf("code = %q, want %q", errorCode(resp), tt.wantCode)
			}
		})
	}

	s, ok := env.registry.Lookup("u1")
	if !ok {
		t.Fatal("session missing")
	}
	if !s.Profile().Liked(item.Candidate.ID) {
		t.Error("profile does not record the like")
	}
}

func TestUpdateProfile(t *testing.T) {
	env := newTestEnv(t, envOptions{docs: 3, staticUser: "u1"})

	code, resp := env.do(t, http.MethodPatch, "/api/v1/profile", `{"preferred_time_of_day":"brunch"}`)
	if code != http.StatusBadRequest || errorCode(resp) != ErrCodeValidation {
		t.Fatalf("invalid patch = %d %q, want 400 %s", code, errorCode(resp), ErrCodeValidation)
	}

	code, resp = env.do(t, http.MethodPatch, "/api/v1/profile", `{"preferred_genres":["jazz","soul"],"preferred_time_of_day":"night"}`)
	if code != http.StatusOK {
		t.Fatalf("status = %d (%+v)", code, resp.Error)
	}
	var profile models.UserProfile
	if err := json.Unmarshal(resp.Data, &profile); err != nil {
		t.Fatal(err)
	}
	if len(profile.PreferredGenres) != 2 || profile.PreferredTimeOfDay != models.TimeOfDay("night") {
		t.Errorf("profile = %+v", profile)
	}
}

func TestPlayback(t *testing.T) {
	env := newTestEnv(t, envOptions{docs: 5, staticUser: "u1"})
	env.waitReady(t)

	code, resp := env.do(t, http.MethodPost, "/api/v1/playback/retry", "")
	if code != http.StatusConflict || errorCode(resp) != ErrCodeInvalidTransition {
		t.Errorf("retry without error = %d %q, want 409 %s", code, errorCode(resp), ErrCodeInvalidTransition)
	}

	waitFor(t, "pause once media is loaded", func() bool {
		code, _ := env.do(t, http.MethodPost, "/api/v1/playback/pause", "")
		return code == http.StatusOK
	})
	waitFor(t, "play", func() bool {
		code, _ := env.do(t, http.MethodPost, "/api/v1/playback/play", "")
		return code == http.StatusOK
	})

	code, resp = env.do(t, http.MethodPost, "/api/v1/playback/skip", "")
	if code != http.StatusOK {
		t.Fatalf("skip status = %d (%+v)", code, resp.Error)
	}
}

func TestRegistryClosed(t *testing.T) {
	env := newTestEnv(t, envOptions{docs: 3, staticUser: "u1"})
	if err := env.registry.DisposeAll(context.Background()); err != nil {
		t.Fatal(err)
	}

	code, resp := env.do(t, http.MethodGet, "/api/v1/feed/current", "")
	if code != http.StatusServiceUnavailable || errorCode(resp) != ErrCodeServiceUnavailable {
		t.Errorf("status = %d code = %q, want 503 %s", code, errorCode(resp), ErrCodeServiceUnavailable)
	}
}

func TestRateLimit(t *testing.T) {
	env := newTestEnv(t, envOptions{docs: 3, staticUser: "u1", rateLimit: 2})

	for i := 0; i < 2; i++ {
		if code, _ := env.do(t, http.MethodGet, "/api/v1/feed/state", ""); code != http.StatusOK {
			t.Fatalf("request %d status = %d, want 200", i, code)
		}
	}
	code, resp := env.do(t, http.MethodGet, "/api/v1/feed/state", "")
	if code != http.StatusTooManyRequests || errorCode(resp) != "TOO_MANY_REQUESTS" {
		t.Errorf("status = %d code = %q, want 429", code, errorCode(resp))
	}

	// Health checks are not rate limited.
	if code, _ := env.do(t, http.MethodGet, "/healthz", ""); code != http.StatusOK {
		t.Errorf("healthz status = %d, want 200", code)
	}
}

func TestNotFoundAndMethodNotAllowed(t *testing.T) {
	env := newTestEnv(t, envOptions{docs: 1, staticUser: "u1"})

	if code, resp := env.do(t, http.MethodGet, "/nope", ""); code != http.StatusNotFound || errorCode(resp) != "NOT_FOUND" {
		t.Errorf("unknown route = %d %q", code, errorCode(resp))
	}
	if code, resp := env.do(t, http.MethodDelete, "/api/v1/feed/current", ""); code != http.StatusMethodNotAllowed || errorCode(resp) != "METHOD_NOT_ALLOWED" {
		t.Errorf("wrong method = %d %q", code, errorCode(resp))
	}
}

func TestClassifyError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"not authenticated", models.ErrNotAuthenticated, http.StatusUnauthorized, ErrCodeAuthentication},
		{"offline", models.ErrNoConnectivity, http.StatusServiceUnavailable, ErrCodeNoConnectivity},
		{"upstream", models.NewUpstreamError("unavailable", nil), http.StatusBadGateway, ErrCodeUpstream},
		{"not ready caused by outage", fmt.Errorf("%w: %w", feed.ErrNotReady, models.ErrNoConnectivity), http.StatusServiceUnavailable, ErrCodeNoConnectivity},
		{"not ready", feed.ErrNotReady, http.StatusConflict, ErrCodeNotReady},
		{"awaiting page", feed.ErrAwaitingPage, http.StatusConflict, ErrCodeAwaitingPage},
		{"page unavailable after fatal upstream", fmt.Errorf("%w: %w", feed.ErrPageUnavailable, models.NewUpstreamError("unavailable", nil)), http.StatusBadGateway, ErrCodeUpstream},
		{"page unavailable", feed.ErrPageUnavailable, http.StatusServiceUnavailable, ErrCodePageUnavailable},
		{"empty", feed.ErrEmptyFeed, http.StatusConflict, ErrCodeEmptyFeed},
		{"disposed", feed.ErrDisposed, http.StatusGone, ErrCodeSessionDisposed},
		{"unknown", fmt.Errorf("boom"), http.StatusInternalServerError, ErrCodeInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, code, message := classifyError(tt.err)
			if status != tt.wantStatus || code != tt.wantCode {
				t.Errorf("classifyError() = %d %s, want %d %s", status, code, tt.wantStatus, tt.wantCode)
			}
			if message == "" || strings.Contains(message, "boom") {
				t.Errorf("message = %q", message)
			}
		})
	}
}

func TestSanitizeLogValue(t *testing.T) {
	if got := sanitizeLogValue("a\nb\tc"); got != `a\x0ab\x09c` {
		t.Errorf("sanitizeLogValue() = %q", got)
	}
}
