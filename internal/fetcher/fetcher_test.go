// Tunereel - Music Discovery Video Feed Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tunereel

package fetcher

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/tomtom215/tunereel/internal/breaker"
	"github.com/tomtom215/tunereel/internal/logging"
	"github.com/tomtom215/tunereel/internal/models"
)

type fakeStore struct {
	mu       sync.Mutex
	result   models.QueryResult
	err      error
	calls    atomic.Int32
	lastSize int
}

func (s *fakeStore) Query(_ context.Context, _ models.Filter, _ models.Order, pageSize int, _ string) (models.QueryResult, error) {
	s.calls.Add(1)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastSize = pageSize
	return s.result, s.err
}

type staticAuth string

func (a staticAuth) CurrentUserID() string { return string(a) }

type staticProbe bool

func (p staticProbe) IsConnected() bool { return bool(p) }

func doc(id, ref string) models.Candidate {
	return models.Candidate{ID: id, StorageRef: ref, UploadedAt: time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)}
}

func TestClampPageSize(t *testing.T) {
	tests := []struct{ in, want int }{
		{0, DefaultPageSize},
		{-5, DefaultPageSize},
		{1, 1},
		{50, 50},
		{100, 100},
		{1000, MaxPageSize},
	}
	for _, tt := range tests {
		if got := ClampPageSize(tt.in); got != tt.want {
			t.Errorf("ClampPageSize(%d) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestFetchDropsInvalidDocuments(t *testing.T) {
	store := &fakeStore{result: models.QueryResult{
		Docs:       []models.Candidate{doc("1", "v/1.mp4"), doc("", "v/x.mp4"), doc("2", ""), doc("3", "v/3.mp4")},
		NextCursor: "c1",
		HasMore:    true,
	}}
	f := New(store, staticAuth("u1"), staticProbe(true), logging.Nop())

	page, err := f.Fetch(context.Background(), 0, "")
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if len(page.Candidates) != 2 || page.Dropped != 2 {
		t.Fatalf("got %d candidates, %d dropped; want 2, 2", len(page.Candidates), page.Dropped)
	}
	if page.NextCursor != "c1" || !page.HasMore {
		t.Errorf("cursor = %q hasMore = %v", page.NextCursor, page.HasMore)
	}
	if store.lastSize != DefaultPageSize {
		t.Errorf("store saw page size %d, want %d", store.lastSize, DefaultPageSize)
	}
}

func TestFetchErrors(t *testing.T) {
	tests := []struct {
		name  string
		auth  AuthContext
		probe ConnectivityProbe
		err   error
		want  error
		calls int32
	}{
		{"no user", staticAuth(""), staticProbe(true), nil, models.ErrNotAuthenticated, 0},
		{"offline", staticAuth("u1"), staticProbe(false), nil, models.ErrNoConnectivity, 0},
		{"store failure", staticAuth("u1"), staticProbe(true), errors.New("io"), models.ErrUpstreamUnavailable, 1},
		{"store auth failure", staticAuth("u1"), nil, models.ErrNotAuthenticated, models.ErrNotAuthenticated, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := &fakeStore{err: tt.err}
			f := New(store, tt.auth, tt.probe, logging.Nop(),
				WithBreaker(breaker.New("test-"+tt.name, breaker.DefaultConfig(), nil)))
			_, err := f.Fetch(context.Background(), 10, "")
			if !errors.Is(err, tt.want) {
				t.Errorf("err = %v, want %v", err, tt.want)
			}
			if store.calls.Load() != tt.calls {
				t.Errorf("store calls = %d, want %d", store.calls.Load(), tt.calls)
			}
		})
	}
}

func TestFetchOpenBreakerIsUpstream(t *testing.T) {
	cfg := breaker.Config{MaxRequests: 1, Interval: time.Minute, Timeout: time.Hour, MinRequests: 1, FailureRatio: 0.5}
	store := &fakeStore{err: errors.New("down")}
	f := New(store, staticAuth("u1"), staticProbe(true), logging.Nop(),
		WithBreaker(breaker.New("test-open-fetch", cfg, nil)))

	_, _ = f.Fetch(context.Background(), 10, "")
	_, err := f.Fetch(context.Background(), 10, "")

	var upstream *models.UpstreamError
	if !errors.As(err, &upstream) || upstream.Code != "circuit_open" {
		t.Fatalf("err = %v, want circuit_open upstream error", err)
	}
	if store.calls.Load() != 1 {
		t.Errorf("store calls = %d, want 1", store.calls.Load())
	}
}

func TestFetchLastPageClearsCursor(t *testing.T) {
	store := &fakeStore{result: models.QueryResult{Docs: []models.Candidate{doc("1", "v/1.mp4")}, NextCursor: "stale"}}
	f := New(store, staticAuth("u1"), nil, logging.Nop())

	page, err := f.Fetch(context.Background(), 5, "")
	if err != nil {
		t.Fatal(err)
	}
	if page.HasMore || page.NextCursor != "" {
		t.Errorf("last page: hasMore=%v cursor=%q", page.HasMore, page.NextCursor)
	}
}
