// Tunereel - Music Discovery Video Feed Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tunereel

package fetcher

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/tunereel/internal/breaker"
	"github.com/tomtom215/tunereel/internal/metrics"
	"github.com/tomtom215/tunereel/internal/models"
)

const (
	// DefaultPageSize is used when the caller passes zero.
	DefaultPageSize = 20

	// MaxPageSize caps a single page.
	MaxPageSize = 100
)

// MetadataStore is the paged document store candidates are read from.
type MetadataStore interface {
	Query(ctx context.Context, filter models.Filter, order models.Order, pageSize int, cursor string) (models.QueryResult, error)
}

// AuthContext reports the signed-in user, or "" when nobody is signed in.
type AuthContext interface {
	CurrentUserID() string
}

// ConnectivityProbe reports whether the network is usable.
type ConnectivityProbe interface {
	IsConnected() bool
}

// Page is one validated page of candidates in store order.
type Page struct {
	Candidates []models.Candidate
	NextCursor string
	HasMore    bool
	Dropped    int
}

// Fetcher retrieves candidate pages. It holds no retry policy and has no side
// effects beyond the read, so callers may retry freely.
type Fetcher struct {
	store   MetadataStore
	auth    AuthContext
	probe   ConnectivityProbe
	breaker *breaker.Breaker
	filter  models.Filter
	logger  zerolog.Logger
}

// Option customizes a Fetcher.
type Option func(*Fetcher)

// WithFilter restricts every query to filter.
func WithFilter(filter models.Filter) Option {
	return func(f *Fetcher) { f.filter = filter }
}

// WithBreaker replaces the default circuit breaker.
func WithBreaker(b *breaker.Breaker) Option {
	return func(f *Fetcher) { f.breaker = b }
}

// New creates a Fetcher. probe may be nil, in which case the network is
// assumed to be up.
func New(store MetadataStore, auth AuthContext, probe ConnectivityProbe, logger zerolog.Logger, opts ...Option) *Fetcher {
	f := &Fetcher{
		store:  store,
		auth:   auth,
		probe:  probe,
		logger: logger.With().Str("component", "fetcher").Logger(),
	}
	for _, opt := range opts {
		opt(f)
	}
	if f.breaker == nil {
		f.breaker = breaker.New("metadata-store", breaker.DefaultConfig(), nil)
	}
	return f
}

// ClampPageSize maps a requested page size into [1, MaxPageSize], with zero
// or negative meaning DefaultPageSize.
func ClampPageSize(n int) int {
	switch {
	case n <= 0:
		return DefaultPageSize
	case n > MaxPageSize:
		return MaxPageSize
	default:
		return n
	}
}

// Fetch reads one page after cursor ("" for the first page).
//
// Errors match models.ErrNotAuthenticated, models.ErrNoConnectivity or
// models.ErrUpstreamUnavailable (as *models.UpstreamError).
func (f *Fetcher) Fetch(ctx context.Context, pageSize int, cursor string) (*Page, error) {
	start := time.Now()
	page, err := f.fetch(ctx, ClampPageSize(pageSize), cursor)
	metrics.RecordFetch(resultLabel(err), time.Since(start))
	return page, err
}

func (f *Fetcher) fetch(ctx context.Context, pageSize int, cursor string) (*Page, error) {
	if f.auth == nil || f.auth.CurrentUserID() == "" {
		return nil, models.ErrNotAuthenticated
	}
	if f.probe != nil && !f.probe.IsConnected() {
		return nil, models.ErrNoConnectivity
	}

	result, err := breaker.Execute(f.breaker, func() (models.QueryResult, error) {
		return f.store.Query(ctx, f.filter, models.OrderNewest, pageSize, cursor)
	})
	if err != nil {
		return nil, classify(ctx, err)
	}

	page := &Page{
		Candidates: make([]models.Candidate, 0, len(result.Docs)),
		NextCursor: result.NextCursor,
		HasMore:    result.HasMore,
	}
	for _, doc := range result.Docs {
		if !doc.Valid() {
			page.Dropped++
			f.logger.Warn().Str("id", doc.ID).Str("storage_ref", doc.StorageRef).Msg("Dropping invalid candidate document")
			continue
		}
		page.Candidates = append(page.Candidates, doc)
	}
	if page.Dropped > 0 {
		metrics.FetchDroppedDocuments.Add(float64(page.Dropped))
	}
	if !page.HasMore {
		page.NextCursor = ""
	}

	f.logger.Debug().Int("count", len(page.Candidates)).Bool("has_more", page.HasMore).Msg("Fetched page")
	return page, nil
}

// classify maps store errors onto the feed error taxonomy.
func classify(ctx context.Context, err error) error {
	switch {
	case errors.Is(err, breaker.ErrOpen):
		return models.NewUpstreamError("circuit_open", err)
	case errors.Is(err, models.ErrNotAuthenticated), errors.Is(err, models.ErrNoConnectivity):
		return err
	case errors.Is(err, models.ErrUpstreamUnavailable):
		return err
	case ctx.Err() != nil:
		return models.NewUpstreamError("canceled", ctx.Err())
	default:
		return models.NewUpstreamError("query_failed", fmt.Errorf("query metadata: %w", err))
	}
}

func resultLabel(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, models.ErrNotAuthenticated):
		return "not_authenticated"
	case errors.Is(err, models.ErrNoConnectivity):
		return "no_connectivity"
	default:
		return "upstream"
	}
}
