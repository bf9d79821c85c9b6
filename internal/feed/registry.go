// Tunereel - Music Discovery Video Feed Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tunereel

package feed

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/tomtom215/tunereel/internal/models"
)

// SessionFactory builds an uninitialized session for userID.
type SessionFactory func(userID string) (*Session, error)

// Registry keeps one session per user. Sessions are created on first use and
// disposed after being idle for longer than the idle timeout.
type Registry struct {
	factory     SessionFactory
	idleTimeout time.Duration
	logger      zerolog.Logger
	now         func() time.Time
	creating    singleflight.Group

	mu       sync.Mutex
	sessions map[string]*Session
	closed   bool
}

// ErrRegistryClosed is returned by Get after DisposeAll.
var ErrRegistryClosed = errors.New("feed: registry closed")

// NewRegistry creates a registry. A zero idleTimeout disables idle disposal.
func NewRegistry(factory SessionFactory, idleTimeout time.Duration, logger zerolog.Logger) *Registry {
	return &Registry{
		factory:     factory,
		idleTimeout: idleTimeout,
		logger:      logger.With().Str("component", "feed-registry").Logger(),
		now:         time.Now,
		sessions:    make(map[string]*Session),
	}
}

// Get returns the user's session, creating and initializing it if needed.
// Creation runs outside the registry lock; concurrent Gets for the same user
// share one creation.
func (r *Registry) Get(ctx context.Context, userID string) (*Session, error) {
	if userID == "" {
		return nil, models.ErrNotAuthenticated
	}
	if s, err := r.live(userID); s != nil || err != nil {
		return s, err
	}

	v, err, _ := r.creating.Do(userID, func() (interface{}, error) {
		if s, err := r.live(userID); s != nil || err != nil {
			return s, err
		}
		s, err := r.factory(userID)
		if err != nil {
			return nil, fmt.Errorf("create session for %s: %w", userID, err)
		}
		if err := s.Init(ctx); err != nil {
			_ = s.Dispose(ctx)
			return nil, fmt.Errorf("init session for %s: %w", userID, err)
		}

		r.mu.Lock()
		if r.closed {
			r.mu.Unlock()
			_ = s.Dispose(ctx)
			return nil, ErrRegistryClosed
		}
		r.sessions[userID] = s
		r.mu.Unlock()

		r.logger.Info().Str("user_id", userID).Str("session_id", s.ID()).Msg("Session created")
		return s, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Session), nil
}

// live returns the user's live session, or nil if there is none.
func (r *Registry) live(userID string) (*Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil, ErrRegistryClosed
	}
	if s, ok := r.sessions[userID]; ok && s.State() != StateDisposed {
		return s, nil
	}
	return nil, nil
}

// Lookup returns the user's live session without creating one.
func (r *Registry) Lookup(userID string) (*Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[userID]
	if !ok || s.State() == StateDisposed {
		return nil, false
	}
	return s, true
}

// Remove disposes and forgets the user's session.
func (r *Registry) Remove(ctx context.Context, userID string) error {
	r.mu.Lock()
	s, ok := r.sessions[userID]
	delete(r.sessions, userID)
	r.mu.Unlock()
	if !ok {
		return nil
	}
	return s.Dispose(ctx)
}

// Len returns the number of tracked sessions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// Sweep disposes sessions idle for longer than the idle timeout and returns
// how many were removed.
func (r *Registry) Sweep(ctx context.Context) int {
	if r.idleTimeout <= 0 {
		return 0
	}
	cutoff := r.now().Add(-r.idleTimeout)

	r.mu.Lock()
	var idle []*Session
	for id, s := range r.sessions {
		if s.State() == StateDisposed || s.LastUsed().Before(cutoff) {
			idle = append(idle, s)
			delete(r.sessions, id)
		}
	}
	r.mu.Unlock()

	for _, s := range idle {
		if err := s.Dispose(ctx); err != nil {
			r.logger.Warn().Err(err).Str("session_id", s.ID()).Msg("Failed to dispose idle session")
		}
	}
	if len(idle) > 0 {
		r.logger.Info().Int("count", len(idle)).Msg("Disposed idle sessions")
	}
	return len(idle)
}

// DisposeAll disposes every session and rejects further Gets.
func (r *Registry) DisposeAll(ctx context.Context) error {
	r.mu.Lock()
	r.closed = true
	all := make([]*Session, 0, len(r.sessions))
	for id, s := range r.sessions {
		all = append(all, s)
		delete(r.sessions, id)
	}
	r.mu.Unlock()

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(8)
	for _, s := range all {
		g.Go(func() error {
			if err := s.Dispose(gctx); err != nil {
				return fmt.Errorf("dispose session %s: %w", s.ID(), err)
			}
			return nil
		})
	}
	return g.Wait()
}

// Janitor periodically sweeps idle sessions. It implements suture.Service.
type Janitor struct {
	registry *Registry
	interval time.Duration
}

// NewJanitor creates a janitor sweeping every interval.
func NewJanitor(registry *Registry, interval time.Duration) *Janitor {
	if interval <= 0 {
		interval = time.Minute
	}
	return &Janitor{registry: registry, interval: interval}
}

// Serve sweeps until ctx is canceled, then disposes every session.
func (j *Janitor) Serve(ctx context.Context) error {
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := j.registry.DisposeAll(shutdownCtx); err != nil {
				j.registry.logger.Warn().Err(err).Msg("Failed to dispose sessions on shutdown")
			}
			return ctx.Err()
		case <-ticker.C:
			j.registry.Sweep(ctx)
		}
	}
}

// String implements fmt.Stringer for suture logging.
func (j *Janitor) String() string {
	return "feed-janitor"
}
