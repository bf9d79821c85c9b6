// Tunereel - Music Discovery Video Feed Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tunereel

package store

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/tomtom215/tunereel/internal/models"
)

// MemoryMetadata is an in-memory MetadataStore with the same paging
// semantics as the badger store. Failures can be injected for tests.
type MemoryMetadata struct {
	mu    sync.RWMutex
	docs  []models.Candidate
	fail  error
	calls int
}

// NewMemoryMetadata returns a store holding docs.
func NewMemoryMetadata(docs ...models.Candidate) *MemoryMetadata {
	m := &MemoryMetadata{}
	m.Put(docs...)
	return m
}

// Put inserts or replaces documents. Documents without an id are kept as-is
// so callers can exercise validation downstream.
func (m *MemoryMetadata) Put(docs ...models.Candidate) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, doc := range docs {
		replaced := false
		if doc.ID != "" {
			for i := range m.docs {
				if m.docs[i].ID == doc.ID {
					m.docs[i] = doc.Clone()
					replaced = true
					break
				}
			}
		}
		if !replaced {
			m.docs = append(m.docs, doc.Clone())
		}
	}
	sortNewest(m.docs)
}

// SetError makes every subsequent Query fail with err (nil clears it).
func (m *MemoryMetadata) SetError(err error) {
	m.mu.Lock()
	m.fail = err
	m.mu.Unlock()
}

// Calls returns the number of Query calls made.
func (m *MemoryMetadata) Calls() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.calls
}

// Query implements fetcher.MetadataStore.
func (m *MemoryMetadata) Query(ctx context.Context, filter models.Filter, order models.Order, pageSize int, cursor string) (models.QueryResult, error) {
	m.mu.Lock()
	m.calls++
	fail := m.fail
	m.mu.Unlock()

	var result models.QueryResult
	if err := ctx.Err(); err != nil {
		return result, err
	}
	if fail != nil {
		return result, fail
	}
	if order != "" && order != models.OrderNewest {
		return result, fmt.Errorf("unsupported order %q", order)
	}
	if pageSize <= 0 {
		return result, fmt.Errorf("invalid page size %d", pageSize)
	}
	cur, err := decodeCursor(cursor)
	if err != nil {
		return result, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, doc := range m.docs {
		if cur != nil && !afterCursor(doc, *cur) {
			continue
		}
		if !filter.Matches(doc) {
			continue
		}
		if len(result.Docs) == pageSize {
			result.HasMore = true
			break
		}
		result.Docs = append(result.Docs, doc.Clone())
	}
	if result.HasMore {
		result.NextCursor = cursorOf(result.Docs[len(result.Docs)-1])
	}
	return result, nil
}

// IncrementEngagement implements the engagement sink.
func (m *MemoryMetadata) IncrementEngagement(ctx context.Context, videoID string, delta models.EngagementDelta) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.docs {
		if m.docs[i].ID == videoID {
			m.docs[i].Engagement.Add(delta)
			return nil
		}
	}
	return fmt.Errorf("increment engagement for %s: %w", videoID, ErrNotFound)
}

// Get returns a stored document by id.
func (m *MemoryMetadata) Get(videoID string) (models.Candidate, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, doc := range m.docs {
		if doc.ID == videoID {
			return doc.Clone(), true
		}
	}
	return models.Candidate{}, false
}

// MemoryProfiles is an in-memory ProfileStore.
type MemoryProfiles struct {
	mu       sync.Mutex
	profiles map[string]*models.UserProfile
}

// NewMemoryProfiles returns an empty profile store.
func NewMemoryProfiles() *MemoryProfiles {
	return &MemoryProfiles{profiles: make(map[string]*models.UserProfile)}
}

// Set stores p under its UserID.
func (m *MemoryProfiles) Set(p *models.UserProfile) {
	m.mu.Lock()
	m.profiles[p.UserID] = p.Clone()
	m.mu.Unlock()
}

// GetProfile implements ProfileStore.
func (m *MemoryProfiles) GetProfile(_ context.Context, userID string) (*models.UserProfile, error) {
	if userID == "" {
		return nil, models.ErrNotAuthenticated
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if p, ok := m.profiles[userID]; ok {
		return p.Clone(), nil
	}
	return &models.UserProfile{UserID: userID}, nil
}

// UpdateProfile implements ProfileStore.
func (m *MemoryProfiles) UpdateProfile(_ context.Context, userID string, patch models.ProfilePatch) (*models.UserProfile, error) {
	if userID == "" {
		return nil, models.ErrNotAuthenticated
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.profiles[userID]
	if !ok {
		p = &models.UserProfile{UserID: userID}
		m.profiles[userID] = p
	}
	patch.Apply(p)
	return p.Clone(), nil
}

// MemoryBlobs is an in-memory blob store. Paths resolve to BaseURL/path.
type MemoryBlobs struct {
	mu      sync.RWMutex
	baseURL string
	paths   map[string]struct{}
	errs    map[string]error
	all     bool
}

// NewMemoryBlobs creates a blob store containing paths.
func NewMemoryBlobs(baseURL string, paths ...string) *MemoryBlobs {
	b := &MemoryBlobs{
		baseURL: strings.TrimRight(baseURL, "/"),
		paths:   make(map[string]struct{}),
		errs:    make(map[string]error),
	}
	b.Add(paths...)
	return b
}

// Add makes paths resolvable.
func (b *MemoryBlobs) Add(paths ...string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, p := range paths {
		b.paths[strings.TrimLeft(p, "/")] = struct{}{}
	}
}

// AcceptAll makes every path resolvable. serve uses it when no blob
// server is configured.
func (b *MemoryBlobs) AcceptAll() {
	b.mu.Lock()
	b.all = true
	b.mu.Unlock()
}

// FailPath makes lookups of path return err.
func (b *MemoryBlobs) FailPath(path string, err error) {
	b.mu.Lock()
	b.errs[strings.TrimLeft(path, "/")] = err
	b.mu.Unlock()
}

// ResolveURL implements the blob store.
func (b *MemoryBlobs) ResolveURL(ctx context.Context, path string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	path = strings.TrimLeft(path, "/")

	b.mu.RLock()
	defer b.mu.RUnlock()
	if err, ok := b.errs[path]; ok {
		return "", err
	}
	if _, ok := b.paths[path]; !ok && !b.all {
		return "", fmt.Errorf("resolve %s: %w", path, ErrNotFound)
	}
	return b.baseURL + "/" + path, nil
}
