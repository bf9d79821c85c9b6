// Tunereel - Music Discovery Video Feed Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tunereel

package store

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/tomtom215/tunereel/internal/models"
)

// ErrNotFound is returned for missing blobs and videos. It matches
// models.ErrResourceNotFound under errors.Is.
var ErrNotFound = fmt.Errorf("store: %w", models.ErrResourceNotFound)

// ErrInvalidCursor is returned when a page cursor cannot be decoded.
var ErrInvalidCursor = errors.New("store: invalid cursor")

// Options configures the badger database.
type Options struct {
	// Path is the database directory. Ignored when InMemory is set.
	Path string

	// InMemory keeps all data in memory (tests, simulate).
	InMemory bool
}

// Open opens the badger database backing the metadata and profile stores.
func Open(opts Options) (*badger.DB, error) {
	var bopts badger.Options
	if opts.InMemory {
		bopts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if opts.Path == "" {
			return nil, errors.New("store: path is required unless in-memory")
		}
		bopts = badger.DefaultOptions(opts.Path)
	}
	bopts.Logger = nil

	db, err := badger.Open(bopts)
	if err != nil {
		return nil, fmt.Errorf("open badger: %w", err)
	}
	return db, nil
}

// ProfileStore reads and updates user profiles.
type ProfileStore interface {
	GetProfile(ctx context.Context, userID string) (*models.UserProfile, error)
	UpdateProfile(ctx context.Context, userID string, patch models.ProfilePatch) (*models.UserProfile, error)
}

// newestFirst orders candidates by upload time descending, then id ascending.
func newestFirst(a, b models.Candidate) bool {
	if !a.UploadedAt.Equal(b.UploadedAt) {
		return a.UploadedAt.After(b.UploadedAt)
	}
	return a.ID < b.ID
}

// afterCursor reports whether c sorts strictly after the cursor position.
func afterCursor(c models.Candidate, cur models.FeedCursor) bool {
	return newestFirst(models.Candidate{ID: cur.ID, UploadedAt: cur.UploadedAt}, c)
}

// uploadKey encodes the newest-first sort position as a byte-ordered key.
func uploadKey(t time.Time, id string) []byte {
	ms := t.UnixMilli()
	if ms < 0 {
		ms = 0
	}
	return []byte(fmt.Sprintf("%s%019d:%s", uploadIndexPrefix, math.MaxInt64-ms, id))
}

func sortNewest(docs []models.Candidate) {
	sort.SliceStable(docs, func(i, j int) bool { return newestFirst(docs[i], docs[j]) })
}

func decodeCursor(cursor string) (*models.FeedCursor, error) {
	if cursor == "" {
		return nil, nil
	}
	cur, err := models.DecodeCursor(cursor)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCursor, err)
	}
	return &cur, nil
}

func cursorOf(c models.Candidate) string {
	return models.EncodeCursor(models.FeedCursor{UploadedAt: c.UploadedAt, ID: c.ID})
}
