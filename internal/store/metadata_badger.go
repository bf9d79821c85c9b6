// Tunereel - Music Discovery Video Feed Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tunereel

package store

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"

	"github.com/tomtom215/tunereel/internal/models"
)

// Key prefixes for BadgerDB storage
const (
	videoKeyPrefix    = "video:"
	uploadIndexPrefix = "idx_upload:"
)

// maxConflictRetries bounds optimistic transaction retries.
const maxConflictRetries = 5

// MetadataStore is the badger-backed candidate store. Documents live under
// video:<id>; a newest-first index under idx_upload: drives paging.
type MetadataStore struct {
	db *badger.DB
}

// NewMetadataStore wraps an open badger database.
func NewMetadataStore(db *badger.DB) *MetadataStore {
	return &MetadataStore{db: db}
}

// Put inserts or replaces candidates.
func (s *MetadataStore) Put(ctx context.Context, docs ...models.Candidate) error {
	for i := range docs {
		if docs[i].ID == "" {
			return fmt.Errorf("put candidate %d: missing id", i)
		}
	}

	return s.db.Update(func(txn *badger.Txn) error {
		for _, doc := range docs {
			if err := ctx.Err(); err != nil {
				return err
			}
			key := []byte(videoKeyPrefix + doc.ID)

			existing, err := getCandidate(txn, doc.ID)
			switch {
			case err == nil:
				if err := txn.Delete(uploadKey(existing.UploadedAt, existing.ID)); err != nil {
					return fmt.Errorf("delete index: %w", err)
				}
			case !errors.Is(err, ErrNotFound):
				return err
			}

			data, err := json.Marshal(doc)
			if err != nil {
				return fmt.Errorf("marshal candidate: %w", err)
			}
			if err := txn.Set(key, data); err != nil {
				return fmt.Errorf("set candidate: %w", err)
			}
			if err := txn.Set(uploadKey(doc.UploadedAt, doc.ID), nil); err != nil {
				return fmt.Errorf("set index: %w", err)
			}
		}
		return nil
	})
}

// Get returns one candidate by id.
func (s *MetadataStore) Get(ctx context.Context, id string) (models.Candidate, error) {
	var doc models.Candidate
	err := s.db.View(func(txn *badger.Txn) error {
		var err error
		doc, err = getCandidate(txn, id)
		return err
	})
	return doc, err
}

// Query returns up to pageSize candidates after cursor in newest-first order.
func (s *MetadataStore) Query(ctx context.Context, filter models.Filter, order models.Order, pageSize int, cursor string) (models.QueryResult, error) {
	var result models.QueryResult
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

	err = s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := []byte(uploadIndexPrefix)
		start := prefix
		var after []byte
		if cur != nil {
			after = uploadKey(cur.UploadedAt, cur.ID)
			start = after
		}

		for it.Seek(start); it.ValidForPrefix(prefix); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			key := it.Item().KeyCopy(nil)
			if after != nil && bytes.Compare(key, after) <= 0 {
				continue
			}

			id := idFromIndexKey(key)
			doc, err := getCandidate(txn, id)
			if errors.Is(err, ErrNotFound) {
				continue
			}
			if err != nil {
				return err
			}
			if !filter.Matches(doc) {
				continue
			}
			if len(result.Docs) == pageSize {
				result.HasMore = true
				return nil
			}
			result.Docs = append(result.Docs, doc)
		}
		return nil
	})
	if err != nil {
		return models.QueryResult{}, fmt.Errorf("query candidates: %w", err)
	}

	if result.HasMore && len(result.Docs) > 0 {
		result.NextCursor = cursorOf(result.Docs[len(result.Docs)-1])
	}
	return result, nil
}

// IncrementEngagement applies delta to a video's counters.
func (s *MetadataStore) IncrementEngagement(ctx context.Context, videoID string, delta models.EngagementDelta) error {
	if delta.IsZero() {
		return nil
	}

	var err error
	for attempt := 0; attempt < maxConflictRetries; attempt++ {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		err = s.db.Update(func(txn *badger.Txn) error {
			doc, err := getCandidate(txn, videoID)
			if err != nil {
				return err
			}
			doc.Engagement.Add(delta)

			data, err := json.Marshal(doc)
			if err != nil {
				return fmt.Errorf("marshal candidate: %w", err)
			}
			return txn.Set([]byte(videoKeyPrefix+videoID), data)
		})
		if !errors.Is(err, badger.ErrConflict) {
			break
		}
	}
	if err != nil {
		return fmt.Errorf("increment engagement for %s: %w", videoID, err)
	}
	return nil
}

// Count returns the number of stored candidates.
func (s *MetadataStore) Count(ctx context.Context) (int, error) {
	count := 0
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := []byte(videoKeyPrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			count++
		}
		return nil
	})
	return count, err
}

func getCandidate(txn *badger.Txn, id string) (models.Candidate, error) {
	var doc models.Candidate
	item, err := txn.Get([]byte(videoKeyPrefix + id))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return doc, ErrNotFound
	}
	if err != nil {
		return doc, fmt.Errorf("get candidate: %w", err)
	}
	err = item.Value(func(val []byte) error {
		return json.Unmarshal(val, &doc)
	})
	if err != nil {
		return doc, fmt.Errorf("unmarshal candidate: %w", err)
	}
	return doc, nil
}

// idFromIndexKey extracts the id from idx_upload:<inverted-ms>:<id>.
func idFromIndexKey(key []byte) string {
	rest := key[len(uploadIndexPrefix):]
	if i := bytes.IndexByte(rest, ':'); i >= 0 {
		return string(rest[i+1:])
	}
	return ""
}
