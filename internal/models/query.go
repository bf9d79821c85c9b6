// Tunereel - Music Discovery Video Feed Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tunereel

package models

import (
	"encoding/base64"
	"fmt"

	"github.com/goccy/go-json"
)

// Order selects the ordering of a metadata query.
type Order string

const (
	// OrderNewest orders by upload time descending, id ascending on ties.
	OrderNewest Order = "newest"
)

// Filter restricts a metadata query. Zero values match everything.
type Filter struct {
	// Genres keeps candidates whose genre is one of these.
	Genres []string `json:"genres,omitempty"`

	// Language keeps candidates in this language.
	Language string `json:"language,omitempty"`
}

// Matches reports whether c passes the filter.
func (f Filter) Matches(c Candidate) bool {
	if f.Language != "" && c.Language != f.Language {
		return false
	}
	if len(f.Genres) == 0 {
		return true
	}
	for _, g := range f.Genres {
		if g == c.Genre {
			return true
		}
	}
	return false
}

// QueryResult is one page of raw documents from the metadata store.
// Documents are not validated; NextCursor is empty when HasMore is false.
type QueryResult struct {
	Docs       []Candidate `json:"docs"`
	NextCursor string      `json:"next_cursor,omitempty"`
	HasMore    bool        `json:"has_more"`
}

// EncodeCursor encodes a FeedCursor to an opaque base64 string.
func EncodeCursor(cursor FeedCursor) string {
	data, err := json.Marshal(cursor)
	if err != nil {
		return ""
	}
	return base64.URLEncoding.EncodeToString(data)
}

// DecodeCursor decodes a cursor produced by EncodeCursor.
func DecodeCursor(encoded string) (FeedCursor, error) {
	var cursor FeedCursor
	data, err := base64.URLEncoding.DecodeString(encoded)
	if err != nil {
		return cursor, fmt.Errorf("invalid base64 encoding: %w", err)
	}
	if err := json.Unmarshal(data, &cursor); err != nil {
		return cursor, fmt.Errorf("invalid cursor JSON: %w", err)
	}
	return cursor, nil
}
