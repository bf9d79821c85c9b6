// Tunereel - Music Discovery Video Feed Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tunereel

package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/tomtom215/tunereel/internal/feed"
	"github.com/tomtom215/tunereel/internal/models"
	"github.com/tomtom215/tunereel/internal/validation"
)

// defaultLookahead is used when n is absent.
const defaultLookahead = 2

// FeedCurrent returns the focused item.
//
// GET /api/v1/feed/current
func (h *Handler) FeedCurrent(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	item, err := s.GetCurrentCandidate()
	if err != nil {
		writeError(w, r, err)
		return
	}
	respondFeed(w, s, item)
}

// FeedLookahead returns up to n items after the focused one.
//
// GET /api/v1/feed/lookahead?n=2
func (h *Handler) FeedLookahead(w http.ResponseWriter, r *http.Request) {
	req := validation.LookaheadRequest{N: defaultLookahead}
	if raw := r.URL.Query().Get("n"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			writeBadRequest(w, "n must be an integer")
			return
		}
		req.N = n
	}
	if verr := validation.ValidateStruct(&req); verr != nil {
		writeValidationError(w, verr)
		return
	}

	s, ok := h.session(w, r)
	if !ok {
		return
	}
	items, err := s.GetLookahead(req.N)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if items == nil {
		items = []feed.FeedItem{}
	}
	respondFeed(w, s, items)
}

// FeedAdvance moves focus to the next item and returns it. While the next
// page is loading it answers 409 AWAITING_PAGE and focus stays put.
//
// POST /api/v1/feed/advance
func (h *Handler) FeedAdvance(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	item, err := s.Advance()
	if errors.Is(err, feed.ErrAwaitingPage) {
		respondError(w, http.StatusConflict, &models.APIError{
			Code:    ErrCodeAwaitingPage,
			Message: "next page is still loading",
			Details: map[string]interface{}{"current_key": item.Key},
		})
		return
	}
	if err != nil {
		writeError(w, r, err)
		return
	}
	respondFeed(w, s, item)
}

// FeedRetry retries a failed page load immediately.
//
// POST /api/v1/feed/retry
func (h *Handler) FeedRetry(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	if err := s.Retry(); err != nil {
		writeError(w, r, err)
		return
	}
	respondFeed(w, s, map[string]string{"state": string(s.State())})
}

// FeedState returns a snapshot of the session.
//
// GET /api/v1/feed/state
func (h *Handler) FeedState(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	respondFeed(w, s, s.Snapshot())
}
