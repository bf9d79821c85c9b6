// Tunereel - Music Discovery Video Feed Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tunereel

package api

import (
	"net/http"

	"github.com/tomtom215/tunereel/internal/playback"
)

// playbackAction runs op on the caller's playback controller and returns
// the resulting playback snapshot.
func (h *Handler) playbackAction(op func(*playback.Controller) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, ok := h.session(w, r)
		if !ok {
			return
		}
		c := s.Playback()
		if err := op(c); err != nil {
			writeError(w, r, err)
			return
		}
		respondFeed(w, s, c.Snapshot())
	}
}

// PlaybackPlay resumes the focused item.
//
// POST /api/v1/playback/play
func (h *Handler) PlaybackPlay(w http.ResponseWriter, r *http.Request) {
	h.playbackAction((*playback.Controller).Play)(w, r)
}

// PlaybackPause pauses the focused item.
//
// POST /api/v1/playback/pause
func (h *Handler) PlaybackPause(w http.ResponseWriter, r *http.Request) {
	h.playbackAction((*playback.Controller).Pause)(w, r)
}

// PlaybackRetry reloads the focused item after a playback error.
//
// POST /api/v1/playback/retry
func (h *Handler) PlaybackRetry(w http.ResponseWriter, r *http.Request) {
	h.playbackAction((*playback.Controller).Retry)(w, r)
}

// PlaybackSkip abandons the focused item and advances the feed.
//
// POST /api/v1/playback/skip
func (h *Handler) PlaybackSkip(w http.ResponseWriter, r *http.Request) {
	h.playbackAction(func(c *playback.Controller) error {
		c.Skip()
		return nil
	})(w, r)
}
