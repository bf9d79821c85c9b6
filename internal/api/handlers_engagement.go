// Tunereel - Music Discovery Video Feed Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tunereel

package api

import (
	"net/http"

	"github.com/tomtom215/tunereel/internal/models"
	"github.com/tomtom215/tunereel/internal/validation"
)

// Like records a like for a video. Repeated likes are accepted and only
// counted once.
//
// POST /api/v1/engagement/like  {"video_id": "v1"}
func (h *Handler) Like(w http.ResponseWriter, r *http.Request) {
	var req validation.LikeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeBadRequest(w, err.Error())
		return
	}
	if verr := validation.ValidateStruct(&req); verr != nil {
		writeValidationError(w, verr)
		return
	}

	s, ok := h.session(w, r)
	if !ok {
		return
	}
	if err := s.Like(r.Context(), req.VideoID); err != nil {
		writeError(w, r, err)
		return
	}
	respondSuccess(w, map[string]interface{}{"video_id": req.VideoID, "liked": true})
}

// UpdateProfile applies a preference update. The new preferences affect
// pages fetched afterwards.
//
// PATCH /api/v1/profile
func (h *Handler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	var patch models.ProfilePatch
	if err := decodeJSON(w, r, &patch); err != nil {
		writeBadRequest(w, err.Error())
		return
	}
	if verr := validation.ValidateProfilePatch(&patch); verr != nil {
		writeValidationError(w, verr)
		return
	}

	s, ok := h.session(w, r)
	if !ok {
		return
	}
	profile, err := s.UpdateProfile(r.Context(), patch)
	if err != nil {
		writeError(w, r, err)
		return
	}
	respondSuccess(w, profile)
}
