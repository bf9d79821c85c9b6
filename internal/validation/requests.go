// Tunereel - Music Discovery Video Feed Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tunereel

package validation

import "github.com/tomtom215/tunereel/internal/models"

// LikeRequest is the body of POST /api/v1/engagement/like.
type LikeRequest struct {
	VideoID string `json:"video_id" validate:"required,videoid"`
}

// LookaheadRequest carries the n query parameter of GET /api/v1/feed/lookahead.
type LookaheadRequest struct {
	N int `json:"n" validate:"min=1,max=10"`
}

// ValidateProfilePatch validates a preference update.
func ValidateProfilePatch(p *models.ProfilePatch) *RequestValidationError {
	return ValidateStruct(p)
}
