// Tunereel - Music Discovery Video Feed Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tunereel

package api

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/tunereel/internal/feed"
	"github.com/tomtom215/tunereel/internal/logging"
	"github.com/tomtom215/tunereel/internal/models"
	"github.com/tomtom215/tunereel/internal/validation"
)

// maxBodyBytes bounds JSON request bodies.
const maxBodyBytes = 64 << 10

// sanitizeLogValue escapes control characters so client input cannot forge
// log lines.
func sanitizeLogValue(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r < 0x20 || r == 0x7F {
			fmt.Fprintf(&b, "\\x%02x", r)
		} else {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// respondJSON sends a JSON response with proper headers
func respondJSON(w http.ResponseWriter, status int, response *models.APIResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")

	data, err := json.Marshal(response)
	if err != nil {
		logging.Error().Err(err).Msg("Failed to marshal JSON response")
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.WriteHeader(status)
	if _, err := w.Write(data); err != nil {
		logging.Error().Err(err).Msg("Failed to write JSON response")
	}
}

// respondSuccess sends data with status 200.
func respondSuccess(w http.ResponseWriter, data interface{}) {
	respondJSON(w, http.StatusOK, &models.APIResponse{
		Status:   "success",
		Data:     data,
		Metadata: models.Metadata{Timestamp: time.Now()},
	})
}

// respondFeed sends data with the session's epoch and state attached.
func respondFeed(w http.ResponseWriter, s *feed.Session, data interface{}) {
	snap := s.Snapshot()
	respondJSON(w, http.StatusOK, &models.APIResponse{
		Status: "success",
		Data:   data,
		Metadata: models.Metadata{
			Timestamp: time.Now(),
			Epoch:     snap.Epoch,
			State:     string(snap.State),
		},
	})
}

// respondError sends an error response
func respondError(w http.ResponseWriter, status int, apiErr *models.APIError) {
	respondJSON(w, status, &models.APIResponse{
		Status:   "error",
		Metadata: models.Metadata{Timestamp: time.Now()},
		Error:    apiErr,
	})
}

// writeError classifies err and writes the matching error response.
// Server-side failures are logged; client-side ones only at debug.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, code, message := classifyError(err)

	log := logging.Ctx(r.Context())
	if status >= http.StatusInternalServerError {
		log.Error().Str("code", code).Str("error", sanitizeLogValue(err.Error())).Msg("API error")
	} else {
		log.Debug().Str("code", code).Str("error", sanitizeLogValue(err.Error())).Msg("API request rejected")
	}

	respondError(w, status, &models.APIError{Code: code, Message: message})
}

// writeValidationError writes a 400 for a failed request validation.
func writeValidationError(w http.ResponseWriter, verr *validation.RequestValidationError) {
	respondError(w, http.StatusBadRequest, verr.ToAPIError())
}

// writeBadRequest writes a 400 with a plain message.
func writeBadRequest(w http.ResponseWriter, message string) {
	respondError(w, http.StatusBadRequest, &models.APIError{Code: ErrCodeBadRequest, Message: message})
}

// decodeJSON reads a bounded JSON body into dst, rejecting unknown fields.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}
