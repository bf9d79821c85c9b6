// Tunereel - Music Discovery Video Feed Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tunereel

// Package validation validates HTTP request payloads with go-playground/validator v10.
//
// A single validator instance is shared by all handlers. Field names in
// errors use the json tag, so messages refer to the names clients send:
//
//	var req validation.LikeRequest
//	if err := json.NewDecoder(r.Body).Decode(&req); err != nil { ... }
//	if verr := validation.ValidateStruct(&req); verr != nil {
//	    writeError(w, http.StatusBadRequest, verr.ToAPIError())
//	    return
//	}
//
// Custom tags:
//   - videoid: 1-128 characters from [A-Za-z0-9._:-]
package validation
