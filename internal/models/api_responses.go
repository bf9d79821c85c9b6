// Tunereel - Music Discovery Video Feed Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tunereel

package models

import (
	"time"
)

// APIResponse is the envelope used by every HTTP endpoint.
//
// Status field values:
//   - "success": Request completed successfully, see Data field
//   - "error": Request failed, see Error field for details
//
// Example error response:
//
//	{
//	  "status": "error",
//	  "error": {"code": "AWAITING_PAGE", "message": "next page is still loading"},
//	  "metadata": {"timestamp": "2026-03-02T12:00:00Z"}
//	}
type APIResponse struct {
	Status   string      `json:"status"`
	Data     interface{} `json:"data"`
	Metadata Metadata    `json:"metadata"`
	Error    *APIError   `json:"error,omitempty"`
}

// Metadata contains response metadata for observability.
//
// Fields:
//   - Timestamp: Server time when the response was generated
//   - Epoch: Window epoch the response was read from (feed endpoints only)
//   - State: Feed session state at response time (feed endpoints only)
type Metadata struct {
	Timestamp time.Time `json:"timestamp"`
	Epoch     uint64    `json:"epoch,omitempty"`
	State     string    `json:"state,omitempty"`
}

// APIError carries machine-readable error details.
//
// Common error codes:
//   - VALIDATION_ERROR: Invalid input parameters
//   - AUTHENTICATION_ERROR: Missing or invalid bearer token
//   - NO_CONNECTIVITY: The engine is offline
//   - UPSTREAM_ERROR: The metadata store failed
//   - AWAITING_PAGE: The window is exhausted while the next page loads
//   - NOT_READY: The session has not loaded its first page
type APIError struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// FeedCursor is the decoded form of an opaque page cursor. Pages are ordered
// by upload time descending with the id as tie-breaker, so the cursor records
// the last item of the previous page.
type FeedCursor struct {
	UploadedAt time.Time `json:"uploaded_at"`
	ID         string    `json:"id"`
}
