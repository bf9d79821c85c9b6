// Tunereel - Music Discovery Video Feed Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tunereel

package api

import (
	"net/http"
	"time"

	"github.com/tomtom215/tunereel/internal/models"
)

// HealthStatus is the payload of /healthz.
type HealthStatus struct {
	Status         string  `json:"status"`
	Version        string  `json:"version"`
	Connected      bool    `json:"connected"`
	Sessions       int     `json:"sessions"`
	WebSocketConns int     `json:"websocket_clients"`
	Uptime         float64 `json:"uptime_seconds"`
}

// Health reports liveness and a summary of engine state. It always answers
// 200; an offline engine is "degraded", not down, because sessions keep
// serving held items.
//
// GET /healthz
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	connected := h.network == nil || h.network.IsConnected()

	status := HealthStatus{
		Status:    "healthy",
		Version:   h.version,
		Connected: connected,
		Uptime:    time.Since(h.startTime).Seconds(),
	}
	if !connected {
		status.Status = "degraded"
	}
	if h.sessions != nil {
		status.Sessions = h.sessions.Len()
	}
	if h.hub != nil {
		status.WebSocketConns = h.hub.ClientCount()
	}

	respondJSON(w, http.StatusOK, &models.APIResponse{
		Status:   "success",
		Data:     status,
		Metadata: models.Metadata{Timestamp: time.Now()},
	})
}
