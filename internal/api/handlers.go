// Tunereel - Music Discovery Video Feed Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tunereel

package api

import (
	"context"
	"net/http"
	"time"

	gorillaws "github.com/gorilla/websocket"

	"github.com/tomtom215/tunereel/internal/auth"
	"github.com/tomtom215/tunereel/internal/feed"
	"github.com/tomtom215/tunereel/internal/logging"
	"github.com/tomtom215/tunereel/internal/websocket"
)

// SessionSource hands out the feed session of a user. *feed.Registry
// satisfies it.
type SessionSource interface {
	Get(ctx context.Context, userID string) (*feed.Session, error)
	Len() int
}

// NetworkStatus reports connectivity. connectivity.Probe and
// connectivity.Manual satisfy it.
type NetworkStatus interface {
	IsConnected() bool
}

// Handler serves the feed API.
type Handler struct {
	sessions    SessionSource
	hub         *websocket.Hub
	network     NetworkStatus
	corsOrigins []string
	startTime   time.Time
	version     string
}

// HandlerOptions configures a Handler. Hub and Network are optional.
type HandlerOptions struct {
	Sessions    SessionSource
	Hub         *websocket.Hub
	Network     NetworkStatus
	CORSOrigins []string
	Version     string
}

// NewHandler creates a Handler.
func NewHandler(opts HandlerOptions) *Handler {
	version := opts.Version
	if version == "" {
		version = "dev"
	}
	return &Handler{
		sessions:    opts.Sessions,
		hub:         opts.Hub,
		network:     opts.Network,
		corsOrigins: opts.CORSOrigins,
		startTime:   time.Now(),
		version:     version,
	}
}

// session resolves the caller's feed session, writing the error response
// when it cannot.
func (h *Handler) session(w http.ResponseWriter, r *http.Request) (*feed.Session, bool) {
	s, err := h.sessions.Get(r.Context(), auth.UserIDFromContext(r.Context()))
	if err != nil {
		writeError(w, r, err)
		return nil, false
	}
	return s, true
}

// getUpgrader returns a WebSocket upgrader that applies the CORS origins.
func (h *Handler) getUpgrader() *gorillaws.Upgrader {
	return &gorillaws.Upgrader{
		ReadBufferSize:   1024,
		WriteBufferSize:  1024,
		CheckOrigin:      h.checkWebSocketOrigin,
		HandshakeTimeout: 10 * time.Second,
	}
}

// checkWebSocketOrigin accepts requests without an Origin header (native
// clients authenticate by token) and browser origins listed in CORS.
func (h *Handler) checkWebSocketOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	for _, allowed := range h.corsOrigins {
		if allowed == "*" || allowed == origin {
			return true
		}
	}
	logging.Warn().Str("origin", sanitizeLogValue(origin)).Msg("WebSocket connection rejected from unauthorized origin")
	return false
}
