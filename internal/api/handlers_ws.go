// Tunereel - Music Discovery Video Feed Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tunereel

package api

import (
	"net/http"
	"time"

	"github.com/tomtom215/tunereel/internal/auth"
	"github.com/tomtom215/tunereel/internal/feed"
	"github.com/tomtom215/tunereel/internal/logging"
	"github.com/tomtom215/tunereel/internal/models"
	"github.com/tomtom215/tunereel/internal/playback"
	"github.com/tomtom215/tunereel/internal/websocket"
)

// WebSocket upgrades the connection and streams the caller's feed events
// (type "feed"), playback progress (type "progress") and connectivity
// changes (type "network"). The first message is the current feed state.
//
// GET /api/v1/ws
func (h *Handler) WebSocket(w http.ResponseWriter, r *http.Request) {
	if h.hub == nil {
		logging.Warn().Msg("WebSocket connection rejected: hub not initialized")
		respondError(w, http.StatusServiceUnavailable, &models.APIError{
			Code:    ErrCodeServiceUnavailable,
			Message: "WebSocket service unavailable",
		})
		return
	}

	s, ok := h.session(w, r)
	if !ok {
		return
	}

	conn, err := h.getUpgrader().Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written the HTTP error.
		logging.Ctx(r.Context()).Warn().Err(err).Msg("WebSocket upgrade error")
		return
	}

	client := websocket.NewClient(h.hub, conn, auth.UserIDFromContext(r.Context()))
	client.Start()

	events, stopEvents := s.Subscribe()
	progress, stopProgress := s.Playback().SubscribeProgress()

	client.Send(websocket.Message{Type: websocket.MessageTypeFeed, Data: initialEvent(s)})
	go forwardSession(client, events, progress, func() {
		stopEvents()
		stopProgress()
	})
}

// initialEvent describes the session as a state event.
func initialEvent(s *feed.Session) feed.Event {
	snap := s.Snapshot()
	return feed.Event{
		Type:        feed.EventState,
		State:       snap.State,
		Recoverable: snap.Recoverable,
		Error:       snap.LastError,
		Epoch:       snap.Epoch,
		Current:     snap.Current,
		At:          time.Now(),
	}
}

// forwardSession copies session events to the client until either side
// ends. A disposed session closes its event channel, which closes the
// client too.
func forwardSession(client *websocket.Client, events <-chan feed.Event, progress <-chan playback.Progress, stop func()) {
	defer stop()
	for {
		select {
		case <-client.Done():
			return
		case ev, ok := <-events:
			if !ok {
				client.Close()
				return
			}
			client.Send(websocket.Message{Type: websocket.MessageTypeFeed, Data: ev})
		case p, ok := <-progress:
			if !ok {
				progress = nil
				continue
			}
			client.Send(websocket.Message{Type: websocket.MessageTypeProgress, Data: p})
		}
	}
}
