// Tunereel - Music Discovery Video Feed Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tunereel

/*
Package api exposes feed sessions over HTTP and WebSocket.

Every route under /api/v1 is authenticated. The caller's user id selects
the feed session, which the registry creates on first use.

# Endpoints

	GET   /api/v1/feed/current        focused item
	GET   /api/v1/feed/lookahead?n=2  up to n upcoming items (1..10)
	POST  /api/v1/feed/advance        move focus forward
	POST  /api/v1/feed/retry          retry a failed page load
	GET   /api/v1/feed/state          session snapshot
	POST  /api/v1/playback/play       resume
	POST  /api/v1/playback/pause      pause
	POST  /api/v1/playback/retry      reload after a playback error
	POST  /api/v1/playback/skip       abandon the focused item
	POST  /api/v1/engagement/like     {"video_id": "..."}
	PATCH /api/v1/profile             models.ProfilePatch
	GET   /api/v1/ws                  event stream
	GET   /healthz                    health summary
	GET   /metrics                    Prometheus metrics

# Responses

All JSON responses use models.APIResponse. Feed endpoints fill
metadata.epoch and metadata.state so clients can detect a window rebuilt
under them. Errors map onto status codes:

	401 AUTHENTICATION_ERROR  missing or invalid token
	400 VALIDATION_ERROR      request failed validation
	409 AWAITING_PAGE         advance at the end of the window while loading
	409 NOT_READY             first page not loaded yet
	409 EMPTY_FEED            the catalog is empty
	502 UPSTREAM_ERROR        the metadata store failed
	503 NO_CONNECTIVITY       the engine is offline

# WebSocket

Browsers cannot set headers on a WebSocket handshake, so /api/v1/ws also
accepts the token as ?access_token=. Frames are websocket.Message values
of type "feed" (feed.Event), "progress" (playback.Progress) and
"network" (websocket.NetworkData).
*/
package api
