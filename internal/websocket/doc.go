// Tunereel - Music Discovery Video Feed Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tunereel

/*
Package websocket streams feed and playback events to connected clients.

Key Components:

  - Hub: tracks connected clients, fans out global messages (network state)
    and closes every client on shutdown. It runs as a suture service.
  - Client: one gorilla/websocket connection with a read pump (pings, close
    detection) and a write pump (JSON messages, keepalive pings).

Per-user event streams are pushed with Client.Send by the HTTP layer, which
owns the session subscription. Global messages go through Hub.Broadcast.

Message Types:

  - feed: a feed session event (state, focus, merge, retry_scheduled, playback_error)
  - progress: playback progress of the focused item
  - network: connectivity changed, data is {"connected": bool}
  - ping / pong: application-level keepalive initiated by the client

A client that cannot keep up (send buffer full) is dropped rather than
slowing the hub down.
*/
package websocket
