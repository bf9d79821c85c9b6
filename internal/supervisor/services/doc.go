// Tunereel - Music Discovery Video Feed Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tunereel

// Package services adapts blocking servers to suture.Service.
//
// Most engine components (engagement.Writer, connectivity.HTTPProbe,
// feed.Janitor, websocket.Hub) implement Serve(ctx) and String() directly
// and are added to the tree as they are. Only net/http needs a wrapper,
// because ListenAndServe ignores contexts.
package services
