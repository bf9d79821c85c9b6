// Tunereel - Music Discovery Video Feed Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tunereel

// Package connectivity tells feed sessions whether the network is usable.
//
// HTTPProbe polls a URL with HEAD requests and flips to disconnected after
// FailureThreshold consecutive failures. Manual is set by hand. Both notify
// subscribers of changes without blocking; a slow subscriber only sees the
// most recent state.
package connectivity
