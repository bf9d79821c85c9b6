// Tunereel - Music Discovery Video Feed Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tunereel

// Package quality resolves playable URLs for candidate videos at the best
// tier the device and network can afford, stepping down on missing variants.
package quality
