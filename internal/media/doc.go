// Tunereel - Music Discovery Video Feed Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tunereel

// Package media defines the decoder boundary (Loader, Resource) and a
// Simulator implementation used headless and in tests.
package media
