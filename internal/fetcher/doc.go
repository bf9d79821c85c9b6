// Tunereel - Music Discovery Video Feed Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tunereel

// Package fetcher reads pages of candidate videos from the metadata store.
//
// A fetch checks the signed-in user first, then connectivity, then queries the
// store through a circuit breaker. Documents without an id or storage ref are
// dropped with a warning; the rest of the page is still returned.
package fetcher
