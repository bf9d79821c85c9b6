// Tunereel - Music Discovery Video Feed Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tunereel

/*
Package feed implements the feed session: the per-user state machine that
pages candidates from the metadata store, ranks each page, keeps a
deduplicated window of items and drives preloading and playback as the user
swipes.

# States

	Idle -> Loading -> Ready <-> LoadingMore
	Error(recoverable) -> Retrying -> Ready | Error(fatal)
	any -> Disposed

Failed loads are retried with capped exponential backoff (1s, 2s, 4s, at most
three attempts). Losing connectivity suspends autoload and parks the session
in a recoverable error; regaining it retries with a fresh attempt budget.
NotAuthenticated is fatal immediately.

# Window

Pages are appended in ranked order and never reorder items already held.
Items far behind focus are evicted while more pages may arrive and are
remembered so later pages cannot bring them back. Once the store has no more
pages, the window freezes and focus wraps around it. Every wrap starts a new
cycle and items are keyed id#cycle so a wrapped item never collides with its
earlier occurrence.

# Registry

Registry keeps one Session per user and the Janitor service disposes idle
ones.
*/
package feed
