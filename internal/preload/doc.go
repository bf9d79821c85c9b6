// Tunereel - Music Discovery Video Feed Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tunereel

/*
Package preload keeps the next two feed items warm so a swipe starts playback
without a cold load.

The Coordinator owns three slots (current, next, next-next). On every focus
change the session calls Advance with the new items; bindings that merely move
(next-next becoming next) keep their resource, anything else is stopped and
unloaded before a new warm-up starts. Warm-ups run with bounded concurrency,
open media muted and paused, and give up after a timeout. A failed warm-up is
retried once after a fixed delay and otherwise left cold, in which case
AcquireCurrent performs a cold load when the item gains focus.

Each binding carries a generation; a load that completes after its binding
was replaced is unloaded immediately.
*/
package preload
