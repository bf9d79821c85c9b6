// Tunereel - Music Discovery Video Feed Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tunereel

/*
Package playback implements the state machine for the focused feed item.

	Idle -> Loading -> Ready -> Playing <-> Paused
	                            Playing <-> Buffering
	any  -> Error -> Retry (Loading) | Skip (feed advances)

Ready auto-plays only while the controller is focused. Missing resources are
skipped automatically; other errors are reported through OnError and wait for
Retry or Skip. Teardown releases every slot through the slot owner.
*/
package playback
