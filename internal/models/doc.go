// Tunereel - Music Discovery Video Feed Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tunereel

/*
Package models defines the data structures shared by the Tunereel feed engine.

Key Components:

  - Candidate: a video plus ranking, resolution and playback metadata
  - UserProfile / ProfilePatch: personalization state and partial updates
  - Interaction: recent watch/like snapshot used for content similarity
  - DeviceProfile / NetworkState: inputs to quality tier selection
  - APIResponse / APIError: HTTP response envelope

Error Taxonomy:

errors.go holds the sentinel errors every layer returns or wraps:

  - ErrNotAuthenticated: fatal, never retried
  - ErrNoConnectivity: recoverable, retried on reconnect
  - ErrUpstreamUnavailable / UpstreamError: retried with capped backoff
  - ErrResourceNotFound: the single item is skipped
  - ErrPreloadTimeout: degrades to a cold load on focus
  - ErrDecode: offers Retry or Skip

Thread Safety:

Models are plain values. Candidate.Clone and UserProfile.Clone produce deep
copies for handing data across goroutines.
*/
package models
