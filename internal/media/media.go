// Tunereel - Music Discovery Video Feed Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tunereel

package media

import (
	"context"
	"errors"
)

// ErrUnloaded is returned by operations on a resource after Unload.
var ErrUnloaded = errors.New("media resource unloaded")

// OpenOptions controls the initial state of an opened resource.
type OpenOptions struct {
	Muted  bool
	Paused bool
}

// EventKind identifies a media event.
type EventKind string

const (
	EventProgress       EventKind = "progress"
	EventBufferingStart EventKind = "buffering_start"
	EventBufferingEnd   EventKind = "buffering_end"
	EventEnded          EventKind = "ended"
	EventError          EventKind = "error"
)

// Event is emitted by a Resource while it plays.
type Event struct {
	Kind     EventKind
	Progress float64
	Err      error
}

// Resource is one loaded media item. Stop halts playback; Unload releases the
// decoder and closes Events. Unload is idempotent.
type Resource interface {
	URL() string
	Play() error
	Pause() error
	SetMuted(muted bool)
	Stop() error
	Unload() error
	Events() <-chan Event
}

// Loader opens media resources. Open blocks until the resource is ready or
// ctx is done.
type Loader interface {
	Open(ctx context.Context, url string, opts OpenOptions) (Resource, error)
}
