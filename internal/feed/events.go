// Tunereel - Music Discovery Video Feed Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tunereel

package feed

import (
	"sync"
	"time"
)

// State is a feed session state.
type State string

const (
	StateIdle        State = "idle"
	StateLoading     State = "loading"
	StateReady       State = "ready"
	StateLoadingMore State = "loading_more"
	StateError       State = "error"
	StateRetrying    State = "retrying"
	StateDisposed    State = "disposed"
)

// EventType classifies session events.
type EventType string

const (
	EventState EventType = "state"
	EventFocus EventType = "focus"
	EventMerge EventType = "merge"
	EventRetry EventType = "retry_scheduled"
	EventError EventType = "playback_error"
)

// Event is delivered to subscribers on every observable change.
type Event struct {
	Type        EventType     `json:"type"`
	State       State         `json:"state"`
	Recoverable bool          `json:"recoverable,omitempty"`
	Error       string        `json:"error,omitempty"`
	Epoch       uint64        `json:"epoch"`
	Current     *FeedItem     `json:"current,omitempty"`
	Added       int           `json:"added,omitempty"`
	RetryIn     time.Duration `json:"retry_in,omitempty"`
	At          time.Time     `json:"at"`
}

// broadcaster fans events out to subscribers without blocking the sender.
type broadcaster struct {
	mu     sync.Mutex
	subs   map[int]chan Event
	next   int
	buffer int
	closed bool
}

func newBroadcaster(buffer int) *broadcaster {
	return &broadcaster{subs: make(map[int]chan Event), buffer: buffer}
}

func (b *broadcaster) subscribe() (<-chan Event, func()) {
	ch := make(chan Event, b.buffer)

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		close(ch)
		return ch, func() {}
	}
	id := b.next
	b.next++
	b.subs[id] = ch
	b.mu.Unlock()

	return ch, func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if c, ok := b.subs[id]; ok {
			delete(b.subs, id)
			close(c)
		}
	}
}

// publish drops the event for subscribers whose buffer is full.
func (b *broadcaster) publish(ev Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, ch := range b.subs {
		select {
		case ch <- ev:
		default:
		}
	}
}

func (b *broadcaster) close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	for id, ch := range b.subs {
		delete(b.subs, id)
		close(ch)
	}
}
