// Tunereel - Music Discovery Video Feed Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tunereel

package connectivity

import (
	"context"
	"sync"
	"sync/atomic"
)

// Probe reports network availability.
type Probe interface {
	// IsConnected returns the last observed state without blocking.
	IsConnected() bool

	// IsReachable actively checks reachability.
	IsReachable(ctx context.Context) bool

	// Changes returns a channel that receives every state change.
	Changes() <-chan bool

	// Subscribe is like Changes but returns a function that ends the
	// subscription.
	Subscribe() (<-chan bool, func())
}

// notifier fans state changes out without blocking. Each subscriber holds
// at most one pending value, and a newer value replaces an unread one.
type notifier struct {
	mu   sync.Mutex
	subs map[int]chan bool
	next int
}

func (n *notifier) subscribe() (<-chan bool, func()) {
	ch := make(chan bool, 1)
	n.mu.Lock()
	if n.subs == nil {
		n.subs = make(map[int]chan bool)
	}
	id := n.next
	n.next++
	n.subs[id] = ch
	n.mu.Unlock()

	return ch, func() {
		n.mu.Lock()
		defer n.mu.Unlock()
		if c, ok := n.subs[id]; ok {
			delete(n.subs, id)
			close(c)
		}
	}
}

func (n *notifier) broadcast(up bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	for _, ch := range n.subs {
		select {
		case ch <- up:
		default:
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- up:
			default:
			}
		}
	}
}

func (n *notifier) subscribers() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.subs)
}

// Manual is a Probe whose state is set explicitly. It backs tests, the
// simulator and deployments without a reachability endpoint.
type Manual struct {
	up atomic.Bool
	notifier
}

// NewManual creates a probe starting in the given state.
func NewManual(up bool) *Manual {
	m := &Manual{}
	m.up.Store(up)
	return m
}

// Set changes the state and notifies subscribers if it changed.
func (m *Manual) Set(up bool) {
	if m.up.Swap(up) != up {
		m.broadcast(up)
	}
}

// IsConnected implements Probe.
func (m *Manual) IsConnected() bool { return m.up.Load() }

// IsReachable implements Probe.
func (m *Manual) IsReachable(context.Context) bool { return m.up.Load() }

// Changes implements Probe.
func (m *Manual) Changes() <-chan bool {
	ch, _ := m.subscribe()
	return ch
}

// Subscribe implements Probe.
func (m *Manual) Subscribe() (<-chan bool, func()) { return m.subscribe() }
