// Tunereel - Music Discovery Video Feed Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tunereel

package cache

import "time"

// Cacher is the injectable cache surface used by feed components. Sessions
// construct one, hand it to the quality resolver and close it on dispose.
type Cacher interface {
	// Get retrieves a value. Returns the value and true if found and not expired.
	Get(key string) (interface{}, bool)

	// Set stores a value with the default TTL.
	Set(key string, value interface{})

	// SetWithTTL stores a value with a custom TTL.
	SetWithTTL(key string, value interface{}, ttl time.Duration)

	// Delete removes a value.
	Delete(key string)

	// Clear removes all entries.
	Clear()

	// GetStats returns cache statistics.
	GetStats() Stats

	// Close releases background resources.
	Close()
}

// Factory builds a Cacher; feed sessions call it once each.
type Factory func() Cacher

// TTLFactory returns a Factory producing TTL caches with the given lifetime.
func TTLFactory(ttl time.Duration) Factory {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return func() Cacher { return New(ttl) }
}

// Verify interface implementations at compile time
var _ Cacher = (*Cache)(nil)
