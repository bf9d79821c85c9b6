// Tunereel - Music Discovery Video Feed Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tunereel

/*
Package cache provides the injectable in-memory caches owned by feed sessions.

# Components

  - Cache: TTL key/value cache with a stoppable background sweeper. Sessions
    create one per session (via a Factory) for resolved media URLs and close
    it on dispose.
  - LRUSet: bounded TTL set used by the feed window to remember evicted ids.

Neither is global state: every owner constructs and closes its own instance.

# Usage Example

	urls := cache.New(10 * time.Minute)
	defer urls.Close()

	key := cache.GenerateKey("resolve", struct{ Ref, Tier string }{ref, tier})
	if v, ok := urls.Get(key); ok {
	    return v.(string), nil
	}
*/
package cache
