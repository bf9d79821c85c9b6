// Tunereel - Music Discovery Video Feed Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tunereel

/*
Package store provides the collaborators the feed engine reads from and writes to.

# Backends

  - MetadataStore: badger-backed candidate documents with a newest-first
    index used for cursor paging. Also the engagement sink.
  - BadgerProfileStore: badger-backed user profiles, patched atomically.
  - CachedProfiles: golang-lru expirable cache in front of any ProfileStore.
  - HTTPBlobStore: resolves storage paths with HEAD requests against an origin,
    guarded by a circuit breaker.
  - MemoryMetadata, MemoryProfiles, MemoryBlobs: in-memory equivalents used by
    the simulator and tests.

# Key Layout

	video:<id>                          candidate JSON
	idx_upload:<inverted-ms>:<id>       empty value, newest first
	profile:<user_id>                   profile JSON

Missing blobs and videos return errors matching ErrNotFound, which in turn
matches models.ErrResourceNotFound.
*/
package store
