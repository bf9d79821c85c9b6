// Tunereel - Music Discovery Video Feed Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tunereel

// Package engagement forwards likes, shares and views to the metadata store.
//
// Sessions publish events on a watermill topic and return immediately. A
// Writer consumes the topic, waits for a rate limiter slot and increments
// the stored counters. The local counter bump already happened in the
// session, so failed writes are logged and acked, never rolled back.
//
// The default transport is an in-process gochannel. Binaries built with
// -tags=nats can use NATS JetStream instead via NewNATSPipeline.
package engagement
