// Tunereel - Music Discovery Video Feed Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tunereel

package engagement

import "time"

// NATSConfig configures the durable NATS JetStream transport.
// It is only honored in binaries built with -tags=nats.
type NATSConfig struct {
	Enabled       bool          `koanf:"enabled" json:"enabled"`
	URL           string        `koanf:"url" json:"url"`
	QueueGroup    string        `koanf:"queue_group" json:"queue_group"`
	DurableName   string        `koanf:"durable_name" json:"durable_name"`
	MaxReconnects int           `koanf:"max_reconnects" json:"max_reconnects"`
	ReconnectWait time.Duration `koanf:"reconnect_wait" json:"reconnect_wait"`
	AckWait       time.Duration `koanf:"ack_wait" json:"ack_wait"`
}

// DefaultNATSConfig returns defaults for a local NATS server.
func DefaultNATSConfig() NATSConfig {
	return NATSConfig{
		URL:           "nats://127.0.0.1:4222",
		QueueGroup:    "tunereel-engagement",
		DurableName:   "tunereel-engagement",
		MaxReconnects: -1,
		ReconnectWait: 2 * time.Second,
		AckWait:       30 * time.Second,
	}
}
