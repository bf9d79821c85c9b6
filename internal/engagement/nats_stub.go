// Tunereel - Music Discovery Video Feed Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tunereel

//go:build !nats

package engagement

import (
	"errors"

	"github.com/rs/zerolog"
)

// NATSAvailable reports whether this binary includes the NATS transport.
const NATSAvailable = false

// NewNATSPipeline is unavailable without the nats build tag.
func NewNATSPipeline(_ NATSConfig, _ string, _ zerolog.Logger) (*Pipeline, error) {
	return nil, errors.New("NATS transport not available: build with -tags=nats")
}
