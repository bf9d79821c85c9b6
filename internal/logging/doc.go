// Tunereel - Music Discovery Video Feed Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tunereel

// Package logging provides the zerolog-based structured logger used across Tunereel.
//
// # Quick Start
//
//	logging.Init(logging.Config{Level: "info", Format: "json", Timestamp: true})
//	logging.Info().Str("user_id", uid).Msg("feed session created")
//
// Components derive a tagged child logger once and keep it:
//
//	logger := logging.Component("preload")
//	logger.Debug().Str("slot", "next").Msg("warm")
//
// # Context
//
// Request, user and feed session IDs travel through context.Context and are
// attached by Ctx:
//
//	ctx = logging.ContextWithUserID(ctx, uid)
//	logging.Ctx(ctx).Warn().Err(err).Msg("remote like failed")
//
// # slog
//
// NewSlogLogger adapts the global logger for libraries that take *slog.Logger
// (the suture event hook).
package logging
