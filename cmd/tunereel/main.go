// Tunereel - Music Discovery Video Feed Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tunereel

// Package main is the entry point for the tunereel command.
//
// Tunereel serves a vertically swiped music video feed. Each signed-in user
// gets a feed session that pages candidates from the metadata store, ranks
// them against the user's profile and keeps the focused clip and the two
// clips after it warm so swiping never waits on the network.
//
// # Commands
//
//	tunereel serve                  run the HTTP and WebSocket API
//	tunereel simulate --swipes 20   run one session headless and print focus changes
//	tunereel seed --file c.json     import candidates into the badger store
//
// # Configuration
//
// Configuration is loaded via Koanf v2 with layered sources (highest priority wins):
//   - Environment variables (a .env file in the working directory is merged first)
//   - Config file (CONFIG_PATH, config.yaml or /etc/tunereel/config.yaml)
//   - Built-in defaults
//
// Either JWT_SECRET (32+ characters) or AUTH_STATIC_USER_ID must be set.
//
// # Build Tags
//
//	go build ./cmd/tunereel               # in-process engagement pipeline
//	go build -tags nats ./cmd/tunereel    # NATS JetStream engagement pipeline
//
// # Signal Handling
//
// serve shuts down gracefully on SIGINT and SIGTERM: the HTTP server stops
// accepting connections, WebSocket clients are closed, every feed session is
// disposed (releasing its media resources) and the store is closed.
package main

import (
	"os"

	"github.com/spf13/cobra"
)

// Set via -ldflags at build time.
var (
	version = "dev"
	commit  = "none"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "tunereel",
		Short: "Music discovery video feed engine",
		Long: `Tunereel serves a swipeable feed of music videos.

Sessions page candidates from the metadata store, rank them per user and
keep the next clips preloaded so playback starts instantly.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	root.SetVersionTemplate("tunereel {{.Version}} (" + commit + ")\n")

	root.AddCommand(newServeCmd())
	root.AddCommand(newSimulateCmd())
	root.AddCommand(newSeedCmd())

	return root
}
