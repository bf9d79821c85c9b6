// Tunereel - Music Discovery Video Feed Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tunereel

/*
Package supervisor runs the engine's long-lived services under suture v4.

	tunereel
	├── session-layer
	│   ├── connectivity-probe   (connectivity.HTTPProbe, when a probe URL is set)
	│   └── feed-janitor         (feed.Janitor: idle session disposal)
	├── messaging-layer
	│   ├── engagement-writer    (engagement.Writer)
	│   └── websocket-hub        (websocket.Hub)
	└── api-layer
	    └── http-server          (services.HTTPServerService)

Each layer counts failures on its own. A service that keeps failing backs
off for FailureBackoff before being restarted again.

Supervisor events (start, failure, restart, backoff) are logged through
sutureslog. The slog logger passed to NewTree is normally
logging.NewSlogLogger(), so the events end up in the zerolog stream.

Usage:

	tree := supervisor.NewTree(logging.NewSlogLogger(), supervisor.DefaultTreeConfig())
	tree.AddSessionService(feed.NewJanitor(registry, time.Minute))
	tree.AddMessagingService(writer)
	tree.AddAPIService(services.NewHTTPServerService(srv, addr, 10*time.Second, logger))
	err := tree.Serve(ctx)
*/
package supervisor
