// Tunereel - Music Discovery Video Feed Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tunereel

/*
Package config loads and validates Tunereel configuration.

# Configuration Sources

Sources are layered with koanf, later layers overriding earlier ones:

 1. Built-in defaults (defaultConfig)
 2. A YAML file: CONFIG_PATH, else the first of DefaultConfigPaths that exists
 3. Environment variables, after a .env file in the working directory is merged

Only environment variables listed in the env mapping are read. Unknown
variables are ignored, so the process environment can be shared with other
tools.

# Sections

  - server: listen address, timeouts, CORS origins, per-IP rate limit
  - logging: level, format, caller
  - feed: page size, preload threshold, look-behind, retry backoff
  - ranking: scoring weights and normalization ranges
  - quality: variant labels, resolved URL cache TTL
  - preload: warm-up timeout, retry delay, concurrency
  - store: badger path or in-memory, blob base URL
  - connectivity: reachability probe
  - auth: JWT secret or a static development user
  - engagement, nats: engagement event bus
  - breaker: circuit breaker for upstream calls
  - simulator: the built-in media decoder simulation

# Example

	server:
	  port: 8740
	  cors_origins: ["https://app.example.com"]
	feed:
	  page_size: 20
	  backoff:
	    initial: 1s
	    max: 10s
	store:
	  badger_path: /var/lib/tunereel
	  blob_base_url: https://cdn.example.com/videos

Environment examples: HTTP_PORT=8740, FEED_PAGE_SIZE=30, JWT_SECRET=...,
CORS_ORIGINS=https://a.example.com,https://b.example.com.
*/
package config
