// Tunereel - Music Discovery Video Feed Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tunereel

package config

import (
	"io"
	"net"
	"strconv"
	"time"

	"github.com/tomtom215/tunereel/internal/breaker"
	"github.com/tomtom215/tunereel/internal/connectivity"
	"github.com/tomtom215/tunereel/internal/engagement"
	"github.com/tomtom215/tunereel/internal/feed"
	"github.com/tomtom215/tunereel/internal/logging"
	"github.com/tomtom215/tunereel/internal/media"
	"github.com/tomtom215/tunereel/internal/preload"
	"github.com/tomtom215/tunereel/internal/quality"
	"github.com/tomtom215/tunereel/internal/recommend"
	"github.com/tomtom215/tunereel/internal/store"
)

// Config holds all application configuration.
type Config struct {
	Server       ServerConfig          `koanf:"server"`
	Logging      LoggingConfig         `koanf:"logging"`
	Feed         feed.Config           `koanf:"feed"`
	Ranking      recommend.Config      `koanf:"ranking"`
	Quality      quality.Config        `koanf:"quality"`
	Preload      preload.Config        `koanf:"preload"`
	Store        StoreConfig           `koanf:"store"`
	Connectivity connectivity.Config   `koanf:"connectivity"`
	Auth         AuthConfig            `koanf:"auth"`
	Engagement   engagement.Config     `koanf:"engagement"`
	NATS         engagement.NATSConfig `koanf:"nats"` // Only honored by binaries built with -tags=nats
	Breaker      breaker.Config        `koanf:"breaker"`
	Simulator    media.SimulatorConfig `koanf:"simulator"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port"`
	ReadTimeout     time.Duration `koanf:"read_timeout"`
	WriteTimeout    time.Duration `koanf:"write_timeout"`
	IdleTimeout     time.Duration `koanf:"idle_timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`

	// CORSOrigins lists allowed origins. "*" allows any origin.
	CORSOrigins []string `koanf:"cors_origins"`

	// RateLimitRequests per RateLimitWindow and client IP.
	RateLimitRequests int           `koanf:"rate_limit_requests"`
	RateLimitWindow   time.Duration `koanf:"rate_limit_window"`
	RateLimitDisabled bool          `koanf:"rate_limit_disabled"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: trace, debug, info, warn, error.
	// Default: info
	Level string `koanf:"level"`

	// Format is the output format: json or console.
	// Default: json
	Format string `koanf:"format"`

	// Caller includes caller file and line number in logs.
	// Default: false
	Caller bool `koanf:"caller"`
}

// StoreConfig holds metadata, profile and blob storage settings.
type StoreConfig struct {
	// BadgerPath is the database directory for metadata and profiles.
	BadgerPath string `koanf:"badger_path"`

	// InMemory keeps the database in memory. Data is lost on exit.
	InMemory bool `koanf:"in_memory"`

	// BlobBaseURL is where encoded video variants are served from.
	// Empty uses an in-process blob store that accepts every path.
	BlobBaseURL string `koanf:"blob_base_url"`

	// RequestTimeout bounds each blob store request.
	RequestTimeout time.Duration `koanf:"request_timeout"`

	// ProfileCacheSize and ProfileCacheTTL bound the profile read cache.
	ProfileCacheSize int           `koanf:"profile_cache_size"`
	ProfileCacheTTL  time.Duration `koanf:"profile_cache_ttl"`
}

// AuthConfig holds bearer token settings.
type AuthConfig struct {
	// JWTSecret signs and verifies HS256 tokens. At least 32 characters.
	JWTSecret string `koanf:"jwt_secret"`

	// StaticUserID authenticates requests without a token as this user.
	// Intended for local development and the simulate command.
	StaticUserID string `koanf:"static_user_id"`

	TokenTTL time.Duration `koanf:"token_ttl"`
	Issuer   string        `koanf:"issuer"`
}

// LoggingOptions converts the section to logging.Config writing to out.
func (c *Config) LoggingOptions(out io.Writer) logging.Config {
	opts := logging.DefaultConfig()
	opts.Level = c.Logging.Level
	opts.Format = c.Logging.Format
	opts.Caller = c.Logging.Caller
	if out != nil {
		opts.Output = out
	}
	return opts
}

// StoreOptions converts the section to store.Options.
func (c *Config) StoreOptions() store.Options {
	return store.Options{Path: c.Store.BadgerPath, InMemory: c.Store.InMemory}
}

// Addr returns the HTTP listen address.
func (s ServerConfig) Addr() string {
	return net.JoinHostPort(s.Host, strconv.Itoa(s.Port))
}
