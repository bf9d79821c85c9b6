// Tunereel - Music Discovery Video Feed Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tunereel

package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"

	"github.com/tomtom215/tunereel/internal/breaker"
	"github.com/tomtom215/tunereel/internal/connectivity"
	"github.com/tomtom215/tunereel/internal/engagement"
	"github.com/tomtom215/tunereel/internal/feed"
	"github.com/tomtom215/tunereel/internal/media"
	"github.com/tomtom215/tunereel/internal/preload"
	"github.com/tomtom215/tunereel/internal/quality"
	"github.com/tomtom215/tunereel/internal/recommend"
)

// DefaultConfigPaths are searched in order when CONFIG_PATH is unset.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/tunereel/config.yaml",
	"/etc/tunereel/config.yml",
}

// ConfigPathEnvVar names the environment variable holding an explicit config file path.
const ConfigPathEnvVar = "CONFIG_PATH"

// DotEnvFile is loaded into the process environment before anything else, if present.
const DotEnvFile = ".env"

func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:              "0.0.0.0",
			Port:              8740,
			ReadTimeout:       15 * time.Second,
			WriteTimeout:      30 * time.Second,
			IdleTimeout:       2 * time.Minute,
			ShutdownTimeout:   10 * time.Second,
			CORSOrigins:       []string{"*"},
			RateLimitRequests: 300,
			RateLimitWindow:   time.Minute,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Feed:         feed.DefaultConfig(),
		Ranking:      *recommend.DefaultConfig(),
		Quality:      quality.DefaultConfig(),
		Preload:      preload.DefaultConfig(),
		Connectivity: connectivity.DefaultConfig(),
		Store: StoreConfig{
			BadgerPath:       "/data/tunereel",
			RequestTimeout:   5 * time.Second,
			ProfileCacheSize: 4096,
			ProfileCacheTTL:  5 * time.Minute,
		},
		Auth: AuthConfig{
			TokenTTL: 24 * time.Hour,
			Issuer:   "tunereel",
		},
		Engagement: engagement.DefaultConfig(),
		NATS:       engagement.DefaultNATSConfig(),
		Breaker:    breaker.DefaultConfig(),
		Simulator:  media.DefaultSimulatorConfig(),
	}
}

// Load reads configuration using koanf with layered sources:
//  1. Built-in defaults
//  2. Config file (YAML), from CONFIG_PATH or DefaultConfigPaths
//  3. Environment variables, after merging DotEnvFile
//
// The result is validated before it is returned.
func Load() (*Config, error) {
	if err := loadDotEnv(DotEnvFile); err != nil {
		return nil, err
	}

	cfg, err := load(findConfigFile())
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

// LoadFile is Load with an explicit config file path. An empty path skips
// the file layer.
func LoadFile(path string) (*Config, error) {
	cfg, err := load(path)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

func load(configPath string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := processSliceFields(k); err != nil {
		return nil, fmt.Errorf("failed to process slice fields: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}
	return cfg, nil
}

// loadDotEnv merges a dotenv file into the environment without overriding
// variables that are already set. A missing file is not an error.
func loadDotEnv(path string) error {
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}

func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}

	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return ""
}

// sliceConfigPaths are keys that may arrive as comma-separated strings from
// the environment.
var sliceConfigPaths = []string{
	"server.cors_origins",
}

func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		strVal, ok := k.Get(path).(string)
		if !ok || strVal == "" {
			continue
		}

		parts := strings.Split(strVal, ",")
		trimmed := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				trimmed = append(trimmed, p)
			}
		}
		if len(trimmed) > 0 {
			if err := k.Set(path, trimmed); err != nil {
				return fmt.Errorf("failed to set %s: %w", path, err)
			}
		}
	}
	return nil
}

// envMappings maps environment variables (lowercased) to koanf keys.
// Variables not listed here are ignored.
var envMappings = map[string]string{
	"http_host":             "server.host",
	"http_port":             "server.port",
	"http_read_timeout":     "server.read_timeout",
	"http_write_timeout":    "server.write_timeout",
	"http_idle_timeout":     "server.idle_timeout",
	"http_shutdown_timeout": "server.shutdown_timeout",
	"cors_origins":          "server.cors_origins",
	"rate_limit_requests":   "server.rate_limit_requests",
	"rate_limit_window":     "server.rate_limit_window",
	"disable_rate_limit":    "server.rate_limit_disabled",

	"log_level":  "logging.level",
	"log_format": "logging.format",
	"log_caller": "logging.caller",

	"feed_page_size":             "feed.page_size",
	"feed_preload_threshold":     "feed.preload_threshold",
	"feed_look_behind":           "feed.look_behind",
	"feed_subscriber_buffer":     "feed.subscriber_buffer",
	"feed_session_idle_timeout":  "feed.session_idle_timeout",
	"feed_backoff_initial":       "feed.backoff.initial",
	"feed_backoff_max":           "feed.backoff.max",
	"feed_backoff_multiplier":    "feed.backoff.multiplier",
	"feed_backoff_max_attempts":  "feed.backoff.max_attempts",
	"feed_interaction_threshold": "feed.interaction_threshold",

	"ranking_weight_preference":  "ranking.weights.preference",
	"ranking_weight_similarity":  "ranking.weights.similarity",
	"ranking_weight_engagement":  "ranking.weights.engagement",
	"ranking_weight_context":     "ranking.weights.context",
	"ranking_engagement_ceiling": "ranking.engagement_ceiling",
	"ranking_recency_window":     "ranking.recency_window",
	"ranking_short_duration":     "ranking.short_duration",
	"ranking_diversity":          "ranking.diversity",

	"quality_label_low":     "quality.labels.low",
	"quality_label_medium":  "quality.labels.medium",
	"quality_label_high":    "quality.labels.high",
	"quality_url_cache_ttl": "quality.url_cache_ttl",

	"preload_timeout":     "preload.timeout",
	"preload_retry_delay": "preload.retry_delay",
	"preload_concurrency": "preload.concurrency",

	"badger_path":          "store.badger_path",
	"store_in_memory":      "store.in_memory",
	"blob_base_url":        "store.blob_base_url",
	"blob_request_timeout": "store.request_timeout",
	"profile_cache_size":   "store.profile_cache_size",
	"profile_cache_ttl":    "store.profile_cache_ttl",

	"connectivity_probe_url":         "connectivity.probe_url",
	"connectivity_interval":          "connectivity.interval",
	"connectivity_timeout":           "connectivity.timeout",
	"connectivity_failure_threshold": "connectivity.failure_threshold",

	"jwt_secret":          "auth.jwt_secret",
	"auth_static_user_id": "auth.static_user_id",
	"jwt_token_ttl":       "auth.token_ttl",
	"jwt_issuer":          "auth.issuer",

	"engagement_topic":             "engagement.topic",
	"engagement_queue_buffer":      "engagement.queue_buffer",
	"engagement_writes_per_second": "engagement.writes_per_second",
	"engagement_burst":             "engagement.burst",

	"nats_enabled":        "nats.enabled",
	"nats_url":            "nats.url",
	"nats_queue_group":    "nats.queue_group",
	"nats_durable_name":   "nats.durable_name",
	"nats_max_reconnects": "nats.max_reconnects",

	"breaker_timeout":       "breaker.timeout",
	"breaker_failure_ratio": "breaker.failure_ratio",
	"breaker_min_requests":  "breaker.min_requests",

	"simulator_open_latency":  "simulator.open_latency",
	"simulator_clip_length":   "simulator.clip_length",
	"simulator_tick_interval": "simulator.tick_interval",
}

func envTransformFunc(key string) string {
	return envMappings[strings.ToLower(key)]
}
