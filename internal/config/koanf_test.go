// Tunereel - Music Discovery Video Feed Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tunereel

package config

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"
)

const testSecret = "0123456789abcdef0123456789abcdef"

// TestDefaultConfig verifies that defaultConfig() returns proper defaults
func TestDefaultConfig(t *testing.T) {
	cfg := defaultConfig()

	if cfg.Server.Port != 8740 {
		t.Errorf("Server.Port = %d, want 8740", cfg.Server.Port)
	}
	if cfg.Feed.PageSize != 20 {
		t.Errorf("Feed.PageSize = %d, want 20", cfg.Feed.PageSize)
	}
	if cfg.Feed.Backoff.Initial != time.Second || cfg.Feed.Backoff.Max != 10*time.Second {
		t.Errorf("Feed.Backoff = %+v, want 1s..10s", cfg.Feed.Backoff)
	}
	if cfg.Quality.Labels.Low != "360p" || cfg.Quality.Labels.High != "1080p" {
		t.Errorf("Quality.Labels = %+v", cfg.Quality.Labels)
	}
	if cfg.Preload.Concurrency != 2 {
		t.Errorf("Preload.Concurrency = %d, want 2", cfg.Preload.Concurrency)
	}
	if cfg.NATS.Enabled {
		t.Error("NATS.Enabled should be false by default")
	}
	if cfg.Store.InMemory {
		t.Error("Store.InMemory should be false by default")
	}

	// Defaults alone are incomplete: an auth mode must be chosen.
	if err := cfg.Validate(); err == nil || !strings.Contains(err.Error(), "auth") {
		t.Errorf("Validate() = %v, want auth error", err)
	}
	cfg.Auth.StaticUserID = "dev"
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() with static user = %v", err)
	}
}

func TestLoadFile_Layers(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	yaml := `
server:
  port: 9000
  cors_origins: ["https://a.example.com"]
feed:
  page_size: 12
  backoff:
    initial: 500ms
    max: 4s
ranking:
  weights:
    preference: 0.7
store:
  in_memory: true
  blob_base_url: https://cdn.example.com/videos
auth:
  static_user_id: from-file
`
	if err := os.WriteFile(path, []byte(yaml), 0o600); err != nil {
		t.Fatal(err)
	}

	t.Setenv("HTTP_PORT", "9100")
	t.Setenv("FEED_BACKOFF_MAX_ATTEMPTS", "5")
	t.Setenv("JWT_SECRET", testSecret)
	t.Setenv("CORS_ORIGINS", "https://b.example.com, https://c.example.com")

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile() error = %v", err)
	}

	if cfg.Server.Port != 9100 {
		t.Errorf("Server.Port = %d, want env override 9100", cfg.Server.Port)
	}
	if cfg.Feed.PageSize != 12 {
		t.Errorf("Feed.PageSize = %d, want 12 from file", cfg.Feed.PageSize)
	}
	if cfg.Feed.Backoff.Initial != 500*time.Millisecond || cfg.Feed.Backoff.Max != 4*time.Second {
		t.Errorf("Feed.Backoff = %+v", cfg.Feed.Backoff)
	}
	if cfg.Feed.Backoff.MaxAttempts != 5 {
		t.Errorf("Feed.Backoff.MaxAttempts = %d, want 5", cfg.Feed.Backoff.MaxAttempts)
	}
	if cfg.Feed.Backoff.Multiplier != 2 {
		t.Errorf("Feed.Backoff.Multiplier = %v, want default 2", cfg.Feed.Backoff.Multiplier)
	}
	if cfg.Ranking.Weights.Preference != 0.7 || cfg.Ranking.Weights.Similarity != 0.3 {
		t.Errorf("Ranking.Weights = %+v", cfg.Ranking.Weights)
	}
	if !cfg.Store.InMemory || cfg.Store.BlobBaseURL != "https://cdn.example.com/videos" {
		t.Errorf("Store = %+v", cfg.Store)
	}
	if cfg.Auth.StaticUserID != "from-file" || cfg.Auth.JWTSecret != testSecret {
		t.Errorf("Auth = %+v", cfg.Auth)
	}
	want := []string{"https://b.example.com", "https://c.example.com"}
	if !reflect.DeepEqual(cfg.Server.CORSOrigins, want) {
		t.Errorf("Server.CORSOrigins = %v, want %v", cfg.Server.CORSOrigins, want)
	}
}

func TestLoadFile_NoFile(t *testing.T) {
	t.Setenv("AUTH_STATIC_USER_ID", "dev")
	t.Setenv("STORE_IN_MEMORY", "true")

	cfg, err := LoadFile("")
	if err != nil {
		t.Fatalf("LoadFile() error = %v", err)
	}
	if cfg.Auth.StaticUserID != "dev" || !cfg.Store.InMemory {
		t.Errorf("env not applied: auth=%+v store=%+v", cfg.Auth, cfg.Store)
	}
	if cfg.Server.Addr() != "0.0.0.0:8740" {
		t.Errorf("Addr() = %q", cfg.Server.Addr())
	}
}

func TestLoadFile_InvalidRejected(t *testing.T) {
	t.Setenv("AUTH_STATIC_USER_ID", "dev")
	t.Setenv("FEED_PAGE_SIZE", "0")

	if _, err := LoadFile(""); err == nil || !strings.Contains(err.Error(), "feed") {
		t.Fatalf("LoadFile() error = %v, want feed validation error", err)
	}
}

func TestFindConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "custom.yaml")
	if err := os.WriteFile(path, []byte("server:\n  port: 1\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	t.Setenv(ConfigPathEnvVar, path)
	if got := findConfigFile(); got != path {
		t.Errorf("findConfigFile() = %q, want %q", got, path)
	}

	t.Setenv(ConfigPathEnvVar, filepath.Join(dir, "missing.yaml"))
	old := DefaultConfigPaths
	DefaultConfigPaths = []string{filepath.Join(dir, "nope.yaml")}
	t.Cleanup(func() { DefaultConfigPaths = old })
	if got := findConfigFile(); got != "" {
		t.Errorf("findConfigFile() = %q, want empty", got)
	}
}

func TestLoadDotEnv(t *testing.T) {
	const key = "TUNEREEL_TEST_DOTENV"
	const preset = "TUNEREEL_TEST_DOTENV_PRESET"

	// Register cleanup, then leave key unset so the file can fill it.
	t.Setenv(key, "")
	if err := os.Unsetenv(key); err != nil {
		t.Fatal(err)
	}
	t.Setenv(preset, "from-env")

	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	content := key + "=from-file\n" + preset + "=from-file\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	if err := loadDotEnv(path); err != nil {
		t.Fatalf("loadDotEnv() error = %v", err)
	}
	if got := os.Getenv(key); got != "from-file" {
		t.Errorf("%s = %q, want from-file", key, got)
	}
	if got := os.Getenv(preset); got != "from-env" {
		t.Errorf("%s = %q, existing variables must win", preset, got)
	}

	if err := loadDotEnv(filepath.Join(dir, "absent.env")); err != nil {
		t.Errorf("missing dotenv should be ignored, got %v", err)
	}
}

func TestEnvTransformFunc(t *testing.T) {
	tests := []struct {
		env  string
		want string
	}{
		{"HTTP_PORT", "server.port"},
		{"jwt_secret", "auth.jwt_secret"},
		{"FEED_BACKOFF_INITIAL", "feed.backoff.initial"},
		{"PATH", ""},
		{"HOME", ""},
	}
	for _, tt := range tests {
		if got := envTransformFunc(tt.env); got != tt.want {
			t.Errorf("envTransformFunc(%q) = %q, want %q", tt.env, got, tt.want)
		}
	}
}
