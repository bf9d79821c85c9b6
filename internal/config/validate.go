// Tunereel - Music Discovery Video Feed Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tunereel

package config

import (
	"errors"
	"fmt"
	"net/url"

	"github.com/tomtom215/tunereel/internal/auth"
)

var validLogLevels = map[string]bool{
	"trace": true,
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

var validLogFormats = map[string]bool{
	"json":    true,
	"console": true,
}

// Validate checks that required configuration is present and valid.
func (c *Config) Validate() error {
	checks := []struct {
		section string
		fn      func() error
	}{
		{"server", c.validateServer},
		{"logging", c.validateLogging},
		{"feed", c.Feed.Validate},
		{"ranking", c.Ranking.Validate},
		{"quality", c.validateQuality},
		{"preload", c.validatePreload},
		{"store", c.validateStore},
		{"connectivity", c.Connectivity.Validate},
		{"auth", c.validateAuth},
		{"engagement", c.validateEngagement},
		{"nats", c.validateNATS},
		{"breaker", c.validateBreaker},
	}
	for _, check := range checks {
		if err := check.fn(); err != nil {
			return fmt.Errorf("%s: %w", check.section, err)
		}
	}
	return nil
}

func (c *Config) validateServer() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("HTTP_PORT must be between 1 and 65535, got %d", c.Server.Port)
	}
	if c.Server.ReadTimeout <= 0 || c.Server.WriteTimeout <= 0 {
		return errors.New("HTTP read and write timeouts must be positive")
	}
	if c.Server.RateLimitDisabled {
		return nil
	}
	if c.Server.RateLimitRequests < 1 {
		return fmt.Errorf("RATE_LIMIT_REQUESTS must be positive, got %d", c.Server.RateLimitRequests)
	}
	if c.Server.RateLimitWindow <= 0 {
		return fmt.Errorf("RATE_LIMIT_WINDOW must be positive, got %v", c.Server.RateLimitWindow)
	}
	return nil
}

func (c *Config) validateLogging() error {
	if !validLogLevels[c.Logging.Level] {
		return fmt.Errorf("LOG_LEVEL must be one of: trace, debug, info, warn, error")
	}
	if c.Logging.Format != "" && !validLogFormats[c.Logging.Format] {
		return fmt.Errorf("LOG_FORMAT must be one of: json, console")
	}
	return nil
}

func (c *Config) validateQuality() error {
	l := c.Quality.Labels
	if l.Low == "" || l.Medium == "" || l.High == "" {
		return fmt.Errorf("all tier labels are required, got %+v", l)
	}
	if l.Low == l.Medium || l.Medium == l.High || l.Low == l.High {
		return fmt.Errorf("tier labels must be distinct, got %+v", l)
	}
	if c.Quality.URLCacheTTL <= 0 {
		return fmt.Errorf("url_cache_ttl must be positive, got %v", c.Quality.URLCacheTTL)
	}
	return nil
}

func (c *Config) validatePreload() error {
	if c.Preload.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive, got %v", c.Preload.Timeout)
	}
	if c.Preload.RetryDelay < 0 {
		return fmt.Errorf("retry_delay must be non-negative, got %v", c.Preload.RetryDelay)
	}
	if c.Preload.Concurrency < 1 {
		return fmt.Errorf("concurrency must be at least 1, got %d", c.Preload.Concurrency)
	}
	return nil
}

func (c *Config) validateStore() error {
	if !c.Store.InMemory && c.Store.BadgerPath == "" {
		return errors.New("BADGER_PATH is required unless STORE_IN_MEMORY=true")
	}
	if c.Store.BlobBaseURL != "" {
		if err := validateHTTPURL(c.Store.BlobBaseURL, "BLOB_BASE_URL"); err != nil {
			return err
		}
		if c.Store.RequestTimeout <= 0 {
			return fmt.Errorf("BLOB_REQUEST_TIMEOUT must be positive, got %v", c.Store.RequestTimeout)
		}
	}
	if c.Store.ProfileCacheSize < 0 {
		return fmt.Errorf("PROFILE_CACHE_SIZE must be non-negative, got %d", c.Store.ProfileCacheSize)
	}
	return nil
}

func (c *Config) validateAuth() error {
	if c.Auth.JWTSecret == "" && c.Auth.StaticUserID == "" {
		return errors.New("JWT_SECRET or AUTH_STATIC_USER_ID is required")
	}
	if c.Auth.JWTSecret != "" && len(c.Auth.JWTSecret) < auth.MinSecretLength {
		return fmt.Errorf("JWT_SECRET must be at least %d characters", auth.MinSecretLength)
	}
	if c.Auth.TokenTTL <= 0 {
		return fmt.Errorf("JWT_TOKEN_TTL must be positive, got %v", c.Auth.TokenTTL)
	}
	return nil
}

func (c *Config) validateEngagement() error {
	if c.Engagement.Topic == "" {
		return errors.New("topic is required")
	}
	if c.Engagement.QueueBuffer < 1 {
		return fmt.Errorf("queue_buffer must be at least 1, got %d", c.Engagement.QueueBuffer)
	}
	if c.Engagement.WritesPerSecond < 0 {
		return fmt.Errorf("writes_per_second must be non-negative, got %v", c.Engagement.WritesPerSecond)
	}
	if c.Engagement.Burst < 0 {
		return fmt.Errorf("burst must be non-negative, got %d", c.Engagement.Burst)
	}
	return nil
}

func (c *Config) validateNATS() error {
	if !c.NATS.Enabled {
		return nil
	}
	u, err := url.Parse(c.NATS.URL)
	if err != nil {
		return fmt.Errorf("NATS_URL failed to parse: %w", err)
	}
	switch u.Scheme {
	case "nats", "tls", "ws", "wss":
	default:
		return fmt.Errorf("NATS_URL scheme must be nats, tls, ws or wss, got %q", u.Scheme)
	}
	if u.Host == "" {
		return errors.New("NATS_URL host is required")
	}
	return nil
}

func (c *Config) validateBreaker() error {
	if c.Breaker.FailureRatio <= 0 || c.Breaker.FailureRatio > 1 {
		return fmt.Errorf("failure_ratio must be in (0, 1], got %v", c.Breaker.FailureRatio)
	}
	if c.Breaker.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive, got %v", c.Breaker.Timeout)
	}
	return nil
}

// validateHTTPURL checks for an absolute http(s) URL without a query.
func validateHTTPURL(rawURL, fieldName string) error {
	parsedURL, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("%s failed to parse URL: %w", fieldName, err)
	}
	if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
		return fmt.Errorf("%s scheme must be http or https, got: %s", fieldName, parsedURL.Scheme)
	}
	if parsedURL.Host == "" {
		return fmt.Errorf("%s host is required", fieldName)
	}
	if parsedURL.RawQuery != "" {
		return fmt.Errorf("%s should not contain query parameters, remove: ?%s", fieldName, parsedURL.RawQuery)
	}
	return nil
}
