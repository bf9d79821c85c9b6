// Tunereel - Music Discovery Video Feed Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tunereel

package feed

import (
	"fmt"
	"time"
)

// Config controls a feed session.
type Config struct {
	// PageSize is the number of candidates requested per page.
	PageSize int `koanf:"page_size" json:"page_size"`

	// PreloadThreshold triggers the next page fetch when this many or fewer
	// items remain ahead of focus.
	PreloadThreshold int `koanf:"preload_threshold" json:"preload_threshold"`

	// LookBehind is how many passed items are kept before eviction.
	LookBehind int `koanf:"look_behind" json:"look_behind"`

	// EvictedMemory bounds how many evicted ids are remembered.
	EvictedMemory int `koanf:"evicted_memory" json:"evicted_memory"`

	// EvictedTTL is how long an evicted id stays blocked.
	EvictedTTL time.Duration `koanf:"evicted_ttl" json:"evicted_ttl"`

	// Backoff controls retries of failed page loads.
	Backoff BackoffConfig `koanf:"backoff" json:"backoff"`

	// SubscriberBuffer is the event channel capacity per subscriber.
	SubscriberBuffer int `koanf:"subscriber_buffer" json:"subscriber_buffer"`

	// RecentInteractions caps the interaction buffer used for ranking.
	RecentInteractions int `koanf:"recent_interactions" json:"recent_interactions"`

	// InteractionThreshold is the watched ratio that counts as an interaction.
	InteractionThreshold float64 `koanf:"interaction_threshold" json:"interaction_threshold"`

	// SessionIdleTimeout disposes sessions unused for this long.
	SessionIdleTimeout time.Duration `koanf:"session_idle_timeout" json:"session_idle_timeout"`
}

// BackoffConfig is a capped exponential backoff without jitter.
type BackoffConfig struct {
	Initial     time.Duration `koanf:"initial" json:"initial"`
	Max         time.Duration `koanf:"max" json:"max"`
	Multiplier  float64       `koanf:"multiplier" json:"multiplier"`
	MaxAttempts int           `koanf:"max_attempts" json:"max_attempts"`
}

// DefaultConfig returns production defaults.
func DefaultConfig() Config {
	return Config{
		PageSize:             20,
		PreloadThreshold:     3,
		LookBehind:           5,
		EvictedMemory:        10000,
		EvictedTTL:           6 * time.Hour,
		Backoff:              BackoffConfig{Initial: time.Second, Max: 10 * time.Second, Multiplier: 2, MaxAttempts: 3},
		SubscriberBuffer:     32,
		RecentInteractions:   20,
		InteractionThreshold: 0.5,
		SessionIdleTimeout:   15 * time.Minute,
	}
}

// Validate checks the configuration ranges.
func (c Config) Validate() error {
	if c.PageSize < 1 || c.PageSize > 100 {
		return fmt.Errorf("page_size must be between 1 and 100, got %d", c.PageSize)
	}
	if c.PreloadThreshold < 0 {
		return fmt.Errorf("preload_threshold must be non-negative, got %d", c.PreloadThreshold)
	}
	if c.LookBehind < 0 {
		return fmt.Errorf("look_behind must be non-negative, got %d", c.LookBehind)
	}
	if c.Backoff.Initial <= 0 || c.Backoff.Max < c.Backoff.Initial {
		return fmt.Errorf("backoff initial must be positive and not above max (%v, %v)", c.Backoff.Initial, c.Backoff.Max)
	}
	if c.Backoff.Multiplier < 1 {
		return fmt.Errorf("backoff multiplier must be at least 1, got %v", c.Backoff.Multiplier)
	}
	if c.Backoff.MaxAttempts < 0 {
		return fmt.Errorf("backoff max_attempts must be non-negative, got %d", c.Backoff.MaxAttempts)
	}
	if c.InteractionThreshold < 0 || c.InteractionThreshold > 1 {
		return fmt.Errorf("interaction_threshold must be in [0,1], got %v", c.InteractionThreshold)
	}
	return nil
}

// withDefaults fills zero fields from DefaultConfig.
func (c Config) withDefaults() Config {
	def := DefaultConfig()
	if c.PageSize == 0 {
		c.PageSize = def.PageSize
	}
	if c.EvictedMemory == 0 {
		c.EvictedMemory = def.EvictedMemory
	}
	if c.EvictedTTL == 0 {
		c.EvictedTTL = def.EvictedTTL
	}
	if c.Backoff.Initial == 0 {
		c.Backoff.Initial = def.Backoff.Initial
	}
	if c.Backoff.Max == 0 {
		c.Backoff.Max = def.Backoff.Max
	}
	if c.Backoff.Multiplier == 0 {
		c.Backoff.Multiplier = def.Backoff.Multiplier
	}
	if c.SubscriberBuffer <= 0 {
		c.SubscriberBuffer = def.SubscriberBuffer
	}
	if c.RecentInteractions <= 0 {
		c.RecentInteractions = def.RecentInteractions
	}
	if c.InteractionThreshold == 0 {
		c.InteractionThreshold = def.InteractionThreshold
	}
	if c.SessionIdleTimeout == 0 {
		c.SessionIdleTimeout = def.SessionIdleTimeout
	}
	return c
}
