// Tunereel - Music Discovery Video Feed Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tunereel

package recommend

import (
	"fmt"
	"math"
	"time"
)

// Config contains all configuration for the personalization ranker.
type Config struct {
	// Weights defines the relative contribution of each scoring term.
	// Weights are normalized at construction, so they don't need to sum to 1.0.
	Weights Weights `json:"weights" koanf:"weights"`

	// Audio holds the normalization ranges for audio-feature similarity.
	Audio AudioRanges `json:"audio" koanf:"audio"`

	// EngagementCeiling is the (likes+comments+shares)/views ratio that maps to
	// a normalized engagement of 1.0. Higher ratios are clamped.
	// Default: 0.25.
	EngagementCeiling float64 `json:"engagement_ceiling" koanf:"engagement_ceiling"`

	// CompletionShare is the share of the engagement term taken by completion rate.
	// The interaction ratio gets the remainder.
	// Default: 0.4.
	CompletionShare float64 `json:"completion_share" koanf:"completion_share"`

	// RecencyWindow is the span over which upload recency decays linearly to zero.
	// Default: 24h.
	RecencyWindow time.Duration `json:"recency_window" koanf:"recency_window"`

	// ShortDuration is the maximum duration that earns the mobile short-video bonus.
	// Default: 60s.
	ShortDuration time.Duration `json:"short_duration" koanf:"short_duration"`

	// MaxInteractions caps how many recent interactions feed the similarity centroid.
	// Default: 20.
	MaxInteractions int `json:"max_interactions" koanf:"max_interactions"`

	// Diversity in [0, 1] reorders each ranked page so the same artist or
	// genre does not repeat back to back. 0 keeps pure score order.
	// Default: 0.
	Diversity float64 `json:"diversity" koanf:"diversity"`
}

// Weights defines the relative contribution of each scoring term.
type Weights struct {
	// Preference is the weight of genre/mood/artist matches against the profile.
	Preference float64 `json:"preference" koanf:"preference"`

	// Similarity is the weight of similarity to recent interactions.
	Similarity float64 `json:"similarity" koanf:"similarity"`

	// Engagement is the weight of completion rate and interaction ratio.
	Engagement float64 `json:"engagement" koanf:"engagement"`

	// Context is the weight of time-of-day, recency, locale and device fit.
	Context float64 `json:"context" koanf:"context"`
}

// DefaultWeights returns the canonical 0.3/0.3/0.2/0.2 split.
func DefaultWeights() Weights {
	return Weights{Preference: 0.3, Similarity: 0.3, Engagement: 0.2, Context: 0.2}
}

// Normalize returns a copy with weights normalized to sum to 1.0.
// All-zero weights normalize to equal weights.
//
//nolint:gocritic // value receiver is intentional for immutable semantics
func (w Weights) Normalize() Weights {
	sum := w.Preference + w.Similarity + w.Engagement + w.Context
	if sum == 0 {
		return Weights{Preference: 0.25, Similarity: 0.25, Engagement: 0.25, Context: 0.25}
	}
	return Weights{
		Preference: w.Preference / sum,
		Similarity: w.Similarity / sum,
		Engagement: w.Engagement / sum,
		Context:    w.Context / sum,
	}
}

// ToMap returns the weights keyed by term name.
//
//nolint:gocritic // value receiver is intentional for immutable semantics
func (w Weights) ToMap() map[string]float64 {
	return map[string]float64{
		TermPreference: w.Preference,
		TermSimilarity: w.Similarity,
		TermEngagement: w.Engagement,
		TermContext:    w.Context,
	}
}

// AudioRanges are the spans used to turn absolute feature differences into
// similarities: sim = 1 - |a-b|/range.
type AudioRanges struct {
	// Tempo range in BPM. Default: 200.
	Tempo float64 `json:"tempo" koanf:"tempo"`
	// Energy range. Default: 1.
	Energy float64 `json:"energy" koanf:"energy"`
	// Danceability range. Default: 1.
	Danceability float64 `json:"danceability" koanf:"danceability"`
}

// DefaultConfig returns a Config with production defaults.
func DefaultConfig() *Config {
	return &Config{
		Weights: DefaultWeights(),
		Audio: AudioRanges{
			Tempo:        200,
			Energy:       1,
			Danceability: 1,
		},
		EngagementCeiling: 0.25,
		CompletionShare:   0.4,
		RecencyWindow:     24 * time.Hour,
		ShortDuration:     60 * time.Second,
		MaxInteractions:   20,
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	for name, w := range c.Weights.ToMap() {
		if w < 0 || math.IsNaN(w) || math.IsInf(w, 0) {
			return fmt.Errorf("weights.%s must be a non-negative number, got %f", name, w)
		}
	}
	if c.Audio.Tempo <= 0 || c.Audio.Energy <= 0 || c.Audio.Danceability <= 0 {
		return fmt.Errorf("audio ranges must be positive, got %+v", c.Audio)
	}
	if c.EngagementCeiling <= 0 {
		return fmt.Errorf("engagement_ceiling must be positive, got %f", c.EngagementCeiling)
	}
	if c.CompletionShare < 0 || c.CompletionShare > 1 {
		return fmt.Errorf("completion_share must be in [0, 1], got %f", c.CompletionShare)
	}
	if c.RecencyWindow <= 0 {
		return fmt.Errorf("recency_window must be positive, got %v", c.RecencyWindow)
	}
	if c.ShortDuration < 0 {
		return fmt.Errorf("short_duration must be non-negative, got %v", c.ShortDuration)
	}
	if c.MaxInteractions < 1 {
		return fmt.Errorf("max_interactions must be positive, got %d", c.MaxInteractions)
	}
	if c.Diversity < 0 || c.Diversity > 1 || math.IsNaN(c.Diversity) {
		return fmt.Errorf("diversity must be in [0, 1], got %f", c.Diversity)
	}
	return nil
}

// Clone returns a copy of the configuration. All fields are values.
func (c *Config) Clone() *Config {
	out := *c
	return &out
}
