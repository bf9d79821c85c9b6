// Tunereel - Music Discovery Video Feed Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tunereel

package models

import (
	"time"
)

// AudioFeatures describes the audio analysis attached to a video's soundtrack.
// Energy and Danceability are in [0,1]; Tempo is in beats per minute.
type AudioFeatures struct {
	Tempo        float64 `json:"tempo"`
	Key          int     `json:"key"`
	Energy       float64 `json:"energy"`
	Danceability float64 `json:"danceability"`
}

// Engagement holds the public counters of a video. Counters may be bumped
// locally before the remote store acknowledges the write.
type Engagement struct {
	Likes    int64 `json:"likes"`
	Comments int64 `json:"comments"`
	Shares   int64 `json:"shares"`
	Views    int64 `json:"views"`
}

// Interactions returns likes+comments+shares.
func (e Engagement) Interactions() int64 {
	return e.Likes + e.Comments + e.Shares
}

// Add applies a delta to the counters.
func (e *Engagement) Add(d EngagementDelta) {
	e.Likes += d.Likes
	e.Comments += d.Comments
	e.Shares += d.Shares
	e.Views += d.Views
}

// EngagementDelta is an increment applied to a video's engagement counters.
type EngagementDelta struct {
	Likes    int64 `json:"likes,omitempty"`
	Comments int64 `json:"comments,omitempty"`
	Shares   int64 `json:"shares,omitempty"`
	Views    int64 `json:"views,omitempty"`
}

// IsZero reports whether the delta changes nothing.
func (d EngagementDelta) IsZero() bool {
	return d == EngagementDelta{}
}

// Candidate is a video plus the metadata needed to rank, resolve and play it.
//
// Genre, Mood and Audio are optional: an empty string or nil pointer means the
// feature is unknown. A Candidate is immutable once fetched except for its
// Engagement counters.
type Candidate struct {
	ID             string         `json:"id"`
	Title          string         `json:"title"`
	Artist         string         `json:"artist"`
	Tags           []string       `json:"tags,omitempty"`
	Genre          string         `json:"genre,omitempty"`
	Mood           string         `json:"mood,omitempty"`
	Audio          *AudioFeatures `json:"audio_features,omitempty"`
	Engagement     Engagement     `json:"engagement"`
	CompletionRate float64        `json:"completion_rate"`
	UploadedAt     time.Time      `json:"upload_timestamp"`
	StorageRef     string         `json:"storage_ref"`
	Language       string         `json:"language,omitempty"`
	Region         string         `json:"region,omitempty"`
	Duration       time.Duration  `json:"duration"`
}

// Clone returns a deep copy so callers can hand candidates across goroutines
// without sharing the tag slice or audio features.
func (c Candidate) Clone() Candidate {
	out := c
	if c.Tags != nil {
		out.Tags = append([]string(nil), c.Tags...)
	}
	if c.Audio != nil {
		a := *c.Audio
		out.Audio = &a
	}
	return out
}

// Valid reports whether the candidate carries the fields the feed cannot work without.
func (c Candidate) Valid() bool {
	return c.ID != "" && c.StorageRef != ""
}
