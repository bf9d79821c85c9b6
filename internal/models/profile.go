// Tunereel - Music Discovery Video Feed Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tunereel

package models

import (
	"time"
)

// TimeOfDay buckets the wall clock into viewing periods.
type TimeOfDay string

const (
	TimeOfDayMorning   TimeOfDay = "morning"
	TimeOfDayAfternoon TimeOfDay = "afternoon"
	TimeOfDayEvening   TimeOfDay = "evening"
	TimeOfDayNight     TimeOfDay = "night"
)

// TimeOfDayAt returns the bucket for t in t's location.
func TimeOfDayAt(t time.Time) TimeOfDay {
	switch h := t.Hour(); {
	case h >= 5 && h < 12:
		return TimeOfDayMorning
	case h >= 12 && h < 17:
		return TimeOfDayAfternoon
	case h >= 17 && h < 22:
		return TimeOfDayEvening
	default:
		return TimeOfDayNight
	}
}

// DeviceType is the class of device a profile prefers or a session runs on.
type DeviceType string

const (
	DeviceMobile  DeviceType = "mobile"
	DeviceTablet  DeviceType = "tablet"
	DeviceDesktop DeviceType = "desktop"
	DeviceTV      DeviceType = "tv"
)

// UserProfile is the personalization state of one user. It is owned by the
// feed session and only changed through ProfilePatch updates.
type UserProfile struct {
	UserID                 string              `json:"user_id"`
	PreferredGenres        []string            `json:"preferred_genres,omitempty"`
	PreferredMoods         []string            `json:"preferred_moods,omitempty"`
	PreferredArtists       []string            `json:"preferred_artists,omitempty"`
	LikedVideos            map[string]struct{} `json:"liked_videos,omitempty"`
	WatchHistory           []string            `json:"watch_history,omitempty"`
	TotalWatchTime         time.Duration       `json:"total_watch_time"`
	AverageSessionDuration time.Duration       `json:"average_session_duration"`
	PreferredTimeOfDay     TimeOfDay           `json:"preferred_time_of_day,omitempty"`
	PreferredDeviceType    DeviceType          `json:"preferred_device_type,omitempty"`
	PreferredLanguage      string              `json:"preferred_language,omitempty"`
	PreferredRegion        string              `json:"preferred_region,omitempty"`
}

// Liked reports whether the user has liked videoID.
func (p *UserProfile) Liked(videoID string) bool {
	if p == nil || p.LikedVideos == nil {
		return false
	}
	_, ok := p.LikedVideos[videoID]
	return ok
}

// IsEmpty reports whether the profile carries no preference signal at all.
func (p *UserProfile) IsEmpty() bool {
	return p == nil || (len(p.PreferredGenres) == 0 && len(p.PreferredMoods) == 0 && len(p.PreferredArtists) == 0)
}

// Clone returns a deep copy of the profile.
func (p *UserProfile) Clone() *UserProfile {
	if p == nil {
		return nil
	}
	out := *p
	out.PreferredGenres = append([]string(nil), p.PreferredGenres...)
	out.PreferredMoods = append([]string(nil), p.PreferredMoods...)
	out.PreferredArtists = append([]string(nil), p.PreferredArtists...)
	out.WatchHistory = append([]string(nil), p.WatchHistory...)
	if p.LikedVideos != nil {
		out.LikedVideos = make(map[string]struct{}, len(p.LikedVideos))
		for id := range p.LikedVideos {
			out.LikedVideos[id] = struct{}{}
		}
	}
	return &out
}

// ProfilePatch is a partial profile update. Nil fields are left untouched.
type ProfilePatch struct {
	PreferredGenres     []string      `json:"preferred_genres,omitempty" validate:"omitempty,max=50,dive,min=1,max=64"`
	PreferredMoods      []string      `json:"preferred_moods,omitempty" validate:"omitempty,max=50,dive,min=1,max=64"`
	PreferredArtists    []string      `json:"preferred_artists,omitempty" validate:"omitempty,max=200,dive,min=1,max=128"`
	PreferredTimeOfDay  *TimeOfDay    `json:"preferred_time_of_day,omitempty" validate:"omitempty,oneof=morning afternoon evening night"`
	PreferredDeviceType *DeviceType   `json:"preferred_device_type,omitempty" validate:"omitempty,oneof=mobile tablet desktop tv"`
	PreferredLanguage   *string       `json:"preferred_language,omitempty" validate:"omitempty,min=2,max=16"`
	PreferredRegion     *string       `json:"preferred_region,omitempty" validate:"omitempty,min=2,max=16"`
	AddLiked            []string      `json:"add_liked,omitempty" validate:"omitempty,dive,min=1,max=128"`
	AppendWatched       []string      `json:"append_watched,omitempty" validate:"omitempty,dive,min=1,max=128"`
	AddWatchTime        time.Duration `json:"add_watch_time,omitempty" validate:"gte=0"`
}

// Apply merges the patch into p in place.
func (patch ProfilePatch) Apply(p *UserProfile) {
	if patch.PreferredGenres != nil {
		p.PreferredGenres = append([]string(nil), patch.PreferredGenres...)
	}
	if patch.PreferredMoods != nil {
		p.PreferredMoods = append([]string(nil), patch.PreferredMoods...)
	}
	if patch.PreferredArtists != nil {
		p.PreferredArtists = append([]string(nil), patch.PreferredArtists...)
	}
	if patch.PreferredTimeOfDay != nil {
		p.PreferredTimeOfDay = *patch.PreferredTimeOfDay
	}
	if patch.PreferredDeviceType != nil {
		p.PreferredDeviceType = *patch.PreferredDeviceType
	}
	if patch.PreferredLanguage != nil {
		p.PreferredLanguage = *patch.PreferredLanguage
	}
	if patch.PreferredRegion != nil {
		p.PreferredRegion = *patch.PreferredRegion
	}
	if len(patch.AddLiked) > 0 {
		if p.LikedVideos == nil {
			p.LikedVideos = make(map[string]struct{}, len(patch.AddLiked))
		}
		for _, id := range patch.AddLiked {
			p.LikedVideos[id] = struct{}{}
		}
	}
	p.WatchHistory = append(p.WatchHistory, patch.AppendWatched...)
	p.TotalWatchTime += patch.AddWatchTime
}

// Interaction is a recent watch or like used for content-similarity ranking.
type Interaction struct {
	VideoID    string         `json:"video_id"`
	Genre      string         `json:"genre,omitempty"`
	Mood       string         `json:"mood,omitempty"`
	Audio      *AudioFeatures `json:"audio_features,omitempty"`
	Completion float64        `json:"completion"`
	Liked      bool           `json:"liked,omitempty"`
	OccurredAt time.Time      `json:"occurred_at"`
}

// InteractionFrom builds an Interaction snapshot of c.
func InteractionFrom(c Candidate, completion float64, liked bool, at time.Time) Interaction {
	in := Interaction{
		VideoID:    c.ID,
		Genre:      c.Genre,
		Mood:       c.Mood,
		Completion: completion,
		Liked:      liked,
		OccurredAt: at,
	}
	if c.Audio != nil {
		a := *c.Audio
		in.Audio = &a
	}
	return in
}
