// Tunereel - Music Discovery Video Feed Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tunereel

package recommend

import (
	"time"

	"github.com/tomtom215/tunereel/internal/models"
)

// Term names used in score breakdowns, reasons and metrics labels.
const (
	TermPreference = "preference"
	TermSimilarity = "similarity"
	TermEngagement = "engagement"
	TermContext    = "context"
	TermRecency    = "recency"
)

// Request carries everything a ranking pass needs besides the candidates.
type Request struct {
	// Profile is the user's profile. Nil is treated as an empty profile.
	Profile *models.UserProfile

	// Recent are the user's most recent interactions, newest last.
	// Empty means cold start.
	Recent []models.Interaction

	// Device overrides Profile.PreferredDeviceType for the short-duration bonus.
	Device models.DeviceType

	// Now is the reference time for recency and time-of-day.
	// Zero uses the ranker's clock.
	Now time.Time
}

// ColdStart reports whether the request has no interaction history.
func (r Request) ColdStart() bool {
	return len(r.Recent) == 0
}

// Breakdown holds the unweighted value of each term, each in [0,1].
type Breakdown struct {
	Preference float64 `json:"preference"`
	Similarity float64 `json:"similarity"`
	Engagement float64 `json:"engagement"`
	Context    float64 `json:"context"`
}

// ScoredCandidate is a candidate with its total score.
type ScoredCandidate struct {
	// Candidate is the ranked video.
	Candidate models.Candidate `json:"candidate"`

	// Score is the weighted sum of the breakdown terms.
	Score float64 `json:"score"`

	// Breakdown holds per-term values for explainability.
	Breakdown Breakdown `json:"breakdown"`

	// Reason names the term that contributed most.
	Reason string `json:"reason"`
}

// centroid summarizes recent interactions for the similarity term.
type centroid struct {
	genre    string
	mood     string
	audio    models.AudioFeatures
	hasAudio bool
}
