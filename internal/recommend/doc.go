// Tunereel - Music Discovery Video Feed Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tunereel

// Package recommend implements the personalization ranker for feed pages.
//
// # Scoring
//
// Each candidate receives a weighted sum of four terms, each in [0,1]:
//
//   - Preference (0.3): genre, mood and artist matches against the profile, divided by 3
//   - Similarity (0.3): match with the dominant genre/mood of recent interactions
//     and mean audio-feature similarity (tempo, energy, danceability)
//   - Engagement (0.2): 0.4 × completion rate + 0.6 × normalized interaction ratio
//   - Context (0.2): time-of-day match, 24h upload recency, language/region match,
//     and a short-video bonus on mobile
//
// Weights come from Config and are normalized, so the split is tunable.
// Missing features contribute 0; every term is sanitized so a score is never NaN.
//
// # Cold Start
//
// Without recent interactions, only preference and upload recency count.
// An empty profile therefore yields pure newest-first ordering.
//
// # Ordering
//
// Rank sorts by descending score, then descending upload time, then ascending
// id. A page is ranked once when fetched; the feed never re-sorts held items.
//
// # Usage
//
//	ranker, err := recommend.NewRanker(recommend.DefaultConfig(), logger)
//	ordered := ranker.Rank(page, recommend.Request{Profile: profile, Recent: recent})
package recommend
