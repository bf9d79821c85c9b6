// Tunereel - Music Discovery Video Feed Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tunereel

package main

import (
	"fmt"
	"time"

	"github.com/tomtom215/tunereel/internal/models"
)

var (
	demoGenres  = []string{"pop", "rock", "hip-hop", "electronic", "jazz", "indie"}
	demoMoods   = []string{"energetic", "chill", "happy", "melancholic"}
	demoArtists = []string{"Nova Lane", "The Static Hours", "Kairo", "Mira Vale", "Low Orbit", "Saffron Keys", "Juno Park"}
)

// demoCatalog returns n deterministic candidates uploaded over the hours
// before now. Every seventh candidate carries no audio features and every
// fifth no mood, so rankers see partial metadata too.
func demoCatalog(n int, now time.Time) []models.Candidate {
	docs := make([]models.Candidate, n)
	for i := range docs {
		id := fmt.Sprintf("demo-%03d", i)
		genre := demoGenres[i%len(demoGenres)]

		c := models.Candidate{
			ID:     id,
			Title:  fmt.Sprintf("Track %d", i+1),
			Artist: demoArtists[(i*3)%len(demoArtists)],
			Genre:  genre,
			Tags:   []string{genre, "demo"},
			Engagement: models.Engagement{
				Likes:    int64((i * 37) % 500),
				Comments: int64((i * 11) % 80),
				Shares:   int64((i * 5) % 40),
				Views:    int64(1000 + (i*131)%9000),
			},
			CompletionRate: float64((i*17)%100) / 100,
			UploadedAt:     now.Add(-time.Duration(i+1) * time.Hour).UTC(),
			StorageRef:     "videos/" + id + ".mp4",
			Language:       "en",
			Duration:       time.Duration(15+(i*7)%45) * time.Second,
		}
		if i%5 != 0 {
			c.Mood = demoMoods[i%len(demoMoods)]
		}
		if i%7 != 0 {
			c.Audio = &models.AudioFeatures{
				Tempo:        float64(80 + (i*13)%90),
				Key:          i % 12,
				Energy:       float64((i*29)%100) / 100,
				Danceability: float64((i*43)%100) / 100,
			}
		}
		docs[i] = c
	}
	return docs
}
