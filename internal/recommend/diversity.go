// Tunereel - Music Discovery Video Feed Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tunereel

package recommend

import "github.com/tomtom215/tunereel/internal/models"

// diversify reorders a ranked page with Maximal Marginal Relevance. Each
// position takes the candidate maximizing
//
//	(1-d)*score - d*max(sim(c, s) for s already placed)
//
// where d is the diversity in [0, 1]. Scores are not changed. Ties keep
// ranking order, so the result is still deterministic.
//
// Reference:
// Carbonell, J., & Goldstein, J. (1998). "The Use of MMR, Diversity-Based
// Reranking for Reordering Documents and Producing Summaries." SIGIR 1998.
func diversify(ranked []ScoredCandidate, d float64) []ScoredCandidate {
	if len(ranked) < 3 || d <= 0 {
		return ranked
	}
	if d > 1 {
		d = 1
	}

	out := make([]ScoredCandidate, 0, len(ranked))
	placed := make([]bool, len(ranked))
	maxSim := make([]float64, len(ranked))

	for len(out) < len(ranked) {
		best := -1
		bestValue := 0.0
		for i := range ranked {
			if placed[i] {
				continue
			}
			v := (1-d)*ranked[i].Score - d*maxSim[i]
			if best < 0 || v > bestValue {
				best, bestValue = i, v
			}
		}

		placed[best] = true
		out = append(out, ranked[best])
		for i := range ranked {
			if !placed[i] {
				if s := itemSimilarity(ranked[i].Candidate, ranked[best].Candidate); s > maxSim[i] {
					maxSim[i] = s
				}
			}
		}
	}
	return out
}

// itemSimilarity is 1 for the same artist, otherwise 0.5 for a shared genre
// plus 0.25 for a shared mood.
func itemSimilarity(a, b models.Candidate) float64 {
	if matchFold(a.Artist, b.Artist) {
		return 1
	}
	sim := 0.0
	if matchFold(a.Genre, b.Genre) {
		sim += 0.5
	}
	if matchFold(a.Mood, b.Mood) {
		sim += 0.25
	}
	return sim
}
