// Tunereel - Music Discovery Video Feed Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tunereel

package recommend

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/tunereel/internal/metrics"
	"github.com/tomtom215/tunereel/internal/models"
)

// Ranker scores and orders pages of candidates against a user profile.
// Scoring is pure: it reads no state besides the configuration and clock.
// It is safe for concurrent use.
type Ranker struct {
	cfg     *Config
	weights Weights
	logger  zerolog.Logger
	now     func() time.Time

	pagesRanked atomic.Int64
}

// NewRanker creates a ranker. A nil cfg uses DefaultConfig.
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func NewRanker(cfg *Config, logger zerolog.Logger) (*Ranker, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid ranking config: %w", err)
	}
	cfg = cfg.Clone()
	return &Ranker{
		cfg:     cfg,
		weights: cfg.Weights.Normalize(),
		logger:  logger.With().Str("component", "ranker").Logger(),
		now:     time.Now,
	}, nil
}

// SetClock replaces the clock used when a Request carries no Now.
func (r *Ranker) SetClock(now func() time.Time) {
	r.now = now
}

// Weights returns the normalized weights in effect.
func (r *Ranker) Weights() Weights {
	return r.weights
}

// PagesRanked returns how many pages this ranker has ordered.
func (r *Ranker) PagesRanked() int64 {
	return r.pagesRanked.Load()
}

// Score returns the total score of c for profile given recent interactions.
func (r *Ranker) Score(c models.Candidate, profile *models.UserProfile, recent []models.Interaction) float64 {
	score, _ := r.score(c, r.prepare(Request{Profile: profile, Recent: recent}))
	return score
}

// Rank scores candidates and returns them sorted by descending score.
// Ties break by descending upload time, then ascending id, so the order
// is a deterministic total order. With Config.Diversity set the sorted page
// is then reordered by diversify. The input slice is not modified.
func (r *Ranker) Rank(candidates []models.Candidate, req Request) []ScoredCandidate {
	start := time.Now()
	p := r.prepare(req)

	scored := make([]ScoredCandidate, len(candidates))
	for i := range candidates {
		s, b := r.score(candidates[i], p)
		scored[i] = ScoredCandidate{
			Candidate: candidates[i],
			Score:     s,
			Breakdown: b,
			Reason:    r.reason(b, p.cold),
		}
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return Less(scored[i], scored[j])
	})
	if r.cfg.Diversity > 0 {
		scored = diversify(scored, r.cfg.Diversity)
	}

	r.pagesRanked.Add(1)
	metrics.RecordRanking(len(scored), p.cold, time.Since(start))
	r.logger.Debug().
		Int("candidates", len(scored)).
		Bool("cold_start", p.cold).
		Dur("duration", time.Since(start)).
		Msg("Ranked page")

	return scored
}

// Less is the ranking order: higher score first, then newer upload, then id.
//
//nolint:gocritic // ScoredCandidate is compared by value in sort callbacks
func Less(a, b ScoredCandidate) bool {
	if a.Score != b.Score {
		return a.Score > b.Score
	}
	if !a.Candidate.UploadedAt.Equal(b.Candidate.UploadedAt) {
		return a.Candidate.UploadedAt.After(b.Candidate.UploadedAt)
	}
	return a.Candidate.ID < b.Candidate.ID
}

// prepared is the per-request state shared across one page.
type prepared struct {
	profile *models.UserProfile
	genres  map[string]struct{}
	moods   map[string]struct{}
	artists map[string]struct{}
	center  centroid
	cold    bool
	device  models.DeviceType
	now     time.Time
}

func (r *Ranker) prepare(req Request) prepared {
	p := prepared{
		profile: req.Profile,
		cold:    req.ColdStart(),
		device:  req.Device,
		now:     req.Now,
	}
	if p.profile == nil {
		p.profile = &models.UserProfile{}
	}
	if p.now.IsZero() {
		p.now = r.now()
	}
	if p.device == "" {
		p.device = p.profile.PreferredDeviceType
	}
	p.genres = toSet(p.profile.PreferredGenres)
	p.moods = toSet(p.profile.PreferredMoods)
	p.artists = toSet(p.profile.PreferredArtists)

	recent := req.Recent
	if len(recent) > r.cfg.MaxInteractions {
		recent = recent[len(recent)-r.cfg.MaxInteractions:]
	}
	p.center = buildCentroid(recent)
	return p
}

// score computes the weighted total. In cold start only preference and upload
// recency contribute, so an empty profile yields pure recency order.
//
//nolint:gocritic // Candidate is read-only here
func (r *Ranker) score(c models.Candidate, p prepared) (float64, Breakdown) {
	var b Breakdown
	b.Preference = r.preference(c, p)
	if p.cold {
		b.Context = r.recency(c, p.now)
	} else {
		b.Similarity = r.similarity(c, p.center)
		b.Engagement = r.engagement(c)
		b.Context = r.context(c, p)
	}

	w := r.weights
	total := w.Preference*b.Preference +
		w.Similarity*b.Similarity +
		w.Engagement*b.Engagement +
		w.Context*b.Context
	return finite(total), b
}

//nolint:gocritic // Candidate is read-only here
func (r *Ranker) preference(c models.Candidate, p prepared) float64 {
	matches := 0
	if has(p.genres, c.Genre) {
		matches++
	}
	if has(p.moods, c.Mood) {
		matches++
	}
	if has(p.artists, c.Artist) {
		matches++
	}
	return float64(matches) / 3
}

//nolint:gocritic // Candidate is read-only here
func (r *Ranker) similarity(c models.Candidate, center centroid) float64 {
	var genre, mood, audio float64
	if c.Genre != "" && strings.EqualFold(c.Genre, center.genre) {
		genre = 1
	}
	if c.Mood != "" && strings.EqualFold(c.Mood, center.mood) {
		mood = 1
	}
	if c.Audio != nil && center.hasAudio {
		audio = r.audioSimilarity(*c.Audio, center.audio)
	}
	return clamp01((genre + mood + audio) / 3)
}

func (r *Ranker) audioSimilarity(a, b models.AudioFeatures) float64 {
	rng := r.cfg.Audio
	sim := featureSimilarity(a.Tempo, b.Tempo, rng.Tempo) +
		featureSimilarity(a.Energy, b.Energy, rng.Energy) +
		featureSimilarity(a.Danceability, b.Danceability, rng.Danceability)
	return clamp01(sim / 3)
}

func featureSimilarity(a, b, span float64) float64 {
	return clamp01(1 - math.Abs(a-b)/span)
}

//nolint:gocritic // Candidate is read-only here
func (r *Ranker) engagement(c models.Candidate) float64 {
	var ratio float64
	if c.Engagement.Views > 0 {
		ratio = float64(c.Engagement.Interactions()) / float64(c.Engagement.Views)
	}
	normalized := clamp01(ratio / r.cfg.EngagementCeiling)
	completion := clamp01(c.CompletionRate)
	share := r.cfg.CompletionShare
	return clamp01(share*completion + (1-share)*normalized)
}

//nolint:gocritic // Candidate is read-only here
func (r *Ranker) context(c models.Candidate, p prepared) float64 {
	var timeOfDay, locale, short float64
	if p.profile.PreferredTimeOfDay != "" && models.TimeOfDayAt(p.now) == p.profile.PreferredTimeOfDay {
		timeOfDay = 1
	}
	if matchFold(c.Language, p.profile.PreferredLanguage) || matchFold(c.Region, p.profile.PreferredRegion) {
		locale = 1
	}
	if p.device == models.DeviceMobile && c.Duration > 0 && c.Duration <= r.cfg.ShortDuration {
		short = 1
	}
	return clamp01((timeOfDay + r.recency(c, p.now) + locale + short) / 4)
}

// recency decays linearly from 1 at upload to 0 at RecencyWindow.
// Future timestamps count as brand new.
//
//nolint:gocritic // Candidate is read-only here
func (r *Ranker) recency(c models.Candidate, now time.Time) float64 {
	if c.UploadedAt.IsZero() {
		return 0
	}
	age := now.Sub(c.UploadedAt)
	if age <= 0 {
		return 1
	}
	return clamp01(1 - float64(age)/float64(r.cfg.RecencyWindow))
}

func (r *Ranker) reason(b Breakdown, cold bool) string {
	if cold {
		if b.Preference > 0 && r.weights.Preference*b.Preference >= r.weights.Context*b.Context {
			return TermPreference
		}
		return TermRecency
	}
	best, bestName := -1.0, TermRecency
	for _, t := range []struct {
		name string
		v    float64
	}{
		{TermPreference, r.weights.Preference * b.Preference},
		{TermSimilarity, r.weights.Similarity * b.Similarity},
		{TermEngagement, r.weights.Engagement * b.Engagement},
		{TermContext, r.weights.Context * b.Context},
	} {
		if t.v > best {
			best, bestName = t.v, t.name
		}
	}
	return bestName
}

// buildCentroid finds the dominant genre and mood (ties broken
// alphabetically) and the mean audio features of interactions.
func buildCentroid(recent []models.Interaction) centroid {
	var c centroid
	if len(recent) == 0 {
		return c
	}
	genres := make(map[string]int)
	moods := make(map[string]int)
	var sum models.AudioFeatures
	n := 0
	for i := range recent {
		in := &recent[i]
		if in.Genre != "" {
			genres[strings.ToLower(in.Genre)]++
		}
		if in.Mood != "" {
			moods[strings.ToLower(in.Mood)]++
		}
		if in.Audio != nil && validAudio(*in.Audio) {
			sum.Tempo += in.Audio.Tempo
			sum.Energy += in.Audio.Energy
			sum.Danceability += in.Audio.Danceability
			n++
		}
	}
	c.genre = dominant(genres)
	c.mood = dominant(moods)
	if n > 0 {
		c.hasAudio = true
		c.audio = models.AudioFeatures{
			Tempo:        sum.Tempo / float64(n),
			Energy:       sum.Energy / float64(n),
			Danceability: sum.Danceability / float64(n),
		}
	}
	return c
}

func dominant(counts map[string]int) string {
	best, bestN := "", 0
	for k, n := range counts {
		if n > bestN || (n == bestN && k < best) {
			best, bestN = k, n
		}
	}
	return best
}

func validAudio(a models.AudioFeatures) bool {
	return !math.IsNaN(a.Tempo) && !math.IsNaN(a.Energy) && !math.IsNaN(a.Danceability) &&
		!math.IsInf(a.Tempo, 0) && !math.IsInf(a.Energy, 0) && !math.IsInf(a.Danceability, 0)
}

func toSet(values []string) map[string]struct{} {
	set := make(map[string]struct{}, len(values))
	for _, v := range values {
		if v = strings.ToLower(strings.TrimSpace(v)); v != "" {
			set[v] = struct{}{}
		}
	}
	return set
}

func has(set map[string]struct{}, v string) bool {
	if v == "" {
		return false
	}
	_, ok := set[strings.ToLower(v)]
	return ok
}

func matchFold(a, b string) bool {
	return a != "" && b != "" && strings.EqualFold(a, b)
}

// finite maps NaN and infinities to 0.
func finite(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

func clamp01(v float64) float64 {
	v = finite(v)
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
