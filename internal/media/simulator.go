// Tunereel - Music Discovery Video Feed Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tunereel

package media

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/tomtom215/tunereel/internal/models"
)

// SimulatorConfig tunes the simulated decoder.
type SimulatorConfig struct {
	// OpenLatency is how long Open takes for a healthy URL.
	OpenLatency time.Duration `koanf:"open_latency"`

	// ClipLength is the simulated playback length of every video.
	ClipLength time.Duration `koanf:"clip_length"`

	// TickInterval is how often progress events are emitted while playing.
	TickInterval time.Duration `koanf:"tick_interval"`
}

// DefaultSimulatorConfig returns a 50ms open, 15s clips and 250ms ticks.
func DefaultSimulatorConfig() SimulatorConfig {
	return SimulatorConfig{
		OpenLatency:  50 * time.Millisecond,
		ClipLength:   15 * time.Second,
		TickInterval: 250 * time.Millisecond,
	}
}

type script struct {
	hang int
	fail int
	err  error
}

// Simulator is a Loader that fakes decoding. Failures and hangs can be
// scripted per URL, and it tracks how many resources are loaded.
type Simulator struct {
	cfg SimulatorConfig

	mu      sync.Mutex
	scripts map[string]*script
	live    map[*simResource]struct{}

	opens atomic.Int64
}

// NewSimulator creates a simulator.
func NewSimulator(cfg SimulatorConfig) *Simulator {
	def := DefaultSimulatorConfig()
	if cfg.ClipLength <= 0 {
		cfg.ClipLength = def.ClipLength
	}
	if cfg.TickInterval <= 0 {
		cfg.TickInterval = def.TickInterval
	}
	if cfg.OpenLatency < 0 {
		cfg.OpenLatency = 0
	}
	return &Simulator{
		cfg:     cfg,
		scripts: make(map[string]*script),
		live:    make(map[*simResource]struct{}),
	}
}

// HangNext makes the next n opens of url block until their context ends.
func (s *Simulator) HangNext(url string, n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scriptFor(url).hang = n
}

// FailNext makes the next n opens of url fail with err.
func (s *Simulator) FailNext(url string, n int, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sc := s.scriptFor(url)
	sc.fail, sc.err = n, err
}

// InjectError delivers err to every live resource playing url.
func (s *Simulator) InjectError(url string, err error) int {
	s.mu.Lock()
	targets := make([]*simResource, 0, 1)
	for r := range s.live {
		if r.url == url {
			targets = append(targets, r)
		}
	}
	s.mu.Unlock()

	for _, r := range targets {
		r.emit(Event{Kind: EventError, Err: err})
	}
	return len(targets)
}

// Live returns the number of loaded (not yet unloaded) resources.
func (s *Simulator) Live() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.live)
}

// LiveURLs returns the URLs of loaded resources.
func (s *Simulator) LiveURLs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	urls := make([]string, 0, len(s.live))
	for r := range s.live {
		urls = append(urls, r.url)
	}
	return urls
}

// Opens returns the number of Open calls made.
func (s *Simulator) Opens() int64 {
	return s.opens.Load()
}

// Open implements Loader.
func (s *Simulator) Open(ctx context.Context, url string, opts OpenOptions) (Resource, error) {
	s.opens.Add(1)

	s.mu.Lock()
	var hang bool
	var failErr error
	if sc, ok := s.scripts[url]; ok {
		switch {
		case sc.hang > 0:
			sc.hang--
			hang = true
		case sc.fail > 0:
			sc.fail--
			failErr = sc.err
		}
	}
	s.mu.Unlock()

	if hang {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if s.cfg.OpenLatency > 0 {
		timer := time.NewTimer(s.cfg.OpenLatency)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}
	if failErr != nil {
		return nil, fmt.Errorf("open %s: %w", url, failErr)
	}
	if url == "" {
		return nil, fmt.Errorf("open: empty url: %w", models.ErrResourceNotFound)
	}

	r := &simResource{
		sim:    s,
		url:    url,
		muted:  opts.Muted,
		events: make(chan Event, 16),
	}
	s.mu.Lock()
	s.live[r] = struct{}{}
	s.mu.Unlock()

	if !opts.Paused {
		_ = r.Play()
	}
	return r, nil
}

func (s *Simulator) scriptFor(url string) *script {
	sc, ok := s.scripts[url]
	if !ok {
		sc = &script{}
		s.scripts[url] = sc
	}
	return sc
}

func (s *Simulator) release(r *simResource) {
	s.mu.Lock()
	delete(s.live, r)
	s.mu.Unlock()
}

// simResource is a simulated decoder instance.
type simResource struct {
	sim *Simulator
	url string

	mu       sync.Mutex
	muted    bool
	progress float64
	playing  bool
	unloaded bool
	stop     chan struct{}
	done     chan struct{}

	events chan Event
}

func (r *simResource) URL() string { return r.url }

func (r *simResource) Events() <-chan Event { return r.events }

func (r *simResource) SetMuted(muted bool) {
	r.mu.Lock()
	r.muted = muted
	r.mu.Unlock()
}

func (r *simResource) Play() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.unloaded {
		return ErrUnloaded
	}
	if r.playing {
		return nil
	}
	if r.progress >= 1 {
		r.progress = 0
	}
	r.playing = true
	r.stop = make(chan struct{})
	r.done = make(chan struct{})
	go r.run(r.stop, r.done)
	return nil
}

func (r *simResource) Pause() error {
	return r.halt(false)
}

func (r *simResource) Stop() error {
	return r.halt(true)
}

func (r *simResource) halt(rewind bool) error {
	r.mu.Lock()
	if r.unloaded {
		r.mu.Unlock()
		return ErrUnloaded
	}
	stop, done := r.stop, r.done
	wasPlaying := r.playing
	r.playing = false
	r.stop, r.done = nil, nil
	r.mu.Unlock()

	if wasPlaying {
		close(stop)
		<-done
	}
	if rewind {
		r.mu.Lock()
		r.progress = 0
		r.mu.Unlock()
	}
	return nil
}

func (r *simResource) Unload() error {
	if err := r.halt(true); err != nil {
		return nil
	}
	r.mu.Lock()
	if r.unloaded {
		r.mu.Unlock()
		return nil
	}
	r.unloaded = true
	close(r.events)
	r.mu.Unlock()
	r.sim.release(r)
	return nil
}

func (r *simResource) run(stop, done chan struct{}) {
	defer close(done)
	ticker := time.NewTicker(r.sim.cfg.TickInterval)
	defer ticker.Stop()
	step := float64(r.sim.cfg.TickInterval) / float64(r.sim.cfg.ClipLength)

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			r.mu.Lock()
			r.progress += step
			ended := r.progress >= 1
			if ended {
				r.progress = 1
				r.playing = false
				r.stop, r.done = nil, nil
			}
			p := r.progress
			r.mu.Unlock()

			r.emit(Event{Kind: EventProgress, Progress: p})
			if ended {
				r.emit(Event{Kind: EventEnded, Progress: 1})
				return
			}
		}
	}
}

// emit sends without blocking; progress events are dropped when the
// consumer is behind.
func (r *simResource) emit(ev Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.unloaded {
		return
	}
	select {
	case r.events <- ev:
	default:
	}
}
