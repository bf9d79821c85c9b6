// Tunereel - Music Discovery Video Feed Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tunereel

package playback

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/tomtom215/tunereel/internal/media"
	"github.com/tomtom215/tunereel/internal/metrics"
	"github.com/tomtom215/tunereel/internal/models"
	"github.com/tomtom215/tunereel/internal/preload"
)

// State is a playback state.
type State string

const (
	StateIdle      State = "idle"
	StateLoading   State = "loading"
	StateReady     State = "ready"
	StatePlaying   State = "playing"
	StatePaused    State = "paused"
	StateBuffering State = "buffering"
	StateError     State = "error"
)

// ErrInvalidTransition is returned when an operation does not apply to the
// current state.
var ErrInvalidTransition = errors.New("playback: invalid transition")

// Slots is the slot owner the controller loads through.
type Slots interface {
	AcquireCurrent(ctx context.Context, item preload.Item) (media.Resource, bool, error)
	ReleaseAll(ctx context.Context) error
}

// ErrorReport describes a playback failure. The caller chooses Retry or
// Skip unless AutoSkipped is set.
type ErrorReport struct {
	VideoID     string
	Key         string
	Kind        string
	Err         error
	AutoSkipped bool
}

// Progress is a progress update for the focused item.
type Progress struct {
	Key      string  `json:"key"`
	VideoID  string  `json:"video_id"`
	Ratio    float64 `json:"ratio"`
	State    State   `json:"state"`
	Buffered bool    `json:"buffering"`
}

// Snapshot is the current PlaybackSession.
type Snapshot struct {
	VideoID   string  `json:"video_id,omitempty"`
	Key       string  `json:"key,omitempty"`
	State     State   `json:"state"`
	Progress  float64 `json:"progress"`
	Buffering bool    `json:"buffering"`
	Focused   bool    `json:"focused"`
	Warm      bool    `json:"warm"`
	LastError string  `json:"last_error,omitempty"`
}

// Controller drives playback of the focused feed item.
type Controller struct {
	slots  Slots
	onSkip func(auto bool)
	logger zerolog.Logger

	mu         sync.Mutex
	gen        uint64
	item       *preload.Item
	res        media.Resource
	state      State
	progress   float64
	buffering  bool
	focused    bool
	warm       bool
	lastErr    error
	cancelLoad context.CancelFunc

	errorCbs  []func(ErrorReport)
	loadedCbs []func(videoID string, warm bool)
	subs      map[int]chan Progress
	nextSub   int
}

// New creates a controller. onSkip is invoked (outside any lock) whenever the
// focused item must be skipped; auto is set when the skip follows a missing
// resource rather than a caller's Skip. An automatic skip leaves the
// controller in Error until the feed refocuses.
func New(slots Slots, onSkip func(auto bool), logger zerolog.Logger) *Controller {
	if onSkip == nil {
		onSkip = func(bool) {}
	}
	return &Controller{
		slots:   slots,
		onSkip:  onSkip,
		logger:  logger.With().Str("component", "playback").Logger(),
		state:   StateIdle,
		focused: true,
		subs:    make(map[int]chan Progress),
	}
}

// OnError registers cb for playback errors.
func (c *Controller) OnError(cb func(ErrorReport)) {
	c.mu.Lock()
	c.errorCbs = append(c.errorCbs, cb)
	c.mu.Unlock()
}

// OnLoaded registers cb, called when the focused item is ready.
func (c *Controller) OnLoaded(cb func(videoID string, warm bool)) {
	c.mu.Lock()
	c.loadedCbs = append(c.loadedCbs, cb)
	c.mu.Unlock()
}

// SubscribeProgress returns a channel of progress updates and a cancel func.
// Slow subscribers miss updates rather than block playback.
func (c *Controller) SubscribeProgress() (<-chan Progress, func()) {
	ch := make(chan Progress, 16)
	c.mu.Lock()
	id := c.nextSub
	c.nextSub++
	c.subs[id] = ch
	c.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			c.mu.Lock()
			if _, ok := c.subs[id]; ok {
				delete(c.subs, id)
				close(ch)
			}
			c.mu.Unlock()
		})
	}
}

// Focus starts a new playback session for item. The previous session is
// abandoned; its resource belongs to the slot owner.
func (c *Controller) Focus(item preload.Item) {
	c.mu.Lock()
	c.resetLocked()
	gen := c.gen
	it := item
	c.item = &it
	c.setStateLocked(StateLoading)
	ctx, cancel := context.WithCancel(context.Background())
	c.cancelLoad = cancel
	c.mu.Unlock()

	go c.load(ctx, gen, item)
}

// Play resumes playback.
func (c *Controller) Play() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch c.state {
	case StatePlaying, StateBuffering:
		return nil
	case StateReady, StatePaused:
		if err := c.res.Play(); err != nil {
			return fmt.Errorf("play: %w", err)
		}
		c.setStateLocked(StatePlaying)
		return nil
	default:
		return fmt.Errorf("%w: play from %s", ErrInvalidTransition, c.state)
	}
}

// Pause pauses playback.
func (c *Controller) Pause() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch c.state {
	case StatePaused, StateReady:
		return nil
	case StatePlaying, StateBuffering:
		if err := c.res.Pause(); err != nil {
			return fmt.Errorf("pause: %w", err)
		}
		c.buffering = false
		c.setStateLocked(StatePaused)
		return nil
	default:
		return fmt.Errorf("%w: pause from %s", ErrInvalidTransition, c.state)
	}
}

// SetFocused flips between playing and paused without reloading media.
func (c *Controller) SetFocused(focused bool) {
	c.mu.Lock()
	c.focused = focused
	state := c.state
	c.mu.Unlock()

	switch {
	case focused && (state == StateReady || state == StatePaused):
		if err := c.Play(); err != nil {
			c.logger.Warn().Err(err).Msg("Could not resume playback on focus")
		}
	case !focused && (state == StatePlaying || state == StateBuffering):
		if err := c.Pause(); err != nil {
			c.logger.Warn().Err(err).Msg("Could not pause playback on blur")
		}
	}
}

// Retry reloads the focused item after an error.
func (c *Controller) Retry() error {
	c.mu.Lock()
	if c.state != StateError || c.item == nil {
		state := c.state
		c.mu.Unlock()
		return fmt.Errorf("%w: retry from %s", ErrInvalidTransition, state)
	}
	item := *c.item
	c.mu.Unlock()

	c.Focus(item)
	return nil
}

// Skip abandons the focused item and asks the feed to advance.
func (c *Controller) Skip() {
	c.mu.Lock()
	c.resetLocked()
	c.setStateLocked(StateIdle)
	c.mu.Unlock()
	c.onSkip(false)
}

// Snapshot returns the current playback session.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := Snapshot{
		State:     c.state,
		Progress:  c.progress,
		Buffering: c.buffering,
		Focused:   c.focused,
		Warm:      c.warm,
	}
	if c.item != nil {
		s.VideoID, s.Key = c.item.VideoID, c.item.Key
	}
	if c.lastErr != nil {
		s.LastError = c.lastErr.Error()
	}
	return s
}

// Teardown ends the session and releases all three slots in order.
func (c *Controller) Teardown(ctx context.Context) error {
	c.mu.Lock()
	c.resetLocked()
	c.item = nil
	c.setStateLocked(StateIdle)
	for id, ch := range c.subs {
		delete(c.subs, id)
		close(ch)
	}
	c.mu.Unlock()

	if err := c.slots.ReleaseAll(ctx); err != nil {
		return fmt.Errorf("teardown playback: %w", err)
	}
	return nil
}

func (c *Controller) load(ctx context.Context, gen uint64, item preload.Item) {
	res, warm, err := c.slots.AcquireCurrent(ctx, item)

	c.mu.Lock()
	if gen != c.gen {
		c.mu.Unlock()
		return
	}
	if err != nil {
		report := c.failLocked(item, err)
		c.mu.Unlock()
		c.reportError(report)
		return
	}

	c.res, c.warm, c.progress = res, warm, 0
	c.setStateLocked(StateReady)
	loadedCbs := append([]func(string, bool){}, c.loadedCbs...)
	focused := c.focused
	c.mu.Unlock()

	go c.watch(gen, item, res)
	for _, cb := range loadedCbs {
		cb(item.VideoID, warm)
	}
	if focused {
		if err := c.Play(); err != nil {
			c.logger.Debug().Err(err).Str("key", item.Key).Msg("Auto-play skipped")
		}
	}
}

// watch consumes resource events for one generation.
func (c *Controller) watch(gen uint64, item preload.Item, res media.Resource) {
	for ev := range res.Events() {
		c.mu.Lock()
		if gen != c.gen {
			c.mu.Unlock()
			return
		}

		var report *ErrorReport
		switch ev.Kind {
		case media.EventProgress:
			c.progress = ev.Progress
		case media.EventBufferingStart:
			if c.state == StatePlaying {
				c.buffering = true
				c.setStateLocked(StateBuffering)
			}
		case media.EventBufferingEnd:
			if c.state == StateBuffering {
				c.buffering = false
				c.setStateLocked(StatePlaying)
			}
		case media.EventEnded:
			c.progress = 1
			if c.focused && c.state == StatePlaying {
				// Loop the clip; the feed advances on user swipe.
				if err := res.Play(); err != nil {
					c.logger.Debug().Err(err).Msg("Loop restart failed")
				}
			}
		case media.EventError:
			r := c.failLocked(item, fmt.Errorf("%w: %v", models.ErrDecode, ev.Err))
			report = &r
		}
		c.publishLocked(item)
		c.mu.Unlock()

		if report != nil {
			c.reportError(*report)
			return
		}
	}
}

// failLocked moves to Error and builds the report. Must hold c.mu.
func (c *Controller) failLocked(item preload.Item, err error) ErrorReport {
	c.lastErr = err
	c.res = nil
	c.setStateLocked(StateError)

	report := ErrorReport{VideoID: item.VideoID, Key: item.Key, Err: err, Kind: errorKind(err)}
	report.AutoSkipped = errors.Is(err, models.ErrResourceNotFound)
	metrics.RecordPlaybackError(report.Kind)
	return report
}

func (c *Controller) reportError(report ErrorReport) {
	c.mu.Lock()
	cbs := append([]func(ErrorReport){}, c.errorCbs...)
	c.mu.Unlock()

	c.logger.Warn().Err(report.Err).Str("key", report.Key).Str("kind", report.Kind).
		Bool("auto_skip", report.AutoSkipped).Msg("Playback error")
	for _, cb := range cbs {
		cb(report)
	}
	if report.AutoSkipped {
		c.onSkip(true)
	}
}

// resetLocked cancels the in-flight load. Must hold c.mu.
func (c *Controller) resetLocked() {
	if c.cancelLoad != nil {
		c.cancelLoad()
		c.cancelLoad = nil
	}
	c.gen++
	c.res = nil
	c.progress = 0
	c.buffering = false
	c.warm = false
	c.lastErr = nil
}

// setStateLocked records a transition. Must hold c.mu.
func (c *Controller) setStateLocked(s State) {
	if c.state == s {
		return
	}
	c.state = s
	metrics.RecordPlaybackTransition(string(s))
	if c.item != nil {
		c.publishLocked(*c.item)
	}
}

// publishLocked fans out progress without blocking. Must hold c.mu.
func (c *Controller) publishLocked(item preload.Item) {
	p := Progress{Key: item.Key, VideoID: item.VideoID, Ratio: c.progress, State: c.state, Buffered: c.buffering}
	for _, ch := range c.subs {
		select {
		case ch <- p:
		default:
		}
	}
}

func errorKind(err error) string {
	switch {
	case errors.Is(err, models.ErrResourceNotFound):
		return "not_found"
	case errors.Is(err, models.ErrDecode):
		return "decode"
	case errors.Is(err, models.ErrPreloadTimeout):
		return "timeout"
	case errors.Is(err, models.ErrUpstreamUnavailable):
		return "upstream"
	case errors.Is(err, context.Canceled):
		return "canceled"
	default:
		return "unknown"
	}
}
