// Tunereel - Music Discovery Video Feed Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tunereel

package preload

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/semaphore"

	"github.com/tomtom215/tunereel/internal/media"
	"github.com/tomtom215/tunereel/internal/metrics"
	"github.com/tomtom215/tunereel/internal/models"
	"github.com/tomtom215/tunereel/internal/quality"
)

// ErrStale is returned by AcquireCurrent when focus moved on while loading.
var ErrStale = errors.New("preload: slot reassigned while loading")

// Slot is one of the three playback slots.
type Slot int

const (
	SlotCurrent Slot = iota
	SlotNext
	SlotNextNext
	numSlots
)

func (s Slot) String() string {
	switch s {
	case SlotCurrent:
		return "current"
	case SlotNext:
		return "next"
	case SlotNextNext:
		return "next_next"
	default:
		return fmt.Sprintf("slot(%d)", int(s))
	}
}

// Item identifies what a slot should hold. Key distinguishes wrapped
// repeats of the same video.
type Item struct {
	Key        string
	VideoID    string
	StorageRef string
}

// Resolver resolves storage refs to URLs.
type Resolver interface {
	Resolve(ctx context.Context, storageRef string, device models.DeviceProfile, network models.NetworkState) (quality.Resolution, error)
}

// Environment reports the device and network used for tier selection.
type Environment func() (models.DeviceProfile, models.NetworkState)

// Config controls warming.
type Config struct {
	Timeout     time.Duration `koanf:"timeout" json:"timeout"`
	RetryDelay  time.Duration `koanf:"retry_delay" json:"retry_delay"`
	Concurrency int64         `koanf:"concurrency" json:"concurrency"`
}

// DefaultConfig returns a 10s timeout, 2s retry delay and two concurrent warm-ups.
func DefaultConfig() Config {
	return Config{Timeout: 10 * time.Second, RetryDelay: 2 * time.Second, Concurrency: 2}
}

// binding ties one item to one slot for one generation.
type binding struct {
	item     Item
	gen      uint64
	res      media.Resource
	warm     bool
	loading  bool
	attempts int
	cancel   context.CancelFunc
	retry    *time.Timer
}

// SlotState is a read-only view of a slot.
type SlotState struct {
	Slot    string `json:"slot"`
	Key     string `json:"key,omitempty"`
	Gen     uint64 `json:"generation,omitempty"`
	Warm    bool   `json:"warm"`
	Loading bool   `json:"loading"`
}

// Coordinator owns the current, next and next-next slots. Every slot holds
// at most one loaded resource; a slot is always released before it is loaded
// again, and completions from superseded generations are unloaded on arrival.
type Coordinator struct {
	resolver Resolver
	loader   media.Loader
	env      Environment
	cfg      Config
	sem      *semaphore.Weighted
	logger   zerolog.Logger

	mu    sync.Mutex
	slots [numSlots]*binding
	gen   uint64
	loads sync.WaitGroup
}

// New creates a coordinator.
func New(resolver Resolver, loader media.Loader, env Environment, cfg Config, logger zerolog.Logger) *Coordinator {
	def := DefaultConfig()
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = def.RetryDelay
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = def.Concurrency
	}
	if env == nil {
		env = func() (models.DeviceProfile, models.NetworkState) {
			return models.DeviceProfile{Type: models.DeviceMobile, Screen: models.ScreenSmall},
				models.NetworkState{Connected: true, Kind: models.NetworkWiFi, Quality: models.LinkGood}
		}
	}
	return &Coordinator{
		resolver: resolver,
		loader:   loader,
		env:      env,
		cfg:      cfg,
		sem:      semaphore.NewWeighted(cfg.Concurrency),
		logger:   logger.With().Str("component", "preload").Logger(),
	}
}

// Advance rebinds the slots to the given items (nil means empty). Bindings
// whose item moves to another slot keep their resource, so a warm next-next
// becomes a warm next without reloading. Everything else is released, then
// next and next-next are warmed in the background.
func (c *Coordinator) Advance(current, next, nextNext *Item) {
	targets := [numSlots]*Item{current, next, nextNext}

	c.mu.Lock()
	old := c.slots
	var fresh [numSlots]*binding
	used := make(map[*binding]bool, numSlots)

	for i, it := range targets {
		if it == nil {
			continue
		}
		for _, b := range old {
			if b != nil && !used[b] && b.item.Key == it.Key {
				fresh[i] = b
				used[b] = true
				break
			}
		}
	}

	var released []*binding
	for _, b := range old {
		if b != nil && !used[b] {
			released = append(released, b)
			c.detach(b)
		}
	}

	var toWarm []*binding
	for i, it := range targets {
		if it == nil || fresh[i] != nil {
			continue
		}
		b := c.newBinding(*it)
		fresh[i] = b
		if Slot(i) != SlotCurrent {
			toWarm = append(toWarm, b)
		}
	}
	c.slots = fresh
	c.mu.Unlock()

	// Unload before load.
	c.releaseResources(released)
	for _, b := range toWarm {
		c.startWarm(b)
	}
}

// AcquireCurrent returns the resource for the focused item. A warm current
// slot is handed over as-is (warm=true). Otherwise any in-flight warm-up of
// the slot is abandoned and the item is loaded cold. The coordinator keeps
// ownership; callers must not unload the returned resource.
func (c *Coordinator) AcquireCurrent(ctx context.Context, item Item) (res media.Resource, warm bool, err error) {
	c.mu.Lock()
	b := c.slots[SlotCurrent]
	if b != nil && b.item.Key == item.Key && b.res != nil {
		res := b.res
		c.mu.Unlock()
		metrics.RecordPreload("hit", 0)
		return res, true, nil
	}

	var released []*binding
	if b != nil {
		c.detach(b)
		released = append(released, b)
	}
	b = c.newBinding(item)
	b.loading = true
	loadCtx, cancel := context.WithCancel(ctx)
	b.cancel = cancel
	c.slots[SlotCurrent] = b
	c.loads.Add(1)
	c.mu.Unlock()
	defer c.loads.Done()
	defer cancel()

	c.releaseResources(released)

	start := time.Now()
	res, err = c.load(loadCtx, item)

	c.mu.Lock()
	stale := c.slots[SlotCurrent] != b
	if err == nil && !stale {
		b.res, b.warm, b.loading = res, true, false
	} else if !stale {
		b.loading = false
	}
	c.mu.Unlock()

	switch {
	case err != nil:
		metrics.RecordPreload("cold_error", 0)
		return nil, false, err
	case stale:
		metrics.RecordPreload("stale", 0)
		c.unload(res)
		return nil, false, ErrStale
	}
	metrics.RecordPreload("cold", time.Since(start))
	return res, false, nil
}

// ReleaseAll releases every slot in order current, next, next-next, each
// with stop then unload, and waits for in-flight loads to wind down.
func (c *Coordinator) ReleaseAll(ctx context.Context) error {
	c.mu.Lock()
	var released []*binding
	for i := range c.slots {
		if b := c.slots[i]; b != nil {
			c.detach(b)
			released = append(released, b)
		}
		c.slots[i] = nil
	}
	c.mu.Unlock()

	c.releaseResources(released)

	done := make(chan struct{})
	go func() {
		c.loads.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("release preload slots: %w", ctx.Err())
	}
}

// Snapshot returns the state of all three slots.
func (c *Coordinator) Snapshot() []SlotState {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]SlotState, numSlots)
	for i, b := range c.slots {
		out[i] = SlotState{Slot: Slot(i).String()}
		if b != nil {
			out[i].Key = b.item.Key
			out[i].Gen = b.gen
			out[i].Warm = b.warm
			out[i].Loading = b.loading
		}
	}
	return out
}

// IsWarm reports whether key is bound to a slot with a loaded resource.
func (c *Coordinator) IsWarm(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, b := range c.slots {
		if b != nil && b.item.Key == key && b.warm {
			return true
		}
	}
	return false
}

// newBinding must be called with c.mu held.
func (c *Coordinator) newBinding(item Item) *binding {
	c.gen++
	return &binding{item: item, gen: c.gen}
}

// detach cancels a binding's pending work. Must be called with c.mu held.
func (c *Coordinator) detach(b *binding) {
	if b.cancel != nil {
		b.cancel()
	}
	if b.retry != nil {
		b.retry.Stop()
		b.retry = nil
	}
	b.warm = false
}

// bound reports whether b still occupies a slot. Must be called with c.mu held.
func (c *Coordinator) bound(b *binding) bool {
	for _, s := range c.slots {
		if s == b {
			return true
		}
	}
	return false
}

func (c *Coordinator) releaseResources(bs []*binding) {
	for _, b := range bs {
		c.mu.Lock()
		res := b.res
		b.res = nil
		c.mu.Unlock()
		c.unload(res)
	}
}

func (c *Coordinator) unload(res media.Resource) {
	if res == nil {
		return
	}
	if err := res.Stop(); err != nil && !errors.Is(err, media.ErrUnloaded) {
		c.logger.Warn().Err(err).Str("url", res.URL()).Msg("Failed to stop media resource")
	}
	if err := res.Unload(); err != nil {
		c.logger.Warn().Err(err).Str("url", res.URL()).Msg("Failed to unload media resource")
	}
}

func (c *Coordinator) startWarm(b *binding) {
	c.mu.Lock()
	if !c.bound(b) || b.loading || b.res != nil {
		c.mu.Unlock()
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	b.cancel = cancel
	b.loading = true
	b.attempts++
	c.loads.Add(1)
	c.mu.Unlock()

	go c.warm(ctx, b)
}

func (c *Coordinator) warm(ctx context.Context, b *binding) {
	defer c.loads.Done()
	start := time.Now()

	if err := c.sem.Acquire(ctx, 1); err != nil {
		c.finishWarm(b, nil, ctx.Err(), start)
		return
	}
	res, err := c.load(ctx, b.item)
	c.sem.Release(1)
	c.finishWarm(b, res, err, start)
}

func (c *Coordinator) finishWarm(b *binding, res media.Resource, err error, start time.Time) {
	c.mu.Lock()
	b.loading = false
	if !c.bound(b) {
		c.mu.Unlock()
		metrics.RecordPreload("stale", 0)
		c.unload(res)
		return
	}

	if err == nil {
		b.res, b.warm = res, true
		c.mu.Unlock()
		metrics.RecordPreload("warm", time.Since(start))
		c.logger.Debug().Str("key", b.item.Key).Uint64("generation", b.gen).Msg("Slot warmed")
		return
	}

	b.warm = false
	result := "error"
	if errors.Is(err, models.ErrPreloadTimeout) {
		result = "timeout"
	}
	attempt := b.attempts
	retry := attempt < 2
	if retry {
		b.retry = time.AfterFunc(c.cfg.RetryDelay, func() { c.startWarm(b) })
	}
	c.mu.Unlock()

	metrics.RecordPreload(result, 0)
	c.logger.Info().Err(err).Str("key", b.item.Key).Int("attempt", attempt).Bool("will_retry", retry).Msg("Preload failed")
}

// load resolves and opens item muted and paused within the configured timeout.
func (c *Coordinator) load(ctx context.Context, item Item) (media.Resource, error) {
	loadCtx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	device, network := c.env()
	resolution, err := c.resolver.Resolve(loadCtx, item.StorageRef, device, network)
	if err == nil {
		var res media.Resource
		res, err = c.loader.Open(loadCtx, resolution.URL, media.OpenOptions{Muted: true, Paused: true})
		if err == nil {
			return res, nil
		}
	}
	if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
		return nil, fmt.Errorf("load %s: %w", item.Key, models.ErrPreloadTimeout)
	}
	return nil, fmt.Errorf("load %s: %w", item.Key, err)
}
