// Tunereel - Music Discovery Video Feed Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tunereel

package feed

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/tomtom215/tunereel/internal/cache"
	"github.com/tomtom215/tunereel/internal/engagement"
	"github.com/tomtom215/tunereel/internal/fetcher"
	"github.com/tomtom215/tunereel/internal/logging"
	"github.com/tomtom215/tunereel/internal/media"
	"github.com/tomtom215/tunereel/internal/models"
	"github.com/tomtom215/tunereel/internal/playback"
	"github.com/tomtom215/tunereel/internal/preload"
	"github.com/tomtom215/tunereel/internal/quality"
	"github.com/tomtom215/tunereel/internal/recommend"
	"github.com/tomtom215/tunereel/internal/store"
)

const cdn = "https://cdn.test"

// scriptedFetcher serves docs in fixed pages. Queued errors are returned
// first; calls after the first free ones block until release.
type scriptedFetcher struct {
	mu    sync.Mutex
	docs  []models.Candidate
	errs  []error
	free  int
	hold  chan struct{}
	calls int
}

func newScriptedFetcher(ids ...string) *scriptedFetcher {
	f := &scriptedFetcher{free: -1}
	for i, id := range ids {
		f.docs = append(f.docs, models.Candidate{
			ID:         id,
			StorageRef: "v/" + id + ".mp4",
			UploadedAt: time.Date(2026, 5, 1, 0, 0, len(ids)-i, 0, time.UTC),
		})
	}
	return f
}

// holdAfter makes every call after the first n block until release.
func (f *scriptedFetcher) holdAfter(n int) {
	f.mu.Lock()
	f.free = n
	f.hold = make(chan struct{})
	f.mu.Unlock()
}

func (f *scriptedFetcher) release() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.hold != nil {
		close(f.hold)
		f.hold = nil
	}
	f.free = -1
}

func (f *scriptedFetcher) failWith(errs ...error) {
	f.mu.Lock()
	f.errs = append(f.errs, errs...)
	f.mu.Unlock()
}

func (f *scriptedFetcher) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func (f *scriptedFetcher) Fetch(ctx context.Context, pageSize int, cursor string) (*fetcher.Page, error) {
	f.mu.Lock()
	f.calls++
	hold := f.hold
	if f.free >= 0 && f.calls > f.free && hold != nil {
		f.mu.Unlock()
		select {
		case <-hold:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
		f.mu.Lock()
	}
	defer f.mu.Unlock()

	if len(f.errs) > 0 {
		err := f.errs[0]
		f.errs = f.errs[1:]
		return nil, err
	}

	start := 0
	if cursor != "" {
		start, _ = strconv.Atoi(cursor)
	}
	end := min(start+pageSize, len(f.docs))
	page := &fetcher.Page{
		Candidates: append([]models.Candidate(nil), f.docs[start:end]...),
		HasMore:    end < len(f.docs),
	}
	if page.HasMore {
		page.NextCursor = strconv.Itoa(end)
	}
	return page, nil
}

// storeOrder keeps the fetched order.
type storeOrder struct{}

func (storeOrder) Rank(candidates []models.Candidate, _ recommend.Request) []recommend.ScoredCandidate {
	out := make([]recommend.ScoredCandidate, len(candidates))
	for i, c := range candidates {
		out[i] = recommend.ScoredCandidate{Candidate: c, Score: float64(len(candidates) - i), Reason: recommend.TermRecency}
	}
	return out
}

type fakeNet struct {
	mu   sync.Mutex
	up   bool
	subs []chan bool
}

func (n *fakeNet) IsConnected() bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.up
}

func (n *fakeNet) Subscribe() (<-chan bool, func()) {
	ch := make(chan bool, 8)
	n.mu.Lock()
	n.subs = append(n.subs, ch)
	n.mu.Unlock()
	return ch, func() {}
}

func (n *fakeNet) set(up bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.up = up
	for _, ch := range n.subs {
		ch <- up
	}
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []engagement.Event
}

func (p *recordingPublisher) Publish(_ context.Context, ev engagement.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return nil
}

func (p *recordingPublisher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.events)
}

type sessionHarness struct {
	session  *Session
	fetcher  *scriptedFetcher
	net      *fakeNet
	sim      *media.Simulator
	profiles *store.MemoryProfiles
	likes    *recordingPublisher
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.PageSize = 3
	cfg.PreloadThreshold = 1
	cfg.Backoff = BackoffConfig{Initial: 5 * time.Millisecond, Max: 20 * time.Millisecond, Multiplier: 2, MaxAttempts: 3}
	return cfg
}

func newSessionHarness(t *testing.T, cfg Config, f *scriptedFetcher) *sessionHarness {
	t.Helper()
	var refs []string
	for _, d := range f.docs {
		refs = append(refs, d.StorageRef)
	}
	return newSessionHarnessWithBlobs(t, cfg, f, refs...)
}

// newSessionHarnessWithBlobs serves only the listed storage refs.
func newSessionHarnessWithBlobs(t *testing.T, cfg Config, f *scriptedFetcher, refs ...string) *sessionHarness {
	t.Helper()

	blobs := store.NewMemoryBlobs(cdn)
	for _, ref := range refs {
		blobs.Add(ref)
	}
	urls := cache.New(time.Minute)
	resolver := quality.NewResolver(blobs, urls, quality.DefaultConfig(), logging.Nop())
	sim := media.NewSimulator(media.SimulatorConfig{OpenLatency: time.Millisecond, ClipLength: time.Second, TickInterval: 10 * time.Millisecond})
	coord := preload.New(resolver, sim, nil, preload.Config{Timeout: time.Second, RetryDelay: 10 * time.Millisecond, Concurrency: 2}, logging.Nop())

	h := &sessionHarness{
		fetcher:  f,
		net:      &fakeNet{up: true},
		sim:      sim,
		profiles: store.NewMemoryProfiles(),
		likes:    &recordingPublisher{},
	}
	s, err := NewSession("u1", cfg, Deps{
		Fetcher:      f,
		Ranker:       storeOrder{},
		Preloader:    coord,
		Profiles:     h.profiles,
		Connectivity: h.net,
		Engagement:   h.likes,
		URLCache:     urls,
		Device:       models.DeviceProfile{Type: models.DeviceMobile, Screen: models.ScreenSmall},
	}, logging.Nop())
	if err != nil {
		t.Fatalf("NewSession() error = %v", err)
	}
	h.session = s
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = s.Dispose(ctx)
	})
	return h
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func (h *sessionHarness) waitState(t *testing.T, want State, recoverable bool) {
	t.Helper()
	waitFor(t, fmt.Sprintf("state %s (recoverable=%v)", want, recoverable), func() bool {
		snap := h.session.Snapshot()
		return snap.State == want && snap.Recoverable == recoverable
	})
}

// advance retries while the next page is in flight.
func (h *sessionHarness) advance(t *testing.T) FeedItem {
	t.Helper()
	var item FeedItem
	waitFor(t, "advance", func() bool {
		var err error
		item, err = h.session.Advance()
		if errors.Is(err, ErrAwaitingPage) {
			return false
		}
		if err != nil {
			t.Fatalf("Advance() error = %v", err)
		}
		return true
	})
	return item
}

func TestSessionPagesThroughFeedAndWraps(t *testing.T) {
	h := newSessionHarness(t, testConfig(), newScriptedFetcher("a", "b", "c", "d", "e"))
	if err := h.session.Init(context.Background()); err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	h.waitState(t, StateReady, false)

	first, err := h.session.GetCurrentCandidate()
	if err != nil {
		t.Fatalf("GetCurrentCandidate() error = %v", err)
	}
	if first.Candidate.ID != "a" || first.Key != "a#0" {
		t.Fatalf("first item = %s, want a#0", first.Key)
	}

	var seen []string
	for range 5 {
		seen = append(seen, h.advance(t).Key)
	}
	want := []string{"b#0", "c#0", "d#0", "e#0", "a#1"}
	for i := range want {
		if seen[i] != want[i] {
			t.Fatalf("advance sequence = %v, want %v", seen, want)
		}
	}

	snap := h.session.Snapshot()
	if snap.HasMore || snap.CurrentIndex != 0 || snap.Cycle != 1 {
		t.Errorf("snapshot after wrap = %+v", snap)
	}
	if snap.Current == nil || !snap.Current.Wrapped {
		t.Errorf("current item not marked wrapped: %+v", snap.Current)
	}
	if calls := h.fetcher.Calls(); calls != 2 {
		t.Errorf("fetch calls = %d, want 2", calls)
	}
}

func TestSessionSingleItemAlwaysReturnsSameItem(t *testing.T) {
	h := newSessionHarness(t, testConfig(), newScriptedFetcher("solo"))
	if err := h.session.Init(context.Background()); err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	h.waitState(t, StateReady, false)

	for i := 1; i <= 4; i++ {
		got := h.advance(t)
		if got.Candidate.ID != "solo" || got.Cycle != i {
			t.Fatalf("Advance() #%d = %s cycle %d", i, got.Candidate.ID, got.Cycle)
		}
	}
}

func TestSessionLookahead(t *testing.T) {
	h := newSessionHarness(t, testConfig(), newScriptedFetcher("a", "b", "c"))
	if _, err := h.session.GetLookahead(2); !errors.Is(err, ErrNotReady) {
		t.Fatalf("GetLookahead() before Init error = %v, want ErrNotReady", err)
	}
	if err := h.session.Init(context.Background()); err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	h.waitState(t, StateReady, false)

	ahead, err := h.session.GetLookahead(2)
	if err != nil {
		t.Fatalf("GetLookahead() error = %v", err)
	}
	if len(ahead) != 2 || ahead[0].Key != "b#0" || ahead[1].Key != "c#0" {
		t.Errorf("GetLookahead(2) = %+v", ahead)
	}

	waitFor(t, "next slots warm", func() bool {
		warm := 0
		for _, st := range h.session.Snapshot().Slots {
			if st.Slot != preload.SlotCurrent.String() && st.Warm {
				warm++
			}
		}
		return warm == 2
	})
}

func TestSessionAwaitingPage(t *testing.T) {
	cfg := testConfig()
	cfg.PageSize = 2
	cfg.PreloadThreshold = 0
	f := newScriptedFetcher("a", "b", "c")
	f.holdAfter(1)
	h := newSessionHarness(t, cfg, f)

	if err := h.session.Init(context.Background()); err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	h.waitState(t, StateReady, false)

	if got := h.advance(t); got.Candidate.ID != "b" {
		t.Fatalf("Advance() = %s, want b", got.Candidate.ID)
	}

	got, err := h.session.Advance()
	if !errors.Is(err, ErrAwaitingPage) {
		t.Fatalf("Advance() at end of window error = %v, want ErrAwaitingPage", err)
	}
	if got.Candidate.ID != "b" {
		t.Errorf("focus moved to %s while awaiting page", got.Candidate.ID)
	}
	if state := h.session.State(); state != StateLoadingMore {
		t.Errorf("State() = %s, want %s", state, StateLoadingMore)
	}

	f.release()
	if got := h.advance(t); got.Candidate.ID != "c" {
		t.Errorf("Advance() after page = %s, want c", got.Candidate.ID)
	}
}

func TestSessionBackoffThenFatal(t *testing.T) {
	f := newScriptedFetcher("a")
	upstream := models.NewUpstreamError("query_failed", errors.New("boom"))
	f.failWith(upstream, upstream, upstream, upstream)
	h := newSessionHarness(t, testConfig(), f)

	events, cancel := h.session.Subscribe()
	defer cancel()

	if err := h.session.Init(context.Background()); err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	h.waitState(t, StateError, false)

	var delays []time.Duration
	sawFatal := false
	for !sawFatal {
		select {
		case ev := <-events:
			if ev.Type == EventRetry {
				delays = append(delays, ev.RetryIn)
			}
			if ev.Type == EventState && ev.State == StateError && !ev.Recoverable {
				sawFatal = true
			}
		case <-time.After(time.Second):
			t.Fatal("no fatal error event")
		}
	}

	want := []time.Duration{5 * time.Millisecond, 10 * time.Millisecond, 20 * time.Millisecond}
	if len(delays) != len(want) {
		t.Fatalf("retry delays = %v, want %v", delays, want)
	}
	for i := range want {
		if delays[i] != want[i] {
			t.Errorf("delay[%d] = %v, want %v", i, delays[i], want[i])
		}
	}
	if calls := f.Calls(); calls != 4 {
		t.Errorf("fetch calls = %d, want 4 (initial + 3 retries)", calls)
	}
	if _, err := h.session.GetCurrentCandidate(); !errors.Is(err, models.ErrUpstreamUnavailable) {
		t.Errorf("GetCurrentCandidate() error = %v, want upstream error", err)
	}
}

func TestSessionRecoversAfterRetry(t *testing.T) {
	f := newScriptedFetcher("a", "b")
	f.failWith(models.NewUpstreamError("query_failed", errors.New("flaky")))
	h := newSessionHarness(t, testConfig(), f)

	if err := h.session.Init(context.Background()); err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	h.waitState(t, StateReady, false)

	if got := h.session.Snapshot().Attempts; got != 0 {
		t.Errorf("Attempts = %d after success, want 0", got)
	}
	if calls := f.Calls(); calls != 2 {
		t.Errorf("fetch calls = %d, want 2", calls)
	}
}

func TestSessionNotAuthenticatedIsFatal(t *testing.T) {
	f := newScriptedFetcher("a")
	f.failWith(models.ErrNotAuthenticated)
	h := newSessionHarness(t, testConfig(), f)

	if err := h.session.Init(context.Background()); err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	h.waitState(t, StateError, false)

	time.Sleep(30 * time.Millisecond)
	if calls := f.Calls(); calls != 1 {
		t.Errorf("fetch calls = %d, want 1", calls)
	}
	if got := h.session.Snapshot().Attempts; got != 0 {
		t.Errorf("Attempts = %d, want 0", got)
	}
}

func TestSessionDisconnectDuringLoading(t *testing.T) {
	f := newScriptedFetcher("a", "b")
	f.holdAfter(0)
	h := newSessionHarness(t, testConfig(), f)

	if err := h.session.Init(context.Background()); err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	waitFor(t, "initial fetch", func() bool { return f.Calls() == 1 })
	if state := h.session.State(); state != StateLoading {
		t.Fatalf("State() = %s, want loading", state)
	}

	h.net.set(false)
	h.waitState(t, StateError, true)

	snap := h.session.Snapshot()
	if snap.Attempts != 0 {
		t.Errorf("Attempts = %d after disconnect, want 0", snap.Attempts)
	}
	if !snap.Suspended || snap.Busy {
		t.Errorf("snapshot = %+v, want suspended and idle", snap)
	}
	if snap.LastError != models.ErrNoConnectivity.Error() {
		t.Errorf("LastError = %q, want %q", snap.LastError, models.ErrNoConnectivity)
	}

	f.release()
	h.net.set(true)
	h.waitState(t, StateReady, false)

	snap = h.session.Snapshot()
	if snap.Attempts != 0 || snap.Suspended {
		t.Errorf("after reconnect attempts=%d suspended=%v", snap.Attempts, snap.Suspended)
	}
	if calls := f.Calls(); calls != 2 {
		t.Errorf("fetch calls = %d, want 2", calls)
	}
}

func TestSessionInitOffline(t *testing.T) {
	f := newScriptedFetcher("a")
	h := newSessionHarness(t, testConfig(), f)
	h.net.up = false

	if err := h.session.Init(context.Background()); err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	h.waitState(t, StateError, true)
	if calls := f.Calls(); calls != 0 {
		t.Errorf("fetched %d times while offline", calls)
	}

	h.net.set(true)
	h.waitState(t, StateReady, false)
}

func TestSessionExplicitRetry(t *testing.T) {
	f := newScriptedFetcher("a")
	upstream := models.NewUpstreamError("query_failed", errors.New("down"))
	cfg := testConfig()
	cfg.Backoff.MaxAttempts = 0
	f.failWith(upstream)
	h := newSessionHarness(t, cfg, f)

	if err := h.session.Retry(); !errors.Is(err, ErrNotInError) {
		t.Fatalf("Retry() from idle error = %v, want ErrNotInError", err)
	}
	if err := h.session.Init(context.Background()); err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	h.waitState(t, StateError, false)

	if err := h.session.Retry(); err != nil {
		t.Fatalf("Retry() error = %v", err)
	}
	h.waitState(t, StateReady, false)
}

func TestSessionLike(t *testing.T) {
	h := newSessionHarness(t, testConfig(), newScriptedFetcher("a", "b"))
	ctx := context.Background()
	if err := h.session.Init(ctx); err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	h.waitState(t, StateReady, false)

	for range 2 {
		if err := h.session.Like(ctx, "a"); err != nil {
			t.Fatalf("Like() error = %v", err)
		}
	}

	cur, _ := h.session.GetCurrentCandidate()
	if cur.Candidate.Engagement.Likes != 1 {
		t.Errorf("Likes = %d, want 1", cur.Candidate.Engagement.Likes)
	}
	if !h.session.Profile().Liked("a") {
		t.Error("profile does not mark a as liked")
	}
	if n := h.likes.count(); n != 1 {
		t.Errorf("published %d like events, want 1", n)
	}
	waitFor(t, "like persisted in profile store", func() bool {
		stored, err := h.profiles.GetProfile(ctx, "u1")
		return err == nil && stored.Liked("a")
	})

	h.advance(t)
	recent := h.session.RecentInteractions()
	if len(recent) != 1 || recent[0].VideoID != "a" || !recent[0].Liked {
		t.Errorf("RecentInteractions() = %+v, want liked a", recent)
	}
}

func TestSessionUpdateProfile(t *testing.T) {
	h := newSessionHarness(t, testConfig(), newScriptedFetcher("a"))
	ctx := context.Background()
	if err := h.session.Init(ctx); err != nil {
		t.Fatalf("Init() error = %v", err)
	}

	p, err := h.session.UpdateProfile(ctx, models.ProfilePatch{PreferredGenres: []string{"pop"}})
	if err != nil {
		t.Fatalf("UpdateProfile() error = %v", err)
	}
	if len(p.PreferredGenres) != 1 || p.PreferredGenres[0] != "pop" {
		t.Errorf("PreferredGenres = %v", p.PreferredGenres)
	}
	if got := h.session.Profile().PreferredGenres; len(got) != 1 {
		t.Errorf("session profile genres = %v", got)
	}
}

func TestSessionDispose(t *testing.T) {
	h := newSessionHarness(t, testConfig(), newScriptedFetcher("a", "b", "c"))
	ctx := context.Background()
	if err := h.session.Init(ctx); err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	h.waitState(t, StateReady, false)
	events, _ := h.session.Subscribe()

	waitFor(t, "resources opened", func() bool { return h.sim.Live() > 0 })
	if err := h.session.Dispose(ctx); err != nil {
		t.Fatalf("Dispose() error = %v", err)
	}
	if err := h.session.Dispose(ctx); err != nil {
		t.Fatalf("second Dispose() error = %v", err)
	}

	if _, err := h.session.Advance(); !errors.Is(err, ErrDisposed) {
		t.Errorf("Advance() after Dispose error = %v, want ErrDisposed", err)
	}
	waitFor(t, "resources released", func() bool { return h.sim.Live() == 0 })

	for range events {
	}
}

func TestSessionRejectsSecondInit(t *testing.T) {
	h := newSessionHarness(t, testConfig(), newScriptedFetcher("a"))
	ctx := context.Background()
	if err := h.session.Init(ctx); err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	if err := h.session.Init(ctx); !errors.Is(err, ErrAlreadyStarted) {
		t.Errorf("second Init() error = %v, want ErrAlreadyStarted", err)
	}
}

func TestSessionEmptyFeed(t *testing.T) {
	h := newSessionHarness(t, testConfig(), newScriptedFetcher())
	if err := h.session.Init(context.Background()); err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	h.waitState(t, StateReady, false)

	if _, err := h.session.GetCurrentCandidate(); !errors.Is(err, ErrEmptyFeed) {
		t.Errorf("GetCurrentCandidate() error = %v, want ErrEmptyFeed", err)
	}
}

// slowProfiles delays updates until released.
type slowProfiles struct {
	*store.MemoryProfiles
	gate chan struct{}
}

func (p *slowProfiles) UpdateProfile(ctx context.Context, userID string, patch models.ProfilePatch) (*models.UserProfile, error) {
	select {
	case <-p.gate:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	return p.MemoryProfiles.UpdateProfile(ctx, userID, patch)
}

func TestSessionLikeDoesNotWaitForProfileStore(t *testing.T) {
	h := newSessionHarness(t, testConfig(), newScriptedFetcher("a"))
	slow := &slowProfiles{MemoryProfiles: h.profiles, gate: make(chan struct{})}
	h.session.deps.Profiles = slow
	ctx := context.Background()
	if err := h.session.Init(ctx); err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	h.waitState(t, StateReady, false)

	done := make(chan error, 1)
	go func() { done <- h.session.Like(ctx, "a") }()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Like() error = %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Like() blocked on the profile store")
	}
	if !h.session.Profile().Liked("a") {
		t.Error("session profile does not mark a as liked")
	}

	close(slow.gate)
	waitFor(t, "like persisted in profile store", func() bool {
		stored, err := h.profiles.GetProfile(ctx, "u1")
		return err == nil && stored.Liked("a")
	})
}

func TestSessionStopsAutoSkipWhenNothingLoads(t *testing.T) {
	tests := []struct {
		name string
		ids  []string
	}{
		{"single item", []string{"solo"}},
		{"whole window", []string{"a", "b", "c"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newSessionHarnessWithBlobs(t, testConfig(), newScriptedFetcher(tt.ids...))
			events, cancel := h.session.Subscribe()
			defer cancel()

			if err := h.session.Init(context.Background()); err != nil {
				t.Fatalf("Init() error = %v", err)
			}

			deadline := time.After(3 * time.Second)
			for stopped := false; !stopped; {
				select {
				case ev := <-events:
					stopped = ev.Type == EventError && ev.Error == ErrNothingPlayable.Error()
				case <-deadline:
					t.Fatal("automatic skipping never stopped")
				}
			}

			before := h.session.Snapshot()
			time.Sleep(50 * time.Millisecond)
			after := h.session.Snapshot()
			if before.Cycle != 0 || after.Cycle != before.Cycle {
				t.Errorf("cycle went %d -> %d, want 0 throughout", before.Cycle, after.Cycle)
			}
			if after.Current == nil || after.Current.Key != before.Current.Key {
				t.Errorf("focus moved after skipping stopped: %+v", after.Current)
			}
			if after.Playback.State != playback.StateError {
				t.Errorf("playback state = %s, want error", after.Playback.State)
			}

			// A manual swipe still moves on.
			if _, err := h.session.Advance(); err != nil {
				t.Errorf("Advance() error = %v", err)
			}
		})
	}
}

func TestSessionDefersSkipUntilPageArrives(t *testing.T) {
	cfg := testConfig()
	cfg.PageSize = 2
	cfg.PreloadThreshold = 0
	f := newScriptedFetcher("a", "b", "c")
	f.holdAfter(1)
	h := newSessionHarnessWithBlobs(t, cfg, f, "v/a.mp4", "v/c.mp4")

	if err := h.session.Init(context.Background()); err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	h.waitState(t, StateReady, false)
	if got := h.advance(t); got.Candidate.ID != "b" {
		t.Fatalf("Advance() = %s, want b", got.Candidate.ID)
	}

	waitFor(t, "b fails while the next page is held", func() bool {
		snap := h.session.Snapshot()
		return snap.Playback.VideoID == "b" && snap.Playback.State == playback.StateError && snap.Busy
	})
	if cur, _ := h.session.GetCurrentCandidate(); cur.Candidate.ID != "b" {
		t.Fatalf("focus = %s before the page arrived, want b", cur.Candidate.ID)
	}

	f.release()
	waitFor(t, "deferred skip lands on c", func() bool {
		snap := h.session.Snapshot()
		return snap.Current != nil && snap.Current.Candidate.ID == "c" &&
			snap.Playback.VideoID == "c" && snap.Playback.State == playback.StatePlaying
	})
}

func TestSessionAdvanceAfterLoadGivesUp(t *testing.T) {
	upstream := models.NewUpstreamError("query_failed", errors.New("down"))
	tests := []struct {
		name  string
		errs  []error
		cause error
	}{
		{"retry budget exhausted", []error{upstream, upstream, upstream, upstream}, models.ErrUpstreamUnavailable},
		{"not authenticated", []error{models.ErrNotAuthenticated}, models.ErrNotAuthenticated},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig()
			cfg.PageSize = 2
			cfg.PreloadThreshold = 0
			f := newScriptedFetcher("a", "b", "c")
			h := newSessionHarness(t, cfg, f)

			if err := h.session.Init(context.Background()); err != nil {
				t.Fatalf("Init() error = %v", err)
			}
			h.waitState(t, StateReady, false)
			f.failWith(tt.errs...)
			if got := h.advance(t); got.Candidate.ID != "b" {
				t.Fatalf("Advance() = %s, want b", got.Candidate.ID)
			}

			// Starts the load of the next page, which keeps failing.
			if _, err := h.session.Advance(); !errors.Is(err, ErrAwaitingPage) {
				t.Fatalf("Advance() at end of window error = %v, want ErrAwaitingPage", err)
			}
			h.waitState(t, StateError, false)

			got, err := h.session.Advance()
			if !errors.Is(err, ErrPageUnavailable) || !errors.Is(err, tt.cause) {
				t.Fatalf("Advance() error = %v, want ErrPageUnavailable wrapping %v", err, tt.cause)
			}
			if got.Candidate.ID != "b" {
				t.Errorf("focus moved to %s", got.Candidate.ID)
			}
			if _, err := h.session.GetCurrentCandidate(); err != nil {
				t.Errorf("held items unusable: %v", err)
			}

			if err := h.session.Retry(); err != nil {
				t.Fatalf("Retry() error = %v", err)
			}
			if got := h.advance(t); got.Candidate.ID != "c" {
				t.Errorf("Advance() after Retry = %s, want c", got.Candidate.ID)
			}
		})
	}
}
