// Tunereel - Music Discovery Video Feed Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tunereel

package feed

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/tunereel/internal/cache"
	"github.com/tomtom215/tunereel/internal/engagement"
	"github.com/tomtom215/tunereel/internal/fetcher"
	"github.com/tomtom215/tunereel/internal/logging"
	"github.com/tomtom215/tunereel/internal/metrics"
	"github.com/tomtom215/tunereel/internal/models"
	"github.com/tomtom215/tunereel/internal/playback"
	"github.com/tomtom215/tunereel/internal/preload"
	"github.com/tomtom215/tunereel/internal/recommend"
)

// Session errors.
var (
	// ErrAwaitingPage means focus is on the last held item while the next
	// page has not arrived. Focus does not move.
	ErrAwaitingPage = errors.New("feed: awaiting next page")

	// ErrNotReady means the first page has not been loaded.
	ErrNotReady = errors.New("feed: not ready")

	// ErrEmptyFeed means the store has no candidates at all.
	ErrEmptyFeed = errors.New("feed: no candidates")

	// ErrDisposed is returned by every operation after Dispose.
	ErrDisposed = errors.New("feed: session disposed")

	// ErrNotInError is returned by Retry outside the error state.
	ErrNotInError = errors.New("feed: session is not in an error state")

	// ErrAlreadyStarted is returned by a second Init.
	ErrAlreadyStarted = errors.New("feed: session already started")

	// ErrPageUnavailable means focus is on the last held item and the next
	// page will not load without Retry or regained connectivity. It wraps
	// the load error.
	ErrPageUnavailable = errors.New("feed: next page unavailable")

	// ErrNothingPlayable is published when every held item failed to load
	// and automatic skipping stopped.
	ErrNothingPlayable = errors.New("feed: no held item could be loaded")
)

// profileWriteTimeout bounds the background profile update after a like.
const profileWriteTimeout = 5 * time.Second

// PageFetcher loads one page of candidates.
type PageFetcher interface {
	Fetch(ctx context.Context, pageSize int, cursor string) (*fetcher.Page, error)
}

// Ranker orders a fetched page.
type Ranker interface {
	Rank(candidates []models.Candidate, req recommend.Request) []recommend.ScoredCandidate
}

// Preloader owns the three playback slots.
type Preloader interface {
	playback.Slots
	Advance(current, next, nextNext *preload.Item)
	Snapshot() []preload.SlotState
}

// Connectivity reports network availability and its changes.
type Connectivity interface {
	IsConnected() bool
	Subscribe() (<-chan bool, func())
}

// ProfileStore loads and updates the session user's profile.
type ProfileStore interface {
	GetProfile(ctx context.Context, userID string) (*models.UserProfile, error)
	UpdateProfile(ctx context.Context, userID string, patch models.ProfilePatch) (*models.UserProfile, error)
}

// EngagementPublisher forwards engagement events for remote persistence.
type EngagementPublisher interface {
	Publish(ctx context.Context, ev engagement.Event) error
}

// Deps are a session's collaborators. Fetcher, Ranker and Preloader are
// required; the rest are optional.
type Deps struct {
	Fetcher      PageFetcher
	Ranker       Ranker
	Preloader    Preloader
	Profiles     ProfileStore
	Connectivity Connectivity
	Engagement   EngagementPublisher

	// URLCache is owned by the session and closed on Dispose.
	URLCache cache.Cacher

	// Device is the device the session renders on.
	Device models.DeviceProfile
}

type fetchKind int

const (
	fetchInitial fetchKind = iota
	fetchMore
	fetchRetry
)

// Snapshot is a point-in-time view of a session.
type Snapshot struct {
	SessionID    string              `json:"session_id"`
	UserID       string              `json:"user_id"`
	State        State               `json:"state"`
	Recoverable  bool                `json:"recoverable"`
	LastError    string              `json:"last_error,omitempty"`
	Epoch        uint64              `json:"epoch"`
	Cycle        int                 `json:"cycle"`
	CurrentIndex int                 `json:"current_index"`
	WindowSize   int                 `json:"window_size"`
	HasMore      bool                `json:"has_more"`
	Busy         bool                `json:"busy"`
	Suspended    bool                `json:"autoload_suspended"`
	Attempts     int                 `json:"retry_attempts"`
	Current      *FeedItem           `json:"current,omitempty"`
	Slots        []preload.SlotState `json:"slots"`
	Playback     playback.Snapshot   `json:"playback"`
}

// Session is one user's feed: pagination, retry, dedup, wrap-around, and the
// wiring between ranking, preloading and playback. All methods are safe for
// concurrent use; network work runs in goroutines and never blocks callers.
type Session struct {
	id     string
	userID string
	cfg    Config
	deps   Deps
	logger zerolog.Logger
	play   *playback.Controller
	events *broadcaster

	ctx    context.Context
	cancel context.CancelFunc

	mu          sync.Mutex
	state       State
	recoverable bool
	lastErr     error
	window      *Window
	busy        bool
	fetchGen    uint64
	fetchKind   fetchKind
	cancelFetch context.CancelFunc
	retry       *retryPolicy
	retryTimer  *time.Timer
	timerGen    uint64
	suspended   bool
	profile     *models.UserProfile
	recent      []models.Interaction
	focusedKey  string
	skipFailed  map[string]struct{}
	pendingSkip bool
	active      bool
	lastUsed    time.Time
	stopWatch   func()
	watchDone   chan struct{}
	persist     sync.WaitGroup
}

// NewSession creates an idle session for userID.
func NewSession(userID string, cfg Config, deps Deps, logger zerolog.Logger) (*Session, error) {
	if deps.Fetcher == nil || deps.Ranker == nil || deps.Preloader == nil {
		return nil, errors.New("feed: fetcher, ranker and preloader are required")
	}
	cfg = cfg.withDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("feed config: %w", err)
	}

	id := logging.GenerateSessionID()
	ctx, cancel := context.WithCancel(context.Background())
	s := &Session{
		id:       id,
		userID:   userID,
		cfg:      cfg,
		deps:     deps,
		logger:   logger.With().Str("component", "feed").Str("session_id", id).Str("user_id", userID).Logger(),
		events:   newBroadcaster(cfg.SubscriberBuffer),
		ctx:      ctx,
		cancel:   cancel,
		state:    StateIdle,
		window:   NewWindow(cfg.EvictedMemory, cfg.EvictedTTL),
		retry:    newRetryPolicy(cfg.Backoff),
		profile:  &models.UserProfile{UserID: userID},
		lastUsed: time.Now(),
	}
	s.play = playback.New(deps.Preloader, s.skipFromPlayback, s.logger)
	s.play.OnError(s.onPlaybackError)
	s.play.OnLoaded(s.onPlaybackLoaded)
	return s, nil
}

// ID returns the session id.
func (s *Session) ID() string { return s.id }

// UserID returns the owning user.
func (s *Session) UserID() string { return s.userID }

// Playback returns the controller driving the focused item.
func (s *Session) Playback() *playback.Controller { return s.play }

// Init loads the profile and starts the first page load. It returns once the
// load is scheduled; progress is reported through Subscribe.
func (s *Session) Init(ctx context.Context) error {
	s.mu.Lock()
	if s.state == StateDisposed {
		s.mu.Unlock()
		return ErrDisposed
	}
	if s.state != StateIdle {
		s.mu.Unlock()
		return ErrAlreadyStarted
	}
	s.mu.Unlock()

	var profile *models.UserProfile
	if s.deps.Profiles != nil {
		p, err := s.deps.Profiles.GetProfile(ctx, s.userID)
		switch {
		case errors.Is(err, models.ErrNotAuthenticated):
			s.mu.Lock()
			s.setStateLocked(StateError, false, err)
			s.mu.Unlock()
			return nil
		case err != nil:
			s.logger.Warn().Err(err).Msg("Failed to load profile, continuing with an empty profile")
		default:
			profile = p
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateIdle {
		return ErrAlreadyStarted
	}
	if profile != nil {
		s.profile = profile
	}
	s.active = true
	metrics.FeedSessionsActive.Inc()
	s.startWatchLocked()

	if s.deps.Connectivity != nil && !s.deps.Connectivity.IsConnected() {
		s.suspended = true
		s.setStateLocked(StateError, true, models.ErrNoConnectivity)
		return nil
	}
	s.startFetchLocked(fetchInitial)
	return nil
}

// Dispose stops all work, releases every slot and closes subscriptions.
func (s *Session) Dispose(ctx context.Context) error {
	s.mu.Lock()
	if s.state == StateDisposed {
		s.mu.Unlock()
		return nil
	}
	active := s.active
	s.active = false
	s.invalidateFetchLocked()
	s.stopRetryTimerLocked()
	s.setStateLocked(StateDisposed, false, nil)
	stopWatch, watchDone := s.stopWatch, s.watchDone
	s.stopWatch = nil
	s.mu.Unlock()

	s.cancel()
	if stopWatch != nil {
		stopWatch()
		<-watchDone
	}
	s.persist.Wait()

	err := s.play.Teardown(ctx)
	if s.deps.URLCache != nil {
		s.deps.URLCache.Close()
	}
	s.events.close()
	if active {
		metrics.FeedSessionsActive.Dec()
	}
	s.logger.Debug().Msg("Session disposed")
	return err
}

// Subscribe returns a channel of session events and a function that ends the
// subscription. Events are dropped for subscribers that fall behind.
func (s *Session) Subscribe() (<-chan Event, func()) {
	return s.events.subscribe()
}

// State returns the current state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// GetCurrentCandidate returns the focused item.
func (s *Session) GetCurrentCandidate() (FeedItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastUsed = time.Now()
	if err := s.readableLocked(); err != nil {
		return FeedItem{}, err
	}
	item, _ := s.window.Current()
	return item, nil
}

// GetLookahead returns up to n items after the focused one.
func (s *Session) GetLookahead(n int) ([]FeedItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastUsed = time.Now()
	if err := s.readableLocked(); err != nil {
		return nil, err
	}
	return s.window.Lookahead(n), nil
}

// Advance moves focus to the next item and returns it. On the last item it
// either wraps to the first held item (feed exhausted), returns
// ErrAwaitingPage with focus unchanged (next page pending) or returns
// ErrPageUnavailable when the load has failed and nothing is scheduled.
func (s *Session) Advance() (FeedItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastUsed = time.Now()
	if err := s.readableLocked(); err != nil {
		return FeedItem{}, err
	}
	return s.advanceLocked()
}

// advanceLocked moves focus forward. Must hold s.mu.
func (s *Session) advanceLocked() (FeedItem, error) {
	leaving, _ := s.window.Current()
	s.maybeLoadMoreLocked()

	switch s.window.Advance() {
	case Exhausted:
		if err := s.stalledLocked(); err != nil {
			return leaving, err
		}
		return leaving, ErrAwaitingPage
	case Wrapped:
		metrics.FeedWraps.Inc()
		s.logger.Debug().Int("cycle", s.window.Cycle()).Msg("Feed wrapped")
	}

	s.pendingSkip = false
	s.recordInteractionLocked(leaving)
	if evicted := s.window.Evict(s.cfg.LookBehind); len(evicted) > 0 {
		s.logger.Debug().Int("count", len(evicted)).Msg("Evicted passed items")
	}
	s.focusLocked()

	current, _ := s.window.Current()
	s.publishLocked(Event{Type: EventFocus, Current: &current})
	return current, nil
}

// stalledLocked returns ErrPageUnavailable wrapping the load error when the
// session is in Error with no fetch in flight and no retry armed. Must hold s.mu.
func (s *Session) stalledLocked() error {
	if s.state != StateError || s.busy || s.retryTimer != nil {
		return nil
	}
	if s.lastErr == nil {
		return ErrPageUnavailable
	}
	return fmt.Errorf("%w: %w", ErrPageUnavailable, s.lastErr)
}

// Retry retries a failed load immediately with a fresh attempt budget.
func (s *Session) Retry() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastUsed = time.Now()
	switch s.state {
	case StateDisposed:
		return ErrDisposed
	case StateError:
	default:
		return ErrNotInError
	}
	if s.busy {
		return nil
	}
	s.stopRetryTimerLocked()
	s.retry.reset()
	s.startFetchLocked(fetchRetry)
	return nil
}

// Like bumps the like counter locally, marks the video liked in the profile
// and forwards the like for remote persistence. Remote failures are logged
// and never rolled back.
func (s *Session) Like(ctx context.Context, videoID string) error {
	if videoID == "" {
		return errors.New("feed: video id is required")
	}

	s.mu.Lock()
	if s.state == StateDisposed {
		s.mu.Unlock()
		return ErrDisposed
	}
	s.lastUsed = time.Now()
	alreadyLiked := s.profile.Liked(videoID)
	if !alreadyLiked {
		if c, ok := s.window.Find(videoID); ok {
			c.Engagement.Likes++
		}
		if s.profile.LikedVideos == nil {
			s.profile.LikedVideos = make(map[string]struct{})
		}
		s.profile.LikedVideos[videoID] = struct{}{}
		if s.deps.Profiles != nil {
			s.persist.Add(1)
		}
	}
	s.mu.Unlock()

	if alreadyLiked {
		return nil
	}

	if s.deps.Engagement != nil {
		ev := engagement.NewEvent(engagement.KindLike, s.userID, videoID, models.EngagementDelta{Likes: 1})
		if err := s.deps.Engagement.Publish(ctx, ev); err != nil {
			logging.Ctx(ctx).Warn().Err(err).Str("video_id", videoID).Msg("Failed to publish like")
		}
	}
	if s.deps.Profiles != nil {
		go s.persistLike(logging.Ctx(ctx), videoID)
	}
	return nil
}

// persistLike records a like in the stored profile. It runs on the session
// context so Dispose cancels it.
func (s *Session) persistLike(log *zerolog.Logger, videoID string) {
	defer s.persist.Done()
	ctx, cancel := context.WithTimeout(s.ctx, profileWriteTimeout)
	defer cancel()
	if _, err := s.deps.Profiles.UpdateProfile(ctx, s.userID, models.ProfilePatch{AddLiked: []string{videoID}}); err != nil {
		log.Warn().Err(err).Str("video_id", videoID).Msg("Failed to persist like in profile")
	}
}

// UpdateProfile applies a preference update. It affects pages fetched
// afterwards; the current order is never recomputed.
func (s *Session) UpdateProfile(ctx context.Context, patch models.ProfilePatch) (*models.UserProfile, error) {
	s.mu.Lock()
	if s.state == StateDisposed {
		s.mu.Unlock()
		return nil, ErrDisposed
	}
	s.lastUsed = time.Now()
	s.mu.Unlock()

	var updated *models.UserProfile
	if s.deps.Profiles != nil {
		p, err := s.deps.Profiles.UpdateProfile(ctx, s.userID, patch)
		if err != nil {
			return nil, fmt.Errorf("update profile: %w", err)
		}
		updated = p
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if updated == nil {
		patch.Apply(s.profile)
	} else {
		s.profile = updated
	}
	return s.profile.Clone(), nil
}

// Profile returns a copy of the session's profile.
func (s *Session) Profile() *models.UserProfile {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.profile.Clone()
}

// RecentInteractions returns a copy of the interaction buffer.
func (s *Session) RecentInteractions() []models.Interaction {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.Interaction(nil), s.recent...)
}

// LastUsed returns when the session last served a request.
func (s *Session) LastUsed() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastUsed
}

// Snapshot returns the session's current state.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	snap := Snapshot{
		SessionID:    s.id,
		UserID:       s.userID,
		State:        s.state,
		Recoverable:  s.recoverable,
		Epoch:        s.window.Epoch(),
		Cycle:        s.window.Cycle(),
		CurrentIndex: s.window.Index(),
		WindowSize:   s.window.Len(),
		HasMore:      s.window.HasMore(),
		Busy:         s.busy,
		Suspended:    s.suspended,
		Attempts:     s.retry.attempts,
	}
	if s.lastErr != nil {
		snap.LastError = s.lastErr.Error()
	}
	if cur, ok := s.window.Current(); ok {
		snap.Current = &cur
	}
	s.mu.Unlock()

	snap.Slots = s.deps.Preloader.Snapshot()
	snap.Playback = s.play.Snapshot()
	return snap
}

// readableLocked reports whether the window can be read. Must hold s.mu.
func (s *Session) readableLocked() error {
	if s.state == StateDisposed {
		return ErrDisposed
	}
	if !s.window.Empty() {
		return nil
	}
	switch s.state {
	case StateReady:
		if !s.window.HasMore() {
			return ErrEmptyFeed
		}
		return ErrNotReady
	case StateError:
		if s.lastErr != nil {
			return fmt.Errorf("%w: %w", ErrNotReady, s.lastErr)
		}
	}
	return ErrNotReady
}

// maybeLoadMoreLocked starts a background page fetch when focus is close to
// the end of the window. Must hold s.mu.
func (s *Session) maybeLoadMoreLocked() {
	if s.state != StateReady || s.busy || s.suspended || !s.window.HasMore() {
		return
	}
	if s.window.Remaining() > s.cfg.PreloadThreshold {
		return
	}
	s.startFetchLocked(fetchMore)
}

// startFetchLocked launches a fetch tagged with a new generation. Must hold s.mu.
func (s *Session) startFetchLocked(kind fetchKind) {
	s.fetchGen++
	gen := s.fetchGen
	s.busy = true
	s.fetchKind = kind
	ctx, cancel := context.WithCancel(s.ctx)
	s.cancelFetch = cancel
	cursor := s.window.Cursor()

	switch kind {
	case fetchInitial:
		s.setStateLocked(StateLoading, false, nil)
	case fetchRetry:
		s.setStateLocked(StateRetrying, false, s.lastErr)
	default:
		s.setStateLocked(StateLoadingMore, false, nil)
	}

	go func() {
		defer cancel()
		page, err := s.deps.Fetcher.Fetch(ctx, s.cfg.PageSize, cursor)
		s.handleFetch(gen, kind, page, err)
	}()
}

// invalidateFetchLocked discards the in-flight fetch, if any. Must hold s.mu.
func (s *Session) invalidateFetchLocked() {
	s.fetchGen++
	if s.cancelFetch != nil {
		s.cancelFetch()
		s.cancelFetch = nil
	}
	s.busy = false
}

func (s *Session) handleFetch(gen uint64, kind fetchKind, page *fetcher.Page, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == StateDisposed || gen != s.fetchGen {
		s.logger.Debug().Uint64("generation", gen).Msg("Discarding stale fetch result")
		return
	}
	s.busy = false
	s.cancelFetch = nil

	if err != nil {
		s.handleFetchErrorLocked(kind, err)
		return
	}

	ranked := s.deps.Ranker.Rank(page.Candidates, recommend.Request{
		Profile: s.profile.Clone(),
		Recent:  append([]models.Interaction(nil), s.recent...),
		Device:  s.deps.Device.Type,
	})
	wasEmpty := s.window.Empty()
	added, dropped := s.window.Merge(ranked, page.NextCursor, page.HasMore)
	metrics.RecordMerge(dropped)
	if added > 0 {
		s.skipFailed = nil
	}

	s.retry.reset()
	s.setStateLocked(StateReady, false, nil)
	s.publishLocked(Event{Type: EventMerge, Added: added})
	s.logger.Debug().Int("added", added).Int("dropped", dropped).Bool("has_more", page.HasMore).
		Uint64("epoch", s.window.Epoch()).Msg("Merged page")

	if wasEmpty && s.window.Empty() && !s.window.HasMore() {
		s.logger.Info().Msg("Feed is empty")
	}
	// Lookahead may have changed (new items, or the feed became cyclic).
	s.focusLocked()
	s.maybeLoadMoreLocked()

	if s.pendingSkip && !s.window.Empty() {
		s.pendingSkip = false
		s.skipLocked()
	}
}

// handleFetchErrorLocked applies the error policy. Must hold s.mu.
func (s *Session) handleFetchErrorLocked(kind fetchKind, err error) {
	log := s.logger.With().Err(err).Int("kind", int(kind)).Logger()

	switch {
	case models.IsFatal(err):
		log.Error().Msg("Fatal feed error")
		s.setStateLocked(StateError, false, err)
	case errors.Is(err, models.ErrNoConnectivity):
		log.Info().Msg("Offline, waiting for connectivity")
		s.suspended = true
		s.setStateLocked(StateError, true, err)
	default:
		delay, ok := s.retry.next()
		if !ok {
			log.Error().Int("attempts", s.retry.attempts).Msg("Retry budget exhausted")
			s.setStateLocked(StateError, false, err)
			return
		}
		log.Warn().Dur("retry_in", delay).Int("attempt", s.retry.attempts).Msg("Page load failed, retrying")
		s.setStateLocked(StateError, true, err)
		s.scheduleRetryLocked(delay)
		metrics.RecordRetryScheduled(delay)
		s.publishLocked(Event{Type: EventRetry, RetryIn: delay})
	}
}

// scheduleRetryLocked arms a single-shot retry timer. Must hold s.mu.
func (s *Session) scheduleRetryLocked(delay time.Duration) {
	s.stopRetryTimerLocked()
	s.timerGen++
	gen := s.timerGen
	s.retryTimer = time.AfterFunc(delay, func() { s.onRetryTimer(gen) })
}

func (s *Session) stopRetryTimerLocked() {
	if s.retryTimer != nil {
		s.retryTimer.Stop()
		s.retryTimer = nil
	}
	s.timerGen++
}

func (s *Session) onRetryTimer(gen uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.timerGen || s.state != StateError || s.busy {
		return
	}
	s.retryTimer = nil
	s.startFetchLocked(fetchRetry)
}

// startWatchLocked follows connectivity changes. Must hold s.mu.
func (s *Session) startWatchLocked() {
	if s.deps.Connectivity == nil {
		return
	}
	ch, stop := s.deps.Connectivity.Subscribe()
	done := make(chan struct{})
	s.stopWatch, s.watchDone = stop, done

	go func() {
		defer close(done)
		for {
			select {
			case <-s.ctx.Done():
				return
			case up, ok := <-ch:
				if !ok {
					return
				}
				s.onConnectivity(up)
			}
		}
	}()
}

func (s *Session) onConnectivity(up bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateDisposed {
		return
	}

	if !up {
		if s.suspended {
			return
		}
		s.suspended = true
		s.logger.Info().Msg("Connectivity lost, autoload suspended")
		if s.busy {
			s.invalidateFetchLocked()
			s.setStateLocked(StateError, true, models.ErrNoConnectivity)
			return
		}
		if s.state == StateError && s.recoverable {
			s.stopRetryTimerLocked()
			s.setStateLocked(StateError, true, models.ErrNoConnectivity)
		}
		return
	}

	if !s.suspended {
		return
	}
	s.suspended = false
	s.logger.Info().Msg("Connectivity regained")
	switch {
	case s.state == StateError && !models.IsFatal(s.lastErr):
		s.stopRetryTimerLocked()
		s.retry.reset()
		s.startFetchLocked(fetchRetry)
	case s.state == StateReady:
		s.maybeLoadMoreLocked()
	}
}

// focusLocked syncs preload slots and playback with the window. Must hold s.mu.
func (s *Session) focusLocked() {
	current, ok := s.window.Current()
	if !ok {
		return
	}
	ahead := s.window.Lookahead(2)
	slots := [3]*preload.Item{preloadItem(current)}
	for i, it := range ahead {
		slots[i+1] = preloadItem(it)
	}
	s.deps.Preloader.Advance(slots[0], slots[1], slots[2])

	if current.Key != s.focusedKey {
		s.focusedKey = current.Key
		s.play.Focus(*slots[0])
	}
}

// recordInteractionLocked remembers a watched or liked item for ranking of
// later pages. Must hold s.mu.
func (s *Session) recordInteractionLocked(left FeedItem) {
	progress := 0.0
	if snap := s.play.Snapshot(); snap.Key == left.Key {
		progress = snap.Progress
	}
	liked := s.profile.Liked(left.Candidate.ID)
	if progress < s.cfg.InteractionThreshold && !liked {
		return
	}
	s.recent = append(s.recent, models.InteractionFrom(left.Candidate, progress, liked, time.Now()))
	if over := len(s.recent) - s.cfg.RecentInteractions; over > 0 {
		s.recent = append([]models.Interaction(nil), s.recent[over:]...)
	}
}

// setStateLocked records a transition and notifies subscribers. Must hold s.mu.
func (s *Session) setStateLocked(state State, recoverable bool, err error) {
	from := s.state
	s.state, s.recoverable, s.lastErr = state, recoverable, err
	if from != state {
		metrics.RecordFeedTransition(string(from), string(state))
	}
	ev := Event{Type: EventState, Recoverable: recoverable}
	if err != nil {
		ev.Error = err.Error()
	}
	s.publishLocked(ev)
}

// publishLocked stamps and broadcasts ev. Must hold s.mu.
func (s *Session) publishLocked(ev Event) {
	ev.State = s.state
	ev.Epoch = s.window.Epoch()
	ev.At = time.Now()
	s.events.publish(ev)
}

// skipFromPlayback advances past the focused item on behalf of playback.
// Automatic skips stop once every held item has failed, so a feed with no
// loadable item does not cycle forever.
func (s *Session) skipFromPlayback(auto bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.readableLocked(); err != nil {
		if !errors.Is(err, ErrDisposed) {
			s.logger.Warn().Err(err).Msg("Skip could not advance the feed")
		}
		return
	}

	if auto {
		current, _ := s.window.Current()
		if s.skipFailed == nil {
			s.skipFailed = make(map[string]struct{})
		}
		s.skipFailed[current.Candidate.ID] = struct{}{}
		if !s.window.HasMore() && s.allHeldFailedLocked() {
			s.logger.Warn().Int("held", s.window.Len()).Int("cycle", s.window.Cycle()).
				Msg("Every held item failed to load, automatic skipping stopped")
			s.publishLocked(Event{Type: EventError, Error: ErrNothingPlayable.Error(), Recoverable: true})
			return
		}
	}
	s.skipLocked()
}

// skipLocked advances for a skip, deferring it while the next page loads.
// Must hold s.mu.
func (s *Session) skipLocked() {
	_, err := s.advanceLocked()
	switch {
	case err == nil:
	case errors.Is(err, ErrAwaitingPage):
		s.pendingSkip = true
		s.logger.Debug().Msg("Skip deferred until the next page arrives")
	default:
		s.logger.Warn().Err(err).Msg("Skip could not advance the feed")
	}
}

// allHeldFailedLocked reports whether every held item failed to load since
// the last successful load or merge. Must hold s.mu.
func (s *Session) allHeldFailedLocked() bool {
	for _, id := range s.window.IDs() {
		if _, ok := s.skipFailed[id]; !ok {
			return false
		}
	}
	return true
}

func (s *Session) onPlaybackLoaded(string, bool) {
	s.mu.Lock()
	s.skipFailed = nil
	s.mu.Unlock()
}

func (s *Session) onPlaybackError(r playback.ErrorReport) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateDisposed {
		return
	}
	s.publishLocked(Event{Type: EventError, Error: r.Err.Error(), Recoverable: !r.AutoSkipped})
}

func preloadItem(it FeedItem) *preload.Item {
	return &preload.Item{Key: it.Key, VideoID: it.Candidate.ID, StorageRef: it.Candidate.StorageRef}
}
