// Tunereel - Music Discovery Video Feed Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tunereel

package feed

import (
	"fmt"
	"time"

	"github.com/tomtom215/tunereel/internal/cache"
	"github.com/tomtom215/tunereel/internal/models"
	"github.com/tomtom215/tunereel/internal/recommend"
)

// FeedItem is a ranked candidate as exposed to the UI. Key is unique across
// wrap-around cycles: id#cycle.
type FeedItem struct {
	Key       string           `json:"key"`
	Cycle     int              `json:"cycle"`
	Wrapped   bool             `json:"wrapped"`
	Score     float64          `json:"score"`
	Reason    string           `json:"reason,omitempty"`
	Candidate models.Candidate `json:"candidate"`
}

// ItemKey builds the key of id in cycle.
func ItemKey(id string, cycle int) string {
	return fmt.Sprintf("%s#%d", id, cycle)
}

// Window is the ordered, deduplicated sequence of held candidates. It is not
// safe for concurrent use; the session serializes access.
type Window struct {
	entries []recommend.ScoredCandidate
	ids     map[string]struct{}
	evicted *cache.LRUSet

	current int
	cycle   int
	epoch   uint64
	cursor  string
	hasMore bool
}

// NewWindow creates an empty window that remembers up to evictedMemory
// evicted ids for evictedTTL.
func NewWindow(evictedMemory int, evictedTTL time.Duration) *Window {
	return &Window{
		ids:     make(map[string]struct{}),
		evicted: cache.NewLRUSet(evictedMemory, evictedTTL),
		hasMore: true,
	}
}

// Merge appends a ranked page, dropping ids already held or previously
// evicted. Existing order is untouched. It returns how many items were
// appended and dropped, and increments the epoch.
func (w *Window) Merge(page []recommend.ScoredCandidate, nextCursor string, hasMore bool) (added, dropped int) {
	for _, sc := range page {
		id := sc.Candidate.ID
		if _, dup := w.ids[id]; dup || w.evicted.Contains(id) {
			dropped++
			continue
		}
		w.ids[id] = struct{}{}
		w.entries = append(w.entries, sc)
		added++
	}
	w.cursor = nextCursor
	w.hasMore = hasMore
	w.epoch++
	return added, dropped
}

// Len returns the number of held items.
func (w *Window) Len() int { return len(w.entries) }

// Empty reports whether no items are held.
func (w *Window) Empty() bool { return len(w.entries) == 0 }

// Epoch returns the merge counter.
func (w *Window) Epoch() uint64 { return w.epoch }

// Cycle returns the wrap-around counter.
func (w *Window) Cycle() int { return w.cycle }

// Index returns the focus index.
func (w *Window) Index() int { return w.current }

// Cursor returns the cursor for the next page.
func (w *Window) Cursor() string { return w.cursor }

// HasMore reports whether more pages may exist.
func (w *Window) HasMore() bool { return w.hasMore }

// Remaining returns how many items follow the focused one.
func (w *Window) Remaining() int {
	if w.Empty() {
		return 0
	}
	return len(w.entries) - 1 - w.current
}

// Current returns the focused item.
func (w *Window) Current() (FeedItem, bool) {
	if w.Empty() {
		return FeedItem{}, false
	}
	return w.item(w.current, w.cycle), true
}

// Lookahead returns up to n items after the focused one. Once the feed is
// exhausted it continues into the next cycle, so keys match what Advance
// will produce after wrapping.
func (w *Window) Lookahead(n int) []FeedItem {
	if w.Empty() || n <= 0 {
		return nil
	}
	out := make([]FeedItem, 0, n)
	idx, cycle := w.current, w.cycle
	for len(out) < n {
		idx++
		if idx >= len(w.entries) {
			if w.hasMore {
				break
			}
			idx, cycle = 0, cycle+1
		}
		out = append(out, w.item(idx, cycle))
	}
	return out
}

// AdvanceResult describes the outcome of moving focus forward.
type AdvanceResult int

const (
	// Moved means focus moved to the next held item.
	Moved AdvanceResult = iota
	// Wrapped means focus returned to the first held item in a new cycle.
	Wrapped
	// Exhausted means focus is on the last item and more pages are pending.
	Exhausted
	// Empty means nothing is held.
	Empty
)

// Advance moves focus forward by one, wrapping when the feed is exhausted.
func (w *Window) Advance() AdvanceResult {
	switch {
	case w.Empty():
		return Empty
	case w.current+1 < len(w.entries):
		w.current++
		return Moved
	case w.hasMore:
		return Exhausted
	default:
		w.current = 0
		w.cycle++
		return Wrapped
	}
}

// Evict drops items more than lookBehind positions behind focus while more
// pages may arrive. Evicted ids are remembered so later pages cannot bring
// them back. Returns the evicted ids.
func (w *Window) Evict(lookBehind int) []string {
	if !w.hasMore || lookBehind < 0 {
		return nil
	}
	n := w.current - lookBehind
	if n <= 0 {
		return nil
	}
	ids := make([]string, 0, n)
	for _, e := range w.entries[:n] {
		id := e.Candidate.ID
		delete(w.ids, id)
		w.evicted.Add(id)
		ids = append(ids, id)
	}
	w.entries = append([]recommend.ScoredCandidate(nil), w.entries[n:]...)
	w.current -= n
	return ids
}

// Find returns the held candidate with id.
func (w *Window) Find(id string) (*models.Candidate, bool) {
	for i := range w.entries {
		if w.entries[i].Candidate.ID == id {
			return &w.entries[i].Candidate, true
		}
	}
	return nil, false
}

// IDs returns the held ids in order.
func (w *Window) IDs() []string {
	out := make([]string, len(w.entries))
	for i, e := range w.entries {
		out[i] = e.Candidate.ID
	}
	return out
}

func (w *Window) item(idx, cycle int) FeedItem {
	sc := w.entries[idx]
	return FeedItem{
		Key:       ItemKey(sc.Candidate.ID, cycle),
		Cycle:     cycle,
		Wrapped:   cycle > 0,
		Score:     sc.Score,
		Reason:    sc.Reason,
		Candidate: sc.Candidate.Clone(),
	}
}
