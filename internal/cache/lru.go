// Tunereel - Music Discovery Video Feed Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tunereel

package cache

import (
	"sync"
	"time"
)

// lruNode is a node of the recency list.
type lruNode struct {
	key       string
	prev      *lruNode
	next      *lruNode
	expiresAt time.Time
}

// LRUSet is a bounded, thread-safe set of keys with TTL. When full, the least
// recently touched key is dropped. The feed window uses it to remember ids it
// has evicted so later pages cannot re-admit them.
//
// Operations are O(1): a hashmap indexes a doubly-linked list whose head is
// the most recently touched key.
type LRUSet struct {
	mu       sync.Mutex
	capacity int
	ttl      time.Duration
	now      func() time.Time
	items    map[string]*lruNode
	head     *lruNode
	tail     *lruNode

	hits   int64
	misses int64
}

// NewLRUSet creates a set holding at most capacity keys for ttl each.
// Non-positive values default to 10000 keys and one hour.
func NewLRUSet(capacity int, ttl time.Duration) *LRUSet {
	if capacity <= 0 {
		capacity = 10000
	}
	if ttl <= 0 {
		ttl = time.Hour
	}
	s := &LRUSet{
		capacity: capacity,
		ttl:      ttl,
		now:      time.Now,
		items:    make(map[string]*lruNode),
		head:     &lruNode{},
		tail:     &lruNode{},
	}
	s.head.next = s.tail
	s.tail.prev = s.head
	return s
}

// Add inserts or refreshes key.
func (s *LRUSet) Add(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	expiresAt := s.now().Add(s.ttl)
	if n, ok := s.items[key]; ok {
		n.expiresAt = expiresAt
		s.moveToFront(n)
		return
	}

	n := &lruNode{key: key, expiresAt: expiresAt}
	s.pushFront(n)
	s.items[key] = n
	for len(s.items) > s.capacity {
		s.unlink(s.tail.prev)
	}
}

// Contains reports whether key is present and unexpired. It does not
// refresh recency.
func (s *LRUSet) Contains(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	n, ok := s.items[key]
	if !ok {
		s.misses++
		return false
	}
	if s.now().After(n.expiresAt) {
		s.unlink(n)
		s.misses++
		return false
	}
	s.hits++
	return true
}

// Remove deletes key and reports whether it was present.
func (s *LRUSet) Remove(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if n, ok := s.items[key]; ok {
		s.unlink(n)
		return true
	}
	return false
}

// Len returns the number of keys, including expired ones not yet dropped.
func (s *LRUSet) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}

// Clear removes all keys.
func (s *LRUSet) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = make(map[string]*lruNode)
	s.head.next = s.tail
	s.tail.prev = s.head
}

// Stats returns hit/miss counts for Contains and the current size.
func (s *LRUSet) Stats() (hits, misses int64, size int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hits, s.misses, len(s.items)
}

// Internal methods (must be called with lock held)

func (s *LRUSet) pushFront(n *lruNode) {
	n.prev = s.head
	n.next = s.head.next
	s.head.next.prev = n
	s.head.next = n
}

func (s *LRUSet) moveToFront(n *lruNode) {
	n.prev.next = n.next
	n.next.prev = n.prev
	s.pushFront(n)
}

func (s *LRUSet) unlink(n *lruNode) {
	if n == s.head || n == s.tail {
		return
	}
	n.prev.next = n.next
	n.next.prev = n.prev
	delete(s.items, n.key)
}
