// Tunereel - Music Discovery Video Feed Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tunereel

package store

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/tomtom215/tunereel/internal/models"
)

// CachedProfiles is a read-through TTL cache in front of a ProfileStore.
// Callers always receive copies.
type CachedProfiles struct {
	next  ProfileStore
	cache *expirable.LRU[string, *models.UserProfile]
}

// NewCachedProfiles caches up to size profiles for ttl each.
func NewCachedProfiles(next ProfileStore, size int, ttl time.Duration) *CachedProfiles {
	if size <= 0 {
		size = 1024
	}
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &CachedProfiles{
		next:  next,
		cache: expirable.NewLRU[string, *models.UserProfile](size, nil, ttl),
	}
}

// GetProfile returns the cached profile or loads it.
func (c *CachedProfiles) GetProfile(ctx context.Context, userID string) (*models.UserProfile, error) {
	if p, ok := c.cache.Get(userID); ok {
		return p.Clone(), nil
	}
	p, err := c.next.GetProfile(ctx, userID)
	if err != nil {
		return nil, err
	}
	c.cache.Add(userID, p.Clone())
	return p, nil
}

// UpdateProfile writes through and refreshes the cached entry.
func (c *CachedProfiles) UpdateProfile(ctx context.Context, userID string, patch models.ProfilePatch) (*models.UserProfile, error) {
	p, err := c.next.UpdateProfile(ctx, userID, patch)
	if err != nil {
		c.cache.Remove(userID)
		return nil, err
	}
	c.cache.Add(userID, p.Clone())
	return p, nil
}

// Invalidate drops a cached profile.
func (c *CachedProfiles) Invalidate(userID string) {
	c.cache.Remove(userID)
}

// Len returns the number of cached profiles.
func (c *CachedProfiles) Len() int {
	return c.cache.Len()
}
