// Tunereel - Music Discovery Video Feed Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tunereel

package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"

	"github.com/tomtom215/tunereel/internal/models"
)

const profileKeyPrefix = "profile:"

// BadgerProfileStore persists user profiles in badger. Unknown users get an
// empty profile rather than an error.
type BadgerProfileStore struct {
	db *badger.DB
}

// NewBadgerProfileStore wraps an open badger database.
func NewBadgerProfileStore(db *badger.DB) *BadgerProfileStore {
	return &BadgerProfileStore{db: db}
}

// GetProfile returns the stored profile for userID.
func (s *BadgerProfileStore) GetProfile(ctx context.Context, userID string) (*models.UserProfile, error) {
	if userID == "" {
		return nil, models.ErrNotAuthenticated
	}

	var profile *models.UserProfile
	err := s.db.View(func(txn *badger.Txn) error {
		var err error
		profile, err = getProfile(txn, userID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return profile, nil
}

// UpdateProfile applies patch atomically and returns the updated profile.
func (s *BadgerProfileStore) UpdateProfile(ctx context.Context, userID string, patch models.ProfilePatch) (*models.UserProfile, error) {
	if userID == "" {
		return nil, models.ErrNotAuthenticated
	}

	var updated *models.UserProfile
	var err error
	for attempt := 0; attempt < maxConflictRetries; attempt++ {
		err = s.db.Update(func(txn *badger.Txn) error {
			profile, err := getProfile(txn, userID)
			if err != nil {
				return err
			}
			patch.Apply(profile)

			data, err := json.Marshal(profile)
			if err != nil {
				return fmt.Errorf("marshal profile: %w", err)
			}
			if err := txn.Set([]byte(profileKeyPrefix+userID), data); err != nil {
				return fmt.Errorf("set profile: %w", err)
			}
			updated = profile
			return nil
		})
		if !errors.Is(err, badger.ErrConflict) {
			break
		}
	}
	if err != nil {
		return nil, fmt.Errorf("update profile %s: %w", userID, err)
	}
	return updated, nil
}

func getProfile(txn *badger.Txn, userID string) (*models.UserProfile, error) {
	item, err := txn.Get([]byte(profileKeyPrefix + userID))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return &models.UserProfile{UserID: userID}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get profile: %w", err)
	}

	var profile models.UserProfile
	if err := item.Value(func(val []byte) error {
		return json.Unmarshal(val, &profile)
	}); err != nil {
		return nil, fmt.Errorf("unmarshal profile: %w", err)
	}
	return &profile, nil
}
