// Tunereel - Music Discovery Video Feed Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tunereel

package engagement

import (
	"errors"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/tomtom215/tunereel/internal/models"
)

// Kind is the type of engagement.
type Kind string

const (
	KindLike  Kind = "like"
	KindShare Kind = "share"
	KindView  Kind = "view"
)

// DefaultTopic carries engagement events.
const DefaultTopic = "engagement.events"

// Event is a single engagement action to be persisted remotely.
type Event struct {
	ID         string                 `json:"id"`
	Kind       Kind                   `json:"kind"`
	UserID     string                 `json:"user_id"`
	VideoID    string                 `json:"video_id"`
	Delta      models.EngagementDelta `json:"delta"`
	OccurredAt time.Time              `json:"occurred_at"`
}

// NewEvent builds an event with a fresh id.
func NewEvent(kind Kind, userID, videoID string, delta models.EngagementDelta) Event {
	return Event{
		ID:         uuid.New().String(),
		Kind:       kind,
		UserID:     userID,
		VideoID:    videoID,
		Delta:      delta,
		OccurredAt: time.Now().UTC(),
	}
}

// Validate checks that the event can be persisted.
func (e Event) Validate() error {
	if e.ID == "" {
		return errors.New("event id is required")
	}
	if e.VideoID == "" {
		return errors.New("video id is required")
	}
	switch e.Kind {
	case KindLike, KindShare, KindView:
	default:
		return fmt.Errorf("unknown engagement kind %q", e.Kind)
	}
	if e.Delta.IsZero() {
		return errors.New("delta is empty")
	}
	return nil
}

func encode(e Event) ([]byte, error) {
	if err := e.Validate(); err != nil {
		return nil, fmt.Errorf("validate event: %w", err)
	}
	data, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("marshal event: %w", err)
	}
	return data, nil
}

func decode(data []byte) (Event, error) {
	var e Event
	if err := json.Unmarshal(data, &e); err != nil {
		return Event{}, fmt.Errorf("unmarshal event: %w", err)
	}
	if err := e.Validate(); err != nil {
		return Event{}, fmt.Errorf("validate event: %w", err)
	}
	return e, nil
}
