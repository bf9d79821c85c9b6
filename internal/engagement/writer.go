// Tunereel - Music Discovery Video Feed Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tunereel

package engagement

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/tomtom215/tunereel/internal/metrics"
	"github.com/tomtom215/tunereel/internal/models"
)

// Sink persists engagement counters.
type Sink interface {
	IncrementEngagement(ctx context.Context, videoID string, delta models.EngagementDelta) error
}

// Writer consumes the engagement topic and applies each event to the sink
// at a limited rate. Every message is acked: a failed write is logged and
// counted but never retried or rolled back.
type Writer struct {
	sub     message.Subscriber
	topic   string
	sink    Sink
	limiter *rate.Limiter
	logger  zerolog.Logger
	ready   chan struct{}

	readyOnce sync.Once
	persisted atomic.Int64
	failed    atomic.Int64
}

// NewWriter creates a writer for the pipeline's topic.
func NewWriter(p *Pipeline, sink Sink, cfg Config, logger zerolog.Logger) *Writer {
	limit := rate.Inf
	if cfg.WritesPerSecond > 0 {
		limit = rate.Limit(cfg.WritesPerSecond)
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = 1
	}
	return &Writer{
		sub:     p.Subscriber(),
		topic:   p.Topic(),
		sink:    sink,
		limiter: rate.NewLimiter(limit, burst),
		logger:  logger.With().Str("component", "engagement-writer").Logger(),
		ready:   make(chan struct{}),
	}
}

// Ready is closed once the first subscription is established.
func (w *Writer) Ready() <-chan struct{} { return w.ready }

// Serve consumes events until ctx is canceled. It implements suture.Service.
func (w *Writer) Serve(ctx context.Context) error {
	msgs, err := w.sub.Subscribe(ctx, w.topic)
	if err != nil {
		return fmt.Errorf("subscribe to %s: %w", w.topic, err)
	}
	w.logger.Info().Str("topic", w.topic).Msg("Engagement writer started")
	w.readyOnce.Do(func() { close(w.ready) })

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-msgs:
			if !ok {
				return ctx.Err()
			}
			if err := w.handle(ctx, msg); err != nil {
				msg.Nack()
				return err
			}
			msg.Ack()
		}
	}
}

// handle applies one message. It returns an error only when ctx ends while
// waiting for the limiter.
func (w *Writer) handle(ctx context.Context, msg *message.Message) error {
	ev, err := decode(msg.Payload)
	if err != nil {
		w.failed.Add(1)
		metrics.RecordEngagement("decode_failed")
		w.logger.Warn().Err(err).Str("message_id", msg.UUID).Msg("Dropping malformed engagement event")
		return nil
	}

	if err := w.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("wait for write slot: %w", err)
	}

	if err := w.sink.IncrementEngagement(ctx, ev.VideoID, ev.Delta); err != nil {
		w.failed.Add(1)
		metrics.RecordEngagement("persist_failed")
		w.logger.Warn().Err(err).Str("event_id", ev.ID).Str("video_id", ev.VideoID).
			Str("request_id", msg.Metadata.Get("request_id")).Msg("Failed to persist engagement")
		return nil
	}
	w.persisted.Add(1)
	metrics.RecordEngagement("persisted")
	return nil
}

// Persisted returns how many events were written.
func (w *Writer) Persisted() int64 { return w.persisted.Load() }

// Failed returns how many events could not be written.
func (w *Writer) Failed() int64 { return w.failed.Load() }

// String implements fmt.Stringer for suture logging.
func (w *Writer) String() string { return "engagement-writer" }
