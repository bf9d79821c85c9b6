// Tunereel - Music Discovery Video Feed Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tunereel

package engagement

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/rs/zerolog"

	"github.com/tomtom215/tunereel/internal/logging"
	"github.com/tomtom215/tunereel/internal/metrics"
)

// ErrClosed is returned by Publish after Close.
var ErrClosed = errors.New("engagement: pipeline closed")

// Config controls the engagement pipeline.
type Config struct {
	// Topic is the watermill topic events are published on.
	Topic string `koanf:"topic" json:"topic"`

	// QueueBuffer is the in-process channel buffer.
	QueueBuffer int64 `koanf:"queue_buffer" json:"queue_buffer"`

	// WritesPerSecond limits remote writes. Zero disables limiting.
	WritesPerSecond float64 `koanf:"writes_per_second" json:"writes_per_second"`

	// Burst is the limiter burst size.
	Burst int `koanf:"burst" json:"burst"`
}

// DefaultConfig returns production defaults.
func DefaultConfig() Config {
	return Config{Topic: DefaultTopic, QueueBuffer: 256, WritesPerSecond: 50, Burst: 10}
}

// Pipeline publishes engagement events onto a watermill topic. By default
// the topic lives in process (gochannel); NewPipelineWith accepts any
// publisher/subscriber pair, such as NATS.
type Pipeline struct {
	pub    message.Publisher
	sub    message.Subscriber
	topic  string
	logger zerolog.Logger

	mu     sync.RWMutex
	closed bool
}

// NewPipeline creates an in-process pipeline.
func NewPipeline(cfg Config, logger zerolog.Logger) *Pipeline {
	if cfg.QueueBuffer <= 0 {
		cfg.QueueBuffer = DefaultConfig().QueueBuffer
	}
	ch := gochannel.NewGoChannel(gochannel.Config{
		OutputChannelBuffer:            cfg.QueueBuffer,
		BlockPublishUntilSubscriberAck: false,
	}, WatermillLogger(logger))
	return NewPipelineWith(ch, ch, cfg.Topic, logger)
}

// NewPipelineWith creates a pipeline on an existing publisher and subscriber.
func NewPipelineWith(pub message.Publisher, sub message.Subscriber, topic string, logger zerolog.Logger) *Pipeline {
	if topic == "" {
		topic = DefaultTopic
	}
	return &Pipeline{
		pub:    pub,
		sub:    sub,
		topic:  topic,
		logger: logger.With().Str("component", "engagement").Logger(),
	}
}

// Topic returns the topic events are published on.
func (p *Pipeline) Topic() string { return p.topic }

// Subscriber returns the subscriber side of the pipeline.
func (p *Pipeline) Subscriber() message.Subscriber { return p.sub }

// Publish enqueues ev for remote persistence.
func (p *Pipeline) Publish(ctx context.Context, ev Event) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return ErrClosed
	}

	data, err := encode(ev)
	if err != nil {
		metrics.RecordEngagement("invalid")
		return err
	}

	msg := message.NewMessage(ev.ID, data)
	msg.SetContext(ctx)
	msg.Metadata.Set("kind", string(ev.Kind))
	msg.Metadata.Set("user_id", ev.UserID)
	if id := logging.RequestIDFromContext(ctx); id != "" {
		msg.Metadata.Set("request_id", id)
	}

	if err := p.pub.Publish(p.topic, msg); err != nil {
		metrics.RecordEngagement("publish_failed")
		return fmt.Errorf("publish engagement event: %w", err)
	}
	metrics.RecordEngagement("published")
	p.logger.Debug().Str("event_id", ev.ID).Str("kind", string(ev.Kind)).Str("video_id", ev.VideoID).Msg("Published engagement event")
	return nil
}

// Close shuts down the publisher and subscriber.
func (p *Pipeline) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	p.closed = true

	// Closing a shared gochannel twice is a no-op.
	return errors.Join(p.pub.Close(), p.sub.Close())
}

// WatermillLogger adapts a zerolog logger for watermill.
func WatermillLogger(logger zerolog.Logger) watermill.LoggerAdapter {
	return watermill.NewSlogLogger(slog.New(logging.NewSlogHandler(logger)))
}
