// Tunereel - Music Discovery Video Feed Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tunereel

package connectivity

import (
	"context"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/tunereel/internal/metrics"
)

// Config controls the polling probe.
type Config struct {
	// ProbeURL is requested with HEAD. Empty disables polling and the
	// probe reports connected.
	ProbeURL string `koanf:"probe_url" json:"probe_url"`

	// Interval between polls.
	Interval time.Duration `koanf:"interval" json:"interval"`

	// Timeout per poll.
	Timeout time.Duration `koanf:"timeout" json:"timeout"`

	// FailureThreshold is how many consecutive failed polls mark the
	// network as down.
	FailureThreshold int `koanf:"failure_threshold" json:"failure_threshold"`
}

// DefaultConfig returns production defaults.
func DefaultConfig() Config {
	return Config{Interval: 5 * time.Second, Timeout: 2 * time.Second, FailureThreshold: 2}
}

// Validate checks the configuration ranges.
func (c Config) Validate() error {
	if c.ProbeURL == "" {
		return nil
	}
	if c.Interval <= 0 {
		return fmt.Errorf("interval must be positive, got %v", c.Interval)
	}
	if c.Timeout <= 0 || c.Timeout > c.Interval {
		return fmt.Errorf("timeout must be positive and not above interval, got %v", c.Timeout)
	}
	if c.FailureThreshold < 1 {
		return fmt.Errorf("failure_threshold must be at least 1, got %d", c.FailureThreshold)
	}
	return nil
}

// HTTPProbe polls a reachability URL. It starts optimistic (connected) and
// runs as a suture service.
type HTTPProbe struct {
	cfg    Config
	client *http.Client
	logger zerolog.Logger

	up       atomic.Bool
	failures int
	notifier
}

// NewHTTPProbe creates a polling probe.
func NewHTTPProbe(cfg Config, logger zerolog.Logger) *HTTPProbe {
	def := DefaultConfig()
	if cfg.Interval <= 0 {
		cfg.Interval = def.Interval
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}
	if cfg.FailureThreshold < 1 {
		cfg.FailureThreshold = def.FailureThreshold
	}
	p := &HTTPProbe{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
		logger: logger.With().Str("component", "connectivity").Logger(),
	}
	p.up.Store(true)
	metrics.SetConnectivity(true)
	return p
}

// IsConnected implements Probe.
func (p *HTTPProbe) IsConnected() bool { return p.up.Load() }

// IsReachable implements Probe. Any HTTP response counts as reachable;
// only transport failures do not.
func (p *HTTPProbe) IsReachable(ctx context.Context) bool {
	if p.cfg.ProbeURL == "" {
		return true
	}
	ctx, cancel := context.WithTimeout(ctx, p.cfg.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, p.cfg.ProbeURL, http.NoBody)
	if err != nil {
		p.logger.Error().Err(err).Str("url", p.cfg.ProbeURL).Msg("Invalid probe URL")
		return false
	}
	resp, err := p.client.Do(req)
	if err != nil {
		p.logger.Debug().Err(err).Msg("Probe failed")
		return false
	}
	_ = resp.Body.Close()
	return true
}

// Changes implements Probe.
func (p *HTTPProbe) Changes() <-chan bool {
	ch, _ := p.subscribe()
	return ch
}

// Subscribe implements Probe.
func (p *HTTPProbe) Subscribe() (<-chan bool, func()) { return p.subscribe() }

// Poll runs one probe and updates the state.
func (p *HTTPProbe) Poll(ctx context.Context) {
	if p.IsReachable(ctx) {
		p.failures = 0
		p.set(true)
		return
	}
	if ctx.Err() != nil {
		return
	}
	p.failures++
	if p.failures >= p.cfg.FailureThreshold {
		p.set(false)
	}
}

func (p *HTTPProbe) set(up bool) {
	if p.up.Swap(up) == up {
		return
	}
	metrics.SetConnectivity(up)
	metrics.ConnectivityChanges.Inc()
	p.logger.Info().Bool("connected", up).Int("subscribers", p.subscribers()).Msg("Connectivity changed")
	p.broadcast(up)
}

// Serve polls until ctx is canceled. It implements suture.Service.
func (p *HTTPProbe) Serve(ctx context.Context) error {
	if p.cfg.ProbeURL == "" {
		p.logger.Info().Msg("No probe URL configured, assuming connected")
		<-ctx.Done()
		return ctx.Err()
	}

	ticker := time.NewTicker(p.cfg.Interval)
	defer ticker.Stop()
	p.Poll(ctx)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			p.Poll(ctx)
		}
	}
}

// String implements fmt.Stringer for suture logging.
func (p *HTTPProbe) String() string { return "connectivity-probe" }
