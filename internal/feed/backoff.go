// Tunereel - Music Discovery Video Feed Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tunereel

package feed

import (
	"time"

	"github.com/cenkalti/backoff/v5"
)

// retryPolicy hands out non-decreasing delays (initial, initial*m, ...
// capped at max) for at most maxAttempts retries.
type retryPolicy struct {
	b           *backoff.ExponentialBackOff
	maxAttempts int
	attempts    int
}

func newRetryPolicy(cfg BackoffConfig) *retryPolicy {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = cfg.Initial
	b.MaxInterval = cfg.Max
	b.Multiplier = cfg.Multiplier
	b.RandomizationFactor = 0
	b.Reset()
	return &retryPolicy{b: b, maxAttempts: cfg.MaxAttempts}
}

// next returns the delay before the next retry, or false once the attempt
// budget is spent.
func (p *retryPolicy) next() (time.Duration, bool) {
	if p.attempts >= p.maxAttempts {
		return 0, false
	}
	d := p.b.NextBackOff()
	if d == backoff.Stop {
		return 0, false
	}
	if d > p.b.MaxInterval {
		d = p.b.MaxInterval
	}
	p.attempts++
	return d, true
}

// reset restores the full attempt budget.
func (p *retryPolicy) reset() {
	p.attempts = 0
	p.b.Reset()
}
