// Tunereel - Music Discovery Video Feed Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tunereel

package models

import (
	"errors"
	"fmt"
)

// Error taxonomy shared by the feed engine. Stores and adapters return (or
// wrap) these values so the session can decide between retry, skip and abort
// with errors.Is.
var (
	// ErrNotAuthenticated is fatal: no user is signed in. Never retried.
	ErrNotAuthenticated = errors.New("not authenticated")

	// ErrNoConnectivity is recoverable and retried when connectivity returns.
	ErrNoConnectivity = errors.New("no connectivity")

	// ErrUpstreamUnavailable is retried with capped exponential backoff.
	ErrUpstreamUnavailable = errors.New("upstream unavailable")

	// ErrResourceNotFound applies to a single candidate, which is skipped.
	ErrResourceNotFound = errors.New("resource not found")

	// ErrPreloadTimeout is non-fatal; the item gets a cold load on focus.
	ErrPreloadTimeout = errors.New("preload timed out")

	// ErrDecode is a media decode failure offering Retry or Skip.
	ErrDecode = errors.New("decode error")
)

// UpstreamError is an upstream failure with a store-specific code.
// It matches ErrUpstreamUnavailable under errors.Is.
type UpstreamError struct {
	Code string
	Err  error
}

// NewUpstreamError wraps err with an upstream code.
func NewUpstreamError(code string, err error) *UpstreamError {
	return &UpstreamError{Code: code, Err: err}
}

func (e *UpstreamError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("upstream %s: %v", e.Code, e.Err)
	}
	return "upstream " + e.Code
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}

// Is makes every UpstreamError match ErrUpstreamUnavailable.
func (e *UpstreamError) Is(target error) bool {
	return target == ErrUpstreamUnavailable
}

// IsFatal reports whether err must stop the session without retrying.
func IsFatal(err error) bool {
	return errors.Is(err, ErrNotAuthenticated)
}

// IsRetryable reports whether err should be retried with backoff.
func IsRetryable(err error) bool {
	if err == nil || IsFatal(err) {
		return false
	}
	return !errors.Is(err, ErrResourceNotFound) && !errors.Is(err, ErrNoConnectivity)
}
