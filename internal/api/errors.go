// Tunereel - Music Discovery Video Feed Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tunereel

package api

import (
	"errors"
	"net/http"

	"github.com/tomtom215/tunereel/internal/feed"
	"github.com/tomtom215/tunereel/internal/models"
	"github.com/tomtom215/tunereel/internal/playback"
	"github.com/tomtom215/tunereel/internal/validation"
)

// Error codes returned in models.APIError.Code.
const (
	ErrCodeValidation         = validation.CodeValidation
	ErrCodeAuthentication     = "AUTHENTICATION_ERROR"
	ErrCodeNoConnectivity     = "NO_CONNECTIVITY"
	ErrCodeUpstream           = "UPSTREAM_ERROR"
	ErrCodeAwaitingPage       = "AWAITING_PAGE"
	ErrCodePageUnavailable    = "PAGE_UNAVAILABLE"
	ErrCodeNotReady           = "NOT_READY"
	ErrCodeEmptyFeed          = "EMPTY_FEED"
	ErrCodeNotInError         = "NOT_IN_ERROR"
	ErrCodeInvalidTransition  = "INVALID_TRANSITION"
	ErrCodeSessionDisposed    = "SESSION_DISPOSED"
	ErrCodeBadRequest         = "BAD_REQUEST"
	ErrCodeServiceUnavailable = "SERVICE_UNAVAILABLE"
	ErrCodeInternal           = "INTERNAL_ERROR"
)

// errorMapping maps one sentinel onto an HTTP status and error code.
type errorMapping struct {
	target  error
	status  int
	code    string
	message string
}

// errorMappings is checked in order. Causes come before the feed errors
// that wrap them, so a NOT_READY caused by an outage reports the outage.
var errorMappings = []errorMapping{
	{models.ErrNotAuthenticated, http.StatusUnauthorized, ErrCodeAuthentication, "authentication required"},
	{models.ErrNoConnectivity, http.StatusServiceUnavailable, ErrCodeNoConnectivity, "no network connectivity"},
	{models.ErrUpstreamUnavailable, http.StatusBadGateway, ErrCodeUpstream, "metadata store unavailable"},
	{feed.ErrAwaitingPage, http.StatusConflict, ErrCodeAwaitingPage, "next page is still loading"},
	{feed.ErrPageUnavailable, http.StatusServiceUnavailable, ErrCodePageUnavailable, "next page could not be loaded, retry the feed"},
	{feed.ErrEmptyFeed, http.StatusConflict, ErrCodeEmptyFeed, "no videos available"},
	{feed.ErrNotReady, http.StatusConflict, ErrCodeNotReady, "feed is not ready"},
	{feed.ErrNotInError, http.StatusConflict, ErrCodeNotInError, "feed is not in an error state"},
	{playback.ErrInvalidTransition, http.StatusConflict, ErrCodeInvalidTransition, "playback cannot do that now"},
	{feed.ErrDisposed, http.StatusGone, ErrCodeSessionDisposed, "feed session ended"},
	{feed.ErrRegistryClosed, http.StatusServiceUnavailable, ErrCodeServiceUnavailable, "server is shutting down"},
}

// classifyError returns the status, code and client message for err.
// Unknown errors are internal and their text is not exposed.
func classifyError(err error) (status int, code, message string) {
	for _, m := range errorMappings {
		if errors.Is(err, m.target) {
			return m.status, m.code, m.message
		}
	}
	return http.StatusInternalServerError, ErrCodeInternal, "internal server error"
}
