// Tunereel - Music Discovery Video Feed Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tunereel

package store

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/tomtom215/tunereel/internal/breaker"
	"github.com/tomtom215/tunereel/internal/models"
)

// HTTPBlobStore resolves storage paths against an HTTP origin or CDN. A path
// exists when a HEAD request for it returns 2xx.
type HTTPBlobStore struct {
	base    *url.URL
	client  *http.Client
	breaker *breaker.Breaker
}

// NewHTTPBlobStore creates a blob store rooted at baseURL.
func NewHTTPBlobStore(baseURL string, timeout time.Duration, cfg breaker.Config) (*HTTPBlobStore, error) {
	base, err := url.Parse(strings.TrimRight(baseURL, "/") + "/")
	if err != nil {
		return nil, fmt.Errorf("parse blob base url: %w", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("blob base url must be http(s), got %q", baseURL)
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	return &HTTPBlobStore{
		base:   base,
		client: &http.Client{Timeout: timeout},
		breaker: breaker.New("blob-store", cfg, func(err error) bool {
			return errors.Is(err, models.ErrResourceNotFound)
		}),
	}, nil
}

// ResolveURL returns the absolute URL for path, or an error matching
// ErrNotFound when the origin does not have it.
func (s *HTTPBlobStore) ResolveURL(ctx context.Context, path string) (string, error) {
	ref, err := url.Parse(strings.TrimLeft(path, "/"))
	if err != nil {
		return "", fmt.Errorf("parse blob path %q: %w", path, err)
	}
	target := s.base.ResolveReference(ref).String()

	_, err = breaker.Execute(s.breaker, func() (struct{}, error) {
		return struct{}{}, s.head(ctx, target)
	})
	switch {
	case err == nil:
		return target, nil
	case errors.Is(err, models.ErrResourceNotFound):
		return "", err
	case errors.Is(err, breaker.ErrOpen):
		return "", models.NewUpstreamError("blob_circuit_open", err)
	default:
		return "", models.NewUpstreamError("blob_unavailable", err)
	}
}

func (s *HTTPBlobStore) head(ctx context.Context, target string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, target, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("head %s: %w", target, err)
	}
	resp.Body.Close()

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return nil
	case resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusGone:
		return fmt.Errorf("head %s: %w", target, ErrNotFound)
	default:
		return fmt.Errorf("head %s: unexpected status %d", target, resp.StatusCode)
	}
}
