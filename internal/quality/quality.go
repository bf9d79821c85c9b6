// Tunereel - Music Discovery Video Feed Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tunereel

package quality

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/tunereel/internal/cache"
	"github.com/tomtom215/tunereel/internal/metrics"
	"github.com/tomtom215/tunereel/internal/models"
)

// ErrResolutionFailed means no tier of a storage ref exists, including the
// original. It is always returned together with models.ErrResourceNotFound.
var ErrResolutionFailed = errors.New("resolution failed")

// Tier is a rendition quality level.
type Tier string

const (
	TierLow    Tier = "low"
	TierMedium Tier = "medium"
	TierHigh   Tier = "high"
)

// tiersDescending is the fallback order from best to worst.
var tiersDescending = []Tier{TierHigh, TierMedium, TierLow}

// BlobStore maps storage paths to playable URLs. Missing paths return an
// error matching models.ErrResourceNotFound.
type BlobStore interface {
	ResolveURL(ctx context.Context, path string) (string, error)
}

// Labels are the file-name suffixes of each tier's variant.
type Labels struct {
	Low    string `koanf:"low" json:"low"`
	Medium string `koanf:"medium" json:"medium"`
	High   string `koanf:"high" json:"high"`
}

// Config controls resolution.
type Config struct {
	Labels      Labels        `koanf:"labels" json:"labels"`
	URLCacheTTL time.Duration `koanf:"url_cache_ttl" json:"url_cache_ttl"`
}

// DefaultConfig returns 360p/720p/1080p variants cached for ten minutes.
func DefaultConfig() Config {
	return Config{
		Labels:      Labels{Low: "360p", Medium: "720p", High: "1080p"},
		URLCacheTTL: 10 * time.Minute,
	}
}

// Label returns the suffix for t.
func (l Labels) Label(t Tier) string {
	switch t {
	case TierLow:
		return l.Low
	case TierMedium:
		return l.Medium
	case TierHigh:
		return l.High
	default:
		return ""
	}
}

// SelectTier picks the target tier: poor or cellular links get low, Wi-Fi on
// a large screen gets high, everything else medium.
func SelectTier(device models.DeviceProfile, network models.NetworkState) Tier {
	switch {
	case !network.Connected, network.Quality == models.LinkPoor, network.Kind == models.NetworkCellular:
		return TierLow
	case network.Kind == models.NetworkWiFi && device.Screen == models.ScreenLarge:
		return TierHigh
	default:
		return TierMedium
	}
}

// VariantPath inserts _<label> before the extension: videos/a.mp4 becomes
// videos/a_720p.mp4.
func VariantPath(ref, label string) string {
	if label == "" {
		return ref
	}
	ext := path.Ext(ref)
	return strings.TrimSuffix(ref, ext) + "_" + label + ext
}

// Resolution is a resolved URL and how it was obtained.
type Resolution struct {
	URL    string
	Target Tier
	// Served is the tier actually found, or "" for the original path.
	Served Tier
	Steps  int
	Cached bool
}

// Resolver resolves storage refs at the best affordable tier.
type Resolver struct {
	blobs  BlobStore
	urls   cache.Cacher
	cfg    Config
	logger zerolog.Logger
}

// NewResolver creates a resolver. urls may be nil to disable caching.
func NewResolver(blobs BlobStore, urls cache.Cacher, cfg Config, logger zerolog.Logger) *Resolver {
	def := DefaultConfig()
	if cfg.Labels.Low == "" {
		cfg.Labels.Low = def.Labels.Low
	}
	if cfg.Labels.Medium == "" {
		cfg.Labels.Medium = def.Labels.Medium
	}
	if cfg.Labels.High == "" {
		cfg.Labels.High = def.Labels.High
	}
	if cfg.URLCacheTTL <= 0 {
		cfg.URLCacheTTL = def.URLCacheTTL
	}
	return &Resolver{
		blobs:  blobs,
		urls:   urls,
		cfg:    cfg,
		logger: logger.With().Str("component", "quality").Logger(),
	}
}

// Resolve returns a playable URL for storageRef. It starts at the tier
// selected for device and network, steps down one tier per not-found, and
// finally tries the original path. It never returns an empty URL without an
// error.
func (r *Resolver) Resolve(ctx context.Context, storageRef string, device models.DeviceProfile, network models.NetworkState) (Resolution, error) {
	target := SelectTier(device, network)
	key := storageRef + "|" + string(target)

	if r.urls != nil {
		if v, ok := r.urls.Get(key); ok {
			if res, ok := v.(Resolution); ok {
				metrics.RecordResolveCache(true)
				res.Cached = true
				return res, nil
			}
		}
		metrics.RecordResolveCache(false)
	}

	res, err := r.walk(ctx, storageRef, target)
	metrics.RecordResolve(string(target), servedLabel(res), res.Steps, err)
	if err != nil {
		return Resolution{Target: target}, err
	}
	if r.urls != nil {
		r.urls.SetWithTTL(key, res, r.cfg.URLCacheTTL)
	}
	return res, nil
}

func (r *Resolver) walk(ctx context.Context, storageRef string, target Tier) (Resolution, error) {
	res := Resolution{Target: target}
	if storageRef == "" {
		return res, fmt.Errorf("%w: empty storage ref: %w", ErrResolutionFailed, models.ErrResourceNotFound)
	}

	started := false
	for _, tier := range tiersDescending {
		if tier == target {
			started = true
		}
		if !started {
			continue
		}
		if err := ctx.Err(); err != nil {
			return res, err
		}

		p := VariantPath(storageRef, r.cfg.Labels.Label(tier))
		url, err := r.blobs.ResolveURL(ctx, p)
		switch {
		case err == nil && url != "":
			res.URL, res.Served = url, tier
			return res, nil
		case err == nil, errors.Is(err, models.ErrResourceNotFound):
			r.logger.Debug().Str("path", p).Str("tier", string(tier)).Msg("Tier variant not found, stepping down")
			res.Steps++
		default:
			return res, wrapUpstream(err)
		}
	}

	url, err := r.blobs.ResolveURL(ctx, storageRef)
	switch {
	case err == nil && url != "":
		res.URL = url
		return res, nil
	case err == nil, errors.Is(err, models.ErrResourceNotFound):
		r.logger.Warn().Str("storage_ref", storageRef).Msg("No tier of storage ref exists")
		return res, fmt.Errorf("%w: %s: %w", ErrResolutionFailed, storageRef, models.ErrResourceNotFound)
	default:
		return res, wrapUpstream(err)
	}
}

func wrapUpstream(err error) error {
	if errors.Is(err, models.ErrUpstreamUnavailable) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return models.NewUpstreamError("blob_store", err)
}

func servedLabel(res Resolution) string {
	if res.Served == "" {
		return "original"
	}
	return string(res.Served)
}
