// Tunereel - Music Discovery Video Feed Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tunereel

package main

import (
	"github.com/rs/zerolog"

	"github.com/tomtom215/tunereel/internal/auth"
	"github.com/tomtom215/tunereel/internal/breaker"
	"github.com/tomtom215/tunereel/internal/cache"
	"github.com/tomtom215/tunereel/internal/connectivity"
	"github.com/tomtom215/tunereel/internal/feed"
	"github.com/tomtom215/tunereel/internal/fetcher"
	"github.com/tomtom215/tunereel/internal/media"
	"github.com/tomtom215/tunereel/internal/models"
	"github.com/tomtom215/tunereel/internal/preload"
	"github.com/tomtom215/tunereel/internal/quality"
	"github.com/tomtom215/tunereel/internal/recommend"
)

// sessionWiring holds the process-wide collaborators shared by every feed
// session. Per-session parts (fetcher identity, URL cache, preload slots)
// are built by factory.
type sessionWiring struct {
	feed       feed.Config
	quality    quality.Config
	preload    preload.Config
	metadata   fetcher.MetadataStore
	profiles   feed.ProfileStore
	blobs      quality.BlobStore
	ranker     *recommend.Ranker
	loader     media.Loader
	probe      connectivity.Probe
	engagement feed.EngagementPublisher
	breaker    *breaker.Breaker
	device     models.DeviceProfile
	logger     zerolog.Logger
}

// factory returns the registry's session constructor.
func (w *sessionWiring) factory() feed.SessionFactory {
	urlCaches := cache.TTLFactory(w.quality.URLCacheTTL)

	return func(userID string) (*feed.Session, error) {
		urls := urlCaches()
		resolver := quality.NewResolver(w.blobs, urls, w.quality, w.logger)
		coord := preload.New(resolver, w.loader, w.environment, w.preload, w.logger)

		opts := []fetcher.Option{}
		if w.breaker != nil {
			opts = append(opts, fetcher.WithBreaker(w.breaker))
		}

		deps := feed.Deps{
			Fetcher:   fetcher.New(w.metadata, auth.Static(userID), w.probe, w.logger, opts...),
			Ranker:    w.ranker,
			Preloader: coord,
			Profiles:  w.profiles,
			URLCache:  urls,
			Device:    w.device,
		}
		if w.probe != nil {
			deps.Connectivity = w.probe
		}
		if w.engagement != nil {
			deps.Engagement = w.engagement
		}

		s, err := feed.NewSession(userID, w.feed, deps, w.logger)
		if err != nil {
			urls.Close()
			return nil, err
		}
		return s, nil
	}
}

// environment reports the device and link used for quality selection. The
// probe only knows whether the network is up, so a live link is assumed to
// be good Wi-Fi.
func (w *sessionWiring) environment() (models.DeviceProfile, models.NetworkState) {
	if w.probe != nil && !w.probe.IsConnected() {
		return w.device, models.NetworkState{Connected: false, Kind: models.NetworkNone}
	}
	return w.device, models.NetworkState{Connected: true, Kind: models.NetworkWiFi, Quality: models.LinkGood}
}
