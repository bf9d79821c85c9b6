// Tunereel - Music Discovery Video Feed Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tunereel

package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/tomtom215/tunereel/internal/api"
	"github.com/tomtom215/tunereel/internal/auth"
	"github.com/tomtom215/tunereel/internal/breaker"
	"github.com/tomtom215/tunereel/internal/config"
	"github.com/tomtom215/tunereel/internal/connectivity"
	"github.com/tomtom215/tunereel/internal/engagement"
	"github.com/tomtom215/tunereel/internal/feed"
	"github.com/tomtom215/tunereel/internal/logging"
	"github.com/tomtom215/tunereel/internal/media"
	"github.com/tomtom215/tunereel/internal/models"
	"github.com/tomtom215/tunereel/internal/quality"
	"github.com/tomtom215/tunereel/internal/recommend"
	"github.com/tomtom215/tunereel/internal/store"
	"github.com/tomtom215/tunereel/internal/supervisor"
	"github.com/tomtom215/tunereel/internal/supervisor/services"
	ws "github.com/tomtom215/tunereel/internal/websocket"
)

func newServeCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the feed API server",
		Long: `Run the HTTP and WebSocket API.

Feed sessions are created on a user's first request and disposed after
feed.session_idle_timeout without use.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(configPath)
			if err != nil {
				return err
			}
			logging.Init(cfg.LoggingOptions(os.Stderr))

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, cfg)
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", "", "config file (default: $CONFIG_PATH or ./config.yaml)")
	return cmd
}

func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		return config.Load()
	}
	return config.LoadFile(path)
}

// runServe wires the engine and blocks until ctx is canceled or the
// supervisor tree gives up.
//
//nolint:gocyclo // Sequential setup steps
func runServe(ctx context.Context, cfg *config.Config) error {
	logger := logging.Logger()

	logging.Info().
		Str("version", version).
		Str("addr", cfg.Server.Addr()).
		Bool("in_memory", cfg.Store.InMemory).
		Bool("jwt", cfg.Auth.JWTSecret != "").
		Msg("Starting tunereel")

	db, err := store.Open(cfg.StoreOptions())
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing store")
		}
	}()

	metadata := store.NewMetadataStore(db)
	if n, err := metadata.Count(ctx); err == nil {
		logging.Info().Int("candidates", n).Msg("Metadata store opened")
	}
	profiles := store.NewCachedProfiles(store.NewBadgerProfileStore(db), cfg.Store.ProfileCacheSize, cfg.Store.ProfileCacheTTL)

	blobs, err := newBlobStore(cfg)
	if err != nil {
		return err
	}

	ranker, err := recommend.NewRanker(&cfg.Ranking, logger)
	if err != nil {
		return fmt.Errorf("create ranker: %w", err)
	}

	probe := connectivity.NewHTTPProbe(cfg.Connectivity, logger)
	if cfg.Connectivity.ProbeURL == "" {
		logging.Info().Msg("Connectivity probe disabled, network assumed up")
	}

	pipeline, err := newEngagementPipeline(cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := pipeline.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing engagement pipeline")
		}
	}()
	writer := engagement.NewWriter(pipeline, metadata, cfg.Engagement, logger)

	wiring := &sessionWiring{
		feed:       cfg.Feed,
		quality:    cfg.Quality,
		preload:    cfg.Preload,
		metadata:   metadata,
		profiles:   profiles,
		blobs:      blobs,
		ranker:     ranker,
		loader:     media.NewSimulator(cfg.Simulator),
		probe:      probe,
		engagement: pipeline,
		breaker:    breaker.New("metadata-store", cfg.Breaker, nil),
		device:     models.DeviceProfile{Type: models.DeviceMobile, Screen: models.ScreenSmall},
		logger:     logger,
	}
	registry := feed.NewRegistry(wiring.factory(), cfg.Feed.SessionIdleTimeout, logger)

	hub := ws.NewHub(probe, logger)

	routerCfg := api.RouterConfig{
		CORSOrigins:       cfg.Server.CORSOrigins,
		RateLimitRequests: cfg.Server.RateLimitRequests,
		RateLimitWindow:   cfg.Server.RateLimitWindow,
		RateLimitDisabled: cfg.Server.RateLimitDisabled,
		StaticUserID:      cfg.Auth.StaticUserID,
		Logger:            logger,
	}
	if cfg.Auth.JWTSecret != "" {
		verifier, err := auth.NewTokenVerifier(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL, cfg.Auth.Issuer)
		if err != nil {
			return fmt.Errorf("create token verifier: %w", err)
		}
		routerCfg.Verifier = verifier
	}
	if cfg.Auth.StaticUserID != "" {
		logging.Warn().Str("user_id", cfg.Auth.StaticUserID).
			Msg("Requests without a token are served as the static user. Do not expose this instance publicly")
	}
	if cfg.Server.RateLimitDisabled {
		logging.Warn().Msg("Rate limiting is DISABLED (DISABLE_RATE_LIMIT=true)")
	}

	handler := api.NewHandler(api.HandlerOptions{
		Sessions:    registry,
		Hub:         hub,
		Network:     probe,
		CORSOrigins: cfg.Server.CORSOrigins,
		Version:     version,
	})

	server := &http.Server{
		Addr:              cfg.Server.Addr(),
		Handler:           api.NewRouter(handler, routerCfg),
		ReadTimeout:       cfg.Server.ReadTimeout,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       cfg.Server.IdleTimeout,
	}

	treeCfg := supervisor.DefaultTreeConfig()
	treeCfg.ShutdownTimeout = cfg.Server.ShutdownTimeout
	tree := supervisor.NewTree(logging.NewSlogLogger(), treeCfg)

	// Session layer
	tree.AddSessionService(probe)
	tree.AddSessionService(feed.NewJanitor(registry, janitorInterval(cfg.Feed.SessionIdleTimeout)))

	// Messaging layer
	tree.AddMessagingService(writer)
	tree.AddMessagingService(hub)

	// API layer
	tree.AddAPIService(services.NewHTTPServerService(server, server.Addr, cfg.Server.ShutdownTimeout, logger))

	logging.Info().Msg("Starting supervisor tree...")
	errCh := tree.ServeBackground(ctx)

	var serveErr error
	select {
	case <-ctx.Done():
		logging.Info().Msg("Shutdown requested, waiting for supervisor to finish...")
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor tree error")
			serveErr = err
		}
	}
	for err := range errCh {
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor shutdown error")
		}
	}

	unstopped, _ := tree.UnstoppedServiceReport()
	for _, svc := range unstopped {
		logging.Warn().Str("service", svc.Name).Msg("Service failed to stop")
	}

	// The janitor disposes sessions when it stops; this catches any created
	// by requests still in flight at that moment.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := registry.DisposeAll(shutdownCtx); err != nil && !errors.Is(err, feed.ErrRegistryClosed) {
		logging.Warn().Err(err).Msg("Failed to dispose sessions")
	}

	logging.Info().Int64("engagement_persisted", writer.Persisted()).Msg("Tunereel stopped")
	return serveErr
}

// newBlobStore returns the HTTP blob store, or an in-process store that
// resolves every path when no blob server is configured.
func newBlobStore(cfg *config.Config) (quality.BlobStore, error) {
	if cfg.Store.BlobBaseURL == "" {
		logging.Warn().Msg("BLOB_BASE_URL not set, serving storage refs without checking they exist")
		blobs := store.NewMemoryBlobs("")
		blobs.AcceptAll()
		return blobs, nil
	}
	blobs, err := store.NewHTTPBlobStore(cfg.Store.BlobBaseURL, cfg.Store.RequestTimeout, cfg.Breaker)
	if err != nil {
		return nil, fmt.Errorf("create blob store: %w", err)
	}
	return blobs, nil
}

// newEngagementPipeline picks the engagement transport. NATS is used when
// enabled and compiled in; otherwise events stay in process.
func newEngagementPipeline(cfg *config.Config, logger zerolog.Logger) (*engagement.Pipeline, error) {
	if !cfg.NATS.Enabled {
		return engagement.NewPipeline(cfg.Engagement, logger), nil
	}
	if !engagement.NATSAvailable {
		logging.Warn().Msg("NATS_ENABLED=true but NATS support not compiled (build with -tags nats)")
		return engagement.NewPipeline(cfg.Engagement, logger), nil
	}

	p, err := engagement.NewNATSPipeline(cfg.NATS, cfg.Engagement.Topic, logger)
	if err != nil {
		return nil, fmt.Errorf("create NATS engagement pipeline: %w", err)
	}
	logging.Info().Str("url", cfg.NATS.URL).Msg("Engagement events routed through NATS JetStream")
	return p, nil
}

// janitorInterval sweeps four times per idle timeout, at most once a
// second and at least once a minute.
func janitorInterval(idle time.Duration) time.Duration {
	interval := idle / 4
	if interval < time.Second {
		return time.Second
	}
	if interval > time.Minute {
		return time.Minute
	}
	return interval
}
