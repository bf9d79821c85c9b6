// Tunereel - Music Discovery Video Feed Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tunereel

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/tomtom215/tunereel/internal/connectivity"
	"github.com/tomtom215/tunereel/internal/engagement"
	"github.com/tomtom215/tunereel/internal/feed"
	"github.com/tomtom215/tunereel/internal/logging"
	"github.com/tomtom215/tunereel/internal/media"
	"github.com/tomtom215/tunereel/internal/models"
	"github.com/tomtom215/tunereel/internal/preload"
	"github.com/tomtom215/tunereel/internal/quality"
	"github.com/tomtom215/tunereel/internal/recommend"
	"github.com/tomtom215/tunereel/internal/store"
)

const demoCDN = "https://cdn.tunereel.local"

type simulateOptions struct {
	user      string
	swipes    int
	catalog   int
	pageSize  int
	likeEvery int
	genres    []string
	timeout   time.Duration
	logLevel  string
}

func newSimulateCmd() *cobra.Command {
	opts := simulateOptions{}

	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Swipe through a demo feed without a server",
		Long: `Seed a demo catalog into in-memory stores, run one feed session headless
and print every focus transition.

Playback uses the simulated decoder, so preloading and paging behave as they
do under serve.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			logging.Init(logging.Config{Level: opts.logLevel, Format: "console", Timestamp: true, Output: cmd.ErrOrStderr()})

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runSimulate(ctx, opts, cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVarP(&opts.user, "user", "u", "demo-user", "user id of the session")
	cmd.Flags().IntVarP(&opts.swipes, "swipes", "n", 20, "number of swipes")
	cmd.Flags().IntVar(&opts.catalog, "catalog", 30, "number of demo candidates")
	cmd.Flags().IntVar(&opts.pageSize, "page-size", 8, "candidates per page")
	cmd.Flags().IntVar(&opts.likeEvery, "like-every", 0, "like every nth focused video (0 disables)")
	cmd.Flags().StringSliceVar(&opts.genres, "genres", nil, "preferred genres of the user")
	cmd.Flags().DurationVar(&opts.timeout, "timeout", time.Minute, "give up after this long")
	cmd.Flags().StringVar(&opts.logLevel, "log-level", "warn", "log level")

	return cmd
}

func runSimulate(ctx context.Context, opts simulateOptions, out io.Writer) error {
	if opts.swipes < 0 || opts.catalog < 0 {
		return errors.New("swipes and catalog must not be negative")
	}
	if opts.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.timeout)
		defer cancel()
	}
	logger := logging.Logger()

	docs := demoCatalog(opts.catalog, time.Now())
	meta := store.NewMemoryMetadata(docs...)
	profiles := store.NewMemoryProfiles()
	if len(opts.genres) > 0 {
		profiles.Set(&models.UserProfile{UserID: opts.user, PreferredGenres: opts.genres})
	}
	blobs := store.NewMemoryBlobs(demoCDN)
	blobs.AcceptAll()

	ranker, err := recommend.NewRanker(nil, logger)
	if err != nil {
		return err
	}

	pipeline := engagement.NewPipeline(engagement.DefaultConfig(), logger)
	defer func() { _ = pipeline.Close() }()
	writer := engagement.NewWriter(pipeline, meta, engagement.DefaultConfig(), logger)
	writerCtx, stopWriter := context.WithCancel(ctx)
	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		_ = writer.Serve(writerCtx)
	}()
	defer func() {
		stopWriter()
		<-writerDone
	}()
	select {
	case <-writer.Ready():
	case <-ctx.Done():
		return ctx.Err()
	}

	feedCfg := feed.DefaultConfig()
	if opts.pageSize > 0 {
		feedCfg.PageSize = opts.pageSize
	}
	feedCfg.PreloadThreshold = min(feedCfg.PreloadThreshold, feedCfg.PageSize)

	wiring := &sessionWiring{
		feed:     feedCfg,
		quality:  quality.DefaultConfig(),
		preload:  preload.DefaultConfig(),
		metadata: meta,
		profiles: profiles,
		blobs:    blobs,
		ranker:   ranker,
		loader: media.NewSimulator(media.SimulatorConfig{
			OpenLatency:  20 * time.Millisecond,
			ClipLength:   5 * time.Second,
			TickInterval: 250 * time.Millisecond,
		}),
		probe:      connectivity.NewManual(true),
		engagement: pipeline,
		device:     models.DeviceProfile{Type: models.DeviceMobile, Screen: models.ScreenSmall},
		logger:     logger,
	}

	session, err := wiring.factory()(opts.user)
	if err != nil {
		return err
	}
	defer func() {
		disposeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = session.Dispose(disposeCtx)
	}()

	if err := session.Init(ctx); err != nil {
		return err
	}
	if err := waitUntil(ctx, func() bool { return settled(session.State()) }); err != nil {
		return fmt.Errorf("waiting for first page: %w", err)
	}

	current, err := session.GetCurrentCandidate()
	if errors.Is(err, feed.ErrEmptyFeed) {
		fmt.Fprintln(out, "catalog is empty")
		return nil
	}
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "session %s for %s (%d candidates, page size %d)\n", session.ID(), opts.user, len(docs), feedCfg.PageSize)
	printFocus(out, 0, current)

	likes := 0
	for i := 1; i <= opts.swipes; i++ {
		if opts.likeEvery > 0 && i%opts.likeEvery == 0 {
			if err := session.Like(ctx, current.Candidate.ID); err != nil {
				return err
			}
			likes++
		}

		item, err := advance(ctx, session)
		if err != nil {
			return fmt.Errorf("swipe %d: %w", i, err)
		}
		current = item
		printFocus(out, i, current)
	}

	snap := session.Snapshot()
	fmt.Fprintf(out, "done: %d swipes, cycle %d, epoch %d, window %d, likes %d\n",
		opts.swipes, snap.Cycle, snap.Epoch, snap.WindowSize, likes)
	return nil
}

// advance moves focus forward, polling while the next page loads and
// retrying a failed load.
func advance(ctx context.Context, s *feed.Session) (feed.FeedItem, error) {
	ticker := time.NewTicker(10 * time.Millisecond)
	defer ticker.Stop()
	for {
		item, err := s.Advance()
		switch {
		case errors.Is(err, feed.ErrPageUnavailable):
			if err := s.Retry(); err != nil && !errors.Is(err, feed.ErrNotInError) {
				return feed.FeedItem{}, err
			}
		case !errors.Is(err, feed.ErrAwaitingPage):
			return item, err
		}
		select {
		case <-ctx.Done():
			return feed.FeedItem{}, ctx.Err()
		case <-ticker.C:
		}
	}
}

// settled reports whether a session is done loading.
func settled(state feed.State) bool {
	switch state {
	case feed.StateReady, feed.StateError, feed.StateDisposed:
		return true
	default:
		return false
	}
}

func waitUntil(ctx context.Context, cond func() bool) error {
	ticker := time.NewTicker(10 * time.Millisecond)
	defer ticker.Stop()
	for !cond() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
	return nil
}

func printFocus(out io.Writer, swipe int, item feed.FeedItem) {
	marker := ""
	if item.Wrapped {
		marker = " (repeat)"
	}
	c := item.Candidate
	fmt.Fprintf(out, "%3d  %-14s %-10s %-18s %-11s score=%.3f  %s%s\n",
		swipe, item.Key, c.Title, c.Artist, c.Genre, item.Score, item.Reason, marker)
}
