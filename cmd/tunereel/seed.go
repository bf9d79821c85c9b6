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
	"time"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/tomtom215/tunereel/internal/logging"
	"github.com/tomtom215/tunereel/internal/models"
	"github.com/tomtom215/tunereel/internal/store"
)

// seedBatchSize keeps each badger transaction well below its size limit.
const seedBatchSize = 500

type seedOptions struct {
	file  string
	demo  int
	store store.Options
}

func newSeedCmd() *cobra.Command {
	var (
		opts       seedOptions
		configPath string
		dbPath     string
	)

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Import candidates into the metadata store",
		Long: `Import candidates into the badger metadata store.

--file reads a JSON array of candidates ("-" reads stdin). --demo adds the
generated demo catalog used by simulate. Existing candidates with the same
id are replaced.`,
		Example: `  tunereel seed --file catalog.json
  tunereel seed --db ./data/badger --demo 100`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if opts.file == "" && opts.demo <= 0 {
				return errors.New("nothing to import: set --file or --demo")
			}
			if dbPath != "" {
				opts.store = store.Options{Path: dbPath}
			} else {
				cfg, err := loadConfig(configPath)
				if err != nil {
					return err
				}
				logging.Init(cfg.LoggingOptions(cmd.ErrOrStderr()))
				opts.store = cfg.StoreOptions()
			}
			if opts.store.InMemory {
				return errors.New("store is configured in memory, seeding it would have no effect")
			}
			return runSeed(cmd.Context(), opts, cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVarP(&opts.file, "file", "f", "", "JSON file of candidates, - for stdin")
	cmd.Flags().IntVar(&opts.demo, "demo", 0, "also import this many demo candidates")
	cmd.Flags().StringVar(&dbPath, "db", "", "badger directory (overrides the configured store)")
	cmd.Flags().StringVarP(&configPath, "config", "c", "", "config file (default: $CONFIG_PATH or ./config.yaml)")
	return cmd
}

func runSeed(ctx context.Context, opts seedOptions, stdin io.Reader, out io.Writer) error {
	var docs []models.Candidate
	if opts.file != "" {
		read, err := readCandidates(opts.file, stdin)
		if err != nil {
			return err
		}
		docs = read
	}
	if opts.demo > 0 {
		docs = append(docs, demoCatalog(opts.demo, time.Now())...)
	}

	valid := docs[:0]
	skipped := 0
	for _, c := range docs {
		if !c.Valid() {
			skipped++
			logging.Warn().Str("video_id", c.ID).Msg("Skipping candidate without id or storage_ref")
			continue
		}
		valid = append(valid, c)
	}

	db, err := store.Open(opts.store)
	if err != nil {
		return err
	}
	defer func() {
		if err := db.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing store")
		}
	}()

	metadata := store.NewMetadataStore(db)
	for start := 0; start < len(valid); start += seedBatchSize {
		end := min(start+seedBatchSize, len(valid))
		if err := metadata.Put(ctx, valid[start:end]...); err != nil {
			return fmt.Errorf("import candidates %d-%d: %w", start, end-1, err)
		}
	}
	total, err := metadata.Count(ctx)
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "imported %d candidates (%d skipped), store holds %d\n", len(valid), skipped, total)
	return nil
}

func readCandidates(path string, stdin io.Reader) ([]models.Candidate, error) {
	r := stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		r = f
	}

	var docs []models.Candidate
	if err := json.NewDecoder(r).Decode(&docs); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return docs, nil
}
