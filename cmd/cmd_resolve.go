// Copyright 2025 The festmap Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"

	"github.com/sgnsilv/festmap/config"
	"github.com/sgnsilv/festmap/festival"
	"github.com/sgnsilv/festmap/geocode"
	"github.com/spf13/cobra"
)

var resolveOutput string

// pipeline holds the components shared by a command: one cache and one
// rate limited geocoder, which also serves reference lookups.
type pipeline struct {
	cfg      config.Config
	cache    *geocode.Cache
	limiter  *geocode.Limiter
	resolver *festival.Resolver
	closer   io.Closer
}

func newPipeline(ctx context.Context, cfg config.Config) (*pipeline, error) {
	cache, closer, err := openCache(ctx, cfg.Cache.Path)
	if err != nil {
		return nil, err
	}

	limiter, err := newGeocoder(ctx, cfg.Geocoder)
	if err != nil {
		return nil, errors.Join(err, closer.Close())
	}

	return &pipeline{
		cfg:      cfg,
		cache:    cache,
		limiter:  limiter,
		resolver: festival.NewResolver(cache, limiter, cfg.Geocoder.Locality),
		closer:   closer,
	}, nil
}

func (p *pipeline) Close() error {
	return p.closer.Close()
}

// load runs one cycle. The returned records are usable even when err
// reports a cache persist failure.
func (p *pipeline) load(ctx context.Context) ([]festival.ResolvedRecord, error) {
	return festival.NewLoadFunc(p.cfg.Input.Path, p.cfg.Input.Encoding, p.resolver)(ctx)
}

func (p *pipeline) locator() *festival.Locator {
	return festival.NewLocator(p.limiter, p.cfg.Geocoder.Locality)
}

var resolveCmd = &cobra.Command{
	Use:   "resolve",
	Short: "Resolves the venue addresses and updates the geocode cache",
	Long: `Resolves every venue of the input spreadsheet. Addresses already in the
cache are never sent to the geocoder again. With --output the venues are
written back as CSV with latitude and longitude columns appended.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		if cmd.Flag("output").Changed {
			cfg.Input.Output = resolveOutput
		}

		p, err := newPipeline(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer p.Close()

		resolved, err := p.load(cmd.Context())
		if resolved == nil {
			return err
		}

		if cfg.Input.Output != "" {
			if wErr := writeResolved(cfg.Input.Output, resolved); wErr != nil {
				return errors.Join(err, wErr)
			}

			log.Printf("✅ Wrote %d venues to %s", len(resolved), cfg.Input.Output)
		}

		missing := len(resolved) - len(festival.Mappable(resolved))
		if missing > 0 {
			log.Printf("⚠️  %d venues without coordinates", missing)
		}

		return err
	},
}

func writeResolved(path string, records []festival.ResolvedRecord) (err error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}

	f, err := os.Create(filepath.Clean(path))
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}

	defer func() {
		err = errors.Join(err, f.Close())
	}()

	if err := festival.WriteResolved(f, records); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}

	return nil
}

func init() {
	rootCmd.AddCommand(resolveCmd)
	resolveCmd.Flags().StringVarP(
		&resolveOutput,
		"output",
		"o",
		"",
		"Write the resolved venues to this CSV file",
	)
}
