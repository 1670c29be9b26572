// Copyright 2025 The festmap Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"strings"

	"github.com/sgnsilv/festmap/geocode"
	"github.com/sgnsilv/festmap/utils/textutils"
	"github.com/spf13/cobra"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect and move the geocode cache",
}

func printEntries(w io.Writer, entries []geocode.Entry) {
	a, b, c, d := strings.Repeat("─", 28), strings.Repeat("─", 32), strings.Repeat("─", 18), strings.Repeat("─", 22)
	fmt.Fprintf(w, "╭─%-28s─┬─%-32s─┬─%-18s─┬─%-22s─╮\n", a, b, c, d)
	fmt.Fprintf(w, "│ %-28s │ %-32s │ %-18s │ %-22s │\n", "Nome", "Rua", "Bairro", "Coordenadas")
	fmt.Fprintf(w, "├─%-28s─┼─%-32s─┼─%-18s─┼─%-22s─┤\n", a, b, c, d)

	for _, e := range entries {
		fmt.Fprintf(w, "│ %-28s │ %-32s │ %-18s │ %-22s │\n",
			truncate(e.Name, 28),
			truncate(e.Street, 32),
			truncate(e.Neighborhood, 18),
			fmt.Sprintf("%.5f, %.5f", e.Latitude, e.Longitude),
		)
	}

	fmt.Fprintf(w, "╰─%-28s─┴─%-32s─┴─%-18s─┴─%-22s─╯\n", a, b, c, d)
}

var cacheListCmd = &cobra.Command{
	Use:   "list",
	Short: "Lists the cached addresses",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		cache, closer, err := openCache(cmd.Context(), cfg.Cache.Path)
		if err != nil {
			return err
		}
		defer closer.Close()

		entries := cache.Entries()
		printEntries(os.Stdout, entries)
		fmt.Printf("%s entries\n", textutils.FormatInt(int64(len(entries))))

		return nil
	},
}

var cacheCopyOptions struct {
	From string
	To   string
}

// copyCache appends the entries of src whose key is not in dst and persists
// dst. Existing entries of dst are never replaced.
func copyCache(ctx context.Context, src, dst *geocode.Cache) (int, error) {
	copied := 0

	for _, e := range src.Entries() {
		if _, ok := dst.Lookup(e.Name, e.Street); ok {
			continue
		}

		dst.Insert(e)
		copied++
	}

	if copied == 0 {
		return 0, nil
	}

	return copied, dst.Persist(ctx)
}

var cacheCopyCmd = &cobra.Command{
	Use:   "copy",
	Short: "Copies the entries of one cache into another, e.g. from CSV to DuckDB",
	Long: `Appends the entries of --from that are missing in --to and saves --to.
Entries already present in --to are kept as they are.

$ festmap cache copy --from geocode_cache.csv --to festmap.duckdb`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		src, srcCloser, err := openCache(cmd.Context(), cacheCopyOptions.From)
		if err != nil {
			return err
		}
		defer srcCloser.Close()

		dst, dstCloser, err := openCache(cmd.Context(), cacheCopyOptions.To)
		if err != nil {
			return err
		}
		defer dstCloser.Close()

		copied, err := copyCache(cmd.Context(), src, dst)
		if err != nil {
			return err
		}

		log.Printf("✅ Copied %d of %d entries from %s to %s", copied, src.Len(), src, dst)

		return nil
	},
}

func init() {
	rootCmd.AddCommand(cacheCmd)
	cacheCmd.AddCommand(cacheListCmd)
	cacheCmd.AddCommand(cacheCopyCmd)

	cacheCopyCmd.Flags().StringVar(&cacheCopyOptions.From, "from", "", "Source cache file")
	cacheCopyCmd.Flags().StringVar(&cacheCopyOptions.To, "to", "", "Destination cache file")
	_ = cacheCopyCmd.MarkFlagRequired("from")
	_ = cacheCopyCmd.MarkFlagRequired("to")
}
