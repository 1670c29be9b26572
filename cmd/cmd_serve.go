// Copyright 2025 The festmap Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"fmt"
	"log"

	"github.com/sgnsilv/festmap/festival"
	"github.com/sgnsilv/festmap/geocode"
	"github.com/spf13/cobra"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the JSON API consumed by the map front end (local only by default)",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		if cmd.Flag("addr").Changed {
			cfg.Server.Addr = serveAddr
		}

		p, err := newPipeline(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer p.Close()

		geocode.RegisterMetrics()

		server, err := festival.NewServer(p.load, p.locator(), festival.ServerOptions{
			Addr:               cfg.Server.Addr,
			ReferenceCacheSize: cfg.Server.ReferenceCacheSize,
		})
		if err != nil {
			return err
		}

		swapped, err := server.Reload(cmd.Context())
		if !swapped {
			return fmt.Errorf("initial load: %w", err)
		}

		if err != nil {
			log.Printf("⚠️  %v", err)
		}

		fmt.Println("🗺️  Festival map API starting...")
		fmt.Printf("📍 Records at http://%s/api/records\n", cfg.Server.Addr)

		return server.Run()
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&serveAddr, "addr", festival.DefaultAddr, "Listen address")
}
