// Copyright 2025 The festmap Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
)

var debugCmd = &cobra.Command{
	Use:   "debug",
	Short: "Dev tools",
}

var debugGeocodeRaw bool

var debugGeocodeCmd = &cobra.Command{
	Use:   "geocode",
	Short: "Geocodes addresses read from stdin, bypassing the cache",
	Long: `Reads one address per line and prints it followed by the geocoder answer.
The locality suffix is appended unless --raw is given. Requests go through the
same rate limiter as resolve.

$ echo "Rua Mossoró, 575, Tirol" | festmap debug geocode
Rua Mossoró, 575, Tirol		{"Latitude":-5.79,"Longitude":-35.2,…}
	`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		limiter, err := newGeocoder(cmd.Context(), cfg.Geocoder)
		if err != nil {
			return err
		}

		input := os.Stdin
		if isatty.IsTerminal(input.Fd()) {
			fmt.Fprintln(os.Stderr, "Enter addresses to geocode, one per line…")
		}

		scanner := bufio.NewScanner(input)
		for scanner.Scan() {
			address := strings.TrimSpace(scanner.Text())
			if address == "" {
				continue
			}

			query := address
			if !debugGeocodeRaw {
				query += ", " + cfg.Geocoder.Locality
			}

			res, err := limiter.Geocode(cmd.Context(), query)
			if err != nil {
				fmt.Printf("%s\t%q\n", address, err)

				continue
			}

			s, err := json.Marshal(res)
			if err != nil {
				return fmt.Errorf("marshaling result: %w", err)
			}

			fmt.Printf("%s\t\t%s\n", address, s)
		}

		if err := scanner.Err(); err != nil {
			return fmt.Errorf("reading input: %w", err)
		}

		return nil
	},
}

func init() {
	rootCmd.AddCommand(debugCmd)
	debugCmd.AddCommand(debugGeocodeCmd)
	debugGeocodeCmd.Flags().BoolVar(&debugGeocodeRaw, "raw", false, "Do not append the locality suffix")
}
