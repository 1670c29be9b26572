// Copyright 2025 The festmap Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"time"

	"github.com/sgnsilv/festmap/config"
	"github.com/sgnsilv/festmap/geocode"
	"github.com/sgnsilv/festmap/utils/httputils"
	"github.com/spf13/cobra"
)

type logWriter struct {
	writer io.Writer
}

func (w *logWriter) Write(bytes []byte) (int, error) {
	return fmt.Fprintf(w.writer, "%s %s", time.Now().Format("2006-01-02 15:04:05"), string(bytes))
}

func init() {
	log.SetFlags(0)
	log.SetOutput(&logWriter{writer: os.Stderr})
}

var rootCmd = &cobra.Command{
	Use:   "festmap",
	Short: "festival venues on a map",
	Long: `
festmap reads a spreadsheet of festival venues, resolves their street
addresses to coordinates through a rate limited geocoder, keeps the results in
a local cache, and answers filter and nearest-venue queries from the command
line or through a small JSON API.
`,
	SilenceUsage: true,
}

var Version = "dev"

func Execute(version string) {
	Version = version

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := rootCmd.ExecuteContext(ctx)

	stop()

	if err != nil {
		os.Exit(1)
	}
}

// rootOptions holds the flags shared by every command. Flags that mirror a
// configuration value only override it when given explicitly.
type rootOptions struct {
	ConfigPath          string
	EnvFile             string
	InputPath           string
	Encoding            string
	CachePath           string
	Provider            string
	Locality            string
	EnableHTTPTrace     bool
	EnableHTTPBodyTrace bool
}

var options = &rootOptions{}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&options.ConfigPath, "config", config.DefaultPath, "Configuration file")
	flags.StringVar(&options.EnvFile, "env-file", ".env", "File with environment variables such as GOOGLE_MAPS_API_KEY")
	flags.StringVar(&options.InputPath, "input", "", "Venue spreadsheet (CSV)")
	flags.StringVar(&options.Encoding, "encoding", "", "Venue spreadsheet encoding, e.g. utf-8 or windows-1252")
	flags.StringVar(&options.CachePath, "cache", "", "Geocode cache file; a .duckdb extension selects the DuckDB store")
	flags.StringVar(&options.Provider, "provider", "", "Geocoding provider: nominatim or google")
	flags.StringVar(&options.Locality, "locality", "", "Suffix appended to every geocoding query")
	flags.BoolVar(&options.EnableHTTPTrace, "trace-http", false, "Display HTTP requests-responses")
	flags.BoolVar(&options.EnableHTTPBodyTrace, "trace-http-body", false, "Display HTTP requests-responses bodies")
}

// loadConfig reads .env, the configuration file and the explicit flags, in
// increasing order of precedence.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	if err := config.LoadDotEnv(options.EnvFile); err != nil {
		return config.Config{}, err
	}

	cfg, err := config.Load(options.ConfigPath)
	if err != nil {
		return config.Config{}, err
	}

	overrides := []struct {
		flag  string
		value string
		dst   *string
	}{
		{"input", options.InputPath, &cfg.Input.Path},
		{"encoding", options.Encoding, &cfg.Input.Encoding},
		{"cache", options.CachePath, &cfg.Cache.Path},
		{"provider", options.Provider, &cfg.Geocoder.Provider},
		{"locality", options.Locality, &cfg.Geocoder.Locality},
	}

	for _, o := range overrides {
		if f := cmd.Flag(o.flag); f != nil && f.Changed {
			*o.dst = o.value
		}
	}

	if err := cfg.Validate(); err != nil {
		return config.Config{}, fmt.Errorf("invalid flags: %w", err)
	}

	return cfg, nil
}

// newGeocoder builds the rate limited client for the configured provider.
func newGeocoder(ctx context.Context, cfg config.GeocoderConfig) (*geocode.Limiter, error) {
	userAgent := cfg.UserAgent
	if userAgent == "" {
		userAgent = fmt.Sprintf("festmap/%s", Version)
	}

	client := httputils.NewClient(httputils.ClientOptions{
		UserAgent:           userAgent,
		Timeout:             cfg.Timeout,
		EnableHTTPTrace:     options.EnableHTTPTrace,
		EnableHTTPBodyTrace: options.EnableHTTPBodyTrace,
	})

	var g geocode.Geocoder

	switch cfg.Provider {
	case config.ProviderGoogleMaps:
		apiKey := cfg.APIKey
		if apiKey == "" {
			log.Printf("%s is not set. Attempting to retrieve via ADC...", config.EnvGoogleMapsAPIKey)

			var err error

			apiKey, err = geocode.APIKeyFromADC(ctx, cfg.KeyName, cfg.Project)
			if err != nil {
				return nil, fmt.Errorf("%s is not set and ADC failed: %w", config.EnvGoogleMapsAPIKey, err)
			}

			log.Println("✅ Successfully retrieved Google Maps API Key via ADC")
		}

		g = geocode.NewGoogleMapsGeocoder(client, apiKey, cfg.URL, cfg.CountryCodes)
	default:
		g = geocode.NewNominatimGeocoder(client, cfg.URL, cfg.CountryCodes)
	}

	log.Printf("📍 Geocoding: %s (one request every %s, %d retries)", cfg.Provider, cfg.MinDelay, cfg.Retries)

	return geocode.NewLimiter(geocode.WithBounds(g, cfg.Bounds), geocode.LimiterOptions{
		Provider:  cfg.Provider,
		MinDelay:  cfg.MinDelay,
		Retries:   cfg.Retries,
		ErrorWait: cfg.ErrorWait,
	}), nil
}

// openCache opens and loads the cache at path. A corrupt store is reported
// and the cache is used with whatever could be read.
func openCache(ctx context.Context, path string) (*geocode.Cache, io.Closer, error) {
	store, closer, err := geocode.OpenStore(path)
	if err != nil {
		return nil, nil, err
	}

	cache := geocode.NewCache(store)
	if err := cache.Load(ctx); err != nil {
		log.Printf("⚠️  %v", err)
	}

	log.Printf("Geocode cache %s: %d entries", cache, cache.Len())

	return cache, closer, nil
}
