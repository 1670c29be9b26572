// Copyright 2025 The festmap Authors
// SPDX-License-Identifier: Apache-2.0

// Package config loads the festmap configuration from a YAML file, a .env
// file and the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/sgnsilv/festmap/spatial"
	"gopkg.in/yaml.v3"
)

// DefaultPath is the configuration file read when none is given.
const DefaultPath = "festmap.yaml"

// Environment variables that override the file.
const (
	EnvGoogleMapsAPIKey = "GOOGLE_MAPS_API_KEY"
	EnvUserAgent        = "FESTMAP_USER_AGENT"
)

// Geocoding providers.
const (
	ProviderNominatim  = "nominatim"
	ProviderGoogleMaps = "google"
)

// Config holds the festmap configuration.
type Config struct {
	Input    InputConfig    `yaml:"input"`
	Cache    CacheConfig    `yaml:"cache"`
	Geocoder GeocoderConfig `yaml:"geocoder"`
	Server   ServerConfig   `yaml:"server"`
}

// InputConfig describes the venue spreadsheet.
type InputConfig struct {
	Path     string `yaml:"path"`
	Encoding string `yaml:"encoding"` // charset label, e.g. utf-8, windows-1252
	Output   string `yaml:"output"`   // resolved CSV written by resolve, empty to skip
}

// CacheConfig locates the geocode cache. A path ending in .duckdb selects
// the DuckDB store.
type CacheConfig struct {
	Path string `yaml:"path"`
}

// GeocoderConfig holds the geocoding client settings.
type GeocoderConfig struct {
	Provider     string         `yaml:"provider"` // nominatim, google
	URL          string         `yaml:"url"`
	UserAgent    string         `yaml:"user_agent"`
	APIKey       string         `yaml:"api_key"`
	KeyName      string         `yaml:"key_name"` // API key display name looked up through ADC
	Project      string         `yaml:"project"`
	Locality     string         `yaml:"locality"`
	CountryCodes string         `yaml:"country_codes"`
	MinDelay     time.Duration  `yaml:"min_delay"`
	Retries      int            `yaml:"retries"`
	ErrorWait    time.Duration  `yaml:"error_wait"`
	Timeout      time.Duration  `yaml:"timeout"`
	Bounds       spatial.Bounds `yaml:"bounds"`
}

// ServerConfig holds the API server settings.
type ServerConfig struct {
	Addr               string `yaml:"addr"`
	ReferenceCacheSize int    `yaml:"reference_cache_size"`
}

// Default returns the configuration used when no file is present.
func Default() Config {
	return Config{
		Input: InputConfig{
			Path:     "dados_festival.csv",
			Encoding: "utf-8",
		},
		Cache: CacheConfig{
			Path: "geocode_cache.csv",
		},
		Geocoder: GeocoderConfig{
			Provider:     ProviderNominatim,
			UserAgent:    "festival_map",
			KeyName:      "festmap Geocoding Key",
			Locality:     "Natal, RN, Brasil",
			CountryCodes: "br",
			MinDelay:     time.Second,
			Retries:      2,
			ErrorWait:    5 * time.Second,
			Timeout:      10 * time.Second,
		},
		Server: ServerConfig{
			Addr:               "localhost:8080",
			ReferenceCacheSize: 128,
		},
	}
}

// Load reads the YAML file at path over the defaults. A missing file yields
// the defaults. ${VAR} and ${VAR:-default} references in the file are
// expanded from the environment, and the override variables are applied
// last.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(filepath.Clean(path))

	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return Config{}, fmt.Errorf("reading config %s: %w", path, err)
	default:
		if err := yaml.Unmarshal(expandEnvVars(data), &cfg); err != nil {
			return Config{}, fmt.Errorf("parsing config %s: %w", path, err)
		}
	}

	cfg.ApplyEnv()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// LoadDotEnv loads variables from a .env file into the process environment
// without overriding variables that are already set. A missing file is not
// an error.
func LoadDotEnv(path string) error {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil
	}

	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("loading %s: %w", path, err)
	}

	return nil
}

// ApplyEnv copies the override variables into c.
func (c *Config) ApplyEnv() {
	if v := os.Getenv(EnvGoogleMapsAPIKey); v != "" {
		c.Geocoder.APIKey = v
	}

	if v := os.Getenv(EnvUserAgent); v != "" {
		c.Geocoder.UserAgent = v
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	var errs []error

	switch c.Geocoder.Provider {
	case ProviderNominatim, ProviderGoogleMaps:
	default:
		errs = append(errs, fmt.Errorf("geocoder.provider must be %q or %q, got %q",
			ProviderNominatim, ProviderGoogleMaps, c.Geocoder.Provider))
	}

	if c.Geocoder.MinDelay < 0 {
		errs = append(errs, fmt.Errorf("geocoder.min_delay must not be negative, got %s", c.Geocoder.MinDelay))
	}

	if c.Geocoder.ErrorWait < 0 {
		errs = append(errs, fmt.Errorf("geocoder.error_wait must not be negative, got %s", c.Geocoder.ErrorWait))
	}

	if c.Geocoder.Retries < 0 {
		errs = append(errs, fmt.Errorf("geocoder.retries must not be negative, got %d", c.Geocoder.Retries))
	}

	if strings.TrimSpace(c.Geocoder.Locality) == "" {
		errs = append(errs, errors.New("geocoder.locality is required"))
	}

	if b := c.Geocoder.Bounds; !b.IsZero() && (b.MinLat > b.MaxLat || b.MinLng > b.MaxLng) {
		errs = append(errs, errors.New("geocoder.bounds min values must not exceed max values"))
	}

	if strings.TrimSpace(c.Input.Path) == "" {
		errs = append(errs, errors.New("input.path is required"))
	}

	if strings.TrimSpace(c.Cache.Path) == "" {
		errs = append(errs, errors.New("cache.path is required"))
	}

	return errors.Join(errs...)
}

var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment values.
func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		varName, defaultVal, hasDefault := strings.Cut(string(match[2:len(match)-1]), ":-")

		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}

		return []byte(val)
	})
}
