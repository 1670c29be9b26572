// Copyright 2025 The festmap Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/sgnsilv/festmap/spatial"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	return path
}

func TestLoad_MissingFileYieldsDefaults(t *testing.T) {
	t.Setenv(EnvGoogleMapsAPIKey, "")
	t.Setenv(EnvUserAgent, "")

	cfg, err := Load(filepath.Join(t.TempDir(), "festmap.yaml"))
	require.NoError(t, err)

	if diff := cmp.Diff(Default(), cfg); diff != "" {
		t.Errorf("Load() mismatch (-want +got):\n%s", diff)
	}

	assert.Equal(t, time.Second, cfg.Geocoder.MinDelay)
	assert.Equal(t, 2, cfg.Geocoder.Retries)
	assert.Equal(t, 5*time.Second, cfg.Geocoder.ErrorWait)
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	t.Setenv(EnvGoogleMapsAPIKey, "")
	t.Setenv(EnvUserAgent, "")
	t.Setenv("FESTMAP_TEST_CACHE", "/var/lib/festmap/cache.duckdb")

	path := writeFile(t, "festmap.yaml", `
input:
  path: planilha.csv
  encoding: windows-1252
cache:
  path: ${FESTMAP_TEST_CACHE}
geocoder:
  min_delay: 1500ms
  retries: 0
  user_agent: ${FESTMAP_TEST_UNSET:-festmap-test}
  bounds:
    min_lat: -6.0
    min_lng: -35.4
    max_lat: -5.6
    max_lng: -35.1
server:
  addr: 0.0.0.0:9000
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "planilha.csv", cfg.Input.Path)
	assert.Equal(t, "windows-1252", cfg.Input.Encoding)
	assert.Equal(t, "/var/lib/festmap/cache.duckdb", cfg.Cache.Path)
	assert.Equal(t, 1500*time.Millisecond, cfg.Geocoder.MinDelay)
	assert.Equal(t, 0, cfg.Geocoder.Retries, "an explicit zero is kept")
	assert.Equal(t, "festmap-test", cfg.Geocoder.UserAgent)
	assert.Equal(t, spatial.Bounds{MinLat: -6.0, MinLng: -35.4, MaxLat: -5.6, MaxLng: -35.1}, cfg.Geocoder.Bounds)
	assert.Equal(t, "0.0.0.0:9000", cfg.Server.Addr)

	// Untouched sections keep their defaults.
	assert.Equal(t, ProviderNominatim, cfg.Geocoder.Provider)
	assert.Equal(t, "Natal, RN, Brasil", cfg.Geocoder.Locality)
	assert.Equal(t, 128, cfg.Server.ReferenceCacheSize)
}

func TestLoad_EnvironmentOverridesFile(t *testing.T) {
	t.Setenv(EnvGoogleMapsAPIKey, "from-env")
	t.Setenv(EnvUserAgent, "agent-from-env")

	path := writeFile(t, "festmap.yaml", `
geocoder:
  provider: google
  api_key: from-file
  user_agent: agent-from-file
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.Geocoder.APIKey)
	assert.Equal(t, "agent-from-env", cfg.Geocoder.UserAgent)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"bad yaml", "geocoder: [\n"},
		{"bad duration", "geocoder:\n  min_delay: soon\n"},
		{"unknown provider", "geocoder:\n  provider: bing\n"},
		{"negative retries", "geocoder:\n  retries: -1\n"},
		{"empty locality", "geocoder:\n  locality: \"\"\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeFile(t, "festmap.yaml", tt.content))
			assert.Error(t, err)
		})
	}
}

func TestValidate_CollectsAllErrors(t *testing.T) {
	cfg := Default()
	cfg.Geocoder.Provider = "bing"
	cfg.Geocoder.MinDelay = -time.Second
	cfg.Cache.Path = ""

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "geocoder.provider")
	assert.Contains(t, err.Error(), "geocoder.min_delay")
	assert.Contains(t, err.Error(), "cache.path")
}

func TestLoadDotEnv(t *testing.T) {
	require.NoError(t, LoadDotEnv(filepath.Join(t.TempDir(), ".env")), "missing file is ignored")

	t.Setenv("FESTMAP_TEST_DOTENV", "")
	require.NoError(t, os.Unsetenv("FESTMAP_TEST_DOTENV"))

	path := writeFile(t, ".env", "FESTMAP_TEST_DOTENV=secret\n")
	require.NoError(t, LoadDotEnv(path))
	assert.Equal(t, "secret", os.Getenv("FESTMAP_TEST_DOTENV"))
}
