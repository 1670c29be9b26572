// Copyright 2025 The festmap Authors
// SPDX-License-Identifier: Apache-2.0

package festival

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/sgnsilv/festmap/geocode"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestServer(t *testing.T, load LoadFunc, g geocode.Resolver) (*Server, *gin.Engine) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	s, err := NewServer(load, NewLocator(g, ""), ServerOptions{ReferenceCacheSize: 4})
	require.NoError(t, err)

	_, err = s.Reload(context.Background())
	require.NoError(t, err)

	return s, s.Router()
}

func staticLoad(records []ResolvedRecord) LoadFunc {
	return func(context.Context) ([]ResolvedRecord, error) {
		return records, nil
	}
}

func get(t *testing.T, router http.Handler, target string, out any) *httptest.ResponseRecorder {
	t.Helper()

	w := httptest.NewRecorder()
	req, err := http.NewRequest(http.MethodGet, target, nil)
	require.NoError(t, err)

	router.ServeHTTP(w, req)

	if out != nil && w.Code == http.StatusOK {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), out))
	}

	return w
}

func TestServer_ListRecords(t *testing.T) {
	g := &fakeResolver{results: map[string]*geocode.Result{
		"Midway Mall": {Latitude: -5.8120, Longitude: -35.2058, DisplayName: "Midway Mall, Natal"},
	}}
	_, router := setupTestServer(t, staticLoad(sampleResolved()), g)

	t.Run("no filters", func(t *testing.T) {
		var resp RecordsResponse

		w := get(t, router, "/api/records", &resp)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, 3, resp.Total)
		assert.Equal(t, 2, resp.Mappable)
		assert.Nil(t, resp.Reference)
		assert.Nil(t, resp.Nearest)

		assert.NotEmpty(t, resp.Records[0].H3Cell)
		assert.Nil(t, resp.Records[1].Point, "absent coordinates are listed as null")
		assert.Empty(t, resp.Records[1].H3Cell)
	})

	t.Run("filters", func(t *testing.T) {
		var resp RecordsResponse

		w := get(t, router, "/api/records?festival=Sigablend&meal=lunch&interest=2,3&neighborhood=alec", &resp)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, []string{"Burger do Alecrim"}, names(viewsToRecords(resp.Records)))
	})

	t.Run("reference and nearest", func(t *testing.T) {
		var resp RecordsResponse

		w := get(t, router, "/api/records?ref=Midway+Mall", &resp)
		require.Equal(t, http.StatusOK, w.Code)
		require.NotNil(t, resp.Reference)
		require.NotNil(t, resp.Nearest)
		assert.Equal(t, "Café Sol", resp.Nearest.Name)
		assert.Greater(t, resp.Nearest.DistanceKm, 0.0)
		assert.Empty(t, resp.Notice)
	})

	t.Run("reference lookups are memoized", func(t *testing.T) {
		before := g.calls()

		get(t, router, "/api/records?ref=midway+mall", nil)
		get(t, router, "/api/records?ref=MIDWAY+MALL", nil)

		assert.Equal(t, before, g.calls())
	})

	t.Run("reference not found", func(t *testing.T) {
		var resp RecordsResponse

		w := get(t, router, "/api/records?ref=Lugar+Nenhum", &resp)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Nil(t, resp.Reference)
		assert.Nil(t, resp.Nearest)
		assert.Contains(t, resp.Notice, "Lugar Nenhum")
	})

	t.Run("nearest only among filtered records", func(t *testing.T) {
		var resp RecordsResponse

		w := get(t, router, "/api/records?ref=Midway+Mall&festival=Sigablend", &resp)
		require.Equal(t, http.StatusOK, w.Code)
		require.NotNil(t, resp.Nearest)
		assert.Equal(t, "Burger do Alecrim", resp.Nearest.Name)
	})

	t.Run("invalid interest", func(t *testing.T) {
		w := get(t, router, "/api/records?interest=7", nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func viewsToRecords(views []RecordView) []ResolvedRecord {
	out := make([]ResolvedRecord, 0, len(views))
	for _, v := range views {
		out = append(out, v.ResolvedRecord)
	}

	return out
}

func TestServer_Options(t *testing.T) {
	_, router := setupTestServer(t, staticLoad(sampleResolved()), &fakeResolver{})

	var opts SelectionOptions

	w := get(t, router, "/api/options", &opts)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []string{"Sweet Coffee Week", "Sigablend"}, opts.Festivals)
	assert.Equal(t, []InterestLevel{1, 2, 3}, opts.InterestLevels)
}

func TestServer_Reload(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "dados_festival.csv")
	require.NoError(t, os.WriteFile(input, []byte("nome,rua,bairro\nCafé Sol,\"Rua Mossoró, 575\",Tirol\n"), 0o600))

	cache := geocode.NewCache(geocode.NewCSVStore(filepath.Join(dir, "cache.csv")))
	resolver := NewResolver(cache, newFakeResolver(), "")
	resolver.Progress = io.Discard

	s, router := setupTestServer(t, NewLoadFunc(input, "", resolver), &fakeResolver{})
	require.Len(t, s.Records(), 1)

	require.NoError(t, os.WriteFile(input, []byte("nome,rua,bairro\nCafé Sol,\"Rua Mossoró, 575\",Tirol\nPadaria Luz,Rua X,Alecrim\n"), 0o600))

	w := httptest.NewRecorder()
	req, err := http.NewRequest(http.MethodPost, "/api/reload", nil)
	require.NoError(t, err)
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"records":2}`, w.Body.String())
	assert.Len(t, s.Records(), 2)

	require.NoError(t, os.Remove(input))

	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Len(t, s.Records(), 2, "a failed cycle keeps the previous records")
}

func TestServer_ReloadKeepsRecordsOnFailure(t *testing.T) {
	calls := 0
	load := func(context.Context) ([]ResolvedRecord, error) {
		calls++
		if calls > 1 {
			return nil, errors.New("boom")
		}

		return sampleResolved(), nil
	}

	s, _ := setupTestServer(t, load, &fakeResolver{})

	swapped, err := s.Reload(context.Background())
	require.Error(t, err)
	assert.False(t, swapped)
	assert.Len(t, s.Records(), 3)
}

func TestServer_ReloadCanceledKeepsRecords(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "dados_festival.csv")
	require.NoError(t, os.WriteFile(input, []byte("nome,rua,bairro\nCafé Sol,\"Rua Mossoró, 575\",Tirol\n"), 0o600))

	cache := geocode.NewCache(geocode.NewCSVStore(filepath.Join(dir, "cache.csv")))
	resolver := NewResolver(cache, newFakeResolver(), "")
	resolver.Progress = io.Discard

	s, router := setupTestServer(t, NewLoadFunc(input, "", resolver), &fakeResolver{})
	require.Len(t, s.Records(), 1)
	require.NotNil(t, s.Records()[0].Point)

	canceled, cancel := context.WithCancel(context.Background())
	cancel()

	t.Run("direct reload", func(t *testing.T) {
		swapped, err := s.Reload(canceled)
		require.ErrorIs(t, err, context.Canceled)
		assert.False(t, swapped)
		require.Len(t, s.Records(), 1)
		assert.NotNil(t, s.Records()[0].Point)
		assert.Equal(t, SourceGeocoder, s.Records()[0].Source)
	})

	t.Run("client gone before the cycle ends", func(t *testing.T) {
		w := httptest.NewRecorder()
		req, err := http.NewRequestWithContext(canceled, http.MethodPost, "/api/reload", nil)
		require.NoError(t, err)
		router.ServeHTTP(w, req)

		require.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"records":1}`, w.Body.String())
		require.Len(t, s.Records(), 1)
		require.NotNil(t, s.Records()[0].Point)
		assert.Equal(t, SourceCache, s.Records()[0].Source)
	})
}

func TestServer_Metrics(t *testing.T) {
	geocode.RegisterMetrics()

	_, router := setupTestServer(t, staticLoad(nil), &fakeResolver{})

	w := get(t, router, "/metrics", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "go_goroutines")
}
