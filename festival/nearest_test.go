// Copyright 2025 The festmap Authors
// SPDX-License-Identifier: Apache-2.0

package festival

import (
	"context"
	"errors"
	"testing"

	"github.com/sgnsilv/festmap/geocode"
	"github.com/sgnsilv/festmap/spatial"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Degrees of latitude per kilometer on a 6371 km sphere.
const degPerKm = 0.008993216059187306

func TestNearest(t *testing.T) {
	ref := spatial.Point{Lat: -5.80, Lng: -35.21}

	records := []ResolvedRecord{
		{AddressRecord: AddressRecord{Name: "Far"}, Point: &spatial.Point{Lat: -5.80 - 2.0*degPerKm, Lng: -35.21}},
		{AddressRecord: AddressRecord{Name: "No coordinates"}},
		{AddressRecord: AddressRecord{Name: "Near"}, Point: &spatial.Point{Lat: -5.80 + 0.5*degPerKm, Lng: -35.21}},
	}

	m, ok := Nearest(ref, records)
	require.True(t, ok)
	assert.Equal(t, "Near", m.Record.Name)
	assert.InDelta(t, 0.5, m.DistanceKm, 1e-6)

	_, ok = Nearest(ref, records[1:2])
	assert.False(t, ok)

	_, ok = Nearest(ref, nil)
	assert.False(t, ok)
}

func TestLocator_Locate(t *testing.T) {
	g := &fakeResolver{results: map[string]*geocode.Result{
		"Midway Mall": {Latitude: -5.8120, Longitude: -35.2058, DisplayName: "Midway Mall, Natal"},
	}}
	l := NewLocator(g, "")
	records := sampleResolved()

	t.Run("blank text", func(t *testing.T) {
		loc := l.Locate(context.Background(), "  ", records)
		assert.Nil(t, loc.Reference)
		assert.Nil(t, loc.Nearest)
		assert.NoError(t, loc.Err)
		assert.Equal(t, 0, g.calls())
	})

	t.Run("found", func(t *testing.T) {
		loc := l.Locate(context.Background(), "Midway Mall", records)
		require.NoError(t, loc.Err)
		require.NotNil(t, loc.Reference)
		assert.Equal(t, "Midway Mall, Natal", loc.Reference.DisplayName)
		require.NotNil(t, loc.Nearest)
		assert.Equal(t, "Café Sol", loc.Nearest.Record.Name)
		assert.Equal(t, "Midway Mall, Natal, RN, Brasil", g.queries[len(g.queries)-1])
	})

	t.Run("not found", func(t *testing.T) {
		loc := l.Locate(context.Background(), "Lugar Nenhum", records)
		assert.True(t, errors.Is(loc.Err, ErrReferenceNotFound))
		assert.Nil(t, loc.Reference)
		assert.Nil(t, loc.Nearest)
	})

	t.Run("no record with coordinates", func(t *testing.T) {
		loc := l.Locate(context.Background(), "Midway Mall", records[1:2])
		require.NoError(t, loc.Err)
		assert.NotNil(t, loc.Reference)
		assert.Nil(t, loc.Nearest)
	})
}
