// Copyright 2025 The festmap Authors
// SPDX-License-Identifier: Apache-2.0

// Package geocode resolves free-text addresses to coordinates and keeps the
// results in an append-only cache.
package geocode

import (
	"context"

	"github.com/sgnsilv/festmap/spatial"
)

// Result represents a geocoding result from any provider.
type Result struct {
	Latitude    float64
	Longitude   float64
	Confidence  string // high, medium, low
	Provider    string
	DisplayName string
}

// Point returns the result coordinates.
func (r *Result) Point() spatial.Point {
	return spatial.Point{Lat: r.Latitude, Lng: r.Longitude}
}

// Geocoder interface for different geocoding providers.
type Geocoder interface {
	Geocode(ctx context.Context, query string) (*Result, error)
}

// Resolver is the fail-soft face of a geocoder: any failure is reported as
// an absent result.
type Resolver interface {
	Resolve(ctx context.Context, query string) (*Result, bool)
}

// boundedGeocoder rejects results that fall outside a bounding box.
type boundedGeocoder struct {
	geocoder Geocoder
	bounds   spatial.Bounds
}

// WithBounds wraps g so that results outside b are reported as not found.
// A zero b returns g unchanged.
func WithBounds(g Geocoder, b spatial.Bounds) Geocoder {
	if b.IsZero() {
		return g
	}

	return &boundedGeocoder{geocoder: g, bounds: b}
}

func (g *boundedGeocoder) Geocode(ctx context.Context, query string) (*Result, error) {
	res, err := g.geocoder.Geocode(ctx, query)
	if err != nil {
		return nil, err
	}

	if !g.bounds.Contains(res.Point()) {
		return nil, &GeocodingError{
			Type:    ErrorTypeNotFound,
			Message: "result for " + query + " outside configured bounds: " + res.Point().String(),
		}
	}

	return res, nil
}
