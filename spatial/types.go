// Copyright 2025 The festmap Authors
// SPDX-License-Identifier: Apache-2.0

package spatial

import (
	"fmt"
	"math"

	"github.com/uber/h3-go/v4"
)

const (
	earthRadius   = 6371e3 // meters
	earthRadiusKm = earthRadius / 1000
)

// Point represents a geographical point with latitude and longitude.
type Point struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// String returns a string representation of the Point.
func (p Point) String() string {
	return fmt.Sprintf("POINT(%f %f)", p.Lng, p.Lat)
}

// Validate checks that the point lies within the valid coordinate ranges.
func (p Point) Validate() error {
	if math.IsNaN(p.Lat) || p.Lat < -90 || p.Lat > 90 {
		return fmt.Errorf("latitude must be between -90 and 90 (got %f)", p.Lat)
	}

	if math.IsNaN(p.Lng) || p.Lng < -180 || p.Lng > 180 {
		return fmt.Errorf("longitude must be between -180 and 180 (got %f)", p.Lng)
	}

	return nil
}

// DefaultCellResolution is the H3 resolution used for stored and served
// cells. At resolution 8 a cell is roughly 0.7 km², about a city block
// cluster.
const DefaultCellResolution = 8

// Cell returns the H3 cell containing the point at the given resolution.
func (p Point) Cell(res int) (h3.Cell, error) {
	cell, err := h3.LatLngToCell(h3.NewLatLng(p.Lat, p.Lng), res)
	if err != nil {
		return 0, fmt.Errorf("converting to h3 cell at res %d: %w", res, err)
	}

	return cell, nil
}

// HaversineDistance calculates the distance between two points on Earth in meters.
func (p *Point) HaversineDistance(other *Point) float64 {
	return DistanceKm(p.Lat, p.Lng, other.Lat, other.Lng) * 1000
}

// DistanceKm returns the great-circle distance in kilometers between two
// coordinates given in degrees.
func DistanceKm(lat1, lon1, lat2, lon2 float64) float64 {
	phi1 := lat1 * math.Pi / 180
	phi2 := lat2 * math.Pi / 180
	dLat := (lat2 - lat1) * math.Pi / 180
	dLng := (lon2 - lon1) * math.Pi / 180

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(phi1)*math.Cos(phi2)*
			math.Sin(dLng/2)*math.Sin(dLng/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return earthRadiusKm * c
}

// Nearest scans items in order and returns the one closest to ref. Items for
// which pointOf returns nil are ignored. Ties keep the first item seen. The
// last result is false when no item has a point.
func Nearest[T any](ref Point, items []T, pointOf func(T) *Point) (T, float64, bool) {
	var (
		best  T
		found bool
	)

	bestDistance := math.Inf(1)

	for _, item := range items {
		p := pointOf(item)
		if p == nil {
			continue
		}

		d := DistanceKm(ref.Lat, ref.Lng, p.Lat, p.Lng)
		if d < bestDistance {
			best, bestDistance, found = item, d, true
		}
	}

	if !found {
		return best, 0, false
	}

	return best, bestDistance, true
}

// Bounds is a latitude/longitude bounding box.
type Bounds struct {
	MinLat float64 `yaml:"min_lat" json:"min_lat"`
	MinLng float64 `yaml:"min_lng" json:"min_lng"`
	MaxLat float64 `yaml:"max_lat" json:"max_lat"`
	MaxLng float64 `yaml:"max_lng" json:"max_lng"`
}

// IsZero reports whether no bounds were configured.
func (b Bounds) IsZero() bool {
	return b == Bounds{}
}

// Contains reports whether p lies inside the box, edges included.
func (b Bounds) Contains(p Point) bool {
	return p.Lat >= b.MinLat && p.Lat <= b.MaxLat &&
		p.Lng >= b.MinLng && p.Lng <= b.MaxLng
}
