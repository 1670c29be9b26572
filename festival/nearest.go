// Copyright 2025 The festmap Authors
// SPDX-License-Identifier: Apache-2.0

package festival

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sgnsilv/festmap/geocode"
	"github.com/sgnsilv/festmap/spatial"
)

// ErrReferenceNotFound is reported when the reference text cannot be
// geocoded.
var ErrReferenceNotFound = errors.New("reference not found")

// Match is the record closest to a reference point.
type Match struct {
	Record     ResolvedRecord
	DistanceKm float64
}

// Nearest returns the record closest to ref among those with coordinates.
// Ties go to the first record. ok is false when no record has coordinates.
func Nearest(ref spatial.Point, records []ResolvedRecord) (Match, bool) {
	rec, d, ok := spatial.Nearest(ref, records, func(r ResolvedRecord) *spatial.Point {
		return r.Point
	})
	if !ok {
		return Match{}, false
	}

	return Match{Record: rec, DistanceKm: d}, true
}

// Reference is a user supplied location resolved to coordinates.
type Reference struct {
	Text        string        `json:"text"`
	Point       spatial.Point `json:"point"`
	DisplayName string        `json:"display_name,omitempty"`
}

// Location is the outcome of a Locate call.
type Location struct {
	Reference *Reference
	Nearest   *Match

	// Err is ErrReferenceNotFound when the text could not be geocoded.
	Err error
}

// Locator resolves reference texts and finds the nearest record.
type Locator struct {
	geocoder geocode.Resolver
	locality string
}

// NewLocator creates a Locator. Queries get locality appended; an empty
// locality means DefaultLocality.
func NewLocator(geocoder geocode.Resolver, locality string) *Locator {
	if strings.TrimSpace(locality) == "" {
		locality = DefaultLocality
	}

	return &Locator{geocoder: geocoder, locality: locality}
}

// Reference geocodes text. It never returns an error other than
// ErrReferenceNotFound.
func (l *Locator) Reference(ctx context.Context, text string) (*Reference, error) {
	text = strings.TrimSpace(text)

	res, ok := l.geocoder.Resolve(ctx, text+", "+l.locality)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrReferenceNotFound, text)
	}

	return &Reference{Text: text, Point: res.Point(), DisplayName: res.DisplayName}, nil
}

// Locate runs one nearest-lookup cycle. Blank text yields an empty Location.
// When the text cannot be geocoded, Err is set and Nearest is skipped.
// Nearest is nil when no record has coordinates.
func (l *Locator) Locate(ctx context.Context, text string, records []ResolvedRecord) Location {
	if strings.TrimSpace(text) == "" {
		return Location{}
	}

	ref, err := l.Reference(ctx, text)
	if err != nil {
		return Location{Err: err}
	}

	loc := Location{Reference: ref}
	if m, ok := Nearest(ref.Point, records); ok {
		loc.Nearest = &m
	}

	return loc
}
