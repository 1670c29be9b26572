// Copyright 2025 The festmap Authors
// SPDX-License-Identifier: Apache-2.0

package geocode

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
)

// DefaultNominatimURL is the public OpenStreetMap Nominatim search endpoint.
const DefaultNominatimURL = "https://nominatim.openstreetmap.org/search"

// NominatimGeocoder uses the OpenStreetMap Nominatim search API. The public
// instance requires an identifying User-Agent and at most one request per
// second, which is why it is meant to be used behind a Limiter.
type NominatimGeocoder struct {
	baseURL      string
	countryCodes string
	httpClient   *http.Client
}

// NewNominatimGeocoder creates a new Nominatim geocoder. An empty baseURL
// means DefaultNominatimURL; countryCodes (e.g. "br") restricts results.
func NewNominatimGeocoder(httpClient *http.Client, baseURL, countryCodes string) *NominatimGeocoder {
	if baseURL == "" {
		baseURL = DefaultNominatimURL
	}

	return &NominatimGeocoder{
		baseURL:      baseURL,
		countryCodes: countryCodes,
		httpClient:   httpClient,
	}
}

type nominatimPlace struct {
	Lat         string  `json:"lat"`
	Lon         string  `json:"lon"`
	DisplayName string  `json:"display_name"`
	Importance  float64 `json:"importance"`
	PlaceRank   int     `json:"place_rank"`
}

func (g *NominatimGeocoder) Geocode(ctx context.Context, query string) (*Result, error) {
	params := url.Values{}
	params.Set("q", query)
	params.Set("format", "jsonv2")
	params.Set("limit", "1")

	if g.countryCodes != "" {
		params.Set("countrycodes", g.countryCodes)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, &GeocodingError{Type: ErrorTypeInvalidRequest, Message: "building request", Err: err}
	}

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return nil, &GeocodingError{Type: TypeOf(err), Message: "geocoding request failed", Err: err}
	}

	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		geoErr := ClassifyHTTPError(resp.StatusCode)
		geoErr.Message = "nominatim: " + geoErr.Message

		return nil, geoErr
	}

	var places []nominatimPlace
	if err := json.NewDecoder(resp.Body).Decode(&places); err != nil {
		return nil, &GeocodingError{Type: ErrorTypeUnknown, Message: "decoding response", Err: err}
	}

	if len(places) == 0 {
		return nil, &GeocodingError{
			Type:    ErrorTypeNotFound,
			Message: "no results found for: " + query,
		}
	}

	place := places[0]

	lat, err := strconv.ParseFloat(place.Lat, 64)
	if err != nil {
		return nil, &GeocodingError{Type: ErrorTypeUnknown, Message: "parsing latitude", Err: err}
	}

	lng, err := strconv.ParseFloat(place.Lon, 64)
	if err != nil {
		return nil, &GeocodingError{Type: ErrorTypeUnknown, Message: "parsing longitude", Err: err}
	}

	// place_rank 26-30 are streets and buildings, 16-25 towns and suburbs.
	confidence := "low"

	switch {
	case place.PlaceRank >= 26:
		confidence = "high"
	case place.PlaceRank >= 16:
		confidence = "medium"
	}

	return &Result{
		Latitude:    lat,
		Longitude:   lng,
		Confidence:  confidence,
		Provider:    "nominatim",
		DisplayName: place.DisplayName,
	}, nil
}

// String identifies the provider in logs and metrics.
func (g *NominatimGeocoder) String() string {
	return fmt.Sprintf("nominatim(%s)", g.baseURL)
}
