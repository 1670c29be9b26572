// Copyright 2025 The festmap Authors
// SPDX-License-Identifier: Apache-2.0

package geocode

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Geocoding Prometheus metrics.
var (
	GeocodeRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "festmap",
			Name:      "geocode_requests_total",
			Help:      "Total number of outbound geocoding requests",
		},
		[]string{"provider", "status"},
	)

	GeocodeRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "festmap",
			Name:      "geocode_request_duration_seconds",
			Help:      "Geocoding request duration in seconds, excluding rate limit waits",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"provider"},
	)

	GeocodeCacheTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "festmap",
			Name:      "geocode_cache_total",
			Help:      "Geocode cache hits and misses",
		},
		[]string{"result"}, // "hit" / "miss"
	)
)

var registerOnce sync.Once

// RegisterMetrics registers the geocoding metrics with the default registry.
// It is safe to call more than once.
func RegisterMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(GeocodeRequestsTotal)
		prometheus.MustRegister(GeocodeRequestDuration)
		prometheus.MustRegister(GeocodeCacheTotal)
	})
}
