// Copyright 2025 The festmap Authors
// SPDX-License-Identifier: Apache-2.0

package festival

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
	"github.com/schollz/progressbar/v3"
	"github.com/sgnsilv/festmap/geocode"
	"github.com/sgnsilv/festmap/spatial"
)

// DefaultLocality is appended to every geocoding query.
const DefaultLocality = "Natal, RN, Brasil"

// ResolveMetrics tracks statistics about a resolution cycle.
type ResolveMetrics struct {
	CacheHits   int
	CacheMisses int
	Geocoded    int
	Failed      int
	Skipped     int
}

// Merge combines two ResolveMetrics.
func (m *ResolveMetrics) Merge(o *ResolveMetrics) *ResolveMetrics {
	m.CacheHits += o.CacheHits
	m.CacheMisses += o.CacheMisses
	m.Geocoded += o.Geocoded
	m.Failed += o.Failed
	m.Skipped += o.Skipped

	return m
}

// Resolver joins records against the geocode cache and asks the geocoder
// for the missing ones.
type Resolver struct {
	cache    *geocode.Cache
	geocoder geocode.Resolver
	locality string

	// Progress receives the progress bar. Nil means stderr, and only when it
	// is a terminal.
	Progress io.Writer

	Metrics ResolveMetrics
}

// NewResolver creates a Resolver. An empty locality means DefaultLocality.
func NewResolver(cache *geocode.Cache, geocoder geocode.Resolver, locality string) *Resolver {
	if strings.TrimSpace(locality) == "" {
		locality = DefaultLocality
	}

	return &Resolver{
		cache:    cache,
		geocoder: geocoder,
		locality: locality,
	}
}

// Locality returns the suffix appended to queries.
func (r *Resolver) Locality() string {
	return r.locality
}

// Resolve returns one ResolvedRecord per input record, in input order.
// Geocoding failures leave the coordinates absent. New entries are persisted
// once at the end; a persist failure is returned together with the records,
// which remain usable. Cancelling ctx stops geocoding but not cache lookups:
// the remaining misses are returned without coordinates, what was resolved
// is still persisted and the returned error wraps ctx.Err().
func (r *Resolver) Resolve(ctx context.Context, records []AddressRecord) ([]ResolvedRecord, error) {
	var (
		metrics  ResolveMetrics
		resolved = make([]ResolvedRecord, len(records))
		bar      = r.progressBar(len(records))
	)

	for i := range records {
		resolved[i] = ResolvedRecord{AddressRecord: records[i], Source: SourceNone}

		r.resolveOne(ctx, &resolved[i], &metrics)

		if bar != nil {
			_ = bar.Add(1)
		} else if resolved[i].Source != SourceCache {
			log.Printf("[%d/%d] %s: %s", i+1, len(records), records[i].Name, resolved[i].Source)
		}
	}

	if bar != nil {
		_ = bar.Finish()
	}

	r.Metrics.Merge(&metrics)

	log.Printf(
		"Resolution complete - %d records, %d cache hits, %d geocoded, %d failed, %d skipped.",
		len(records),
		metrics.CacheHits,
		metrics.Geocoded,
		metrics.Failed,
		metrics.Skipped,
	)

	var canceled error
	if err := ctx.Err(); err != nil {
		canceled = fmt.Errorf("resolution interrupted: %w", err)
	}

	if !r.cache.Dirty() {
		return resolved, canceled
	}

	// The pipeline must not be cancelled halfway through a write.
	if err := r.cache.Persist(context.WithoutCancel(ctx)); err != nil {
		log.Printf("⚠️  %v", err)

		return resolved, errors.Join(canceled, err)
	}

	log.Printf("✅ Geocode cache saved to %s (%d entries)", r.cache, r.cache.Len())

	return resolved, canceled
}

func (r *Resolver) resolveOne(ctx context.Context, rec *ResolvedRecord, metrics *ResolveMetrics) {
	if rec.Street == "" {
		metrics.Skipped++

		return
	}

	if e, ok := r.cache.Lookup(rec.Name, rec.Street); ok {
		p := e.Point()
		rec.Point = &p
		rec.Source = SourceCache
		metrics.CacheHits++

		return
	}

	if ctx.Err() != nil {
		metrics.Skipped++

		return
	}

	metrics.CacheMisses++

	res, ok := r.geocoder.Resolve(ctx, rec.Query(r.locality))
	if !ok {
		metrics.Failed++

		return
	}

	p := spatial.Point{Lat: res.Latitude, Lng: res.Longitude}
	if err := p.Validate(); err != nil {
		log.Printf("⚠️  Discarding result for %q: %v", rec.Name, err)

		metrics.Failed++

		return
	}

	r.cache.Insert(geocode.Entry{
		Name:         rec.Name,
		Street:       rec.Street,
		Neighborhood: rec.Neighborhood,
		Latitude:     p.Lat,
		Longitude:    p.Lng,
	})

	rec.Point = &p
	rec.Source = SourceGeocoder
	metrics.Geocoded++
}

func (r *Resolver) progressBar(n int) *progressbar.ProgressBar {
	w := r.Progress
	if w == nil {
		if !isatty.IsTerminal(os.Stderr.Fd()) {
			return nil
		}

		w = os.Stderr
	}

	return progressbar.NewOptions(n,
		progressbar.OptionSetDescription(fmt.Sprintf("Resolving %d venues", n)),
		progressbar.OptionSetWriter(w),
		progressbar.OptionShowCount(),
		progressbar.OptionClearOnFinish(),
	)
}
