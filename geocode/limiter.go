// Copyright 2025 The festmap Authors
// SPDX-License-Identifier: Apache-2.0

package geocode

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"
)

// LimiterOptions configures a Limiter.
type LimiterOptions struct {
	// Provider labels metrics and log lines
	Provider string

	// MinDelay is the minimum time between the start of two outbound calls
	MinDelay time.Duration

	// Retries is how many times a transient failure is retried
	Retries int

	// ErrorWait is an extra pause before each retry
	ErrorWait time.Duration
}

// Limiter wraps a Geocoder so that every outbound call, retries included,
// is at least MinDelay apart. It owns the last-call timestamp, so all
// callers sharing a Limiter serialize behind it.
type Limiter struct {
	geocoder Geocoder
	options  LimiterOptions

	mu   sync.Mutex
	last time.Time

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

// NewLimiter creates a Limiter around g.
func NewLimiter(g Geocoder, options LimiterOptions) *Limiter {
	if options.Provider == "" {
		options.Provider = "unknown"
	}

	return &Limiter{
		geocoder: g,
		options:  options,
		now:      time.Now,
		sleep:    sleepContext,
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Geocode calls the wrapped geocoder honouring the minimum delay and retrying
// transient failures. The returned error is the last failure.
func (l *Limiter) Geocode(ctx context.Context, query string) (*Result, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	var errs []error

	for attempt := 0; attempt <= l.options.Retries; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, errors.Join(append(errs, err)...)
		}

		if attempt > 0 {
			if err := l.sleep(ctx, l.options.ErrorWait); err != nil {
				return nil, errors.Join(append(errs, err)...)
			}
		}

		if wait := l.options.MinDelay - l.now().Sub(l.last); !l.last.IsZero() && wait > 0 {
			if err := l.sleep(ctx, wait); err != nil {
				return nil, errors.Join(append(errs, err)...)
			}
		}

		l.last = l.now()

		res, err := l.call(ctx, query)
		if err == nil {
			return res, nil
		}

		errs = append(errs, fmt.Errorf("attempt %d: %w", attempt+1, err))

		if !IsTransient(err) {
			break
		}
	}

	return nil, errors.Join(errs...)
}

// call runs one request, recording metrics and turning a panic in the
// provider into an error.
func (l *Limiter) call(ctx context.Context, query string) (res *Result, err error) {
	start := l.now()

	defer func() {
		if r := recover(); r != nil {
			res, err = nil, fmt.Errorf("geocoder panic: %v", r)
		}

		status := "ok"
		if err != nil {
			status = TypeOf(err).String()
		}

		GeocodeRequestsTotal.WithLabelValues(l.options.Provider, status).Inc()
		GeocodeRequestDuration.WithLabelValues(l.options.Provider).Observe(l.now().Sub(start).Seconds())
	}()

	res, err = l.geocoder.Geocode(ctx, query)
	if err == nil && res == nil {
		err = &GeocodingError{Type: ErrorTypeNotFound, Message: "no result for: " + query}
	}

	return res, err
}

// Resolve is the fail-soft form of Geocode: failures are logged and reported
// as an absent result.
func (l *Limiter) Resolve(ctx context.Context, query string) (*Result, bool) {
	if strings.TrimSpace(query) == "" {
		return nil, false
	}

	res, err := l.Geocode(ctx, query)
	if err != nil {
		log.Printf("⚠️  Geocoding %q failed: %s", query, strings.ReplaceAll(err.Error(), "\n", "; "))

		return nil, false
	}

	return res, true
}
