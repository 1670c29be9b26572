// Copyright 2025 The festmap Authors
// SPDX-License-Identifier: Apache-2.0

package geocode

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/sgnsilv/festmap/spatial"
)

// ErrCacheCorrupt is wrapped by the error Load returns when the cache file
// could not be read completely. The cache stays usable.
var ErrCacheCorrupt = errors.New("geocode cache corrupt")

// Key identifies a cache entry.
type Key struct {
	Name   string
	Street string
}

// Entry is one resolved address.
type Entry struct {
	Name         string  `json:"name"`
	Street       string  `json:"street"`
	Neighborhood string  `json:"neighborhood"`
	Latitude     float64 `json:"latitude"`
	Longitude    float64 `json:"longitude"`
}

// Key returns the entry key.
func (e Entry) Key() Key {
	return Key{Name: e.Name, Street: e.Street}
}

// Point returns the entry coordinates.
func (e Entry) Point() spatial.Point {
	return spatial.Point{Lat: e.Latitude, Lng: e.Longitude}
}

// Validate checks that the entry has a key and valid coordinates.
func (e Entry) Validate() error {
	if strings.TrimSpace(e.Name) == "" && strings.TrimSpace(e.Street) == "" {
		return errors.New("entry has neither name nor street")
	}

	return e.Point().Validate()
}

// Store persists cache entries.
type Store interface {
	// Load returns the stored entries in insertion order. A missing store is
	// not an error. When some rows are unusable the valid ones are returned
	// together with an error wrapping ErrCacheCorrupt.
	Load(ctx context.Context) ([]Entry, error)

	// Persist replaces the stored entries with entries.
	Persist(ctx context.Context, entries []Entry) error

	// String describes the store for log lines.
	String() string
}

// Cache is an append-only mapping from (name, street) to coordinates. Entries
// never expire and are never updated. Duplicate keys may be appended; Lookup
// returns the first one.
type Cache struct {
	store Store

	mu      sync.Mutex
	entries []Entry
	index   map[Key]int
	dirty   bool
}

// NewCache creates an empty cache backed by store.
func NewCache(store Store) *Cache {
	return &Cache{
		store: store,
		index: make(map[Key]int),
	}
}

// Load replaces the in-memory contents with the store contents. The cache is
// always usable afterwards: an unreadable store leaves it empty and malformed
// rows are skipped. Either condition is reported through the returned error.
func (c *Cache) Load(ctx context.Context) error {
	entries, err := c.store.Load(ctx)

	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = c.entries[:0]
	c.index = make(map[Key]int, len(entries))
	c.dirty = false

	for _, e := range entries {
		c.appendLocked(e)
	}

	if err != nil && !errors.Is(err, ErrCacheCorrupt) {
		err = fmt.Errorf("%w: %w", ErrCacheCorrupt, err)
	}

	return err
}

// Lookup returns the first entry inserted for (name, street).
func (c *Cache) Lookup(name, street string) (Entry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	i, ok := c.index[Key{Name: name, Street: street}]
	if !ok {
		GeocodeCacheTotal.WithLabelValues("miss").Inc()

		return Entry{}, false
	}

	GeocodeCacheTotal.WithLabelValues("hit").Inc()

	return c.entries[i], true
}

// Insert appends e.
func (c *Cache) Insert(e Entry) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.appendLocked(e)
	c.dirty = true
}

func (c *Cache) appendLocked(e Entry) {
	if _, ok := c.index[e.Key()]; !ok {
		c.index[e.Key()] = len(c.entries)
	}

	c.entries = append(c.entries, e)
}

// Dirty reports whether entries were inserted since the last Load or Persist.
func (c *Cache) Dirty() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.dirty
}

// Len returns the number of entries, duplicates included.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return len(c.entries)
}

// Entries returns a copy of the entries in insertion order.
func (c *Cache) Entries() []Entry {
	c.mu.Lock()
	defer c.mu.Unlock()

	return append([]Entry(nil), c.entries...)
}

// Persist writes every entry to the store.
func (c *Cache) Persist(ctx context.Context) error {
	entries := c.Entries()

	if err := c.store.Persist(ctx, entries); err != nil {
		return fmt.Errorf("persisting geocode cache to %s: %w", c.store, err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	// Inserts that raced with the write keep the cache dirty.
	if len(c.entries) == len(entries) {
		c.dirty = false
	}

	return nil
}

// String describes the backing store.
func (c *Cache) String() string {
	return c.store.String()
}
