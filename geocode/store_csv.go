// Copyright 2025 The festmap Authors
// SPDX-License-Identifier: Apache-2.0

package geocode

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/sgnsilv/festmap/utils/csvutils"
)

var csvColumns = []string{"name", "street", "neighborhood", "latitude", "longitude"}

// CSVStore keeps the cache in a flat CSV file with the columns
// name, street, neighborhood, latitude, longitude.
//
// When Load could not read the whole file, the next Persist first moves it
// to <path>.corrupt so the unreadable rows are not lost.
type CSVStore struct {
	path    string
	corrupt bool
}

// NewCSVStore creates a store for the file at path. The file does not need
// to exist.
func NewCSVStore(path string) *CSVStore {
	return &CSVStore{path: path}
}

func (s *CSVStore) String() string {
	return s.path
}

// Load reads the cache file. A missing or empty file yields no entries and
// no error.
func (s *CSVStore) Load(_ context.Context) ([]Entry, error) {
	s.corrupt = false

	f, err := os.Open(filepath.Clean(s.path))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}

		return nil, fmt.Errorf("%w: opening %s: %w", ErrCacheCorrupt, s.path, err)
	}
	defer f.Close()

	r, err := csvutils.NewReader(f, "utf-8")
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCacheCorrupt, err)
	}

	header, err := r.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil
	}

	if err != nil {
		s.corrupt = true

		return nil, fmt.Errorf("%w: reading header of %s: %w", ErrCacheCorrupt, s.path, err)
	}

	h := csvutils.NewHeader(header)

	idx := make([]int, len(csvColumns))
	for i, col := range csvColumns {
		idx[i] = h.Index(col)
	}

	if idx[0] < 0 || idx[1] < 0 || idx[3] < 0 || idx[4] < 0 {
		s.corrupt = true

		return nil, fmt.Errorf("%w: %s: header %q lacks name, street, latitude or longitude",
			ErrCacheCorrupt, s.path, strings.Join(header, ","))
	}

	var (
		entries []Entry
		errs    []error
	)

	for {
		row, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}

		if err != nil {
			var parseErr *csv.ParseError
			if errors.As(err, &parseErr) {
				errs = append(errs, fmt.Errorf("line %d: %w", parseErr.Line, err))

				continue
			}

			errs = append(errs, fmt.Errorf("reading %s: %w", s.path, err))

			break
		}

		line, _ := r.FieldPos(0)

		if len(row) != len(header) {
			errs = append(errs, fmt.Errorf("line %d: expected %d fields, got %d", line, len(header), len(row)))

			continue
		}

		entry, err := parseCSVEntry(row, idx)
		if err != nil {
			errs = append(errs, fmt.Errorf("line %d: %w", line, err))

			continue
		}

		entries = append(entries, entry)
	}

	if len(errs) > 0 {
		s.corrupt = true

		return entries, fmt.Errorf("%w: %s: skipped %d rows: %w", ErrCacheCorrupt, s.path, len(errs), errors.Join(errs...))
	}

	return entries, nil
}

func parseCSVEntry(row []string, idx []int) (Entry, error) {
	lat, err := strconv.ParseFloat(csvutils.Field(row, idx[3]), 64)
	if err != nil {
		return Entry{}, fmt.Errorf("latitude: %w", err)
	}

	lng, err := strconv.ParseFloat(csvutils.Field(row, idx[4]), 64)
	if err != nil {
		return Entry{}, fmt.Errorf("longitude: %w", err)
	}

	entry := Entry{
		Name:         csvutils.Field(row, idx[0]),
		Street:       csvutils.Field(row, idx[1]),
		Neighborhood: csvutils.Field(row, idx[2]),
		Latitude:     lat,
		Longitude:    lng,
	}

	if err := entry.Validate(); err != nil {
		return Entry{}, err
	}

	return entry, nil
}

// Persist writes all entries to a temporary file next to the target and
// renames it into place.
func (s *CSVStore) Persist(_ context.Context, entries []Entry) (err error) {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("creating cache directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("creating temporary cache file: %w", err)
	}

	closed := false

	defer func() {
		if err == nil {
			return
		}

		if !closed {
			err = errors.Join(err, tmp.Close())
		}

		err = errors.Join(err, os.Remove(tmp.Name()))
	}()

	w := csv.NewWriter(tmp)
	if err := w.Write(csvColumns); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}

	for _, e := range entries {
		if err := w.Write([]string{
			e.Name,
			e.Street,
			e.Neighborhood,
			strconv.FormatFloat(e.Latitude, 'f', -1, 64),
			strconv.FormatFloat(e.Longitude, 'f', -1, 64),
		}); err != nil {
			return fmt.Errorf("writing entry %q: %w", e.Name, err)
		}
	}

	w.Flush()

	if err := w.Error(); err != nil {
		return fmt.Errorf("flushing cache file: %w", err)
	}

	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("syncing cache file: %w", err)
	}

	closed = true
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing cache file: %w", err)
	}

	if s.corrupt {
		if err := s.setAside(); err != nil {
			return err
		}
	}

	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("replacing cache file: %w", err)
	}

	return nil
}

// CorruptPath is where an unreadable cache file is moved before it is
// overwritten.
func (s *CSVStore) CorruptPath() string {
	return s.path + ".corrupt"
}

func (s *CSVStore) setAside() error {
	err := os.Rename(s.path, s.CorruptPath())

	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return fmt.Errorf("keeping unreadable cache file: %w", err)
	default:
		log.Printf("⚠️  Unreadable cache file %s kept as %s", s.path, s.CorruptPath())
	}

	s.corrupt = false

	return nil
}
