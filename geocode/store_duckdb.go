// Copyright 2025 The festmap Authors
// SPDX-License-Identifier: Apache-2.0

package geocode

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/sgnsilv/festmap/spatial"
)

// DuckDBStore keeps the cache in the geocode_cache table of a DuckDB
// database. Rows are ordered by seq, which preserves insertion order.
type DuckDBStore struct {
	db   *sql.DB
	name string
}

// NewDuckDBStore creates a store on db. name is only used in log lines.
func NewDuckDBStore(db *sql.DB, name string) *DuckDBStore {
	return &DuckDBStore{db: db, name: name}
}

func (s *DuckDBStore) String() string {
	return "duckdb:" + s.name
}

// CreateSchema creates the cache table if needed.
func (s *DuckDBStore) CreateSchema(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS geocode_cache (
			seq INTEGER NOT NULL,
			name VARCHAR NOT NULL,
			street VARCHAR NOT NULL,
			neighborhood VARCHAR NOT NULL,
			latitude DOUBLE NOT NULL,
			longitude DOUBLE NOT NULL,
			h3_res8 UBIGINT
		);
	`)
	if err != nil {
		return fmt.Errorf("creating geocode_cache table: %w", err)
	}

	return nil
}

// Load returns every stored entry. Rows with invalid coordinates are skipped
// and reported through an error wrapping ErrCacheCorrupt.
func (s *DuckDBStore) Load(ctx context.Context) ([]Entry, error) {
	if err := s.CreateSchema(ctx); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCacheCorrupt, err)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT seq, name, street, neighborhood, latitude, longitude
		FROM geocode_cache
		ORDER BY seq
	`)
	if err != nil {
		return nil, fmt.Errorf("%w: querying geocode_cache: %w", ErrCacheCorrupt, err)
	}
	defer rows.Close()

	var (
		entries []Entry
		errs    []error
	)

	for rows.Next() {
		var (
			seq int
			e   Entry
		)

		if err := rows.Scan(&seq, &e.Name, &e.Street, &e.Neighborhood, &e.Latitude, &e.Longitude); err != nil {
			return entries, fmt.Errorf("%w: scanning geocode_cache: %w", ErrCacheCorrupt, err)
		}

		if err := e.Validate(); err != nil {
			errs = append(errs, fmt.Errorf("seq %d: %w", seq, err))

			continue
		}

		entries = append(entries, e)
	}

	if err := rows.Err(); err != nil {
		return entries, fmt.Errorf("%w: iterating geocode_cache: %w", ErrCacheCorrupt, err)
	}

	if len(errs) > 0 {
		return entries, fmt.Errorf("%w: %s: skipped %d rows: %w", ErrCacheCorrupt, s, len(errs), errors.Join(errs...))
	}

	return entries, nil
}

// Persist replaces the table contents with entries in a single transaction.
func (s *DuckDBStore) Persist(ctx context.Context, entries []Entry) error {
	if err := s.CreateSchema(ctx); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}

	if err := s.replaceAll(ctx, tx, entries); err != nil {
		if rErr := tx.Rollback(); rErr != nil {
			err = errors.Join(err, rErr)
		}

		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing geocode_cache: %w", err)
	}

	return nil
}

func (s *DuckDBStore) replaceAll(ctx context.Context, tx *sql.Tx, entries []Entry) error {
	if _, err := tx.ExecContext(ctx, "DELETE FROM geocode_cache"); err != nil {
		return fmt.Errorf("clearing geocode_cache: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO geocode_cache (seq, name, street, neighborhood, latitude, longitude, h3_res8)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	for i, e := range entries {
		cell, err := e.Point().Cell(spatial.DefaultCellResolution)
		if err != nil {
			return fmt.Errorf("entry %q: %w", e.Name, err)
		}

		if _, err := stmt.ExecContext(ctx,
			i,
			e.Name,
			e.Street,
			e.Neighborhood,
			e.Latitude,
			e.Longitude,
			int64(cell),
		); err != nil {
			return fmt.Errorf("inserting entry %q: %w", e.Name, err)
		}
	}

	return nil
}
