// Copyright 2025 The festmap Authors
// SPDX-License-Identifier: Apache-2.0

package geocode

import (
	"database/sql"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	_ "github.com/duckdb/duckdb-go/v2" // register duckdb driver
)

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// OpenStore picks the store implementation from the path extension: files
// ending in .duckdb use a DuckDBStore, anything else a CSVStore. The returned
// closer releases the database handle, if any.
func OpenStore(path string) (Store, io.Closer, error) {
	if !strings.EqualFold(filepath.Ext(path), ".duckdb") {
		return NewCSVStore(path), nopCloser{}, nil
	}

	db, err := sql.Open("duckdb", path)
	if err != nil {
		return nil, nil, fmt.Errorf("opening database %s: %w", path, err)
	}

	return NewDuckDBStore(db, path), db, nil
}
