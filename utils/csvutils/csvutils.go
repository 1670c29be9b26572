// Copyright 2025 The festmap Authors
// SPDX-License-Identifier: Apache-2.0

// Package csvutils provides utility functions for reading spreadsheet exports.
package csvutils

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/sgnsilv/festmap/utils/textutils"
	"golang.org/x/net/html/charset"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// NewReader returns a CSV reader that decodes r from the given encoding label
// (e.g. "utf-8", "windows-1252", "iso-8859-1"). An empty label means UTF-8.
// A leading UTF-8 byte order mark, as written by spreadsheet tools, is skipped.
func NewReader(r io.Reader, encoding string) (*csv.Reader, error) {
	label := strings.TrimSpace(encoding)
	if label == "" {
		label = "utf-8"
	}

	decoded, err := charset.NewReaderLabel(label, r)
	if err != nil {
		return nil, fmt.Errorf("input encoding %q: %w", label, err)
	}

	br := bufio.NewReader(decoded)
	if prefix, err := br.Peek(len(utf8BOM)); err == nil && bytes.Equal(prefix, utf8BOM) {
		if _, err := br.Discard(len(utf8BOM)); err != nil {
			return nil, fmt.Errorf("skipping byte order mark: %w", err)
		}
	}

	cr := csv.NewReader(br)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	return cr, nil
}

// Header maps folded column names to their position.
type Header map[string]int

// NewHeader indexes a header row. Names are folded so "Rua", " rua " and
// "RÚA" are the same column; the first occurrence of a name wins.
func NewHeader(row []string) Header {
	h := make(Header, len(row))

	for i, name := range row {
		key := textutils.LowerASCIIFolding(name)
		if _, ok := h[key]; !ok && key != "" {
			h[key] = i
		}
	}

	return h
}

// Index returns the position of the first present alias, or -1.
func (h Header) Index(aliases ...string) int {
	for _, alias := range aliases {
		if i, ok := h[textutils.LowerASCIIFolding(alias)]; ok {
			return i
		}
	}

	return -1
}

// Field returns the trimmed value at idx, or "" when the column is missing
// or the row is short.
func Field(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}

	return strings.TrimSpace(row[idx])
}
