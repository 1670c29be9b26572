// Copyright 2025 The festmap Authors
// SPDX-License-Identifier: Apache-2.0

// Package festival loads festival venues, resolves their addresses and
// answers filter and nearest-venue queries over them.
package festival

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/sgnsilv/festmap/spatial"
	"github.com/sgnsilv/festmap/utils/csvutils"
	"github.com/sgnsilv/festmap/utils/textutils"
)

// ErrInputMissing is returned when the input file does not exist.
var ErrInputMissing = errors.New("input file missing")

// InterestLevel is how much the user wants to visit a venue, 1 to 3.
// Zero means the input had no usable value.
type InterestLevel int

const (
	InterestUnknown InterestLevel = 0
	InterestLow     InterestLevel = 1
	InterestMedium  InterestLevel = 2
	InterestHigh    InterestLevel = 3
)

// InterestLevels lists the valid levels in ascending order.
var InterestLevels = []InterestLevel{InterestLow, InterestMedium, InterestHigh}

// ParseInterestLevel parses "1", "2" or "3" (spreadsheets often export
// "2.0"). Anything else is InterestUnknown.
func ParseInterestLevel(s string) InterestLevel {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return InterestUnknown
	}

	level := InterestLevel(f)
	if float64(level) != f || level < InterestLow || level > InterestHigh {
		return InterestUnknown
	}

	return level
}

// Valid reports whether l is one of 1, 2 or 3.
func (l InterestLevel) Valid() bool {
	return l >= InterestLow && l <= InterestHigh
}

// AddressRecord is one venue row of the input file. Name and Street identify
// it.
type AddressRecord struct {
	Name          string        `json:"name"`
	Street        string        `json:"street"`
	Neighborhood  string        `json:"neighborhood"`
	Festival      string        `json:"festival"`
	MealTimes     string        `json:"meal_times"`
	InterestLevel InterestLevel `json:"interest_level"`
	ImageRef      string        `json:"image_ref,omitempty"`
	Theme         string        `json:"theme,omitempty"`
	Schedule      string        `json:"schedule,omitempty"`
}

// MealTokens returns the folded tokens of the meal times field.
func (r *AddressRecord) MealTokens() []string {
	return textutils.SplitTokens(r.MealTimes)
}

// Query builds the geocoding query "street, neighborhood, locality". Blank
// parts are left out.
func (r *AddressRecord) Query(locality string) string {
	parts := make([]string, 0, 3)

	for _, p := range []string{r.Street, r.Neighborhood, locality} {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}

	return strings.Join(parts, ", ")
}

// Source tells where the coordinates of a ResolvedRecord came from.
type Source string

const (
	SourceCache    Source = "cache"
	SourceGeocoder Source = "geocoder"
	SourceNone     Source = "none"
)

// ResolvedRecord is an AddressRecord with its coordinates, if any.
type ResolvedRecord struct {
	AddressRecord

	Point  *spatial.Point `json:"point"`
	Source Source         `json:"source"`
}

// Mappable reports whether the record has coordinates.
func (r *ResolvedRecord) Mappable() bool {
	return r.Point != nil
}

// inputColumns maps each field to its accepted header names. The Portuguese
// names are the ones of the original festival spreadsheet.
var inputColumns = struct {
	name, street, neighborhood, festival, schedule, interest, image, theme, meals []string
}{
	name:         []string{"name", "nome"},
	street:       []string{"street", "rua", "endereco"},
	neighborhood: []string{"neighborhood", "bairro"},
	festival:     []string{"festival"},
	schedule:     []string{"schedule", "horario"},
	interest:     []string{"interestLevel", "interest_level", "interest", "quero_ir"},
	image:        []string{"imageRef", "image_ref", "image", "imagem"},
	theme:        []string{"theme", "tema"},
	meals:        []string{"mealTimes", "meal_times", "meals", "tempo"},
}

// LoadRecords reads the input file. The name and street columns are
// required; other columns default to "". encoding is a charset label, empty
// for UTF-8.
func LoadRecords(path, encoding string) ([]AddressRecord, error) {
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrInputMissing, path)
		}

		return nil, fmt.Errorf("opening input %s: %w", path, err)
	}
	defer f.Close()

	records, err := ReadRecords(f, encoding)
	if err != nil {
		return nil, fmt.Errorf("reading input %s: %w", path, err)
	}

	return records, nil
}

// ReadRecords reads records from r. Rows with neither name nor street are
// skipped.
func ReadRecords(r io.Reader, encoding string) ([]AddressRecord, error) {
	cr, err := csvutils.NewReader(r, encoding)
	if err != nil {
		return nil, err
	}

	row, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, errors.New("empty input, header row expected")
	}

	if err != nil {
		return nil, fmt.Errorf("reading header: %w", err)
	}

	h := csvutils.NewHeader(row)

	var (
		nameIdx   = h.Index(inputColumns.name...)
		streetIdx = h.Index(inputColumns.street...)
		hoodIdx   = h.Index(inputColumns.neighborhood...)
		festIdx   = h.Index(inputColumns.festival...)
		schedIdx  = h.Index(inputColumns.schedule...)
		interIdx  = h.Index(inputColumns.interest...)
		imageIdx  = h.Index(inputColumns.image...)
		themeIdx  = h.Index(inputColumns.theme...)
		mealsIdx  = h.Index(inputColumns.meals...)
	)

	if nameIdx < 0 || streetIdx < 0 {
		return nil, fmt.Errorf("header %q lacks a name or street column", strings.Join(row, ","))
	}

	var records []AddressRecord

	for {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}

		if err != nil {
			var parseErr *csv.ParseError
			if errors.As(err, &parseErr) {
				return nil, fmt.Errorf("line %d: %w", parseErr.Line, err)
			}

			return nil, err
		}

		rec := AddressRecord{
			Name:          csvutils.Field(row, nameIdx),
			Street:        csvutils.Field(row, streetIdx),
			Neighborhood:  csvutils.Field(row, hoodIdx),
			Festival:      csvutils.Field(row, festIdx),
			Schedule:      csvutils.Field(row, schedIdx),
			InterestLevel: ParseInterestLevel(csvutils.Field(row, interIdx)),
			ImageRef:      csvutils.Field(row, imageIdx),
			Theme:         csvutils.Field(row, themeIdx),
			MealTimes:     csvutils.Field(row, mealsIdx),
		}

		if rec.Name == "" && rec.Street == "" {
			continue
		}

		records = append(records, rec)
	}

	return records, nil
}

// WriteResolved writes records as CSV with latitude and longitude appended.
// Absent coordinates are written as empty cells.
func WriteResolved(w io.Writer, records []ResolvedRecord) error {
	cw := csv.NewWriter(w)

	header := []string{
		"name", "street", "neighborhood", "festival", "schedule",
		"interestLevel", "imageRef", "theme", "mealTimes", "latitude", "longitude",
	}
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}

	for _, r := range records {
		interest := ""
		if r.InterestLevel.Valid() {
			interest = strconv.Itoa(int(r.InterestLevel))
		}

		lat, lng := "", ""
		if r.Point != nil {
			lat = strconv.FormatFloat(r.Point.Lat, 'f', -1, 64)
			lng = strconv.FormatFloat(r.Point.Lng, 'f', -1, 64)
		}

		if err := cw.Write([]string{
			r.Name, r.Street, r.Neighborhood, r.Festival, r.Schedule,
			interest, r.ImageRef, r.Theme, r.MealTimes, lat, lng,
		}); err != nil {
			return fmt.Errorf("writing %q: %w", r.Name, err)
		}
	}

	cw.Flush()

	return cw.Error()
}
