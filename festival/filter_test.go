// Copyright 2025 The festmap Authors
// SPDX-License-Identifier: Apache-2.0

package festival

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/sgnsilv/festmap/spatial"
	"github.com/stretchr/testify/assert"
)

func sampleResolved() []ResolvedRecord {
	return []ResolvedRecord{
		{
			AddressRecord: cafeSol,
			Point:         &spatial.Point{Lat: -5.7993, Lng: -35.2071},
			Source:        SourceCache,
		},
		{
			AddressRecord: padariaLuz,
			Source:        SourceNone,
		},
		{
			AddressRecord: AddressRecord{
				Name:          "Burger do Alecrim",
				Street:        "Av. Presidente Bandeira, 300",
				Neighborhood:  "Alecrim",
				Festival:      "SIGABLEND",
				MealTimes:     "Dinner / Lunch",
				InterestLevel: InterestMedium,
			},
			Point:  &spatial.Point{Lat: -5.8012, Lng: -35.2245},
			Source: SourceGeocoder,
		},
	}
}

func names(records []ResolvedRecord) []string {
	out := make([]string, 0, len(records))
	for _, r := range records {
		out = append(out, r.Name)
	}

	return out
}

func TestFilter(t *testing.T) {
	records := sampleResolved()

	tests := []struct {
		name string
		sel  Selection
		want []string
	}{
		{
			name: "empty selection keeps everything",
			want: []string{"Café Sol", "Padaria Luz", "Burger do Alecrim"},
		},
		{
			name: "all tokens keep everything",
			sel: Selection{
				Festivals: []string{"All"},
				MealTimes: []string{"all"},
			},
			want: []string{"Café Sol", "Padaria Luz", "Burger do Alecrim"},
		},
		{
			name: "festival is case insensitive",
			sel:  Selection{Festivals: []string{"sigablend"}},
			want: []string{"Padaria Luz", "Burger do Alecrim"},
		},
		{
			name: "festival is an exact match",
			sel:  Selection{Festivals: []string{"sweet"}},
			want: []string{},
		},
		{
			name: "lunch matches mixed case list",
			sel:  Selection{MealTimes: []string{"lunch"}},
			want: []string{"Café Sol", "Burger do Alecrim"},
		},
		{
			name: "meal tokens ignore accents",
			sel:  Selection{MealTimes: []string{"CAFE"}},
			want: []string{"Padaria Luz"},
		},
		{
			name: "interest level membership",
			sel:  Selection{InterestLevels: []InterestLevel{InterestMedium, InterestHigh}},
			want: []string{"Café Sol", "Burger do Alecrim"},
		},
		{
			name: "neighborhood substring",
			sel:  Selection{Neighborhood: "alec"},
			want: []string{"Padaria Luz", "Burger do Alecrim"},
		},
		{
			name: "blank neighborhood bypasses",
			sel:  Selection{Neighborhood: "   "},
			want: []string{"Café Sol", "Padaria Luz", "Burger do Alecrim"},
		},
		{
			name: "criteria are conjunctive",
			sel: Selection{
				Festivals:    []string{"Sigablend"},
				MealTimes:    []string{"lunch"},
				Neighborhood: "Alecrim",
			},
			want: []string{"Burger do Alecrim"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := names(Filter(records, tt.sel))
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Filter() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestFilter_AllBypassIsIdentity(t *testing.T) {
	records := sampleResolved()

	got := Filter(records, Selection{
		Festivals: []string{AllToken},
		MealTimes: []string{AllToken},
	})

	if diff := cmp.Diff(records, got); diff != "" {
		t.Errorf("Filter() mismatch (-want +got):\n%s", diff)
	}
}

func TestSelection_Match(t *testing.T) {
	sel := Selection{MealTimes: []string{"lunch"}}
	r := AddressRecord{MealTimes: "Breakfast, Lunch"}

	assert.True(t, sel.Match(&r))
}

func TestMappable(t *testing.T) {
	assert.Equal(t, []string{"Café Sol", "Burger do Alecrim"}, names(Mappable(sampleResolved())))
}

func TestOptions(t *testing.T) {
	got := Options(sampleResolved())

	want := SelectionOptions{
		Festivals:      []string{"Sweet Coffee Week", "Sigablend"},
		MealTimes:      []string{"breakfast", "lunch", "cafe", "dinner"},
		InterestLevels: []InterestLevel{1, 2, 3},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Options() mismatch (-want +got):\n%s", diff)
	}
}
