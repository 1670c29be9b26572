// Copyright 2025 The festmap Authors
// SPDX-License-Identifier: Apache-2.0

package festival

import (
	"slices"
	"strings"

	"github.com/sgnsilv/festmap/utils/textutils"
)

// AllToken selects every value of a criterion.
const AllToken = "all"

// Selection is the set of predicates chosen by the user. An empty list, or
// one containing AllToken, does not restrict its criterion.
type Selection struct {
	Festivals      []string        `json:"festivals,omitempty"`
	MealTimes      []string        `json:"meal_times,omitempty"`
	InterestLevels []InterestLevel `json:"interest_levels,omitempty"`
	Neighborhood   string          `json:"neighborhood,omitempty"`
}

// matcher is a Selection with its values folded once.
type matcher struct {
	festivals    map[string]bool
	meals        map[string]bool
	levels       map[InterestLevel]bool
	neighborhood string
}

func foldSet(values []string, split bool) map[string]bool {
	set := make(map[string]bool, len(values))

	for _, v := range values {
		tokens := []string{textutils.LowerASCIIFolding(v)}
		if split {
			tokens = textutils.SplitTokens(v)
		}

		for _, t := range tokens {
			if t == AllToken {
				return nil
			}

			if t != "" {
				set[t] = true
			}
		}
	}

	if len(set) == 0 {
		return nil
	}

	return set
}

func (s *Selection) matcher() *matcher {
	m := &matcher{
		festivals:    foldSet(s.Festivals, false),
		meals:        foldSet(s.MealTimes, true),
		neighborhood: textutils.LowerASCIIFolding(s.Neighborhood),
	}

	if len(s.InterestLevels) > 0 {
		m.levels = make(map[InterestLevel]bool, len(s.InterestLevels))
		for _, l := range s.InterestLevels {
			m.levels[l] = true
		}
	}

	return m
}

func (m *matcher) match(r *AddressRecord) bool {
	if m.festivals != nil && !m.festivals[textutils.LowerASCIIFolding(r.Festival)] {
		return false
	}

	if m.meals != nil && !slices.ContainsFunc(r.MealTokens(), func(t string) bool { return m.meals[t] }) {
		return false
	}

	if m.levels != nil && !m.levels[r.InterestLevel] {
		return false
	}

	if m.neighborhood != "" && !strings.Contains(textutils.LowerASCIIFolding(r.Neighborhood), m.neighborhood) {
		return false
	}

	return true
}

// Match reports whether r satisfies every criterion of s.
func (s *Selection) Match(r *AddressRecord) bool {
	return s.matcher().match(r)
}

// Filter returns the records matching every criterion of s, in input order.
func Filter(records []ResolvedRecord, s Selection) []ResolvedRecord {
	m := s.matcher()
	out := make([]ResolvedRecord, 0, len(records))

	for i := range records {
		if m.match(&records[i].AddressRecord) {
			out = append(out, records[i])
		}
	}

	return out
}

// Mappable returns the records that have coordinates, in input order.
func Mappable(records []ResolvedRecord) []ResolvedRecord {
	out := make([]ResolvedRecord, 0, len(records))

	for _, r := range records {
		if r.Mappable() {
			out = append(out, r)
		}
	}

	return out
}

// SelectionOptions are the values offered for each criterion.
type SelectionOptions struct {
	Festivals      []string        `json:"festivals"`
	MealTimes      []string        `json:"meal_times"`
	InterestLevels []InterestLevel `json:"interest_levels"`
}

// Options collects the distinct festivals and meal tokens of records in
// first-seen order. Festivals keep the spelling of their first occurrence.
// Interest levels are always 1, 2 and 3.
func Options(records []ResolvedRecord) SelectionOptions {
	opts := SelectionOptions{
		Festivals:      []string{},
		MealTimes:      []string{},
		InterestLevels: slices.Clone(InterestLevels),
	}

	seenFestivals := make(map[string]bool)
	seenMeals := make(map[string]bool)

	for i := range records {
		r := &records[i]

		if key := textutils.LowerASCIIFolding(r.Festival); key != "" && !seenFestivals[key] {
			seenFestivals[key] = true
			opts.Festivals = append(opts.Festivals, r.Festival)
		}

		for _, t := range r.MealTokens() {
			if !seenMeals[t] {
				seenMeals[t] = true
				opts.MealTimes = append(opts.MealTimes, t)
			}
		}
	}

	return opts
}
