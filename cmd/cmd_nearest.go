// Copyright 2025 The festmap Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/sgnsilv/festmap/festival"
	"github.com/spf13/cobra"
)

type selectionOptions struct {
	Festivals      []string
	MealTimes      []string
	InterestLevels []int
	Neighborhood   string
}

var nearestOptions = &selectionOptions{}

func (o *selectionOptions) selection() (festival.Selection, error) {
	sel := festival.Selection{
		Festivals:    o.Festivals,
		MealTimes:    o.MealTimes,
		Neighborhood: o.Neighborhood,
	}

	for _, n := range o.InterestLevels {
		level := festival.InterestLevel(n)
		if !level.Valid() {
			return festival.Selection{}, fmt.Errorf("invalid interest level %d, expected 1, 2 or 3", n)
		}

		sel.InterestLevels = append(sel.InterestLevels, level)
	}

	return sel, nil
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}

	return string(r[:n-1]) + "…"
}

func printRecords(w io.Writer, records []festival.ResolvedRecord) {
	a, b, c, d := strings.Repeat("─", 28), strings.Repeat("─", 20), strings.Repeat("─", 18), strings.Repeat("─", 22)
	fmt.Fprintf(w, "╭─%-28s─┬─%-20s─┬─%-18s─┬─%-22s─┬─%s─╮\n", a, b, c, d, "─")
	fmt.Fprintf(w, "│ %-28s │ %-20s │ %-18s │ %-22s │ %s │\n", "Nome", "Festival", "Bairro", "Coordenadas", "♥")
	fmt.Fprintf(w, "├─%-28s─┼─%-20s─┼─%-18s─┼─%-22s─┼─%s─┤\n", a, b, c, d, "─")

	for _, r := range records {
		coords := "—"
		if r.Point != nil {
			coords = fmt.Sprintf("%.5f, %.5f", r.Point.Lat, r.Point.Lng)
		}

		interest := " "
		if r.InterestLevel.Valid() {
			interest = fmt.Sprint(int(r.InterestLevel))
		}

		fmt.Fprintf(w, "│ %-28s │ %-20s │ %-18s │ %-22s │ %s │\n",
			truncate(r.Name, 28), truncate(r.Festival, 20), truncate(r.Neighborhood, 18), coords, interest)
	}

	fmt.Fprintf(w, "╰─%-28s─┴─%-20s─┴─%-18s─┴─%-22s─┴─%s─╯\n", a, b, c, d, "─")
}

var nearestCmd = &cobra.Command{
	Use:   "nearest [reference]",
	Short: "Lists the filtered venues and the one closest to a reference",
	Long: `Lists the venues matching the filters. When a reference such as an address
or a landmark is given, it is geocoded and the closest venue with
coordinates is reported.

$ festmap nearest --festival "Sweet Coffee Week" --meal lunch "Midway Mall"`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		sel, err := nearestOptions.selection()
		if err != nil {
			return err
		}

		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		p, err := newPipeline(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer p.Close()

		resolved, err := p.load(cmd.Context())
		if resolved == nil {
			return err
		}

		filtered := festival.Filter(resolved, sel)
		printRecords(os.Stdout, filtered)

		if len(args) == 0 {
			return err
		}

		loc := p.locator().Locate(cmd.Context(), args[0], filtered)

		switch {
		case errors.Is(loc.Err, festival.ErrReferenceNotFound):
			fmt.Printf("🛑 Address not found: %s\n", args[0])
		case loc.Nearest == nil:
			fmt.Printf("📍 Reference: %s\n", loc.Reference.DisplayName)
			fmt.Println("⚠️  No venue with coordinates matches the filters")
		default:
			fmt.Printf("📍 Reference: %s\n", loc.Reference.DisplayName)
			fmt.Printf("✅ Nearest: %s (%s) at %.2f km\n",
				loc.Nearest.Record.Name, loc.Nearest.Record.Festival, loc.Nearest.DistanceKm)
		}

		return err
	},
}

func addSelectionFlags(cmd *cobra.Command, o *selectionOptions) {
	cmd.Flags().StringArrayVar(&o.Festivals, "festival", nil, "Keep venues of this festival (repeatable, \"all\" keeps every festival)")
	cmd.Flags().StringArrayVar(&o.MealTimes, "meal", nil, "Keep venues serving this meal (repeatable)")
	cmd.Flags().IntSliceVar(&o.InterestLevels, "interest", nil, "Keep venues with these interest levels, e.g. 2,3")
	cmd.Flags().StringVar(&o.Neighborhood, "neighborhood", "", "Keep venues whose neighborhood contains this text")
}

func init() {
	rootCmd.AddCommand(nearestCmd)
	addSelectionFlags(nearestCmd, nearestOptions)
}
