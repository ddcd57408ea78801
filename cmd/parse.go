package cmd

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"property-hunter/services"
)

func parseCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "parse <query>",
		Short:   "Print the search criteria parsed from a free-text query",
		Example: `  property-hunter parse "3 bed townhouse within 5km of Glen Iris under $2m"`,
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.close()

			c := services.NewCriteriaExtractor(a.ref).Parse(strings.Join(args, " "))
			resolved := services.NewGeoMatcher(a.ref).ResolveFilter(c, services.DefaultSearchLimit)

			out := struct {
				Criteria any      `json:"criteria"`
				Suburbs  []string `json:"suburbs,omitempty"`
			}{Criteria: c, Suburbs: resolved.Filter.Suburbs}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			if err := enc.Encode(out); err != nil {
				return fmt.Errorf("encode criteria: %w", err)
			}
			return nil
		},
	}
}

func nearbyCommand() *cobra.Command {
	var radius float64
	cmd := &cobra.Command{
		Use:   "nearby <suburb>",
		Short: "List suburbs within a radius of a suburb",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.close()

			name := strings.Join(args, " ")
			geo := services.NewGeoMatcher(a.ref)
			center, ok := geo.Find(name)
			if !ok {
				return fmt.Errorf("unknown suburb %q", name)
			}

			distances := geo.DistanceMap(center.Suburb)
			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "Suburbs within %.1f km of %s\n", radius, center.Suburb)
			for _, p := range geo.WithinRadius(center.Suburb, radius) {
				median := "n/a"
				if p.MedianPrice != nil {
					median = fmt.Sprintf("$%d", *p.MedianPrice)
				}
				fmt.Fprintf(w, "  %-24s %-4s %6.1f km  median %s\n", p.Suburb, p.State, distances[p.Suburb], median)
			}
			return nil
		},
	}
	cmd.Flags().Float64Var(&radius, "radius", 5, "radius in km")
	return cmd
}
