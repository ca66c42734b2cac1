package main

import (
	"encoding/json"
	"os"

	"github.com/spf13/cobra"

	"github.com/jonathan/salary-insights/internal/aggregate"
	"github.com/jonathan/salary-insights/internal/dataset"
	"github.com/jonathan/salary-insights/internal/observability"
)

var (
	summaryJSON      bool
	summaryFamilies  []string
	summaryLevels    []string
	summaryCountries []string
	summarySearch    string
)

var summaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Print dataset aggregates",
	Long:  "Load the compensation table and print family, level and country distributions with the top base salaries.",
	RunE:  runSummary,
}

func init() {
	summaryCmd.Flags().BoolVar(&summaryJSON, "json", false, "Print aggregates as JSON")
	summaryCmd.Flags().StringSliceVar(&summaryFamilies, "family", nil, "Restrict to job families")
	summaryCmd.Flags().StringSliceVar(&summaryLevels, "level", nil, "Restrict to levels")
	summaryCmd.Flags().StringSliceVar(&summaryCountries, "country", nil, "Restrict to countries")
	summaryCmd.Flags().StringVar(&summarySearch, "search", "", "Free-text search over job titles")
	rootCmd.AddCommand(summaryCmd)
}

func runSummary(cmd *cobra.Command, _ []string) error {
	records, err := loadRecords(cmd.Context(), cfg.Store)
	if err != nil {
		return err
	}

	filter := dataset.Filter{
		Search:    summarySearch,
		Families:  summaryFamilies,
		Levels:    summaryLevels,
		Countries: summaryCountries,
	}
	agg := aggregate.Build(filter.Apply(records))

	if summaryJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(agg)
	}
	observability.NewPrinter(os.Stdout).PrintAggregates(agg)
	return nil
}
