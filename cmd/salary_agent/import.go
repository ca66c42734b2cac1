package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/jonathan/salary-insights/internal/ingestion"
	"github.com/jonathan/salary-insights/internal/observability"
)

var (
	importDryRun bool
	importStrict bool
	importReport string
)

var importCmd = &cobra.Command{
	Use:   "import <file.csv|file.xlsx>",
	Short: "Load a compensation spreadsheet into the store",
	Long:  "Read a CSV or XLSX export, validate each row against the record schema and bulk-insert the valid rows into the configured table.",
	Args:  cobra.ExactArgs(1),
	RunE:  runImport,
}

func init() {
	importCmd.Flags().BoolVar(&importDryRun, "dry-run", false, "Validate without writing")
	importCmd.Flags().BoolVar(&importStrict, "strict", false, "Abort on the first invalid row")
	importCmd.Flags().StringVar(&importReport, "report", "", "Write the import report as JSON to this path")
	rootCmd.AddCommand(importCmd)
}

func runImport(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	st, closeStore, err := openStore(ctx, cfg.Store)
	if err != nil {
		return err
	}
	defer closeStore()

	report, err := ingestion.Import(ctx, args[0], st, ingestion.ImportOptions{
		DryRun: importDryRun,
		Strict: importStrict,
	})
	if report != nil {
		observability.NewPrinter(os.Stdout).PrintImportReport(report)
	}
	if err != nil {
		return err
	}

	if importReport != "" {
		b, err := report.ToJSON()
		if err != nil {
			return err
		}
		if err := os.WriteFile(importReport, b, 0o644); err != nil {
			return err
		}
	}
	return nil
}
