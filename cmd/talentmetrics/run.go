package main

import (
	"context"
	"encoding/json"
	"os"

	"github.com/JonMunkholm/talentmetrics/internal/pipeline"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
)

func newRunCmd(a *app) *cobra.Command {
	var (
		dataDir   string
		reportDir string
		skipStore bool
		printJSON bool
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the pipeline once: load, validate, compute, report, store and notify",
		RunE: func(cmd *cobra.Command, args []string) error {
			if dataDir != "" {
				a.cfg.Ingest.DataDir = dataDir
			}
			if reportDir != "" {
				a.cfg.Report.Dir = reportDir
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), a.cfg.Server.RunTimeout)
			defer cancel()

			// A one-shot run has nobody scraping, so its collectors stay private.
			runner, closeStore, err := a.newRunner(ctx, skipStore, pipeline.NewInstruments(prometheus.NewRegistry()))
			if err != nil {
				return err
			}
			defer closeStore()

			res, err := runner.Run(ctx)
			if err != nil {
				return err
			}

			if printJSON {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(res)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&dataDir, "data-dir", "", "Directory with the entity CSV files (overrides DATA_DIR)")
	cmd.Flags().StringVar(&reportDir, "report-dir", "", "Directory for report artifacts (overrides REPORT_DIR)")
	cmd.Flags().BoolVar(&skipStore, "no-store", false, "Skip writing clean tables to the database")
	cmd.Flags().BoolVar(&printJSON, "json", false, "Print the run result as JSON")
	return cmd
}
