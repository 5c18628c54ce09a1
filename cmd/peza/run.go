package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/NathanBvumbwe/peza-ganyu/internal/observability"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run one full cycle: ingest, categorize, match",
	Long: `Runs every configured source, categorizes the stored postings and
recomputes every user's matches.

Per-source and per-user failures are reported but do not fail the command;
only configuration or store errors do.`,
	RunE: runRun,
}

func init() {
	rootCmd.AddCommand(runCmd)
}

func runRun(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	a, err := newApp(ctx, nil)
	if err != nil {
		return err
	}
	defer a.Close()

	report, err := a.runner.Run(ctx)
	if report != nil {
		observability.NewPrinter(os.Stdout).PrintRunReport(report)
	}
	return err
}
