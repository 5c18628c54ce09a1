package main

import (
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/NathanBvumbwe/peza-ganyu/internal/observability"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Scrape every configured source into the raw postings table",
	RunE:  runIngest,
}

var categorizeCmd = &cobra.Command{
	Use:   "categorize",
	Short: "Assign a category to every raw posting",
	RunE:  runCategorize,
}

func init() {
	rootCmd.AddCommand(ingestCmd)
	rootCmd.AddCommand(categorizeCmd)
}

func runIngest(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	a, err := newApp(ctx, nil)
	if err != nil {
		return err
	}
	defer a.Close()

	report, location, err := a.runner.Ingest(ctx, uuid.New())
	if err != nil {
		return err
	}
	p := observability.NewPrinter(os.Stdout)
	p.PrintIngestReport(&report)
	if location != "" {
		_, _ = fmt.Fprintf(os.Stdout, "Archived to %s\n", location)
	}
	return nil
}

func runCategorize(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	a, err := newApp(ctx, nil)
	if err != nil {
		return err
	}
	defer a.Close()

	report := a.runner.Categorize(ctx, uuid.New())
	observability.NewPrinter(os.Stdout).PrintCategorizeReport(&report)
	return nil
}
