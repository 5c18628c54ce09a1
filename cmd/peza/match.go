package main

import (
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/NathanBvumbwe/peza-ganyu/internal/observability"
)

var matchUserID int64

var matchCmd = &cobra.Command{
	Use:   "match",
	Short: "Recompute matches for every user, or one with --user",
	RunE:  runMatch,
}

func init() {
	matchCmd.Flags().Int64Var(&matchUserID, "user", 0, "Recompute only this user id")
	rootCmd.AddCommand(matchCmd)
}

func runMatch(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	a, err := newApp(ctx, nil)
	if err != nil {
		return err
	}
	defer a.Close()

	p := observability.NewPrinter(os.Stdout)

	if !cmd.Flags().Changed("user") {
		report, err := a.runner.Match(ctx, uuid.New())
		p.PrintMatchReport(&report)
		return err
	}

	if matchUserID < 1 {
		return fmt.Errorf("--user must be a positive id")
	}
	if _, err := a.driver.RecomputeForUser(ctx, matchUserID, a.cfg.TopN); err != nil {
		return err
	}
	matches, err := a.db.ListMatches(ctx, matchUserID)
	if err != nil {
		return err
	}
	p.PrintMatches(matchUserID, matches)
	return nil
}
