package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/NathanBvumbwe/peza-ganyu/internal/observability"
	"github.com/NathanBvumbwe/peza-ganyu/internal/scheduler"
)

var scheduleNow bool

var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Run the pipeline on the configured cron schedule until interrupted",
	Long: `Runs the full cycle on schedule.spec in schedule.timezone (default
"0 7 * * *" in Africa/Blantyre). A cycle in progress is never overlapped and
is allowed to finish on SIGINT/SIGTERM.`,
	RunE: runSchedule,
}

func init() {
	scheduleCmd.Flags().BoolVar(&scheduleNow, "now", false, "Run one cycle immediately before waiting for the schedule")
	rootCmd.AddCommand(scheduleCmd)
}

func runSchedule(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, nil)
	if err != nil {
		return err
	}
	defer a.Close()

	printer := observability.NewPrinter(os.Stdout)
	s, err := scheduler.New(a.cfg.Schedule.Spec, a.cfg.Schedule.Timezone, func(ctx context.Context) error {
		report, err := a.runner.Run(ctx)
		if report != nil {
			printer.PrintRunReport(report)
		}
		return err
	}, a.logger)
	if err != nil {
		return err
	}

	if scheduleNow {
		s.RunNow(context.WithoutCancel(ctx))
	}

	s.Start(ctx)
	<-ctx.Done()

	a.logger.Info("shutdown requested, waiting for the running cycle", zap.Time("next_run", s.Next()))
	return s.Stop(context.Background())
}
