package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/NathanBvumbwe/peza-ganyu/internal/server"
	"github.com/NathanBvumbwe/peza-ganyu/internal/server/ratelimit"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP trigger server",
	Long:  `Start an HTTP server that lets the presentation layer recompute a user's matches, trigger pipeline runs and follow their progress.`,
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "Port to listen on (defaults to server.port)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	hub := server.NewProgressHub()
	a, err := newApp(ctx, hub.Publish)
	if err != nil {
		return err
	}
	defer a.Close()

	port := a.cfg.Server.Port
	if cmd.Flags().Changed("port") {
		port = servePort
	}

	srv := server.New(server.Deps{
		Runner:     a.runner,
		Recomputer: a.driver,
		Matches:    a.db,
		Health:     a.db,
		Progress:   hub,
	}, server.Config{
		Port:      port,
		TopN:      a.cfg.TopN,
		RateLimit: ratelimit.FromSettings(a.cfg.Server.RateLimit),
	}, a.logger)

	return srv.Start(ctx)
}
