// Package main provides the peza command line: scraping, categorization,
// matching, the daily schedule and the HTTP trigger surface.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/NathanBvumbwe/peza-ganyu/internal/config"
)

var (
	configPath string
	v          *viper.Viper
)

var rootCmd = &cobra.Command{
	Use:   "peza",
	Short: "Job posting ingestion and matching pipeline",
	Long: `peza scrapes job boards into Postgres, categorizes the postings and
recomputes every user's best matching jobs.

Configuration is read from --config (default ./peza.yaml if present), then
PEZA_* environment variables, then flags.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to a YAML or JSON config file")
	rootCmd.PersistentFlags().String("database-url", "", "PostgreSQL connection URL (defaults to DATABASE_URL)")
	rootCmd.PersistentFlags().Int("top-n", 6, "Matches kept per user")
	rootCmd.PersistentFlags().Bool("log-json", false, "Log as JSON")
	rootCmd.PersistentFlags().Bool("debug", false, "Enable debug logging")

	resetViper()
}

// resetViper starts a fresh configuration with the root flags bound.
func resetViper() {
	v = config.NewViper()
	bindFlag("database_url", "database-url")
	bindFlag("top_n", "top-n")
	bindFlag("log.json", "log-json")
	bindFlag("log.debug", "debug")
}

func bindFlag(key, flag string) {
	if err := v.BindPFlag(key, rootCmd.PersistentFlags().Lookup(flag)); err != nil {
		panic(fmt.Sprintf("bind flag %s: %v", flag, err))
	}
}

// loadConfig reads and validates the configuration for a command.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(v, configPath)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
