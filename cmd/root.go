package cmd

import (
	"github.com/spf13/cobra"

	"github.com/simonvc/grandlivre/internal/client"
	"github.com/simonvc/grandlivre/internal/config"
)

var (
	flagServer string
	flagDB     string
	flagConfig string
)

var rootCmd = &cobra.Command{
	Use:   "grandlivre",
	Short: "French general ledger for a creator payments platform",
	Long: "A double-entry general ledger on the Plan Comptable Général, backed by SQLite: " +
		"payment event posting, fixed asset depreciation, lettrage, and FEC/CA3 exports.",
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagServer, "server", "http://localhost:8888", "Server address")
	rootCmd.PersistentFlags().StringVar(&flagDB, "db", "", "SQLite database path (overrides the config file)")
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "grandlivre.yaml", "Config file path")
}

// loadConfig resolves the config file, .env and environment, then applies
// command-line overrides.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Resolve(flagConfig)
	if err != nil {
		return nil, err
	}
	if flagDB != "" {
		cfg.Database.Path = flagDB
	}
	return cfg, nil
}

func newClient() *client.Client {
	return client.New(flagServer)
}

func Execute() error {
	return rootCmd.Execute()
}
