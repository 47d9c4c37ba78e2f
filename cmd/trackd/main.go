// Command trackd serves vehicle track analytics over HTTP.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/banshee-data/track.report/internal/config"
	"github.com/banshee-data/track.report/internal/version"
)

type rootFlags struct {
	configPath string
	dbPath     string
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	flags := &rootFlags{}
	root := &cobra.Command{
		Use:           "trackd",
		Short:         "Vehicle track analytics service",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&flags.configPath, "config", config.DefaultConfigPath, "Path to the JSON service config")
	root.PersistentFlags().StringVar(&flags.dbPath, "db", "", "Path to the SQLite database (overrides config)")

	root.AddCommand(serveCmd(flags), migrateCmd(flags), versionCmd())
	return root
}

// load reads the service config and applies persistent flag overrides.
func (f *rootFlags) load() (*config.ServiceConfig, error) {
	cfg, err := config.LoadServiceConfig(f.configPath)
	if err != nil {
		return nil, err
	}
	if f.dbPath != "" {
		cfg.DBPath = &f.dbPath
	}
	return cfg, nil
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print build information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version.Current())
		},
	}
}
