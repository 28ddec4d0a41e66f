// Package cli implements the carbonfocus command tree.
package cli

import (
	"context"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/opencarbon/carbonfocus/internal/config"
	"github.com/opencarbon/carbonfocus/internal/logging"
	"github.com/opencarbon/carbonfocus/internal/store"
)

// logger is the package-level logger for CLI operations.
var logger zerolog.Logger //nolint:gochecknoglobals // Required for zerolog context integration

type configKey struct{}

// isTerminal checks if the given file is a terminal.
func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

// NewRootCmd creates the root Cobra command for the carbonfocus CLI.
func NewRootCmd(ver string) *cobra.Command {
	var logResult *logging.Result

	cmd := &cobra.Command{
		Use:     "carbonfocus",
		Short:   "Carbon accounting platform CLI and server",
		Long:    "CarbonFocus: quantify activity emissions, manage the factor registry, and serve the platform API",
		Version: ver,
		Example: rootCmdExample,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			configPath, _ := cmd.Flags().GetString("config")
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}

			if dbPath, _ := cmd.Flags().GetString("db"); dbPath != "" {
				cfg.Database.Path = dbPath
			}

			result := setupLogging(cmd, cfg)
			logResult = &result

			ctx := context.WithValue(cmd.Context(), configKey{}, cfg)
			cmd.SetContext(logging.WithContext(ctx, logger))
			return nil
		},
		PersistentPostRunE: func(*cobra.Command, []string) error {
			if logResult != nil {
				return logResult.Close()
			}
			return nil
		},
	}

	cmd.PersistentFlags().Bool("debug", false, "enable debug logging")
	cmd.PersistentFlags().String("config", "", "path to config.yaml")
	cmd.PersistentFlags().String("db", "", "path to the SQLite database (overrides config)")

	cmd.AddCommand(
		newServeCmd(),
		newCalcCmd(),
		newEFCmd(),
		newActivityCmd(),
		newRunCmd(),
		newCreditCmd(),
		newAuditCmd(),
		newSeedCmd(),
	)

	return cmd
}

// setupLogging builds the logger from config with the --debug flag override.
func setupLogging(cmd *cobra.Command, cfg *config.Config) logging.Result {
	loggingCfg := cfg.LoggingSetup()

	if debug, _ := cmd.Flags().GetBool("debug"); debug {
		loggingCfg.Level = "debug"
		loggingCfg.Format = "console"
		loggingCfg.Output = ""
		loggingCfg.File = ""
	}

	result := logging.New(loggingCfg)
	logger = logging.ComponentLogger(result.Logger, "cli")

	if result.FallbackUsed {
		logging.PrintFallbackWarning(cmd.ErrOrStderr(), result.FallbackReason)
	}
	return result
}

// configFrom returns the loaded configuration attached by the root command.
func configFrom(cmd *cobra.Command) *config.Config {
	if cfg, ok := cmd.Context().Value(configKey{}).(*config.Config); ok {
		return cfg
	}
	return &config.Config{}
}

// openStore opens the configured database. The caller closes it.
func openStore(cmd *cobra.Command) (*store.Store, error) {
	cfg := configFrom(cmd)
	return store.Open(cfg.Database.Path)
}

const rootCmdExample = `  # Start the platform API server
  carbonfocus serve

  # Load the starter emission factors
  carbonfocus seed

  # Import emission factors from CSV
  carbonfocus ef import factors.csv

  # Record activities and calculate a footprint run
  carbonfocus activity import activities.csv
  carbonfocus calc run --ids 1,2,3

  # Browse a stored run interactively
  carbonfocus run view 1

  # Verify a stored run against the current registry
  carbonfocus audit run 1`
