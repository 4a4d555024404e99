package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/agrawal-rohit/palette-auto-generator/internal/config"
	"github.com/agrawal-rohit/palette-auto-generator/internal/logging"
)

var (
	logLevel  string
	logFormat string

	cfg    *config.Config
	logger *logging.Logger
)

var rootCmd = &cobra.Command{
	Use:   "palette",
	Short: "Complementary color palette generation by simulated annealing",
	Long: `palette searches for a five-color UI palette (accent, background,
surface, button text, main text) that complements an anchor color. It can run
a single search from the command line or serve searches over HTTP.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load()
		if err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}

		// Flags win over the environment.
		if cmd.Flags().Changed("log-level") {
			cfg.Logging.Level = logLevel
		}
		if cmd.Flags().Changed("log-format") {
			cfg.Logging.Format = logFormat
		}

		logger, err = logging.NewLogger(&logging.Config{
			Level:  cfg.Logging.Level,
			Format: cfg.Logging.Format,
			Output: cfg.Logging.Output,
		})
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "json", "Log format (json, text)")
}
