package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/solatis/fieldcomp/internal/core/config"
	"github.com/solatis/fieldcomp/internal/logger"
)

var (
	configFile string
	dbURL      string
	logLevel   string
	logFormat  string
)

// Populated by PersistentPreRunE before any subcommand runs.
var (
	cfg *config.Config
	log *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "fieldcomp",
	Short: "Derived field composition engine",
	Long: `fieldcomp builds virtual and composite fields from the fields of ingested records,
following per-datatype definitions loaded from configuration or a definition store.`,
	SilenceUsage:      true,
	PersistentPreRunE: setup,
	PersistentPostRun: func(*cobra.Command, []string) {
		if log != nil {
			_ = log.Sync()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file path")
	rootCmd.PersistentFlags().StringVar(&dbURL, "db-url", "", "database connection URL (sqlite://path or postgres://...)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "json", "log format (json, text)")
}

// setup loads configuration and builds the logger; flags override the file.
func setup(cmd *cobra.Command, _ []string) error {
	loaded, err := config.LoadConfig(configFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	flags := cmd.Flags()
	if flags.Changed("log-level") {
		loaded.Logging.Level = logLevel
	}
	if flags.Changed("log-format") {
		loaded.Logging.Format = logFormat
	}

	l, err := logger.New(loaded.Logging.Level, loaded.Logging.Format)
	if err != nil {
		return err
	}

	cfg, log = loaded, l
	return nil
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
