// =============================================================================
// Incident Field Mapper - Root Command
// =============================================================================
//
// This file defines the root command for the Cobra CLI. Every other command
// is attached to it.
//
// COBRA CLI STRUCTURE:
//   rootCmd (mapper)
//   ├── schemaCmd    (mapper schema)
//   ├── suggestCmd   (mapper suggest)
//   ├── transformCmd (mapper transform)
//   └── versionCmd   (mapper version)
//
// CONFIGURATION:
//   The root command loads config.yaml before any subcommand runs and sets
//   up logging from it. --verbose forces debug logging.
//
// =============================================================================

package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/ginjaninja78/incident-field-mapper/internal/config"
	"github.com/ginjaninja78/incident-field-mapper/internal/logging"
)

// =============================================================================
// GLOBAL VARIABLES
// =============================================================================

// cfgFile holds the path to the main configuration file.
var cfgFile string

// verbose enables debug logging when set to true.
var verbose bool

// mainConfig is loaded before any subcommand runs.
var mainConfig *config.MainConfig

// =============================================================================
// ROOT COMMAND DEFINITION
// =============================================================================

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "mapper",
	Short: "Incident Field Mapper - Map incident exports onto a target schema",
	Long: `Incident Field Mapper converts incident data with unknown column names into
records that conform to a target schema.

Key Features:
  - Schema documents in JSON, YAML or XLSX template form, local or remote
  - Automatic column suggestions from a built-in alias table
  - Explicit mapping files for sources the matcher cannot cover
  - Date, coordinate and text transforms per field
  - Validation that reports every problem without stopping

Example Usage:
  mapper schema ./schemas/nerris.json         # Show the target fields
  mapper suggest ./input/calls.csv            # Show suggested column mappings
  mapper transform ./input                    # Map every file in a directory
  mapper transform calls.csv --dry-run        # Validate without writing output`,

	SilenceUsage:  true,
	SilenceErrors: true,

	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return initConfig()
	},

	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
}

// =============================================================================
// EXECUTE FUNCTION
// =============================================================================

// Execute runs the root command. It is called by main.main(). An interrupt
// cancels the context, so files that have not started are skipped.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// =============================================================================
// INITIALIZATION
// =============================================================================

func init() {
	rootCmd.PersistentFlags().StringVar(
		&cfgFile,
		"config",
		"config.yaml",
		"Path to the main configuration file",
	)

	rootCmd.PersistentFlags().BoolVarP(
		&verbose,
		"verbose",
		"v",
		false,
		"Enable verbose output for debugging",
	)
}

// initConfig loads the main configuration and configures logging.
func initConfig() error {
	cfg, err := config.LoadMainConfig(cfgFile)
	if err != nil {
		return fmt.Errorf("failed to load main config: %w", err)
	}

	level, err := logging.ParseLevel(cfg.LogLevel)
	if err != nil {
		return err
	}
	if verbose {
		level = slog.LevelDebug
	}
	logging.Init(level, cfg.LogFormat)

	mainConfig = cfg
	return nil
}
