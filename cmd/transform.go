// =============================================================================
// Incident Field Mapper - Transform Command
// =============================================================================
//
// This file defines the 'transform' command, which is the main command of
// the application. It maps source files onto the target schema, transforms
// and validates the records, and writes one JSON document per source.
//
// COMMAND USAGE:
//   mapper transform <file|dir>... [flags]
//
// PROCESSING PIPELINE:
//   1. Load mapping files from mappings_dir (or the one given by --mapping)
//   2. Expand directories into the supported files they contain
//   3. Process every file concurrently, bounded by max_concurrency
//   4. Print one line per file and write a summary log for batches
//
// =============================================================================

package cmd

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/ginjaninja78/incident-field-mapper/internal/config"
	"github.com/ginjaninja78/incident-field-mapper/internal/pipeline"
	"github.com/ginjaninja78/incident-field-mapper/internal/source"
	"github.com/ginjaninja78/incident-field-mapper/pkg/utils"
)

// =============================================================================
// COMMAND FLAGS
// =============================================================================

// transformOpts collects the flags that override the main configuration.
var transformOpts pipeline.Options

// mappingPath is an explicit mapping file applied to every input.
var mappingPath string

// =============================================================================
// TRANSFORM COMMAND DEFINITION
// =============================================================================

var transformCmd = &cobra.Command{
	Use:   "transform <file|dir>...",
	Short: "Map, transform and validate source files",
	Long: `The transform command maps every given source file onto the target schema.
Directories are expanded to the CSV, XLSX and JSON files they contain.

For each file:
  - Columns are mapped by the matching mapping file, then by suggestions
  - Dates, coordinates and text are transformed per field
  - Records are validated and every problem is reported
  - A JSON document is written to the output directory
  - A problem log is written next to it when problems were found
  - The source file is moved to the archive directory, if one is configured

A file whose required fields cannot all be mapped is refused unless
allow_incomplete is set in the configuration.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runTransform(cmd, args)
	},
}

func init() {
	rootCmd.AddCommand(transformCmd)

	transformCmd.Flags().StringVar(&transformOpts.Schema, "schema", "", "Schema location (default from config)")
	transformCmd.Flags().StringVar(&transformOpts.TargetTool, "tool", "", "Target tool (default from config)")
	transformCmd.Flags().StringVar(&mappingPath, "mapping", "", "Mapping file applied to every input")
	transformCmd.Flags().BoolVar(&transformOpts.DryRun, "dry-run", false, "Run every step without writing or archiving")
	transformCmd.Flags().BoolVar(&transformOpts.AcceptSuggestions, "accept-suggestions", false, "Apply suggestions below the auto-apply threshold")
}

// =============================================================================
// MAIN PROCESSING FUNCTION
// =============================================================================

// runTransform orchestrates a transform run.
func runTransform(cmd *cobra.Command, args []string) error {
	startTime := time.Now()
	out := cmd.OutOrStdout()

	// =========================================================================
	// STEP 1: LOAD MAPPING FILES
	// =========================================================================

	mappings, err := loadMappings()
	if err != nil {
		return err
	}

	// =========================================================================
	// STEP 2: DISCOVER INPUT FILES
	// =========================================================================

	paths, err := expandInputs(args)
	if err != nil {
		return err
	}
	if len(paths) == 0 {
		fmt.Fprintln(out, "No supported files found.")
		return nil
	}
	fmt.Fprintf(out, "Found %d file(s) to process\n", len(paths))

	// =========================================================================
	// STEP 3: PROCESS FILES
	// =========================================================================

	p, err := pipeline.New(mainConfig, transformOpts)
	if err != nil {
		return err
	}
	results := p.ProcessAll(cmd.Context(), paths, mappings)

	// =========================================================================
	// STEP 4: REPORT
	// =========================================================================

	summary := pipeline.Summarize(results, startTime, time.Now())
	printResults(out, results, summary)

	if len(paths) > 1 && !transformOpts.DryRun {
		logPath, err := utils.WriteSummaryLog(summary, mainConfig.OutputDir)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "Summary written to %s\n", logPath)
	}

	if summary.FailedFiles > 0 {
		return fmt.Errorf("%d of %d file(s) failed", summary.FailedFiles, summary.TotalFiles)
	}
	return nil
}

// loadMappings returns the explicit mapping file, or every mapping file in
// mappings_dir.
func loadMappings() ([]*config.MappingFile, error) {
	if mappingPath == "" {
		return config.LoadMappingFiles(mainConfig.MappingsDir)
	}

	mf, err := config.LoadMappingFile(mappingPath)
	if err != nil {
		return nil, err
	}
	mf.FilePatterns = []string{"*"}
	return []*config.MappingFile{mf}, nil
}

// expandInputs replaces directory arguments with the supported files they
// contain. File arguments are kept as given.
func expandInputs(args []string) ([]string, error) {
	var paths []string
	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return nil, fmt.Errorf("failed to access input: %w", err)
		}
		if !info.IsDir() {
			paths = append(paths, arg)
			continue
		}

		files, err := utils.DiscoverFiles(arg, source.IsSupported)
		if err != nil {
			return nil, err
		}
		paths = append(paths, files...)
	}
	return paths, nil
}

// printResults writes one line per file followed by the totals.
func printResults(out io.Writer, results []pipeline.Result, summary utils.ProcessingSummary) {
	for _, r := range results {
		name := filepath.Base(r.FilePath)
		if !r.Success {
			fmt.Fprintf(out, "  ✗ %s: %v\n", name, r.Error)
			continue
		}

		target := r.OutputFile
		if target == "" {
			target = "(dry run)"
		}
		fmt.Fprintf(out, "  ✓ %s -> %s (%d records, %d problems)\n",
			name, target, r.Stats.RecordsTransformed, r.Stats.Problems)
		if r.ProblemLog != "" {
			fmt.Fprintf(out, "    problems: %s\n", r.ProblemLog)
		}
	}

	fmt.Fprintln(out, "\n=== Processing Complete ===")
	fmt.Fprintf(out, "Total files:     %d\n", summary.TotalFiles)
	fmt.Fprintf(out, "Successful:      %d\n", summary.SuccessfulFiles)
	fmt.Fprintf(out, "Errors:          %d\n", summary.FailedFiles)
	fmt.Fprintf(out, "Records:         %d\n", summary.TotalRecords)
	fmt.Fprintf(out, "Time elapsed:    %s\n", summary.EndTime.Sub(summary.StartTime))
}
