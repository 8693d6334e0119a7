// =============================================================================
// Incident Field Mapper - Suggest Command
// =============================================================================
//
// This file defines the 'suggest' command, which reads the header of a
// source file and prints the column each target field would be mapped to.
// Nothing is written.
//
// COMMAND USAGE:
//   mapper suggest <file> [flags]
//
// OUTPUT:
//   One line per target field with a suggestion, then the required field
//   coverage and whether the suggestions would be applied automatically.
//
// =============================================================================

package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/ginjaninja78/incident-field-mapper/internal/config"
	"github.com/ginjaninja78/incident-field-mapper/internal/matcher"
	"github.com/ginjaninja78/incident-field-mapper/internal/pipeline"
	"github.com/ginjaninja78/incident-field-mapper/internal/source"
)

// =============================================================================
// COMMAND FLAGS
// =============================================================================

var (
	suggestSchema string
	suggestTool   string
	suggestJSON   bool
)

// =============================================================================
// SUGGEST COMMAND DEFINITION
// =============================================================================

var suggestCmd = &cobra.Command{
	Use:   "suggest <file>",
	Short: "Show suggested column mappings for a source file",
	Long: `The suggest command reads the columns of a CSV, XLSX or JSON source file and
matches them against the target schema using the alias table.

Required fields without a suggestion are listed so a mapping file can be
written for them.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSuggest(cmd, args[0])
	},
}

func init() {
	rootCmd.AddCommand(suggestCmd)

	suggestCmd.Flags().StringVar(&suggestSchema, "schema", "", "Schema location (default from config)")
	suggestCmd.Flags().StringVar(&suggestTool, "tool", "", "Target tool (default from config)")
	suggestCmd.Flags().BoolVar(&suggestJSON, "json", false, "Print suggestions as JSON")
}

// suggestReport is the JSON form of the command output.
type suggestReport struct {
	File        string                `json:"file"`
	Columns     []string              `json:"columns"`
	Suggestions []pipeline.Suggestion `json:"suggestions"`
	Unmatched   []string              `json:"unmatchedRequired"`
	Coverage    matcher.Coverage      `json:"coverage"`
}

// runSuggest loads the schema and source header and prints suggestions.
func runSuggest(cmd *cobra.Command, path string) error {
	p, err := pipeline.New(mainConfig, pipeline.Options{Schema: suggestSchema, TargetTool: suggestTool})
	if err != nil {
		return err
	}

	mappings, err := config.LoadMappingFiles(mainConfig.MappingsDir)
	if err != nil {
		return err
	}
	mf := config.FindMappingFile(path, mappings)

	catalog, err := p.Catalog(cmd.Context(), mf)
	if err != nil {
		return err
	}

	table, err := source.Read(path, mf.ResolveCSVSettings(mainConfig.CSVSettings))
	if err != nil {
		return fmt.Errorf("failed to read source: %w", err)
	}

	suggestions, coverage := p.Suggestions(catalog, table.Columns)
	report := suggestReport{
		File:        path,
		Columns:     table.ColumnNames(),
		Suggestions: suggestions,
		Coverage:    coverage,
	}

	matched := make(map[string]bool, len(suggestions))
	for _, s := range suggestions {
		matched[s.FieldID] = true
	}
	for _, f := range catalog.RequiredFields() {
		if !matched[f.ID] {
			report.Unmatched = append(report.Unmatched, f.Key())
		}
	}

	out := cmd.OutOrStdout()
	if suggestJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	}
	printSuggestions(out, report)
	return nil
}

func printSuggestions(out io.Writer, report suggestReport) {
	fmt.Fprintf(out, "=== Suggestions for %s ===\n", report.File)
	fmt.Fprintf(out, "Columns found: %d\n\n", len(report.Columns))

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "FIELD\tREQUIRED\tCOLUMN")
	for _, s := range report.Suggestions {
		required := ""
		if s.Required {
			required = "yes"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\n", s.Field, required, s.Column)
	}
	w.Flush()

	if len(report.Unmatched) > 0 {
		fmt.Fprintln(out, "\nRequired fields without a suggestion:")
		for _, name := range report.Unmatched {
			fmt.Fprintf(out, "  ✗ %s\n", name)
		}
	}

	c := report.Coverage
	fmt.Fprintf(out, "\nRequired coverage: %d/%d (threshold %d)\n", c.MatchedRequired, c.Required, c.Threshold)
	if c.AutoApply {
		fmt.Fprintln(out, "Suggestions will be applied automatically.")
	} else {
		fmt.Fprintln(out, "Suggestions will not be applied without --accept-suggestions or a mapping file.")
	}
}
