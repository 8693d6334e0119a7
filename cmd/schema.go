// =============================================================================
// Incident Field Mapper - Schema Command
// =============================================================================
//
// This file defines the 'schema' command, which loads a schema document and
// lists the target fields in catalog order.
//
// COMMAND USAGE:
//   mapper schema [location] [flags]
//
// FLAGS:
//   --tool : Target tool whose required fields apply
//   --json : Print the catalog as JSON
//   --xsd  : Print an XSD for the XML output of this catalog
//
// =============================================================================

package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/ginjaninja78/incident-field-mapper/internal/pipeline"
	"github.com/ginjaninja78/incident-field-mapper/internal/schema"
	"github.com/ginjaninja78/incident-field-mapper/internal/xmlwriter"
)

// =============================================================================
// COMMAND FLAGS
// =============================================================================

// schemaTool overrides the configured target tool.
var schemaTool string

// schemaJSON prints the catalog as JSON.
var schemaJSON bool

// schemaXSD prints an XSD for XML output.
var schemaXSD bool

// =============================================================================
// SCHEMA COMMAND DEFINITION
// =============================================================================

var schemaCmd = &cobra.Command{
	Use:   "schema [location]",
	Short: "Show the target fields of a schema document",
	Long: `The schema command loads a schema document (a file path, an http(s) URL or an
XLSX template) and lists its fields sorted by category, required fields first.

Without a location the schema from the configuration file is used.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := pipeline.Options{TargetTool: schemaTool}
		if len(args) == 1 {
			opts.Schema = args[0]
		}
		return runSchema(cmd, opts)
	},
}

func init() {
	rootCmd.AddCommand(schemaCmd)

	schemaCmd.Flags().StringVar(&schemaTool, "tool", "", "Target tool (default from config)")
	schemaCmd.Flags().BoolVar(&schemaJSON, "json", false, "Print the catalog as JSON")
	schemaCmd.Flags().BoolVar(&schemaXSD, "xsd", false, "Print an XSD for XML output")
	schemaCmd.MarkFlagsMutuallyExclusive("json", "xsd")
}

// runSchema loads and prints the catalog.
func runSchema(cmd *cobra.Command, opts pipeline.Options) error {
	p, err := pipeline.New(mainConfig, opts)
	if err != nil {
		return err
	}
	catalog, err := p.Catalog(cmd.Context(), nil)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if schemaXSD {
		xsd, err := xmlwriter.GenerateXSD(catalog)
		if err != nil {
			return err
		}
		_, err = out.Write(xsd)
		return err
	}
	if schemaJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(catalog.Fields())
	}

	fmt.Fprintf(out, "Tool: %s  Fields: %d  Required: %d\n\n", catalog.ToolID(), catalog.Len(), len(catalog.RequiredIDs()))
	printFields(out, catalog)
	return nil
}

// printFields writes one line per field, grouped by category.
func printFields(out io.Writer, catalog *schema.Catalog) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	defer w.Flush()

	fmt.Fprintln(w, "CATEGORY\tID\tKEY\tTYPE\tREQUIRED\tALIASES")
	for _, f := range catalog.Fields() {
		required := ""
		if f.Required {
			required = "yes"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
			f.Category, f.ID, f.Key(), f.Type, required, strings.Join(f.Aliases, ", "))
	}
}
