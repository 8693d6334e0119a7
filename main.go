// =============================================================================
// Incident Field Mapper - Main Entry Point
// =============================================================================
//
// USAGE:
//   mapper schema [location]     - Show the fields of a schema document
//   mapper suggest <file>        - Show suggested column mappings
//   mapper transform <file|dir>  - Map, transform and validate source files
//   mapper version               - Display the application version
//
// ARCHITECTURE:
//   - cmd/           : CLI command definitions (Cobra)
//   - internal/      : Schema loading, matching, mapping, transforms,
//                      validation and the pipeline that runs them
//   - pkg/utils/     : Output, archive and log file handling
//   - mappings/      : Per-source mapping files
//
// =============================================================================

package main

import (
	"github.com/ginjaninja78/incident-field-mapper/cmd"
)

// main is the entry point of the application.
func main() {
	cmd.Execute()
}
