// =============================================================================
// Incident Field Mapper - Source Readers
// =============================================================================
//
// This module reads incident exports into the engine's input shape: an
// ordered list of source columns and a list of records keyed by column name.
// It handles:
//   - Delimited text (CSV, TSV, pipe) with multi-line headers and encodings
//   - XLSX workbooks (first sheet, first row is the header)
//   - JSON arrays of objects (columns in first-seen key order)
//
// COLUMN NAMES:
//   Column names are trimmed. Empty names become "Column_N" (1-based) and a
//   repeated name gets a "_2", "_3", ... suffix so every record key is
//   unique. Column indices follow the input order and are stable.
//
// VALUES:
//   Readers produce strings, float64 (JSON numbers only) or nil (JSON null).
//   Values from text formats are trimmed; cells missing from a short row are
//   empty strings.
//
// =============================================================================

package source

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/ginjaninja78/incident-field-mapper/internal/config"
	"github.com/ginjaninja78/incident-field-mapper/internal/types"
)

// =============================================================================
// TABLE STRUCTURE
// =============================================================================

// Format identifies a source file format.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
	FormatJSON Format = "json"
)

// Table is a source file read into memory.
type Table struct {
	// Columns are the source columns in input order.
	Columns []types.SourceColumn

	// Records are the data rows keyed by column name.
	Records []types.Record

	// SourceFile is the path the table was read from, empty for readers.
	SourceFile string

	// Format is the format the table was read as.
	Format Format
}

// ColumnNames returns the column names in input order.
func (t *Table) ColumnNames() []string {
	names := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		names[i] = c.Name
	}
	return names
}

// =============================================================================
// FORMAT DETECTION
// =============================================================================

// DetectFormat picks the reader for a file from its extension.
func DetectFormat(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv", ".tsv", ".txt":
		return FormatCSV, nil
	case ".xlsx", ".xlsm":
		return FormatXLSX, nil
	case ".json":
		return FormatJSON, nil
	default:
		return "", fmt.Errorf("unsupported source file type %q", filepath.Ext(path))
	}
}

// IsSupported reports whether DetectFormat accepts path.
func IsSupported(path string) bool {
	_, err := DetectFormat(path)
	return err == nil
}

// Read reads a source file of any supported format.
//
// PARAMETERS:
//   - path: The source file.
//   - settings: CSV settings, used for delimited files only. A ".tsv" file
//     with the default comma delimiter is read tab-separated.
//
// RETURNS:
//   - The table.
//   - An error if the format is unsupported or the file cannot be read.
func Read(path string, settings config.CSVSettings) (*Table, error) {
	format, err := DetectFormat(path)
	if err != nil {
		return nil, err
	}

	var table *Table
	switch format {
	case FormatCSV:
		if strings.EqualFold(filepath.Ext(path), ".tsv") && (settings.Delimiter == "" || settings.Delimiter == ",") {
			settings.Delimiter = "tab"
		}
		table, err = ReadCSVFile(path, settings)
	case FormatXLSX:
		table, err = ReadXLSXFile(path)
	case FormatJSON:
		table, err = ReadJSONFile(path)
	}
	if err != nil {
		return nil, err
	}
	table.SourceFile = path
	return table, nil
}

// =============================================================================
// HEADER HELPERS
// =============================================================================

// cleanHeaders trims names, fills empty ones and makes them unique.
func cleanHeaders(headers []string) []string {
	cleaned := make([]string, len(headers))
	used := make(map[string]bool, len(headers))

	for i, header := range headers {
		header = strings.TrimSpace(header)
		if header == "" {
			header = fmt.Sprintf("Column_%d", i+1)
		}
		if used[header] {
			base := header
			for n := 2; used[header]; n++ {
				header = fmt.Sprintf("%s_%d", base, n)
			}
		}
		used[header] = true
		cleaned[i] = header
	}
	return cleaned
}

// isRowEmpty checks if a row contains only empty values.
func isRowEmpty(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

// rowRecord builds a record from a row of cells.
func rowRecord(headers, row []string) types.Record {
	record := make(types.Record, len(headers))
	for i, header := range headers {
		if i < len(row) {
			record[header] = strings.TrimSpace(row[i])
		} else {
			record[header] = ""
		}
	}
	return record
}
