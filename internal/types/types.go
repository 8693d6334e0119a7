// =============================================================================
// Incident Field Mapper - Shared Types
// =============================================================================
//
// This package contains value types shared by the engine packages so that
// they can exchange data without import cycles. Types defined here are used
// by:
//   - source     (produces columns and records)
//   - matcher    (consumes columns)
//   - transform  (consumes records, produces transformed records)
//   - validation (consumes transformed records)
//
// =============================================================================

package types

import (
	"fmt"
	"strconv"
	"strings"
)

// =============================================================================
// SOURCE TYPES
// =============================================================================

// RawValue is a single cell from a source record.
// It holds a string, a float64 or nil. Readers never produce other types.
type RawValue = any

// SourceColumn identifies one column of the source input.
type SourceColumn struct {
	// Index is the zero-based position of the column in the input.
	// It is stable for a given input.
	Index int `json:"index"`

	// Name is the column header as it appears in the input.
	Name string `json:"name"`
}

// Record is one source row keyed by original column name.
// The engine never mutates a Record.
type Record map[string]RawValue

// Columns builds SourceColumns from an ordered header list.
func Columns(names []string) []SourceColumn {
	columns := make([]SourceColumn, len(names))
	for i, name := range names {
		columns[i] = SourceColumn{Index: i, Name: name}
	}
	return columns
}

// =============================================================================
// OUTPUT TYPES
// =============================================================================

// TransformedRecord is one output row keyed by the target field's path,
// or its name when the field has no path.
type TransformedRecord map[string]any

// =============================================================================
// VALUE HELPERS
// =============================================================================

// Stringify returns the string form of a raw value.
// nil becomes an empty string; floats are rendered without trailing zeros.
func Stringify(v any) string {
	switch value := v.(type) {
	case nil:
		return ""
	case string:
		return value
	case float64:
		return strconv.FormatFloat(value, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(value), 'f', -1, 32)
	case int:
		return strconv.Itoa(value)
	case int64:
		return strconv.FormatInt(value, 10)
	case bool:
		return strconv.FormatBool(value)
	default:
		return fmt.Sprint(value)
	}
}

// IsEmpty reports whether a value counts as missing: nil, or a string that
// is empty after trimming whitespace.
func IsEmpty(v any) bool {
	switch value := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(value) == ""
	default:
		return false
	}
}
