// =============================================================================
// Incident Field Mapper - Schema Model: Field Definitions
// =============================================================================
//
// This file defines the target field model. A TargetField is one entry of
// the canonical schema a consumer tool expects; the FieldType discriminant
// decides which transform configuration applies to the field and which
// validation checks run against its values.
//
// SUPPORTED FIELD TYPES:
//   - Text       : Free text (default for unknown types)
//   - Number     : Numeric values
//   - Date       : Calendar dates
//   - DateTime   : Dates with a time component
//   - Coordinate : Latitude/longitude values
//   - Select     : Enumerated values (treated as text by transforms)
//
// =============================================================================

package schema

import (
	"fmt"
	"strings"
	"unicode"
)

// =============================================================================
// FIELD TYPE
// =============================================================================

// FieldType is the declared type of a target field.
type FieldType int

const (
	Text FieldType = iota
	Number
	Date
	DateTime
	Coordinate
	Select
)

var fieldTypeNames = map[FieldType]string{
	Text:       "text",
	Number:     "number",
	Date:       "date",
	DateTime:   "datetime",
	Coordinate: "coordinate",
	Select:     "select",
}

// String returns the lower-case name of the type.
func (t FieldType) String() string {
	if name, ok := fieldTypeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("FieldType(%d)", int(t))
}

// MarshalText renders the type by name in JSON and YAML output.
func (t FieldType) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// UnmarshalText parses a type name; see ParseFieldType.
func (t *FieldType) UnmarshalText(b []byte) error {
	*t = ParseFieldType(string(b))
	return nil
}

// IsDate reports whether the type carries date semantics.
func (t FieldType) IsDate() bool {
	return t == Date || t == DateTime
}

// IsNumeric reports whether values of this type must parse as numbers.
func (t FieldType) IsNumeric() bool {
	return t == Number || t == Coordinate
}

// ParseFieldType normalizes a schema document's type string.
// Unknown or missing types fall back to Text.
func ParseFieldType(value string) FieldType {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "number", "numeric", "integer", "int", "float", "decimal":
		return Number
	case "date":
		return Date
	case "datetime", "date-time", "date_time", "timestamp":
		return DateTime
	case "coordinate", "coordinates", "geo", "latlng":
		return Coordinate
	case "select", "enum", "choice":
		return Select
	default:
		return Text
	}
}

// =============================================================================
// TARGET FIELD
// =============================================================================

// TargetField is one field of the canonical target schema.
type TargetField struct {
	// ID is stable and unique within a catalog.
	ID string `json:"id" yaml:"id"`

	// Name is the human-readable field name.
	Name string `json:"name" yaml:"name"`

	// Path is the dotted canonical address (e.g. "location.address").
	// Only fields loaded from categorized documents carry a path.
	Path string `json:"path,omitempty" yaml:"path,omitempty"`

	// Type decides the transform and validation rules for the field.
	Type FieldType `json:"type" yaml:"type"`

	// Required is true when the field is required for the active tool.
	Required bool `json:"required" yaml:"required"`

	// Category groups related fields (timestamp, location, incident...).
	Category string `json:"category" yaml:"category"`

	// Aliases are alternate source column names, in declaration order.
	Aliases []string `json:"aliases,omitempty" yaml:"aliases,omitempty"`

	// Description is free text carried through from the schema document.
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
}

// Key returns the output key for transformed values: the path when the
// field has one, its name otherwise.
func (f TargetField) Key() string {
	if f.Path != "" {
		return f.Path
	}
	return f.Name
}

// clone returns a copy that does not share the alias slice.
func (f TargetField) clone() TargetField {
	if f.Aliases != nil {
		f.Aliases = append([]string(nil), f.Aliases...)
	}
	return f
}

// =============================================================================
// CATEGORY INFERENCE
// =============================================================================

// CategoryOther is assigned when no keyword set matches.
const CategoryOther = "other"

// categoryRule maps a category to the keywords that select it.
type categoryRule struct {
	category string
	keywords []string
}

// categoryRules are evaluated in order; the first match wins.
// The order is significant for deterministic output.
var categoryRules = []categoryRule{
	{category: "timestamp", keywords: []string{"time", "date", "timestamp"}},
	{category: "location", keywords: []string{"address", "location", "latitude", "longitude", "geo", "coordinates"}},
	{category: "nfirs", keywords: []string{"nfirs", "fdid"}},
	{category: "incident", keywords: []string{"incident", "call", "emergency", "response", "dispatch", "unit", "type"}},
}

// InferCategory classifies a field name by keyword substring match.
// It is used only when a schema document omits the category.
func InferCategory(name string) string {
	lower := strings.ToLower(name)
	for _, rule := range categoryRules {
		for _, kw := range rule.keywords {
			if strings.Contains(lower, kw) {
				return rule.category
			}
		}
	}
	return CategoryOther
}

// deriveID lower-cases a field name and replaces runs of whitespace and
// punctuation with "_". Leading and trailing runs are dropped.
func deriveID(name string) string {
	words := strings.FieldsFunc(strings.ToLower(name), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	return strings.Join(words, "_")
}
