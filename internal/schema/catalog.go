// =============================================================================
// Incident Field Mapper - Schema Model: Field Catalog
// =============================================================================
//
// This module normalizes a decoded schema document into a FieldCatalog.
// Two document shapes are accepted:
//
//   FLAT SHAPE:
//     { "requiredFields": [ { "name": "Incident Number", "type": "text" } ],
//       "optionalFields": [ { "name": "Narrative", "category": "other" } ] }
//
//   CATEGORIZED SHAPE:
//     { "coreMappings": {
//         "location": { "latitude": { "name": "Latitude", "type": "coordinate",
//                                     "aliases": ["lat", "gps_lat"] } } },
//       "toolRequirements": { "nfirs": [ "location.latitude" ] } }
//
// Both shapes produce the same catalog: fields sorted by category, then
// required before optional, then name. The catalog is immutable once built.
//
// =============================================================================

package schema

import (
	"bytes"
	"cmp"
	"encoding/json"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"
)

// =============================================================================
// DOCUMENT STRUCTURE
// =============================================================================

// document is the decoded form of either schema shape.
type document struct {
	RequiredFields   []flatField                     `json:"requiredFields" yaml:"requiredFields"`
	OptionalFields   []flatField                     `json:"optionalFields" yaml:"optionalFields"`
	CoreMappings     map[string]map[string]coreField `json:"coreMappings" yaml:"coreMappings"`
	ToolRequirements map[string][]string             `json:"toolRequirements" yaml:"toolRequirements"`
}

// flatField is one entry of requiredFields/optionalFields.
type flatField struct {
	Name        string   `json:"name" yaml:"name"`
	Type        string   `json:"type" yaml:"type"`
	Category    string   `json:"category" yaml:"category"`
	Description string   `json:"description" yaml:"description"`
	Aliases     []string `json:"aliases" yaml:"aliases"`
}

// coreField is one field of a coreMappings category.
type coreField struct {
	Name        string   `json:"name" yaml:"name"`
	Type        string   `json:"type" yaml:"type"`
	Aliases     []string `json:"aliases" yaml:"aliases"`
	Description string   `json:"description" yaml:"description"`
}

func (d *document) isCategorized() bool {
	return d.CoreMappings != nil
}

func (d *document) isFlat() bool {
	return d.RequiredFields != nil || d.OptionalFields != nil
}

// =============================================================================
// CATALOG
// =============================================================================

// Catalog is the ordered, immutable set of target fields for one schema load.
type Catalog struct {
	fields      []TargetField
	byID        map[string]int
	toolID      string
	requiredIDs []string
}

// NewCatalog validates and sorts fields into a catalog.
// Field IDs must be non-empty and unique.
func NewCatalog(toolID string, fields []TargetField) (*Catalog, error) {
	sorted := make([]TargetField, len(fields))
	for i, f := range fields {
		sorted[i] = f.clone()
	}
	slices.SortStableFunc(sorted, compareFields)

	c := &Catalog{
		fields: sorted,
		byID:   make(map[string]int, len(sorted)),
		toolID: toolID,
	}
	for i, f := range sorted {
		if f.ID == "" {
			return nil, schemaErrorf("", nil, "field %q has an empty id", f.Name)
		}
		if _, dup := c.byID[f.ID]; dup {
			return nil, schemaErrorf("", nil, "duplicate field id %q", f.ID)
		}
		c.byID[f.ID] = i
		if f.Required {
			c.requiredIDs = append(c.requiredIDs, f.ID)
		}
	}
	return c, nil
}

// compareFields orders by category, required first, then name.
// The ID breaks remaining ties so map iteration order never leaks out.
func compareFields(a, b TargetField) int {
	if c := cmp.Compare(a.Category, b.Category); c != 0 {
		return c
	}
	if a.Required != b.Required {
		if a.Required {
			return -1
		}
		return 1
	}
	if c := cmp.Compare(strings.ToLower(a.Name), strings.ToLower(b.Name)); c != 0 {
		return c
	}
	if c := cmp.Compare(a.Name, b.Name); c != 0 {
		return c
	}
	return cmp.Compare(a.ID, b.ID)
}

// Fields returns a copy of the catalog's fields in catalog order.
func (c *Catalog) Fields() []TargetField {
	out := make([]TargetField, len(c.fields))
	for i, f := range c.fields {
		out[i] = f.clone()
	}
	return out
}

// Field looks up a field by ID.
func (c *Catalog) Field(id string) (TargetField, bool) {
	i, ok := c.byID[id]
	if !ok {
		return TargetField{}, false
	}
	return c.fields[i].clone(), true
}

// Len returns the number of fields.
func (c *Catalog) Len() int {
	return len(c.fields)
}

// ToolID returns the target tool the catalog was loaded for.
func (c *Catalog) ToolID() string {
	return c.toolID
}

// RequiredIDs returns the IDs of fields required for the active tool,
// in catalog order.
func (c *Catalog) RequiredIDs() []string {
	return append([]string(nil), c.requiredIDs...)
}

// RequiredFields returns the fields required for the active tool.
func (c *Catalog) RequiredFields() []TargetField {
	out := make([]TargetField, 0, len(c.requiredIDs))
	for _, id := range c.requiredIDs {
		out = append(out, c.fields[c.byID[id]].clone())
	}
	return out
}

// =============================================================================
// LOADING
// =============================================================================

// LoadCatalog decodes a schema document and normalizes it into a Catalog.
//
// PARAMETERS:
//   - doc: The raw document. JSON when it starts with '{', YAML otherwise.
//   - toolID: The active target tool. Only used by the categorized shape,
//     where it selects the toolRequirements list.
//
// RETURNS:
//   - The catalog, or a *SchemaError when the document is undecodable or is
//     neither supported shape.
func LoadCatalog(doc []byte, toolID string) (*Catalog, error) {
	return loadCatalog(doc, toolID, "")
}

func loadCatalog(doc []byte, toolID, source string) (*Catalog, error) {
	decoded, err := decodeDocument(doc)
	if err != nil {
		return nil, schemaErrorf(source, err, "cannot decode document")
	}
	return buildCatalog(decoded, toolID, source)
}

// decodeDocument picks a decoder by the first non-space byte.
func decodeDocument(doc []byte) (*document, error) {
	var decoded document
	trimmed := bytes.TrimSpace(doc)
	if len(trimmed) > 0 && (trimmed[0] == '{' || trimmed[0] == '[') {
		if err := json.Unmarshal(trimmed, &decoded); err != nil {
			return nil, err
		}
		return &decoded, nil
	}
	if err := yaml.Unmarshal(trimmed, &decoded); err != nil {
		return nil, err
	}
	return &decoded, nil
}

// buildCatalog dispatches on the document shape.
func buildCatalog(doc *document, toolID, source string) (*Catalog, error) {
	var (
		fields []TargetField
		err    error
	)
	switch {
	case doc.isCategorized():
		fields, err = categorizedFields(doc, toolID, source)
	case doc.isFlat():
		fields, err = flatFields(doc, source)
	default:
		return nil, schemaErrorf(source, nil, "document has neither requiredFields/optionalFields nor coreMappings")
	}
	if err != nil {
		return nil, err
	}

	catalog, err := NewCatalog(toolID, fields)
	if err != nil {
		if se, ok := err.(*SchemaError); ok {
			se.Source = source
		}
		return nil, err
	}
	return catalog, nil
}

// flatFields normalizes the requiredFields/optionalFields shape.
func flatFields(doc *document, source string) ([]TargetField, error) {
	fields := make([]TargetField, 0, len(doc.RequiredFields)+len(doc.OptionalFields))

	add := func(entries []flatField, required bool, list string) error {
		for i, entry := range entries {
			name := strings.TrimSpace(entry.Name)
			if name == "" {
				return schemaErrorf(source, nil, "%s[%d] has no name", list, i)
			}
			category := strings.TrimSpace(entry.Category)
			if category == "" {
				category = InferCategory(name)
			}
			fields = append(fields, TargetField{
				ID:          deriveID(name),
				Name:        name,
				Type:        ParseFieldType(entry.Type),
				Required:    required,
				Category:    category,
				Aliases:     cleanAliases(entry.Aliases),
				Description: entry.Description,
			})
		}
		return nil
	}

	if err := add(doc.RequiredFields, true, "requiredFields"); err != nil {
		return nil, err
	}
	if err := add(doc.OptionalFields, false, "optionalFields"); err != nil {
		return nil, err
	}
	return fields, nil
}

// categorizedFields normalizes the coreMappings/toolRequirements shape.
// A field is required when "category.fieldName" is listed for the tool.
func categorizedFields(doc *document, toolID, source string) ([]TargetField, error) {
	required := make(map[string]bool)
	for _, path := range doc.ToolRequirements[toolID] {
		required[strings.TrimSpace(path)] = true
	}

	var fields []TargetField
	for category, entries := range doc.CoreMappings {
		for key, entry := range entries {
			if strings.TrimSpace(key) == "" {
				return nil, schemaErrorf(source, nil, "coreMappings.%s has an entry with an empty key", category)
			}
			name := strings.TrimSpace(entry.Name)
			if name == "" {
				name = key
			}
			path := category + "." + key
			fields = append(fields, TargetField{
				ID:          category + "_" + key,
				Name:        name,
				Path:        path,
				Type:        ParseFieldType(entry.Type),
				Required:    required[path],
				Category:    category,
				Aliases:     cleanAliases(entry.Aliases),
				Description: entry.Description,
			})
		}
	}
	return fields, nil
}

// cleanAliases trims aliases and drops empty ones, keeping order.
func cleanAliases(aliases []string) []string {
	var out []string
	for _, a := range aliases {
		if a = strings.TrimSpace(a); a != "" {
			out = append(out, a)
		}
	}
	return out
}
