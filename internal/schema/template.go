// =============================================================================
// Incident Field Mapper - XLSX Schema Templates
// =============================================================================
//
// Some agencies maintain their target schema as a spreadsheet instead of a
// JSON document. This module reads such a template and turns it into the
// flat schema shape, which then goes through the same normalization as any
// other document.
//
// TEMPLATE STRUCTURE (first sheet, first row is the header):
//
//   | Name            | Type       | Category | Required | Aliases          | Description      |
//   |-----------------|------------|----------|----------|------------------|------------------|
//   | Incident Number | text       | incident | yes      | inc_no, cad_num  | CAD event number |
//   | Latitude        | coordinate |          | required | lat; gps_lat     |                  |
//   | Narrative       | text       | other    | no       |                  | Free text        |
//
// Header lookup is case-insensitive and column order does not matter. Only
// the Name column is mandatory; Required defaults to optional and an empty
// Category is inferred from the name.
//
// =============================================================================

package schema

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"
)

// =============================================================================
// TEMPLATE COLUMN CONFIGURATION
// =============================================================================

// templateColumns holds the resolved column positions; -1 means absent.
type templateColumns struct {
	name        int
	fieldType   int
	category    int
	required    int
	aliases     int
	description int
}

// headerAliases lists the accepted header spellings for each column.
var headerAliases = map[string][]string{
	"name":        {"name", "field", "field name", "target field"},
	"type":        {"type", "data type", "field type"},
	"category":    {"category", "group"},
	"required":    {"required", "required/optional", "requirement"},
	"aliases":     {"aliases", "alias", "alternate names"},
	"description": {"description", "notes"},
}

// resolveColumns finds each known column in the header row.
func resolveColumns(header []string) (templateColumns, error) {
	find := func(key string) int {
		for i, cell := range header {
			cell = strings.ToLower(strings.TrimSpace(cell))
			for _, alias := range headerAliases[key] {
				if cell == alias {
					return i
				}
			}
		}
		return -1
	}

	cols := templateColumns{
		name:        find("name"),
		fieldType:   find("type"),
		category:    find("category"),
		required:    find("required"),
		aliases:     find("aliases"),
		description: find("description"),
	}
	if cols.name < 0 {
		return cols, fmt.Errorf("header row has no Name column")
	}
	return cols, nil
}

// =============================================================================
// PARSER FUNCTIONS
// =============================================================================

// ParseTemplate reads an XLSX schema template from disk into a catalog.
func ParseTemplate(templatePath, toolID string) (*Catalog, error) {
	f, err := excelize.OpenFile(templatePath)
	if err != nil {
		return nil, schemaErrorf(templatePath, err, "failed to open template file")
	}
	defer f.Close()

	doc, err := templateDocument(f)
	if err != nil {
		return nil, schemaErrorf(templatePath, err, "invalid template")
	}
	return buildCatalog(doc, toolID, templatePath)
}

// loadTemplate parses template bytes fetched by a Loader.
func loadTemplate(data []byte, toolID, source string) (*Catalog, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, schemaErrorf(source, err, "failed to open template")
	}
	defer f.Close()

	doc, err := templateDocument(f)
	if err != nil {
		return nil, schemaErrorf(source, err, "invalid template")
	}
	return buildCatalog(doc, toolID, source)
}

// templateDocument converts the first sheet into a flat-shape document.
func templateDocument(f *excelize.File) (*document, error) {
	sheetName := f.GetSheetName(0)
	if sheetName == "" {
		return nil, fmt.Errorf("template file has no sheets")
	}

	rows, err := f.GetRows(sheetName)
	if err != nil {
		return nil, fmt.Errorf("failed to read rows: %w", err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("sheet %q is empty", sheetName)
	}

	cols, err := resolveColumns(rows[0])
	if err != nil {
		return nil, err
	}

	doc := &document{
		RequiredFields: []flatField{},
		OptionalFields: []flatField{},
	}
	for _, row := range rows[1:] {
		if isRowEmpty(row) {
			continue
		}

		getCell := func(index int) string {
			if index >= 0 && index < len(row) {
				return strings.TrimSpace(row[index])
			}
			return ""
		}

		entry := flatField{
			Name:        getCell(cols.name),
			Type:        getCell(cols.fieldType),
			Category:    getCell(cols.category),
			Description: getCell(cols.description),
			Aliases:     splitAliases(getCell(cols.aliases)),
		}
		// Rows without a name are notes or separators.
		if entry.Name == "" {
			continue
		}

		if isRequired(getCell(cols.required)) {
			doc.RequiredFields = append(doc.RequiredFields, entry)
		} else {
			doc.OptionalFields = append(doc.OptionalFields, entry)
		}
	}
	return doc, nil
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

// isRowEmpty checks if a row contains only empty cells.
func isRowEmpty(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

// isRequired normalizes the Required column. Anything unrecognized is optional.
func isRequired(value string) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "required", "req", "r", "yes", "y", "true", "1", "mandatory", "x":
		return true
	default:
		return false
	}
}

// splitAliases splits a comma- or semicolon-separated alias cell.
func splitAliases(cell string) []string {
	parts := strings.FieldsFunc(cell, func(r rune) bool {
		return r == ',' || r == ';' || r == '\n'
	})
	return cleanAliases(parts)
}
