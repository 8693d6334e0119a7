// =============================================================================
// Incident Field Mapper - XML Writer Module
// =============================================================================
//
// This module renders transformed records as XML, for target systems that
// import XML rather than JSON, and derives a matching XSD from a catalog.
//
// XML STRUCTURE:
//
//   <IncidentExport source="calls.csv" tool="nerris" records="2" problems="0">
//     <Record n="1">                     <!-- 1-based record index -->
//       <latitude>40.712800</latitude>   <!-- One element per field, named -->
//       <unit>E12</unit>                 <!-- by id, in catalog order -->
//     </Record>
//     <Record n="2">
//       <latitude>40.730600</latitude>
//     </Record>
//   </IncidentExport>
//
// CUSTOMIZATION:
//   - Change element names via GenerateOptions
//   - Add root attributes (namespaces) via GenerateOptions.RootAttributes
//
// =============================================================================

package xmlwriter

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/ginjaninja78/incident-field-mapper/internal/schema"
	"github.com/ginjaninja78/incident-field-mapper/internal/types"
)

// =============================================================================
// XML GENERATION OPTIONS
// =============================================================================

// GenerateOptions contains options for XML generation.
type GenerateOptions struct {
	// Indent is the string used for indentation.
	// Default: "  " (two spaces)
	Indent string

	// IncludeXMLDeclaration determines whether to include the XML declaration.
	// Default: true
	IncludeXMLDeclaration bool

	// RootElement is the name of the document element.
	// Default: "IncidentExport"
	RootElement string

	// RecordElement is the name of each record element.
	// Default: "Record"
	RecordElement string

	// IndexAttribute is the attribute carrying the 1-based record index.
	// Default: "n"
	IndexAttribute string

	// IncludeEmpty writes an empty element for catalog fields a record has
	// no value for. By default they are left out.
	IncludeEmpty bool

	// RootAttributes are additional attributes for the root element, written
	// in name order.
	// Example: {"xmlns": "http://example.com/incidents"}
	RootAttributes map[string]string
}

// DefaultGenerateOptions returns the default generation options.
func DefaultGenerateOptions() GenerateOptions {
	return GenerateOptions{
		Indent:                "  ",
		IncludeXMLDeclaration: true,
		RootElement:           "IncidentExport",
		RecordElement:         "Record",
		IndexAttribute:        "n",
		RootAttributes:        make(map[string]string),
	}
}

// Header describes the export as a whole. It becomes the root attributes.
type Header struct {
	Source      string
	Tool        string
	GeneratedAt time.Time
	Problems    int
}

// =============================================================================
// XML GENERATION FUNCTIONS
// =============================================================================

// Generate renders records as an XML document with the default options.
//
// PARAMETERS:
//   - records: The transformed records, keyed by field key.
//   - catalog: The target catalog. It fixes the element order.
//   - header: Values for the root attributes.
//
// RETURNS:
//   - The XML document as a byte slice.
//   - An error if generation fails.
func Generate(records []types.TransformedRecord, catalog *schema.Catalog, header Header) ([]byte, error) {
	return GenerateWithOptions(records, catalog, header, DefaultGenerateOptions())
}

// GenerateWithOptions renders records as an XML document.
//
// GENERATION PROCESS:
//  1. Write the declaration and the root element with header attributes
//  2. For each record, write a record element with its index attribute
//  3. Inside it, write one element per catalog field that has a value
//  4. Close the root element
func GenerateWithOptions(records []types.TransformedRecord, catalog *schema.Catalog, header Header, options GenerateOptions) ([]byte, error) {
	if catalog == nil {
		return nil, fmt.Errorf("no catalog to order fields by")
	}
	root, err := checkName(options.RootElement)
	if err != nil {
		return nil, err
	}
	recordName, err := checkName(options.RecordElement)
	if err != nil {
		return nil, err
	}

	fields := catalog.Fields()
	names := make([]string, len(fields))
	for i, f := range fields {
		names[i] = ElementName(f.ID)
	}

	var buffer bytes.Buffer
	if options.IncludeXMLDeclaration {
		buffer.WriteString(xml.Header)
	}

	// Write the root element opening tag.
	buffer.WriteString("<" + root)
	writeAttr(&buffer, "source", header.Source)
	writeAttr(&buffer, "tool", header.Tool)
	if !header.GeneratedAt.IsZero() {
		writeAttr(&buffer, "generatedAt", header.GeneratedAt.UTC().Format(time.RFC3339))
	}
	writeAttr(&buffer, "records", strconv.Itoa(len(records)))
	writeAttr(&buffer, "problems", strconv.Itoa(header.Problems))
	attrNames := make([]string, 0, len(options.RootAttributes))
	for name := range options.RootAttributes {
		attrNames = append(attrNames, name)
	}
	slices.Sort(attrNames)
	for _, name := range attrNames {
		writeAttr(&buffer, name, options.RootAttributes[name])
	}
	buffer.WriteString(">\n")

	// Write one element per record.
	for i, record := range records {
		indent(&buffer, options.Indent, 1)
		buffer.WriteString("<" + recordName)
		writeAttr(&buffer, options.IndexAttribute, strconv.Itoa(i+1))
		buffer.WriteString(">\n")

		for j, field := range fields {
			value, ok := record[field.Key()]
			if !ok && !options.IncludeEmpty {
				continue
			}
			writeElement(&buffer, names[j], types.Stringify(value), options.Indent, 2)
		}

		indent(&buffer, options.Indent, 1)
		buffer.WriteString("</" + recordName + ">\n")
	}

	// Write the root element closing tag.
	buffer.WriteString("</" + root + ">\n")
	return buffer.Bytes(), nil
}

// writeElement writes a simple element. An empty value becomes a
// self-closing tag.
func writeElement(buffer *bytes.Buffer, name, value, indentStr string, level int) {
	indent(buffer, indentStr, level)
	if value == "" {
		buffer.WriteString("<" + name + "/>\n")
		return
	}
	buffer.WriteString("<" + name + ">")
	xml.EscapeText(buffer, []byte(value))
	buffer.WriteString("</" + name + ">\n")
}

// writeAttr writes a single attribute with an escaped value.
func writeAttr(buffer *bytes.Buffer, name, value string) {
	buffer.WriteString(" " + name + `="`)
	xml.EscapeText(buffer, []byte(value))
	buffer.WriteString(`"`)
}

func indent(buffer *bytes.Buffer, indentStr string, level int) {
	for range level {
		buffer.WriteString(indentStr)
	}
}

// =============================================================================
// ELEMENT NAMES
// =============================================================================

// ElementName turns a field id into a valid XML element name. Characters
// that are not letters, digits, '_', '-' or '.' become '_', and a name that
// would not start with a letter or '_' gets a leading '_'.
func ElementName(id string) string {
	name := strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' || r == '-' || r == '.' {
			return r
		}
		return '_'
	}, id)

	first, _ := utf8.DecodeRuneInString(name)
	if name == "" || !(unicode.IsLetter(first) || first == '_') {
		name = "_" + name
	}
	return name
}

// checkName rejects element names from options that ElementName would have
// to rewrite.
func checkName(name string) (string, error) {
	if name == "" || ElementName(name) != name {
		return "", fmt.Errorf("invalid XML element name %q", name)
	}
	return name, nil
}

// =============================================================================
// XSD GENERATION
// =============================================================================

// GenerateXSD creates an XSD describing the documents Generate writes for
// a catalog.
//
// PARAMETERS:
//   - catalog: The target catalog.
//
// RETURNS:
//   - The XSD document as a byte slice.
//   - An error if generation fails.
//
// Required fields get minOccurs="1". Values that failed transformation are
// kept as they were read, so only Number fields are typed more narrowly
// than xs:string.
func GenerateXSD(catalog *schema.Catalog) ([]byte, error) {
	if catalog == nil {
		return nil, fmt.Errorf("no catalog to describe")
	}
	options := DefaultGenerateOptions()
	var buffer bytes.Buffer

	// Write XSD header.
	buffer.WriteString(`<?xml version="1.0" encoding="UTF-8"?>
<xs:schema xmlns:xs="http://www.w3.org/2001/XMLSchema">
`)

	// Write root element definition.
	buffer.WriteString(fmt.Sprintf(`  <xs:element name="%s">
    <xs:complexType>
      <xs:sequence>
        <xs:element ref="%s" minOccurs="0" maxOccurs="unbounded"/>
      </xs:sequence>
      <xs:attribute name="source" type="xs:string"/>
      <xs:attribute name="tool" type="xs:string"/>
      <xs:attribute name="generatedAt" type="xs:dateTime"/>
      <xs:attribute name="records" type="xs:nonNegativeInteger"/>
      <xs:attribute name="problems" type="xs:nonNegativeInteger"/>
    </xs:complexType>
  </xs:element>

`, options.RootElement, options.RecordElement))

	// Write record element definition.
	buffer.WriteString(fmt.Sprintf(`  <xs:element name="%s">
    <xs:complexType>
      <xs:sequence>
`, options.RecordElement))

	for _, field := range catalog.Fields() {
		writeXSDElement(&buffer, field, 4)
	}

	buffer.WriteString(fmt.Sprintf(`      </xs:sequence>
      <xs:attribute name="%s" type="xs:positiveInteger" use="required"/>
    </xs:complexType>
  </xs:element>

</xs:schema>
`, options.IndexAttribute))

	return buffer.Bytes(), nil
}

// writeXSDElement writes an XSD element definition.
func writeXSDElement(buffer *bytes.Buffer, field schema.TargetField, indentLevel int) {
	minOccurs := "0"
	if field.Required {
		minOccurs = "1"
	}
	buffer.WriteString(fmt.Sprintf("%s<xs:element name=\"%s\" type=\"%s\" minOccurs=\"%s\"/>\n",
		strings.Repeat("  ", indentLevel), ElementName(field.ID), getXSDType(field.Type), minOccurs))
}

// getXSDType maps field types to XSD types.
func getXSDType(t schema.FieldType) string {
	switch t {
	case schema.Number:
		return "xs:decimal"
	default:
		return "xs:string"
	}
}
