package xmlwriter

import (
	"encoding/xml"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ginjaninja78/incident-field-mapper/internal/schema"
	"github.com/ginjaninja78/incident-field-mapper/internal/types"
)

func testCatalog(t *testing.T) *schema.Catalog {
	t.Helper()
	c, err := schema.NewCatalog("nerris", []schema.TargetField{
		{ID: "unit", Name: "Unit", Category: "response"},
		{ID: "latitude", Name: "Latitude", Type: schema.Coordinate, Required: true, Category: "location"},
		{ID: "units_count", Name: "Units Count", Type: schema.Number, Category: "response"},
	})
	require.NoError(t, err)
	return c
}

func TestGenerate(t *testing.T) {
	records := []types.TransformedRecord{
		{"Unit": "E12 & L4", "Latitude": "40.712800", "Units Count": float64(2)},
		{"Latitude": "40.730600"},
	}
	header := Header{
		Source:      "calls.csv",
		Tool:        "nerris",
		GeneratedAt: time.Date(2025, 3, 22, 14, 30, 0, 0, time.UTC),
		Problems:    1,
	}

	data, err := Generate(records, testCatalog(t), header)
	require.NoError(t, err)

	want := xml.Header +
		`<IncidentExport source="calls.csv" tool="nerris" generatedAt="2025-03-22T14:30:00Z" records="2" problems="1">
  <Record n="1">
    <latitude>40.712800</latitude>
    <unit>E12 &amp; L4</unit>
    <units_count>2</units_count>
  </Record>
  <Record n="2">
    <latitude>40.730600</latitude>
  </Record>
</IncidentExport>
`
	assert.Equal(t, want, string(data))

	// The output must be well-formed.
	var doc struct {
		Records []struct {
			N string `xml:"n,attr"`
		} `xml:"Record"`
	}
	require.NoError(t, xml.Unmarshal(data, &doc))
	assert.Len(t, doc.Records, 2)
}

func TestGenerateWithOptions(t *testing.T) {
	options := DefaultGenerateOptions()
	options.IncludeXMLDeclaration = false
	options.IncludeEmpty = true
	options.RootElement = "Calls"
	options.RootAttributes = map[string]string{"xmlns": "urn:calls", "version": "2"}

	data, err := GenerateWithOptions([]types.TransformedRecord{{"Unit": "E1"}}, testCatalog(t), Header{}, options)
	require.NoError(t, err)

	want := `<Calls source="" tool="" records="1" problems="0" version="2" xmlns="urn:calls">
  <Record n="1">
    <latitude/>
    <unit>E1</unit>
    <units_count/>
  </Record>
</Calls>
`
	assert.Equal(t, want, string(data))
}

func TestGenerateWithOptions_Errors(t *testing.T) {
	options := DefaultGenerateOptions()
	options.RecordElement = "1record"
	_, err := GenerateWithOptions(nil, testCatalog(t), Header{}, options)
	assert.Error(t, err)

	_, err = Generate(nil, nil, Header{})
	assert.Error(t, err)
}

func TestElementName(t *testing.T) {
	tests := []struct {
		id   string
		want string
	}{
		{"latitude", "latitude"},
		{"call_received_time", "call_received_time"},
		{"unit id", "unit_id"},
		{"911_call", "_911_call"},
		{"a/b", "a_b"},
		{"", "_"},
	}
	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			assert.Equal(t, tt.want, ElementName(tt.id))
		})
	}
}

func TestGenerateXSD(t *testing.T) {
	data, err := GenerateXSD(testCatalog(t))
	require.NoError(t, err)

	xsd := string(data)
	assert.Contains(t, xsd, `<xs:element name="IncidentExport">`)
	assert.Contains(t, xsd, `<xs:element name="latitude" type="xs:string" minOccurs="1"/>`)
	assert.Contains(t, xsd, `<xs:element name="units_count" type="xs:decimal" minOccurs="0"/>`)
	assert.Contains(t, xsd, `<xs:attribute name="n" type="xs:positiveInteger" use="required"/>`)

	var parsed struct{}
	assert.NoError(t, xml.Unmarshal(data, &parsed))
}
