package schema_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ginjaninja78/incident-field-mapper/internal/schema"
)

const flatDoc = `{
  "requiredFields": [
    {"name": "Latitude", "type": "coordinate"},
    {"name": "Unit"},
    {"name": "Incident Number", "category": "incident"}
  ],
  "optionalFields": [
    {"name": "Call Received Time", "type": "datetime"},
    {"name": "Narrative", "description": "free text"},
    {"name": "Apparatus Type"}
  ]
}`

const categorizedDoc = `
coreMappings:
  location:
    latitude:
      name: Latitude
      type: coordinate
      aliases: [lat, gps_lat]
    address:
      name: Address
  incident:
    number:
      name: Incident Number
      aliases: [inc_no]
    unit:
      name: Unit
toolRequirements:
  nfirs:
    - location.latitude
    - incident.number
  cad:
    - incident.unit
`

func ids(fields []schema.TargetField) []string {
	out := make([]string, len(fields))
	for i, f := range fields {
		out[i] = f.ID
	}
	return out
}

func TestLoadCatalog_FlatShape(t *testing.T) {
	catalog, err := schema.LoadCatalog([]byte(flatDoc), "")
	require.NoError(t, err)

	fields := catalog.Fields()
	assert.Equal(t, []string{
		// incident: required first, then optional
		"incident_number", "unit", "apparatus_type",
		"latitude",
		"narrative",
		"call_received_time",
	}, ids(fields))

	lat, ok := catalog.Field("latitude")
	require.True(t, ok)
	assert.Equal(t, schema.Coordinate, lat.Type)
	assert.Equal(t, "location", lat.Category)
	assert.True(t, lat.Required)
	assert.Equal(t, "Latitude", lat.Key())

	narrative, ok := catalog.Field("narrative")
	require.True(t, ok)
	assert.Equal(t, schema.Text, narrative.Type)
	assert.False(t, narrative.Required)
	assert.Equal(t, "free text", narrative.Description)

	assert.Equal(t, []string{"incident_number", "unit", "latitude"}, catalog.RequiredIDs())
}

func TestLoadCatalog_DerivedIDs(t *testing.T) {
	doc := `{
  "requiredFields": [{"name": "Lat (decimal)"}, {"name": "  Zip/Postal-Code "}],
  "optionalFields": [{"name": "Unit__ID"}, {"name": "Call #"}]
}`
	catalog, err := schema.LoadCatalog([]byte(doc), "")
	require.NoError(t, err)

	assert.ElementsMatch(t, []string{"lat_decimal", "zip_postal_code", "unit_id", "call"}, ids(catalog.Fields()))
}

func TestLoadCatalog_CategorizedShape(t *testing.T) {
	catalog, err := schema.LoadCatalog([]byte(categorizedDoc), "nfirs")
	require.NoError(t, err)

	assert.Equal(t, "nfirs", catalog.ToolID())
	assert.Equal(t, []string{
		"incident_number", "incident_unit",
		"location_latitude", "location_address",
	}, ids(catalog.Fields()))

	lat, ok := catalog.Field("location_latitude")
	require.True(t, ok)
	assert.Equal(t, "location.latitude", lat.Path)
	assert.Equal(t, "location.latitude", lat.Key())
	assert.Equal(t, []string{"lat", "gps_lat"}, lat.Aliases)
	assert.True(t, lat.Required)

	unit, _ := catalog.Field("incident_unit")
	assert.False(t, unit.Required, "unit is only required for the cad tool")
}

func TestLoadCatalog_RequiredDependsOnTool(t *testing.T) {
	catalog, err := schema.LoadCatalog([]byte(categorizedDoc), "cad")
	require.NoError(t, err)
	assert.Equal(t, []string{"incident_unit"}, catalog.RequiredIDs())

	none, err := schema.LoadCatalog([]byte(categorizedDoc), "unknown-tool")
	require.NoError(t, err)
	assert.Empty(t, none.RequiredIDs())
}

func TestLoadCatalog_SortedAndUnique(t *testing.T) {
	for _, tc := range []struct {
		name string
		doc  string
		tool string
	}{
		{name: "flat", doc: flatDoc},
		{name: "categorized", doc: categorizedDoc, tool: "nfirs"},
	} {
		t.Run(tc.name, func(t *testing.T) {
			catalog, err := schema.LoadCatalog([]byte(tc.doc), tc.tool)
			require.NoError(t, err)

			fields := catalog.Fields()
			seen := map[string]bool{}
			for i, f := range fields {
				assert.False(t, seen[f.ID], "duplicate id %s", f.ID)
				seen[f.ID] = true
				if i == 0 {
					continue
				}
				prev := fields[i-1]
				assert.LessOrEqual(t, prev.Category, f.Category)
				if prev.Category == f.Category && prev.Required != f.Required {
					assert.True(t, prev.Required, "required fields must come first")
				}
			}
		})
	}
}

func TestLoadCatalog_Errors(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{name: "empty document", doc: ""},
		{name: "neither shape", doc: `{"fields": []}`},
		{name: "invalid json", doc: `{"requiredFields": [`},
		{name: "json array", doc: `[1, 2, 3]`},
		{name: "entry without a name", doc: `{"requiredFields": [{"type": "text"}]}`},
		{name: "duplicate ids", doc: `{"requiredFields": [{"name": "Unit"}], "optionalFields": [{"name": "unit"}]}`},
		{name: "yaml scalar", doc: "just a string"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			catalog, err := schema.LoadCatalog([]byte(tt.doc), "")
			require.Error(t, err)
			assert.Nil(t, catalog)

			var se *schema.SchemaError
			assert.True(t, errors.As(err, &se), "want *SchemaError, got %T", err)
		})
	}
}

func TestLoadCatalog_FieldsAreCopies(t *testing.T) {
	catalog, err := schema.LoadCatalog([]byte(categorizedDoc), "nfirs")
	require.NoError(t, err)

	fields := catalog.Fields()
	fields[0].Name = "changed"
	for i := range fields {
		if fields[i].Aliases != nil {
			fields[i].Aliases[0] = "changed"
		}
	}

	again := catalog.Fields()
	assert.NotEqual(t, "changed", again[0].Name)
	lat, _ := catalog.Field("location_latitude")
	assert.Equal(t, "lat", lat.Aliases[0])
}

func TestInferCategory(t *testing.T) {
	tests := []struct {
		name string
		want string
	}{
		{"Call Received Time", "timestamp"},
		{"Dispatch Date", "timestamp"},
		{"Street Address", "location"},
		{"Longitude", "location"},
		{"FDID", "nfirs"},
		{"NFIRS Exposure", "nfirs"},
		{"Incident Number", "incident"},
		{"Unit", "incident"},
		{"Apparatus Type", "incident"},
		{"Narrative", "other"},
		// timestamp wins over incident because it is checked first.
		{"Response Time", "timestamp"},
		// location wins over incident.
		{"Incident Location", "location"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, schema.InferCategory(tt.name), tt.name)
	}
}

func TestParseFieldType(t *testing.T) {
	tests := map[string]schema.FieldType{
		"text":       schema.Text,
		"":           schema.Text,
		"weird":      schema.Text,
		"Number":     schema.Number,
		"numeric":    schema.Number,
		"date":       schema.Date,
		"DateTime":   schema.DateTime,
		"timestamp":  schema.DateTime,
		"coordinate": schema.Coordinate,
		"select":     schema.Select,
	}
	for input, want := range tests {
		assert.Equal(t, want, schema.ParseFieldType(input), input)
	}
}
