package mapping_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ginjaninja78/incident-field-mapper/internal/mapping"
	"github.com/ginjaninja78/incident-field-mapper/internal/schema"
	"github.com/ginjaninja78/incident-field-mapper/internal/transform"
	"github.com/ginjaninja78/incident-field-mapper/internal/types"
)

func testCatalog(t *testing.T, fields ...schema.TargetField) *schema.Catalog {
	t.Helper()
	catalog, err := schema.NewCatalog("", fields)
	require.NoError(t, err)
	return catalog
}

var (
	lat  = schema.TargetField{ID: "latitude", Name: "Latitude", Type: schema.Coordinate, Required: true, Category: "location"}
	unit = schema.TargetField{ID: "unit", Name: "Unit", Required: true, Category: "incident"}
	note = schema.TargetField{ID: "narrative", Name: "Narrative", Category: "other"}
)

func TestState_SetAndGet(t *testing.T) {
	s := mapping.New(nil)

	require.NoError(t, s.Set("latitude", 3))
	idx, ok := s.Get("latitude")
	assert.True(t, ok)
	assert.Equal(t, 3, idx)

	_, ok = s.Get("unit")
	assert.False(t, ok)
}

func TestState_SetRejectsUsedColumn(t *testing.T) {
	s := mapping.New(nil)
	require.NoError(t, s.Set("latitude", 0))

	err := s.Set("unit", 0)
	assert.ErrorIs(t, err, mapping.ErrSourceInUse)
	_, ok := s.Get("unit")
	assert.False(t, ok)

	// Setting the same binding again is not a conflict.
	assert.NoError(t, s.Set("latitude", 0))
}

func TestState_RebindReleasesColumn(t *testing.T) {
	s := mapping.New(nil)
	require.NoError(t, s.Set("latitude", 0))
	require.NoError(t, s.Set("latitude", 2))

	assert.Equal(t, []int{2}, s.UsedSourceIndices())
	assert.NoError(t, s.Set("unit", 0))
	assert.Equal(t, []int{0, 2}, s.UsedSourceIndices())
}

func TestState_SetValidation(t *testing.T) {
	s := mapping.New(nil)
	assert.ErrorIs(t, s.Set("latitude", -1), mapping.ErrInvalidIndex)
	assert.ErrorIs(t, s.Set("", 0), mapping.ErrUnknownField)

	catalog := testCatalog(t, lat)
	assert.ErrorIs(t, s.SetField(catalog, "nope", 0), mapping.ErrUnknownField)
	assert.NoError(t, s.SetField(catalog, "latitude", 0))
}

func TestState_ClearRemovesConfig(t *testing.T) {
	configs := transform.NewConfigs()
	s := mapping.New(configs)

	require.NoError(t, s.Set("latitude", 0))
	require.NoError(t, configs.Set(lat, transform.CoordinateConfig{Format: transform.FormatDMS}))

	s.Clear("latitude")

	_, ok := s.Get("latitude")
	assert.False(t, ok)
	_, ok = configs.Get("latitude")
	assert.False(t, ok)
	assert.Empty(t, s.UsedSourceIndices())

	// The column is free again.
	assert.NoError(t, s.Set("unit", 0))
}

func TestState_Reset(t *testing.T) {
	s := mapping.New(nil)
	require.NoError(t, s.Set("latitude", 0))
	require.NoError(t, s.Set("unit", 1))
	s.Configs().GetOrCreate(unit)

	s.Reset()
	assert.Equal(t, 0, s.Len())
	assert.Equal(t, 0, s.Configs().Len())
}

func TestState_Completeness(t *testing.T) {
	catalog := testCatalog(t, lat, unit, note)
	s := mapping.New(nil)

	assert.False(t, s.IsComplete(catalog, true))
	assert.Equal(t, 0.0, s.Progress(catalog))

	require.NoError(t, s.Set("latitude", 0))
	assert.Equal(t, 50.0, s.Progress(catalog))
	assert.Equal(t, []string{"unit"}, s.Missing(catalog, true))

	require.NoError(t, s.Set("unit", 1))
	assert.True(t, s.IsComplete(catalog, true))
	assert.False(t, s.IsComplete(catalog, false))
	assert.Equal(t, []string{"narrative"}, s.Missing(catalog, false))
	assert.Equal(t, 100.0, s.Progress(catalog))
}

func TestState_NoRequiredFields(t *testing.T) {
	catalog := testCatalog(t, note)
	s := mapping.New(nil)

	assert.True(t, s.IsComplete(catalog, true))
	assert.Equal(t, 100.0, s.Progress(catalog))
}

func TestState_ApplySuggestions(t *testing.T) {
	s := mapping.New(nil)
	require.NoError(t, s.ApplySuggestions(map[string]int{"unit": 2, "latitude": 0}))
	assert.Equal(t, map[string]int{"unit": 2, "latitude": 0}, s.Entries())

	// "latitude" sorts first and is applied; "unit" then conflicts with
	// the column already held by "narrative".
	s = mapping.New(nil)
	require.NoError(t, s.Set("narrative", 5))
	err := s.ApplySuggestions(map[string]int{"unit": 5, "latitude": 1})
	assert.ErrorIs(t, err, mapping.ErrSourceInUse)
	idx, ok := s.Get("latitude")
	assert.True(t, ok)
	assert.Equal(t, 1, idx)
}

func TestState_Export(t *testing.T) {
	addr := schema.TargetField{ID: "location_address", Name: "Address", Path: "location.address", Category: "location"}
	catalog := testCatalog(t, lat, unit, note, addr)
	columns := types.Columns([]string{"GPS_Lat", "Units", "Street"})

	s := mapping.New(nil)
	require.NoError(t, s.Set("latitude", 0))
	require.NoError(t, s.Set("unit", 1))
	require.NoError(t, s.Set("location_address", 2))
	require.NoError(t, s.Set("narrative", 9))
	s.Configs().GetOrCreate(lat)

	entries := s.Export(catalog, columns)
	assert.Equal(t, []mapping.ExportEntry{
		{SourceField: "Units", TargetField: "Unit", Required: true},
		{SourceField: "GPS_Lat", TargetField: "Latitude", Required: true, TransformConfig: transform.CoordinateConfig{Format: "decimal"}},
		{SourceField: "Street", TargetField: "location.address"},
	}, entries)

	data, err := json.Marshal(entries[:2])
	require.NoError(t, err)
	assert.JSONEq(t, `[
		{"sourceField": "Units", "targetField": "Unit", "required": true, "transformConfig": null},
		{"sourceField": "GPS_Lat", "targetField": "Latitude", "required": true, "transformConfig": {"format": "decimal"}}
	]`, string(data))
}
