package transform

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ginjaninja78/incident-field-mapper/internal/schema"
)

var (
	textField  = schema.TargetField{ID: "unit", Name: "Unit", Type: schema.Text}
	numField   = schema.TargetField{ID: "priority", Name: "Priority", Type: schema.Number}
	coordField = schema.TargetField{ID: "latitude", Name: "Latitude", Type: schema.Coordinate}
	dateField  = schema.TargetField{ID: "dispatched", Name: "Dispatched", Type: schema.Date}
	dtField    = schema.TargetField{ID: "received", Name: "Received", Type: schema.DateTime}
)

func TestDefaultConfig(t *testing.T) {
	assert.Equal(t, TextConfig{TextTransform: TextNone}, DefaultConfig(textField))
	assert.Equal(t, TextConfig{TextTransform: TextNone}, DefaultConfig(numField))
	assert.Equal(t, CoordinateConfig{Format: FormatDecimal}, DefaultConfig(coordField))
	assert.Equal(t, DateConfig{SourceFormat: SourceAuto, TargetFormat: TargetISO8601}, DefaultConfig(dateField))
	assert.Equal(t, DateConfig{SourceFormat: SourceAuto, TargetFormat: TargetISO8601}, DefaultConfig(dtField))
}

func TestConfigs_SetChecksKind(t *testing.T) {
	configs := NewConfigs()

	err := configs.Set(coordField, TextConfig{TextTransform: TextUppercase})
	assert.ErrorIs(t, err, ErrConfigKind)

	err = configs.Set(textField, DateConfig{SourceFormat: SourceAuto, TargetFormat: TargetISO8601})
	assert.ErrorIs(t, err, ErrConfigKind)

	require.NoError(t, configs.Set(coordField, CoordinateConfig{Format: FormatDMS}))
	cfg, ok := configs.Get(coordField.ID)
	require.True(t, ok)
	assert.Equal(t, CoordinateConfig{Format: FormatDMS}, cfg)
}

func TestConfigs_SetRejectsInvalidValues(t *testing.T) {
	tests := []struct {
		name  string
		field schema.TargetField
		cfg   Config
	}{
		{"nil config", textField, nil},
		{"unknown text transform", textField, TextConfig{TextTransform: "shout"}},
		{"unknown coordinate format", coordField, CoordinateConfig{Format: "utm"}},
		{"unknown target format", dateField, DateConfig{SourceFormat: SourceAuto, TargetFormat: "YYYY"}},
		{"custom without pattern", dateField, DateConfig{SourceFormat: SourceCustom, TargetFormat: TargetISO8601}},
		{"bad source pattern", dateField, DateConfig{SourceFormat: "QQ/YYYY", TargetFormat: TargetISO8601}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			configs := NewConfigs()
			assert.ErrorIs(t, configs.Set(tt.field, tt.cfg), ErrInvalidConfig)
			assert.Equal(t, 0, configs.Len())
		})
	}
}

func TestConfigs_GetOrCreate(t *testing.T) {
	configs := NewConfigs()

	cfg := configs.GetOrCreate(dtField)
	assert.Equal(t, KindDate, cfg.Kind())
	stored, ok := configs.Get(dtField.ID)
	require.True(t, ok)
	assert.Equal(t, cfg, stored)

	require.NoError(t, configs.Set(dtField, DateConfig{SourceFormat: "DD/MM/YYYY", TargetFormat: TargetEU}))
	assert.Equal(t, DateConfig{SourceFormat: "DD/MM/YYYY", TargetFormat: TargetEU}, configs.GetOrCreate(dtField))

	// A stored config of the wrong kind is replaced by the default.
	retyped := dtField
	retyped.Type = schema.Text
	assert.Equal(t, TextConfig{TextTransform: TextNone}, configs.GetOrCreate(retyped))

	configs.Delete(dtField.ID)
	_, ok = configs.Get(dtField.ID)
	assert.False(t, ok)
}

func TestConfigFromOptions(t *testing.T) {
	tests := []struct {
		name    string
		field   schema.TargetField
		opts    Options
		want    Config
		wantErr error
	}{
		{name: "defaults", field: dateField, opts: Options{}, want: DateConfig{SourceFormat: SourceAuto, TargetFormat: TargetISO8601}},
		{name: "date target", field: dateField, opts: Options{TargetFormat: TargetUS}, want: DateConfig{SourceFormat: SourceAuto, TargetFormat: TargetUS}},
		{name: "custom implied", field: dtField, opts: Options{CustomFormat: "YYYYMMDD"}, want: DateConfig{SourceFormat: SourceCustom, CustomFormat: "YYYYMMDD", TargetFormat: TargetISO8601}},
		{name: "dms", field: coordField, opts: Options{Format: "DMS"}, want: CoordinateConfig{Format: FormatDMS}},
		{name: "capitalize", field: numField, opts: Options{TextTransform: "Capitalize"}, want: TextConfig{TextTransform: TextCapitalize}},
		{name: "date option on text field", field: textField, opts: Options{TargetFormat: TargetUS}, wantErr: ErrConfigKind},
		{name: "format on date field", field: dateField, opts: Options{Format: FormatDMS}, wantErr: ErrConfigKind},
		{name: "text option on coordinate", field: coordField, opts: Options{TextTransform: TextUppercase}, wantErr: ErrConfigKind},
		{name: "bad format", field: coordField, opts: Options{Format: "utm"}, wantErr: ErrInvalidConfig},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ConfigFromOptions(tt.field, tt.opts)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCompilePattern(t *testing.T) {
	tests := map[string]string{
		"DD/MM/YYYY HH:mm":     "02/01/2006 15:04",
		"YYYY-MM-DDTHH:mm:ssZ": "2006-01-02T15:04:05Z",
		"M/D/YY h:mm A":        "1/2/06 3:04 PM",
		"YYYYMMDD":             "20060102",
		"HH:mm:ss.SSS":         "15:04:05.000",
	}
	for pattern, want := range tests {
		got, err := compilePattern(pattern)
		require.NoError(t, err, pattern)
		assert.Equal(t, want, got, pattern)
	}

	for _, bad := range []string{"", "  ", "YYYY-QQ", "YYYY1", "Mon DD"} {
		_, err := compilePattern(bad)
		assert.Error(t, err, bad)
	}
}

func TestParseDateOrder(t *testing.T) {
	order, err := ParseDateOrder(nil)
	require.NoError(t, err)
	assert.Equal(t, DefaultDateOrder, order)

	order, err = ParseDateOrder([]string{"ISO", "unix", "iso"})
	require.NoError(t, err)
	assert.Equal(t, []DateParser{ParserISO, ParserUnix}, order)

	_, err = ParseDateOrder([]string{"native", "julian"})
	assert.Error(t, err)
}

func TestIsDate(t *testing.T) {
	for _, v := range []string{"2025-03-22T14:30:00.000Z", "03/22/2025", "22/03/2025", "2025-03-22", "1742653800", "2025", " 3/22/2025 2:30 pm "} {
		assert.True(t, IsDate(v), v)
	}
	for _, v := range []string{"", "soon", "-2025", "12.5", "13/13/2025", "32/01/2025"} {
		assert.False(t, IsDate(v), v)
	}
}

func TestFormatDMS(t *testing.T) {
	assert.Equal(t, "0° 0' 0.00\"", formatDMS(0))
	assert.Equal(t, "0° 0' 0.00\"", formatDMS(-0.000000001))
	// 1° 1' 59.9999" rounds up into the next minute.
	assert.Equal(t, "1° 2' 0.00\"", formatDMS(1+1.0/60+59.9999/3600))
}
