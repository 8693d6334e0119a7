package transform

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompileActions(t *testing.T) {
	tests := []struct {
		name    string
		actions []Action
		in      string
		want    string
	}{
		{"prepend", []Action{{Type: "prepend_string", Value: "FD-"}}, "001", "FD-001"},
		{"append", []Action{{Type: "append_string", Value: "-A"}}, "E12", "E12-A"},
		{"trim", []Action{{Type: "trim"}}, "  E12 ", "E12"},
		{"trim left", []Action{{Type: "trim_left"}}, "  E12 ", "E12 "},
		{"trim right", []Action{{Type: "trim_right"}}, "  E12 ", "  E12"},
		{"replace", []Action{{Type: "replace", Find: "-", Value: "/"}}, "2025-03-22", "2025/03/22"},
		{"regex replace", []Action{{Type: "regex_replace", Find: `^(\d{4})(\d{2})$`, Value: "$1-$2"}}, "202503", "2025-03"},
		{"substring", []Action{{Type: "substring", Value: "2,5"}}, "ABCDEFGH", "CDE"},
		{"substring clamps", []Action{{Type: "substring", Value: "2,50"}}, "ABCD", "CD"},
		{"substring past end", []Action{{Type: "substring", Value: "9,12"}}, "ABCD", ""},
		{"pad zeros", []Action{{Type: "pad_zeros_to_length", Value: "8"}}, "123", "00000123"},
		{"ensure length truncates", []Action{{Type: "ensure_length", Value: "4"}}, "123456", "1234"},
		{"ensure length pads", []Action{{Type: "ensure_length", Value: "4"}}, "12", "0012"},
		{"format number", []Action{{Type: "format_number", Value: "2"}}, "1234.5", "1234.50"},
		{"format number keeps text", []Action{{Type: "format_number", Value: "2"}}, "n/a", "n/a"},
		{"remove leading zeros", []Action{{Type: "remove_leading_zeros"}}, "000120", "120"},
		{"remove leading zeros keeps one", []Action{{Type: "remove_leading_zeros"}}, "000", "0"},
		{"default when empty", []Action{{Type: "if_empty_use_default", Value: "UNKNOWN"}}, " ", "UNKNOWN"},
		{"default keeps value", []Action{{Type: "if_empty_use_default", Value: "UNKNOWN"}}, "E1", "E1"},
		{"extract digits", []Action{{Type: "extract_digits"}}, "INC-2025-0042", "20250042"},
		{"extract letters", []Action{{Type: "extract_letters"}}, "E-12 Ladder", "ELadder"},
		{"remove special chars", []Action{{Type: "remove_special_chars"}}, "E-12 #4", "E124"},
		{"normalize whitespace", []Action{{Type: "normalize_whitespace"}}, "  123   Main \t St ", "123 Main St"},
		{"case insensitive type", []Action{{Type: " TRIM "}}, " x ", "x"},
		{
			name: "chain",
			actions: []Action{
				{Type: "extract_digits"},
				{Type: "pad_zeros_to_length", Value: "6"},
				{Type: "prepend_string", Value: "FD-"},
			},
			in:   "inc 42",
			want: "FD-000042",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			compiled, err := CompileActions(tt.actions)
			require.NoError(t, err)
			assert.Equal(t, tt.want, compiled.Apply(tt.in))
		})
	}
}

func TestCompileActions_Empty(t *testing.T) {
	compiled, err := CompileActions(nil)
	require.NoError(t, err)
	assert.Nil(t, compiled)
	assert.Equal(t, "x", compiled.Apply("x"))
}

func TestCompileActions_Invalid(t *testing.T) {
	tests := []struct {
		name   string
		action Action
	}{
		{"unknown", Action{Type: "explode"}},
		{"replace without find", Action{Type: "replace", Value: "x"}},
		{"bad regex", Action{Type: "regex_replace", Find: "("}},
		{"empty regex", Action{Type: "regex_replace"}},
		{"bad range", Action{Type: "substring", Value: "5"}},
		{"reversed range", Action{Type: "substring", Value: "5,2"}},
		{"bad length", Action{Type: "pad_zeros_to_length", Value: "0"}},
		{"bad places", Action{Type: "format_number", Value: "-1"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := CompileActions([]Action{{Type: "trim"}, tt.action})
			require.ErrorIs(t, err, ErrInvalidConfig)
			assert.Contains(t, err.Error(), "action 2")
		})
	}
}

func TestConfigs_ActionsFollowDelete(t *testing.T) {
	configs := NewConfigs()
	compiled, err := CompileActions([]Action{{Type: "trim"}})
	require.NoError(t, err)

	configs.SetActions("unit", compiled)
	assert.Len(t, configs.Actions("unit"), 1)

	configs.Delete("unit")
	assert.Nil(t, configs.Actions("unit"))

	configs.SetActions("unit", compiled)
	configs.SetActions("unit", nil)
	assert.Nil(t, configs.Actions("unit"))
}
