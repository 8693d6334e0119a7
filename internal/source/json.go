package source

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/ginjaninja78/incident-field-mapper/internal/types"
)

// ErrNotArray is returned when a JSON source is not an array of objects.
var ErrNotArray = errors.New("JSON source must be an array of objects")

// ReadJSONFile opens and reads a JSON source.
func ReadJSONFile(path string) (*Table, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	table, err := ReadJSON(file)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	table.SourceFile = path
	return table, nil
}

// ReadJSON reads an array of flat objects.
//
// The objects are read token by token so the columns follow the order keys
// first appear in, not map order. Records may have different keys; a key
// absent from a record is absent from its Record too.
//
// Values are converted to the engine's raw types:
//   - strings stay strings, numbers become float64, null stays nil
//   - booleans become "true" / "false"
//   - nested objects and arrays become their compact JSON text
func ReadJSON(r io.Reader) (*Table, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()

	if err := expectDelim(dec, '['); err != nil {
		return nil, err
	}

	table := &Table{Records: []types.Record{}, Format: FormatJSON}
	seen := make(map[string]bool)
	var names []string

	for dec.More() {
		if err := expectDelim(dec, '{'); err != nil {
			return nil, fmt.Errorf("record %d: %w", len(table.Records)+1, err)
		}
		record := make(types.Record)
		for dec.More() {
			tok, err := dec.Token()
			if err != nil {
				return nil, fmt.Errorf("failed to parse JSON: %w", err)
			}
			key, ok := tok.(string)
			if !ok {
				return nil, fmt.Errorf("failed to parse JSON: unexpected %v", tok)
			}

			var value any
			if err := dec.Decode(&value); err != nil {
				return nil, fmt.Errorf("failed to parse JSON value for %q: %w", key, err)
			}
			record[key] = rawValue(value)

			if !seen[key] {
				seen[key] = true
				names = append(names, key)
			}
		}
		if _, err := dec.Token(); err != nil {
			return nil, fmt.Errorf("failed to parse JSON: %w", err)
		}
		table.Records = append(table.Records, record)
	}
	if _, err := dec.Token(); err != nil {
		return nil, fmt.Errorf("failed to parse JSON: %w", err)
	}

	table.Columns = types.Columns(names)
	return table, nil
}

// expectDelim consumes the next token and checks it is delim.
func expectDelim(dec *json.Decoder, delim json.Delim) error {
	tok, err := dec.Token()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return ErrEmptySource
		}
		return fmt.Errorf("failed to parse JSON: %w", err)
	}
	if d, ok := tok.(json.Delim); !ok || d != delim {
		return ErrNotArray
	}
	return nil
}

// rawValue converts a decoded JSON value to a RawValue.
func rawValue(v any) types.RawValue {
	switch val := v.(type) {
	case nil, string:
		return val
	case json.Number:
		if f, err := val.Float64(); err == nil {
			return f
		}
		return val.String()
	case bool:
		return strconv.FormatBool(val)
	default:
		data, err := json.Marshal(val)
		if err != nil {
			return fmt.Sprint(val)
		}
		return string(data)
	}
}
