package source

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"github.com/ginjaninja78/incident-field-mapper/internal/config"
	"github.com/ginjaninja78/incident-field-mapper/internal/types"
)

// ErrEmptySource is returned when a source has no header row.
var ErrEmptySource = errors.New("source is empty")

// =============================================================================
// CSV READER
// =============================================================================

// ReadCSVFile opens and reads a delimited file.
func ReadCSVFile(path string, settings config.CSVSettings) (*Table, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	table, err := ReadCSV(file, settings)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	table.SourceFile = path
	return table, nil
}

// ReadCSV reads delimited text.
//
// PARAMETERS:
//   - r: The raw bytes, in settings.Encoding.
//   - settings: Delimiter, header rows, data start row and encoding. Zero
//     values mean comma, one header row, data right after the headers and
//     UTF-8.
//
// RETURNS:
//   - The table. Blank data rows are skipped.
//   - ErrEmptySource when there are fewer rows than header rows, or a
//     settings or parse error.
//
// PARSING PROCESS:
//  1. Decode the input to UTF-8, dropping any byte order mark
//  2. Read all rows, allowing ragged rows and lazy quotes
//  3. Merge the header rows column by column
//  4. Convert the data rows to records keyed by header
func ReadCSV(r io.Reader, settings config.CSVSettings) (*Table, error) {
	decoder, err := decoderFor(settings.Encoding)
	if err != nil {
		return nil, err
	}
	csvReader := csv.NewReader(transform.NewReader(bufio.NewReader(r), decoder))
	if err := configureReader(csvReader, settings); err != nil {
		return nil, err
	}

	allRows, err := csvReader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to parse CSV: %w", err)
	}

	headerRows := settings.HeaderRows
	if headerRows <= 0 {
		headerRows = 1
	}
	if len(allRows) < headerRows {
		return nil, ErrEmptySource
	}
	headers := cleanHeaders(mergeHeaders(allRows[:headerRows]))

	start := settings.DataStartRow - 1
	if start < headerRows {
		start = headerRows
	}

	table := &Table{
		Columns: types.Columns(headers),
		Records: []types.Record{},
		Format:  FormatCSV,
	}
	for i := start; i < len(allRows); i++ {
		if isRowEmpty(allRows[i]) {
			continue
		}
		table.Records = append(table.Records, rowRecord(headers, allRows[i]))
	}
	return table, nil
}

// configureReader applies the delimiter and the tolerant parsing options
// legacy exports need.
func configureReader(reader *csv.Reader, settings config.CSVSettings) error {
	comma, err := config.DelimiterRune(settings.Delimiter)
	if err != nil {
		return err
	}
	reader.Comma = comma
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true
	return nil
}

// mergeHeaders joins the non-empty cells of each column with a space.
//
// Example:
//
//	Row 1: "Call", "",     "GPS", ""
//	Row 2: "Time", "Unit", "Lat", "Lon"
//	Result: "Call Time", "Unit", "GPS Lat", "Lon"
func mergeHeaders(rows [][]string) []string {
	if len(rows) == 1 {
		return rows[0]
	}

	maxCols := 0
	for _, row := range rows {
		maxCols = max(maxCols, len(row))
	}

	headers := make([]string, maxCols)
	for col := range maxCols {
		var parts []string
		for _, row := range rows {
			if col < len(row) {
				if value := strings.TrimSpace(row[col]); value != "" {
					parts = append(parts, value)
				}
			}
		}
		headers[col] = strings.Join(parts, " ")
	}
	return headers
}

// =============================================================================
// ENCODINGS
// =============================================================================

// decoderFor returns a decoder producing UTF-8 for the named encoding.
func decoderFor(name string) (*encoding.Decoder, error) {
	switch strings.ToLower(strings.ReplaceAll(strings.TrimSpace(name), "_", "-")) {
	case "", "utf-8", "utf8":
		return unicode.UTF8BOM.NewDecoder(), nil
	case "utf-16", "utf16":
		return unicode.UTF16(unicode.LittleEndian, unicode.UseBOM).NewDecoder(), nil
	case "utf-16le":
		return unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM).NewDecoder(), nil
	case "utf-16be":
		return unicode.UTF16(unicode.BigEndian, unicode.IgnoreBOM).NewDecoder(), nil
	case "iso-8859-1", "latin1", "latin-1":
		return charmap.ISO8859_1.NewDecoder(), nil
	case "windows-1252", "cp1252":
		return charmap.Windows1252.NewDecoder(), nil
	default:
		return nil, fmt.Errorf("unsupported encoding %q", name)
	}
}
