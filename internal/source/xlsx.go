package source

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/ginjaninja78/incident-field-mapper/internal/types"
)

// ReadXLSXFile reads the first sheet of a workbook.
func ReadXLSXFile(path string) (*Table, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	table, err := readWorkbook(f)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	table.SourceFile = path
	return table, nil
}

// ReadXLSX reads the first sheet of a workbook from r.
func ReadXLSX(r io.Reader) (*Table, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	return readWorkbook(f)
}

// readWorkbook converts the first sheet to a table. The first row is the
// header and blank rows are skipped. Cells keep their displayed text.
func readWorkbook(f *excelize.File) (*Table, error) {
	sheetName := f.GetSheetName(0)
	if sheetName == "" {
		return nil, fmt.Errorf("workbook has no sheets")
	}

	rows, err := f.GetRows(sheetName)
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %s: %w", sheetName, err)
	}
	if len(rows) == 0 {
		return nil, ErrEmptySource
	}

	headers := cleanHeaders(rows[0])
	table := &Table{
		Columns: types.Columns(headers),
		Records: []types.Record{},
		Format:  FormatXLSX,
	}
	for _, row := range rows[1:] {
		if isRowEmpty(row) {
			continue
		}
		table.Records = append(table.Records, rowRecord(headers, row))
	}
	return table, nil
}
