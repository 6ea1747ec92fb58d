package data

import (
	"context"
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"
)

// ExcelReader reads test data from an xlsx workbook. The first row of a
// sheet is the header; every following non-blank row becomes one record
// keyed by header name.
type ExcelReader struct {
	path string
}

// NewExcelReader reads from the workbook at path. The file is opened per
// ReadRows call so a reader can outlive edits to the fixture.
func NewExcelReader(path string) *ExcelReader {
	return &ExcelReader{path: path}
}

// ReadRows returns the records of the named sheet, in sheet order. An empty
// selector means the first sheet.
func (r *ExcelReader) ReadRows(ctx context.Context, sheet string) ([]Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f, err := excelize.OpenFile(r.path)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook %s: %w", r.path, ErrSourceUnavailable)
	}
	defer f.Close()

	if sheet == "" {
		sheet = f.GetSheetName(0)
	}

	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("sheet %q not found in %s: %w", sheet, r.path, ErrSchemaMismatch)
	}
	if len(rows) == 0 || len(rows[0]) == 0 {
		return nil, fmt.Errorf("sheet %q has no header row: %w", sheet, ErrSchemaMismatch)
	}

	header := make([]string, len(rows[0]))
	for i, h := range rows[0] {
		header[i] = strings.TrimSpace(h)
	}

	var records []Record
	for _, row := range rows[1:] {
		if isBlankRow(row) {
			continue
		}
		rec := make(Record, len(header))
		for i, name := range header {
			if name == "" {
				continue
			}
			if i < len(row) {
				rec[name] = strings.TrimSpace(row[i])
			} else {
				rec[name] = ""
			}
		}
		records = append(records, rec)
	}
	return records, nil
}

func isBlankRow(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
