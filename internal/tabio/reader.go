// Package tabio decodes uploaded spreadsheets into pipeline tables and
// encodes export tables back into spreadsheet formats. It is the only place
// that touches file bytes; the pipeline works on decoded tables.
package tabio

import (
	"encoding/csv"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/foldmap/server/internal/pipeline"
)

// Format identifies a supported spreadsheet format.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
)

// FormatForFilename picks the format from a file extension.
func FormatForFilename(name string) (Format, error) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".csv":
		return FormatCSV, nil
	case ".xlsx", ".xlsm":
		return FormatXLSX, nil
	default:
		return "", fmt.Errorf("unsupported file type %q (want .csv or .xlsx)", filepath.Ext(name))
	}
}

// Decode reads a spreadsheet into a pipeline table. For xlsx input an empty
// sheetName selects the first sheet.
func Decode(r io.Reader, format Format, sheetName string) (pipeline.Table, error) {
	switch format {
	case FormatCSV:
		return decodeCSV(r)
	case FormatXLSX:
		return decodeXLSX(r, sheetName)
	default:
		return pipeline.Table{}, fmt.Errorf("unsupported format: %s", format)
	}
}

func decodeCSV(r io.Reader) (pipeline.Table, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	rows, err := reader.ReadAll()
	if err != nil {
		return pipeline.Table{}, fmt.Errorf("failed to read CSV: %w", err)
	}
	return rowsToTable(rows), nil
}

func decodeXLSX(r io.Reader, sheetName string) (pipeline.Table, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return pipeline.Table{}, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	if sheetName == "" {
		sheetName = f.GetSheetName(0)
	}
	rows, err := f.GetRows(sheetName)
	if err != nil {
		return pipeline.Table{}, fmt.Errorf("failed to read sheet %q: %w", sheetName, err)
	}
	return rowsToTable(rows), nil
}

// rowsToTable converts raw string rows into the header-keyed table shape
// the pipeline consumes. The first row is the header row; cells beyond the
// header width are dropped.
func rowsToTable(rows [][]string) pipeline.Table {
	if len(rows) == 0 {
		return pipeline.Table{}
	}

	headers := make([]string, len(rows[0]))
	for i, h := range rows[0] {
		headers[i] = strings.TrimSpace(h)
	}

	records := make([]pipeline.RawRecord, 0, len(rows)-1)
	for _, row := range rows[1:] {
		rec := make(pipeline.RawRecord, len(headers))
		for j, cell := range row {
			if j < len(headers) {
				rec[headers[j]] = strings.TrimSpace(cell)
			}
		}
		records = append(records, rec)
	}

	return pipeline.Table{Headers: headers, Rows: records}
}
