package tabio

import (
	"encoding/csv"
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/foldmap/server/internal/pipeline"
)

// Encode writes a table in the requested format, cells in header order.
func Encode(w io.Writer, table pipeline.Table, format Format) error {
	switch format {
	case FormatCSV:
		return encodeCSV(w, table)
	case FormatXLSX:
		return encodeXLSX(w, table)
	default:
		return fmt.Errorf("unsupported format: %s", format)
	}
}

func encodeCSV(w io.Writer, table pipeline.Table) error {
	writer := csv.NewWriter(w)

	if err := writer.Write(table.Headers); err != nil {
		return fmt.Errorf("failed to write header row: %w", err)
	}
	for _, row := range table.Rows {
		record := make([]string, len(table.Headers))
		for i, h := range table.Headers {
			record[i] = row[h]
		}
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("failed to write row: %w", err)
		}
	}

	writer.Flush()
	return writer.Error()
}

func encodeXLSX(w io.Writer, table pipeline.Table) error {
	f := excelize.NewFile()
	defer f.Close()

	sheet := f.GetSheetName(0)

	header := make([]interface{}, len(table.Headers))
	for i, h := range table.Headers {
		header[i] = h
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return fmt.Errorf("failed to write header row: %w", err)
	}

	for r, row := range table.Rows {
		record := make([]interface{}, len(table.Headers))
		for i, h := range table.Headers {
			record[i] = row[h]
		}
		cell, err := excelize.CoordinatesToCellName(1, r+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &record); err != nil {
			return fmt.Errorf("failed to write row %d: %w", r+2, err)
		}
	}

	return f.Write(w)
}
