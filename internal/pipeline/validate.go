package pipeline

import (
	"fmt"
	"strconv"
	"strings"
)

// UncategorizedLabel is the fallback category used when no category column
// exists or the cell is blank.
const UncategorizedLabel = "Uncategorized"

// GeneRecord is one validated input row. Values and PValues hold one entry
// per schema column in schema order; nil marks a blank or unparsable cell.
// Records are immutable once built.
type GeneRecord struct {
	ID       string     `json:"id"`
	Category string     `json:"category"`
	Values   []*float64 `json:"values"`
	PValues  []*float64 `json:"p_values"`
}

// RowDiagnostic records a non-fatal validation finding for one input row.
// Row numbers are 1-based data row positions (header row excluded).
type RowDiagnostic struct {
	Row    int    `json:"row"`
	Reason string `json:"reason"`
}

// DataError indicates the input contained no usable rows.
type DataError struct {
	Reason string
}

func (e *DataError) Error() string {
	return "no usable data: " + e.Reason
}

// identifier header variants, compared after lowercasing and stripping
// spaces and underscores.
var idHeaderVariants = map[string]bool{
	"geneid":     true,
	"gene":       true,
	"id":         true,
	"identifier": true,
	"genesymbol": true,
	"genename":   true,
}

func normalizeHeader(h string) string {
	h = strings.ToLower(h)
	h = strings.ReplaceAll(h, " ", "")
	h = strings.ReplaceAll(h, "_", "")
	return h
}

// idColumns returns the headers that look like gene identifier columns, in
// header order.
func idColumns(headers []string) []string {
	var cols []string
	for _, h := range headers {
		if idHeaderVariants[normalizeHeader(h)] {
			cols = append(cols, h)
		}
	}
	return cols
}

// ValidateRows converts raw rows into GeneRecords using the detected schema.
// Rows without an identifier are dropped with a diagnostic; numeric cells
// that fail to parse become nil with a diagnostic. The whole batch fails
// with a DataError only when the table has no rows or no row survives.
func ValidateRows(table Table, schema *ColumnSchema) ([]GeneRecord, []RowDiagnostic, error) {
	if len(table.Rows) == 0 {
		return nil, nil, &DataError{Reason: "input table has no data rows"}
	}

	idCols := idColumns(table.Headers)
	var genes []GeneRecord
	var diags []RowDiagnostic

	for i, row := range table.Rows {
		rowNum := i + 1

		id := ""
		for _, col := range idCols {
			if v := strings.TrimSpace(row[col]); v != "" {
				id = v
				break
			}
		}
		if id == "" {
			diags = append(diags, RowDiagnostic{Row: rowNum, Reason: "missing gene identifier"})
			continue
		}

		g := GeneRecord{
			ID:       id,
			Category: UncategorizedLabel,
			Values:   make([]*float64, len(schema.Comparisons)),
			PValues:  make([]*float64, len(schema.PValueColumns)),
		}

		if schema.CategoryColumn != "" {
			if c := strings.TrimSpace(row[schema.CategoryColumn]); c != "" {
				g.Category = c
			}
		}

		for j, c := range schema.Comparisons {
			v, diag := parseCell(row[c.Header])
			g.Values[j] = v
			if diag != "" {
				diags = append(diags, RowDiagnostic{
					Row:    rowNum,
					Reason: fmt.Sprintf("column %q: %s", c.Header, diag),
				})
			}
		}
		for j, h := range schema.PValueColumns {
			v, diag := parseCell(row[h])
			g.PValues[j] = v
			if diag != "" {
				diags = append(diags, RowDiagnostic{
					Row:    rowNum,
					Reason: fmt.Sprintf("column %q: %s", h, diag),
				})
			}
		}

		genes = append(genes, g)
	}

	if len(genes) == 0 {
		return nil, diags, &DataError{Reason: "every row is missing a gene identifier"}
	}

	return genes, diags, nil
}

// parseCell parses a numeric cell. Blank cells are nil without a diagnostic;
// non-numeric text is nil with one.
func parseCell(raw string) (*float64, string) {
	s := strings.TrimSpace(raw)
	if s == "" || s == NullPlaceholder {
		return nil, ""
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, fmt.Sprintf("value %q is not numeric", s)
	}
	return &v, ""
}
