// Package pipeline transforms decoded spreadsheet tables into validated,
// grouped gene-expression datasets.
package pipeline

import (
	"regexp"
	"strings"
)

// RawRecord maps a column header to the raw cell text of one input row.
type RawRecord map[string]string

// Table is a decoded tabular input: headers in sheet order plus one
// RawRecord per data row. Produced by the tabio package; the pipeline never
// touches file bytes.
type Table struct {
	Headers []string
	Rows    []RawRecord
}

// ComparisonColumn pairs an original header with the comparison display name
// captured from it.
type ComparisonColumn struct {
	Header string
	Name   string
}

// ColumnSchema describes the detected roles of the input columns. It is
// derived once per upload and reused for every row.
type ColumnSchema struct {
	Comparisons    []ComparisonColumn
	PValueColumns  []string
	CategoryColumn string // empty when no category column was found
}

// SchemaError indicates the input headers cannot drive a heatmap.
type SchemaError struct {
	Reason string
}

func (e *SchemaError) Error() string {
	return "schema detection failed: " + e.Reason
}

var (
	foldChangePattern = regexp.MustCompile(`(?i)log2fc\s*\(([^)]*)\)`)
	pValuePattern     = regexp.MustCompile(`(?i)p[\s._-]?value\s*\(([^)]*)\)`)
)

// FoldChangeHeaderHint is the header shape named in user-facing schema
// errors and reused when reconstructing headers on export.
const FoldChangeHeaderHint = "Log2FC (<comparison>)"

// DetectSchema inspects the header sequence and classifies columns into
// comparison, p-value and category roles. Column order follows header order;
// comparison and p-value columns are detected independently and need not
// pair up. Returns a SchemaError when no comparison column is present.
func DetectSchema(headers []string) (*ColumnSchema, error) {
	schema := &ColumnSchema{}

	for _, h := range headers {
		if m := foldChangePattern.FindStringSubmatch(h); m != nil {
			schema.Comparisons = append(schema.Comparisons, ComparisonColumn{
				Header: h,
				Name:   strings.TrimSpace(m[1]),
			})
			continue
		}
		if pValuePattern.MatchString(h) {
			schema.PValueColumns = append(schema.PValueColumns, h)
			continue
		}
		if schema.CategoryColumn == "" && strings.Contains(strings.ToLower(h), "category") {
			schema.CategoryColumn = h
		}
	}

	if len(schema.Comparisons) == 0 {
		return nil, &SchemaError{
			Reason: "no fold-change columns found; expected at least one header like " + FoldChangeHeaderHint,
		}
	}

	return schema, nil
}

// ComparisonNames returns the display names of the comparison columns in
// schema order.
func (s *ColumnSchema) ComparisonNames() []string {
	names := make([]string, len(s.Comparisons))
	for i, c := range s.Comparisons {
		names[i] = c.Name
	}
	return names
}
