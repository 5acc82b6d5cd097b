package pipeline

import "strconv"

// NullPlaceholder is the token written for nil values on export. The
// validator accepts it back as nil, so exported tables survive a round trip
// through the pipeline.
const NullPlaceholder = "NA"

const (
	exportIDHeader       = "Gene ID"
	exportCategoryHeader = "Category"
)

// Export flattens a dataset into a table with one row per gene: identifier,
// category, then one fold-change and one p-value column per comparison in
// schema order. Headers are reconstructed in the same shape the schema
// detector matches, so the projection is invertible.
func Export(ds *Dataset) Table {
	headers := []string{exportIDHeader, exportCategoryHeader}
	fcHeaders := make([]string, len(ds.ComparisonNames))
	pvHeaders := make([]string, len(ds.ComparisonNames))
	for i, name := range ds.ComparisonNames {
		fcHeaders[i] = "Log2FC (" + name + ")"
		pvHeaders[i] = "P value (" + name + ")"
		headers = append(headers, fcHeaders[i], pvHeaders[i])
	}

	rows := make([]RawRecord, 0, len(ds.Genes))
	for _, g := range ds.Genes {
		row := RawRecord{
			exportIDHeader:       g.ID,
			exportCategoryHeader: g.Category,
		}
		for i := range ds.ComparisonNames {
			row[fcHeaders[i]] = formatCell(at(g.Values, i))
			row[pvHeaders[i]] = formatCell(at(g.PValues, i))
		}
		rows = append(rows, row)
	}

	return Table{Headers: headers, Rows: rows}
}

func at(vals []*float64, i int) *float64 {
	if i >= len(vals) {
		return nil
	}
	return vals[i]
}

func formatCell(v *float64) string {
	if v == nil {
		return NullPlaceholder
	}
	return strconv.FormatFloat(*v, 'g', -1, 64)
}
