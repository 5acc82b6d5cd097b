package pipeline

import (
	"errors"
	"testing"
)

func testSchema(t *testing.T, headers []string) *ColumnSchema {
	t.Helper()
	schema, err := DetectSchema(headers)
	if err != nil {
		t.Fatalf("DetectSchema failed: %v", err)
	}
	return schema
}

func TestValidateRows(t *testing.T) {
	headers := []string{"Gene ID", "Log2FC (A)", "P value (A)", "Category"}

	t.Run("typedRecord", func(t *testing.T) {
		table := Table{
			Headers: headers,
			Rows: []RawRecord{
				{"Gene ID": "TP53", "Log2FC (A)": "1.5", "P value (A)": "0.03", "Category": "Apoptosis"},
			},
		}
		genes, diags, err := ValidateRows(table, testSchema(t, headers))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(diags) != 0 {
			t.Errorf("unexpected diagnostics: %#v", diags)
		}
		g := genes[0]
		if g.ID != "TP53" || g.Category != "Apoptosis" {
			t.Errorf("unexpected record: %#v", g)
		}
		if g.Values[0] == nil || *g.Values[0] != 1.5 {
			t.Errorf("unexpected value: %#v", g.Values[0])
		}
		if g.PValues[0] == nil || *g.PValues[0] != 0.03 {
			t.Errorf("unexpected p-value: %#v", g.PValues[0])
		}
	})

	t.Run("blankIdentifierDropsRow", func(t *testing.T) {
		table := Table{
			Headers: headers,
			Rows: []RawRecord{
				{"Gene ID": "   ", "Log2FC (A)": "1"},
				{"Gene ID": "BRCA1", "Log2FC (A)": "2"},
			},
		}
		genes, diags, err := ValidateRows(table, testSchema(t, headers))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(genes) != 1 || genes[0].ID != "BRCA1" {
			t.Fatalf("expected only BRCA1 to survive, got %#v", genes)
		}
		if len(diags) != 1 || diags[0].Row != 1 {
			t.Errorf("expected diagnostic for row 1, got %#v", diags)
		}
	})

	t.Run("identifierHeaderVariants", func(t *testing.T) {
		for _, idHeader := range []string{"gene_id", "GeneID", "Identifier", "Gene Symbol", "id"} {
			hs := []string{idHeader, "Log2FC (A)"}
			table := Table{
				Headers: hs,
				Rows:    []RawRecord{{idHeader: "MYC", "Log2FC (A)": "1"}},
			}
			genes, _, err := ValidateRows(table, testSchema(t, hs))
			if err != nil {
				t.Fatalf("header %q: unexpected error: %v", idHeader, err)
			}
			if len(genes) != 1 || genes[0].ID != "MYC" {
				t.Errorf("header %q: expected MYC, got %#v", idHeader, genes)
			}
		}
	})

	t.Run("nonNumericCellBecomesNilWithDiagnostic", func(t *testing.T) {
		table := Table{
			Headers: headers,
			Rows: []RawRecord{
				{"Gene ID": "EGFR", "Log2FC (A)": "n.d.", "P value (A)": ""},
			},
		}
		genes, diags, err := ValidateRows(table, testSchema(t, headers))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if genes[0].Values[0] != nil {
			t.Errorf("expected nil value, got %v", *genes[0].Values[0])
		}
		if genes[0].PValues[0] != nil {
			t.Errorf("expected nil p-value for blank cell")
		}
		// The blank p-value cell is silent; only the unparsable cell reported.
		if len(diags) != 1 {
			t.Errorf("expected 1 diagnostic, got %#v", diags)
		}
	})

	t.Run("nullPlaceholderIsSilent", func(t *testing.T) {
		table := Table{
			Headers: headers,
			Rows: []RawRecord{
				{"Gene ID": "EGFR", "Log2FC (A)": NullPlaceholder},
			},
		}
		genes, diags, err := ValidateRows(table, testSchema(t, headers))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if genes[0].Values[0] != nil || len(diags) != 0 {
			t.Errorf("expected silent nil for placeholder, got %#v / %#v", genes[0].Values[0], diags)
		}
	})

	t.Run("categoryFallback", func(t *testing.T) {
		hs := []string{"Gene ID", "Log2FC (A)"}
		table := Table{
			Headers: hs,
			Rows:    []RawRecord{{"Gene ID": "MYC", "Log2FC (A)": "1"}},
		}
		genes, _, err := ValidateRows(table, testSchema(t, hs))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if genes[0].Category != UncategorizedLabel {
			t.Errorf("expected %q, got %q", UncategorizedLabel, genes[0].Category)
		}
	})

	t.Run("emptyTable", func(t *testing.T) {
		_, _, err := ValidateRows(Table{Headers: headers}, testSchema(t, headers))
		var dataErr *DataError
		if !errors.As(err, &dataErr) {
			t.Fatalf("expected DataError, got %v", err)
		}
	})

	t.Run("allRowsDropped", func(t *testing.T) {
		table := Table{
			Headers: headers,
			Rows: []RawRecord{
				{"Gene ID": "", "Log2FC (A)": "1"},
				{"Gene ID": " ", "Log2FC (A)": "2"},
			},
		}
		_, diags, err := ValidateRows(table, testSchema(t, headers))
		var dataErr *DataError
		if !errors.As(err, &dataErr) {
			t.Fatalf("expected DataError, got %v", err)
		}
		if len(diags) != 2 {
			t.Errorf("expected diagnostics for both rows, got %#v", diags)
		}
	})
}
