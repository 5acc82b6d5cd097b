package pipeline

import (
	"errors"
	"reflect"
	"testing"
)

func TestBuild(t *testing.T) {
	t.Run("exampleScenario", func(t *testing.T) {
		table := Table{
			Headers: []string{"Gene ID", "Log2FC (Ctrl vs KD)", "P value (Ctrl vs KD)", "All Gene Ontology Category"},
			Rows: []RawRecord{
				{"Gene ID": "A", "Log2FC (Ctrl vs KD)": "1.2", "P value (Ctrl vs KD)": "0.03", "All Gene Ontology Category": "Lipid"},
				{"Gene ID": "B", "Log2FC (Ctrl vs KD)": "-0.5", "P value (Ctrl vs KD)": "0.2", "All Gene Ontology Category": "Lipid"},
			},
		}

		res, err := Build(table)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		ds := res.Dataset
		if len(ds.Genes) != 2 {
			t.Fatalf("expected 2 genes, got %d", len(ds.Genes))
		}
		if ds.Genes[0].ID != "B" || ds.Genes[1].ID != "A" {
			t.Errorf("expected order [B A], got [%s %s]", ds.Genes[0].ID, ds.Genes[1].ID)
		}
		wantSegs := []CategorySegment{{Category: "Lipid", StartIndex: 0, EndIndex: 1, Count: 2}}
		if !reflect.DeepEqual(ds.Segments, wantSegs) {
			t.Errorf("expected %#v, got %#v", wantSegs, ds.Segments)
		}
		if !reflect.DeepEqual(ds.ComparisonNames, []string{"Ctrl vs KD"}) {
			t.Errorf("unexpected comparison names: %#v", ds.ComparisonNames)
		}
	})

	t.Run("emptyTableIsDataError", func(t *testing.T) {
		_, err := Build(Table{Headers: []string{"Log2FC (A)"}})
		var dataErr *DataError
		if !errors.As(err, &dataErr) {
			t.Fatalf("expected DataError, got %v", err)
		}
	})

	t.Run("noComparisonsIsSchemaError", func(t *testing.T) {
		table := Table{
			Headers: []string{"Gene ID", "Category"},
			Rows:    []RawRecord{{"Gene ID": "A", "Category": "X"}},
		}
		_, err := Build(table)
		var schemaErr *SchemaError
		if !errors.As(err, &schemaErr) {
			t.Fatalf("expected SchemaError, got %v", err)
		}
	})

	t.Run("warnings", func(t *testing.T) {
		table := Table{
			Headers: []string{"Gene ID", "Log2FC (A)"},
			Rows:    []RawRecord{{"Gene ID": "A", "Log2FC (A)": "1"}},
		}
		res, err := Build(table)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(res.Warnings) != 2 {
			t.Errorf("expected p-value and category warnings, got %#v", res.Warnings)
		}
	})

	t.Run("geneCountExcludesDroppedRows", func(t *testing.T) {
		table := Table{
			Headers: []string{"Gene ID", "Log2FC (A)"},
			Rows: []RawRecord{
				{"Gene ID": "A", "Log2FC (A)": "1"},
				{"Gene ID": "", "Log2FC (A)": "2"},
				{"Gene ID": "C", "Log2FC (A)": "3"},
			},
		}
		res, err := Build(table)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got := len(res.Dataset.Genes); got != 2 {
			t.Errorf("expected 2 genes (3 rows - 1 dropped), got %d", got)
		}
		if len(res.Diagnostics) != 1 {
			t.Errorf("expected 1 diagnostic, got %#v", res.Diagnostics)
		}
	})

	t.Run("deterministic", func(t *testing.T) {
		table := Table{
			Headers: []string{"Gene ID", "Log2FC (A)", "Category"},
			Rows: []RawRecord{
				{"Gene ID": "a", "Log2FC (A)": "1", "Category": "X"},
				{"Gene ID": "b", "Log2FC (A)": "", "Category": "Y"},
				{"Gene ID": "c", "Log2FC (A)": "-3", "Category": "X"},
			},
		}
		first, err := Build(table)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		second, err := Build(table)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !reflect.DeepEqual(first.Dataset, second.Dataset) {
			t.Errorf("expected identical datasets across runs")
		}
	})
}

func TestExportRoundTrip(t *testing.T) {
	table := Table{
		Headers: []string{"Gene ID", "Log2FC (A)", "P value (A)", "Log2FC (B)", "P value (B)", "Category"},
		Rows: []RawRecord{
			{"Gene ID": "g1", "Log2FC (A)": "1.25", "P value (A)": "0.001", "Log2FC (B)": "", "P value (B)": "0.5", "Category": "Kinase"},
			{"Gene ID": "g2", "Log2FC (A)": "-2", "P value (A)": "", "Log2FC (B)": "0.75", "P value (B)": "0.04", "Category": "Lipid"},
			{"Gene ID": "g3", "Log2FC (A)": "0.5", "P value (A)": "0.2", "Log2FC (B)": "-1", "P value (B)": "", "Category": "Kinase"},
		},
	}

	first, err := Build(table)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	exported := Export(first.Dataset)

	// Nil cells must surface as the explicit placeholder, not blanks.
	for _, row := range exported.Rows {
		for h, cell := range row {
			if cell == "" {
				t.Errorf("blank cell in exported column %q", h)
			}
		}
	}

	second, err := Build(exported)
	if err != nil {
		t.Fatalf("re-import failed: %v", err)
	}
	if !reflect.DeepEqual(first.Dataset, second.Dataset) {
		t.Errorf("round trip changed the dataset:\nfirst:  %#v\nsecond: %#v", first.Dataset, second.Dataset)
	}
	if len(second.Diagnostics) != 0 {
		t.Errorf("re-import produced diagnostics: %#v", second.Diagnostics)
	}
}
