package pipeline

import (
	"errors"
	"reflect"
	"testing"
)

func TestDetectSchema(t *testing.T) {
	t.Run("basic", func(t *testing.T) {
		headers := []string{
			"Gene ID",
			"Log2FC (Ctrl vs KD)",
			"P value (Ctrl vs KD)",
			"All Gene Ontology Category",
		}
		schema, err := DetectSchema(headers)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		wantComparisons := []ComparisonColumn{
			{Header: "Log2FC (Ctrl vs KD)", Name: "Ctrl vs KD"},
		}
		if !reflect.DeepEqual(schema.Comparisons, wantComparisons) {
			t.Errorf("unexpected comparisons: %#v", schema.Comparisons)
		}
		if !reflect.DeepEqual(schema.PValueColumns, []string{"P value (Ctrl vs KD)"}) {
			t.Errorf("unexpected p-value columns: %#v", schema.PValueColumns)
		}
		if schema.CategoryColumn != "All Gene Ontology Category" {
			t.Errorf("unexpected category column: %q", schema.CategoryColumn)
		}
	})

	t.Run("caseInsensitiveMarker", func(t *testing.T) {
		for _, h := range []string{"log2fc (A vs B)", "LOG2FC(A vs B)", "Log2FC  ( A vs B )"} {
			schema, err := DetectSchema([]string{h})
			if err != nil {
				t.Fatalf("header %q: unexpected error: %v", h, err)
			}
			if len(schema.Comparisons) != 1 || schema.Comparisons[0].Name != "A vs B" {
				t.Errorf("header %q: unexpected comparisons %#v", h, schema.Comparisons)
			}
		}
	})

	t.Run("headerOrderPreserved", func(t *testing.T) {
		headers := []string{"Log2FC (Z)", "Log2FC (A)", "Log2FC (M)"}
		schema, err := DetectSchema(headers)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		want := []string{"Z", "A", "M"}
		if !reflect.DeepEqual(schema.ComparisonNames(), want) {
			t.Errorf("expected %v, got %v", want, schema.ComparisonNames())
		}
	})

	t.Run("independentDetection", func(t *testing.T) {
		// Two comparisons, one p-value column: no 1:1 pairing required.
		schema, err := DetectSchema([]string{"Log2FC (A)", "Log2FC (B)", "P value (A)"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(schema.Comparisons) != 2 {
			t.Errorf("expected 2 comparisons, got %d", len(schema.Comparisons))
		}
		if len(schema.PValueColumns) != 1 {
			t.Errorf("expected 1 p-value column, got %d", len(schema.PValueColumns))
		}
	})

	t.Run("noComparisons", func(t *testing.T) {
		_, err := DetectSchema([]string{"Gene ID", "Category"})
		var schemaErr *SchemaError
		if !errors.As(err, &schemaErr) {
			t.Fatalf("expected SchemaError, got %v", err)
		}
	})

	t.Run("missingPValuesAndCategoryIsNotFatal", func(t *testing.T) {
		schema, err := DetectSchema([]string{"Gene ID", "Log2FC (A)"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(schema.PValueColumns) != 0 || schema.CategoryColumn != "" {
			t.Errorf("expected empty p-value and category detection, got %#v", schema)
		}
	})
}
