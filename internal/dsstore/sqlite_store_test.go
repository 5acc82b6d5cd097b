package dsstore

import (
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/foldmap/server/internal/pipeline"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStore(filepath.Join(t.TempDir(), "datasets.sqlite"))
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func testRecord(id string, createdAt time.Time) *DatasetRecord {
	v1 := -0.5
	v2 := 1.2
	p := 0.03
	return &DatasetRecord{
		ID:        id,
		Name:      "test upload",
		CreatedAt: createdAt,
		Dataset: &pipeline.Dataset{
			Genes: []pipeline.GeneRecord{
				{ID: "B", Category: "Lipid", Values: []*float64{&v1}, PValues: []*float64{nil}},
				{ID: "A", Category: "Lipid", Values: []*float64{&v2}, PValues: []*float64{&p}},
			},
			ComparisonNames: []string{"Ctrl vs KD"},
			Segments: []pipeline.CategorySegment{
				{Category: "Lipid", StartIndex: 0, EndIndex: 1, Count: 2},
			},
		},
		Diagnostics: []pipeline.RowDiagnostic{{Row: 3, Reason: "missing gene identifier"}},
		Warnings:    []string{"no category column detected"},
	}
}

func TestSaveAndGetDataset(t *testing.T) {
	store := newTestStore(t)

	want := testRecord("ds-1", time.Now().UTC().Truncate(time.Second))
	if err := store.SaveDataset(want); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	got, err := store.GetDataset("ds-1")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if got == nil {
		t.Fatal("expected record, got nil")
	}
	if !reflect.DeepEqual(got.Dataset, want.Dataset) {
		t.Errorf("dataset changed through persistence:\nwant %#v\ngot  %#v", want.Dataset, got.Dataset)
	}
	if !reflect.DeepEqual(got.Diagnostics, want.Diagnostics) {
		t.Errorf("unexpected diagnostics: %#v", got.Diagnostics)
	}
	if !reflect.DeepEqual(got.Warnings, want.Warnings) {
		t.Errorf("unexpected warnings: %#v", got.Warnings)
	}
	if !got.CreatedAt.Equal(want.CreatedAt) {
		t.Errorf("expected created_at %v, got %v", want.CreatedAt, got.CreatedAt)
	}
}

func TestGetDatasetUnknownID(t *testing.T) {
	store := newTestStore(t)

	got, err := store.GetDataset("nope")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != nil {
		t.Errorf("expected nil for unknown ID, got %#v", got)
	}
}

func TestListDatasets(t *testing.T) {
	store := newTestStore(t)

	older := testRecord("ds-old", time.Now().UTC().Add(-time.Hour))
	newer := testRecord("ds-new", time.Now().UTC())
	if err := store.SaveDataset(older); err != nil {
		t.Fatalf("save failed: %v", err)
	}
	if err := store.SaveDataset(newer); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	metas, err := store.ListDatasets()
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(metas) != 2 {
		t.Fatalf("expected 2 datasets, got %d", len(metas))
	}
	if metas[0].ID != "ds-new" || metas[1].ID != "ds-old" {
		t.Errorf("expected newest first, got %s then %s", metas[0].ID, metas[1].ID)
	}
	if metas[0].GeneCount != 2 {
		t.Errorf("expected gene count 2, got %d", metas[0].GeneCount)
	}
	if !reflect.DeepEqual(metas[0].Comparisons, []string{"Ctrl vs KD"}) {
		t.Errorf("unexpected comparisons: %#v", metas[0].Comparisons)
	}
}

func TestDeleteDataset(t *testing.T) {
	store := newTestStore(t)

	if err := store.SaveDataset(testRecord("ds-1", time.Now().UTC())); err != nil {
		t.Fatalf("save failed: %v", err)
	}
	if err := store.DeleteDataset("ds-1"); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	got, err := store.GetDataset("ds-1")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if got != nil {
		t.Errorf("expected dataset to be gone, got %#v", got)
	}
}

func TestDeleteExpired(t *testing.T) {
	store := newTestStore(t)

	expired := testRecord("ds-old", time.Now().UTC().AddDate(0, 0, -10))
	fresh := testRecord("ds-new", time.Now().UTC())
	if err := store.SaveDataset(expired); err != nil {
		t.Fatalf("save failed: %v", err)
	}
	if err := store.SaveDataset(fresh); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	removed, err := store.DeleteExpired(7)
	if err != nil {
		t.Fatalf("delete expired failed: %v", err)
	}
	if removed != 1 {
		t.Errorf("expected 1 removed, got %d", removed)
	}

	metas, err := store.ListDatasets()
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(metas) != 1 || metas[0].ID != "ds-new" {
		t.Errorf("expected only ds-new to remain, got %#v", metas)
	}
}
