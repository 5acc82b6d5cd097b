// Package service provides business logic for the heatmap server.
package service

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/foldmap/server/internal/cache"
	"github.com/foldmap/server/internal/dsstore"
	"github.com/foldmap/server/internal/pipeline"
	"github.com/foldmap/server/internal/render"
	"github.com/foldmap/server/internal/scale"
	"github.com/foldmap/server/internal/tabio"
)

// ErrDatasetNotFound is returned when a dataset ID is unknown.
var ErrDatasetNotFound = errors.New("dataset not found")

// Config contains heatmap service configuration.
type Config struct {
	Store       *dsstore.Store
	Cache       *cache.Manager
	Renderer    *render.HeatmapRenderer
	SheetName   string
	DefaultMode scale.Mode
}

// HeatmapService owns the dataset lifecycle: upload, retrieval, rendering,
// export and deletion. Loaded datasets are kept in memory and treated as
// read-only after construction.
type HeatmapService struct {
	store       *dsstore.Store
	cache       *cache.Manager
	renderer    *render.HeatmapRenderer
	sheetName   string
	defaultMode scale.Mode

	mu       sync.RWMutex
	datasets map[string]*dsstore.DatasetRecord
}

// NewHeatmapService creates a new heatmap service.
func NewHeatmapService(cfg Config) *HeatmapService {
	mode := cfg.DefaultMode
	if mode == "" {
		mode = scale.ModeLinear
	}
	return &HeatmapService{
		store:       cfg.Store,
		cache:       cfg.Cache,
		renderer:    cfg.Renderer,
		sheetName:   cfg.SheetName,
		defaultMode: mode,
		datasets:    make(map[string]*dsstore.DatasetRecord),
	}
}

// LoadFromStore rehydrates the in-memory registry from persisted datasets.
func (s *HeatmapService) LoadFromStore() (int, error) {
	metas, err := s.store.ListDatasets()
	if err != nil {
		return 0, fmt.Errorf("failed to list datasets: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, m := range metas {
		rec, err := s.store.GetDataset(m.ID)
		if err != nil {
			return 0, fmt.Errorf("failed to load dataset %s: %w", m.ID, err)
		}
		if rec != nil {
			s.datasets[rec.ID] = rec
		}
	}
	return len(metas), nil
}

// Upload decodes a spreadsheet, runs the pipeline and persists the result.
// On any pipeline error nothing is stored and every previously uploaded
// dataset stays untouched.
func (s *HeatmapService) Upload(name string, r io.Reader, format tabio.Format) (*dsstore.DatasetRecord, error) {
	table, err := tabio.Decode(r, format, s.sheetName)
	if err != nil {
		return nil, err
	}

	result, err := pipeline.Build(table)
	if err != nil {
		return nil, err
	}

	rec := &dsstore.DatasetRecord{
		ID:          uuid.NewString(),
		Name:        name,
		CreatedAt:   time.Now().UTC(),
		Dataset:     result.Dataset,
		Diagnostics: result.Diagnostics,
		Warnings:    result.Warnings,
	}

	if err := s.store.SaveDataset(rec); err != nil {
		return nil, fmt.Errorf("failed to persist dataset: %w", err)
	}

	s.mu.Lock()
	s.datasets[rec.ID] = rec
	s.mu.Unlock()

	return rec, nil
}

// Get returns a loaded dataset record, or ErrDatasetNotFound.
func (s *HeatmapService) Get(id string) (*dsstore.DatasetRecord, error) {
	s.mu.RLock()
	rec, ok := s.datasets[id]
	s.mu.RUnlock()
	if !ok {
		return nil, ErrDatasetNotFound
	}
	return rec, nil
}

// List returns metadata for all loaded datasets, newest first.
func (s *HeatmapService) List() []*dsstore.DatasetMeta {
	s.mu.RLock()
	defer s.mu.RUnlock()

	metas := make([]*dsstore.DatasetMeta, 0, len(s.datasets))
	for _, rec := range s.datasets {
		metas = append(metas, &dsstore.DatasetMeta{
			ID:          rec.ID,
			Name:        rec.Name,
			CreatedAt:   rec.CreatedAt,
			GeneCount:   len(rec.Dataset.Genes),
			Comparisons: rec.Dataset.ComparisonNames,
		})
	}
	sort.Slice(metas, func(i, j int) bool {
		return metas[i].CreatedAt.After(metas[j].CreatedAt)
	})
	return metas
}

// Delete removes a dataset from memory, the store and the caches.
func (s *HeatmapService) Delete(id string) error {
	s.mu.Lock()
	_, ok := s.datasets[id]
	delete(s.datasets, id)
	s.mu.Unlock()
	if !ok {
		return ErrDatasetNotFound
	}

	s.cache.InvalidateDataset(id)
	return s.store.DeleteDataset(id)
}

// DefaultMode returns the configured color mode.
func (s *HeatmapService) DefaultMode() scale.Mode {
	return s.defaultMode
}

// RenderHeatmap renders (or serves the cached) PNG heatmap for a dataset.
func (s *HeatmapService) RenderHeatmap(id string, mode scale.Mode, fontSize float64) ([]byte, error) {
	rec, err := s.Get(id)
	if err != nil {
		return nil, err
	}

	key := cache.ImageKey(id, string(mode), fontSize)
	if img, ok := s.cache.GetImage(key); ok {
		return img, nil
	}

	img, err := s.renderer.Render(rec.Dataset, mode, fontSize)
	if err != nil {
		return nil, err
	}
	if err := s.cache.SetImage(key, img); err != nil {
		return nil, err
	}
	return img, nil
}

// Export serializes the dataset's flattened projection in the requested
// spreadsheet format.
func (s *HeatmapService) Export(id string, format tabio.Format) ([]byte, error) {
	rec, err := s.Get(id)
	if err != nil {
		return nil, err
	}

	key := cache.ExportKey(id, string(format))
	if data, ok := s.cache.GetExport(key); ok {
		return data, nil
	}

	var buf bytes.Buffer
	if err := tabio.Encode(&buf, pipeline.Export(rec.Dataset), format); err != nil {
		return nil, err
	}

	data := buf.Bytes()
	s.cache.SetExport(key, data)
	return data, nil
}

// ColorMatrix maps every cell of the dataset through the color scale:
// one row per gene in final order, one hex color per comparison.
func (s *HeatmapService) ColorMatrix(id string, mode scale.Mode) ([][]string, error) {
	rec, err := s.Get(id)
	if err != nil {
		return nil, err
	}

	var all []*float64
	for _, g := range rec.Dataset.Genes {
		all = append(all, g.Values...)
	}
	sc := scale.New(mode, all)

	matrix := make([][]string, len(rec.Dataset.Genes))
	for i, g := range rec.Dataset.Genes {
		row := make([]string, len(rec.Dataset.ComparisonNames))
		for j := range row {
			var v *float64
			if j < len(g.Values) {
				v = g.Values[j]
			}
			row[j] = sc.ColorFor(v)
		}
		matrix[i] = row
	}
	return matrix, nil
}
