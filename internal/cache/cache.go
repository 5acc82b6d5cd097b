// Package cache provides caching for rendered heatmaps and export payloads.
package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/allegro/bigcache/v3"
	lru "github.com/hashicorp/golang-lru/v2"
)

// Config contains cache configuration.
type Config struct {
	ImageCacheSizeMB int
	ImageTTL         time.Duration
	ExportCacheSize  int
}

// Manager manages the heatmap image and export caches.
type Manager struct {
	imageCache  *bigcache.BigCache
	exportCache *lru.Cache[string, []byte]
}

// NewManager creates a new cache manager.
func NewManager(cfg Config) (*Manager, error) {
	imageCacheConfig := bigcache.Config{
		Shards:             64,
		LifeWindow:         cfg.ImageTTL,
		CleanWindow:        cfg.ImageTTL / 2,
		MaxEntriesInWindow: 10000,
		MaxEntrySize:       4 * 1024 * 1024, // rendered heatmaps can be large
		HardMaxCacheSize:   cfg.ImageCacheSizeMB,
		Verbose:            false,
	}

	imageCache, err := bigcache.New(context.Background(), imageCacheConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create image cache: %w", err)
	}

	exportCache, err := lru.New[string, []byte](cfg.ExportCacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create export cache: %w", err)
	}

	return &Manager{
		imageCache:  imageCache,
		exportCache: exportCache,
	}, nil
}

// GetImage retrieves a rendered heatmap from cache.
func (m *Manager) GetImage(key string) ([]byte, bool) {
	data, err := m.imageCache.Get(key)
	if err != nil {
		return nil, false
	}
	return data, true
}

// SetImage stores a rendered heatmap in cache.
func (m *Manager) SetImage(key string, data []byte) error {
	return m.imageCache.Set(key, data)
}

// GetExport retrieves an export payload from cache.
func (m *Manager) GetExport(key string) ([]byte, bool) {
	return m.exportCache.Get(key)
}

// SetExport stores an export payload in cache.
func (m *Manager) SetExport(key string, data []byte) {
	m.exportCache.Add(key, data)
}

// InvalidateDataset drops all export entries for a dataset. Image entries
// age out via TTL; exports are keyed per dataset so they can be removed
// eagerly when a dataset is deleted.
func (m *Manager) InvalidateDataset(datasetID string) {
	for _, key := range m.exportCache.Keys() {
		if len(key) >= len(datasetID) && key[:len(datasetID)] == datasetID {
			m.exportCache.Remove(key)
		}
	}
}

// ImageKey generates a cache key for a rendered heatmap.
func ImageKey(datasetID, mode string, fontSize float64) string {
	return fmt.Sprintf("heatmap:%s:%s:%.1f", datasetID, mode, fontSize)
}

// ExportKey generates a cache key for an export payload.
func ExportKey(datasetID, format string) string {
	return fmt.Sprintf("%s:export:%s", datasetID, format)
}

// Stats returns cache statistics.
func (m *Manager) Stats() map[string]interface{} {
	return map[string]interface{}{
		"image_cache_len":  m.imageCache.Len(),
		"image_cache_cap":  m.imageCache.Capacity(),
		"export_cache_len": m.exportCache.Len(),
	}
}

// Close closes the cache manager.
func (m *Manager) Close() error {
	return m.imageCache.Close()
}
