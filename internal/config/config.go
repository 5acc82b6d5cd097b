// Package config handles configuration loading for the FoldMap server.
package config

import (
	"os"

	"gopkg.in/yaml.v3"
)

// Config represents the server configuration.
type Config struct {
	Server ServerConfig `yaml:"server"`
	Upload UploadConfig `yaml:"upload"`
	Render RenderConfig `yaml:"render"`
	Cache  CacheConfig  `yaml:"cache"`
	Store  StoreConfig  `yaml:"store"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Port        int      `yaml:"port"`
	CORSOrigins []string `yaml:"cors_origins"`
	Title       string   `yaml:"title"`
}

// UploadConfig contains spreadsheet upload settings.
type UploadConfig struct {
	MaxSizeMB int    `yaml:"max_size_mb"`
	SheetName string `yaml:"sheet_name"` // empty selects the first sheet
}

// RenderConfig contains heatmap rendering settings.
type RenderConfig struct {
	RowHeight   float64 `yaml:"row_height"`
	FontSize    float64 `yaml:"font_size"`
	FontPath    string  `yaml:"font_path"`
	DefaultMode string  `yaml:"default_mode"`
	CellPadding float64 `yaml:"cell_padding"`
	MinColWidth float64 `yaml:"min_col_width"`
}

// CacheConfig contains caching settings.
type CacheConfig struct {
	ImageSizeMB     int `yaml:"image_size_mb"`
	ImageTTLMinutes int `yaml:"image_ttl_minutes"`
	ExportCacheSize int `yaml:"export_cache_size"`
}

// StoreConfig contains dataset persistence settings.
type StoreConfig struct {
	SQLitePath    string `yaml:"sqlite_path"`
	RetentionDays int    `yaml:"retention_days"`
}

// Load reads configuration from a YAML file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		// Return default config if file doesn't exist
		return DefaultConfig(), nil
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	// Apply defaults for missing values
	applyDefaults(&cfg)

	return &cfg, nil
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:        8080,
			CORSOrigins: []string{"http://localhost:3000", "http://localhost:5173"},
			Title:       "FoldMap",
		},
		Upload: UploadConfig{
			MaxSizeMB: 32,
		},
		Render: RenderConfig{
			RowHeight:   18,
			FontSize:    12,
			DefaultMode: "linear",
			CellPadding: 16,
			MinColWidth: 60,
		},
		Cache: CacheConfig{
			ImageSizeMB:     256,
			ImageTTLMinutes: 10,
			ExportCacheSize: 100,
		},
		Store: StoreConfig{
			SQLitePath:    "./data/datasets.sqlite",
			RetentionDays: 30,
		},
	}
}

func applyDefaults(cfg *Config) {
	defaults := DefaultConfig()

	if cfg.Server.Port == 0 {
		cfg.Server.Port = defaults.Server.Port
	}
	if len(cfg.Server.CORSOrigins) == 0 {
		cfg.Server.CORSOrigins = defaults.Server.CORSOrigins
	}
	if cfg.Server.Title == "" {
		cfg.Server.Title = defaults.Server.Title
	}
	if cfg.Upload.MaxSizeMB == 0 {
		cfg.Upload.MaxSizeMB = defaults.Upload.MaxSizeMB
	}
	if cfg.Render.RowHeight == 0 {
		cfg.Render.RowHeight = defaults.Render.RowHeight
	}
	if cfg.Render.FontSize == 0 {
		cfg.Render.FontSize = defaults.Render.FontSize
	}
	if cfg.Render.DefaultMode == "" {
		cfg.Render.DefaultMode = defaults.Render.DefaultMode
	}
	if cfg.Render.CellPadding == 0 {
		cfg.Render.CellPadding = defaults.Render.CellPadding
	}
	if cfg.Render.MinColWidth == 0 {
		cfg.Render.MinColWidth = defaults.Render.MinColWidth
	}
	if cfg.Cache.ImageSizeMB == 0 {
		cfg.Cache.ImageSizeMB = defaults.Cache.ImageSizeMB
	}
	if cfg.Cache.ImageTTLMinutes == 0 {
		cfg.Cache.ImageTTLMinutes = defaults.Cache.ImageTTLMinutes
	}
	if cfg.Cache.ExportCacheSize == 0 {
		cfg.Cache.ExportCacheSize = defaults.Cache.ExportCacheSize
	}
	if cfg.Store.SQLitePath == "" {
		cfg.Store.SQLitePath = defaults.Store.SQLitePath
	}
	if cfg.Store.RetentionDays == 0 {
		cfg.Store.RetentionDays = defaults.Store.RetentionDays
	}
}
