// Package main is the entry point for the FoldMap server.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/foldmap/server/internal/api"
	"github.com/foldmap/server/internal/cache"
	"github.com/foldmap/server/internal/config"
	"github.com/foldmap/server/internal/dsstore"
	"github.com/foldmap/server/internal/render"
	"github.com/foldmap/server/internal/scale"
	"github.com/foldmap/server/internal/service"
)

func main() {
	// Parse command line flags
	configPath := flag.String("config", "config/server.yaml", "Path to configuration file")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	log.Printf("Starting %s server on port %d", cfg.Server.Title, cfg.Server.Port)

	defaultMode, err := scale.ParseMode(cfg.Render.DefaultMode)
	if err != nil {
		log.Fatalf("Invalid default color mode: %v", err)
	}

	// Initialize cache manager
	cacheManager, err := cache.NewManager(cache.Config{
		ImageCacheSizeMB: cfg.Cache.ImageSizeMB,
		ImageTTL:         time.Duration(cfg.Cache.ImageTTLMinutes) * time.Minute,
		ExportCacheSize:  cfg.Cache.ExportCacheSize,
	})
	if err != nil {
		log.Fatalf("Failed to initialize cache: %v", err)
	}
	defer cacheManager.Close()

	// Initialize heatmap renderer
	heatmapRenderer := render.NewHeatmapRenderer(render.Config{
		RowHeight:   cfg.Render.RowHeight,
		FontSize:    cfg.Render.FontSize,
		FontPath:    cfg.Render.FontPath,
		CellPadding: cfg.Render.CellPadding,
		MinColWidth: cfg.Render.MinColWidth,
	})

	// Initialize dataset store
	store, err := dsstore.NewStore(cfg.Store.SQLitePath)
	if err != nil {
		log.Fatalf("Failed to initialize dataset store: %v", err)
	}
	defer store.Close()
	log.Printf("Dataset store: sqlite=%s, retention_days=%d", cfg.Store.SQLitePath, cfg.Store.RetentionDays)

	// Initialize heatmap service and reload persisted datasets
	heatmapService := service.NewHeatmapService(service.Config{
		Store:       store,
		Cache:       cacheManager,
		Renderer:    heatmapRenderer,
		SheetName:   cfg.Upload.SheetName,
		DefaultMode: defaultMode,
	})
	n, err := heatmapService.LoadFromStore()
	if err != nil {
		log.Fatalf("Failed to reload datasets: %v", err)
	}
	log.Printf("Reloaded %d dataset(s) from store", n)

	// Periodic retention sweep
	sweepCtx, stopSweep := context.WithCancel(context.Background())
	defer stopSweep()
	go func() {
		ticker := time.NewTicker(1 * time.Hour)
		defer ticker.Stop()
		for {
			select {
			case <-sweepCtx.Done():
				return
			case <-ticker.C:
				removed, err := store.DeleteExpired(cfg.Store.RetentionDays)
				if err != nil {
					log.Printf("Retention sweep failed: %v", err)
					continue
				}
				if removed > 0 {
					log.Printf("Retention sweep removed %d dataset(s)", removed)
				}
			}
		}
	}()

	// Set up HTTP router
	router := api.NewRouter(api.RouterConfig{
		Service:        heatmapService,
		CORSOrigins:    cfg.Server.CORSOrigins,
		Title:          cfg.Server.Title,
		MaxUploadBytes: int64(cfg.Upload.MaxSizeMB) * 1024 * 1024,
	})

	// Create HTTP server
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Printf("Server listening on http://localhost:%d", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
	}

	log.Println("Server stopped")
}
