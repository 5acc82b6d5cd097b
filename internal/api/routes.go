// Package api provides HTTP handlers for the FoldMap server.
package api

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/foldmap/server/internal/dsstore"
	"github.com/foldmap/server/internal/pipeline"
	"github.com/foldmap/server/internal/scale"
	"github.com/foldmap/server/internal/service"
	"github.com/foldmap/server/internal/tabio"
)

// RouterConfig contains router configuration.
type RouterConfig struct {
	Service        *service.HeatmapService
	CORSOrigins    []string
	Title          string
	MaxUploadBytes int64
}

// NewRouter creates a new HTTP router.
func NewRouter(cfg RouterConfig) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))

	// CORS
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	r.Route("/api/datasets", func(r chi.Router) {
		r.Get("/", listDatasetsHandler(cfg.Service, cfg.Title))
		r.Post("/", uploadHandler(cfg.Service, cfg.MaxUploadBytes))
		r.Delete("/{dataset}", deleteDatasetHandler(cfg.Service))
	})

	// Dataset-scoped routes: /d/{dataset}/...
	r.Route("/d/{dataset}", func(r chi.Router) {
		r.Get("/heatmap.png", heatmapHandler(cfg.Service))
		r.Get("/export.csv", exportHandler(cfg.Service, tabio.FormatCSV))
		r.Get("/export.xlsx", exportHandler(cfg.Service, tabio.FormatXLSX))

		r.Route("/api", func(r chi.Router) {
			r.Get("/genes", genesHandler(cfg.Service))
			r.Get("/segments", segmentsHandler(cfg.Service))
			r.Get("/diagnostics", diagnosticsHandler(cfg.Service))
			r.Get("/colors", colorsHandler(cfg.Service))
		})
	})

	return r
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("Failed to encode response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// uploadStatus picks the HTTP status for an upload failure: pipeline
// errors are the user's data, everything else is ours.
func uploadStatus(err error) int {
	var schemaErr *pipeline.SchemaError
	var dataErr *pipeline.DataError
	if errors.As(err, &schemaErr) || errors.As(err, &dataErr) {
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}

type uploadResponse struct {
	Dataset     *dsstore.DatasetMeta     `json:"dataset"`
	Warnings    []string                 `json:"warnings,omitempty"`
	Diagnostics []pipeline.RowDiagnostic `json:"diagnostics,omitempty"`
}

func uploadHandler(svc *service.HeatmapService, maxBytes int64) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxBytes)

		file, header, err := r.FormFile("file")
		if err != nil {
			writeError(w, http.StatusBadRequest, "missing file field: "+err.Error())
			return
		}
		defer file.Close()

		format, err := tabio.FormatForFilename(header.Filename)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}

		name := r.FormValue("name")
		if name == "" {
			name = header.Filename
		}

		rec, err := svc.Upload(name, file, format)
		if err != nil {
			writeError(w, uploadStatus(err), err.Error())
			return
		}

		writeJSON(w, http.StatusCreated, uploadResponse{
			Dataset: &dsstore.DatasetMeta{
				ID:          rec.ID,
				Name:        rec.Name,
				CreatedAt:   rec.CreatedAt,
				GeneCount:   len(rec.Dataset.Genes),
				Comparisons: rec.Dataset.ComparisonNames,
			},
			Warnings:    rec.Warnings,
			Diagnostics: rec.Diagnostics,
		})
	}
}

func listDatasetsHandler(svc *service.HeatmapService, title string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"title":    title,
			"datasets": svc.List(),
		})
	}
}

func deleteDatasetHandler(svc *service.HeatmapService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "dataset")
		if err := svc.Delete(id); err != nil {
			if errors.Is(err, service.ErrDatasetNotFound) {
				writeError(w, http.StatusNotFound, err.Error())
				return
			}
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func genesHandler(svc *service.HeatmapService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rec, err := svc.Get(chi.URLParam(r, "dataset"))
		if err != nil {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}

		genes := rec.Dataset.Genes
		offset := queryInt(r, "offset", 0)
		limit := queryInt(r, "limit", len(genes))
		if offset < 0 || offset > len(genes) {
			offset = len(genes)
		}
		end := offset + limit
		if limit <= 0 || end > len(genes) {
			end = len(genes)
		}

		writeJSON(w, http.StatusOK, map[string]interface{}{
			"genes":       genes[offset:end],
			"comparisons": rec.Dataset.ComparisonNames,
			"total":       len(genes),
			"offset":      offset,
		})
	}
}

func segmentsHandler(svc *service.HeatmapService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rec, err := svc.Get(chi.URLParam(r, "dataset"))
		if err != nil {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"segments": rec.Dataset.Segments,
		})
	}
}

func diagnosticsHandler(svc *service.HeatmapService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rec, err := svc.Get(chi.URLParam(r, "dataset"))
		if err != nil {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"diagnostics": rec.Diagnostics,
			"warnings":    rec.Warnings,
		})
	}
}

func colorsHandler(svc *service.HeatmapService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		mode, err := parseMode(r, svc)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}

		matrix, err := svc.ColorMatrix(chi.URLParam(r, "dataset"), mode)
		if err != nil {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"mode":   mode,
			"colors": matrix,
		})
	}
}

func heatmapHandler(svc *service.HeatmapService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		mode, err := parseMode(r, svc)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}

		fontSize := 0.0
		if fs := r.URL.Query().Get("font_size"); fs != "" {
			fontSize, err = strconv.ParseFloat(fs, 64)
			if err != nil || fontSize <= 0 {
				writeError(w, http.StatusBadRequest, "font_size must be a positive number")
				return
			}
		}

		img, err := svc.RenderHeatmap(chi.URLParam(r, "dataset"), mode, fontSize)
		if err != nil {
			if errors.Is(err, service.ErrDatasetNotFound) {
				writeError(w, http.StatusNotFound, err.Error())
				return
			}
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}

		w.Header().Set("Content-Type", "image/png")
		w.Header().Set("Cache-Control", "public, max-age=60")
		w.Write(img)
	}
}

func exportHandler(svc *service.HeatmapService, format tabio.Format) http.HandlerFunc {
	contentType := "text/csv"
	if format == tabio.FormatXLSX {
		contentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	}

	return func(w http.ResponseWriter, r *http.Request) {
		data, err := svc.Export(chi.URLParam(r, "dataset"), format)
		if err != nil {
			if errors.Is(err, service.ErrDatasetNotFound) {
				writeError(w, http.StatusNotFound, err.Error())
				return
			}
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}

		w.Header().Set("Content-Type", contentType)
		w.Header().Set("Content-Disposition", `attachment; filename="heatmap-export.`+string(format)+`"`)
		w.Write(data)
	}
}

func parseMode(r *http.Request, svc *service.HeatmapService) (scale.Mode, error) {
	raw := r.URL.Query().Get("mode")
	if raw == "" {
		return svc.DefaultMode(), nil
	}
	return scale.ParseMode(raw)
}

func queryInt(r *http.Request, name string, def int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return v
}
