// Package dsstore provides persistent storage for uploaded datasets using
// SQLite. Gene payloads are stored as zstd-compressed JSON blobs; listing
// metadata stays in plain columns.
package dsstore

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/klauspost/compress/zstd"
	_ "modernc.org/sqlite"

	"github.com/foldmap/server/internal/pipeline"
)

// DatasetRecord is the persisted form of one upload.
type DatasetRecord struct {
	ID          string
	Name        string
	CreatedAt   time.Time
	Dataset     *pipeline.Dataset
	Diagnostics []pipeline.RowDiagnostic
	Warnings    []string
}

// DatasetMeta is the listing projection of a record, without the gene
// payload.
type DatasetMeta struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	CreatedAt   time.Time `json:"created_at"`
	GeneCount   int       `json:"gene_count"`
	Comparisons []string  `json:"comparisons"`
}

// Store provides persistent storage for datasets using SQLite.
type Store struct {
	db  *sql.DB
	mu  sync.Mutex
	enc *zstd.Encoder
	dec *zstd.Decoder
}

// NewStore creates a new SQLite-based dataset store.
func NewStore(dbPath string) (*Store, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory for sqlite: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite: %w", err)
	}

	// Enable WAL mode for better concurrency
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}

	enc, err := zstd.NewWriter(nil)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create zstd encoder: %w", err)
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create zstd decoder: %w", err)
	}

	s := &Store{db: db, enc: enc, dec: dec}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	s.enc.Close()
	s.dec.Close()
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS datasets (
		dataset_id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		created_at TEXT NOT NULL,
		n_genes INTEGER NOT NULL,
		comparisons_json TEXT NOT NULL,
		segments_json TEXT NOT NULL,
		diagnostics_json TEXT NOT NULL,
		warnings_json TEXT NOT NULL,
		genes_blob BLOB NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_datasets_created ON datasets(created_at);
	`
	_, err := s.db.Exec(schema)
	return err
}

// SaveDataset inserts a dataset record. Saving is all-or-nothing; an
// existing record with the same ID is an error, never a partial overwrite.
func (s *Store) SaveDataset(rec *DatasetRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	genesJSON, err := json.Marshal(rec.Dataset.Genes)
	if err != nil {
		return fmt.Errorf("failed to marshal genes: %w", err)
	}
	blob := s.enc.EncodeAll(genesJSON, nil)

	comparisonsJSON, err := json.Marshal(rec.Dataset.ComparisonNames)
	if err != nil {
		return fmt.Errorf("failed to marshal comparisons: %w", err)
	}
	segmentsJSON, err := json.Marshal(rec.Dataset.Segments)
	if err != nil {
		return fmt.Errorf("failed to marshal segments: %w", err)
	}
	diagnosticsJSON, err := json.Marshal(rec.Diagnostics)
	if err != nil {
		return fmt.Errorf("failed to marshal diagnostics: %w", err)
	}
	warningsJSON, err := json.Marshal(rec.Warnings)
	if err != nil {
		return fmt.Errorf("failed to marshal warnings: %w", err)
	}

	_, err = s.db.Exec(`
		INSERT INTO datasets (dataset_id, name, created_at, n_genes, comparisons_json, segments_json, diagnostics_json, warnings_json, genes_blob)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		rec.ID,
		rec.Name,
		rec.CreatedAt.Format(time.RFC3339),
		len(rec.Dataset.Genes),
		string(comparisonsJSON),
		string(segmentsJSON),
		string(diagnosticsJSON),
		string(warningsJSON),
		blob,
	)
	return err
}

// GetDataset retrieves a full dataset record by ID. Returns nil, nil when
// the ID is unknown.
func (s *Store) GetDataset(id string) (*DatasetRecord, error) {
	row := s.db.QueryRow(`
		SELECT dataset_id, name, created_at, comparisons_json, segments_json, diagnostics_json, warnings_json, genes_blob
		FROM datasets WHERE dataset_id = ?
	`, id)

	var rec DatasetRecord
	var createdAtStr string
	var comparisonsJSON, segmentsJSON, diagnosticsJSON, warningsJSON string
	var blob []byte

	err := row.Scan(
		&rec.ID,
		&rec.Name,
		&createdAtStr,
		&comparisonsJSON,
		&segmentsJSON,
		&diagnosticsJSON,
		&warningsJSON,
		&blob,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	genesJSON, err := s.dec.DecodeAll(blob, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to decompress genes: %w", err)
	}

	ds := &pipeline.Dataset{}
	if err := json.Unmarshal(genesJSON, &ds.Genes); err != nil {
		return nil, fmt.Errorf("failed to unmarshal genes: %w", err)
	}
	if err := json.Unmarshal([]byte(comparisonsJSON), &ds.ComparisonNames); err != nil {
		return nil, fmt.Errorf("failed to unmarshal comparisons: %w", err)
	}
	if err := json.Unmarshal([]byte(segmentsJSON), &ds.Segments); err != nil {
		return nil, fmt.Errorf("failed to unmarshal segments: %w", err)
	}
	if err := json.Unmarshal([]byte(diagnosticsJSON), &rec.Diagnostics); err != nil {
		return nil, fmt.Errorf("failed to unmarshal diagnostics: %w", err)
	}
	if err := json.Unmarshal([]byte(warningsJSON), &rec.Warnings); err != nil {
		return nil, fmt.Errorf("failed to unmarshal warnings: %w", err)
	}

	rec.Dataset = ds
	rec.CreatedAt, _ = time.Parse(time.RFC3339, createdAtStr)
	return &rec, nil
}

// ListDatasets returns metadata for all stored datasets, newest first.
func (s *Store) ListDatasets() ([]*DatasetMeta, error) {
	rows, err := s.db.Query(`
		SELECT dataset_id, name, created_at, n_genes, comparisons_json
		FROM datasets ORDER BY created_at DESC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var metas []*DatasetMeta
	for rows.Next() {
		var m DatasetMeta
		var createdAtStr, comparisonsJSON string
		if err := rows.Scan(&m.ID, &m.Name, &createdAtStr, &m.GeneCount, &comparisonsJSON); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(comparisonsJSON), &m.Comparisons); err != nil {
			return nil, fmt.Errorf("failed to unmarshal comparisons: %w", err)
		}
		m.CreatedAt, _ = time.Parse(time.RFC3339, createdAtStr)
		metas = append(metas, &m)
	}
	return metas, rows.Err()
}

// DeleteDataset removes a dataset by ID.
func (s *Store) DeleteDataset(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec("DELETE FROM datasets WHERE dataset_id = ?", id)
	return err
}

// DeleteExpired deletes datasets older than retentionDays.
func (s *Store) DeleteExpired(retentionDays int) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := time.Now().AddDate(0, 0, -retentionDays).Format(time.RFC3339)
	result, err := s.db.Exec("DELETE FROM datasets WHERE created_at < ?", cutoff)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
