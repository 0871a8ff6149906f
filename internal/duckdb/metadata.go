package duckdb

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/cellarium-ai/validate-schema/internal/organism"
)

// FileFingerprint holds stat-based identity for a gene file.
type FileFingerprint struct {
	Path    string
	Size    int64
	ModTime time.Time
}

// StatFile creates a FileFingerprint from an on-disk file.
func StatFile(path string) (FileFingerprint, error) {
	info, err := os.Stat(path)
	if err != nil {
		return FileFingerprint{}, err
	}
	return FileFingerprint{
		Path:    path,
		Size:    info.Size(),
		ModTime: info.ModTime(),
	}, nil
}

func (s *Store) ensureSourceSchema() error {
	_, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS gene_sources (
		organism VARCHAR,
		gencode_version INTEGER,
		path VARCHAR,
		size BIGINT,
		mod_time VARCHAR,
		PRIMARY KEY (organism, gencode_version)
	)`)
	return err
}

// RecordSource remembers which gene file the table for (org, version) was built from.
func (s *Store) RecordSource(org organism.Organism, version int, fp FileFingerprint) error {
	if _, err := s.db.Exec(`DELETE FROM gene_sources WHERE organism = ? AND gencode_version = ?`,
		string(org), version); err != nil {
		return fmt.Errorf("clear gene source: %w", err)
	}
	if _, err := s.db.Exec(`INSERT INTO gene_sources VALUES (?, ?, ?, ?, ?)`,
		string(org), version, fp.Path, fp.Size, fp.ModTime.UTC().Format(time.RFC3339Nano)); err != nil {
		return fmt.Errorf("record gene source: %w", err)
	}
	return nil
}

// SourceCurrent reports whether the stored table for (org, version) was built
// from a file with the same size and modification time as fp.
func (s *Store) SourceCurrent(org organism.Organism, version int, fp FileFingerprint) (bool, error) {
	var size int64
	var modTime string
	err := s.db.QueryRow(
		`SELECT size, mod_time FROM gene_sources WHERE organism = ? AND gencode_version = ?`,
		string(org), version,
	).Scan(&size, &modTime)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("read gene source: %w", err)
	}
	return size == fp.Size && modTime == fp.ModTime.UTC().Format(time.RFC3339Nano), nil
}
