// Package duckdb stores gene tables in DuckDB for querying outside this tool.
package duckdb

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	_ "github.com/marcboeker/go-duckdb"

	"github.com/cellarium-ai/validate-schema/internal/gencode"
	"github.com/cellarium-ai/validate-schema/internal/organism"
)

// Store manages a DuckDB connection holding gene tables.
type Store struct {
	db   *sql.DB
	path string
}

// Open opens or creates a DuckDB database at the given path.
// Use an empty string for an in-memory database.
func Open(path string) (*Store, error) {
	if path != "" {
		dir := filepath.Dir(path)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create output directory: %w", err)
		}
	}

	db, err := sql.Open("duckdb", path)
	if err != nil {
		return nil, fmt.Errorf("open duckdb: %w", err)
	}

	s := &Store{db: db, path: path}
	if err := s.ensureSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) ensureSchema() error {
	_, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS genes (
		organism VARCHAR,
		gencode_version INTEGER,
		gene_id VARCHAR,
		gene_label VARCHAR,
		gene_length BIGINT,
		gene_type VARCHAR,
		PRIMARY KEY (organism, gencode_version, gene_id)
	)`)
	if err != nil {
		return err
	}
	return s.ensureSourceSchema()
}

// WriteGeneTable replaces the rows for (org, version) with the contents of genes.
// The old rows are deleted in their own transaction: DuckDB rejects re-inserting a
// primary key deleted earlier in the same transaction.
func (s *Store) WriteGeneTable(org organism.Organism, version int, genes gencode.GeneTable) error {
	if _, err := s.db.Exec(`DELETE FROM genes WHERE organism = ? AND gencode_version = ?`, string(org), version); err != nil {
		return fmt.Errorf("clear gene table: %w", err)
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`INSERT INTO genes VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	ids := make([]string, 0, len(genes))
	for id := range genes {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		g := genes[id]
		if _, err := stmt.Exec(string(org), version, id, g.Label, int64(g.Length), g.Type); err != nil {
			return fmt.Errorf("insert gene %s: %w", id, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit gene table: %w", err)
	}
	return nil
}

// LookupGene returns one gene, or false when it is not stored.
func (s *Store) LookupGene(org organism.Organism, version int, id string) (gencode.Gene, bool, error) {
	var g gencode.Gene
	var length int64
	err := s.db.QueryRow(
		`SELECT gene_label, gene_length, gene_type FROM genes
		WHERE organism = ? AND gencode_version = ? AND gene_id = ?`,
		string(org), version, id,
	).Scan(&g.Label, &length, &g.Type)
	if errors.Is(err, sql.ErrNoRows) {
		return gencode.Gene{}, false, nil
	}
	if err != nil {
		return gencode.Gene{}, false, fmt.Errorf("lookup gene %s: %w", id, err)
	}
	g.Length = int(length)
	return g, true, nil
}

// Count returns the number of genes stored for (org, version).
func (s *Store) Count(org organism.Organism, version int) (int64, error) {
	var count int64
	err := s.db.QueryRow(
		`SELECT COUNT(*) FROM genes WHERE organism = ? AND gencode_version = ?`,
		string(org), version,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count genes: %w", err)
	}
	return count, nil
}

// CountByType returns the number of stored genes per biotype for (org, version).
func (s *Store) CountByType(org organism.Organism, version int) (map[string]int64, error) {
	rows, err := s.db.Query(
		`SELECT gene_type, COUNT(*) FROM genes
		WHERE organism = ? AND gencode_version = ?
		GROUP BY gene_type`,
		string(org), version,
	)
	if err != nil {
		return nil, fmt.Errorf("count genes by type: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int64)
	for rows.Next() {
		var typ string
		var n int64
		if err := rows.Scan(&typ, &n); err != nil {
			return nil, fmt.Errorf("scan gene type count: %w", err)
		}
		counts[typ] = n
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("gene type rows: %w", err)
	}
	return counts, nil
}
