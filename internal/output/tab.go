// Package output provides output formatting for gene lookups and validation results.
package output

import (
	"bufio"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/cellarium-ai/validate-schema/internal/gencode"
)

// GeneRow is one looked-up feature ID.
type GeneRow struct {
	FeatureID string
	Organism  string
	Found     bool
	Gene      gencode.Gene
	// Problem is the validation message for the ID, if any.
	Problem string
}

// GeneTabWriter writes gene rows in tab-delimited format.
type GeneTabWriter struct {
	w       *bufio.Writer
	columns []string
}

// NewGeneTabWriter creates a new tab-delimited writer.
func NewGeneTabWriter(w io.Writer) *GeneTabWriter {
	return &GeneTabWriter{
		w: bufio.NewWriter(w),
		columns: []string{
			"#feature_id",
			"organism",
			"feature_name",
			"feature_length",
			"feature_type",
			"status",
		},
	}
}

// WriteHeader writes the header line.
func (tw *GeneTabWriter) WriteHeader() error {
	_, err := tw.w.WriteString(strings.Join(tw.columns, "\t") + "\n")
	return err
}

// Write writes a single row. Unknown values are written as "-".
func (tw *GeneTabWriter) Write(row GeneRow) error {
	org := row.Organism
	if org == "" {
		org = "-"
	}

	name, length, typ := "-", "-", "-"
	if row.Found {
		name = row.Gene.Label
		length = strconv.Itoa(row.Gene.Length)
		typ = row.Gene.Type
	}

	status := "valid"
	if row.Problem != "" {
		status = row.Problem
	}

	values := []string{row.FeatureID, org, name, length, typ, status}
	_, err := tw.w.WriteString(strings.Join(values, "\t") + "\n")
	return err
}

// WriteTable writes every gene of a table, sorted by gene ID.
func (tw *GeneTabWriter) WriteTable(org string, genes gencode.GeneTable) error {
	for _, id := range SortedIDs(genes) {
		if err := tw.Write(GeneRow{FeatureID: id, Organism: org, Found: true, Gene: genes[id]}); err != nil {
			return err
		}
	}
	return nil
}

// Flush flushes any buffered data to the underlying writer.
func (tw *GeneTabWriter) Flush() error {
	return tw.w.Flush()
}

// SortedIDs returns the gene IDs of a table in sorted order.
func SortedIDs(genes gencode.GeneTable) []string {
	ids := make([]string, 0, len(genes))
	for id := range genes {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
