// Package gencode loads gene ID lookup tables keyed by organism and GENCODE release.
package gencode

import (
	"bufio"
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/cellarium-ai/validate-schema/internal/organism"
)

// Gene is one row of a gene table.
type Gene struct {
	Label  string
	Length int
	Type   string
}

// GeneTable maps gene IDs to their annotation.
type GeneTable map[string]Gene

// Loader builds gene checkers from the files it was configured with.
type Loader struct {
	files  *Files
	logger *zap.Logger
}

// NewLoader creates a loader reading from files.
func NewLoader(files *Files) *Loader {
	return &Loader{
		files:  files,
		logger: zap.NewNop(),
	}
}

// SetLogger sets the logger for warning and info messages.
func (l *Loader) SetLogger(logger *zap.Logger) {
	l.logger = logger
}

// Files returns the file layout used by the loader.
func (l *Loader) Files() *Files {
	return l.files
}

// Load reads the gene table for an organism and GENCODE release.
// The file is closed before Load returns.
func (l *Loader) Load(org organism.Organism, version int) (*GeneChecker, error) {
	if !org.Supported() {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedOrganism, org)
	}

	path, ignored, err := l.files.Path(org, version)
	if err != nil {
		return nil, err
	}
	if ignored {
		l.logger.Warn("gencode_version is ignored if species is not HOMO_SAPIENS",
			zap.String("organism", org.String()),
			zap.Int("gencode_version", version))
		version = NoVersion
	}
	l.logger.Info("using file", zap.String("path", path))

	table, err := readGeneFile(path)
	if err != nil {
		return nil, err
	}

	return &GeneChecker{
		organism: org,
		version:  version,
		path:     path,
		genes:    table,
	}, nil
}

func readGeneFile(path string) (GeneTable, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open gene file: %w", err)
	}
	defer f.Close()

	gz, err := gzip.NewReader(f)
	if err != nil {
		return nil, fmt.Errorf("open gzip reader: %w", err)
	}
	defer gz.Close()

	table, err := ParseGeneTable(gz)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return table, nil
}

// ParseGeneTable parses uncompressed gene table content.
// Each line holds gene_id,gene_label,<unused>,gene_length,gene_type.
func ParseGeneTable(r io.Reader) (GeneTable, error) {
	scanner := bufio.NewScanner(r)
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, 1024*1024)

	table := make(GeneTable)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := strings.TrimRight(scanner.Text(), " \t\r")
		if line == "" {
			continue
		}

		fields := strings.Split(line, ",")
		if len(fields) < 5 {
			return nil, fmt.Errorf("line %d: expected 5 fields, got %d", lineNum, len(fields))
		}

		length, err := strconv.Atoi(fields[3])
		if err != nil {
			return nil, fmt.Errorf("line %d: parse gene length: %w", lineNum, err)
		}

		table[fields[0]] = Gene{
			Label:  fields[1],
			Length: length,
			Type:   fields[4],
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan gene table: %w", err)
	}
	return table, nil
}

// GeneChecker answers gene ID queries for one organism and release.
type GeneChecker struct {
	organism organism.Organism
	version  int
	path     string
	genes    GeneTable
}

// Organism returns the organism the table belongs to.
func (c *GeneChecker) Organism() organism.Organism { return c.organism }

// Version returns the GENCODE release, or NoVersion for non-human tables.
func (c *GeneChecker) Version() int { return c.version }

// Path returns the file the table was read from.
func (c *GeneChecker) Path() string { return c.path }

// Len returns the number of genes in the table.
func (c *GeneChecker) Len() int { return len(c.genes) }

// IsValidID reports whether id is in the table.
func (c *GeneChecker) IsValidID(id string) bool {
	_, ok := c.genes[id]
	return ok
}

// Lookup returns the gene for id.
func (c *GeneChecker) Lookup(id string) (Gene, bool) {
	g, ok := c.genes[id]
	return g, ok
}

// Symbol returns the gene label for id.
func (c *GeneChecker) Symbol(id string) (string, error) {
	g, ok := c.genes[id]
	if !ok {
		return "", fmt.Errorf("%q is not a valid gene ID", id)
	}
	return g.Label, nil
}

// Length returns the gene length for id.
func (c *GeneChecker) Length(id string) (int, error) {
	g, ok := c.genes[id]
	if !ok {
		return 0, fmt.Errorf("%q is not a valid gene ID", id)
	}
	return g.Length, nil
}

// Type returns the gene biotype for id.
func (c *GeneChecker) Type(id string) (string, error) {
	g, ok := c.genes[id]
	if !ok {
		return "", fmt.Errorf("%q is not a valid gene ID", id)
	}
	return g.Type, nil
}

// Genes returns a copy of the table.
func (c *GeneChecker) Genes() GeneTable {
	out := make(GeneTable, len(c.genes))
	for id, g := range c.genes {
		out[id] = g
	}
	return out
}
