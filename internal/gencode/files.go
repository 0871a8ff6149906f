package gencode

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/cellarium-ai/validate-schema/internal/organism"
)

// Human GENCODE releases with a bundled gene table.
const (
	Version43 = 43
	Version44 = 44

	// DefaultVersion is used when the caller does not pick a release.
	DefaultVersion = Version44

	// NoVersion means no release was requested.
	NoVersion = 0
)

// Errors returned when a gene table cannot be resolved.
var (
	ErrUnsupportedOrganism = errors.New("organism not supported")
	ErrUnsupportedVersion  = errors.New("unsupported gencode version")
)

// Upstream locations of the gene tables.
const (
	cellxgeneBaseURL = "https://raw.githubusercontent.com/chanzuckerberg/single-cell-curation/main/cellxgene_schema_cli/cellxgene_schema/gencode_files"
	cellariumBaseURL = "https://raw.githubusercontent.com/cellarium-ai/validate-schema/main/cellarium_schema/gencode_files"
)

var humanFileNames = map[int]string{
	Version43: "genes_homo_sapiens_v43.csv.gz",
	Version44: "genes_homo_sapiens.csv.gz",
}

// Files maps organisms to gene table paths. Human tables are additionally keyed by
// GENCODE release. A Files value is never modified after NewFiles returns.
type Files struct {
	dir    string
	human  map[int]string
	others map[organism.Organism]string
}

// NewFiles returns the standard gene table layout rooted at dir.
func NewFiles(dir string) *Files {
	f := &Files{
		dir:    dir,
		human:  make(map[int]string, len(humanFileNames)),
		others: make(map[organism.Organism]string),
	}
	for v, name := range humanFileNames {
		f.human[v] = filepath.Join(dir, name)
	}
	for _, o := range organism.All {
		if o == organism.HomoSapiens {
			continue
		}
		f.others[o] = filepath.Join(dir, "genes_"+o.Name()+".csv.gz")
	}
	return f
}

// Dir returns the directory the tables live in.
func (f *Files) Dir() string {
	return f.dir
}

// Path resolves the gene table for an organism and GENCODE release.
// Human requires version 43 or 44. For every other organism the version is not used;
// versionIgnored reports whether one was supplied anyway.
func (f *Files) Path(org organism.Organism, version int) (path string, versionIgnored bool, err error) {
	if org == organism.HomoSapiens {
		p, ok := f.human[version]
		if !ok {
			return "", false, fmt.Errorf("%w: gencode_version must be in [43, 44]: got %d", ErrUnsupportedVersion, version)
		}
		return p, false, nil
	}

	p, ok := f.others[org]
	if !ok {
		return "", false, fmt.Errorf("%w: %s", ErrUnsupportedOrganism, org)
	}
	return p, version != NoVersion, nil
}

// Resource is a downloadable gene table.
type Resource struct {
	Name string
	URL  string
	Path string
}

// Resources lists every gene table with its upstream URL, sorted by file name.
func (f *Files) Resources() []Resource {
	var res []Resource
	for v, p := range f.human {
		base := cellxgeneBaseURL
		if v == Version43 {
			base = cellariumBaseURL
		}
		name := filepath.Base(p)
		res = append(res, Resource{Name: name, URL: base + "/" + name, Path: p})
	}
	for _, p := range f.others {
		name := filepath.Base(p)
		res = append(res, Resource{Name: name, URL: cellxgeneBaseURL + "/" + name, Path: p})
	}
	sort.Slice(res, func(i, j int) bool { return res[i].Name < res[j].Name })
	return res
}

// Missing returns the resources whose files are not present on disk.
func (f *Files) Missing() []Resource {
	var missing []Resource
	for _, r := range f.Resources() {
		if _, err := os.Stat(r.Path); err != nil {
			missing = append(missing, r)
		}
	}
	return missing
}

// DefaultDir returns the default location of the gene tables.
func DefaultDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".cellarium-schema", "gencode")
}
