// Package organism identifies the organisms whose gene IDs can appear in a dataset.
package organism

import (
	"fmt"
	"strings"
)

// Organism is an NCBI taxonomy term such as "NCBITaxon:9606".
type Organism string

// Supported organisms.
const (
	HomoSapiens Organism = "NCBITaxon:9606"
	MusMusculus Organism = "NCBITaxon:10090"
	SARSCoV2    Organism = "NCBITaxon:2697049"
	ERCC        Organism = "NCBITaxon:32630"
)

// All lists the supported organisms in a stable order.
var All = []Organism{HomoSapiens, MusMusculus, SARSCoV2, ERCC}

// names maps each organism to the short name used in file names and on the command line.
var names = map[Organism]string{
	HomoSapiens: "homo_sapiens",
	MusMusculus: "mus_musculus",
	SARSCoV2:    "sars_cov_2",
	ERCC:        "ercc",
}

// featurePrefixes maps gene/transcript ID prefixes to organisms.
var featurePrefixes = []struct {
	prefix   string
	organism Organism
}{
	{"ENSMUSG", MusMusculus},
	{"ENSMUST", MusMusculus},
	{"ENSSASG", SARSCoV2},
	{"ENSG", HomoSapiens},
	{"ENST", HomoSapiens},
	{"ERCC-", ERCC},
}

// Name returns the short name of the organism, e.g. "homo_sapiens".
func (o Organism) Name() string {
	if n, ok := names[o]; ok {
		return n
	}
	return string(o)
}

// String implements fmt.Stringer.
func (o Organism) String() string {
	return string(o)
}

// Supported reports whether o is one of the known organisms.
func (o Organism) Supported() bool {
	_, ok := names[o]
	return ok
}

// FromFeatureID infers the organism from a feature ID prefix.
// It returns false when no known prefix matches.
func FromFeatureID(featureID string) (Organism, bool) {
	for _, p := range featurePrefixes {
		if strings.HasPrefix(featureID, p.prefix) {
			return p.organism, true
		}
	}
	return "", false
}

// Parse accepts either a short name ("mus_musculus") or a taxonomy term ("NCBITaxon:10090").
func Parse(s string) (Organism, error) {
	s = strings.TrimSpace(s)
	for o, n := range names {
		if strings.EqualFold(s, n) || s == string(o) {
			return o, nil
		}
	}
	return "", fmt.Errorf("unknown organism %q", s)
}
