package validate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cellarium-ai/validate-schema/internal/gencode"
	"github.com/cellarium-ai/validate-schema/internal/gencode/gencodetest"
	"github.com/cellarium-ai/validate-schema/internal/organism"
)

func TestFeatureValidator_LoadsEachOrganismOnce(t *testing.T) {
	dir := t.TempDir()
	gencodetest.WriteStandardFiles(t, dir)
	fv := NewFeatureValidator(gencode.NewLoader(gencode.NewFiles(dir)), 44)

	problem, err := fv.ValidateFeatureID("ENSG00000141510", "var")
	require.NoError(t, err)
	assert.Empty(t, problem)

	// Replace the file on disk: a cached table must not be re-read.
	gencodetest.WriteGzip(t, dir, "genes_homo_sapiens.csv.gz", "ENSG00000999999,NEW,1,1,protein_coding\n")

	problem, err = fv.ValidateFeatureID("ENSG00000133703", "var")
	require.NoError(t, err)
	assert.Empty(t, problem)

	assert.Equal(t, []organism.Organism{organism.HomoSapiens}, fv.Organisms())

	_, err = fv.ValidateFeatureID("ERCC-00002", "var")
	require.NoError(t, err)
	assert.Equal(t, []organism.Organism{organism.HomoSapiens, organism.ERCC}, fv.Organisms())
}

func TestFeatureValidator_MissingTable(t *testing.T) {
	fv := NewFeatureValidator(gencode.NewLoader(gencode.NewFiles(t.TempDir())), 44)

	_, err := fv.ValidateFeatureID("ENSSASG00005000002", "var")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "load gene table for NCBITaxon:2697049")
}

func TestFeatureValidator_LookupGene(t *testing.T) {
	dir := gencodetest.WriteStandardFiles(t, t.TempDir())
	fv := NewFeatureValidator(gencode.NewLoader(gencode.NewFiles(dir)), 43)

	g, ok, err := fv.LookupGene("ENSG00000141510")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, gencode.Gene{Label: "TP53", Length: 2512, Type: "protein_coding"}, g)

	_, ok, err = fv.LookupGene("not-a-gene")
	require.NoError(t, err)
	assert.False(t, ok)

	_, ok, err = fv.LookupGene("ENSMUSG00000000001")
	require.NoError(t, err)
	assert.False(t, ok)
}
