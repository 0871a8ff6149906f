package organism

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromFeatureID(t *testing.T) {
	tests := []struct {
		id   string
		want Organism
		ok   bool
	}{
		{"ENSG00000141510", HomoSapiens, true},
		{"ENST00000269305", HomoSapiens, true},
		{"ENSMUSG00000059552", MusMusculus, true},
		{"ENSMUST00000108658", MusMusculus, true},
		{"ENSSASG00005000002", SARSCoV2, true},
		{"ERCC-00002", ERCC, true},
		{"FBgn0000008", "", false},
		{"ensg00000141510", "", false},
		{"", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			got, ok := FromFeatureID(tt.id)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParse(t *testing.T) {
	o, err := Parse("homo_sapiens")
	require.NoError(t, err)
	assert.Equal(t, HomoSapiens, o)

	o, err = Parse("NCBITaxon:10090")
	require.NoError(t, err)
	assert.Equal(t, MusMusculus, o)

	o, err = Parse("ERCC")
	require.NoError(t, err)
	assert.Equal(t, ERCC, o)

	_, err = Parse("danio_rerio")
	assert.Error(t, err)
}

func TestName(t *testing.T) {
	assert.Equal(t, "sars_cov_2", SARSCoV2.Name())
	assert.Equal(t, "NCBITaxon:7955", Organism("NCBITaxon:7955").Name())
	assert.True(t, MusMusculus.Supported())
	assert.False(t, Organism("NCBITaxon:7955").Supported())
}
