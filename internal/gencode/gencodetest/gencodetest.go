// Package gencodetest writes small gene tables for tests.
package gencodetest

import (
	"compress/gzip"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// Human rows shared by tests: TP53 and KRAS.
const HumanRows = "ENSG00000141510,TP53,1,2579,protein_coding\n" +
	"ENSG00000133703,KRAS,1,45694,protein_coding\n"

// HumanV43Rows differs from HumanRows so tests can tell the releases apart.
const HumanV43Rows = "ENSG00000141510,TP53,1,2512,protein_coding\n" +
	"ENSG00000230021,ZNF595-AS,1,1200,lncRNA\n"

// MouseRows holds a single mouse gene.
const MouseRows = "ENSMUSG00000059552,Trp53,1,1866,protein_coding\n"

// ERCCRows holds a single spike-in.
const ERCCRows = "ERCC-00002,ERCC-00002 (spike-in control),1,1061,synthetic\n"

// WriteGzip writes content gzip-compressed to dir/name and returns the path.
func WriteGzip(t testing.TB, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	gz := gzip.NewWriter(f)
	_, err = gz.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, gz.Close())
	return path
}

// WriteStandardFiles writes human v43/v44, mouse and ERCC tables into dir and returns dir.
func WriteStandardFiles(t testing.TB, dir string) string {
	t.Helper()
	WriteGzip(t, dir, "genes_homo_sapiens.csv.gz", HumanRows)
	WriteGzip(t, dir, "genes_homo_sapiens_v43.csv.gz", HumanV43Rows)
	WriteGzip(t, dir, "genes_mus_musculus.csv.gz", MouseRows)
	WriteGzip(t, dir, "genes_ercc.csv.gz", ERCCRows)
	return dir
}
