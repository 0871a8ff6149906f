package output

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func testReport() *Report {
	return &Report{
		RunID:          "4b7c3a1e-0000-4000-8000-000000000000",
		Input:          "pbmc.h5ad",
		GencodeVersion: 44,
		StartedAt:      time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
		ElapsedSeconds: 1.5,
		IsValid:        false,
		Errors:         []string{"'ENSG00000230021' is not a valid feature ID in 'var'."},
	}
}

func TestFormatForPath(t *testing.T) {
	assert.Equal(t, FormatJSON, FormatForPath("report.JSON"))
	assert.Equal(t, FormatYAML, FormatForPath("report.yaml"))
	assert.Equal(t, FormatYAML, FormatForPath("report"))
}

func TestWriteReport_YAML(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteReport(&buf, testReport(), FormatYAML))

	var got map[string]any
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, "pbmc.h5ad", got["input"])
	assert.Equal(t, false, got["is_valid"])
	assert.Equal(t, []any{"'ENSG00000230021' is not a valid feature ID in 'var'."}, got["errors"])
	assert.NotContains(t, got, "labeled_output")
}

func TestWriteReport_JSONEmptyErrors(t *testing.T) {
	r := testReport()
	r.IsValid = true
	r.Errors = nil

	var buf bytes.Buffer
	require.NoError(t, WriteReport(&buf, r, FormatJSON))
	assert.Contains(t, buf.String(), `"errors": []`)

	var got Report
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.True(t, got.IsValid)
	assert.Equal(t, 44, got.GencodeVersion)
}

func TestWriteReport_UnknownFormat(t *testing.T) {
	err := WriteReport(&bytes.Buffer{}, testReport(), "toml")
	assert.Error(t, err)
}
