package output

import (
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Report formats.
const (
	FormatYAML = "yaml"
	FormatJSON = "json"
)

// Report describes one validation run.
type Report struct {
	RunID               string    `yaml:"run_id" json:"run_id"`
	Input               string    `yaml:"input" json:"input"`
	LabeledOutput       string    `yaml:"labeled_output,omitempty" json:"labeled_output,omitempty"`
	GencodeVersion      int       `yaml:"gencode_version" json:"gencode_version"`
	IgnoreLabels        bool      `yaml:"ignore_labels" json:"ignore_labels"`
	StartedAt           time.Time `yaml:"started_at" json:"started_at"`
	ElapsedSeconds      float64   `yaml:"elapsed_seconds" json:"elapsed_seconds"`
	IsValid             bool      `yaml:"is_valid" json:"is_valid"`
	Errors              []string  `yaml:"errors" json:"errors"`
	IsSeuratConvertible bool      `yaml:"is_seurat_convertible" json:"is_seurat_convertible"`
}

// FormatForPath picks the report format from a file extension; YAML is the default.
func FormatForPath(path string) string {
	if strings.EqualFold(filepath.Ext(path), ".json") {
		return FormatJSON
	}
	return FormatYAML
}

// WriteReport writes r to w in the given format.
func WriteReport(w io.Writer, r *Report, format string) error {
	if r.Errors == nil {
		r.Errors = []string{}
	}

	switch format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(r); err != nil {
			return fmt.Errorf("encode json report: %w", err)
		}
	case FormatYAML, "":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(r); err != nil {
			return fmt.Errorf("encode yaml report: %w", err)
		}
		if err := enc.Close(); err != nil {
			return fmt.Errorf("close yaml encoder: %w", err)
		}
	default:
		return fmt.Errorf("unknown report format %q", format)
	}
	return nil
}
