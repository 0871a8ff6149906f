// Package validate runs schema validation of h5ad datasets through an external engine,
// with gene IDs checked against organism- and release-specific gene tables.
package validate

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/cellarium-ai/validate-schema/internal/gencode"
)

// EngineOptions are passed through to the schema engine.
type EngineOptions struct {
	IgnoreLabels bool
}

// Report is what the schema engine returns for one dataset.
type Report struct {
	IsValid             bool
	Errors              []string
	Warnings            []string
	IsSeuratConvertible bool
}

// Engine applies the schema rules to a dataset. Every feature ID it encounters is
// handed to features, and the problems it reports are included in Report.Errors.
type Engine interface {
	ValidateAdata(ctx context.Context, h5adPath string, opts EngineOptions, features FeatureIDValidator) (*Report, error)
}

// LabelResult is what the label writer returns.
type LabelResult struct {
	Success bool
	Errors  []string
}

// LabelWriter writes a copy of a validated dataset with ontology and gene labels added.
type LabelWriter interface {
	WriteLabels(ctx context.Context, h5adPath, outPath string, genes GeneLookup) (*LabelResult, error)
}

// Options control a validation run.
type Options struct {
	// AddLabelsFile is the labeled output path; empty skips label writing.
	AddLabelsFile  string
	GencodeVersion int
	IgnoreLabels   bool
}

// Result of a validation run.
type Result struct {
	IsValid bool
	Errors  []string
	// IsSeuratConvertible is passed through from the engine unchanged.
	IsSeuratConvertible bool
}

// Validator orchestrates the engine and the label writer.
type Validator struct {
	engine Engine
	labels LabelWriter
	loader *gencode.Loader
	logger *zap.Logger
}

// New creates a validator. labels may be nil when labeled output is never requested.
func New(engine Engine, labels LabelWriter, loader *gencode.Loader) *Validator {
	return &Validator{
		engine: engine,
		labels: labels,
		loader: loader,
		logger: zap.NewNop(),
	}
}

// SetLogger sets the logger for progress and error messages.
func (v *Validator) SetLogger(l *zap.Logger) {
	v.logger = l
}

// Validate checks the dataset at h5adPath, and writes labeled output when requested
// and validation passed.
func (v *Validator) Validate(ctx context.Context, h5adPath string, opts Options) (*Result, error) {
	features := NewFeatureValidator(v.loader, opts.GencodeVersion)
	features.SetLogger(v.logger)
	return v.ValidateWith(ctx, h5adPath, features, opts)
}

// ValidateWith is Validate with the feature checks supplied by the caller.
func (v *Validator) ValidateWith(ctx context.Context, h5adPath string, features FeatureChecker, opts Options) (*Result, error) {
	start := time.Now()
	report, err := v.engine.ValidateAdata(ctx, h5adPath, EngineOptions{IgnoreLabels: opts.IgnoreLabels}, features)
	if err != nil {
		return nil, fmt.Errorf("validate %s: %w", h5adPath, err)
	}

	isValid := report.IsValid && len(report.Errors) == 0
	v.logger.Info("validation complete",
		zap.Duration("elapsed", time.Since(start)),
		zap.Bool("is_valid", isValid))

	errs := append([]string(nil), report.Errors...)
	if !isValid {
		return &Result{
			IsValid:             false,
			Errors:              errs,
			IsSeuratConvertible: report.IsSeuratConvertible,
		}, nil
	}

	if opts.AddLabelsFile == "" {
		return &Result{
			IsValid:             true,
			Errors:              errs,
			IsSeuratConvertible: report.IsSeuratConvertible,
		}, nil
	}

	labelStart := time.Now()
	written := v.writeLabels(ctx, h5adPath, opts.AddLabelsFile, features)
	v.logger.Info("h5ad label writing complete",
		zap.Duration("elapsed", time.Since(labelStart)),
		zap.Bool("was_writing_successful", written.Success))

	return &Result{
		IsValid:             isValid && written.Success,
		Errors:              append(errs, written.Errors...),
		IsSeuratConvertible: report.IsSeuratConvertible,
	}, nil
}

// writeLabels never fails the run; writer errors become result errors.
func (v *Validator) writeLabels(ctx context.Context, h5adPath, outPath string, genes GeneLookup) *LabelResult {
	if v.labels == nil {
		return &LabelResult{Errors: []string{"no label writer configured"}}
	}

	res, err := v.labels.WriteLabels(ctx, h5adPath, outPath, genes)
	if err != nil {
		v.logger.Error("label writing failed", zap.Error(err))
		return &LabelResult{Errors: []string{fmt.Sprintf("Failed to write labels to '%s': %v", outPath, err)}}
	}
	if res == nil {
		return &LabelResult{}
	}
	return res
}
