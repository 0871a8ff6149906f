package validate

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/cellarium-ai/validate-schema/internal/gencode"
	"github.com/cellarium-ai/validate-schema/internal/organism"
)

// FeatureIDValidator checks a single feature ID from a dataframe of the dataset.
// A non-empty problem is a validation error to report; err aborts the whole run.
type FeatureIDValidator interface {
	ValidateFeatureID(featureID, dfName string) (problem string, err error)
}

// GeneLookup resolves feature IDs to gene annotations for label writing.
type GeneLookup interface {
	LookupGene(featureID string) (gencode.Gene, bool, error)
}

// FeatureChecker is what the engine and the label writer need from a run.
type FeatureChecker interface {
	FeatureIDValidator
	GeneLookup
}

// FeatureValidator checks feature IDs against the gene table of the organism inferred
// from each ID. Tables are loaded on first use and kept for the life of the validator.
type FeatureValidator struct {
	loader   *gencode.Loader
	version  int
	checkers map[organism.Organism]*gencode.GeneChecker
	logger   *zap.Logger
}

// NewFeatureValidator creates a validator using the given GENCODE release for human IDs.
func NewFeatureValidator(loader *gencode.Loader, gencodeVersion int) *FeatureValidator {
	return &FeatureValidator{
		loader:   loader,
		version:  gencodeVersion,
		checkers: make(map[organism.Organism]*gencode.GeneChecker),
		logger:   zap.NewNop(),
	}
}

// SetLogger sets the logger for debug messages.
func (v *FeatureValidator) SetLogger(l *zap.Logger) {
	v.logger = l
}

// ValidateFeatureID implements FeatureIDValidator.
func (v *FeatureValidator) ValidateFeatureID(featureID, dfName string) (string, error) {
	org, ok := organism.FromFeatureID(featureID)
	if !ok {
		return fmt.Sprintf("Could not infer organism from feature ID '%s' in '%s', make sure it is a valid ID.",
			featureID, dfName), nil
	}

	checker, err := v.checker(org)
	if err != nil {
		return "", err
	}

	if !checker.IsValidID(featureID) {
		return fmt.Sprintf("'%s' is not a valid feature ID in '%s'.", featureID, dfName), nil
	}
	return "", nil
}

// LookupGene implements GeneLookup.
func (v *FeatureValidator) LookupGene(featureID string) (gencode.Gene, bool, error) {
	org, ok := organism.FromFeatureID(featureID)
	if !ok {
		return gencode.Gene{}, false, nil
	}

	checker, err := v.checker(org)
	if err != nil {
		return gencode.Gene{}, false, err
	}

	g, found := checker.Lookup(featureID)
	return g, found, nil
}

// Organisms returns the organisms whose tables have been loaded so far.
func (v *FeatureValidator) Organisms() []organism.Organism {
	var out []organism.Organism
	for _, o := range organism.All {
		if _, ok := v.checkers[o]; ok {
			out = append(out, o)
		}
	}
	return out
}

func (v *FeatureValidator) checker(org organism.Organism) (*gencode.GeneChecker, error) {
	if c, ok := v.checkers[org]; ok {
		return c, nil
	}

	c, err := v.loader.Load(org, v.version)
	if err != nil {
		return nil, fmt.Errorf("load gene table for %s: %w", org, err)
	}
	v.logger.Debug("loaded gene table",
		zap.String("organism", org.String()),
		zap.Int("genes", c.Len()))

	v.checkers[org] = c
	return c, nil
}
