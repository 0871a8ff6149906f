package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/cellarium-ai/validate-schema/internal/bridge"
	"github.com/cellarium-ai/validate-schema/internal/gencode"
	"github.com/cellarium-ai/validate-schema/internal/output"
	"github.com/cellarium-ai/validate-schema/internal/validate"
)

type validateOptions struct {
	addLabelsFile  string
	gencodeVersion int
	ignoreLabels   bool
	reportFile     string
}

func newValidateCmd(c *cli) *cobra.Command {
	var opts validateOptions

	cmd := &cobra.Command{
		Use:   "validate <h5ad_file>",
		Short: "Check that an h5ad follows the cellxgene data integration schema.",
		Long: `Check that an h5ad follows the cellxgene data integration schema. If validation fails this
command will return an exit status of 1 otherwise 0. When the '--add-labels <FILE>' tag is
present, the command will add ontology/gene labels based on IDs and write them to a new h5ad.`,
		Example: `  cellarium-schema validate pbmc.h5ad
  cellarium-schema validate -v 43 pbmc.h5ad
  cellarium-schema validate -i -a pbmc.labeled.h5ad pbmc.h5ad
  cellarium-schema validate --report report.yaml pbmc.h5ad`,
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) != 1 {
				return &usageError{err: fmt.Errorf("expected 1 h5ad file argument, got %d", len(args))}
			}
			if err := checkInputFile(args[0]); err != nil {
				return &usageError{err: err}
			}
			if opts.addLabelsFile != "" {
				if err := checkOutputFile(opts.addLabelsFile); err != nil {
					return &usageError{err: err}
				}
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runValidate(cmd.Context(), args[0], opts)
		},
	}

	fs := cmd.Flags()
	fs.StringVarP(&opts.addLabelsFile, "add-labels", "a", "", "When present it will add labels to genes and ontologies based on IDs")
	fs.IntVarP(&opts.gencodeVersion, "gencode-version", "v", gencode.DefaultVersion, "Can specify either 43 or 44 for the version of human gencode gene annotations.")
	fs.BoolVarP(&opts.ignoreLabels, "ignore-labels", "i", false, "Ignore ontology labels when validating")
	fs.StringVar(&opts.reportFile, "report", "", "Write a validation report (.yaml or .json)")

	return cmd
}

// checkInputFile requires an existing, readable, non-directory path.
func checkInputFile(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("invalid value for 'H5AD_FILE': file %q does not exist", path)
		}
		return fmt.Errorf("invalid value for 'H5AD_FILE': %w", err)
	}
	if info.IsDir() {
		return fmt.Errorf("invalid value for 'H5AD_FILE': file %q is a directory", path)
	}
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("invalid value for 'H5AD_FILE': file %q is not readable", path)
	}
	f.Close()
	return nil
}

// checkOutputFile accepts a path that does not exist yet, or an existing writable file.
func checkOutputFile(path string) error {
	info, err := os.Stat(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("invalid value for '--add-labels': %w", err)
	}
	if info.IsDir() {
		return fmt.Errorf("invalid value for '--add-labels': file %q is a directory", path)
	}
	f, err := os.OpenFile(path, os.O_WRONLY, 0)
	if err != nil {
		return fmt.Errorf("invalid value for '--add-labels': file %q is not writable", path)
	}
	f.Close()
	return nil
}

func (c *cli) runValidate(ctx context.Context, h5adPath string, opts validateOptions) error {
	runID := uuid.New().String()
	logger := c.logger.With(zap.String("run_id", runID))

	// The external validator is only looked up once the arguments are known to be good.
	logger.Info("Loading dependencies")
	engine := bridge.New(configString(keyValidatorCommand), viper.GetStringSlice(keyValidatorArgs)...)
	engine.SetLogger(logger)
	if err := engine.CheckAvailable(); err != nil {
		return fmt.Errorf("cellarium-schema requires %s: %w", engine.Command(), err)
	}

	logger.Info("Loading validator modules")
	loader := gencode.NewLoader(gencodeFiles())
	loader.SetLogger(logger)
	v := validate.New(engine, engine, loader)
	v.SetLogger(logger)

	start := time.Now()
	res, err := v.Validate(ctx, h5adPath, validate.Options{
		AddLabelsFile:  opts.addLabelsFile,
		GencodeVersion: opts.gencodeVersion,
		IgnoreLabels:   opts.ignoreLabels,
	})
	if err != nil {
		return err
	}

	for _, msg := range res.Errors {
		logger.Error(msg)
	}
	if res.IsValid {
		logger.Info("Validation passed", zap.String("file", h5adPath))
	} else {
		logger.Info("Validation failed", zap.String("file", h5adPath), zap.Int("errors", len(res.Errors)))
	}

	if opts.reportFile != "" {
		report := &output.Report{
			RunID:               runID,
			Input:               h5adPath,
			LabeledOutput:       opts.addLabelsFile,
			GencodeVersion:      opts.gencodeVersion,
			IgnoreLabels:        opts.ignoreLabels,
			StartedAt:           start.UTC(),
			ElapsedSeconds:      time.Since(start).Seconds(),
			IsValid:             res.IsValid,
			Errors:              res.Errors,
			IsSeuratConvertible: res.IsSeuratConvertible,
		}
		if err := writeReportFile(opts.reportFile, report); err != nil {
			return err
		}
		logger.Debug("wrote report", zap.String("path", opts.reportFile))
	}

	if !res.IsValid {
		return &exitError{code: ExitError}
	}
	return nil
}

func writeReportFile(path string, r *output.Report) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create report: %w", err)
	}
	if err := output.WriteReport(f, r, output.FormatForPath(path)); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
