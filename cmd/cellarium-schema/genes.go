package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/cellarium-ai/validate-schema/internal/duckdb"
	"github.com/cellarium-ai/validate-schema/internal/gencode"
	"github.com/cellarium-ai/validate-schema/internal/organism"
	"github.com/cellarium-ai/validate-schema/internal/output"
	"github.com/cellarium-ai/validate-schema/internal/validate"
)

func newGenesCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "genes",
		Short: "Inspect the gene tables used for feature ID checks",
	}
	cmd.AddCommand(newGenesLookupCmd(c))
	cmd.AddCommand(newGenesExportCmd(c))
	return groupCmd(cmd)
}

func newGenesLookupCmd(c *cli) *cobra.Command {
	var gencodeVersion int

	cmd := &cobra.Command{
		Use:   "lookup <feature_id>...",
		Short: "Check feature IDs and print their gene annotation",
		Example: `  cellarium-schema genes lookup ENSG00000141510
  cellarium-schema genes lookup -v 43 ENSG00000230021 ERCC-00002`,
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				return &usageError{err: fmt.Errorf("at least one feature ID is required")}
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runGenesLookup(args, gencodeVersion)
		},
	}

	cmd.Flags().IntVarP(&gencodeVersion, "gencode-version", "v", gencode.DefaultVersion, "Version of human gencode gene annotations (43 or 44)")
	return cmd
}

func (c *cli) runGenesLookup(ids []string, gencodeVersion int) error {
	loader := gencode.NewLoader(gencodeFiles())
	loader.SetLogger(c.logger)
	fv := validate.NewFeatureValidator(loader, gencodeVersion)
	fv.SetLogger(c.logger)

	w := output.NewGeneTabWriter(c.stdout)
	if err := w.WriteHeader(); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	invalid := 0
	for _, id := range ids {
		problem, err := fv.ValidateFeatureID(id, "query")
		if err != nil {
			return err
		}
		row := output.GeneRow{FeatureID: id, Problem: problem}
		if org, ok := organism.FromFeatureID(id); ok {
			row.Organism = org.String()
			g, found, err := fv.LookupGene(id)
			if err != nil {
				return err
			}
			row.Found, row.Gene = found, g
		}
		if problem != "" {
			invalid++
		}
		if err := w.Write(row); err != nil {
			return fmt.Errorf("write row: %w", err)
		}
	}

	if err := w.Flush(); err != nil {
		return fmt.Errorf("flush output: %w", err)
	}

	loaded := make([]string, 0, len(organism.All))
	for _, o := range fv.Organisms() {
		loaded = append(loaded, o.Name())
	}
	c.logger.Debug("looked up feature IDs",
		zap.Int("ids", len(ids)),
		zap.Int("invalid", invalid),
		zap.Strings("gene_tables", loaded))

	if invalid > 0 {
		return &exitError{code: ExitError}
	}
	return nil
}

func newGenesExportCmd(c *cli) *cobra.Command {
	var (
		orgName        string
		gencodeVersion int
		outputPath     string
	)

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export one gene table to DuckDB, xlsx or tab-delimited text",
		Long: `Export the gene table of one organism. The output format follows the file extension:
.duckdb or .db writes a DuckDB database, .xlsx a spreadsheet, anything else tab-delimited
text. Use '-' as output to write tab-delimited text to stdout.`,
		Example: `  cellarium-schema genes export --organism homo_sapiens -v 43 -o genes_v43.duckdb
  cellarium-schema genes export --organism mus_musculus -o mouse.xlsx
  cellarium-schema genes export --organism ercc -o -`,
		Args: func(cmd *cobra.Command, args []string) error {
			if err := usageArgs(cobra.NoArgs)(cmd, args); err != nil {
				return err
			}
			return requireFlags(cmd, "organism", "output")
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			org, err := organism.Parse(orgName)
			if err != nil {
				return &usageError{err: err}
			}
			return c.runGenesExport(org, gencodeVersion, outputPath)
		},
	}

	fs := cmd.Flags()
	fs.StringVar(&orgName, "organism", "", "Organism name (homo_sapiens, mus_musculus, sars_cov_2, ercc) or NCBITaxon term")
	fs.IntVarP(&gencodeVersion, "gencode-version", "v", gencode.NoVersion, "Human gencode version (43 or 44, default 44)")
	fs.StringVarP(&outputPath, "output", "o", "", "Output file")
	cmd.MarkFlagRequired("organism")
	cmd.MarkFlagRequired("output")

	return cmd
}

func (c *cli) runGenesExport(org organism.Organism, version int, outputPath string) error {
	if org == organism.HomoSapiens && version == gencode.NoVersion {
		version = gencode.DefaultVersion
	}

	loader := gencode.NewLoader(gencodeFiles())
	loader.SetLogger(c.logger)
	checker, err := loader.Load(org, version)
	if err != nil {
		return err
	}
	genes := checker.Genes()

	switch strings.ToLower(filepath.Ext(outputPath)) {
	case ".duckdb", ".db":
		store, err := duckdb.Open(outputPath)
		if err != nil {
			return err
		}
		defer store.Close()

		fp, err := duckdb.StatFile(checker.Path())
		if err != nil {
			return fmt.Errorf("stat gene file: %w", err)
		}
		current, err := store.SourceCurrent(org, checker.Version(), fp)
		if err != nil {
			return err
		}
		if current {
			c.logger.Info("gene table is up to date",
				zap.String("organism", org.String()),
				zap.String("path", outputPath))
			return nil
		}
		if err := store.WriteGeneTable(org, checker.Version(), genes); err != nil {
			return err
		}
		if err := store.RecordSource(org, checker.Version(), fp); err != nil {
			return err
		}
		n, err := store.Count(org, checker.Version())
		if err != nil {
			return err
		}
		byType, err := store.CountByType(org, checker.Version())
		if err != nil {
			return err
		}
		c.printTypeSummary(org, n, byType)
		c.logger.Info("exported gene table",
			zap.String("organism", org.String()),
			zap.Int64("genes", n),
			zap.String("path", outputPath))
		return nil

	case ".xlsx":
		if err := output.WriteGeneTableXLSX(outputPath, org.Name(), genes); err != nil {
			return err
		}

	default:
		out := c.stdout
		if outputPath != "-" {
			f, err := os.Create(outputPath)
			if err != nil {
				return fmt.Errorf("create output file: %w", err)
			}
			defer f.Close()
			out = f
		}
		w := output.NewGeneTabWriter(out)
		if err := w.WriteHeader(); err != nil {
			return err
		}
		if err := w.WriteTable(org.String(), genes); err != nil {
			return err
		}
		if err := w.Flush(); err != nil {
			return err
		}
	}

	c.logger.Info("exported gene table",
		zap.String("organism", org.String()),
		zap.Int("genes", len(genes)),
		zap.String("path", outputPath))
	return nil
}

// printTypeSummary writes the gene count per biotype, largest first.
func (c *cli) printTypeSummary(org organism.Organism, total int64, byType map[string]int64) {
	types := make([]string, 0, len(byType))
	for typ := range byType {
		types = append(types, typ)
	}
	sort.Slice(types, func(i, j int) bool {
		if byType[types[i]] != byType[types[j]] {
			return byType[types[i]] > byType[types[j]]
		}
		return types[i] < types[j]
	})

	fmt.Fprintf(c.stdout, "%s: %d genes\n", org.Name(), total)
	for _, typ := range types {
		fmt.Fprintf(c.stdout, "  %-24s %d\n", typ, byType[typ])
	}
}
