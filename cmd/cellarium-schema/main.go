// Package main provides the cellarium-schema command-line tool.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// Exit codes
const (
	ExitSuccess = 0
	ExitError   = 1
	ExitUsage   = 2
)

// Version information (set at build time)
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// exitError ends the process with code without printing anything more.
type exitError struct {
	code int
}

func (e *exitError) Error() string {
	return fmt.Sprintf("exit status %d", e.code)
}

// usageError marks bad command-line input.
type usageError struct {
	err error
}

func (e *usageError) Error() string { return e.err.Error() }
func (e *usageError) Unwrap() error { return e.err }

// cli holds state shared by all subcommands.
type cli struct {
	verbose   bool
	cfgFile   string
	logFormat string
	logger    *zap.Logger
	stdout    io.Writer
}

func main() {
	os.Exit(run(context.Background(), os.Args[1:], os.Stdout, os.Stderr))
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	c := &cli{stdout: stdout, logger: zap.NewNop()}
	root := newRootCmd(c)
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)

	err := root.ExecuteContext(ctx)
	c.logger.Sync()
	return exitCode(err, stderr)
}

// exitCode maps a command error to a process exit status, printing it when needed.
func exitCode(err error, stderr io.Writer) int {
	if err == nil {
		return ExitSuccess
	}

	var ee *exitError
	if errors.As(err, &ee) {
		return ee.code
	}

	fmt.Fprintf(stderr, "Error: %v\n", err)
	var ue *usageError
	if errors.As(err, &ue) {
		fmt.Fprintf(stderr, "Run 'cellarium-schema --help' for usage.\n")
		return ExitUsage
	}
	return ExitError
}

func newRootCmd(c *cli) *cobra.Command {
	root := &cobra.Command{
		Use:   "cellarium-schema",
		Short: "Apply and validate the cellxgene data integration schema to an h5ad file.",
		Long: `cellarium-schema validates single-cell datasets (h5ad) against the cellxgene data
integration schema and can add ontology and gene labels to them.

Gene IDs are checked against GENCODE gene tables for the organism each ID belongs to.
Human IDs can be checked against GENCODE release 43 or 44.`,
		Example: `  cellarium-schema validate pbmc.h5ad
  cellarium-schema -v validate --gencode-version 43 pbmc.h5ad
  cellarium-schema validate --add-labels pbmc.labeled.h5ad pbmc.h5ad
  cellarium-schema download
  cellarium-schema genes lookup ENSG00000141510 ENSMUSG00000059552`,
		Version:           fmt.Sprintf("%s (%s) built %s", version, commit, date),
		SilenceUsage:      true,
		SilenceErrors:     true,
		TraverseChildren:  true,
		CompletionOptions: cobra.CompletionOptions{DisableDefaultCmd: true},
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return c.init()
		},
	}

	// Local to the root so that subcommands can reuse -v.
	root.Flags().BoolVarP(&c.verbose, "verbose", "v", false, "When present will set logging level to debug")
	root.PersistentFlags().StringVar(&c.cfgFile, "config", "", "Config file (default: ~/.cellarium-schema.yaml)")
	root.PersistentFlags().StringVar(&c.logFormat, "log-format", "", "Log format: console or json (default from config)")

	root.SetFlagErrorFunc(func(cmd *cobra.Command, err error) error {
		return &usageError{err: err}
	})

	root.AddCommand(newValidateCmd(c))
	root.AddCommand(newDownloadCmd(c))
	root.AddCommand(newGenesCmd(c))
	root.AddCommand(newConfigCmd(c))

	return groupCmd(root)
}

// groupCmd makes a command that only holds subcommands print its help when called
// bare and reject unknown subcommands as usage errors.
func groupCmd(cmd *cobra.Command) *cobra.Command {
	cmd.Args = func(cmd *cobra.Command, args []string) error {
		if len(args) > 0 {
			return &usageError{err: fmt.Errorf("unknown command %q for %q", args[0], cmd.CommandPath())}
		}
		return nil
	}
	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	}
	return cmd
}

// usageArgs reports positional argument errors as usage errors.
func usageArgs(check cobra.PositionalArgs) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if err := check(cmd, args); err != nil {
			return &usageError{err: err}
		}
		return nil
	}
}

// requireFlags fails with a usage error when one of the named flags was not given.
// It runs from Args, ahead of cobra's own required-flag check.
func requireFlags(cmd *cobra.Command, names ...string) error {
	var missing []string
	for _, name := range names {
		if !cmd.Flags().Changed(name) {
			missing = append(missing, strconv.Quote(name))
		}
	}
	if len(missing) > 0 {
		return &usageError{err: fmt.Errorf("required flag(s) %s not set", strings.Join(missing, ", "))}
	}
	return nil
}

// init loads configuration and builds the logger once flags are parsed.
func (c *cli) init() error {
	if err := initConfig(c.cfgFile); err != nil {
		return err
	}

	format := c.logFormat
	if format == "" {
		format = configString(keyLogFormat)
	}
	logger, err := newLogger(c.verbose, format)
	if err != nil {
		return &usageError{err: err}
	}
	c.logger = logger
	return nil
}
