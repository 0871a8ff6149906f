package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/cellarium-ai/validate-schema/internal/bridge"
	"github.com/cellarium-ai/validate-schema/internal/gencode"
)

// Configuration keys.
const (
	keyGencodeDir       = "gencode_dir"
	keyValidatorCommand = "validator.command"
	keyValidatorArgs    = "validator.args"
	keyLogFormat        = "log.format"
)

const configFileName = ".cellarium-schema.yaml"

// initConfig reads the config file (if any) and the CELLARIUM_SCHEMA_* environment.
func initConfig(cfgFile string) error {
	viper.SetDefault(keyGencodeDir, gencode.DefaultDir())
	viper.SetDefault(keyValidatorCommand, bridge.DefaultCommand)
	viper.SetDefault(keyValidatorArgs, []string{})
	viper.SetDefault(keyLogFormat, "console")

	viper.SetEnvPrefix("CELLARIUM_SCHEMA")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		if home, err := os.UserHomeDir(); err == nil {
			viper.AddConfigPath(home)
		}
		viper.SetConfigName(strings.TrimSuffix(configFileName, ".yaml"))
		viper.SetConfigType("yaml")
	}

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil
		}
		return fmt.Errorf("read config: %w", err)
	}
	return nil
}

func configString(key string) string {
	return viper.GetString(key)
}

// gencodeFiles returns the gene table layout from configuration.
func gencodeFiles() *gencode.Files {
	return gencode.NewFiles(configString(keyGencodeDir))
}

func newConfigCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage cellarium-schema configuration",
		Long:  "Show, get, or set configuration values. Config is stored in ~/" + configFileName + ".",
		Example: `  cellarium-schema config                                   # show all config
  cellarium-schema config set gencode_dir /data/gencode      # use a shared gene table directory
  cellarium-schema config get validator.command              # get a value`,
		Args: usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runConfigShow()
		},
	}

	// Flag parsing is off so values such as validator.args may start with '-'.
	cmd.AddCommand(&cobra.Command{
		Use:                "set <key> <value>",
		Short:              "Set a configuration value",
		DisableFlagParsing: true,
		Args:               usageArgs(cobra.ExactArgs(2)),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runConfigSet(args[0], args[1])
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "get <key>",
		Short: "Get a configuration value",
		Args:  usageArgs(cobra.ExactArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runConfigGet(args[0])
		},
	})

	return cmd
}

func (c *cli) runConfigShow() error {
	out, err := yaml.Marshal(viper.AllSettings())
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if used := viper.ConfigFileUsed(); used != "" {
		fmt.Fprintf(c.stdout, "# Config file: %s\n", used)
	}
	fmt.Fprint(c.stdout, string(out))
	return nil
}

func (c *cli) runConfigSet(key, value string) error {
	switch key {
	case keyValidatorArgs:
		viper.Set(key, strings.Fields(value))
	default:
		viper.Set(key, value)
	}

	cfgFile := viper.ConfigFileUsed()
	if cfgFile == "" {
		cfgFile = c.cfgFile
	}
	if cfgFile == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("cannot determine home directory: %w", err)
		}
		cfgFile = filepath.Join(home, configFileName)
	}

	if err := viper.WriteConfigAs(cfgFile); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}

	fmt.Fprintf(c.stdout, "Set %s = %s in %s\n", key, value, cfgFile)
	return nil
}

func (c *cli) runConfigGet(key string) error {
	if !viper.IsSet(key) {
		return fmt.Errorf("key %q is not set", key)
	}
	fmt.Fprintln(c.stdout, viper.Get(key))
	return nil
}
