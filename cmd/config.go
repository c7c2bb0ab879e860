package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/conneroisu/toolshed/internal/config"
)

var (
	configFile   string
	configFormat string
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect toolshed configuration",
	Long: `Show the resolved configuration or validate a configuration file.

Examples:
  toolshed config show                     # YAML, after file, env and defaults
  toolshed config show --format json
  toolshed config validate --file prod.yml`,
}

var configValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate a configuration file",
	Args:  cobra.NoArgs,
	RunE:  runConfigValidate,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the resolved configuration",
	Args:  cobra.NoArgs,
	RunE:  runConfigShow,
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configValidateCmd, configShowCmd)

	configValidateCmd.Flags().StringVar(&configFile, "file", "", "Configuration file to validate (default .toolshed.yml)")
	configShowCmd.Flags().StringVarP(&configFormat, "format", "f", "yaml", "Output format (yaml|json)")
	AddFlagValidation(configShowCmd, "format", func(format string) error {
		return ValidateFormatWithSuggestion(format, []string{"yaml", "json"})
	})
}

func runConfigValidate(cmd *cobra.Command, args []string) error {
	targetFile := configFile
	if targetFile == "" {
		targetFile = "." + config.AppName + ".yml"
	}
	if _, err := os.Stat(targetFile); err != nil {
		return fmt.Errorf("configuration file %s: %w", targetFile, err)
	}

	v := viper.New()
	v.SetConfigFile(targetFile)
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("failed to read configuration file: %w", err)
	}
	if _, err := config.LoadFrom(v); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "%s is valid\n", targetFile)
	return nil
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	return writeOutput(cmd.OutOrStdout(), configFormat, cfg, nil)
}
