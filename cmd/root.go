// Package cmd provides the command-line interface for toolshed.
//
// Configuration is read from several sources, highest priority first:
//  1. Command-line flags (--config, --port, ...)
//  2. TOOLSHED_CONFIG_FILE: path to a configuration file
//  3. Individual environment variables (TOOLSHED_SERVER_PORT, ...)
//  4. .toolshed.yml in the working directory
package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/conneroisu/toolshed/internal/calc"
	"github.com/conneroisu/toolshed/internal/config"
	"github.com/conneroisu/toolshed/internal/errors"
	"github.com/conneroisu/toolshed/internal/logging"
	"github.com/conneroisu/toolshed/internal/prefs"
)

var cfgFile string

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "toolshed",
	Short: "Everyday developer and writing tools, on the web and in the terminal",
	Long: `Toolshed bundles small everyday tools behind one offline-capable web app
and the same tools on the command line.

Tools:
  generate card|dates|lorem|plate|numbers   Random test data
  count [file]                              Word count and readability
  calc <id> key=value...                    Calculators
  outline --title ...                       Blog post outline

Quick Start:
  toolshed serve                   Start the web app
  toolshed proxy --upstream URL    Put the tiered cache in front of another site
  toolshed generate card -n 5      Five Visa test numbers`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is .toolshed.yml, can also use TOOLSHED_CONFIG_FILE env var)")
	rootCmd.PersistentFlags().StringP("log-level", "l", "", "log level (debug, info, warn, error)")
	_ = viper.BindPFlag("log-level", rootCmd.PersistentFlags().Lookup("log-level"))
}

// initConfig points viper at the configuration file and environment.
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else if envConfigFile := os.Getenv("TOOLSHED_CONFIG_FILE"); envConfigFile != "" {
		viper.SetConfigFile(envConfigFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigType("yaml")
		viper.SetConfigName("." + config.AppName)
	}

	viper.SetEnvPrefix("TOOLSHED")
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// loadConfig resolves the configuration and the logger built from it.
func loadConfig() (*config.Config, logging.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, errors.WrapConfig(err, "failed to load configuration")
	}
	return cfg, logging.NewLogger(cfg.LoggerConfig()), nil
}

// openPrefs opens the preference store named by the configuration.
func openPrefs(cfg *config.Config, calcs *calc.Registry) (*prefs.Store, error) {
	opts := prefs.DefaultOptions()
	opts.HistoryLimit = cfg.Storage.HistoryLimit
	if calcs != nil {
		opts.ValidCalculator = calcs.Has
	}
	store, err := prefs.Open(cfg.Storage.Path, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open preference store %s: %w", cfg.Storage.Path, err)
	}
	return store, nil
}
