package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/conneroisu/toolshed/internal/calc"
	"github.com/conneroisu/toolshed/internal/generator"
	"github.com/conneroisu/toolshed/internal/prefs"
	"github.com/conneroisu/toolshed/internal/server"
	"github.com/conneroisu/toolshed/internal/tools"
)

var serveCmd = &cobra.Command{
	Use:     "serve",
	Aliases: []string{"s"},
	Short:   "Start the toolshed web app",
	Long: `Start the toolshed web app with its JSON API, the live word counter
websocket and the tiered response cache.

Examples:
  toolshed serve                          # http://localhost:8080
  toolshed serve -p 3000 --host 0.0.0.0
  toolshed serve --static-dir ./assets    # serve and watch /static from disk
  toolshed serve --no-cache`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().IntP("port", "p", 8080, "Port to serve on")
	serveCmd.Flags().String("host", "localhost", "Host to bind to")
	serveCmd.Flags().String("static-dir", "", "Serve /static from this directory and watch it for changes")
	serveCmd.Flags().Bool("no-cache", false, "Disable the response cache")
	serveCmd.Flags().String("db", "", "Preference database path (default under the XDG data directory)")

	AddFlagValidation(serveCmd, "port", ValidatePort)
	AddFlagValidation(serveCmd, "static-dir", ValidateFileExists)

	_ = viper.BindPFlag("server.port", serveCmd.Flags().Lookup("port"))
	_ = viper.BindPFlag("server.host", serveCmd.Flags().Lookup("host"))
	_ = viper.BindPFlag("server.static_dir", serveCmd.Flags().Lookup("static-dir"))
	_ = viper.BindPFlag("storage.path", serveCmd.Flags().Lookup("db"))
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}
	if noCache, _ := cmd.Flags().GetBool("no-cache"); noCache {
		cfg.Cache.Enabled = false
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	calcs := calc.NewRegistry()
	store, err := openPrefs(cfg, calcs)
	if err != nil {
		return err
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Warn(ctx, err, "Failed to close preference store")
		}
	}()

	if cfg.Storage.SweepSchedule != "" {
		sweeper, err := prefs.NewSweeper(store, cfg.Storage.SweepSchedule, cfg.Storage.Retention, logger)
		if err != nil {
			return fmt.Errorf("failed to schedule history sweep: %w", err)
		}
		sweeper.Start()
		defer func() {
			if err := sweeper.Stop(context.Background()); err != nil {
				logger.Warn(ctx, err, "History sweep did not stop cleanly")
			}
		}()
	}

	srv, err := server.New(cfg, server.Options{
		Logger: logger,
		Tools:  tools.NewService(generator.New(cfg.Generator.Seed), calcs),
		Prefs:  store,
	})
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Starting toolshed at http://%s\n", cfg.Addr())
	if err := srv.Start(ctx); err != nil {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}
