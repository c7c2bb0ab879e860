package cmd

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/conneroisu/toolshed/internal/cachetier"
	"github.com/conneroisu/toolshed/internal/server"
	"github.com/conneroisu/toolshed/internal/validation"
)

var proxyCmd = &cobra.Command{
	Use:   "proxy",
	Short: "Serve another site through the tiered cache",
	Long: `Put the tiered response cache in front of an upstream origin. Images are
served cache-first, /api and page navigations network-first with a cached
fallback, and everything else cache-first. When the upstream is unreachable,
cached copies keep answering.

Examples:
  toolshed proxy --upstream http://localhost:3000
  toolshed proxy --upstream https://example.com -p 9000 --precache /,/app.js`,
	Args: cobra.NoArgs,
	RunE: runProxy,
}

func init() {
	rootCmd.AddCommand(proxyCmd)

	proxyCmd.Flags().String("upstream", "", "Upstream origin URL (required)")
	proxyCmd.Flags().IntP("port", "p", 8081, "Port to serve on")
	proxyCmd.Flags().String("host", "localhost", "Host to bind to")
	proxyCmd.Flags().StringSlice("precache", nil, "Paths fetched from the upstream before serving")
	proxyCmd.Flags().Duration("timeout", 15*time.Second, "Upstream request timeout")
	_ = proxyCmd.MarkFlagRequired("upstream")

	AddFlagValidation(proxyCmd, "port", ValidatePort)
}

func runProxy(cmd *cobra.Command, args []string) error {
	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}

	raw, _ := cmd.Flags().GetString("upstream")
	upstream, err := validation.ValidateUpstream(raw)
	if err != nil {
		return fmt.Errorf("invalid --upstream: %w", err)
	}

	cfg.Server.Port, _ = cmd.Flags().GetInt("port")
	cfg.Server.Host, _ = cmd.Flags().GetString("host")
	cfg.Server.StaticDir = ""
	cfg.Cache.Enabled = true
	cfg.Cache.Precache, _ = cmd.Flags().GetStringSlice("precache")
	if cfg.Cache.Precache == nil {
		cfg.Cache.Precache = []string{}
	}
	timeout, _ := cmd.Flags().GetDuration("timeout")

	srv, err := server.New(cfg, server.Options{
		Logger:  logger,
		Storage: cachetier.NewStorage(),
		Fetcher: cachetier.TransportFetcher(upstream, &http.Client{Timeout: timeout}),
	})
	if err != nil {
		return fmt.Errorf("failed to create proxy: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	fmt.Fprintf(cmd.OutOrStdout(), "Caching %s at http://%s\n", upstream, cfg.Addr())
	if err := srv.Start(ctx); err != nil {
		return fmt.Errorf("proxy error: %w", err)
	}
	return nil
}
