package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/conneroisu/toolshed/internal/calc"
	"github.com/conneroisu/toolshed/internal/config"
	"github.com/conneroisu/toolshed/internal/errors"
	"github.com/conneroisu/toolshed/internal/prefs"
)

var (
	prefsFormat string
	prefsClient string
	prefsLimit  int
	prefsClear  bool
)

var prefsCmd = &cobra.Command{
	Use:   "prefs",
	Short: "Inspect stored history, favorites and bookmarks",
	Long: `Read the preference database the web app writes to. Entries belong to a
browser client id, which the app keeps in the toolshed_client cookie.

Examples:
  toolshed prefs history bmi --client 6f1c7a52-3d2b-4c1e-9a55-0d6b8f1e2a44
  toolshed prefs history luhn --client ... --clear
  toolshed prefs favorites --client ... -f json
  toolshed prefs prune`,
}

var prefsHistoryCmd = &cobra.Command{
	Use:   "history <tool>",
	Short: "Show or clear a client's history for one tool",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withPrefs(cmd, func(ctx context.Context, store *prefs.Store) error {
			if prefsClear {
				n, err := store.ClearHistory(ctx, prefsClient, args[0])
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Deleted %d entries\n", n)
				return nil
			}
			entries, err := store.History(ctx, prefsClient, args[0], prefsLimit)
			if err != nil {
				return err
			}
			lines := make([]string, len(entries))
			for i, e := range entries {
				lines[i] = e.CreatedAt.Local().Format("2006-01-02 15:04") + "  " + e.Output
			}
			return writeOutput(cmd.OutOrStdout(), prefsFormat, entries, lines)
		})
	},
}

var prefsFavoritesCmd = &cobra.Command{
	Use:   "favorites",
	Short: "List a client's favorite calculators",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withPrefs(cmd, func(ctx context.Context, store *prefs.Store) error {
			favs, err := store.Favorites(ctx, prefsClient)
			if err != nil {
				return err
			}
			lines := make([]string, len(favs))
			for i, f := range favs {
				lines[i] = f.CalculatorID
			}
			return writeOutput(cmd.OutOrStdout(), prefsFormat, favs, lines)
		})
	},
}

var prefsBookmarksCmd = &cobra.Command{
	Use:   "bookmarks",
	Short: "List a client's bookmarked pages",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withPrefs(cmd, func(ctx context.Context, store *prefs.Store) error {
			marks, err := store.Bookmarks(ctx, prefsClient)
			if err != nil {
				return err
			}
			lines := make([]string, len(marks))
			for i, b := range marks {
				lines[i] = b.Path
			}
			return writeOutput(cmd.OutOrStdout(), prefsFormat, marks, lines)
		})
	},
}

var prefsPruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Delete history older than the retention window now",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := loadConfig()
		if err != nil {
			return err
		}
		store, err := openPrefs(cfg, nil)
		if err != nil {
			return err
		}
		defer store.Close()

		sweeper, err := prefs.NewSweeper(store, "@daily", cfg.Storage.Retention, logger)
		if err != nil {
			return err
		}
		n, err := sweeper.Sweep(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Pruned %d entries older than %s\n", n, cfg.Storage.Retention)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(prefsCmd)
	prefsCmd.AddCommand(prefsHistoryCmd, prefsFavoritesCmd, prefsBookmarksCmd, prefsPruneCmd)

	pf := prefsCmd.PersistentFlags()
	pf.StringVarP(&prefsFormat, "format", "f", "text", "Output format (text|json|yaml)")
	pf.StringVar(&prefsClient, "client", "", "Client id to read")
	AddFlagValidation(prefsCmd, "format", func(format string) error {
		return ValidateFormatWithSuggestion(format, outputFormats)
	})

	prefsHistoryCmd.Flags().IntVarP(&prefsLimit, "limit", "n", 0, "At most this many entries (0 for all kept)")
	prefsHistoryCmd.Flags().BoolVar(&prefsClear, "clear", false, "Delete the history instead of showing it")
}

// withPrefs opens the configured store for a client-scoped command.
func withPrefs(cmd *cobra.Command, fn func(ctx context.Context, store *prefs.Store) error) error {
	if prefsClient == "" {
		return errors.Invalid("--client is required")
	}
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	store, err := openPrefs(cfg, calc.NewRegistry())
	if err != nil {
		return err
	}
	defer store.Close()
	return fn(cmd.Context(), store)
}
