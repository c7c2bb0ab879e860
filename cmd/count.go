package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/conneroisu/toolshed/internal/tools"
)

var (
	countFormat string
	countHTML   bool
)

var countCmd = &cobra.Command{
	Use:   "count [file]",
	Short: "Word count, reading time and readability",
	Long: `Count characters, words, sentences and paragraphs, estimate reading and
speaking time and score readability with Flesch reading ease. Reads the file
argument, or standard input when there is none.

Examples:
  toolshed count README.md
  cat post.html | toolshed count --html -f json`,
	Args: cobra.MaximumNArgs(1),
	RunE: runCount,
}

func init() {
	rootCmd.AddCommand(countCmd)

	addFormatFlag(countCmd, &countFormat)
	countCmd.Flags().BoolVar(&countHTML, "html", false, "Treat input as HTML and count only its text")
}

func runCount(cmd *cobra.Command, args []string) error {
	in := cmd.InOrStdin()
	if len(args) == 1 && args[0] != "-" {
		f, err := os.Open(args[0])
		if err != nil {
			return fmt.Errorf("failed to open %s: %w", args[0], err)
		}
		defer f.Close()
		in = f
	}

	data, err := io.ReadAll(io.LimitReader(in, tools.MaxTextBytes+1))
	if err != nil {
		return fmt.Errorf("failed to read input: %w", err)
	}

	st, err := tools.NewService(nil, nil).WordCount(tools.WordCountRequest{Text: string(data), HTML: countHTML})
	if err != nil {
		return err
	}
	return writeOutput(cmd.OutOrStdout(), countFormat, st, tools.StatsLines(st))
}
