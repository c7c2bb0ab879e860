package cmd

import (
	"github.com/spf13/cobra"

	"github.com/conneroisu/toolshed/internal/outline"
	"github.com/conneroisu/toolshed/internal/tools"
)

var (
	outlineFormat string
	outlineFlags  outline.Request
)

var outlineCmd = &cobra.Command{
	Use:   "outline",
	Short: "Scaffold a blog post",
	Long: `Build a blog post scaffold: URL slug, meta title and description within
search snippet limits, and a section outline with writing prompts. Text
output is Markdown.

Examples:
  toolshed outline --title "Sourdough for Beginners" -k sourdough -k starter
  toolshed outline --title "Go Generics" --section Intro --section "Type sets" -f yaml`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		res, err := tools.NewService(nil, nil).Outline(outlineFlags)
		if err != nil {
			return err
		}
		if outlineFormat == "" || outlineFormat == "text" {
			_, err := cmd.OutOrStdout().Write([]byte(res.Markdown))
			return err
		}
		return writeOutput(cmd.OutOrStdout(), outlineFormat, res.Outline, nil)
	},
}

func init() {
	rootCmd.AddCommand(outlineCmd)

	addFormatFlag(outlineCmd, &outlineFormat)
	outlineCmd.Flags().StringVarP(&outlineFlags.Title, "title", "t", "", "Post title (required)")
	outlineCmd.Flags().StringSliceVarP(&outlineFlags.Keywords, "keyword", "k", nil, "Target keyword, repeatable")
	outlineCmd.Flags().StringArrayVarP(&outlineFlags.Sections, "section", "s", nil, "Section heading, repeatable (default outline when omitted)")
	outlineCmd.Flags().StringVarP(&outlineFlags.Audience, "audience", "a", "", "Who the post is for (default beginners)")
	_ = outlineCmd.MarkFlagRequired("title")
}
