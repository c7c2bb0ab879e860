package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/conneroisu/toolshed/internal/version"
)

var (
	versionFormat   string
	versionShort    bool
	versionDetailed bool
)

// versionCmd represents the version command
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Long: `Display version information for toolshed: version, git commit, build
time, Go version and target platform.

Examples:
  toolshed version              # Show short version
  toolshed version --detailed   # Show detailed version info
  toolshed version --format json`,
	Args: cobra.NoArgs,
	RunE: runVersionCommand,
}

func init() {
	rootCmd.AddCommand(versionCmd)

	addFormatFlag(versionCmd, &versionFormat)
	versionCmd.Flags().BoolVar(&versionShort, "short", false, "Show short version only")
	versionCmd.Flags().BoolVar(&versionDetailed, "detailed", false, "Show detailed version information")
}

func runVersionCommand(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	if versionFormat != "" && versionFormat != "text" {
		return writeOutput(out, versionFormat, version.GetBuildInfo(), nil)
	}

	switch {
	case versionShort:
		_, err := fmt.Fprintln(out, version.GetShortVersion())
		return err
	case versionDetailed:
		_, err := fmt.Fprintln(out, version.GetDetailedVersion())
		return err
	default:
		return outputVersionDefault(out)
	}
}

func outputVersionDefault(out io.Writer) error {
	info := version.GetBuildInfo()

	fmt.Fprintf(out, "toolshed %s", info.Version)
	if info.GitCommit != "unknown" && len(info.GitCommit) >= 7 {
		fmt.Fprintf(out, " (%s)", info.GitCommit[:7])
	}
	fmt.Fprintln(out)

	if !info.BuildTime.IsZero() {
		fmt.Fprintf(out, "Built: %s\n", info.BuildTime.Format("2006-01-02 15:04:05 UTC"))
	}
	fmt.Fprintf(out, "Go: %s\n", info.GoVersion)
	_, err := fmt.Fprintf(out, "Platform: %s\n", info.Platform)
	return err
}
