package cmd

import (
	"fmt"
	"os"

	"github.com/mj1618/a11y-tree/internal/output"
	"github.com/mj1618/a11y-tree/internal/version"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "a11y-tree",
	Short: "Snapshot and inspect accessibility trees on the a11y bus",
	Long: `A CLI tool that snapshots the accessibility object graph applications
publish on the a11y bus into an immutable local tree, tolerant of broken
or hostile applications (cycles, huge child lists, missing methods).`,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.Version = fmt.Sprintf("%s (commit: %s, built: %s)", version.Version, version.Commit, version.BuildDate)
	rootCmd.PersistentFlags().String("format", "tree", "Output format: tree, yaml, json")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Enable debug logging on stderr")
	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		logrus.SetOutput(os.Stderr)
		verbose, _ := rootCmd.PersistentFlags().GetBool("verbose")
		if verbose {
			logrus.SetLevel(logrus.DebugLevel)
		} else {
			logrus.SetLevel(logrus.WarnLevel)
		}

		format, _ := rootCmd.PersistentFlags().GetString("format")
		switch format {
		case "tree":
			output.OutputFormat = output.FormatTree
		case "yaml":
			output.OutputFormat = output.FormatYAML
		case "json":
			output.OutputFormat = output.FormatJSON
		default:
			return fmt.Errorf("unsupported format: %s (use tree, yaml, or json)", format)
		}
		if prettyFlag := cmd.Flags().Lookup("pretty"); prettyFlag != nil {
			if pretty, err := cmd.Flags().GetBool("pretty"); err == nil && pretty {
				output.PrettyOutput = true
			}
		}
		return nil
	}
}
