package cmd

import (
	"fmt"

	"github.com/mj1618/a11y-tree/internal/atspi"
	"github.com/mj1618/a11y-tree/internal/model"
	"github.com/mj1618/a11y-tree/internal/output"
	"github.com/mj1618/a11y-tree/internal/traverse"
	"github.com/spf13/cobra"
)

var diffCmd = &cobra.Command{
	Use:   "diff",
	Short: "Diff the current tree against the last saved snapshot",
	Long: `Build a fresh snapshot and compare it against the most recent snapshot
saved with 'snapshot --save'. Nodes are matched by content hash, so
handle churn between connections does not show up as changes.`,
	RunE: runDiff,
}

func init() {
	rootCmd.AddCommand(diffCmd)
	addTraversalFlags(diffCmd)
	diffCmd.Flags().Bool("save", false, "Save the fresh snapshot after diffing")
	diffCmd.Flags().Bool("pretty", false, "Pretty-print JSON output")
}

func runDiff(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	bus, err := atspi.Connect(ctx)
	if err != nil {
		return err
	}
	defer bus.Close()

	app, _ := cmd.Flags().GetString("app")
	pid, _ := cmd.Flags().GetInt("pid")
	root, matched, err := resolveTarget(ctx, bus, app, pid)
	if err != nil {
		return err
	}
	label := snapshotLabel(matched)

	prevTS := model.LatestSnapshot(label)
	if prevTS == 0 {
		return fmt.Errorf("no saved snapshot for %q; run 'a11y-tree snapshot --save' first", label)
	}
	prev, err := model.LoadSnapshot(label, prevTS)
	if err != nil {
		return err
	}

	cfg, err := configFromFlags(cmd)
	if err != nil {
		return err
	}
	tree, err := traverse.BuildTree(ctx, bus, root, cfg)
	if err != nil {
		return err
	}
	curr := model.Flatten(tree)

	if save, _ := cmd.Flags().GetBool("save"); save {
		if err := model.SaveSnapshot(label, nowTS(), curr); err != nil {
			return err
		}
	}

	diff := model.DiffByHash(prev, curr)
	if output.OutputFormat == output.FormatJSON {
		return output.Print(diff)
	}
	return output.PrintYAML(diff)
}
