package cmd

import (
	"os"
	"time"

	"github.com/mj1618/a11y-tree/internal/atspi"
	"github.com/mj1618/a11y-tree/internal/model"
	"github.com/mj1618/a11y-tree/internal/output"
	"github.com/mj1618/a11y-tree/internal/traverse"
	"github.com/spf13/cobra"
)

var snapshotCmd = &cobra.Command{
	Use:   "snapshot",
	Short: "Snapshot the accessibility tree",
	Long: `Build an immutable snapshot of the accessibility tree published on the
a11y bus, for the whole registry or a single application. Branches that
cannot be resolved appear as explicit failure, cycle, or truncation
markers instead of aborting the walk.`,
	RunE: runSnapshot,
}

func init() {
	rootCmd.AddCommand(snapshotCmd)
	addTraversalFlags(snapshotCmd)
	snapshotCmd.Flags().Bool("flat", false, "Flatten the tree into a list with path breadcrumbs")
	snapshotCmd.Flags().Bool("stats", false, "Include node count and elapsed time")
	snapshotCmd.Flags().Bool("save", false, "Save the snapshot for later diffing")
	snapshotCmd.Flags().Bool("pretty", false, "Pretty-print JSON output")
}

func runSnapshot(cmd *cobra.Command, args []string) error {
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

	cfg, err := configFromFlags(cmd)
	if err != nil {
		return err
	}

	start := time.Now()
	tree, err := traverse.BuildTree(ctx, bus, root, cfg)
	if err != nil {
		return err
	}
	elapsed := time.Since(start)

	withStats, _ := cmd.Flags().GetBool("stats")
	var stats *output.Stats
	if withStats {
		stats = &output.Stats{
			Strategy:  string(cfg.Strategy),
			Nodes:     tree.Count(),
			ElapsedMS: elapsed.Milliseconds(),
		}
	}

	ts := nowTS()
	if save, _ := cmd.Flags().GetBool("save"); save {
		label := snapshotLabel(matched)
		if err := model.SaveSnapshot(label, ts, model.Flatten(tree)); err != nil {
			return err
		}
		model.CleanSnapshots(label, 24*time.Hour)
	}

	if flat, _ := cmd.Flags().GetBool("flat"); flat {
		return output.Print(output.SnapshotFlatResult{
			App:   matched,
			TS:    ts,
			Stats: stats,
			Nodes: model.Flatten(tree),
		})
	}

	if output.OutputFormat == output.FormatTree {
		if err := output.RenderTree(os.Stdout, tree); err != nil {
			return err
		}
		if stats != nil {
			return output.PrintYAML(stats)
		}
		return nil
	}

	return output.Print(output.SnapshotResult{
		App:   matched,
		TS:    ts,
		Stats: stats,
		Tree:  tree,
	})
}
