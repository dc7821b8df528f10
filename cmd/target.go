package cmd

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/mj1618/a11y-tree/internal/atspi"
	"github.com/mj1618/a11y-tree/internal/model"
	"github.com/mj1618/a11y-tree/internal/traverse"
	"github.com/spf13/cobra"
)

// addTraversalFlags registers the flags shared by every command that
// walks the tree.
func addTraversalFlags(cmd *cobra.Command) {
	cmd.Flags().String("app", "", "Target one application by name substring (default: whole registry)")
	cmd.Flags().Int("pid", 0, "Target one application by process id")
	cmd.Flags().String("strategy", string(traverse.Iterative), "Traversal strategy: recursive, iterative")
	cmd.Flags().Int("max-children", traverse.DefaultMaxChildren, "Max children materialized per node")
	cmd.Flags().Int("concurrency", traverse.DefaultConcurrency, "Max simultaneous outstanding remote calls")
	cmd.Flags().Duration("timeout", traverse.DefaultCallTimeout, "Per remote call timeout")
}

// configFromFlags builds a traversal config from the shared flags.
func configFromFlags(cmd *cobra.Command) (traverse.Config, error) {
	strategyFlag, _ := cmd.Flags().GetString("strategy")
	strategy, err := traverse.ParseStrategy(strategyFlag)
	if err != nil {
		return traverse.Config{}, err
	}
	maxChildren, _ := cmd.Flags().GetInt("max-children")
	concurrency, _ := cmd.Flags().GetInt("concurrency")
	timeout, _ := cmd.Flags().GetDuration("timeout")
	return traverse.Config{
		MaxChildren: maxChildren,
		Concurrency: concurrency,
		CallTimeout: timeout,
		Strategy:    strategy,
	}, nil
}

// resolveTarget picks the traversal root: the registry itself, or the
// first application matching the name substring and/or process id.
func resolveTarget(ctx context.Context, bus *atspi.Bus, app string, pid int) (model.Handle, string, error) {
	if app == "" && pid == 0 {
		return bus.Registry(), "", nil
	}
	apps, err := bus.Applications(ctx)
	if err != nil {
		return model.Handle{}, "", fmt.Errorf("list applications: %w", err)
	}
	a, err := matchApp(apps, app, pid)
	if err != nil {
		return model.Handle{}, "", err
	}
	return a.Handle, a.Name, nil
}

// matchApp applies the name and pid filters to the application list.
// When both are given, both must match.
func matchApp(apps []atspi.App, app string, pid int) (atspi.App, error) {
	for _, a := range apps {
		if pid != 0 && int(a.Pid) != pid {
			continue
		}
		if app != "" && !strings.Contains(strings.ToLower(a.Name), strings.ToLower(app)) {
			continue
		}
		return a, nil
	}
	switch {
	case app == "":
		return atspi.App{}, fmt.Errorf("no application with pid %d on the a11y bus", pid)
	case pid == 0:
		return atspi.App{}, fmt.Errorf("no application matching %q on the a11y bus", app)
	default:
		return atspi.App{}, fmt.Errorf("no application matching %q with pid %d on the a11y bus", app, pid)
	}
}

// snapshotLabel names saved snapshots: the matched app, or "registry"
// for whole-desktop snapshots.
func snapshotLabel(app string) string {
	if app == "" {
		return "registry"
	}
	return app
}

// nowTS is the timestamp used for saved snapshots.
func nowTS() int64 {
	return time.Now().Unix()
}
