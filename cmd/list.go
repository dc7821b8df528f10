package cmd

import (
	"github.com/mj1618/a11y-tree/internal/atspi"
	"github.com/mj1618/a11y-tree/internal/output"
	"github.com/spf13/cobra"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List applications on the a11y bus",
	Long:  "List the application roots registered with the a11y registry, with their name, role, pid, and reported child count.",
	RunE:  runList,
}

func init() {
	rootCmd.AddCommand(listCmd)
	listCmd.Flags().Bool("pretty", false, "Pretty-print JSON output")
}

// appEntry is the output row for one application.
type appEntry struct {
	App      string `yaml:"app"           json:"app"`
	Role     string `yaml:"role"          json:"role"`
	Children int    `yaml:"children"      json:"children"`
	Sender   string `yaml:"sender"        json:"sender"`
	Pid      uint32 `yaml:"pid,omitempty" json:"pid,omitempty"`
}

func runList(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	bus, err := atspi.Connect(ctx)
	if err != nil {
		return err
	}
	defer bus.Close()

	apps, err := bus.Applications(ctx)
	if err != nil {
		return err
	}

	entries := make([]appEntry, 0, len(apps))
	for _, a := range apps {
		entries = append(entries, appEntry{
			App:      a.Name,
			Role:     a.Role,
			Children: a.ChildCount,
			Sender:   a.Handle.Sender,
			Pid:      a.Pid,
		})
	}
	if output.OutputFormat == output.FormatJSON {
		return output.Print(entries)
	}
	return output.PrintYAML(entries)
}
