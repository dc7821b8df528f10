package output

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/mj1618/a11y-tree/internal/model"
	"gopkg.in/yaml.v3"
)

// Format represents the output format.
type Format string

const (
	FormatTree Format = "tree"
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
)

// OutputFormat is the current output format, set by the root command's --format flag.
var OutputFormat Format = FormatTree

// PrettyOutput enables pretty-printing for JSON output.
var PrettyOutput bool

// SnapshotResult is the top-level output of the `snapshot` command.
type SnapshotResult struct {
	App   string     `yaml:"app,omitempty"   json:"app,omitempty"`
	TS    int64      `yaml:"ts"              json:"ts"`
	Stats *Stats     `yaml:"stats,omitempty" json:"stats,omitempty"`
	Tree  model.Node `yaml:"tree"            json:"tree"`
}

// SnapshotFlatResult is the top-level output when --flat is used.
type SnapshotFlatResult struct {
	App   string           `yaml:"app,omitempty"   json:"app,omitempty"`
	TS    int64            `yaml:"ts"              json:"ts"`
	Stats *Stats           `yaml:"stats,omitempty" json:"stats,omitempty"`
	Nodes []model.FlatNode `yaml:"nodes"           json:"nodes"`
}

// Stats summarizes one traversal for --stats output.
type Stats struct {
	Strategy  string `yaml:"strategy" json:"strategy"`
	Nodes     int    `yaml:"nodes"    json:"nodes"`
	ElapsedMS int64  `yaml:"ms"       json:"ms"`
}

// Print serializes v to stdout in the current output format. The tree
// format is handled by RenderTree; callers fall back to YAML here.
func Print(v interface{}) error {
	switch OutputFormat {
	case FormatJSON:
		return PrintJSON(v, PrettyOutput)
	default:
		return PrintYAML(v)
	}
}

// PrintJSON serializes v to stdout as JSON.
// If pretty is true, uses indentation; otherwise single-line.
func PrintJSON(v interface{}, pretty bool) error {
	enc := json.NewEncoder(os.Stdout)
	if pretty {
		enc.SetIndent("", "  ")
	}
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("json encode: %w", err)
	}
	return nil
}

// PrintYAML serializes v to stdout as YAML.
func PrintYAML(v interface{}) error {
	enc := yaml.NewEncoder(os.Stdout)
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("yaml encode: %w", err)
	}
	return enc.Close()
}
