package output

import (
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/mj1618/a11y-tree/internal/model"
)

var (
	roleColor = color.New(color.FgCyan)
	errColor  = color.New(color.FgRed)
	noteColor = color.New(color.FgYellow)
)

// renderFrame is one pending line: the node, the accumulated ancestor
// prefix, and whether the node is the last child at its level.
type renderFrame struct {
	n      *model.Node
	prefix string
	last   bool
	root   bool
}

// RenderTree writes the snapshot to w in `tree`-style form, one node
// per line with box-drawing connectors. Failure, cycle, and truncation
// markers render inline so a partial snapshot is still readable.
// Iterative so deep snapshots render without overflowing the stack.
func RenderTree(w io.Writer, n model.Node) error {
	stack := []renderFrame{{n: &n, root: true}}
	for len(stack) > 0 {
		fr := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		line := label(*fr.n)
		childPrefix := fr.prefix
		if !fr.root {
			if fr.last {
				line = fr.prefix + "└── " + line
				// four spaces to emulate `tree`
				childPrefix += "    "
			} else {
				line = fr.prefix + "├── " + line
				// three spaces after the vertical bar
				childPrefix += "│   "
			}
		}
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}

		// Children go on in reverse so they pop in stored order.
		for i := len(fr.n.Children) - 1; i >= 0; i-- {
			stack = append(stack, renderFrame{
				n:      &fr.n.Children[i],
				prefix: childPrefix,
				last:   i == len(fr.n.Children)-1,
			})
		}
	}
	return nil
}

func label(n model.Node) string {
	switch n.Kind {
	case model.KindFailed:
		return errColor.Sprintf("failed %s: %s", n.Handle, n.Err)
	case model.KindCycle:
		return noteColor.Sprintf("cycle back to %s", n.Handle)
	}

	role := "unknown"
	name := ""
	if n.Attrs != nil {
		role = n.Attrs.Role
		name = n.Attrs.Name
	}
	out := roleColor.Sprint(role)
	if name != "" {
		out += fmt.Sprintf(" %q", name)
	}
	if n.Kind == model.KindTruncated {
		out += " " + noteColor.Sprintf("(%d children omitted)", n.Omitted)
	}
	return out
}
