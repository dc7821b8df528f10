package model

// Kind discriminates the node variants of a snapshot tree.
type Kind string

const (
	// KindNode is a fully resolved node: attributes plus every child the
	// remote object reported, in the order it reported them.
	KindNode Kind = "node"
	// KindFailed marks a branch whose attribute or children fetch failed.
	KindFailed Kind = "failed"
	// KindCycle marks a handle that was already on the active path when
	// it was reported as a child again. The branch is not re-entered.
	KindCycle Kind = "cycle"
	// KindTruncated is a resolved node whose child list was capped; only
	// a bounded prefix of its children was materialized.
	KindTruncated Kind = "truncated"
)

// Node is one node of a snapshot. A snapshot is immutable once returned:
// it is a copy of the remote graph as it existed at traversal time, not a
// live view. Children preserve the order the remote object reported.
type Node struct {
	Kind     Kind        `yaml:"k"            json:"k"`
	Handle   Handle      `yaml:"h"            json:"h"`
	Attrs    *Attributes `yaml:"a,omitempty"  json:"a,omitempty"`  // set for node and truncated
	Err      string      `yaml:"e,omitempty"  json:"e,omitempty"`  // set for failed
	Children []Node      `yaml:"c,omitempty"  json:"c,omitempty"`  // set for node and truncated
	Omitted  int         `yaml:"om,omitempty" json:"om,omitempty"` // children dropped by truncation
}

// Count returns the number of nodes in the snapshot, including failure,
// cycle, and truncation markers. Iterative so deep snapshots cannot
// overflow the stack.
func (n *Node) Count() int {
	count := 0
	stack := []*Node{n}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		count++
		for i := range cur.Children {
			stack = append(stack, &cur.Children[i])
		}
	}
	return count
}

// Walk calls fn for every node in preorder. Children are visited in
// their stored order.
func (n *Node) Walk(fn func(*Node)) {
	stack := []*Node{n}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		fn(cur)
		for i := len(cur.Children) - 1; i >= 0; i-- {
			stack = append(stack, &cur.Children[i])
		}
	}
}

// Equal reports whether two snapshots are structurally identical: same
// shape, same kinds, same attributes, same child order.
func (n *Node) Equal(other *Node) bool {
	type pair struct{ a, b *Node }
	stack := []pair{{n, other}}
	for len(stack) > 0 {
		p := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if p.a.Kind != p.b.Kind || p.a.Handle != p.b.Handle ||
			p.a.Err != p.b.Err || p.a.Omitted != p.b.Omitted {
			return false
		}
		if (p.a.Attrs == nil) != (p.b.Attrs == nil) {
			return false
		}
		if p.a.Attrs != nil {
			if p.a.Attrs.Role != p.b.Attrs.Role || p.a.Attrs.Name != p.b.Attrs.Name ||
				p.a.Attrs.Description != p.b.Attrs.Description ||
				p.a.Attrs.ChildCount != p.b.Attrs.ChildCount ||
				len(p.a.Attrs.Interfaces) != len(p.b.Attrs.Interfaces) {
				return false
			}
			for i := range p.a.Attrs.Interfaces {
				if p.a.Attrs.Interfaces[i] != p.b.Attrs.Interfaces[i] {
					return false
				}
			}
		}
		if len(p.a.Children) != len(p.b.Children) {
			return false
		}
		for i := range p.a.Children {
			stack = append(stack, pair{&p.a.Children[i], &p.b.Children[i]})
		}
	}
	return true
}
