package traverse

import "github.com/mj1618/a11y-tree/internal/model"

// path is the chain of ancestor handles for one branch, used for cycle
// detection. It is an immutable parent-linked list: extending a branch
// allocates a new head, so sibling branches never observe each other's
// membership. A shared-reference diamond (one handle reachable through
// two non-overlapping parents) is therefore materialized twice, not
// flagged as a cycle; only a true ancestor repeat terminates a branch.
type path struct {
	handle model.Handle
	parent *path
}

// push returns the chain extended with h. Works on a nil receiver.
func (p *path) push(h model.Handle) *path {
	return &path{handle: h, parent: p}
}

// contains reports whether h is an ancestor on this branch.
func (p *path) contains(h model.Handle) bool {
	for n := p; n != nil; n = n.parent {
		if n.handle == h {
			return true
		}
	}
	return false
}
