package traverse

import (
	"github.com/mj1618/a11y-tree/internal/model"
	"github.com/sirupsen/logrus"
)

// boundChildren caps the child handles a single node may materialize,
// returning the kept prefix and how many were dropped. Truncation is
// surfaced on the parent node, never silently presented as a complete
// child list.
func boundChildren(parent model.Handle, children []model.Handle, max int) ([]model.Handle, int) {
	if len(children) <= max {
		return children, 0
	}
	omitted := len(children) - max
	logrus.Warnf("truncating children of %s: %d reported, keeping %d", parent, len(children), max)
	return children[:max], omitted
}
