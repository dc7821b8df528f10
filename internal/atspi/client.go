package atspi

import (
	"context"

	"github.com/mj1618/a11y-tree/internal/model"
)

// Client is the remote half of a traversal: the two calls the engine
// needs to resolve one accessible object. Both calls are idempotent and
// side-effect-free; either may fail independently per object.
type Client interface {
	// Attributes fetches the remote-reported properties of one object.
	Attributes(ctx context.Context, h model.Handle) (model.Attributes, error)

	// Children fetches the ordered child handles of one object. The
	// order is semantically meaningful: it mirrors the on-screen or
	// logical order in the source application.
	Children(ctx context.Context, h model.Handle) ([]model.Handle, error)
}
