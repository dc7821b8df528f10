package traverse

import (
	"context"
	"fmt"

	"github.com/mj1618/a11y-tree/internal/atspi"
	"github.com/mj1618/a11y-tree/internal/model"
	"golang.org/x/sync/errgroup"
)

// buildRecursive walks depth-first: attributes, then children, then
// each child's subtree before the parent is assembled. Every child
// subtree runs in its own goroutine, so a "frame" is a heap-allocated
// goroutine stack rather than a slot on one fixed call stack, so depth is
// bounded by memory, not by a compiled-in stack limit. The fetcher's
// semaphore is the only throttle on outstanding remote calls.
func buildRecursive(ctx context.Context, client atspi.Client, root model.Handle, cfg Config) (model.Node, error) {
	f := newFetcher(client, cfg)

	attrs, err := f.attributes(ctx, root)
	if err != nil {
		if ctx.Err() != nil {
			return model.Node{}, ctx.Err()
		}
		return model.Node{}, fmt.Errorf("%w: %w", ErrRootUnreachable, err)
	}

	return f.expand(ctx, root, attrs, (*path)(nil).push(root))
}

// expand materializes the subtree under a handle whose attributes are
// already known. The returned error is only ever a cancellation; every
// per-node failure is encoded into the tree instead.
func (f *fetcher) expand(ctx context.Context, h model.Handle, attrs model.Attributes, p *path) (model.Node, error) {
	children, err := f.children(ctx, h)
	if err != nil {
		if ctx.Err() != nil {
			return model.Node{}, ctx.Err()
		}
		return failedNode(h, err), nil
	}

	kept, omitted := boundChildren(h, children, f.cfg.MaxChildren)

	// Children resolve concurrently but land in their reported slots:
	// output order is source order, never completion order.
	resolved := make([]model.Node, len(kept))
	eg, gctx := errgroup.WithContext(ctx)
	for i, child := range kept {
		eg.Go(func() error {
			n, err := f.resolve(gctx, child, p)
			if err != nil {
				return err
			}
			resolved[i] = n
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return model.Node{}, err
	}

	return makeNode(h, attrs, resolved, omitted), nil
}

func (f *fetcher) resolve(ctx context.Context, h model.Handle, p *path) (model.Node, error) {
	if p.contains(h) {
		return cycleNode(h), nil
	}

	attrs, err := f.attributes(ctx, h)
	if err != nil {
		if ctx.Err() != nil {
			return model.Node{}, ctx.Err()
		}
		return failedNode(h, err), nil
	}

	return f.expand(ctx, h, attrs, p.push(h))
}
