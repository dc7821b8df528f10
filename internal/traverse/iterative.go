package traverse

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/edwingeng/deque"
	"github.com/mj1618/a11y-tree/internal/atspi"
	"github.com/mj1618/a11y-tree/internal/model"
	"golang.org/x/sync/errgroup"
)

// frame is one pending unit of work: a handle to resolve, the ancestor
// chain it was reached through, and the slot in the growing tree where
// its finished node must be written.
type frame struct {
	handle model.Handle
	path   *path
	slot   *model.Node
	isRoot bool
}

// errRootFailed stops the worker pool when the root's own attribute
// fetch fails; the cause is recorded separately on the walk.
var errRootFailed = errors.New("root attribute fetch failed")

// iterativeWalk drains an explicit work list with a bounded worker
// pool. Frames are independent: each one performs its own two remote
// calls and writes only its own preallocated slot, so no cross-frame
// state is shared beyond the deque itself.
type iterativeWalk struct {
	f       *fetcher
	mu      sync.Mutex
	cond    *sync.Cond
	work    deque.Deque
	pending int
	rootErr error
}

// buildIterative is the explicit work-list strategy. Output is
// byte-for-byte the same tree the recursive strategy produces; only the
// memory shape differs: a heap-resident deque instead of goroutine
// frames per level.
func buildIterative(ctx context.Context, client atspi.Client, root model.Handle, cfg Config) (model.Node, error) {
	w := &iterativeWalk{
		f:    newFetcher(client, cfg),
		work: deque.NewDeque(),
	}
	w.cond = sync.NewCond(&w.mu)

	var tree model.Node
	w.push(&frame{handle: root, slot: &tree, isRoot: true})

	eg, gctx := errgroup.WithContext(ctx)

	// Workers block on the condition variable while the list is empty;
	// wake them when the walk is cancelled so they can observe it.
	stop := context.AfterFunc(gctx, func() { w.cond.Broadcast() })
	defer stop()

	for range cfg.Concurrency {
		eg.Go(func() error { return w.run(gctx) })
	}
	if err := eg.Wait(); err != nil {
		if errors.Is(err, errRootFailed) {
			return model.Node{}, fmt.Errorf("%w: %w", ErrRootUnreachable, w.rootErr)
		}
		return model.Node{}, err
	}

	return tree, nil
}

func (w *iterativeWalk) push(fr *frame) {
	w.mu.Lock()
	w.pending++
	w.work.PushBack(fr)
	w.mu.Unlock()
	w.cond.Signal()
}

// next pops the newest frame, blocking until work is available, the
// walk drains, or the context is cancelled. Popping newest-first keeps
// the live work list proportional to depth times fan-out rather than to
// the full frontier width.
func (w *iterativeWalk) next(ctx context.Context) (*frame, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	for {
		if ctx.Err() != nil || w.pending == 0 {
			return nil, false
		}
		if !w.work.Empty() {
			return w.work.PopBack().(*frame), true
		}
		w.cond.Wait()
	}
}

// done retires a frame. The last retirement wakes every waiting worker
// so the pool can exit.
func (w *iterativeWalk) done() {
	w.mu.Lock()
	w.pending--
	finished := w.pending == 0
	w.mu.Unlock()
	if finished {
		w.cond.Broadcast()
	}
}

func (w *iterativeWalk) run(ctx context.Context) error {
	for {
		fr, ok := w.next(ctx)
		if !ok {
			return ctx.Err()
		}
		err := w.process(ctx, fr)
		w.done()
		if err != nil {
			return err
		}
	}
}

func (w *iterativeWalk) process(ctx context.Context, fr *frame) error {
	if fr.path.contains(fr.handle) {
		*fr.slot = cycleNode(fr.handle)
		return nil
	}

	attrs, err := w.f.attributes(ctx, fr.handle)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if fr.isRoot {
			w.mu.Lock()
			w.rootErr = err
			w.mu.Unlock()
			return errRootFailed
		}
		*fr.slot = failedNode(fr.handle, err)
		return nil
	}

	children, err := w.f.children(ctx, fr.handle)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		*fr.slot = failedNode(fr.handle, err)
		return nil
	}

	kept, omitted := boundChildren(fr.handle, children, w.f.cfg.MaxChildren)

	// The parent node is written before its child frames are queued, so
	// each child's slot points into settled memory; a frame only ever
	// writes its own slot.
	*fr.slot = makeNode(fr.handle, attrs, make([]model.Node, len(kept)), omitted)
	next := fr.path.push(fr.handle)
	for i, child := range kept {
		w.push(&frame{handle: child, path: next, slot: &fr.slot.Children[i]})
	}
	return nil
}
