// Package traverse materializes the remote accessibility graph into an
// immutable local snapshot. The graph lives in other processes, is
// reachable only through request/response calls, and may be arbitrarily
// deep, cyclic, or hostile; every remote call is treated as untrusted
// and bounded in both size and duration.
package traverse

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/mj1618/a11y-tree/internal/atspi"
	"github.com/mj1618/a11y-tree/internal/model"
	"github.com/sirupsen/logrus"
)

// Strategy selects how the walk is driven. Both strategies produce
// structurally identical snapshots for the same graph and config; they
// differ in constant factors and memory shape.
type Strategy string

const (
	// Recursive resolves each subtree depth-first in its own goroutine.
	// Lower overhead on shallow, narrow graphs.
	Recursive Strategy = "recursive"
	// Iterative drains an explicit work list with a bounded worker
	// pool. Flatter per-node overhead; wins once the graph grows into
	// the thousands of objects.
	Iterative Strategy = "iterative"
)

// ParseStrategy converts a flag value into a Strategy.
func ParseStrategy(s string) (Strategy, error) {
	switch Strategy(s) {
	case Recursive, Iterative:
		return Strategy(s), nil
	default:
		return "", fmt.Errorf("unknown strategy: %q (expected recursive or iterative)", s)
	}
}

// Config bounds a single traversal.
type Config struct {
	// MaxChildren caps how many children of a single node are
	// materialized. A remote object may report billions of children;
	// the cap keeps that from becoming billions of calls or a reply
	// past the bus message ceiling.
	MaxChildren int
	// Concurrency caps simultaneous outstanding remote calls.
	Concurrency int
	// CallTimeout bounds each individual remote call, so one hanging
	// application cannot stall the rest of the walk.
	CallTimeout time.Duration
	Strategy    Strategy
}

const (
	DefaultMaxChildren = 100000
	DefaultConcurrency = 16
	DefaultCallTimeout = 2 * time.Second
)

func (c Config) withDefaults() Config {
	if c.MaxChildren <= 0 {
		c.MaxChildren = DefaultMaxChildren
	}
	if c.Concurrency <= 0 {
		c.Concurrency = DefaultConcurrency
	}
	if c.CallTimeout <= 0 {
		c.CallTimeout = DefaultCallTimeout
	}
	if c.Strategy == "" {
		c.Strategy = Iterative
	}
	return c
}

// ErrRootUnreachable marks a root whose own attribute fetch failed. A
// root that cannot even be described cannot produce a tree; any other
// node's failure becomes a marker leaf instead.
var ErrRootUnreachable = errors.New("root object is unreachable")

// BuildTree snapshots the graph reachable from root. Non-root failures
// never abort the walk: a failed branch is materialized as a failed
// leaf and siblings continue. Cancelling ctx aborts the walk with an
// error and no partial tree is returned.
func BuildTree(ctx context.Context, client atspi.Client, root model.Handle, cfg Config) (model.Node, error) {
	cfg = cfg.withDefaults()
	switch cfg.Strategy {
	case Recursive:
		return buildRecursive(ctx, client, root, cfg)
	default:
		return buildIterative(ctx, client, root, cfg)
	}
}

// fetcher wraps the client with the per-call timeout, the retry-once
// policy for transient failures, and the traversal-wide call limit.
type fetcher struct {
	client atspi.Client
	cfg    Config
	sem    chan struct{}
}

func newFetcher(client atspi.Client, cfg Config) *fetcher {
	return &fetcher{
		client: client,
		cfg:    cfg,
		sem:    make(chan struct{}, cfg.Concurrency),
	}
}

func (f *fetcher) acquire(ctx context.Context) error {
	select {
	case f.sem <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (f *fetcher) release() { <-f.sem }

// retryable reports whether a failed call may be retried: transient
// transport trouble only, never a missing method.
func retryable(err error) bool {
	var re *atspi.RemoteError
	if errors.As(err, &re) {
		return re.Temporary()
	}
	return false
}

func (f *fetcher) attributes(ctx context.Context, h model.Handle) (model.Attributes, error) {
	if err := f.acquire(ctx); err != nil {
		return model.Attributes{}, err
	}
	defer f.release()

	attrs, err := f.callAttributes(ctx, h)
	if err != nil && retryable(err) && ctx.Err() == nil {
		logrus.Debugf("retrying attributes for %s: %v", h, err)
		attrs, err = f.callAttributes(ctx, h)
	}
	return attrs, err
}

func (f *fetcher) callAttributes(ctx context.Context, h model.Handle) (model.Attributes, error) {
	cctx, cancel := context.WithTimeout(ctx, f.cfg.CallTimeout)
	defer cancel()
	return f.client.Attributes(cctx, h)
}

func (f *fetcher) children(ctx context.Context, h model.Handle) ([]model.Handle, error) {
	if err := f.acquire(ctx); err != nil {
		return nil, err
	}
	defer f.release()

	children, err := f.callChildren(ctx, h)
	if err != nil && retryable(err) && ctx.Err() == nil {
		logrus.Debugf("retrying children for %s: %v", h, err)
		children, err = f.callChildren(ctx, h)
	}
	return children, err
}

func (f *fetcher) callChildren(ctx context.Context, h model.Handle) ([]model.Handle, error) {
	cctx, cancel := context.WithTimeout(ctx, f.cfg.CallTimeout)
	defer cancel()
	return f.client.Children(cctx, h)
}

func failedNode(h model.Handle, err error) model.Node {
	return model.Node{Kind: model.KindFailed, Handle: h, Err: err.Error()}
}

func cycleNode(h model.Handle) model.Node {
	return model.Node{Kind: model.KindCycle, Handle: h}
}

func makeNode(h model.Handle, attrs model.Attributes, children []model.Node, omitted int) model.Node {
	kind := model.KindNode
	if omitted > 0 {
		kind = model.KindTruncated
	}
	return model.Node{
		Kind:     kind,
		Handle:   h,
		Attrs:    &attrs,
		Children: children,
		Omitted:  omitted,
	}
}
