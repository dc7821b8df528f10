package traverse

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/mj1618/a11y-tree/internal/atspi"
	"github.com/mj1618/a11y-tree/internal/model"
)

func h(n int) model.Handle {
	return model.Handle{Sender: ":1.100", Path: fmt.Sprintf("/org/a11y/atspi/accessible/%d", n)}
}

// fakeClient is an in-memory remote graph with scriptable failures.
type fakeClient struct {
	mu sync.Mutex

	attrs    map[model.Handle]model.Attributes
	children map[model.Handle][]model.Handle

	// failAttrs / failChildren: number of calls to fail for a handle
	// before succeeding; -1 fails every call.
	failAttrs    map[model.Handle]int
	failChildren map[model.Handle]int
	attrErr      map[model.Handle]error
	childErr     map[model.Handle]error

	// blockAttrs / blockChildren make the call hang until its context
	// is done, then fail with a timeout-kind error.
	blockAttrs    map[model.Handle]bool
	blockChildren map[model.Handle]bool

	attrCalls  map[model.Handle]int
	childCalls map[model.Handle]int

	callDelay   time.Duration
	inflight    int
	maxInflight int
}

func newFake() *fakeClient {
	return &fakeClient{
		attrs:         make(map[model.Handle]model.Attributes),
		children:      make(map[model.Handle][]model.Handle),
		failAttrs:     make(map[model.Handle]int),
		failChildren:  make(map[model.Handle]int),
		attrErr:       make(map[model.Handle]error),
		childErr:      make(map[model.Handle]error),
		blockAttrs:    make(map[model.Handle]bool),
		blockChildren: make(map[model.Handle]bool),
		attrCalls:     make(map[model.Handle]int),
		childCalls:    make(map[model.Handle]int),
	}
}

func (c *fakeClient) add(handle model.Handle, role string, children ...model.Handle) {
	c.attrs[handle] = model.Attributes{Role: role, Name: role, ChildCount: len(children)}
	c.children[handle] = children
}

func transientErr(handle model.Handle, op string) error {
	return &atspi.RemoteError{Handle: handle, Op: op, Kind: atspi.ErrTimeout, Err: errors.New("no reply")}
}

func permanentErr(handle model.Handle, op string) error {
	return &atspi.RemoteError{Handle: handle, Op: op, Kind: atspi.ErrNotImplemented, Err: errors.New("unknown method")}
}

func (c *fakeClient) enter() {
	c.mu.Lock()
	c.inflight++
	if c.inflight > c.maxInflight {
		c.maxInflight = c.inflight
	}
	c.mu.Unlock()
	if c.callDelay > 0 {
		time.Sleep(c.callDelay)
	}
}

func (c *fakeClient) exit() {
	c.mu.Lock()
	c.inflight--
	c.mu.Unlock()
}

func (c *fakeClient) Attributes(ctx context.Context, handle model.Handle) (model.Attributes, error) {
	c.enter()
	defer c.exit()

	c.mu.Lock()
	c.attrCalls[handle]++
	blocked := c.blockAttrs[handle]
	remaining := c.failAttrs[handle]
	if remaining > 0 {
		c.failAttrs[handle]--
	}
	failErr := c.attrErr[handle]
	attrs, known := c.attrs[handle]
	c.mu.Unlock()

	if blocked {
		<-ctx.Done()
		return model.Attributes{}, &atspi.RemoteError{Handle: handle, Op: "attributes", Kind: atspi.ErrTimeout, Err: ctx.Err()}
	}
	if remaining != 0 {
		if failErr == nil {
			failErr = transientErr(handle, "attributes")
		}
		return model.Attributes{}, failErr
	}
	if !known {
		return model.Attributes{}, permanentErr(handle, "attributes")
	}
	return attrs, nil
}

func (c *fakeClient) Children(ctx context.Context, handle model.Handle) ([]model.Handle, error) {
	c.enter()
	defer c.exit()

	c.mu.Lock()
	c.childCalls[handle]++
	blocked := c.blockChildren[handle]
	remaining := c.failChildren[handle]
	if remaining > 0 {
		c.failChildren[handle]--
	}
	failErr := c.childErr[handle]
	children := c.children[handle]
	c.mu.Unlock()

	if blocked {
		<-ctx.Done()
		return nil, &atspi.RemoteError{Handle: handle, Op: "children", Kind: atspi.ErrTimeout, Err: ctx.Err()}
	}
	if remaining != 0 {
		if failErr == nil {
			failErr = transientErr(handle, "children")
		}
		return nil, failErr
	}
	return children, nil
}

var strategies = []Strategy{Recursive, Iterative}

func build(t *testing.T, c *fakeClient, root model.Handle, cfg Config) model.Node {
	t.Helper()
	tree, err := BuildTree(context.Background(), c, root, cfg)
	if err != nil {
		t.Fatalf("BuildTree(%s): %v", cfg.Strategy, err)
	}
	return tree
}

// The worked example: root R has children [A, B]; A has no children; B
// has children [C, D] where D's attribute fetch always fails.
func exampleGraph() *fakeClient {
	c := newFake()
	c.add(h(0), "frame", h(1), h(2))
	c.add(h(1), "panel")
	c.add(h(2), "panel", h(3), h(4))
	c.add(h(3), "push button")
	// h(4) is never registered: its attribute fetch fails permanently.
	return c
}

func TestBuildTree_ExampleScenario(t *testing.T) {
	for _, strat := range strategies {
		c := exampleGraph()
		tree := build(t, c, h(0), Config{Strategy: strat})

		if tree.Kind != model.KindNode || len(tree.Children) != 2 {
			t.Fatalf("%s: unexpected root: kind=%s children=%d", strat, tree.Kind, len(tree.Children))
		}
		a := tree.Children[0]
		if a.Kind != model.KindNode || len(a.Children) != 0 || a.Attrs.Role != "panel" {
			t.Errorf("%s: unexpected node A: %+v", strat, a)
		}
		b := tree.Children[1]
		if b.Kind != model.KindNode || len(b.Children) != 2 {
			t.Fatalf("%s: unexpected node B: kind=%s children=%d", strat, b.Kind, len(b.Children))
		}
		if b.Children[0].Kind != model.KindNode || b.Children[0].Attrs.Role != "push button" {
			t.Errorf("%s: unexpected node C: %+v", strat, b.Children[0])
		}
		d := b.Children[1]
		if d.Kind != model.KindFailed || d.Handle != h(4) || d.Err == "" {
			t.Errorf("%s: expected failed leaf for D, got %+v", strat, d)
		}
	}
}

func TestStrategyEquivalence(t *testing.T) {
	// A graph exercising every node variant: failures, a cycle, and a
	// truncated fan-out.
	makeGraph := func() *fakeClient {
		c := newFake()
		wide := make([]model.Handle, 20)
		for i := range wide {
			wide[i] = h(100 + i)
			c.add(wide[i], "list item")
		}
		c.add(h(0), "frame", h(1), h(2), h(3))
		c.add(h(1), "panel", h(4), h(5))
		c.add(h(2), "list", wide...)
		c.add(h(3), "panel", h(0)) // back-reference to the root
		c.add(h(4), "text")
		c.failChildren[h(5)] = -1
		c.add(h(5), "tree")
		return c
	}

	cfg := Config{MaxChildren: 7, Concurrency: 4}

	cfg.Strategy = Recursive
	recTree := build(t, makeGraph(), h(0), cfg)
	cfg.Strategy = Iterative
	iterTree := build(t, makeGraph(), h(0), cfg)

	if !recTree.Equal(&iterTree) {
		t.Error("expected recursive and iterative strategies to produce identical trees")
	}
	if recTree.Count() != iterTree.Count() {
		t.Errorf("node counts differ: recursive=%d iterative=%d", recTree.Count(), iterTree.Count())
	}
}

func TestOrderPreservation(t *testing.T) {
	for _, strat := range strategies {
		c := newFake()
		children := make([]model.Handle, 50)
		for i := range children {
			children[i] = h(10 + i)
			c.attrs[children[i]] = model.Attributes{Role: "list item", Name: fmt.Sprintf("item-%02d", i)}
		}
		c.add(h(0), "list", children...)
		c.callDelay = time.Millisecond // let completion order scramble

		tree := build(t, c, h(0), Config{Strategy: strat, Concurrency: 8})
		if len(tree.Children) != 50 {
			t.Fatalf("%s: expected 50 children, got %d", strat, len(tree.Children))
		}
		for i, child := range tree.Children {
			want := fmt.Sprintf("item-%02d", i)
			if child.Attrs == nil || child.Attrs.Name != want {
				t.Errorf("%s: child %d: expected name %q, got %+v", strat, i, want, child.Attrs)
			}
		}
	}
}

func TestCycleTermination(t *testing.T) {
	for _, strat := range strategies {
		c := newFake()
		c.add(h(0), "frame", h(1))
		c.add(h(1), "panel", h(0)) // A -> B -> A

		tree := build(t, c, h(0), Config{Strategy: strat})
		if len(tree.Children) != 1 {
			t.Fatalf("%s: expected 1 child, got %d", strat, len(tree.Children))
		}
		b := tree.Children[0]
		if b.Kind != model.KindNode || len(b.Children) != 1 {
			t.Fatalf("%s: unexpected node B: %+v", strat, b)
		}
		back := b.Children[0]
		if back.Kind != model.KindCycle || back.Handle != h(0) {
			t.Errorf("%s: expected cycle marker for the root, got %+v", strat, back)
		}
	}
}

func TestSelfCycle(t *testing.T) {
	for _, strat := range strategies {
		c := newFake()
		c.add(h(0), "frame", h(1))
		c.add(h(1), "panel", h(1)) // lists itself as its own child

		tree := build(t, c, h(0), Config{Strategy: strat})
		self := tree.Children[0].Children[0]
		if self.Kind != model.KindCycle || self.Handle != h(1) {
			t.Errorf("%s: expected self-cycle marker, got %+v", strat, self)
		}
	}
}

func TestDiamondIsNotACycle(t *testing.T) {
	// S is reachable through two non-overlapping parents. The active
	// path only blocks ancestors, so S is materialized twice.
	for _, strat := range strategies {
		c := newFake()
		c.add(h(0), "frame", h(1), h(2))
		c.add(h(1), "panel", h(3))
		c.add(h(2), "panel", h(3))
		c.add(h(3), "push button")

		tree := build(t, c, h(0), Config{Strategy: strat})
		left := tree.Children[0].Children[0]
		right := tree.Children[1].Children[0]
		if left.Kind != model.KindNode || right.Kind != model.KindNode {
			t.Errorf("%s: expected both copies materialized, got %s and %s", strat, left.Kind, right.Kind)
		}
		if !left.Equal(&right) {
			t.Errorf("%s: expected both copies to be identical", strat)
		}
	}
}

func TestFanOutBound(t *testing.T) {
	for _, strat := range strategies {
		c := newFake()
		children := make([]model.Handle, 10)
		for i := range children {
			children[i] = h(10 + i)
			c.add(children[i], "list item")
		}
		c.add(h(0), "list", children...)

		tree := build(t, c, h(0), Config{Strategy: strat, MaxChildren: 3})
		if tree.Kind != model.KindTruncated {
			t.Errorf("%s: expected truncated root, got %s", strat, tree.Kind)
		}
		if len(tree.Children) != 3 {
			t.Errorf("%s: expected 3 materialized children, got %d", strat, len(tree.Children))
		}
		if tree.Omitted != 7 {
			t.Errorf("%s: expected 7 omitted, got %d", strat, tree.Omitted)
		}

		// No calls may be issued for children past the cap.
		for i, child := range children {
			want := 0
			if i < 3 {
				want = 1
			}
			if got := c.attrCalls[child]; got != want {
				t.Errorf("%s: child %d: expected %d attribute calls, got %d", strat, i, want, got)
			}
		}
	}
}

func TestPartialFailureIsolation(t *testing.T) {
	for _, strat := range strategies {
		c := exampleGraph()
		tree := build(t, c, h(0), Config{Strategy: strat})

		var failed, resolved int
		tree.Walk(func(n *model.Node) {
			switch n.Kind {
			case model.KindFailed:
				failed++
			case model.KindNode:
				resolved++
			}
		})
		if failed != 1 {
			t.Errorf("%s: expected exactly 1 failed leaf, got %d", strat, failed)
		}
		if resolved != 4 {
			t.Errorf("%s: expected 4 resolved nodes, got %d", strat, resolved)
		}
		// Method-not-implemented is permanent: exactly one call, no retry.
		if got := c.attrCalls[h(4)]; got != 1 {
			t.Errorf("%s: expected 1 attribute call for failing node, got %d", strat, got)
		}
	}
}

func TestChildrenFetchFailureIsNonFatal(t *testing.T) {
	for _, strat := range strategies {
		c := newFake()
		c.add(h(0), "frame", h(1), h(2))
		c.add(h(1), "panel")
		c.add(h(2), "panel")
		c.failChildren[h(1)] = -1
		c.childErr[h(1)] = permanentErr(h(1), "children")

		tree := build(t, c, h(0), Config{Strategy: strat})
		if tree.Children[0].Kind != model.KindFailed {
			t.Errorf("%s: expected failed leaf for children failure, got %s", strat, tree.Children[0].Kind)
		}
		if tree.Children[1].Kind != model.KindNode {
			t.Errorf("%s: expected sibling to resolve, got %s", strat, tree.Children[1].Kind)
		}
	}
}

func TestRootFailureIsFatal(t *testing.T) {
	for _, strat := range strategies {
		c := newFake() // root never registered: attribute fetch fails
		_, err := BuildTree(context.Background(), c, h(0), Config{Strategy: strat})
		if err == nil {
			t.Fatalf("%s: expected error for unreachable root", strat)
		}
		if !errors.Is(err, ErrRootUnreachable) {
			t.Errorf("%s: expected ErrRootUnreachable, got %v", strat, err)
		}
	}
}

func TestRetryOnceOnTransientFailure(t *testing.T) {
	for _, strat := range strategies {
		c := newFake()
		c.add(h(0), "frame", h(1))
		c.add(h(1), "panel")
		c.failAttrs[h(1)] = 1 // fail the first call, succeed on retry

		tree := build(t, c, h(0), Config{Strategy: strat})
		if tree.Children[0].Kind != model.KindNode {
			t.Errorf("%s: expected node after retry, got %+v", strat, tree.Children[0])
		}
		if got := c.attrCalls[h(1)]; got != 2 {
			t.Errorf("%s: expected 2 attribute calls, got %d", strat, got)
		}
	}
}

func TestRetryAtMostOnce(t *testing.T) {
	for _, strat := range strategies {
		c := newFake()
		c.add(h(0), "frame", h(1))
		c.add(h(1), "panel")
		c.failAttrs[h(1)] = -1 // transient error on every call

		tree := build(t, c, h(0), Config{Strategy: strat})
		if tree.Children[0].Kind != model.KindFailed {
			t.Errorf("%s: expected failed leaf, got %s", strat, tree.Children[0].Kind)
		}
		if got := c.attrCalls[h(1)]; got != 2 {
			t.Errorf("%s: expected exactly 2 attribute calls (one retry), got %d", strat, got)
		}
	}
}

func TestConcurrencyCeiling(t *testing.T) {
	for _, strat := range strategies {
		c := newFake()
		children := make([]model.Handle, 30)
		for i := range children {
			children[i] = h(10 + i)
			c.add(children[i], "list item")
		}
		c.add(h(0), "list", children...)
		c.callDelay = 2 * time.Millisecond

		build(t, c, h(0), Config{Strategy: strat, Concurrency: 4})

		c.mu.Lock()
		peak := c.maxInflight
		c.mu.Unlock()
		if peak > 4 {
			t.Errorf("%s: expected at most 4 outstanding calls, observed %d", strat, peak)
		}
	}
}

func TestPerCallTimeoutIsIsolated(t *testing.T) {
	for _, strat := range strategies {
		c := newFake()
		c.add(h(0), "frame", h(1), h(2))
		c.add(h(1), "panel")
		c.add(h(2), "panel")
		c.blockChildren[h(1)] = true // hangs until the per-call deadline

		start := time.Now()
		tree := build(t, c, h(0), Config{Strategy: strat, CallTimeout: 20 * time.Millisecond})
		if elapsed := time.Since(start); elapsed > 2*time.Second {
			t.Errorf("%s: traversal took %v, hung on a single slow call", strat, elapsed)
		}

		if tree.Children[0].Kind != model.KindFailed {
			t.Errorf("%s: expected failed leaf for hanging node, got %s", strat, tree.Children[0].Kind)
		}
		if tree.Children[1].Kind != model.KindNode {
			t.Errorf("%s: expected healthy sibling to resolve, got %s", strat, tree.Children[1].Kind)
		}
	}
}

func TestCancellation(t *testing.T) {
	for _, strat := range strategies {
		c := newFake()
		c.add(h(0), "frame", h(1))
		c.add(h(1), "panel")
		c.blockAttrs[h(1)] = true

		ctx, cancel := context.WithCancel(context.Background())
		go func() {
			time.Sleep(20 * time.Millisecond)
			cancel()
		}()

		_, err := BuildTree(ctx, c, h(0), Config{Strategy: strat, CallTimeout: time.Minute})
		if err == nil {
			t.Fatalf("%s: expected error after cancellation", strat)
		}
		if !errors.Is(err, context.Canceled) {
			t.Errorf("%s: expected context.Canceled, got %v", strat, err)
		}
	}
}

func TestDeepGraphDoesNotOverflow(t *testing.T) {
	for _, strat := range strategies {
		c := newFake()
		const depth = 20000
		for i := 0; i < depth; i++ {
			c.add(h(i), "panel", h(i+1))
		}
		c.add(h(depth), "panel")

		tree := build(t, c, h(0), Config{Strategy: strat, Concurrency: 8})
		if got := tree.Count(); got != depth+1 {
			t.Errorf("%s: expected %d nodes, got %d", strat, depth+1, got)
		}
	}
}

func TestParseStrategy(t *testing.T) {
	if s, err := ParseStrategy("recursive"); err != nil || s != Recursive {
		t.Errorf("expected recursive, got %v %v", s, err)
	}
	if s, err := ParseStrategy("iterative"); err != nil || s != Iterative {
		t.Errorf("expected iterative, got %v %v", s, err)
	}
	if _, err := ParseStrategy("bfs"); err == nil {
		t.Error("expected error for unknown strategy")
	}
}
