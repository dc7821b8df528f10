package model

import "testing"

func flat(role, name, path string) FlatNode {
	return FlatNode{Kind: KindNode, Role: role, Name: name, Path: path}
}

func TestNodeHash_StableAndDistinct(t *testing.T) {
	a := flat("push button", "OK", "frame > push button")
	b := flat("push button", "OK", "frame > push button")
	if NodeHash(a) != NodeHash(b) {
		t.Error("expected identical nodes to hash equal")
	}
	c := flat("push button", "Cancel", "frame > push button")
	if NodeHash(a) == NodeHash(c) {
		t.Error("expected nodes with different names to hash differently")
	}
}

func TestDiffByHash_AddedAndRemoved(t *testing.T) {
	prev := []FlatNode{
		flat("frame", "Main", "frame"),
		flat("push button", "OK", "frame > push button"),
	}
	curr := []FlatNode{
		flat("frame", "Main", "frame"),
		flat("entry", "Search", "frame > entry"),
	}
	diff := DiffByHash(prev, curr)
	if len(diff.Added) != 1 || diff.Added[0].Role != "entry" {
		t.Errorf("expected one added entry node, got %+v", diff.Added)
	}
	if len(diff.Removed) != 1 || diff.Removed[0].Role != "push button" {
		t.Errorf("expected one removed push button node, got %+v", diff.Removed)
	}
	if diff.UnchangedCount != 1 {
		t.Errorf("expected 1 unchanged node, got %d", diff.UnchangedCount)
	}
}

func TestDiffByHash_ChangedProperties(t *testing.T) {
	prev := []FlatNode{{Kind: KindNode, Role: "list", Name: "Files", Path: "frame > list", ChildCount: 10}}
	curr := []FlatNode{{Kind: KindNode, Role: "list", Name: "Files", Path: "frame > list", ChildCount: 12}}
	diff := DiffByHash(prev, curr)
	if len(diff.Changed) != 1 {
		t.Fatalf("expected 1 changed node, got %d", len(diff.Changed))
	}
	change, ok := diff.Changed[0].Changes["cc"]
	if !ok {
		t.Fatalf("expected a child count change, got %+v", diff.Changed[0].Changes)
	}
	if change[0] != "10" || change[1] != "12" {
		t.Errorf("expected change [10 12], got %v", change)
	}
}

func TestDiffByHash_HandleChurnIsInvisible(t *testing.T) {
	// Handles are reissued per connection; only content identity matters.
	prev := []FlatNode{{Kind: KindNode, Role: "frame", Name: "Main", Path: "frame", Handle: Handle{Sender: ":1.4", Path: "/obj/1"}}}
	curr := []FlatNode{{Kind: KindNode, Role: "frame", Name: "Main", Path: "frame", Handle: Handle{Sender: ":1.88", Path: "/obj/1"}}}
	diff := DiffByHash(prev, curr)
	if len(diff.Added) != 0 || len(diff.Removed) != 0 || len(diff.Changed) != 0 {
		t.Errorf("expected no differences, got %+v", diff)
	}
	if diff.UnchangedCount != 1 {
		t.Errorf("expected 1 unchanged node, got %d", diff.UnchangedCount)
	}
}

func TestSaveLoadSnapshot_RoundTrip(t *testing.T) {
	nodes := []FlatNode{
		flat("frame", "Main", "frame"),
		{Kind: KindFailed, Err: "no reply", Path: "frame > failed"},
	}
	const app = "diff-test-app"
	const ts = int64(1234567890)
	if err := SaveSnapshot(app, ts, nodes); err != nil {
		t.Fatalf("save snapshot: %v", err)
	}
	defer CleanSnapshots(app, 0)

	loaded, err := LoadSnapshot(app, ts)
	if err != nil {
		t.Fatalf("load snapshot: %v", err)
	}
	if len(loaded) != 2 {
		t.Fatalf("expected 2 nodes, got %d", len(loaded))
	}
	if loaded[1].Err != "no reply" {
		t.Errorf("expected err 'no reply', got %q", loaded[1].Err)
	}

	if got := LatestSnapshot(app); got != ts {
		t.Errorf("expected latest snapshot %d, got %d", ts, got)
	}
}

func TestLatestSnapshot_NoneSaved(t *testing.T) {
	if got := LatestSnapshot("never-saved-app"); got != 0 {
		t.Errorf("expected 0 for missing snapshot, got %d", got)
	}
}
