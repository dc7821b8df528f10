package model

import (
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"
)

// HashChange represents a changed node detected by hash-based diffing.
type HashChange struct {
	Role    string               `yaml:"r,omitempty" json:"r,omitempty"`
	Name    string               `yaml:"n,omitempty" json:"n,omitempty"`
	Path    string               `yaml:"p,omitempty" json:"p,omitempty"`
	Changes map[string][2]string `yaml:"changes"     json:"changes"`
}

// TreeDiff is the result of comparing two snapshots by content hash.
type TreeDiff struct {
	Added          []FlatNode   `yaml:"added,omitempty"   json:"added,omitempty"`
	Removed        []FlatNode   `yaml:"removed,omitempty" json:"removed,omitempty"`
	Changed        []HashChange `yaml:"changed,omitempty" json:"changed,omitempty"`
	UnchangedCount int          `yaml:"unchanged_count"   json:"unchanged_count"`
}

// NodeHash computes a stable identity hash for a flattened node based on
// its semantic content and position in the tree. This allows matching
// nodes across separate snapshots where handles may have been reissued.
func NodeHash(n FlatNode) string {
	h := sha256.New()
	fmt.Fprintf(h, "%s|%s|%s|%s|%s", n.Kind, n.Role, n.Name, n.Description, n.Path)
	return fmt.Sprintf("%x", h.Sum(nil))[:16]
}

// DiffByHash compares two flattened snapshots using content hashing for
// stable identity. Handles are issued per bus connection, so matching by
// handle would report every node as added and removed.
func DiffByHash(prev, curr []FlatNode) TreeDiff {
	prevByHash := make(map[string]FlatNode, len(prev))
	for _, n := range prev {
		prevByHash[NodeHash(n)] = n
	}
	currByHash := make(map[string]FlatNode, len(curr))
	for _, n := range curr {
		currByHash[NodeHash(n)] = n
	}

	var diff TreeDiff

	for _, n := range curr {
		prevNode, existed := prevByHash[NodeHash(n)]
		if !existed {
			diff.Added = append(diff.Added, n)
			continue
		}
		changes := diffProperties(prevNode, n)
		if len(changes) > 0 {
			diff.Changed = append(diff.Changed, HashChange{
				Role:    n.Role,
				Name:    n.Name,
				Path:    n.Path,
				Changes: changes,
			})
		} else {
			diff.UnchangedCount++
		}
	}

	for _, n := range prev {
		if _, exists := currByHash[NodeHash(n)]; !exists {
			diff.Removed = append(diff.Removed, n)
		}
	}

	return diff
}

// diffProperties compares mutable properties between two nodes matched by
// content hash. Kind, role, name, description, and path are part of the
// hash so they cannot differ. We check child count, error text, and the
// truncation count.
func diffProperties(prev, curr FlatNode) map[string][2]string {
	diffs := make(map[string][2]string)

	if prev.ChildCount != curr.ChildCount {
		diffs["cc"] = [2]string{strconv.Itoa(prev.ChildCount), strconv.Itoa(curr.ChildCount)}
	}
	if prev.Err != curr.Err {
		diffs["e"] = [2]string{prev.Err, curr.Err}
	}
	if prev.Omitted != curr.Omitted {
		diffs["om"] = [2]string{strconv.Itoa(prev.Omitted), strconv.Itoa(curr.Omitted)}
	}

	if len(diffs) == 0 {
		return nil
	}
	return diffs
}

// snapshotDir is the directory for snapshot files.
const snapshotDir = "/tmp"

// snapshotPrefix is the filename prefix for snapshot files.
const snapshotPrefix = "a11y-tree-snapshot-"

func safeName(app string) string {
	safe := strings.ReplaceAll(app, "/", "_")
	return strings.ReplaceAll(safe, " ", "_")
}

func snapshotPath(app string, ts int64) string {
	return filepath.Join(snapshotDir, fmt.Sprintf("%s%s-%d.json", snapshotPrefix, safeName(app), ts))
}

// SaveSnapshot writes a flattened snapshot to a file for later diffing.
func SaveSnapshot(app string, ts int64, nodes []FlatNode) error {
	data, err := json.Marshal(nodes)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}
	return os.WriteFile(snapshotPath(app, ts), data, 0644)
}

// LoadSnapshot reads a previously saved snapshot from disk.
func LoadSnapshot(app string, ts int64) ([]FlatNode, error) {
	data, err := os.ReadFile(snapshotPath(app, ts))
	if err != nil {
		return nil, fmt.Errorf("load snapshot: %w", err)
	}
	var nodes []FlatNode
	if err := json.Unmarshal(data, &nodes); err != nil {
		return nil, fmt.Errorf("unmarshal snapshot: %w", err)
	}
	return nodes, nil
}

// LatestSnapshot returns the timestamp of the most recent saved snapshot
// for the given app, or 0 if none exists.
func LatestSnapshot(app string) int64 {
	prefix := snapshotPrefix + safeName(app) + "-"

	entries, err := os.ReadDir(snapshotDir)
	if err != nil {
		return 0
	}
	var stamps []int64
	for _, entry := range entries {
		name := entry.Name()
		if !strings.HasPrefix(name, prefix) || !strings.HasSuffix(name, ".json") {
			continue
		}
		ts, err := strconv.ParseInt(strings.TrimSuffix(strings.TrimPrefix(name, prefix), ".json"), 10, 64)
		if err != nil {
			continue
		}
		stamps = append(stamps, ts)
	}
	if len(stamps) == 0 {
		return 0
	}
	sort.Slice(stamps, func(i, j int) bool { return stamps[i] > stamps[j] })
	return stamps[0]
}

// CleanSnapshots removes snapshot files for the given app that are older than maxAge.
func CleanSnapshots(app string, maxAge time.Duration) {
	prefix := snapshotPrefix + safeName(app) + "-"

	entries, err := os.ReadDir(snapshotDir)
	if err != nil {
		return
	}
	cutoff := time.Now().Add(-maxAge)
	for _, entry := range entries {
		if !strings.HasPrefix(entry.Name(), prefix) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if info.ModTime().Before(cutoff) {
			os.Remove(filepath.Join(snapshotDir, entry.Name()))
		}
	}
}
