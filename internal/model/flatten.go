package model

// FlatNode is a snapshot node with a path breadcrumb instead of children.
type FlatNode struct {
	Kind        Kind   `yaml:"k"            json:"k"`
	Role        string `yaml:"r,omitempty"  json:"r,omitempty"`
	Name        string `yaml:"n,omitempty"  json:"n,omitempty"`
	Description string `yaml:"d,omitempty"  json:"d,omitempty"`
	ChildCount  int    `yaml:"cc,omitempty" json:"cc,omitempty"`
	Err         string `yaml:"e,omitempty"  json:"e,omitempty"`
	Omitted     int    `yaml:"om,omitempty" json:"om,omitempty"`
	Handle      Handle `yaml:"h"            json:"h"`
	Path        string `yaml:"p,omitempty"  json:"p,omitempty"`
}

// Flatten converts a snapshot tree into a flat list in preorder.
// Each node gets a path string showing its location in the tree
// using role names joined with " > ".
func Flatten(n Node) []FlatNode {
	var result []FlatNode
	flattenRecursive(n, "", &result)
	return result
}

func flattenRecursive(n Node, parentPath string, result *[]FlatNode) {
	label := string(n.Kind)
	if n.Attrs != nil {
		label = n.Attrs.Role
	}
	currentPath := label
	if parentPath != "" {
		currentPath = parentPath + " > " + label
	}

	flat := FlatNode{
		Kind:    n.Kind,
		Err:     n.Err,
		Omitted: n.Omitted,
		Handle:  n.Handle,
		Path:    currentPath,
	}
	if n.Attrs != nil {
		flat.Role = n.Attrs.Role
		flat.Name = n.Attrs.Name
		flat.Description = n.Attrs.Description
		flat.ChildCount = n.Attrs.ChildCount
	}
	*result = append(*result, flat)

	for _, child := range n.Children {
		flattenRecursive(child, currentPath, result)
	}
}
