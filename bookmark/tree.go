package bookmark

import (
	"strings"
	"time"
)

// untitledFolder labels folders that carry no title of their own.
const untitledFolder = "Untitled"

// Node is a folder or URL leaf in a bookmark tree. Folders have an empty URL.
type Node struct {
	ID        string
	ParentID  string
	Title     string
	URL       string
	DateAdded time.Time
	Children  []*Node
}

// IsFolder reports whether n is a folder.
func (n *Node) IsFolder() bool {
	return n.URL == ""
}

// Find returns the node with the given ID in the subtree rooted at n.
func (n *Node) Find(id string) *Node {
	if n == nil {
		return nil
	}
	if n.ID == id {
		return n
	}
	for _, child := range n.Children {
		if found := child.Find(id); found != nil {
			return found
		}
	}
	return nil
}

// Remove detaches the node with the given ID from the subtree rooted at n
// and returns it. The root itself cannot be removed.
func (n *Node) Remove(id string) (*Node, bool) {
	for i, child := range n.Children {
		if child.ID == id {
			n.Children = append(n.Children[:i], n.Children[i+1:]...)
			return child, true
		}
		if removed, ok := child.Remove(id); ok {
			return removed, true
		}
	}
	return nil, false
}

// Walk calls fn for every node in depth-first order. Returning false from fn
// skips the node's children.
func (n *Node) Walk(fn func(node *Node, depth int) bool) {
	n.walk(fn, 0)
}

func (n *Node) walk(fn func(node *Node, depth int) bool, depth int) {
	if n == nil || !fn(n, depth) {
		return
	}
	for _, child := range n.Children {
		child.walk(fn, depth+1)
	}
}

// Flatten returns every URL leaf under root as a pending Record, in
// depth-first order. Each record's Path joins the titles of the folders
// between root and the record; root itself is not part of the path.
func Flatten(root *Node) []*Record {
	var records []*Record
	if root == nil {
		return records
	}
	if !root.IsFolder() {
		flatten(root, nil, &records)
		return records
	}
	for _, child := range root.Children {
		flatten(child, nil, &records)
	}
	return records
}

func flatten(node *Node, parentPath []string, out *[]*Record) {
	if node == nil {
		return
	}
	title := node.Title
	if title == "" {
		title = untitledFolder
	}
	path := append(append([]string(nil), parentPath...), title)

	if !node.IsFolder() {
		*out = append(*out, &Record{
			ID:        node.ID,
			Title:     node.Title,
			URL:       node.URL,
			DateAdded: node.DateAdded,
			ParentID:  node.ParentID,
			Path:      strings.Join(parentPath, " > "),
			Status:    Pending,
		})
	}
	for _, child := range node.Children {
		flatten(child, path, out)
	}
}

// Folders returns every folder under root keyed by ID.
func Folders(root *Node) map[string]*Node {
	folders := make(map[string]*Node)
	root.Walk(func(node *Node, _ int) bool {
		if node.IsFolder() {
			folders[node.ID] = node
		}
		return true
	})
	return folders
}
