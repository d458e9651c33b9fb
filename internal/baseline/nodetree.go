package baseline

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/c4fun/VFSForGit/pkg/models"
	"github.com/c4fun/VFSForGit/pkg/tree"
)

// NodeTree is an in-memory baseline built from a models.FileNode hierarchy.
// Paths of the input nodes are recomputed from their names.
type NodeTree struct {
	nodes map[string]*models.FileNode
}

// NewNodeTree indexes root. It sets FileCount on every node.
func NewNodeTree(root *models.FileNode) *NodeTree {
	if root == nil {
		root = &models.FileNode{IsDir: true}
	}
	root.Name = ""
	root.Path = ""
	root.IsDir = true
	assignPaths(root)
	tree.CountFiles(root)
	return &NodeTree{nodes: tree.Flatten(root)}
}

// LoadNodeTree decodes a JSON FileNode snapshot.
func LoadNodeTree(r io.Reader) (*NodeTree, error) {
	var root models.FileNode
	if err := json.NewDecoder(r).Decode(&root); err != nil {
		return nil, fmt.Errorf("decode baseline snapshot: %w", err)
	}
	return NewNodeTree(&root), nil
}

// FromPaths builds a NodeTree containing the given file paths. Intermediate
// directories are created as needed.
func FromPaths(paths ...string) *NodeTree {
	root := &models.FileNode{IsDir: true}
	dirs := map[string]*models.FileNode{"": root}

	var ensureDir func(path string) *models.FileNode
	ensureDir = func(path string) *models.FileNode {
		if d, ok := dirs[path]; ok {
			return d
		}
		parent := ensureDir(tree.Parent(path))
		d := &models.FileNode{Name: tree.Base(path), IsDir: true}
		parent.Children = append(parent.Children, d)
		dirs[path] = d
		return d
	}

	for _, p := range paths {
		parent := ensureDir(tree.Parent(p))
		parent.Children = append(parent.Children, &models.FileNode{Name: tree.Base(p)})
	}
	return NewNodeTree(root)
}

func assignPaths(n *models.FileNode) {
	for _, c := range n.Children {
		c.Path = tree.ChildPath(n.Path, c.Name)
		assignPaths(c)
	}
}

func (t *NodeTree) Lookup(ctx context.Context, path string) (Node, error) {
	if err := ctx.Err(); err != nil {
		return Node{}, err
	}
	n, ok := t.nodes[path]
	if !ok {
		return Node{}, notFound(path)
	}
	return toNode(n), nil
}

func (t *NodeTree) Children(ctx context.Context, dir string) ([]Node, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	n, ok := t.nodes[dir]
	if !ok {
		return nil, notFound(dir)
	}
	if !n.IsDir {
		return nil, notDir(dir)
	}
	out := make([]Node, 0, len(n.Children))
	for _, c := range n.Children {
		out = append(out, toNode(c))
	}
	return out, nil
}

func (t *NodeTree) ContainsFile(ctx context.Context, path string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	n, ok := t.nodes[path]
	return ok && !n.IsDir, nil
}

func toNode(n *models.FileNode) Node {
	return Node{Path: n.Path, Name: n.Name, IsDir: n.IsDir, TotalFiles: n.FileCount}
}
