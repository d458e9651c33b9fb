// Package tree provides shared utilities for repository-relative paths and
// baseline file trees.
//
// Paths are forward-slash separated and relative to the repository root. The
// root itself is the empty string.
package tree

import (
	"strings"

	"github.com/c4fun/VFSForGit/pkg/models"
)

// Separator is the path separator used for all repository-relative paths.
const Separator = "/"

// CountFiles sets FileCount on every node bottom-up and returns the root's
// count. Files count as 1; directories count the files beneath them.
func CountFiles(root *models.FileNode) int {
	if root == nil {
		return 0
	}
	if !root.IsDir {
		root.FileCount = 1
		return 1
	}
	count := 0
	for _, child := range root.Children {
		count += CountFiles(child)
	}
	root.FileCount = count
	return count
}

// Flatten returns all nodes in a flat map keyed by path.
func Flatten(root *models.FileNode) map[string]*models.FileNode {
	result := make(map[string]*models.FileNode)
	if root == nil {
		return result
	}
	flattenRecursive(root, result)
	return result
}

func flattenRecursive(node *models.FileNode, result map[string]*models.FileNode) {
	result[node.Path] = node
	for _, child := range node.Children {
		flattenRecursive(child, result)
	}
}

// ChildPath constructs a child path from parent + name.
func ChildPath(parent, name string) string {
	if parent == "" {
		return name
	}
	return parent + Separator + name
}

// Parent returns the directory containing path ("" for top-level entries).
func Parent(path string) string {
	i := strings.LastIndex(path, Separator)
	if i < 0 {
		return ""
	}
	return path[:i]
}

// Base returns the last segment of path.
func Base(path string) string {
	return path[strings.LastIndex(path, Separator)+1:]
}

// Within reports whether path is dir itself or lies beneath it.
func Within(path, dir string) bool {
	if dir == "" {
		return true
	}
	if !strings.HasPrefix(path, dir) {
		return false
	}
	return len(path) == len(dir) || path[len(dir)] == '/'
}

// Rel returns path relative to dir. It returns "" when path is dir and false
// when path does not lie within dir.
func Rel(path, dir string) (string, bool) {
	if !Within(path, dir) {
		return "", false
	}
	if dir == "" {
		return path, true
	}
	return strings.TrimPrefix(path[len(dir):], Separator), true
}

// FirstSegment splits a relative path into its first segment and reports
// whether more segments follow.
func FirstSegment(rel string) (string, bool) {
	i := strings.Index(rel, Separator)
	if i < 0 {
		return rel, false
	}
	return rel[:i], true
}
