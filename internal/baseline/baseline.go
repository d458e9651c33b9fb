// Package baseline reads the file tree of the commit an enlistment is checked
// out at. It answers "which files does this directory contain" independently
// of what the virtualization layer has hydrated.
package baseline

import (
	"context"
	"errors"
	"fmt"
)

// ErrNotFoundInCommit is returned when a path is absent from the baseline
// commit, or when a directory was expected and a file was found.
var ErrNotFoundInCommit = errors.New("not found in HEAD commit")

// Node is one file or directory of the baseline tree.
type Node struct {
	Path  string
	Name  string
	IsDir bool
	// TotalFiles is 1 for files and the recursive file count for directories.
	TotalFiles int
}

// Tree is a read-only view of a commit's file tree.
type Tree interface {
	// Lookup resolves path. The root is "".
	Lookup(ctx context.Context, path string) (Node, error)

	// Children returns the immediate children of dir in the commit's native
	// order, each with its TotalFiles.
	Children(ctx context.Context, dir string) ([]Node, error)

	// ContainsFile reports whether path is a file of the commit. Directories
	// and absent paths report false.
	ContainsFile(ctx context.Context, path string) (bool, error)
}

func notFound(path string) error {
	return fmt.Errorf("%w: %s", ErrNotFoundInCommit, path)
}

func notDir(path string) error {
	return fmt.Errorf("%w: %s is not a directory", ErrNotFoundInCommit, path)
}

// containsFileVia implements ContainsFile on top of Lookup.
func containsFileVia(ctx context.Context, t Tree, path string) (bool, error) {
	n, err := t.Lookup(ctx, path)
	if err != nil {
		if isNotFound(err) {
			return false, nil
		}
		return false, err
	}
	return !n.IsDir, nil
}

func isNotFound(err error) bool {
	return errors.Is(err, ErrNotFoundInCommit)
}
