// Package enlistment locates a virtualized enlistment on disk. An enlistment
// root holds the git working directory in src/ and the virtualization
// state in .gvfs/.
package enlistment

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/spf13/afero"

	"github.com/c4fun/VFSForGit/internal/ledger/modifiedpaths"
	"github.com/c4fun/VFSForGit/internal/ledger/placeholders"
)

// ErrNotEnlistment is returned when no enlistment root is found.
var ErrNotEnlistment = errors.New("not inside a VFS for Git enlistment")

const (
	dotGVFS      = ".gvfs"
	databasesDir = "databases"
	workingDir   = "src"
)

// Enlistment describes the on-disk layout of one enlistment.
type Enlistment struct {
	Root string
}

// WorkingDir is the git working directory.
func (e *Enlistment) WorkingDir() string { return filepath.Join(e.Root, workingDir) }

// DotGVFS is the virtualization state directory. gvfs.yaml is read from here.
func (e *Enlistment) DotGVFS() string { return filepath.Join(e.Root, dotGVFS) }

// DatabasesDir holds the hydration ledger files.
func (e *Enlistment) DatabasesDir() string { return filepath.Join(e.DotGVFS(), databasesDir) }

// PlaceholderDatabase is the SQLite placeholder database path.
func (e *Enlistment) PlaceholderDatabase() string {
	return filepath.Join(e.DatabasesDir(), placeholders.FileName)
}

// ModifiedPathsFile is the modified paths log path.
func (e *Enlistment) ModifiedPathsFile() string {
	return filepath.Join(e.DatabasesDir(), modifiedpaths.FileName)
}

// Find walks up from start to the first directory containing .gvfs.
func Find(fs afero.Fs, start string) (*Enlistment, error) {
	cur, err := filepath.Abs(start)
	if err != nil {
		return nil, err
	}
	if fi, err := fs.Stat(cur); err == nil && !fi.IsDir() {
		cur = filepath.Dir(cur)
	}

	for {
		if fi, err := fs.Stat(filepath.Join(cur, dotGVFS)); err == nil && fi.IsDir() {
			return &Enlistment{Root: cur}, nil
		}
		parent := filepath.Dir(cur)
		if parent == cur {
			break
		}
		cur = parent
	}
	return nil, fmt.Errorf("%w: %s", ErrNotEnlistment, start)
}

// Init creates the layout of a new enlistment under root.
func Init(fs afero.Fs, root string) (*Enlistment, error) {
	e := &Enlistment{Root: root}
	for _, dir := range []string{e.WorkingDir(), e.DatabasesDir()} {
		if err := fs.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create %s: %w", dir, err)
		}
	}
	return e, nil
}
