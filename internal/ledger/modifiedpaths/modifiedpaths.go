// Package modifiedpaths reads and appends the enlistment's modified paths
// log. Each line adds ("A <path>") or deletes ("D <path>") one path; replaying
// the log yields the set of files git tracks directly. Folder entries end
// with a separator.
package modifiedpaths

import (
	"bufio"
	"context"
	"fmt"
	"iter"
	"os"
	"slices"
	"strings"
	"sync"

	"github.com/spf13/afero"

	"github.com/c4fun/VFSForGit/internal/ledger"
	"github.com/c4fun/VFSForGit/pkg/tree"
)

// FileName is the log file inside the enlistment's databases directory.
const FileName = "ModifiedPaths.dat"

const (
	addPrefix    = "A "
	deletePrefix = "D "
)

// File is a modified paths log on an afero filesystem.
type File struct {
	fs   afero.Fs
	path string

	// mu serializes appends from this process.
	mu sync.Mutex
}

// New returns the log at path on fs. Nothing is read until Iterate or Load.
func New(fs afero.Fs, path string) *File {
	return &File{fs: fs, path: path}
}

// Path returns the log file path.
func (f *File) Path() string { return f.path }

// Load replays the log and returns the current set of paths, sorted.
func (f *File) Load(ctx context.Context) ([]string, error) {
	fh, err := f.fs.Open(f.path)
	if err != nil {
		return nil, ledger.Unavailable(f.path, err)
	}
	defer fh.Close()

	set := make(map[string]struct{})
	scanner := bufio.NewScanner(fh)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		if lineNo%4096 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		line := strings.TrimRight(scanner.Text(), "\r")
		if line == "" {
			continue
		}
		switch {
		case strings.HasPrefix(line, addPrefix):
			set[line[len(addPrefix):]] = struct{}{}
		case strings.HasPrefix(line, deletePrefix):
			delete(set, line[len(deletePrefix):])
		default:
			return nil, ledger.Unavailable(f.path, fmt.Errorf("line %d: malformed entry %q", lineNo, line))
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, ledger.Unavailable(f.path, err)
	}

	paths := make([]string, 0, len(set))
	for p := range set {
		if p != "" && p != tree.Separator {
			paths = append(paths, p)
		}
	}
	slices.Sort(paths)
	return paths, nil
}

// Iterate yields the current modified paths equal to or beneath prefix.
func (f *File) Iterate(ctx context.Context, prefix string) iter.Seq2[ledger.Entry, error] {
	return func(yield func(ledger.Entry, error) bool) {
		paths, err := f.Load(ctx)
		if err != nil {
			yield(ledger.Entry{}, err)
			return
		}
		for _, p := range paths {
			folder := strings.HasSuffix(p, tree.Separator)
			p = strings.TrimSuffix(p, tree.Separator)
			if !tree.Within(p, prefix) {
				continue
			}
			if !yield(ledger.Entry{Path: p, Class: ledger.Modified, IsFolder: folder}, nil) {
				return
			}
		}
	}
}

// Add appends add records for paths.
func (f *File) Add(paths ...string) error {
	return f.append(addPrefix, paths)
}

// Delete appends delete records for paths.
func (f *File) Delete(paths ...string) error {
	return f.append(deletePrefix, paths)
}

func (f *File) append(op string, paths []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	fh, err := f.fs.OpenFile(f.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open %s: %w", f.path, err)
	}
	w := bufio.NewWriter(fh)
	for _, p := range paths {
		if strings.ContainsAny(p, "\r\n") {
			fh.Close()
			return fmt.Errorf("invalid modified path %q", p)
		}
		w.WriteString(op)
		w.WriteString(p)
		w.WriteString("\r\n")
	}
	if err := w.Flush(); err != nil {
		fh.Close()
		return fmt.Errorf("write %s: %w", f.path, err)
	}
	return fh.Close()
}
