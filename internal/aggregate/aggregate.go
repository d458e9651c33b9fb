// Package aggregate joins the baseline tree with the hydration ledger to
// count hydrated files for a directory and each of its immediate
// subdirectories.
package aggregate

import (
	"context"
	"errors"
	"fmt"

	"github.com/c4fun/VFSForGit/internal/baseline"
	"github.com/c4fun/VFSForGit/internal/ledger"
	"github.com/c4fun/VFSForGit/internal/logging"
	"github.com/c4fun/VFSForGit/internal/metrics"
	"github.com/c4fun/VFSForGit/pkg/tree"
)

// Stat holds the counts of one directory.
type Stat struct {
	Path       string
	Name       string
	TotalFiles int
	Fast       int
	Slow       int
}

// Hydrated returns Fast + Slow.
func (s Stat) Hydrated() int { return s.Fast + s.Slow }

// Percent returns floor(Hydrated*100/TotalFiles), or 0 for an empty
// directory.
func (s Stat) Percent() int {
	if s.TotalFiles == 0 {
		return 0
	}
	return s.Hydrated() * 100 / s.TotalFiles
}

func (s *Stat) add(c ledger.Classification) {
	if c == ledger.Modified {
		s.Slow++
	} else {
		s.Fast++
	}
}

// Skipped counts ledger entries that did not contribute to the stats.
type Skipped struct {
	Folders     int
	OutOfScope  int
	NotInCommit int
}

// Result is the outcome of one aggregation.
type Result struct {
	Scope Stat
	// Children holds one Stat per immediate subdirectory, in the commit's
	// native order. Files directly in the scope have no entry.
	Children []Stat
	Skipped  Skipped
}

// Aggregate counts hydrated files under scope in a single pass over the
// ledger. Only files of the baseline commit are counted, so Fast+Slow never
// exceeds TotalFiles. scope must be normalized; with a case-insensitive
// baseline the committed spelling is used.
func Aggregate(ctx context.Context, t baseline.Tree, l ledger.Reader, scope string) (*Result, error) {
	node, err := t.Lookup(ctx, scope)
	if err != nil {
		return nil, err
	}
	if !node.IsDir {
		return nil, fmt.Errorf("%w: %s is not a directory", baseline.ErrNotFoundInCommit, scope)
	}
	scope = node.Path

	children, err := t.Children(ctx, scope)
	if err != nil {
		return nil, err
	}

	res := &Result{Scope: Stat{Path: scope, Name: node.Name, TotalFiles: node.TotalFiles}}
	index := make(map[string]int)
	for _, c := range children {
		if !c.IsDir {
			continue
		}
		index[c.Name] = len(res.Children)
		res.Children = append(res.Children, Stat{Path: c.Path, Name: c.Name, TotalFiles: c.TotalFiles})
	}

	var fast, slow int
	for e, err := range l.Iterate(ctx, scope) {
		if err != nil {
			return nil, err
		}
		if e.Class == ledger.Modified {
			slow++
		} else {
			fast++
		}

		if e.IsFolder {
			res.Skipped.Folders++
			continue
		}
		rel, ok := tree.Rel(e.Path, scope)
		if !ok || rel == "" {
			res.Skipped.OutOfScope++
			continue
		}
		isFile, err := t.ContainsFile(ctx, e.Path)
		if err != nil {
			return nil, err
		}
		if !isFile {
			// A stale row may name a path that is a directory in this commit.
			if n, err := t.Lookup(ctx, e.Path); err == nil && n.IsDir {
				res.Skipped.Folders++
			} else if err != nil && !errors.Is(err, baseline.ErrNotFoundInCommit) {
				return nil, err
			} else {
				res.Skipped.NotInCommit++
			}
			continue
		}

		res.Scope.add(e.Class)
		if first, nested := tree.FirstSegment(rel); nested {
			if i, ok := index[first]; ok {
				res.Children[i].add(e.Class)
			}
		}
	}

	metrics.RecordLedgerEntries(ledger.Placeholder.String(), fast)
	metrics.RecordLedgerEntries(ledger.Modified.String(), slow)
	metrics.RecordLedgerSkips("folder", res.Skipped.Folders)
	metrics.RecordLedgerSkips("out_of_scope", res.Skipped.OutOfScope)
	metrics.RecordLedgerSkips("not_in_commit", res.Skipped.NotInCommit)

	logging.WithContext(ctx).Debug("aggregated hydration ledger",
		logging.String("scope", scope),
		logging.Int("total_files", res.Scope.TotalFiles),
		logging.Int("fast", res.Scope.Fast),
		logging.Int("slow", res.Scope.Slow),
		logging.Int("skipped_folders", res.Skipped.Folders),
		logging.Int("skipped_not_in_commit", res.Skipped.NotInCommit))
	return res, nil
}
