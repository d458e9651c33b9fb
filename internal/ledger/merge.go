package ledger

import (
	"context"
	"iter"
	"slices"

	"github.com/c4fun/VFSForGit/pkg/tree"
)

type merged struct {
	placeholders Reader
	modified     Reader
}

// Merge combines a placeholder source with a modified-paths source. A path
// present in both is reported once, as Modified.
//
// The modified set under the prefix is collected first; it is small compared
// with the placeholder set, which is streamed.
func Merge(placeholders, modified Reader) Reader {
	return &merged{placeholders: placeholders, modified: modified}
}

func (m *merged) Iterate(ctx context.Context, prefix string) iter.Seq2[Entry, error] {
	return func(yield func(Entry, error) bool) {
		var mods []Entry
		seen := make(map[string]struct{})
		for e, err := range m.modified.Iterate(ctx, prefix) {
			if err != nil {
				yield(Entry{}, err)
				return
			}
			e.Class = Modified
			if _, dup := seen[e.Path]; dup {
				continue
			}
			seen[e.Path] = struct{}{}
			mods = append(mods, e)
		}

		for e, err := range m.placeholders.Iterate(ctx, prefix) {
			if err != nil {
				yield(Entry{}, err)
				return
			}
			if _, ok := seen[e.Path]; ok {
				continue
			}
			e.Class = Placeholder
			if !yield(e, nil) {
				return
			}
		}

		for _, e := range mods {
			if !yield(e, nil) {
				return
			}
		}
	}
}

// Slice is an in-memory ledger. Entries sharing a path collapse to one,
// Modified taking precedence.
type Slice []Entry

func (s Slice) Iterate(ctx context.Context, prefix string) iter.Seq2[Entry, error] {
	return func(yield func(Entry, error) bool) {
		byPath := make(map[string]Entry, len(s))
		for _, e := range s {
			if !tree.Within(e.Path, prefix) {
				continue
			}
			if prev, ok := byPath[e.Path]; ok && prev.Class == Modified {
				continue
			}
			byPath[e.Path] = e
		}

		paths := make([]string, 0, len(byPath))
		for p := range byPath {
			paths = append(paths, p)
		}
		slices.Sort(paths)

		for _, p := range paths {
			if err := ctx.Err(); err != nil {
				yield(Entry{}, err)
				return
			}
			if !yield(byPath[p], nil) {
				return
			}
		}
	}
}

// With returns a copy of s with entries appended.
func (s Slice) With(entries ...Entry) Slice {
	out := make(Slice, 0, len(s)+len(entries))
	out = append(out, s...)
	return append(out, entries...)
}
