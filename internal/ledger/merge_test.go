package ledger

import (
	"context"
	"errors"
	"iter"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func collect(t *testing.T, r Reader, prefix string) []Entry {
	t.Helper()
	var out []Entry
	for e, err := range r.Iterate(context.Background(), prefix) {
		require.NoError(t, err)
		out = append(out, e)
	}
	return out
}

func TestSliceCollisionModifiedWins(t *testing.T) {
	s := Slice{
		{Path: "Scripts/a.bat", Class: Placeholder},
		{Path: "Scripts/a.bat", Class: Modified},
		{Path: "Scripts/b.bat", Class: Modified},
		{Path: "Scripts/b.bat", Class: Placeholder},
		{Path: "Readme.md", Class: Placeholder},
	}

	got := collect(t, s, "")
	assert.Equal(t, []Entry{
		{Path: "Readme.md", Class: Placeholder},
		{Path: "Scripts/a.bat", Class: Modified},
		{Path: "Scripts/b.bat", Class: Modified},
	}, got)
}

func TestSlicePrefix(t *testing.T) {
	s := Slice{
		{Path: "Scripts", Class: Placeholder, IsFolder: true},
		{Path: "Scripts/a.bat", Class: Placeholder},
		{Path: "ScriptsOld/a.bat", Class: Placeholder},
		{Path: "Readme.md", Class: Modified},
	}

	got := collect(t, s, "Scripts")
	require.Len(t, got, 2)
	assert.Equal(t, "Scripts", got[0].Path)
	assert.Equal(t, "Scripts/a.bat", got[1].Path)
}

func TestSliceWithDoesNotAlias(t *testing.T) {
	base := make(Slice, 1, 4)
	base[0] = Entry{Path: "a"}
	x := base.With(Entry{Path: "x"})
	y := base.With(Entry{Path: "y"})
	assert.Equal(t, "x", x[1].Path)
	assert.Equal(t, "y", y[1].Path)
	assert.Len(t, base, 1)
}

func TestMerge(t *testing.T) {
	placeholders := Slice{
		{Path: ".gitignore", Class: Placeholder},
		{Path: "Scripts/a.bat", Class: Placeholder},
		{Path: "Scripts/b.bat", Class: Placeholder},
		{Path: "GVFS", Class: Placeholder, IsFolder: true},
	}
	modified := Slice{
		{Path: ".gitattributes"},
		{Path: "Scripts/a.bat"},
	}

	got := collect(t, Merge(placeholders, modified), "")
	assert.ElementsMatch(t, []Entry{
		{Path: ".gitignore", Class: Placeholder},
		{Path: "Scripts/b.bat", Class: Placeholder},
		{Path: "GVFS", Class: Placeholder, IsFolder: true},
		{Path: ".gitattributes", Class: Modified},
		{Path: "Scripts/a.bat", Class: Modified},
	}, got)

	scoped := collect(t, Merge(placeholders, modified), "Scripts")
	assert.ElementsMatch(t, []Entry{
		{Path: "Scripts/b.bat", Class: Placeholder},
		{Path: "Scripts/a.bat", Class: Modified},
	}, scoped)
}

type failing struct{ after int }

func (f failing) Iterate(ctx context.Context, prefix string) iter.Seq2[Entry, error] {
	return func(yield func(Entry, error) bool) {
		for i := 0; i < f.after; i++ {
			if !yield(Entry{Path: "ok"}, nil) {
				return
			}
		}
		yield(Entry{}, Unavailable("test", errors.New("disk on fire")))
	}
}

func TestMergePropagatesErrors(t *testing.T) {
	for name, r := range map[string]Reader{
		"placeholders": Merge(failing{after: 2}, Slice{}),
		"modified":     Merge(Slice{}, failing{after: 0}),
	} {
		var gotErr error
		for _, err := range r.Iterate(context.Background(), "") {
			if err != nil {
				gotErr = err
				break
			}
		}
		assert.ErrorIs(t, gotErr, ErrLedgerUnavailable, name)
		assert.ErrorContains(t, gotErr, "disk on fire", name)
	}
}

func TestMergeStopsEarly(t *testing.T) {
	r := Merge(Slice{{Path: "a"}, {Path: "b"}}, Slice{{Path: "c"}})
	n := 0
	for range r.Iterate(context.Background(), "") {
		n++
		break
	}
	assert.Equal(t, 1, n)
}

func TestClassificationString(t *testing.T) {
	assert.Equal(t, "placeholder", Placeholder.String())
	assert.Equal(t, "modified", Modified.String())
	assert.Equal(t, "Classification(7)", Classification(7).String())
}
