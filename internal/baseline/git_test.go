package baseline

import (
	"context"
	"path"
	"testing"
	"time"

	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/storage/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fileContent keys contents by base name, so directories holding the same
// names are identical trees.
func fileContent(p string) []byte {
	if path.Base(p) == ".gitignore" {
		return []byte("*.tmp\n")
	}
	return []byte("content of " + path.Base(p) + "\n")
}

// commitFiles creates an in-memory repository with one commit holding paths.
func commitFiles(t *testing.T, paths ...string) *git.Repository {
	t.Helper()
	fs := memfs.New()
	repo, err := git.Init(memory.NewStorage(), fs)
	require.NoError(t, err)

	for _, p := range paths {
		f, err := fs.Create(p)
		require.NoError(t, err)
		_, err = f.Write(fileContent(p))
		require.NoError(t, err)
		require.NoError(t, f.Close())
	}

	wt, err := repo.Worktree()
	require.NoError(t, err)
	require.NoError(t, wt.AddWithOptions(&git.AddOptions{All: true}))
	_, err = wt.Commit("baseline", &git.CommitOptions{
		Author: &object.Signature{Name: "Build Agent", Email: "agent@example.com", When: time.Unix(1500000000, 0)},
	})
	require.NoError(t, err)
	return repo
}

var sampleFiles = []string{
	".gitattributes",
	"GVFS/GVFS.Common/Enlistment.cs",
	"GVFS/GVFS.Common/Paths.cs",
	"GVFS/GVFS.Hooks/Program.cs",
	"GVFS/GVFS.sln",
	"Readme.md",
	"Scripts/RunUnitTests.bat",
	"Scripts/RunFunctionalTests.bat",
}

func openSample(t *testing.T, opts GitOptions) *GitTree {
	t.Helper()
	g, err := OpenGit(context.Background(), commitFiles(t, sampleFiles...), "", opts)
	require.NoError(t, err)
	return g
}

func TestGitTreeLookup(t *testing.T) {
	g := openSample(t, GitOptions{})
	ctx := context.Background()

	root, err := g.Lookup(ctx, "")
	require.NoError(t, err)
	assert.True(t, root.IsDir)
	assert.Equal(t, 8, root.TotalFiles)

	gvfs, err := g.Lookup(ctx, "GVFS")
	require.NoError(t, err)
	assert.True(t, gvfs.IsDir)
	assert.Equal(t, 4, gvfs.TotalFiles)

	common, err := g.Lookup(ctx, "GVFS/GVFS.Common")
	require.NoError(t, err)
	assert.Equal(t, "GVFS/GVFS.Common", common.Path)
	assert.Equal(t, "GVFS.Common", common.Name)
	assert.Equal(t, 2, common.TotalFiles)

	file, err := g.Lookup(ctx, "Scripts/RunUnitTests.bat")
	require.NoError(t, err)
	assert.False(t, file.IsDir)
	assert.Equal(t, 1, file.TotalFiles)
}

func TestGitTreeLookupMissing(t *testing.T) {
	g := openSample(t, GitOptions{})
	ctx := context.Background()

	for _, p := range []string{"NoSuchDir", "GVFS/Nope", "Readme.md/child", "scripts"} {
		_, err := g.Lookup(ctx, p)
		assert.ErrorIs(t, err, ErrNotFoundInCommit, p)
	}
}

func TestGitTreeChildren(t *testing.T) {
	g := openSample(t, GitOptions{Workers: 2})
	ctx := context.Background()

	children, err := g.Children(ctx, "")
	require.NoError(t, err)

	var names []string
	for _, c := range children {
		names = append(names, c.Name)
	}
	assert.Equal(t, []string{".gitattributes", "GVFS", "Readme.md", "Scripts"}, names)
	assert.Equal(t, 4, children[1].TotalFiles)
	assert.Equal(t, 2, children[3].TotalFiles)
	assert.Equal(t, "Scripts", children[3].Path)

	sub, err := g.Children(ctx, "GVFS")
	require.NoError(t, err)
	require.Len(t, sub, 3)
	assert.Equal(t, "GVFS/GVFS.Common", sub[0].Path)
	assert.True(t, sub[0].IsDir)
	assert.False(t, sub[2].IsDir)

	_, err = g.Children(ctx, "Readme.md")
	assert.ErrorIs(t, err, ErrNotFoundInCommit)
}

func TestGitTreeContainsFile(t *testing.T) {
	g := openSample(t, GitOptions{})
	ctx := context.Background()

	tests := []struct {
		path string
		want bool
	}{
		{"", false},
		{"GVFS", false},
		{"GVFS/GVFS.Common", false},
		{"GVFS/GVFS.Common/Paths.cs", true},
		{"GVFS/GVFS.Common/New.cs", false},
		{"Untracked/file.txt", false},
		{"Readme.md/x", false},
	}
	for _, tt := range tests {
		got, err := g.ContainsFile(ctx, tt.path)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got, tt.path)
	}
}

func TestGitTreeIgnoreCase(t *testing.T) {
	on := true
	g := openSample(t, GitOptions{IgnoreCase: &on})
	ctx := context.Background()

	n, err := g.Lookup(ctx, "scripts")
	require.NoError(t, err)
	assert.Equal(t, "Scripts", n.Path)
	assert.Equal(t, 2, n.TotalFiles)

	n, err = g.Lookup(ctx, "gvfs/gvfs.common")
	require.NoError(t, err)
	assert.Equal(t, "GVFS/GVFS.Common", n.Path)

	children, err := g.Children(ctx, "gvfs")
	require.NoError(t, err)
	assert.Equal(t, "GVFS/GVFS.Common", children[0].Path)
}

func TestGitTreeSharedSubtreeCounts(t *testing.T) {
	repo := commitFiles(t, "a/x/1.txt", "a/x/2.txt", "b/x/1.txt", "b/x/2.txt")
	g, err := OpenGit(context.Background(), repo, "HEAD", GitOptions{CacheSize: 8})
	require.NoError(t, err)

	children, err := g.Children(context.Background(), "")
	require.NoError(t, err)
	require.Len(t, children, 2)
	assert.Equal(t, 2, children[0].TotalFiles)
	assert.Equal(t, 2, children[1].TotalFiles)
	// a and b are identical trees, as are a/x and b/x.
	assert.Equal(t, 2, g.counts.Len())
}

func TestGitTreeCanceledContext(t *testing.T) {
	g := openSample(t, GitOptions{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := g.Lookup(ctx, "")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestOpenGitBadRevision(t *testing.T) {
	_, err := OpenGit(context.Background(), commitFiles(t, "a.txt"), "no-such-branch", GitOptions{})
	assert.Error(t, err)
}
