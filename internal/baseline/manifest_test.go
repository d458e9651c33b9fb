package baseline

import (
	"context"
	"strings"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c4fun/VFSForGit/internal/storage/local"
)

func newMemBackend(t *testing.T) *local.LocalBackend {
	t.Helper()
	b, err := local.NewWithFs(afero.NewMemMapFs(), local.Config{RootPath: "/store", CreateDirs: true})
	require.NoError(t, err)
	return b
}

func TestShardKey(t *testing.T) {
	assert.Equal(t, "manifests/abc/_index.json", ShardKey("manifests", "abc", ""))
	assert.Equal(t, "manifests/abc/GVFS/GVFS.Common/_index.json", ShardKey("manifests", "abc", "GVFS/GVFS.Common"))
}

func TestPublishAndReadManifest(t *testing.T) {
	ctx := context.Background()
	g := openSample(t, GitOptions{})
	backend := newMemBackend(t)

	n, err := PublishManifest(ctx, g, backend, "manifests", g.Commit())
	require.NoError(t, err)
	// root, GVFS, GVFS/GVFS.Common, GVFS/GVFS.Hooks, Scripts
	assert.Equal(t, 5, n)

	m, err := NewManifestTree(backend, "manifests", g.Commit(), 16)
	require.NoError(t, err)

	for _, dir := range []string{"", "GVFS", "GVFS/GVFS.Common", "GVFS/GVFS.Hooks", "Scripts"} {
		want, err := g.Lookup(ctx, dir)
		require.NoError(t, err)
		got, err := m.Lookup(ctx, dir)
		require.NoError(t, err)
		assert.Equal(t, want, got, dir)

		wantChildren, err := g.Children(ctx, dir)
		require.NoError(t, err)
		gotChildren, err := m.Children(ctx, dir)
		require.NoError(t, err)
		assert.Equal(t, wantChildren, gotChildren, dir)
	}

	file, err := m.Lookup(ctx, "Readme.md")
	require.NoError(t, err)
	assert.False(t, file.IsDir)

	_, err = m.Lookup(ctx, "GVFS/Missing")
	assert.ErrorIs(t, err, ErrNotFoundInCommit)
	_, err = m.Lookup(ctx, "Missing/deeper/path")
	assert.ErrorIs(t, err, ErrNotFoundInCommit)
	_, err = m.Children(ctx, "Readme.md")
	assert.ErrorIs(t, err, ErrNotFoundInCommit)

	ok, err := m.ContainsFile(ctx, "Scripts/RunUnitTests.bat")
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = m.ContainsFile(ctx, "Scripts/New.bat")
	require.NoError(t, err)
	assert.False(t, ok)
	ok, err = m.ContainsFile(ctx, "Scripts")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestManifestUnpublishedCommit(t *testing.T) {
	m, err := NewManifestTree(newMemBackend(t), "manifests", "deadbeef", 0)
	require.NoError(t, err)

	_, err = m.Lookup(context.Background(), "")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotFoundInCommit)
	assert.True(t, strings.Contains(err.Error(), "deadbeef"))
}

func TestManifestCorruptShard(t *testing.T) {
	ctx := context.Background()
	backend := newMemBackend(t)
	body := "not json"
	require.NoError(t, backend.PutObject(ctx, ShardKey("m", "c1", ""), strings.NewReader(body), int64(len(body))))

	m, err := NewManifestTree(backend, "m", "c1", 4)
	require.NoError(t, err)
	_, err = m.Lookup(ctx, "")
	assert.ErrorContains(t, err, "decode manifest shard")
}

func TestNewManifestTreeRequiresCommit(t *testing.T) {
	_, err := NewManifestTree(newMemBackend(t), "m", "", 4)
	assert.Error(t, err)
}
