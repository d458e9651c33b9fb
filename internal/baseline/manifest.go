package baseline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/c4fun/VFSForGit/internal/metrics"
	"github.com/c4fun/VFSForGit/internal/storage"
	"github.com/c4fun/VFSForGit/pkg/models"
	"github.com/c4fun/VFSForGit/pkg/tree"
)

// ShardName is the object name of a directory's manifest shard.
const ShardName = "_index.json"

// ShardKey returns the object key of dir's shard for commit.
func ShardKey(prefix, commit, dir string) string {
	return path.Join(prefix, commit, dir, ShardName)
}

// ManifestTree reads a baseline published as per-directory shards. Each shard
// is a models.FileNode for one directory with a single level of children
// whose FileCount is precomputed.
type ManifestTree struct {
	backend storage.Backend
	prefix  string
	commit  string
	shards  *lru.Cache[string, *models.FileNode]
}

// NewManifestTree reads shards for commit from backend.
func NewManifestTree(backend storage.Backend, prefix, commit string, cacheSize int) (*ManifestTree, error) {
	if commit == "" {
		return nil, fmt.Errorf("manifest baseline requires a commit id")
	}
	if cacheSize <= 0 {
		cacheSize = 256
	}
	shards, err := lru.New[string, *models.FileNode](cacheSize)
	if err != nil {
		return nil, err
	}
	return &ManifestTree{backend: backend, prefix: prefix, commit: commit, shards: shards}, nil
}

// Commit returns the commit id the shards are read for.
func (m *ManifestTree) Commit() string { return m.commit }

func (m *ManifestTree) Lookup(ctx context.Context, p string) (Node, error) {
	if p == "" {
		root, err := m.shard(ctx, "")
		if err != nil {
			return Node{}, err
		}
		return Node{IsDir: true, TotalFiles: root.FileCount}, nil
	}

	parent, err := m.shard(ctx, tree.Parent(p))
	if err != nil {
		if isNotFound(err) {
			return Node{}, notFound(p)
		}
		return Node{}, err
	}
	name := tree.Base(p)
	for _, c := range parent.Children {
		if c.Name == name {
			return Node{Path: p, Name: name, IsDir: c.IsDir, TotalFiles: c.FileCount}, nil
		}
	}
	return Node{}, notFound(p)
}

func (m *ManifestTree) Children(ctx context.Context, dir string) ([]Node, error) {
	if dir != "" {
		n, err := m.Lookup(ctx, dir)
		if err != nil {
			return nil, err
		}
		if !n.IsDir {
			return nil, notDir(dir)
		}
	}
	s, err := m.shard(ctx, dir)
	if err != nil {
		return nil, err
	}
	out := make([]Node, 0, len(s.Children))
	for _, c := range s.Children {
		out = append(out, Node{
			Path:       tree.ChildPath(dir, c.Name),
			Name:       c.Name,
			IsDir:      c.IsDir,
			TotalFiles: c.FileCount,
		})
	}
	return out, nil
}

func (m *ManifestTree) ContainsFile(ctx context.Context, p string) (bool, error) {
	return containsFileVia(ctx, m, p)
}

// shard fetches dir's shard. A missing root shard means the commit was never
// published; a missing nested shard means the directory does not exist.
func (m *ManifestTree) shard(ctx context.Context, dir string) (*models.FileNode, error) {
	key := ShardKey(m.prefix, m.commit, dir)
	if s, ok := m.shards.Get(key); ok {
		return s, nil
	}

	rc, _, err := m.backend.GetObject(ctx, key)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotFound) {
			if dir == "" {
				return nil, fmt.Errorf("no baseline manifest published for commit %s: %w", m.commit, err)
			}
			return nil, notFound(dir)
		}
		return nil, fmt.Errorf("read manifest shard %s: %w", key, err)
	}
	defer rc.Close()

	var s models.FileNode
	if err := json.NewDecoder(rc).Decode(&s); err != nil {
		return nil, fmt.Errorf("decode manifest shard %s: %w", key, err)
	}
	metrics.RecordTreeRead("manifest")
	m.shards.Add(key, &s)
	return &s, nil
}
