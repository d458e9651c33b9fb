package baseline

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/filemode"
	"github.com/go-git/go-git/v5/plumbing/object"
	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/errgroup"

	"github.com/c4fun/VFSForGit/internal/logging"
	"github.com/c4fun/VFSForGit/internal/metrics"
	"github.com/c4fun/VFSForGit/pkg/tree"
)

// GitOptions tunes a GitTree.
type GitOptions struct {
	// CacheSize bounds the directory and file-count memos.
	CacheSize int
	// Workers bounds concurrent subtree counting in Children.
	Workers int
	// IgnoreCase overrides the repository's core.ignorecase. Nil reads it
	// from the repository config.
	IgnoreCase *bool
}

func (o GitOptions) withDefaults() GitOptions {
	if o.CacheSize <= 0 {
		o.CacheSize = 4096
	}
	if o.Workers <= 0 {
		o.Workers = 8
	}
	return o
}

// GitTree reads the baseline from a commit with go-git. Only the trees on the
// path to, and beneath, the requested directory are read.
type GitTree struct {
	repo       *git.Repository
	commit     plumbing.Hash
	root       *object.Tree
	ignoreCase bool
	workers    int

	// readMu serializes object reads; go-git packfile access is not safe
	// for concurrent use.
	readMu sync.Mutex

	// dirs maps a requested directory path to its resolved tree.
	dirs *lru.Cache[string, resolvedDir]
	// counts memoizes recursive file counts per tree hash. Identical
	// subtrees anywhere in the commit share one entry.
	counts *lru.Cache[plumbing.Hash, int]
}

type resolvedDir struct {
	path string
	tree *object.Tree
}

// OpenGitPath opens the repository containing dir and resolves rev.
func OpenGitPath(ctx context.Context, dir, rev string, opts GitOptions) (*GitTree, error) {
	repo, err := git.PlainOpenWithOptions(dir, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return nil, fmt.Errorf("open repository %s: %w", dir, err)
	}
	return OpenGit(ctx, repo, rev, opts)
}

// OpenGit resolves rev (default HEAD) in repo.
func OpenGit(ctx context.Context, repo *git.Repository, rev string, opts GitOptions) (*GitTree, error) {
	opts = opts.withDefaults()
	if rev == "" {
		rev = "HEAD"
	}

	hash, err := repo.ResolveRevision(plumbing.Revision(rev))
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", rev, err)
	}
	commit, err := repo.CommitObject(*hash)
	if err != nil {
		return nil, fmt.Errorf("read commit %s: %w", hash, err)
	}
	root, err := commit.Tree()
	if err != nil {
		return nil, fmt.Errorf("read tree of %s: %w", hash, err)
	}
	metrics.RecordTreeRead("git")

	ignoreCase := false
	if opts.IgnoreCase != nil {
		ignoreCase = *opts.IgnoreCase
	} else if cfg, err := repo.Config(); err == nil {
		ignoreCase = strings.EqualFold(cfg.Raw.Section("core").Option("ignorecase"), "true")
	}

	dirs, err := lru.New[string, resolvedDir](opts.CacheSize)
	if err != nil {
		return nil, err
	}
	counts, err := lru.New[plumbing.Hash, int](opts.CacheSize)
	if err != nil {
		return nil, err
	}

	logging.Debug("opened baseline commit",
		logging.String("rev", rev),
		logging.String("commit", hash.String()),
		logging.Bool("ignore_case", ignoreCase))

	return &GitTree{
		repo:       repo,
		commit:     *hash,
		root:       root,
		ignoreCase: ignoreCase,
		workers:    opts.Workers,
		dirs:       dirs,
		counts:     counts,
	}, nil
}

// Commit returns the resolved commit hash.
func (g *GitTree) Commit() string { return g.commit.String() }

// Lookup resolves path. With core.ignorecase a unique case-insensitive match
// is accepted and Node.Path carries the committed spelling.
func (g *GitTree) Lookup(ctx context.Context, path string) (Node, error) {
	if path == "" {
		n, err := g.count(ctx, g.root)
		if err != nil {
			return Node{}, err
		}
		return Node{IsDir: true, TotalFiles: n}, nil
	}

	parent, entry, err := g.entry(ctx, path)
	if err != nil {
		return Node{}, err
	}
	node := Node{Path: tree.ChildPath(parent, entry.Name), Name: entry.Name, TotalFiles: 1}
	if entry.Mode != filemode.Dir {
		return node, nil
	}

	t, err := g.treeObject(entry.Hash)
	if err != nil {
		return Node{}, err
	}
	g.dirs.Add(path, resolvedDir{path: node.Path, tree: t})
	n, err := g.count(ctx, t)
	if err != nil {
		return Node{}, err
	}
	node.IsDir = true
	node.TotalFiles = n
	return node, nil
}

// Children returns the entries of dir with their file counts. Subtree counts
// run concurrently, bounded by GitOptions.Workers.
func (g *GitTree) Children(ctx context.Context, dir string) ([]Node, error) {
	d, err := g.dir(ctx, dir)
	if err != nil {
		return nil, err
	}

	nodes := make([]Node, len(d.tree.Entries))
	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(g.workers)
	for i, e := range d.tree.Entries {
		nodes[i] = Node{Path: tree.ChildPath(d.path, e.Name), Name: e.Name, TotalFiles: 1}
		if e.Mode != filemode.Dir {
			continue
		}
		nodes[i].IsDir = true
		eg.Go(func() error {
			t, err := g.treeObject(e.Hash)
			if err != nil {
				return err
			}
			n, err := g.count(ctx, t)
			if err != nil {
				return err
			}
			nodes[i].TotalFiles = n
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return nodes, nil
}

// ContainsFile reports whether path is a file of the commit without counting
// files.
func (g *GitTree) ContainsFile(ctx context.Context, path string) (bool, error) {
	if path == "" {
		return false, nil
	}
	_, e, err := g.entry(ctx, path)
	if err != nil {
		if isNotFound(err) {
			return false, nil
		}
		return false, err
	}
	return e.Mode != filemode.Dir, nil
}

// entry finds path's tree entry and returns it with the resolved parent path.
func (g *GitTree) entry(ctx context.Context, path string) (string, object.TreeEntry, error) {
	d, err := g.dir(ctx, tree.Parent(path))
	if err != nil {
		if isNotFound(err) {
			return "", object.TreeEntry{}, notFound(path)
		}
		return "", object.TreeEntry{}, err
	}
	e, ok := g.find(d.tree, tree.Base(path))
	if !ok {
		return "", object.TreeEntry{}, notFound(path)
	}
	return d.path, e, nil
}

// dir resolves a directory one segment at a time, reusing resolved prefixes.
func (g *GitTree) dir(ctx context.Context, path string) (resolvedDir, error) {
	if path == "" {
		return resolvedDir{tree: g.root}, nil
	}
	if d, ok := g.dirs.Get(path); ok {
		return d, nil
	}
	if err := ctx.Err(); err != nil {
		return resolvedDir{}, err
	}

	parent, err := g.dir(ctx, tree.Parent(path))
	if err != nil {
		return resolvedDir{}, err
	}
	e, ok := g.find(parent.tree, tree.Base(path))
	if !ok {
		return resolvedDir{}, notFound(path)
	}
	if e.Mode != filemode.Dir {
		return resolvedDir{}, notDir(path)
	}
	t, err := g.treeObject(e.Hash)
	if err != nil {
		return resolvedDir{}, err
	}

	d := resolvedDir{path: tree.ChildPath(parent.path, e.Name), tree: t}
	g.dirs.Add(path, d)
	return d, nil
}

func (g *GitTree) find(t *object.Tree, name string) (object.TreeEntry, bool) {
	for _, e := range t.Entries {
		if e.Name == name {
			return e, true
		}
	}
	if !g.ignoreCase {
		return object.TreeEntry{}, false
	}

	var match object.TreeEntry
	found := 0
	for _, e := range t.Entries {
		if strings.EqualFold(e.Name, name) {
			match = e
			found++
		}
	}
	return match, found == 1
}

// count returns the number of files beneath t. Submodules and symlinks count
// as one file each.
func (g *GitTree) count(ctx context.Context, t *object.Tree) (int, error) {
	if n, ok := g.counts.Get(t.Hash); ok {
		metrics.RecordCountCacheHit()
		return n, nil
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	n := 0
	for _, e := range t.Entries {
		if e.Mode != filemode.Dir {
			n++
			continue
		}
		sub, err := g.treeObject(e.Hash)
		if err != nil {
			return 0, err
		}
		c, err := g.count(ctx, sub)
		if err != nil {
			return 0, err
		}
		n += c
	}
	g.counts.Add(t.Hash, n)
	return n, nil
}

func (g *GitTree) treeObject(h plumbing.Hash) (*object.Tree, error) {
	g.readMu.Lock()
	t, err := g.repo.TreeObject(h)
	g.readMu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("read tree %s: %w", h, err)
	}
	metrics.RecordTreeRead("git")
	return t, nil
}
