package main

import (
	"context"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"

	"github.com/c4fun/VFSForGit/internal/baseline"
	"github.com/c4fun/VFSForGit/internal/config"
	"github.com/c4fun/VFSForGit/internal/enlistment"
	"github.com/c4fun/VFSForGit/internal/health"
	"github.com/c4fun/VFSForGit/internal/ledger"
	"github.com/c4fun/VFSForGit/internal/ledger/modifiedpaths"
	"github.com/c4fun/VFSForGit/internal/ledger/placeholders"
	"github.com/c4fun/VFSForGit/internal/ledger/postgres"
	"github.com/c4fun/VFSForGit/internal/storage"
)

const placeholderBusyTimeout = 5 * time.Second

type closer func() error

func noClose() error { return nil }

// openBaseline opens the tree of rev from the configured source.
func (a *app) openBaseline(ctx context.Context, e *enlistment.Enlistment, rev string) (baseline.Tree, closer, error) {
	cfg := a.cfg.Baseline
	if rev == "" {
		rev = cfg.Commit
	}

	switch cfg.Source {
	case "manifest":
		commit, err := resolveCommit(e.WorkingDir(), rev)
		if err != nil {
			return nil, nil, err
		}
		backend, err := storage.NewBackendFromConfig(ctx, a.cfg.Manifest)
		if err != nil {
			return nil, nil, fmt.Errorf("open manifest store: %w", err)
		}
		t, err := baseline.NewManifestTree(backend, a.cfg.Manifest.Prefix, commit, cfg.TreeCacheSize)
		if err != nil {
			backend.Close()
			return nil, nil, err
		}
		return t, backend.Close, nil

	default:
		t, err := baseline.OpenGitPath(ctx, e.WorkingDir(), rev, baseline.GitOptions{
			CacheSize: cfg.TreeCacheSize,
			Workers:   cfg.Workers,
		})
		if err != nil {
			return nil, nil, err
		}
		return t, noClose, nil
	}
}

// resolveCommit returns rev unchanged when it is a full commit id, otherwise
// resolves it in the repository at dir.
func resolveCommit(dir, rev string) (string, error) {
	if len(rev) == 40 {
		if _, err := hex.DecodeString(rev); err == nil {
			return rev, nil
		}
	}
	repo, err := git.PlainOpenWithOptions(dir, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return "", fmt.Errorf("open repository %s: %w", dir, err)
	}
	hash, err := repo.ResolveRevision(plumbing.Revision(rev))
	if err != nil {
		return "", fmt.Errorf("resolve %s: %w", rev, err)
	}
	return hash.String(), nil
}

// openLedger opens the configured hydration ledger.
func (a *app) openLedger(ctx context.Context, e *enlistment.Enlistment) (ledger.Reader, closer, error) {
	cfg := a.cfg.Ledger

	switch cfg.Source {
	case "postgres":
		s, err := postgres.New(ctx, cfg.DatabaseURL, cfg.EnlistmentID)
		if err != nil {
			return nil, nil, err
		}
		return s, s.Close, nil

	default:
		ph, err := placeholders.Open(ctx, e.PlaceholderDatabase(), placeholderBusyTimeout)
		if err != nil {
			return nil, nil, err
		}
		mp := modifiedpaths.New(a.fs, e.ModifiedPathsFile())
		return ledger.Merge(ph, mp), ph.Close, nil
	}
}

func healthOptions(cfg config.HealthConfig, topOverride int, roundingOverride string) (health.Options, error) {
	opts := health.Options{TopN: cfg.TopDirectories}
	if topOverride > 0 {
		opts.TopN = topOverride
	}

	rounding := cfg.PercentRounding
	if roundingOverride != "" {
		rounding = roundingOverride
	}
	r, err := health.ParseRounding(rounding)
	if err != nil {
		return health.Options{}, fmt.Errorf("%w: %w", errUsage, err)
	}
	opts.Rounding = r

	for _, t := range cfg.Thresholds {
		opts.Thresholds = append(opts.Thresholds, health.Threshold{Min: t.Min, Label: t.Label})
	}
	return opts, nil
}
