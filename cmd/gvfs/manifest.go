package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/c4fun/VFSForGit/internal/baseline"
	"github.com/c4fun/VFSForGit/internal/storage"
)

func (a *app) manifestCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "manifest",
		Short: "Manage published baseline manifests",
	}
	cmd.AddCommand(a.manifestPublishCmd())
	return cmd
}

func (a *app) manifestPublishCmd() *cobra.Command {
	var (
		repo   string
		commit string
	)
	cmd := &cobra.Command{
		Use:   "publish",
		Short: "Publish the file tree of a commit to the manifest store",
		Long: `Publish writes one shard per directory of the commit to the configured
manifest store (manifest.backend). Enlistments configured with
baseline.source: manifest read their baseline from these shards instead of
from git objects.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			if repo == "" {
				e, err := a.enlistment()
				if err != nil {
					return fmt.Errorf("%w: %w (pass --repo to publish from a plain repository)", errUsage, err)
				}
				repo = e.WorkingDir()
			}
			if commit == "" {
				commit = a.cfg.Baseline.Commit
			}

			tree, err := baseline.OpenGitPath(ctx, repo, commit, baseline.GitOptions{
				CacheSize: a.cfg.Baseline.TreeCacheSize,
				Workers:   a.cfg.Baseline.Workers,
			})
			if err != nil {
				return err
			}

			backend, err := storage.NewBackendFromConfig(ctx, a.cfg.Manifest)
			if err != nil {
				return fmt.Errorf("open manifest store: %w", err)
			}
			defer backend.Close()

			n, err := baseline.PublishManifest(ctx, tree, backend, a.cfg.Manifest.Prefix, tree.Commit())
			if err != nil {
				return err
			}
			fmt.Fprintf(a.stdout, "Published %d directories of commit %s to %s\n", n, tree.Commit(), backend.Type())
			return nil
		},
	}
	cmd.Flags().StringVar(&repo, "repo", "", "git repository to publish from (default: the enlistment's src directory)")
	cmd.Flags().StringVar(&commit, "commit", "", "revision to publish (overrides baseline.commit)")
	return cmd
}
