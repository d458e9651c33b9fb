// Command ledger-seed writes hydration ledger state into an enlistment, and
// mirrors an enlistment's ledger into the central PostgreSQL database.
//
// It is used to prepare fixtures for functional tests and dashboards; the
// virtualization layer owns the ledger in a live enlistment.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/c4fun/VFSForGit/internal/config"
	"github.com/c4fun/VFSForGit/internal/enlistment"
	"github.com/c4fun/VFSForGit/internal/ledger"
	"github.com/c4fun/VFSForGit/internal/ledger/modifiedpaths"
	"github.com/c4fun/VFSForGit/internal/ledger/placeholders"
	"github.com/c4fun/VFSForGit/internal/ledger/postgres"
	"github.com/c4fun/VFSForGit/internal/logging"
)

type seedFlags struct {
	enlistment   string
	init         bool
	placeholders []string
	folders      []string
	removed      []string
	modified     []string
	unmodified   []string
}

func main() {
	if err := logging.Init(logging.Config{Level: "info", Format: "console"}); err != nil {
		panic("logging init: " + err.Error())
	}
	defer logging.Sync()

	if err := rootCmd().ExecuteContext(context.Background()); err != nil {
		logging.Error("ledger-seed failed", logging.Err(err))
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var f seedFlags
	root := &cobra.Command{
		Use:   "ledger-seed",
		Short: "Write hydration ledger entries into an enlistment",
		Example: `  ledger-seed --enlistment /src/os --init \
    --placeholder .gitignore --folder Scripts \
    --placeholder Scripts/RunUnitTests.bat --modified .gitattributes`,
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return seed(cmd.Context(), f)
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&f.enlistment, "enlistment", ".", "enlistment root or any directory inside it")

	root.Flags().BoolVar(&f.init, "init", false, "create the enlistment layout if it does not exist")
	root.Flags().StringArrayVar(&f.placeholders, "placeholder", nil, "add a file placeholder (repeatable)")
	root.Flags().StringArrayVar(&f.folders, "folder", nil, "add a folder placeholder (repeatable)")
	root.Flags().StringArrayVar(&f.removed, "remove-placeholder", nil, "remove a placeholder (repeatable)")
	root.Flags().StringArrayVar(&f.modified, "modified", nil, "append a modified path (repeatable)")
	root.Flags().StringArrayVar(&f.unmodified, "unmodified", nil, "append a modified path deletion (repeatable)")

	root.AddCommand(mirrorCmd(&f))
	return root
}

func seed(ctx context.Context, f seedFlags) error {
	fs := afero.NewOsFs()

	var (
		e   *enlistment.Enlistment
		err error
	)
	if f.init {
		e, err = enlistment.Init(fs, f.enlistment)
	} else {
		e, err = enlistment.Find(fs, f.enlistment)
	}
	if err != nil {
		return err
	}

	ph, err := placeholders.Create(ctx, e.PlaceholderDatabase())
	if err != nil {
		return err
	}
	defer ph.Close()

	for _, p := range f.placeholders {
		if err := ph.Add(ctx, p, placeholders.File, ""); err != nil {
			return err
		}
	}
	for _, p := range f.folders {
		if err := ph.Add(ctx, p, placeholders.PartialFolder, ""); err != nil {
			return err
		}
	}
	for _, p := range f.removed {
		if err := ph.Remove(ctx, p); err != nil {
			return err
		}
	}

	mp := modifiedpaths.New(fs, e.ModifiedPathsFile())
	if len(f.modified) > 0 {
		if err := mp.Add(f.modified...); err != nil {
			return err
		}
	}
	if len(f.unmodified) > 0 {
		if err := mp.Delete(f.unmodified...); err != nil {
			return err
		}
	}

	n, err := ph.Count(ctx)
	if err != nil {
		return err
	}
	logging.Info("ledger seeded",
		logging.String("enlistment", e.Root),
		logging.Int("placeholders", n),
		logging.Int("modified_appended", len(f.modified)+len(f.unmodified)))
	return nil
}

func mirrorCmd(f *seedFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "mirror",
		Short: "Copy the enlistment's ledger into the central PostgreSQL mirror",
		Long: `Mirror replaces the rows of ledger.enlistment_id in ledger.database_url with
the enlistment's current placeholders and modified paths.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			fs := afero.NewOsFs()

			e, err := enlistment.Find(fs, f.enlistment)
			if err != nil {
				return err
			}
			cfg, err := config.Load(e.DotGVFS())
			if err != nil {
				return err
			}
			if cfg.Ledger.DatabaseURL == "" || cfg.Ledger.EnlistmentID == "" {
				return fmt.Errorf("ledger.database_url and ledger.enlistment_id are required")
			}

			ph, err := placeholders.Open(ctx, e.PlaceholderDatabase(), 0)
			if err != nil {
				return err
			}
			defer ph.Close()

			var entries []ledger.Entry
			for entry, err := range ledger.Merge(ph, modifiedpaths.New(fs, e.ModifiedPathsFile())).Iterate(ctx, "") {
				if err != nil {
					return err
				}
				entries = append(entries, entry)
			}

			store, err := postgres.New(ctx, cfg.Ledger.DatabaseURL, cfg.Ledger.EnlistmentID)
			if err != nil {
				return err
			}
			defer store.Close()

			if err := store.Migrate(ctx); err != nil {
				return err
			}
			return store.Replace(ctx, entries)
		},
	}
}
