package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/c4fun/VFSForGit/internal/baseline"
	"github.com/c4fun/VFSForGit/internal/health"
	"github.com/c4fun/VFSForGit/internal/ledger"
	"github.com/c4fun/VFSForGit/internal/logging"
	"github.com/c4fun/VFSForGit/internal/scope"
)

type healthFlags struct {
	directory string
	json      bool
	top       int
	rounding  string
	commit    string
	watch     bool
	debounce  time.Duration
}

func (a *app) healthCmd() *cobra.Command {
	var f healthFlags
	cmd := &cobra.Command{
		Use:   "health",
		Short: "Show how much of the enlistment is hydrated",
		Long: `Show the hydration health of the enlistment or one of its directories.

Files managed by VFS for Git (fast) are placeholders served by the
virtualization layer. Files managed by git (slow) have been written locally
and are tracked by git directly.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.runHealth(cmd.Context(), f)
		},
	}

	cmd.Flags().StringVarP(&f.directory, "directory", "d", "", "directory to report on, relative to the repository root")
	cmd.Flags().BoolVar(&f.json, "json", false, "print the report as JSON")
	cmd.Flags().IntVar(&f.top, "top", 0, "number of subdirectories to list (overrides health.top_directories)")
	cmd.Flags().StringVar(&f.rounding, "rounding", "", "percent rounding: floor or nearest (overrides health.percent_rounding)")
	cmd.Flags().StringVar(&f.commit, "commit", "", "baseline revision (overrides baseline.commit)")
	cmd.Flags().BoolVar(&f.watch, "watch", false, "print a new report whenever the ledger changes")
	cmd.Flags().DurationVar(&f.debounce, "watch-debounce", 500*time.Millisecond, "quiet period before re-reporting in --watch mode")
	return cmd
}

func (a *app) runHealth(ctx context.Context, f healthFlags) error {
	if f.top < 0 {
		return fmt.Errorf("%w: --top must not be negative", errUsage)
	}
	// Reject malformed directories before touching the enlistment.
	dir, err := scope.Normalize(f.directory)
	if err != nil {
		return err
	}

	e, err := a.enlistment()
	if err != nil {
		return err
	}
	opts, err := healthOptions(a.cfg.Health, f.top, f.rounding)
	if err != nil {
		return err
	}

	tree, closeTree, err := a.openBaseline(ctx, e, f.commit)
	if err != nil {
		return err
	}
	defer closeTree()

	l, closeLedger, err := a.openLedger(ctx, e)
	if err != nil {
		return err
	}
	defer closeLedger()

	reporter, err := health.NewReporter(tree, l, opts)
	if err != nil {
		return fmt.Errorf("%w: %w", errUsage, err)
	}

	render := func(separator string) error {
		rep, err := reporter.Report(ctx, dir)
		if err != nil {
			if errors.Is(err, baseline.ErrNotFoundInCommit) {
				return &cliError{msg: "directory not found in HEAD commit: " + scope.Display(dir), err: err}
			}
			return err
		}

		// The report is rendered in full before anything reaches stdout.
		var buf bytes.Buffer
		buf.WriteString(separator)
		if f.json {
			err = rep.WriteJSON(&buf)
		} else {
			err = rep.WriteText(&buf)
		}
		if err != nil {
			return err
		}
		_, err = a.stdout.Write(buf.Bytes())
		return err
	}

	if err := render(""); err != nil {
		return err
	}
	if !f.watch {
		return nil
	}

	logging.Info("watching hydration ledger", logging.String("dir", e.DatabasesDir()))
	return watchDir(ctx, e.DatabasesDir(), f.debounce, func() error {
		separator := "\n"
		if f.json {
			separator = ""
		}
		err := render(separator)
		if errors.Is(err, ledger.ErrLedgerUnavailable) {
			logging.Warn("ledger read failed, waiting for the next change", logging.Err(err))
			return nil
		}
		return err
	})
}
