package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/c4fun/VFSForGit/internal/config"
	"github.com/c4fun/VFSForGit/internal/enlistment"
	"github.com/c4fun/VFSForGit/internal/logging"
)

// app carries state shared by the subcommands of one invocation.
type app struct {
	stdout io.Writer
	stderr io.Writer
	fs     afero.Fs

	enlistmentPath  string
	logLevel        string
	metricsTextfile string

	cfg *config.Config
	enl *enlistment.Enlistment
	// enlErr is reported by commands that need an enlistment.
	enlErr error
}

func newApp(stdout, stderr io.Writer) *app {
	return &app{stdout: stdout, stderr: stderr, fs: afero.NewOsFs()}
}

func (a *app) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "gvfs",
		Short: "Inspect a VFS for Git enlistment",
		Long: `gvfs inspects a VFS for Git enlistment.

Configuration is read from .gvfs/gvfs.yaml in the enlistment, gvfs.yaml in
the current directory, a .env file and GVFS_* environment variables.`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.setup,
	}
	root.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return fmt.Errorf("%w: %w", errUsage, err)
	})

	flags := root.PersistentFlags()
	flags.StringVar(&a.enlistmentPath, "enlistment", "", "enlistment root or any directory inside it (default: current directory)")
	flags.StringVar(&a.logLevel, "log-level", "", "log level: debug, info, warn, error (overrides log.level)")
	flags.StringVar(&a.metricsTextfile, "metrics-textfile", "", "write Prometheus metrics to this file on exit (overrides metrics.textfile)")

	root.AddCommand(a.healthCmd(), a.manifestCmd())
	return root
}

// setup locates the enlistment, loads configuration and initializes logging.
func (a *app) setup(cmd *cobra.Command, _ []string) error {
	cwd, err := os.Getwd()
	if err != nil {
		return err
	}
	start := a.enlistmentPath
	if start == "" {
		start = cwd
	}
	a.enl, a.enlErr = enlistment.Find(a.fs, start)

	var searchDirs []string
	if a.enl != nil {
		searchDirs = append(searchDirs, a.enl.DotGVFS())
	}
	searchDirs = append(searchDirs, cwd)

	cfg, err := config.Load(searchDirs...)
	if err != nil {
		return err
	}
	if a.logLevel != "" {
		cfg.Log.Level = a.logLevel
	}
	if a.metricsTextfile == "" {
		a.metricsTextfile = cfg.Metrics.Textfile
	}
	a.cfg = cfg

	if err := logging.Init(logging.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		OutputPath: cfg.Log.Output,
	}); err != nil {
		return fmt.Errorf("init logging: %w", err)
	}

	logging.Debug("gvfs starting",
		logging.String("command", cmd.Name()),
		logging.String("baseline", cfg.Baseline.Source),
		logging.String("ledger", cfg.Ledger.Source))
	return nil
}

// enlistment returns the located enlistment or the reason none was found.
func (a *app) enlistment() (*enlistment.Enlistment, error) {
	if a.enl == nil {
		return nil, a.enlErr
	}
	return a.enl, nil
}
