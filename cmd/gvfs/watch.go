package main

import (
	"context"
	"fmt"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/c4fun/VFSForGit/internal/logging"
)

// watchDir calls onChange after changes under dir have been quiet for
// debounce. It returns when ctx is done or onChange fails.
func watchDir(ctx context.Context, dir string, debounce time.Duration, onChange func() error) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer w.Close()

	if err := w.Add(dir); err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}

	timer := time.NewTimer(debounce)
	timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if ev.Has(fsnotify.Chmod) && !ev.Has(fsnotify.Write) {
				continue
			}
			logging.Debug("ledger changed", logging.String("path", ev.Name), logging.String("op", ev.Op.String()))
			timer.Reset(debounce)

		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logging.Warn("watch error", logging.Err(err))

		case <-timer.C:
			if err := onChange(); err != nil {
				return err
			}
		}
	}
}
