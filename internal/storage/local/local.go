// Package local provides a filesystem storage backend for baseline manifests.
package local

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/afero"

	"github.com/c4fun/VFSForGit/internal/logging"
	"github.com/c4fun/VFSForGit/internal/metrics"
)

// Config holds local filesystem backend settings.
type Config struct {
	RootPath   string
	CreateDirs bool
}

// LocalBackend implements storage.Backend on an afero filesystem rooted at
// RootPath.
type LocalBackend struct {
	fs         afero.Fs
	rootPath   string
	createDirs bool
}

// New creates a backend on the operating system filesystem.
func New(cfg Config) (*LocalBackend, error) {
	return NewWithFs(afero.NewOsFs(), cfg)
}

// NewWithFs creates a backend on the given filesystem.
func NewWithFs(fs afero.Fs, cfg Config) (*LocalBackend, error) {
	if cfg.RootPath == "" {
		return nil, fmt.Errorf("root_path is required")
	}

	info, err := fs.Stat(cfg.RootPath)
	if err != nil {
		if os.IsNotExist(err) && cfg.CreateDirs {
			if mkErr := fs.MkdirAll(cfg.RootPath, 0755); mkErr != nil {
				return nil, fmt.Errorf("create root path %s: %w", cfg.RootPath, mkErr)
			}
		} else {
			return nil, fmt.Errorf("stat root path %s: %w", cfg.RootPath, err)
		}
	} else if !info.IsDir() {
		return nil, fmt.Errorf("root path %s is not a directory", cfg.RootPath)
	}

	return &LocalBackend{
		fs:         fs,
		rootPath:   cfg.RootPath,
		createDirs: cfg.CreateDirs,
	}, nil
}

func (b *LocalBackend) fullPath(key string) (string, error) {
	if key == "" {
		return "", fmt.Errorf("empty key")
	}
	for _, seg := range strings.Split(key, "/") {
		if seg == ".." {
			return "", fmt.Errorf("invalid key %q", key)
		}
	}
	return filepath.Join(b.rootPath, filepath.FromSlash(key)), nil
}

// GetObject opens the file stored under key.
func (b *LocalBackend) GetObject(_ context.Context, key string) (io.ReadCloser, int64, error) {
	start := time.Now()
	p, err := b.fullPath(key)
	if err != nil {
		return nil, 0, err
	}

	f, err := b.fs.Open(p)
	if err != nil {
		metrics.RecordStoreOperation("local", "get_object", time.Since(start), false)
		return nil, 0, fmt.Errorf("open %s: %w", key, err)
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		metrics.RecordStoreOperation("local", "get_object", time.Since(start), false)
		return nil, 0, fmt.Errorf("stat %s: %w", key, err)
	}

	metrics.RecordStoreOperation("local", "get_object", time.Since(start), true)
	return f, info.Size(), nil
}

// PutObject writes content atomically: a temp file in the target directory
// is renamed over the key.
func (b *LocalBackend) PutObject(_ context.Context, key string, body io.Reader, size int64) error {
	start := time.Now()
	p, err := b.fullPath(key)
	if err != nil {
		return err
	}
	dir := filepath.Dir(p)

	if b.createDirs {
		if err := b.fs.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create dirs for %s: %w", key, err)
		}
	}

	tmp, err := afero.TempFile(b.fs, dir, ".gvfs-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp for %s: %w", key, err)
	}
	tmpName := tmp.Name()

	fail := func(err error) error {
		tmp.Close()
		b.fs.Remove(tmpName)
		metrics.RecordStoreOperation("local", "put_object", time.Since(start), false)
		return err
	}

	n, err := io.Copy(tmp, body)
	if err != nil {
		return fail(fmt.Errorf("write %s: %w", key, err))
	}
	if size >= 0 && n != size {
		return fail(fmt.Errorf("write %s: wrote %d bytes, expected %d", key, n, size))
	}
	if err := tmp.Close(); err != nil {
		b.fs.Remove(tmpName)
		metrics.RecordStoreOperation("local", "put_object", time.Since(start), false)
		return fmt.Errorf("close temp for %s: %w", key, err)
	}

	if err := b.fs.Rename(tmpName, p); err != nil {
		b.fs.Remove(tmpName)
		metrics.RecordStoreOperation("local", "put_object", time.Since(start), false)
		return fmt.Errorf("rename %s: %w", key, err)
	}

	metrics.RecordStoreOperation("local", "put_object", time.Since(start), true)
	logging.Debug("local put object", logging.String("key", key), logging.Int64("size", n))
	return nil
}

// ObjectExists reports whether a regular file is stored under key.
func (b *LocalBackend) ObjectExists(_ context.Context, key string) (bool, error) {
	p, err := b.fullPath(key)
	if err != nil {
		return false, err
	}
	info, err := b.fs.Stat(p)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	return !info.IsDir(), nil
}

// Type returns "local".
func (b *LocalBackend) Type() string { return "local" }

// Close is a no-op for local backends.
func (b *LocalBackend) Close() error { return nil }
