package baseline

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/c4fun/VFSForGit/internal/logging"
	"github.com/c4fun/VFSForGit/internal/storage"
	"github.com/c4fun/VFSForGit/pkg/models"
)

// PublishManifest walks src and writes one shard per directory to backend.
// It returns the number of shards written.
func PublishManifest(ctx context.Context, src Tree, backend storage.Backend, prefix, commit string) (int, error) {
	root, err := src.Lookup(ctx, "")
	if err != nil {
		return 0, err
	}

	written := 0
	var publish func(dir Node) error
	publish = func(dir Node) error {
		children, err := src.Children(ctx, dir.Path)
		if err != nil {
			return err
		}

		shard := &models.FileNode{
			Name:      dir.Name,
			Path:      dir.Path,
			IsDir:     true,
			FileCount: dir.TotalFiles,
			Children:  make([]*models.FileNode, 0, len(children)),
		}
		for _, c := range children {
			shard.Children = append(shard.Children, &models.FileNode{
				Name:      c.Name,
				Path:      c.Path,
				IsDir:     c.IsDir,
				FileCount: c.TotalFiles,
			})
		}

		data, err := json.Marshal(shard)
		if err != nil {
			return fmt.Errorf("encode shard %s: %w", dir.Path, err)
		}
		key := ShardKey(prefix, commit, dir.Path)
		if err := backend.PutObject(ctx, key, bytes.NewReader(data), int64(len(data))); err != nil {
			return fmt.Errorf("publish shard %s: %w", key, err)
		}
		written++

		for _, c := range children {
			if c.IsDir {
				if err := publish(c); err != nil {
					return err
				}
			}
		}
		return nil
	}

	if err := publish(root); err != nil {
		return written, err
	}
	logging.Info("published baseline manifest",
		logging.String("commit", commit),
		logging.Int("shards", written),
		logging.String("backend", backend.Type()))
	return written, nil
}
