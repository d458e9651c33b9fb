package storage

import (
	"context"
	"fmt"

	"github.com/c4fun/VFSForGit/internal/config"
	"github.com/c4fun/VFSForGit/internal/storage/local"
	s3backend "github.com/c4fun/VFSForGit/internal/storage/s3"
)

// NewBackendFromConfig creates the Backend selected by the manifest settings.
func NewBackendFromConfig(ctx context.Context, cfg config.ManifestConfig) (Backend, error) {
	switch cfg.Backend {
	case "s3":
		return s3backend.NewBackend(ctx, s3backend.Config{
			Endpoint:  cfg.S3.Endpoint,
			Bucket:    cfg.S3.Bucket,
			AccessKey: cfg.S3.AccessKey,
			SecretKey: cfg.S3.SecretKey,
			Region:    cfg.S3.Region,
			UseSSL:    cfg.S3.UseSSL,
		})
	case "local":
		return local.New(local.Config{
			RootPath:   cfg.LocalPath,
			CreateDirs: true,
		})
	default:
		return nil, fmt.Errorf("unknown backend type: %s", cfg.Backend)
	}
}
