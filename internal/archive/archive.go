// Package archive opens the object store exports are written to.
package archive

import (
	"context"
	"fmt"

	"creatorhub/internal/archive/core"
	"creatorhub/internal/config"
	"creatorhub/internal/infra/archive/fs"
	"creatorhub/internal/infra/archive/memory"
	"creatorhub/internal/infra/archive/s3"
)

type (
	Store      = core.Store
	Object     = core.Object
	PutOptions = core.PutOptions
	Driver     = core.Driver
)

var (
	ErrExists      = core.ErrExists
	ErrNotFound    = core.ErrNotFound
	ErrUnsupported = core.ErrUnsupported
)

// NewMemory returns an in-memory archive.
func NewMemory() Store { return memory.New() }

// NewFilesystem returns an archive rooted at dir.
func NewFilesystem(dir string) (Store, error) { return fs.New(dir) }

// Open selects the backend named by cfg.Driver.
func Open(ctx context.Context, cfg config.ArchiveConfig) (Store, error) {
	switch cfg.Driver {
	case config.ArchiveMemory:
		return memory.New(), nil
	case config.ArchiveFS, "":
		st, err := fs.New(cfg.Dir)
		if err != nil {
			return nil, err
		}
		return st, nil
	case config.ArchiveS3:
		st, err := s3.New(ctx, s3.Config{
			Bucket:    cfg.S3Bucket,
			Region:    cfg.S3Region,
			Endpoint:  cfg.S3Endpoint,
			PathStyle: cfg.S3PathStyle,
		})
		if err != nil {
			return nil, err
		}
		return st, nil
	default:
		return nil, fmt.Errorf("archive: unknown driver %q", cfg.Driver)
	}
}
