package sink

import (
	"context"
	"os"
	"path/filepath"

	"github.com/eric2788/webmrec/internal/media"
	"github.com/eric2788/webmrec/internal/modules/config"
	"github.com/eric2788/webmrec/pkg/pool"
	"github.com/eric2788/webmrec/utils"
)

// File writes recordings into a directory. The write goes through a temp
// file that is renamed into place or removed.
type File struct {
	dir  string
	pool *pool.BytesPool
}

func NewFile(dir string) *File {
	return &File{
		dir:  dir,
		pool: pool.NewBytesPool(256 * 1024),
	}
}

func NewFileService(cfg *config.Config) *File {
	return NewFile(cfg.OutputDir)
}

func (f *File) Deliver(ctx context.Context, blob *media.Blob, name string) (string, error) {
	if err := os.MkdirAll(f.dir, 0755); err != nil {
		return "", err
	}
	path := filepath.Join(f.dir, FileName(utils.SanitizeFilename(name)))
	if err := utils.StreamToFile(ctx, blob.Reader(), path, f.pool); err != nil {
		return "", err
	}
	logger.WithField("file", path).Infof("recording saved (%d bytes)", blob.Size())
	return path, nil
}
