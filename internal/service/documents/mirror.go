package documents

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/feichai0017/assistant-provisioner/config"
	"github.com/feichai0017/assistant-provisioner/pkg/logger"
	"github.com/feichai0017/assistant-provisioner/pkg/storage"
	"github.com/feichai0017/assistant-provisioner/pkg/storage/minio"
	"github.com/feichai0017/assistant-provisioner/pkg/storage/s3"
)

const defaultConcurrency = 4

// Mirror copies PDF objects from a bucket into the flat documents
// directory. Objects already present locally with the same size are
// skipped.
type Mirror struct {
	store       storage.Storage
	prefix      string
	concurrency int
	logger      logger.Logger
}

func NewMirror(store storage.Storage, prefix string, log logger.Logger) *Mirror {
	return &Mirror{
		store:       store,
		prefix:      prefix,
		concurrency: defaultConcurrency,
		logger:      log.Named("mirror"),
	}
}

// NewSource builds the bucket configured by cfg. It returns nil when no
// source is configured.
func NewSource(ctx context.Context, cfg config.DocumentsConfig, log logger.Logger) (storage.Storage, error) {
	switch cfg.Source {
	case config.DocumentSourceNone:
		return nil, nil
	case config.DocumentSourceS3:
		return s3.NewS3Storage(ctx, cfg.S3, log)
	case config.DocumentSourceMinio:
		return minio.NewMinioStorage(ctx, cfg.Minio, log)
	default:
		return nil, fmt.Errorf("unsupported storage type: %s", cfg.Source)
	}
}

// Sync downloads missing documents into dir and returns how many were
// written.
func (m *Mirror) Sync(ctx context.Context, dir string) (int, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return 0, fmt.Errorf("failed to create documents directory: %w", err)
	}

	objects, err := m.store.List(ctx, m.prefix)
	if err != nil {
		return 0, err
	}

	seen := make(map[string]string)
	var pending []storage.Object
	for _, obj := range objects {
		name := path.Base(obj.Key)
		if strings.HasSuffix(obj.Key, "/") || !strings.EqualFold(path.Ext(name), ".pdf") {
			continue
		}
		if prev, ok := seen[name]; ok {
			m.logger.Warn("Skipping object with duplicate file name",
				logger.String("key", obj.Key),
				logger.String("kept", prev),
			)
			continue
		}
		seen[name] = obj.Key
		if info, err := os.Stat(filepath.Join(dir, name)); err == nil && info.Size() == obj.Size {
			continue
		}
		pending = append(pending, obj)
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(m.concurrency)
	for _, obj := range pending {
		obj := obj
		g.Go(func() error {
			return m.download(ctx, obj, filepath.Join(dir, path.Base(obj.Key)))
		})
	}
	if err := g.Wait(); err != nil {
		return 0, err
	}

	m.logger.Info("Mirrored documents",
		logger.Int("listed", len(objects)),
		logger.Int("downloaded", len(pending)),
	)
	return len(pending), nil
}

// download writes to a temporary file and renames it into place, so the
// uploader never sees a partial PDF.
func (m *Mirror) download(ctx context.Context, obj storage.Object, target string) error {
	reader, err := m.store.Get(ctx, obj.Key)
	if err != nil {
		return err
	}
	defer reader.Close()

	tmp, err := os.CreateTemp(filepath.Dir(target), ".mirror-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, reader); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to download %s: %w", obj.Key, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write %s: %w", target, err)
	}
	if err := os.Rename(tmp.Name(), target); err != nil {
		return fmt.Errorf("failed to move %s into place: %w", target, err)
	}

	m.logger.Debug("Downloaded document", logger.String("key", obj.Key), logger.String("path", target))
	return nil
}
