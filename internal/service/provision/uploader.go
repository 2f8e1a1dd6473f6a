package provision

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/feichai0017/assistant-provisioner/internal/document/pdf"
	"github.com/feichai0017/assistant-provisioner/internal/models"
	"github.com/feichai0017/assistant-provisioner/internal/platform"
	"github.com/feichai0017/assistant-provisioner/pkg/logger"
)

// Uploader submits every PDF directly inside dir to an assistant.
type Uploader struct {
	dir    string
	logger logger.Logger
}

func NewUploader(dir string, log logger.Logger) *Uploader {
	return &Uploader{dir: dir, logger: log.Named("uploader")}
}

// Dir returns the documents directory.
func (u *Uploader) Dir() string { return u.dir }

// Discover lists *.pdf files directly inside the documents directory,
// sorted by name. Subdirectories are not searched.
func (u *Uploader) Discover() ([]models.DocumentFile, error) {
	entries, err := os.ReadDir(u.dir)
	if err != nil {
		return nil, err
	}

	var docs []models.DocumentFile
	for _, entry := range entries {
		if !strings.EqualFold(filepath.Ext(entry.Name()), ".pdf") {
			continue
		}
		doc := models.DocumentFile{
			Path: filepath.Join(u.dir, entry.Name()),
			Name: entry.Name(),
		}
		// Stat follows symlinks, so linked PDFs are uploaded too.
		stat, err := os.Stat(doc.Path)
		if err != nil || !stat.Mode().IsRegular() {
			continue
		}
		doc.Size = stat.Size()
		if info, err := pdf.Inspect(doc.Path); err != nil {
			u.logger.Warn("Could not inspect document",
				logger.String("file", doc.Name),
				logger.Error(err),
			)
		} else {
			doc.Pages = info.Pages
			doc.Title = info.Title
			doc.SHA256 = info.Hash
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

// Upload attempts every discovered document exactly once, sequentially.
// Per-file failures are collected rather than returned; a failed file
// never stops the loop. Upload calls carry no timeout of their own.
//
// Calling Upload again re-submits every document; deduplication is left
// to the platform.
func (u *Uploader) Upload(ctx context.Context, assistant platform.Assistant) *models.UploadOutcome {
	outcome := &models.UploadOutcome{Uploaded: []string{}}

	docs, err := u.Discover()
	if err != nil {
		u.logger.Error("Failed to read documents directory",
			logger.String("dir", u.dir),
			logger.Error(err),
		)
		outcome.DirectoryError = err.Error()
		outcome.Message = fmt.Sprintf("Documents directory %s could not be read: %v", u.dir, err)
		return outcome
	}

	u.logger.Info("Uploading documents",
		logger.String("assistant", assistant.Name()),
		logger.Int("count", len(docs)),
	)

	for _, doc := range docs {
		remote, err := assistant.UploadFile(ctx, doc.Path)
		if err != nil {
			u.logger.Error("Failed to upload document",
				logger.String("assistant", assistant.Name()),
				logger.String("file", doc.Name),
				logger.Error(err),
			)
			outcome.Failures = append(outcome.Failures, models.FileFailure{Name: doc.Name, Reason: err.Error()})
			continue
		}
		fields := []logger.Field{
			logger.String("assistant", assistant.Name()),
			logger.String("file", doc.Name),
			logger.Int64("size", doc.Size),
			logger.Int("pages", doc.Pages),
			logger.String("title", doc.Title),
			logger.String("sha256", doc.SHA256),
		}
		if remote != nil {
			fields = append(fields, logger.String("fileId", remote.ID))
		}
		u.logger.Info("Uploaded document", fields...)
		outcome.Uploaded = append(outcome.Uploaded, doc.Name)
	}

	if len(outcome.Failures) == 0 {
		outcome.Message = "Files uploaded successfully"
	} else {
		outcome.Message = "Failed to upload files: " + strings.Join(outcome.FailedNames(), ", ")
	}
	return outcome
}
