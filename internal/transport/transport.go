// Package transport moves prepared attachment files to object storage.
package transport

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/attachkeeper/internal/logging"
	"github.com/spf13/afero"
)

var (
	ErrUnknownBackend = errors.New("unknown upload backend")
	ErrMissingBucket  = errors.New("bucket is required")
	ErrEmptyKey       = errors.New("storage key is required")
)

// Backend names accepted by New.
const (
	BackendS3          = "s3"
	BackendS3Presigned = "s3-presigned"
	BackendMinio       = "minio"
	BackendNone        = "none"
)

// UploadRequest describes one object to store.
type UploadRequest struct {
	Key         string
	LocalPath   string
	ContentType string
	Metadata    map[string]string
}

// UploadResult is what the backend reported back.
type UploadResult struct {
	Backend string
	Bucket  string
	Key     string
	ETag    string
	Size    int64
}

// Uploader stores a local file under a key.
type Uploader interface {
	Upload(ctx context.Context, req UploadRequest) (*UploadResult, error)
}

// Config selects and configures a backend.
type Config struct {
	Backend   string
	Endpoint  string
	Region    string
	Bucket    string
	AccessKey string
	SecretKey string
	// Timeout bounds a single Upload call. Zero means no limit.
	Timeout time.Duration
}

// New builds the Uploader named by cfg.Backend. BackendNone and an empty
// backend return a nil Uploader and no error.
func New(ctx context.Context, cfg Config, fs afero.Fs, logger logging.Logger) (Uploader, error) {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	if logger == nil {
		logger = logging.NopLogger{}
	}

	switch strings.ToLower(strings.TrimSpace(cfg.Backend)) {
	case BackendS3:
		return NewS3Uploader(ctx, cfg, false, fs, logger)
	case BackendS3Presigned:
		return NewS3Uploader(ctx, cfg, true, fs, logger)
	case BackendMinio:
		return NewMinioUploader(ctx, cfg, fs, logger)
	case BackendNone, "":
		return nil, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, cfg.Backend)
}

// withTimeout applies cfg.Timeout to ctx.
func (c Config) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.Timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, c.Timeout)
}

// openForUpload opens the request's file and returns its size.
func openForUpload(fs afero.Fs, req UploadRequest) (afero.File, int64, error) {
	if req.Key == "" {
		return nil, 0, ErrEmptyKey
	}
	f, err := fs.Open(req.LocalPath)
	if err != nil {
		return nil, 0, fmt.Errorf("open %s: %w", req.LocalPath, err)
	}
	fi, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, 0, fmt.Errorf("stat %s: %w", req.LocalPath, err)
	}
	return f, fi.Size(), nil
}
