package transport

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"strings"
	"time"

	"github.com/dmitrijs2005/attachkeeper/internal/logging"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/spf13/afero"
)

// minioAPI is the part of *minio.Client the uploader needs.
type minioAPI interface {
	BucketExists(ctx context.Context, bucketName string) (bool, error)
	MakeBucket(ctx context.Context, bucketName string, opts minio.MakeBucketOptions) error
	PutObject(ctx context.Context, bucketName, objectName string, reader io.Reader, objectSize int64, opts minio.PutObjectOptions) (minio.UploadInfo, error)
}

var newMinioClient = func(endpoint string, opts *minio.Options) (minioAPI, error) {
	return minio.New(endpoint, opts)
}

// MinioUploader stores files with the minio client. The bucket is created on
// construction when missing.
type MinioUploader struct {
	cfg    Config
	client minioAPI
	fs     afero.Fs
	logger logging.Logger
}

// NewMinioUploader accepts an endpoint either as host:port or as a URL; an
// https scheme turns TLS on. Without an access key the credentials come from
// the AWS_* or MINIO_* environment variables.
func NewMinioUploader(ctx context.Context, cfg Config, fs afero.Fs, logger logging.Logger) (*MinioUploader, error) {
	if cfg.Bucket == "" {
		return nil, ErrMissingBucket
	}

	host, secure, err := splitEndpoint(cfg.Endpoint)
	if err != nil {
		return nil, err
	}

	creds := credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, "")
	if cfg.AccessKey == "" {
		creds = credentials.NewChainCredentials([]credentials.Provider{
			&credentials.EnvAWS{},
			&credentials.EnvMinio{},
		})
	}

	client, err := newMinioClient(host, &minio.Options{
		Creds:  creds,
		Secure: secure,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("minio client: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("bucket exists %s: %w", cfg.Bucket, err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{Region: cfg.Region}); err != nil {
			return nil, fmt.Errorf("make bucket %s: %w", cfg.Bucket, err)
		}
		logger.Info(ctx, "bucket created", "bucket", cfg.Bucket)
	}

	return &MinioUploader{cfg: cfg, client: client, fs: fs, logger: logger}, nil
}

// splitEndpoint turns "http://host:9000/" into ("host:9000", false).
func splitEndpoint(endpoint string) (string, bool, error) {
	endpoint = strings.TrimSpace(endpoint)
	if endpoint == "" {
		return "", false, fmt.Errorf("minio endpoint is required")
	}
	if !strings.Contains(endpoint, "://") {
		return strings.TrimSuffix(endpoint, "/"), false, nil
	}

	u, err := url.Parse(endpoint)
	if err != nil {
		return "", false, fmt.Errorf("parse endpoint: %w", err)
	}
	if u.Host == "" {
		return "", false, fmt.Errorf("endpoint %q has no host", endpoint)
	}
	return u.Host, u.Scheme == "https", nil
}

// Upload streams req.LocalPath to the bucket.
func (u *MinioUploader) Upload(ctx context.Context, req UploadRequest) (*UploadResult, error) {
	ctx, cancel := u.cfg.withTimeout(ctx)
	defer cancel()

	f, size, err := openForUpload(u.fs, req)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	info, err := u.client.PutObject(ctx, u.cfg.Bucket, req.Key, f, size, minio.PutObjectOptions{
		ContentType:  req.ContentType,
		UserMetadata: req.Metadata,
	})
	if err != nil {
		return nil, fmt.Errorf("put object %s: %w", req.Key, err)
	}

	u.logger.Debug(ctx, "object stored", "backend", BackendMinio, "key", req.Key, "size", info.Size)
	return &UploadResult{
		Backend: BackendMinio,
		Bucket:  u.cfg.Bucket,
		Key:     req.Key,
		ETag:    info.ETag,
		Size:    size,
	}, nil
}
