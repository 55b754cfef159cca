package transport

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/dmitrijs2005/attachkeeper/internal/logging"
	"github.com/dmitrijs2005/attachkeeper/internal/netx"
	"github.com/spf13/afero"
)

const presignExpiry = 15 * time.Minute

var (
	loadDefaultAWSConfig = config.LoadDefaultConfig

	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		return s3.NewFromConfig(cfg, optFns...)
	}

	newS3PresignClient = func(c *s3.Client) *s3.PresignClient {
		return s3.NewPresignClient(c)
	}

	putObject = func(c *s3.Client, ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
		return c.PutObject(ctx, in, optFns...)
	}

	presignPutObject = func(pc *s3.PresignClient, ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
		return pc.PresignPutObject(ctx, in, optFns...)
	}

	uploadToPresignedURL = netx.UploadToPresignedURL
)

// S3Uploader stores files through the aws-sdk S3 client, either with a
// direct PutObject or through a presigned PUT url.
type S3Uploader struct {
	cfg       Config
	presigned bool
	client    *s3.Client
	presigner *s3.PresignClient
	http      netx.HTTPDoer
	fs        afero.Fs
	logger    logging.Logger
}

// NewS3Uploader uses static credentials when cfg.AccessKey is set and the
// default AWS chain (AWS_* variables, shared config) otherwise. A non-empty
// Endpoint switches to path-style addressing for S3-compatible servers.
func NewS3Uploader(ctx context.Context, cfg Config, presigned bool, fs afero.Fs, logger logging.Logger) (*S3Uploader, error) {
	if cfg.Bucket == "" {
		return nil, ErrMissingBucket
	}

	opts := []func(*config.LoadOptions) error{config.WithRegion(cfg.Region)}
	if cfg.AccessKey != "" {
		opts = append(opts, config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKey,
			cfg.SecretKey,
			"",
		)))
	}

	awsCfg, err := loadDefaultAWSConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := newS3ClientFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})

	u := &S3Uploader{
		cfg:       cfg,
		presigned: presigned,
		client:    client,
		http:      http.DefaultClient,
		fs:        fs,
		logger:    logger,
	}
	if presigned {
		u.presigner = newS3PresignClient(client)
	}
	return u, nil
}

func (u *S3Uploader) backend() string {
	if u.presigned {
		return BackendS3Presigned
	}
	return BackendS3
}

// Upload streams req.LocalPath to the bucket.
func (u *S3Uploader) Upload(ctx context.Context, req UploadRequest) (*UploadResult, error) {
	ctx, cancel := u.cfg.withTimeout(ctx)
	defer cancel()

	f, size, err := openForUpload(u.fs, req)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	in := &s3.PutObjectInput{
		Bucket:        aws.String(u.cfg.Bucket),
		Key:           aws.String(req.Key),
		ContentLength: aws.Int64(size),
		Metadata:      req.Metadata,
	}
	if req.ContentType != "" {
		in.ContentType = aws.String(req.ContentType)
	}

	res := &UploadResult{Backend: u.backend(), Bucket: u.cfg.Bucket, Key: req.Key, Size: size}

	if !u.presigned {
		in.Body = f
		out, err := putObject(u.client, ctx, in)
		if err != nil {
			return nil, fmt.Errorf("put object %s: %w", req.Key, err)
		}
		res.ETag = aws.ToString(out.ETag)
		u.logger.Debug(ctx, "object stored", "backend", res.Backend, "key", req.Key, "size", size)
		return res, nil
	}

	signed, err := presignPutObject(u.presigner, ctx, in, s3.WithPresignExpires(presignExpiry))
	if err != nil {
		return nil, fmt.Errorf("presign put %s: %w", req.Key, err)
	}
	if err := uploadToPresignedURL(ctx, u.http, signed.URL, signed.SignedHeader, f, size); err != nil {
		return nil, fmt.Errorf("presigned put %s: %w", req.Key, err)
	}
	u.logger.Debug(ctx, "object stored", "backend", res.Backend, "key", req.Key, "size", size)
	return res, nil
}
