package transport

import (
	"context"
	"errors"
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/dmitrijs2005/attachkeeper/internal/logging"
	"github.com/dmitrijs2005/attachkeeper/internal/netx"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func memFile(t *testing.T, path string, data []byte) afero.Fs {
	t.Helper()
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, path, data, 0o600))
	return fs
}

func stubS3(t *testing.T) {
	t.Helper()
	origLoad := loadDefaultAWSConfig
	origNewS3 := newS3ClientFromConfig
	origNewPre := newS3PresignClient
	origPut := putObject
	origPresign := presignPutObject
	origUpload := uploadToPresignedURL
	t.Cleanup(func() {
		loadDefaultAWSConfig = origLoad
		newS3ClientFromConfig = origNewS3
		newS3PresignClient = origNewPre
		putObject = origPut
		presignPutObject = origPresign
		uploadToPresignedURL = origUpload
	})

	loadDefaultAWSConfig = func(ctx context.Context, optFns ...func(*awsconfig.LoadOptions) error) (aws.Config, error) {
		return aws.Config{}, nil
	}
	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		return &s3.Client{}
	}
	newS3PresignClient = func(c *s3.Client) *s3.PresignClient {
		return &s3.PresignClient{}
	}
}

var s3cfg = Config{
	Endpoint:  "http://127.0.0.1:9000",
	Region:    "us-east-1",
	Bucket:    "attachments",
	AccessKey: "minioadmin",
	SecretKey: "minioadmin",
}

func TestNew_Backends(t *testing.T) {
	stubS3(t)
	fake := &fakeMinio{exists: true}
	stubMinio(t, fake, nil)

	ctx := context.Background()

	u, err := New(ctx, Config{Backend: "none"}, nil, nil)
	require.NoError(t, err)
	assert.Nil(t, u)

	u, err = New(ctx, Config{}, nil, nil)
	require.NoError(t, err)
	assert.Nil(t, u)

	cfg := s3cfg
	cfg.Backend = "S3"
	u, err = New(ctx, cfg, nil, nil)
	require.NoError(t, err)
	require.IsType(t, &S3Uploader{}, u)
	assert.False(t, u.(*S3Uploader).presigned)

	cfg.Backend = "s3-presigned"
	u, err = New(ctx, cfg, nil, nil)
	require.NoError(t, err)
	assert.True(t, u.(*S3Uploader).presigned)

	cfg.Backend = "minio"
	u, err = New(ctx, cfg, nil, nil)
	require.NoError(t, err)
	assert.IsType(t, &MinioUploader{}, u)

	_, err = New(ctx, Config{Backend: "ftp"}, nil, nil)
	require.ErrorIs(t, err, ErrUnknownBackend)
}

func TestNewS3Uploader_AppliesConfig(t *testing.T) {
	stubS3(t)

	loadDefaultAWSConfig = func(ctx context.Context, optFns ...func(*awsconfig.LoadOptions) error) (aws.Config, error) {
		require.NotEmpty(t, optFns)
		var lo awsconfig.LoadOptions
		for _, fn := range optFns {
			require.NoError(t, fn(&lo))
		}
		assert.Equal(t, "us-east-1", lo.Region)
		require.NotNil(t, lo.Credentials)
		creds, err := lo.Credentials.Retrieve(ctx)
		require.NoError(t, err)
		assert.Equal(t, "minioadmin", creds.AccessKeyID)
		return aws.Config{}, nil
	}

	var opts s3.Options
	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		for _, fn := range optFns {
			fn(&opts)
		}
		return &s3.Client{}
	}

	_, err := NewS3Uploader(context.Background(), s3cfg, false, afero.NewMemMapFs(), logging.NopLogger{})
	require.NoError(t, err)
	require.NotNil(t, opts.BaseEndpoint)
	assert.Equal(t, "http://127.0.0.1:9000", *opts.BaseEndpoint)
	assert.True(t, opts.UsePathStyle)
}

func TestNewS3Uploader_Errors(t *testing.T) {
	stubS3(t)

	_, err := NewS3Uploader(context.Background(), Config{}, false, nil, logging.NopLogger{})
	require.ErrorIs(t, err, ErrMissingBucket)

	boom := errors.New("no config")
	loadDefaultAWSConfig = func(ctx context.Context, optFns ...func(*awsconfig.LoadOptions) error) (aws.Config, error) {
		return aws.Config{}, boom
	}
	_, err = NewS3Uploader(context.Background(), s3cfg, false, nil, logging.NopLogger{})
	require.ErrorIs(t, err, boom)
}

func TestS3Uploader_DirectPut(t *testing.T) {
	stubS3(t)
	fs := memFile(t, "/out/a.enc", []byte("ciphertext"))

	var got *s3.PutObjectInput
	var body []byte
	putObject = func(c *s3.Client, ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
		got = in
		body, _ = io.ReadAll(in.Body)
		return &s3.PutObjectOutput{ETag: aws.String(`"etag-1"`)}, nil
	}

	u, err := NewS3Uploader(context.Background(), s3cfg, false, fs, logging.NopLogger{})
	require.NoError(t, err)

	res, err := u.Upload(context.Background(), UploadRequest{
		Key:         "attachments/2026/1/2/x.enc",
		LocalPath:   "/out/a.enc",
		ContentType: "application/octet-stream",
		Metadata:    map[string]string{"sha256": "abc"},
	})
	require.NoError(t, err)

	assert.Equal(t, "attachments", aws.ToString(got.Bucket))
	assert.Equal(t, "attachments/2026/1/2/x.enc", aws.ToString(got.Key))
	assert.Equal(t, int64(10), aws.ToInt64(got.ContentLength))
	assert.Equal(t, "application/octet-stream", aws.ToString(got.ContentType))
	assert.Equal(t, map[string]string{"sha256": "abc"}, got.Metadata)
	assert.Equal(t, []byte("ciphertext"), body)

	assert.Equal(t, &UploadResult{
		Backend: BackendS3,
		Bucket:  "attachments",
		Key:     "attachments/2026/1/2/x.enc",
		ETag:    `"etag-1"`,
		Size:    10,
	}, res)
}

func TestS3Uploader_DirectPutError(t *testing.T) {
	stubS3(t)
	fs := memFile(t, "/a", []byte("x"))
	boom := errors.New("access denied")
	putObject = func(c *s3.Client, ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
		return nil, boom
	}

	u, err := NewS3Uploader(context.Background(), s3cfg, false, fs, logging.NopLogger{})
	require.NoError(t, err)

	_, err = u.Upload(context.Background(), UploadRequest{Key: "k", LocalPath: "/a"})
	require.ErrorIs(t, err, boom)
}

func TestS3Uploader_Presigned(t *testing.T) {
	stubS3(t)
	fs := memFile(t, "/a.enc", []byte("0123456789abcdef"))

	presignPutObject = func(pc *s3.PresignClient, ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
		assert.Equal(t, "k1", aws.ToString(in.Key))
		assert.Nil(t, in.Body)
		return &v4.PresignedHTTPRequest{
			URL:          "http://storage.local/attachments/k1?X-Amz-Signature=abc",
			Method:       http.MethodPut,
			SignedHeader: http.Header{"X-Amz-Meta-Sha256": {"abc"}},
		}, nil
	}

	var (
		gotURL    string
		gotHeader http.Header
		gotBody   []byte
		gotSize   int64
	)
	uploadToPresignedURL = func(ctx context.Context, client netx.HTTPDoer, url string, header http.Header, body io.Reader, size int64) error {
		gotURL, gotHeader, gotSize = url, header, size
		gotBody, _ = io.ReadAll(body)
		return nil
	}

	u, err := NewS3Uploader(context.Background(), s3cfg, true, fs, logging.NopLogger{})
	require.NoError(t, err)

	res, err := u.Upload(context.Background(), UploadRequest{Key: "k1", LocalPath: "/a.enc", Metadata: map[string]string{"sha256": "abc"}})
	require.NoError(t, err)

	assert.Equal(t, "http://storage.local/attachments/k1?X-Amz-Signature=abc", gotURL)
	assert.Equal(t, "abc", gotHeader.Get("X-Amz-Meta-Sha256"))
	assert.Equal(t, int64(16), gotSize)
	assert.Equal(t, []byte("0123456789abcdef"), gotBody)
	assert.Equal(t, BackendS3Presigned, res.Backend)
	assert.Equal(t, int64(16), res.Size)
}

func TestS3Uploader_PresignedErrors(t *testing.T) {
	stubS3(t)
	fs := memFile(t, "/a", []byte("x"))

	u, err := NewS3Uploader(context.Background(), s3cfg, true, fs, logging.NopLogger{})
	require.NoError(t, err)

	presignErr := errors.New("presign failed")
	presignPutObject = func(pc *s3.PresignClient, ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
		return nil, presignErr
	}
	_, err = u.Upload(context.Background(), UploadRequest{Key: "k", LocalPath: "/a"})
	require.ErrorIs(t, err, presignErr)

	putErr := errors.New("403")
	presignPutObject = func(pc *s3.PresignClient, ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
		return &v4.PresignedHTTPRequest{URL: "http://x"}, nil
	}
	uploadToPresignedURL = func(context.Context, netx.HTTPDoer, string, http.Header, io.Reader, int64) error {
		return putErr
	}
	_, err = u.Upload(context.Background(), UploadRequest{Key: "k", LocalPath: "/a"})
	require.ErrorIs(t, err, putErr)
}

func TestUpload_RequestValidation(t *testing.T) {
	stubS3(t)
	u, err := NewS3Uploader(context.Background(), s3cfg, false, afero.NewMemMapFs(), logging.NopLogger{})
	require.NoError(t, err)

	_, err = u.Upload(context.Background(), UploadRequest{LocalPath: "/a"})
	require.ErrorIs(t, err, ErrEmptyKey)

	_, err = u.Upload(context.Background(), UploadRequest{Key: "k", LocalPath: "/missing"})
	require.Error(t, err)
}

func TestUpload_Timeout(t *testing.T) {
	stubS3(t)
	fs := memFile(t, "/a", []byte("x"))
	putObject = func(c *s3.Client, ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	}

	cfg := s3cfg
	cfg.Timeout = 10 * time.Millisecond
	u, err := NewS3Uploader(context.Background(), cfg, false, fs, logging.NopLogger{})
	require.NoError(t, err)

	_, err = u.Upload(context.Background(), UploadRequest{Key: "k", LocalPath: "/a"})
	require.ErrorIs(t, err, context.DeadlineExceeded)
}
