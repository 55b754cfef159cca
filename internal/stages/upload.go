package stages

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"path/filepath"
	"strconv"
	"time"

	"github.com/dmitrijs2005/attachkeeper/internal/client/models"
	"github.com/dmitrijs2005/attachkeeper/internal/flow"
	"github.com/dmitrijs2005/attachkeeper/internal/transport"
)

var ErrNoUploader = errors.New("no uploader configured")

// Recorder persists finished uploads.
type Recorder interface {
	Record(ctx context.Context, u *models.Upload) error
}

// Upload sends the newest stage output to object storage under the key
// assigned by Prepare. Without a Prepare result it derives the key itself.
// Ledger is optional.
type Upload struct {
	Uploader  transport.Uploader
	Ledger    Recorder
	KeyPrefix string

	now   func() time.Time
	newID func() string
}

func NewUpload(u transport.Uploader, ledger Recorder, keyPrefix string) *Upload {
	return &Upload{Uploader: u, Ledger: ledger, KeyPrefix: keyPrefix, now: time.Now, newID: newID}
}

func (u *Upload) Handle(ctx context.Context, in flow.Input, r flow.Reporter) (*flow.StageResult, error) {
	if u.Uploader == nil {
		r.Failure(ErrNoUploader)
		return nil, ErrNoUploader
	}

	path := in.Results.LastOutput(in.Item.Path)
	key := in.Results.Value(ValueStorageKey)
	if key == "" {
		key = StorageKey(u.KeyPrefix, u.now(), u.newID(), path)
	}

	r.Progress(0)
	res, err := u.Uploader.Upload(ctx, transport.UploadRequest{
		Key:         key,
		LocalPath:   path,
		ContentType: in.Results.Value(ValueContentType),
		Metadata:    objectMetadata(in),
	})
	if err != nil {
		err = fmt.Errorf("upload %s: %w", in.Item.Path, err)
		r.Failure(err)
		return nil, err
	}

	if u.Ledger != nil {
		rec := &models.Upload{
			Path:        in.Item.Path,
			LocalPath:   absPath(path),
			StorageKey:  res.Key,
			Backend:     res.Backend,
			Bucket:      res.Bucket,
			ETag:        res.ETag,
			SHA256:      in.Results.Value(ValueSHA256),
			Size:        res.Size,
			ContentType: in.Results.Value(ValueContentType),
			UploadedAt:  u.now(),
		}
		if _, encrypted := in.Results.Get(flow.StageEncrypt); encrypted {
			rec.CipherMode = in.Meta[MetaCipherMode]
			rec.CipherIV = in.Meta[MetaCipherIV]
		}
		if err := u.Ledger.Record(ctx, rec); err != nil {
			err = fmt.Errorf("record %s: %w", in.Item.Path, err)
			r.Failure(err)
			return nil, err
		}
	}

	r.Progress(1)
	r.Success()
	return &flow.StageResult{
		InputPath:  path,
		OutputPath: path,
		Values: map[string]string{
			ValueStorageKey: res.Key,
			ValueETag:       res.ETag,
			ValueBackend:    res.Backend,
			ValueSize:       strconv.FormatInt(res.Size, 10),
		},
	}, nil
}

func absPath(p string) string {
	if abs, err := filepath.Abs(p); err == nil {
		return abs
	}
	return p
}

// objectMetadata is the run's meta plus what the pipeline learned about the
// item. Pipeline keys win over user keys of the same name.
func objectMetadata(in flow.Input) map[string]string {
	md := maps.Clone(in.Meta)
	if md == nil {
		md = make(map[string]string)
	}
	md["original-name"] = filepath.Base(in.Item.Path)
	md["kind"] = string(in.Item.Kind)
	if v := in.Results.Value(ValueSHA256); v != "" {
		md[ValueSHA256] = v
	}
	if v := in.Results.Value(ValueSourceContentType); v != "" {
		md["source-content-type"] = v
	}
	return md
}
