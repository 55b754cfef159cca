package stages

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/dmitrijs2005/attachkeeper/internal/flow"
	"github.com/dmitrijs2005/attachkeeper/internal/netx"
	"github.com/gabriel-vasile/mimetype"
	"github.com/spf13/afero"
)

// Prepare fingerprints the file produced by the previous stage (or the item
// itself) and assigns its storage key.
type Prepare struct {
	Fs        afero.Fs
	KeyPrefix string

	now   func() time.Time
	newID func() string
}

// NewPrepare returns a Prepare over fs. A nil fs means the OS filesystem.
func NewPrepare(fs afero.Fs, keyPrefix string) *Prepare {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	return &Prepare{Fs: fs, KeyPrefix: keyPrefix, now: time.Now, newID: newID}
}

func (p *Prepare) Handle(ctx context.Context, in flow.Input, r flow.Reporter) (*flow.StageResult, error) {
	path := in.Results.LastOutput(in.Item.Path)
	r.Progress(0)

	sum, size, err := hashFile(p.Fs, path)
	if err != nil {
		r.Failure(err)
		return nil, err
	}

	values := map[string]string{
		ValueSHA256:      sum,
		ValueSize:        strconv.FormatInt(size, 10),
		ValueStorageKey:  StorageKey(p.KeyPrefix, p.now(), p.newID(), path),
		ValueContentType: detectType(p.Fs, path),
	}
	if path != in.Item.Path {
		values[ValueSourceContentType] = detectType(p.Fs, in.Item.Path)
	}

	r.Progress(1)
	r.Success()
	return &flow.StageResult{InputPath: path, OutputPath: path, Values: values}, nil
}

func hashFile(fs afero.Fs, path string) (string, int64, error) {
	f, err := fs.Open(path)
	if err != nil {
		return "", 0, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	h := sha256.New()
	n, err := io.Copy(h, f)
	if err != nil {
		return "", 0, fmt.Errorf("hash %s: %w", path, err)
	}
	return hex.EncodeToString(h.Sum(nil)), n, nil
}

// detectType sniffs content; unreadable files report the generic binary type.
func detectType(fs afero.Fs, path string) string {
	f, err := fs.Open(path)
	if err != nil {
		return netx.DefaultContentType
	}
	defer f.Close()

	mt, err := mimetype.DetectReader(f)
	if err != nil {
		return netx.DefaultContentType
	}
	return mt.String()
}
