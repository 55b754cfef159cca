package stages

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"path/filepath"

	"github.com/dmitrijs2005/attachkeeper/internal/cryptox"
	"github.com/dmitrijs2005/attachkeeper/internal/filex"
	"github.com/dmitrijs2005/attachkeeper/internal/flow"
)

// Encrypt writes the encrypted copy of each item. An empty OutputDir puts
// <base>.enc next to the source. A shared OutputDir gets
// <base>.<dirhash>.enc so that equal names from different directories do not
// overwrite each other.
type Encrypt struct {
	Codec     *cryptox.Codec
	Cipher    *cryptox.CipherContext
	OutputDir string
}

func (e *Encrypt) Handle(ctx context.Context, in flow.Input, r flow.Reporter) (*flow.StageResult, error) {
	src := in.Item.Path
	fs := e.Codec.Fs()

	fi, err := fs.Stat(src)
	if err != nil {
		err = fmt.Errorf("stat %s: %w", src, err)
		r.Failure(err)
		return nil, err
	}

	dst := e.OutputPath(src)
	if err := fs.MkdirAll(filepath.Dir(dst), 0o700); err != nil {
		err = fmt.Errorf("output dir: %w", err)
		r.Failure(err)
		return nil, err
	}

	r.Progress(0)
	cb := codecProgress(fi.Size(), e.Cipher.ChunkSize(), r.Progress, r.Success, r.Failure)
	if err := e.Codec.EncryptFile(ctx, src, dst, e.Cipher, cb); err != nil {
		return nil, err
	}

	return &flow.StageResult{InputPath: src, OutputPath: dst}, nil
}

// OutputPath is where Handle writes the encrypted copy of src.
func (e *Encrypt) OutputPath(src string) string {
	if e.OutputDir == "" {
		return filex.SiblingPath(filepath.Dir(src), src, EncryptedSuffix)
	}
	return filex.SiblingPath(e.OutputDir, src, "."+dirTag(src)+EncryptedSuffix)
}

// dirTag is a short stable tag for the directory holding src.
func dirTag(src string) string {
	dir := filepath.Dir(src)
	if abs, err := filepath.Abs(dir); err == nil {
		dir = abs
	}
	sum := sha256.Sum256([]byte(dir))
	return hex.EncodeToString(sum[:4])
}
