package stages

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/attachkeeper/internal/attachments"
	"github.com/dmitrijs2005/attachkeeper/internal/cryptox"
	"github.com/dmitrijs2005/attachkeeper/internal/logging"
)

// Decrypt restores a file produced by Encrypt and tracks it in a registry
// under the source path with action DECRYPT. Logger is optional.
type Decrypt struct {
	Codec    *cryptox.Codec
	Cipher   *cryptox.CipherContext
	Registry *attachments.Registry
	Logger   logging.Logger
}

// Run decrypts src with d.Cipher.
func (d *Decrypt) Run(ctx context.Context, src, dst string) error {
	return d.RunWith(ctx, d.Cipher, src, dst)
}

// RunWith decrypts src with cc, for files encrypted under another IV.
func (d *Decrypt) RunWith(ctx context.Context, cc *cryptox.CipherContext, src, dst string) error {
	if cc == nil {
		return cryptox.ErrNilContext
	}
	fi, err := d.Codec.Fs().Stat(src)
	if err != nil {
		return fmt.Errorf("stat %s: %w", src, err)
	}

	found, err := d.Registry.UpdateByPath(src, d.patch(attachments.StatusLoading).WithProgress(0))
	if err != nil {
		return err
	}
	if !found {
		item := attachments.Item{Path: src, Kind: attachments.KindFile, Status: attachments.StatusLoading, Action: attachments.ActionDecrypt}
		if err := d.Registry.AddAttachments(item); err != nil {
			return err
		}
	}

	cb := codecProgress(fi.Size(), cc.ChunkSize(),
		func(v float64) { d.update(ctx, src, d.patch(attachments.StatusLoading).WithProgress(v)) },
		func() { d.update(ctx, src, d.patch(attachments.StatusSuccess).WithProgress(1)) },
		func(error) { d.update(ctx, src, d.patch(attachments.StatusFailure)) },
	)
	return d.Codec.DecryptFile(ctx, src, dst, cc, cb)
}

func (d *Decrypt) update(ctx context.Context, path string, p attachments.Patch) {
	if _, err := d.Registry.UpdateByPath(path, p); err != nil {
		d.logger().Warn(ctx, "registry update dropped", "path", path, "error", err)
	}
}

func (d *Decrypt) logger() logging.Logger {
	if d.Logger == nil {
		return logging.NopLogger{}
	}
	return d.Logger
}

func (d *Decrypt) patch(s attachments.Status) attachments.Patch {
	return attachments.StagePatch(attachments.ActionDecrypt, s)
}
