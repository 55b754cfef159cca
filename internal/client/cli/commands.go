package cli

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"maps"
	"slices"

	"github.com/dmitrijs2005/attachkeeper/internal/attachments"
	"github.com/dmitrijs2005/attachkeeper/internal/client/models"
	"github.com/dmitrijs2005/attachkeeper/internal/common"
	"github.com/dmitrijs2005/attachkeeper/internal/cryptox"
	"github.com/dmitrijs2005/attachkeeper/internal/filex"
)

var (
	ErrUsage    = errors.New("usage")
	ErrNoLedger = errors.New("ledger is disabled")
)

// Add registers files. Each path is sniffed to tell images from other files.
func (a *App) Add(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("%w: add <path>...", ErrUsage)
	}

	picked := make([]attachments.Picked, 0, len(args))
	for _, arg := range args {
		picked = append(picked, attachments.Picked{
			URI:  arg,
			Kind: attachments.DetectKind(filex.NormalizeURI(arg)),
		})
	}

	items := attachments.FromPicked(picked)
	if err := a.registry.AddAttachments(items...); err != nil {
		return err
	}
	a.printf("Added %d file(s)", len(items))
	return nil
}

// Meta sets name=value pairs, or prints the current meta without arguments.
func (a *App) Meta(ctx context.Context, args []string) error {
	if len(args) == 0 {
		meta, err := a.registry.Meta()
		if err != nil {
			return err
		}
		for _, k := range slices.Sorted(maps.Keys(meta)) {
			a.printf("%s=%s", k, meta[k])
		}
		return nil
	}

	md, err := models.MetadataFromString(args)
	if err != nil {
		return err
	}
	for _, m := range md {
		if err := a.registry.AddMeta(m.Name, m.Value); err != nil {
			return err
		}
	}
	return nil
}

func (a *App) List(ctx context.Context) error {
	items, err := a.registry.Snapshot()
	if err != nil {
		return err
	}
	if len(items) == 0 {
		a.printf("No attachments")
		return nil
	}
	for _, it := range items {
		a.printf("%-6s %-8s %-8s %3.0f%%  %s", it.Kind, it.Action, it.Status, it.Progress*100, it.Path)
	}
	return nil
}

// RunFlow processes every attachment and prints the batch summary.
func (a *App) RunFlow(ctx context.Context) error {
	summary, err := a.flow.CompleteFlow(ctx)
	a.printf("Done: %d total, %d succeeded, %d failed, %d skipped",
		summary.Total, summary.Succeeded, summary.Failed, summary.Skipped)
	return err
}

// Decrypt restores src into dst. The IV is taken from the optional third
// argument, then from the ledger row of the upload, then from the session
// when src was encrypted now or the IV is configured.
func (a *App) Decrypt(ctx context.Context, args []string) error {
	if len(args) != 2 && len(args) != 3 {
		return fmt.Errorf("%w: decrypt <src> <dst> [iv_hex]", ErrUsage)
	}
	src, dst := filex.NormalizeURI(args[0]), filex.NormalizeURI(args[1])

	var ivHex string
	if len(args) == 3 {
		ivHex = args[2]
	}
	cc, err := a.decryptCipher(ctx, src, ivHex)
	if err != nil {
		return err
	}
	if err := a.decrypt.RunWith(ctx, cc, src, dst); err != nil {
		return err
	}
	a.printf("Decrypted %s -> %s", src, dst)
	return nil
}

func (a *App) decryptCipher(ctx context.Context, src, ivHex string) (*cryptox.CipherContext, error) {
	if ivHex != "" {
		iv, err := hex.DecodeString(ivHex)
		if err != nil {
			return nil, fmt.Errorf("iv: %w", err)
		}
		return a.cipher.WithIV(iv)
	}

	if a.ledger != nil {
		up, err := a.ledger.Uploads.GetByLocalPath(ctx, absPath(src))
		switch {
		case errors.Is(err, common.ErrorNotFound):
		case err != nil:
			return nil, err
		case up.CipherIV != "":
			if up.CipherMode != string(a.cipher.Mode()) {
				return nil, fmt.Errorf("%s was encrypted with %s, session uses %s", src, up.CipherMode, a.cipher.Mode())
			}
			iv, err := hex.DecodeString(up.CipherIV)
			if err != nil {
				return nil, fmt.Errorf("ledger iv: %w", err)
			}
			return a.cipher.WithIV(iv)
		}
	}

	if a.config.IVHex != "" || a.encryptedThisSession(src) {
		return a.cipher, nil
	}
	return nil, fmt.Errorf("%w: %s (pass it as decrypt <src> <dst> <iv_hex>)", ErrUnknownIV, src)
}

func (a *App) History(ctx context.Context) error {
	if a.ledger == nil {
		return ErrNoLedger
	}
	ups, err := a.ledger.Uploads.List(ctx)
	if err != nil {
		return err
	}
	if len(ups) == 0 {
		a.printf("No uploads recorded")
		return nil
	}
	for _, u := range ups {
		a.printf("%s  %s  %s/%s  %d bytes", u.UploadedAt.Local().Format("2006-01-02 15:04:05"), u.Path, u.Bucket, u.StorageKey, u.Size)
	}
	return nil
}

func (a *App) Forget(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("%w: forget <path>...", ErrUsage)
	}
	if a.ledger == nil {
		return ErrNoLedger
	}
	if err := a.ledger.Forget(ctx, args...); err != nil {
		return err
	}
	a.printf("Forgot %d upload(s)", len(args))
	return nil
}
