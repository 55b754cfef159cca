package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/dmitrijs2005/attachkeeper/internal/attachments"
	"github.com/dmitrijs2005/attachkeeper/internal/client/config"
	"github.com/dmitrijs2005/attachkeeper/internal/client/ledger"
	"github.com/dmitrijs2005/attachkeeper/internal/cryptox"
	"github.com/dmitrijs2005/attachkeeper/internal/flow"
	"github.com/dmitrijs2005/attachkeeper/internal/logging"
	"github.com/dmitrijs2005/attachkeeper/internal/stages"
	"github.com/dmitrijs2005/attachkeeper/internal/transport"
	"github.com/spf13/afero"
)

// newUploader is a test seam for transport.New.
var newUploader = transport.New

type App struct {
	config   *config.Config
	logger   logging.Logger
	fs       afero.Fs
	out      io.Writer
	cipher   *cryptox.CipherContext
	registry *attachments.Registry
	flow     *flow.Flow
	decrypt  *stages.Decrypt
	ledger   *ledger.Ledger

	mu         sync.Mutex
	lastStatus map[string]attachments.Status
	encrypted  map[string]struct{}
}

// NewApp builds the pipeline described by cfg. Files listed in cfg.Files are
// added to the registry before it returns.
func NewApp(ctx context.Context, cfg *config.Config, logger logging.Logger) (*App, error) {
	return newApp(ctx, cfg, logger, afero.NewOsFs(), os.Stdout)
}

func newApp(ctx context.Context, cfg *config.Config, logger logging.Logger, fs afero.Fs, out io.Writer) (_ *App, err error) {
	a := &App{
		config:     cfg,
		logger:     logger,
		fs:         fs,
		out:        out,
		lastStatus: make(map[string]attachments.Status),
		encrypted:  make(map[string]struct{}),
	}
	a.registry = attachments.NewRegistry(attachments.WithListener(a.onItemChanged))
	defer func() {
		if err != nil {
			a.Close()
		}
	}()

	a.cipher, err = resolveCipher(cfg, a.registry, out)
	if err != nil {
		return nil, fmt.Errorf("cipher: %w", err)
	}

	codec := cryptox.NewCodec(fs, logger)
	a.decrypt = &stages.Decrypt{Codec: codec, Cipher: a.cipher, Registry: a.registry, Logger: logger}

	if cfg.LedgerDSN != "" {
		a.ledger, err = ledger.Open(ctx, cfg.LedgerDSN)
		if err != nil {
			return nil, fmt.Errorf("ledger: %w", err)
		}
	}

	opts, err := a.stageOptions(ctx, codec)
	if err != nil {
		return nil, err
	}
	opts = append(opts,
		flow.WithLogger(logger),
		flow.WithObserver(flow.ObserverFuncs{
			Start: func() { a.printf("Processing attachments...") },
			ItemFailure: func(item attachments.Item, stage flow.Stage, err error) {
				a.printf("  %s failed at %s: %v", item.Path, stage, err)
			},
		}),
	)

	a.flow, err = flow.New(a.registry, opts...)
	if err != nil {
		return nil, err
	}

	if len(cfg.Files) > 0 {
		if err := a.Add(ctx, cfg.Files); err != nil {
			return nil, err
		}
	}
	return a, nil
}

func (a *App) stageOptions(ctx context.Context, codec *cryptox.Codec) ([]flow.Option, error) {
	var opts []flow.Option
	for _, name := range a.config.Stages {
		stage, err := flow.ParseStage(name)
		if err != nil {
			return nil, err
		}

		switch stage {
		case flow.StageEncrypt:
			enc := &stages.Encrypt{
				Codec:     codec,
				Cipher:    a.cipher,
				OutputDir: a.config.OutputDir,
			}
			opts = append(opts, flow.WithEncrypt(flow.HandlerFunc(
				func(ctx context.Context, in flow.Input, r flow.Reporter) (*flow.StageResult, error) {
					res, err := enc.Handle(ctx, in, r)
					if err == nil {
						a.markEncrypted(res.OutputPath)
					}
					return res, err
				})))

		case flow.StagePrepare:
			opts = append(opts, flow.WithPrepare(stages.NewPrepare(a.fs, a.config.KeyPrefix)))

		case flow.StageUpload:
			up, err := newUploader(ctx, transport.Config{
				Backend:   a.config.UploadBackend,
				Endpoint:  a.config.S3Endpoint,
				Region:    a.config.S3Region,
				Bucket:    a.config.S3Bucket,
				AccessKey: a.config.S3User,
				SecretKey: a.config.S3Password,
				Timeout:   a.config.UploadTimeout,
			}, a.fs, a.logger)
			if err != nil {
				return nil, fmt.Errorf("uploader: %w", err)
			}
			if up == nil {
				a.logger.Warn(ctx, "upload stage disabled", "backend", a.config.UploadBackend)
				continue
			}

			var rec stages.Recorder
			if a.ledger != nil {
				rec = a.ledger.Uploads
			}
			opts = append(opts, flow.WithUpload(stages.NewUpload(up, rec, a.config.KeyPrefix)))
		}
	}
	return opts, nil
}

// Close releases the registry, the ledger and the key material.
func (a *App) Close() {
	if a.registry != nil {
		a.registry.Close()
	}
	if a.ledger != nil {
		_ = a.ledger.Close()
	}
	if a.cipher != nil {
		a.cipher.Wipe()
	}
}

// onItemChanged prints status transitions; progress goes to the debug log.
func (a *App) onItemChanged(it attachments.Item) {
	a.mu.Lock()
	prev, seen := a.lastStatus[it.Path]
	a.lastStatus[it.Path] = it.Status
	a.mu.Unlock()

	a.logger.Debug(context.Background(), "attachment updated",
		"path", it.Path, "action", it.Action, "status", it.Status, "progress", it.Progress)

	if seen && prev == it.Status {
		return
	}
	if it.Status == attachments.StatusIdle {
		return
	}
	a.printf("  [%s] %s %s", it.Action, it.Path, it.Status)
}

func (a *App) printf(format string, args ...any) {
	fmt.Fprintf(a.out, format+"\n", args...)
}

func (a *App) status() string {
	n, err := a.registry.Len()
	if err != nil {
		return "closed"
	}
	return fmt.Sprintf("%d files, %s", n, a.flow.State())
}

// Run starts the REPL on in and blocks until the user exits or in is drained.
func (a *App) Run(ctx context.Context, in io.Reader) {
	a.printf("Welcome to attach (type 'help' for commands)")
	runREPL(ctx, a, a.status, newScanner(in))
}

// markEncrypted remembers a file written with the session cipher.
func (a *App) markEncrypted(path string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.encrypted[absPath(path)] = struct{}{}
}

func (a *App) encryptedThisSession(path string) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	_, ok := a.encrypted[absPath(path)]
	return ok
}

func absPath(p string) string {
	if abs, err := filepath.Abs(p); err == nil {
		return abs
	}
	return p
}
