package cryptox

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/dmitrijs2005/attachkeeper/internal/logging"
	"github.com/spf13/afero"
)

// Event is a file codec lifecycle signal.
type Event int

const (
	// EventLoading fires once per chunk written.
	EventLoading Event = iota + 1
	// EventSuccess fires once after the destination is finalized and closed.
	EventSuccess
	// EventFailure fires once on the first error; nothing follows it.
	EventFailure
)

func (e Event) String() string {
	switch e {
	case EventLoading:
		return "LOADING"
	case EventSuccess:
		return "SUCCESS"
	case EventFailure:
		return "FAILURE"
	}
	return fmt.Sprintf("Event(%d)", int(e))
}

// Payload accompanies every Event. Err is set only for EventFailure.
type Payload struct {
	SourcePath string
	DestPath   string
	Err        error
}

// Callback receives codec events in order.
type Callback func(Event, Payload)

// Codec pumps files through a Stream in fixed-size windows.
type Codec struct {
	fs     afero.Fs
	logger logging.Logger
}

// NewCodec returns a Codec over fs. A nil fs means the OS filesystem.
func NewCodec(fs afero.Fs, logger logging.Logger) *Codec {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	if logger == nil {
		logger = logging.NopLogger{}
	}
	return &Codec{fs: fs, logger: logger}
}

var defaultCodec = NewCodec(nil, nil)

// Fs returns the filesystem the codec reads and writes.
func (c *Codec) Fs() afero.Fs { return c.fs }

// EncryptFile encrypts src into dst on the OS filesystem.
func EncryptFile(ctx context.Context, src, dst string, cc *CipherContext, cb Callback) error {
	return defaultCodec.EncryptFile(ctx, src, dst, cc, cb)
}

// DecryptFile decrypts src into dst on the OS filesystem.
func DecryptFile(ctx context.Context, src, dst string, cc *CipherContext, cb Callback) error {
	return defaultCodec.DecryptFile(ctx, src, dst, cc, cb)
}

// EncryptFile encrypts src into dst, reporting progress through cb.
//
// dst is truncated on open and then written sequentially from offset 0. On
// failure cb receives EventFailure exactly once and the same error is returned.
func (c *Codec) EncryptFile(ctx context.Context, src, dst string, cc *CipherContext, cb Callback) error {
	return c.run(ctx, "encrypt", src, dst, cc, false, cb)
}

// DecryptFile is the inverse of EncryptFile.
func (c *Codec) DecryptFile(ctx context.Context, src, dst string, cc *CipherContext, cb Callback) error {
	return c.run(ctx, "decrypt", src, dst, cc, true, cb)
}

func (c *Codec) run(ctx context.Context, op, src, dst string, cc *CipherContext, decrypt bool, cb Callback) (err error) {
	if cb == nil {
		cb = func(Event, Payload) {}
	}
	p := Payload{SourcePath: src, DestPath: dst}

	defer func() {
		if err != nil {
			c.logger.Error(ctx, "file codec failed", "op", op, "src", src, "dst", dst, "error", err)
			p.Err = err
			cb(EventFailure, p)
		}
	}()

	stream, err := newStream(cc, decrypt)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	in, err := c.fs.Open(src)
	if err != nil {
		return fmt.Errorf("%s: open source: %w", op, err)
	}
	defer in.Close()

	out, err := c.fs.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return fmt.Errorf("%s: open destination: %w", op, err)
	}
	closed := false
	defer func() {
		if !closed {
			_ = out.Close()
		}
	}()

	buf := make([]byte, cc.ChunkSize())
	for {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("%s: aborted: %w", op, err)
		}

		n, rerr := io.ReadFull(in, buf)
		if n > 0 {
			if _, err := out.Write(stream.Update(buf[:n])); err != nil {
				return fmt.Errorf("%s: write: %w", op, err)
			}
			cb(EventLoading, p)
		}

		if errors.Is(rerr, io.EOF) || errors.Is(rerr, io.ErrUnexpectedEOF) {
			break
		}
		if rerr != nil {
			return fmt.Errorf("%s: read: %w", op, rerr)
		}
	}

	last, err := stream.Final()
	if err != nil {
		return fmt.Errorf("%s: finalize: %w", op, err)
	}
	if _, err := out.Write(last); err != nil {
		return fmt.Errorf("%s: write: %w", op, err)
	}

	closed = true
	if err := out.Close(); err != nil {
		return fmt.Errorf("%s: close destination: %w", op, err)
	}

	cb(EventSuccess, p)
	return nil
}
