package cryptox

import (
	"crypto/aes"
	"fmt"
	"log/slog"
	"strings"

	"github.com/dmitrijs2005/attachkeeper/internal/common"
)

// BlockSize is the AES block size shared by every supported mode.
const BlockSize = aes.BlockSize

// DefaultChunkSize is the read window used when none is configured.
const DefaultChunkSize = 4 * 1024

// Mode names a block cipher in CBC mode.
type Mode string

const (
	ModeAES128CBC Mode = "aes-128-cbc"
	ModeAES192CBC Mode = "aes-192-cbc"
	ModeAES256CBC Mode = "aes-256-cbc"
)

// ParseMode resolves a case-insensitive mode name.
func ParseMode(s string) (Mode, error) {
	m := Mode(strings.ToLower(strings.TrimSpace(s)))
	if _, err := m.KeyLen(); err != nil {
		return "", err
	}
	return m, nil
}

// KeyLen returns the key length in bytes required by m.
func (m Mode) KeyLen() (int, error) {
	switch m {
	case ModeAES128CBC:
		return 16, nil
	case ModeAES192CBC:
		return 24, nil
	case ModeAES256CBC:
		return 32, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownMode, string(m))
}

// CipherContext is the immutable key material for one codec invocation:
// mode, key, IV and the read window size.
//
// The key and IV are copied on construction and are never exposed through
// String or LogValue.
type CipherContext struct {
	mode      Mode
	key       []byte
	iv        []byte
	chunkSize int
}

// NewCipherContext validates lengths up front so that a bad key or IV fails
// before any file is opened.
func NewCipherContext(mode Mode, key, iv []byte, chunkSize int) (*CipherContext, error) {
	keyLen, err := mode.KeyLen()
	if err != nil {
		return nil, err
	}
	if len(key) != keyLen {
		return nil, fmt.Errorf("%w: %s needs %d bytes, got %d", ErrInvalidKeyLength, mode, keyLen, len(key))
	}
	if len(iv) != BlockSize {
		return nil, fmt.Errorf("%w: need %d bytes, got %d", ErrInvalidIVLength, BlockSize, len(iv))
	}
	if chunkSize < 1 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidChunkSize, chunkSize)
	}

	return &CipherContext{
		mode:      mode,
		key:       append([]byte(nil), key...),
		iv:        append([]byte(nil), iv...),
		chunkSize: chunkSize,
	}, nil
}

func (c *CipherContext) Mode() Mode { return c.mode }

// WithIV returns a copy of c that uses iv. The key and chunk size are shared
// by value, so wiping one context does not affect the other.
func (c *CipherContext) WithIV(iv []byte) (*CipherContext, error) {
	return NewCipherContext(c.mode, c.key, iv, c.chunkSize)
}

func (c *CipherContext) ChunkSize() int { return c.chunkSize }

// Wipe zeroes the key and IV. The context must not be used afterwards.
func (c *CipherContext) Wipe() {
	common.WipeByteArray(c.key)
	common.WipeByteArray(c.iv)
}

func (c *CipherContext) String() string {
	return fmt.Sprintf("CipherContext{mode=%s chunk_size=%d key=[redacted]}", c.mode, c.chunkSize)
}

// LogValue keeps key material out of structured logs.
func (c *CipherContext) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("mode", string(c.mode)),
		slog.Int("chunk_size", c.chunkSize),
	)
}
