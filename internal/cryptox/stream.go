package cryptox

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"fmt"

	"github.com/dmitrijs2005/attachkeeper/internal/common"
)

// Stream is an incremental CBC transformer with PKCS#7 padding.
//
// Update may be fed windows of any size; partial blocks are buffered until
// enough bytes arrive. Final must be called exactly once after the last
// Update. Calling either method after Final panics.
//
// A Stream is not safe for concurrent use.
type Stream struct {
	mode      cipher.BlockMode
	decrypt   bool
	pending   []byte
	finalized bool
}

// NewEncryptStream returns a Stream that encrypts with cc.
func NewEncryptStream(cc *CipherContext) (*Stream, error) {
	return newStream(cc, false)
}

// NewDecryptStream returns a Stream that decrypts with cc.
func NewDecryptStream(cc *CipherContext) (*Stream, error) {
	return newStream(cc, true)
}

func newStream(cc *CipherContext, decrypt bool) (*Stream, error) {
	if cc == nil {
		return nil, ErrNilContext
	}

	block, err := aes.NewCipher(cc.key)
	if err != nil {
		return nil, fmt.Errorf("new cipher: %w", err)
	}

	s := &Stream{decrypt: decrypt, pending: make([]byte, 0, cc.chunkSize+BlockSize)}
	if decrypt {
		s.mode = cipher.NewCBCDecrypter(block, cc.iv)
	} else {
		s.mode = cipher.NewCBCEncrypter(block, cc.iv)
	}
	return s, nil
}

// Update transforms as many whole blocks as are available and returns them.
// The result may be empty.
func (s *Stream) Update(chunk []byte) []byte {
	if s.finalized {
		panic("cryptox: Update called after Final")
	}

	s.pending = append(s.pending, chunk...)

	n := len(s.pending) - len(s.pending)%BlockSize
	// the last full block on decrypt may carry padding; keep it for Final
	if s.decrypt && n > 0 && n == len(s.pending) {
		n -= BlockSize
	}
	if n == 0 {
		return nil
	}

	out := make([]byte, n)
	s.mode.CryptBlocks(out, s.pending[:n])
	s.pending = append(s.pending[:0], s.pending[n:]...)

	return out
}

// Final flushes the stream. On encrypt it pads and emits the last block.
// On decrypt it checks block alignment and strips the padding.
func (s *Stream) Final() ([]byte, error) {
	if s.finalized {
		panic("cryptox: Final called twice")
	}
	s.finalized = true
	defer common.WipeByteArray(s.pending)

	if !s.decrypt {
		padded := pkcs7Pad(s.pending, BlockSize)
		out := make([]byte, len(padded))
		s.mode.CryptBlocks(out, padded)
		return out, nil
	}

	if len(s.pending) != BlockSize {
		return nil, ErrNotFullBlocks
	}

	out := make([]byte, BlockSize)
	s.mode.CryptBlocks(out, s.pending)
	return pkcs7Unpad(out, BlockSize)
}

func pkcs7Pad(b []byte, blockSize int) []byte {
	n := blockSize - len(b)%blockSize
	return append(append([]byte(nil), b...), bytes.Repeat([]byte{byte(n)}, n)...)
}

func pkcs7Unpad(b []byte, blockSize int) ([]byte, error) {
	if len(b) == 0 || len(b)%blockSize != 0 {
		return nil, ErrNotFullBlocks
	}
	n := int(b[len(b)-1])
	if n == 0 || n > blockSize {
		return nil, ErrInvalidPadding
	}
	for _, v := range b[len(b)-n:] {
		if int(v) != n {
			return nil, ErrInvalidPadding
		}
	}
	return b[:len(b)-n], nil
}
