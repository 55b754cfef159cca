package cryptox

import "errors"

var (
	// Construction errors, returned before any file I/O happens.
	ErrUnknownMode       = errors.New("unknown cipher mode")
	ErrInvalidKeyLength  = errors.New("invalid key length")
	ErrInvalidIVLength   = errors.New("invalid iv length")
	ErrInvalidChunkSize  = errors.New("invalid chunk size")
	ErrNilContext        = errors.New("nil cipher context")
	ErrInvalidSaltLength = errors.New("salt too short")

	// Finalization errors on decrypt.
	ErrNotFullBlocks  = errors.New("ciphertext is not a whole number of blocks")
	ErrInvalidPadding = errors.New("invalid padding")
)
