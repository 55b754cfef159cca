package cryptox

import (
	"fmt"

	"golang.org/x/crypto/argon2"
)

// MinSaltLength is the shortest salt accepted by DeriveKey.
const MinSaltLength = 8

// DeriveKey stretches a passphrase into a key sized for mode using Argon2id
// (time=1, memory=64MiB, threads=4).
func DeriveKey(password, salt []byte, mode Mode) ([]byte, error) {
	keyLen, err := mode.KeyLen()
	if err != nil {
		return nil, err
	}
	if len(salt) < MinSaltLength {
		return nil, fmt.Errorf("%w: need at least %d bytes", ErrInvalidSaltLength, MinSaltLength)
	}
	return argon2.IDKey(password, salt, 1, 64*1024, 4, uint32(keyLen)), nil
}
