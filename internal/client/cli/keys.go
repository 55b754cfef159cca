package cli

import (
	"encoding/hex"
	"errors"
	"fmt"
	"io"

	"github.com/dmitrijs2005/attachkeeper/internal/attachments"
	"github.com/dmitrijs2005/attachkeeper/internal/client/config"
	"github.com/dmitrijs2005/attachkeeper/internal/common"
	"github.com/dmitrijs2005/attachkeeper/internal/cryptox"
	"github.com/dmitrijs2005/attachkeeper/internal/stages"
)

// Meta keys recorded for every session. The upload stage copies them into
// the ledger so files can be decrypted in a later session.
const (
	MetaCipherIV   = stages.MetaCipherIV
	MetaCipherMode = stages.MetaCipherMode
)

var (
	ErrEmptyPassphrase = errors.New("empty passphrase")
	ErrUnknownIV       = errors.New("cipher IV unknown for this file")
)

// resolveCipher builds the session cipher context. A configured hex key is
// used as is; otherwise the key is derived from a prompted passphrase. A
// missing IV is generated. The IV and mode are stored in the registry meta.
func resolveCipher(cfg *config.Config, reg *attachments.Registry, w io.Writer) (*cryptox.CipherContext, error) {
	mode, err := cryptox.ParseMode(cfg.CipherMode)
	if err != nil {
		return nil, err
	}

	var key []byte
	if cfg.KeyHex != "" {
		key, err = hex.DecodeString(cfg.KeyHex)
		if err != nil {
			return nil, fmt.Errorf("key_hex: %w", err)
		}
	} else {
		pw, err := GetPassword(w, "Enter passphrase: ")
		if err != nil {
			return nil, fmt.Errorf("read passphrase: %w", err)
		}
		defer common.WipeByteArray(pw)
		if len(pw) == 0 {
			return nil, ErrEmptyPassphrase
		}
		key, err = cryptox.DeriveKey(pw, []byte(cfg.Salt), mode)
		if err != nil {
			return nil, err
		}
	}
	defer common.WipeByteArray(key)

	var iv []byte
	if cfg.IVHex != "" {
		iv, err = hex.DecodeString(cfg.IVHex)
		if err != nil {
			return nil, fmt.Errorf("iv_hex: %w", err)
		}
	} else {
		iv = common.GenerateRandByteArray(cryptox.BlockSize)
	}

	cc, err := cryptox.NewCipherContext(mode, key, iv, cfg.ChunkSize)
	if err != nil {
		return nil, err
	}

	if err := reg.AddMeta(MetaCipherIV, hex.EncodeToString(iv)); err != nil {
		return nil, err
	}
	if err := reg.AddMeta(MetaCipherMode, string(mode)); err != nil {
		return nil, err
	}
	return cc, nil
}
