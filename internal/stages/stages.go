// Package stages provides the stock flow handlers: encrypt, prepare and
// upload, plus a tracked decrypt used by the CLI.
package stages

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/dmitrijs2005/attachkeeper/internal/cryptox"
	"github.com/google/uuid"
)

// Keys written into flow.StageResult.Values.
const (
	ValueSHA256            = "sha256"
	ValueSize              = "size"
	ValueStorageKey        = "storage_key"
	ValueContentType       = "content_type"
	ValueSourceContentType = "source_content_type"
	ValueETag              = "etag"
	ValueBackend           = "backend"
)

// Meta keys under which the session cipher parameters travel with a run.
const (
	MetaCipherIV   = "cipher_iv"
	MetaCipherMode = "cipher_mode"
)

// DefaultKeyPrefix is the first segment of generated storage keys.
const DefaultKeyPrefix = "attachments"

// EncryptedSuffix is appended to the base name of encrypted outputs.
const EncryptedSuffix = ".enc"

// StorageKey builds "<prefix>/YYYY/M/D/<id><ext>" with the extension of name
// lowercased.
func StorageKey(prefix string, now time.Time, id, name string) string {
	if prefix == "" {
		prefix = DefaultKeyPrefix
	}
	ext := strings.ToLower(filepath.Ext(name))
	return fmt.Sprintf("%s/%d/%d/%d/%s%s", prefix, now.Year(), now.Month(), now.Day(), id, ext)
}

func newID() string { return uuid.New().String() }

// codecProgress turns codec events into progress fractions. Each LOADING
// event stands for one chunk read from a source of size bytes.
func codecProgress(size int64, chunkSize int, progress func(float64), success func(), failure func(error)) cryptox.Callback {
	var chunks int64
	return func(ev cryptox.Event, p cryptox.Payload) {
		switch ev {
		case cryptox.EventLoading:
			chunks++
			progress(fraction(chunks*int64(chunkSize), size))
		case cryptox.EventSuccess:
			success()
		case cryptox.EventFailure:
			failure(p.Err)
		}
	}
}

func fraction(done, total int64) float64 {
	if total <= 0 || done >= total {
		return 1
	}
	return float64(done) / float64(total)
}
