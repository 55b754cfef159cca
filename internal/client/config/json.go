package config

import (
	"encoding/json"
	"os"

	"github.com/dmitrijs2005/attachkeeper/internal/flagx"
	"github.com/dmitrijs2005/attachkeeper/internal/timex"
)

// JsonConfig is a DTO used exclusively for JSON unmarshalling.
// It relies on timex.Duration so JSON can specify the upload timeout either
// as a string like "30s" or as integer nanoseconds.
type JsonConfig struct {
	CipherMode    string         `json:"cipher_mode"`
	KeyHex        string         `json:"key_hex"`
	IVHex         string         `json:"iv_hex"`
	Salt          string         `json:"salt"`
	ChunkSize     int            `json:"chunk_size"`
	OutputDir     string         `json:"output_dir"`
	Stages        []string       `json:"stages"`
	KeyPrefix     string         `json:"key_prefix"`
	UploadBackend string         `json:"upload_backend"`
	S3Endpoint    string         `json:"s3_endpoint"`
	S3Region      string         `json:"s3_region"`
	S3Bucket      string         `json:"s3_bucket"`
	S3User        string         `json:"s3_user"`
	S3Password    string         `json:"s3_password"`
	UploadTimeout timex.Duration `json:"upload_timeout"`
	LedgerDSN     *string        `json:"ledger_dsn"`
	LogLevel      string         `json:"log_level"`
}

// parseJson overlays Config with values loaded from the JSON file named by
// -c or -config. Without either flag nothing is loaded.
//
// Only fields present with a non-zero value replace the current ones, so a
// partial file keeps the defaults for everything else. ledger_dsn is the
// exception: an explicit "" disables the ledger.
func parseJson(cfg *Config, args []string) error {
	jsonConfigFile := flagx.JsonConfigFlags(args)
	if jsonConfigFile == "" {
		return nil
	}

	var jc JsonConfig

	data, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, &jc); err != nil {
		return err
	}

	setString(&cfg.CipherMode, jc.CipherMode)
	setString(&cfg.KeyHex, jc.KeyHex)
	setString(&cfg.IVHex, jc.IVHex)
	setString(&cfg.Salt, jc.Salt)
	if jc.ChunkSize != 0 {
		cfg.ChunkSize = jc.ChunkSize
	}
	setString(&cfg.OutputDir, jc.OutputDir)
	if jc.Stages != nil {
		cfg.Stages = jc.Stages
	}
	setString(&cfg.KeyPrefix, jc.KeyPrefix)
	setString(&cfg.UploadBackend, jc.UploadBackend)
	setString(&cfg.S3Endpoint, jc.S3Endpoint)
	setString(&cfg.S3Region, jc.S3Region)
	setString(&cfg.S3Bucket, jc.S3Bucket)
	setString(&cfg.S3User, jc.S3User)
	setString(&cfg.S3Password, jc.S3Password)
	if jc.UploadTimeout.Duration != 0 {
		cfg.UploadTimeout = jc.UploadTimeout.Duration
	}
	if jc.LedgerDSN != nil {
		cfg.LedgerDSN = *jc.LedgerDSN
	}
	setString(&cfg.LogLevel, jc.LogLevel)

	return nil
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
