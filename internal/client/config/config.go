package config

import (
	"fmt"
	"time"
)

// Config holds runtime settings for the attach CLI.
//
// Fields:
//   - CipherMode: one of aes-128-cbc, aes-192-cbc, aes-256-cbc.
//   - KeyHex / IVHex: raw key and IV in hex. An empty key means the CLI asks
//     for a passphrase and derives the key with Salt. An empty IV means a
//     random IV per session.
//   - ChunkSize: codec read window in bytes.
//   - OutputDir: where encrypted copies are written.
//   - Stages: enabled flow stages, in any order.
//   - UploadBackend: s3, s3-presigned, minio or none.
//   - S3*: object storage settings shared by the s3 and minio backends.
//   - UploadTimeout: bound on a single upload.
//   - LedgerDSN: SQLite database for the upload ledger; empty disables it.
//   - LogLevel: debug, info, warn or error.
type Config struct {
	CipherMode    string
	KeyHex        string
	IVHex         string
	Salt          string
	ChunkSize     int
	OutputDir     string
	Stages        []string
	KeyPrefix     string
	UploadBackend string
	S3Endpoint    string
	S3Region      string
	S3Bucket      string
	S3User        string
	S3Password    string
	UploadTimeout time.Duration
	LedgerDSN     string
	LogLevel      string

	// Files are positional arguments, added to the registry on start.
	Files []string
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.CipherMode = "aes-256-cbc"
	c.Salt = "attachkeeper"
	c.ChunkSize = 4 * 1024
	c.OutputDir = "encrypted"
	c.Stages = []string{"encrypt", "prepare", "upload"}
	c.KeyPrefix = "attachments"
	c.UploadBackend = "none"
	c.S3Endpoint = "http://127.0.0.1:9000/"
	c.S3Region = "us-east-1"
	c.S3Bucket = "attachments"
	c.UploadTimeout = 5 * time.Minute
	c.LedgerDSN = "attachkeeper.db"
	c.LogLevel = "info"
}

// LoadConfig constructs a Config, applies defaults, then overlays values from
// JSON (if present) and command-line flags (if present). Later sources take
// precedence over earlier ones. args excludes the program name.
func LoadConfig(args []string) (*Config, error) {
	cfg := &Config{}
	cfg.LoadDefaults()
	if err := parseJson(cfg, args); err != nil {
		return nil, fmt.Errorf("json config: %w", err)
	}
	if err := parseFlags(cfg, args); err != nil {
		return nil, fmt.Errorf("flags: %w", err)
	}
	return cfg, nil
}
