package config

import (
	"flag"
	"io"
	"strings"

	"github.com/dmitrijs2005/attachkeeper/internal/flagx"
)

// valueFlags lists every flag that takes a value, including the JSON config
// selectors, so that flagx.Positional can skip their values.
var valueFlags = []string{
	"-c", "-config",
	"-m", "-k", "-iv", "-salt", "-n", "-o", "-stages", "-prefix",
	"-backend", "-e", "-g", "-b", "-u", "-p", "-timeout", "-db", "-log",
}

// parseFlags populates Config fields from command-line flags.
//
// Supported flags:
//
//	-m string        cipher mode
//	-k string        key (hex)
//	-iv string       IV (hex)
//	-salt string     passphrase salt
//	-n int           chunk size in bytes
//	-o string        output dir for encrypted files
//	-stages string   comma separated stages
//	-prefix string   storage key prefix
//	-backend string  upload backend
//	-e string        S3 base endpoint (e.g., "http://127.0.0.1:9000/")
//	-g string        S3 region
//	-b string        S3 bucket name
//	-u string        S3 user
//	-p string        S3 password
//	-timeout dur     upload timeout (e.g., 30s)
//	-db string       ledger DSN, "" disables the ledger
//	-log string      log level
//
// Remaining positional arguments become Config.Files.
func parseFlags(cfg *Config, args []string) error {
	files := flagx.Positional(args, valueFlags)
	args = flagx.FilterArgs(args, valueFlags[2:])

	fs := flag.NewFlagSet("attach", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	fs.StringVar(&cfg.CipherMode, "m", cfg.CipherMode, "cipher mode")
	fs.StringVar(&cfg.KeyHex, "k", cfg.KeyHex, "key (hex)")
	fs.StringVar(&cfg.IVHex, "iv", cfg.IVHex, "IV (hex)")
	fs.StringVar(&cfg.Salt, "salt", cfg.Salt, "passphrase salt")
	fs.IntVar(&cfg.ChunkSize, "n", cfg.ChunkSize, "chunk size in bytes")
	fs.StringVar(&cfg.OutputDir, "o", cfg.OutputDir, "output dir for encrypted files")
	stages := fs.String("stages", strings.Join(cfg.Stages, ","), "comma separated stages")
	fs.StringVar(&cfg.KeyPrefix, "prefix", cfg.KeyPrefix, "storage key prefix")
	fs.StringVar(&cfg.UploadBackend, "backend", cfg.UploadBackend, "upload backend")
	fs.StringVar(&cfg.S3Endpoint, "e", cfg.S3Endpoint, "S3 base endpoint")
	fs.StringVar(&cfg.S3Region, "g", cfg.S3Region, "S3 region")
	fs.StringVar(&cfg.S3Bucket, "b", cfg.S3Bucket, "S3 bucket")
	fs.StringVar(&cfg.S3User, "u", cfg.S3User, "S3 user")
	fs.StringVar(&cfg.S3Password, "p", cfg.S3Password, "S3 password")
	fs.DurationVar(&cfg.UploadTimeout, "timeout", cfg.UploadTimeout, "upload timeout")
	fs.StringVar(&cfg.LedgerDSN, "db", cfg.LedgerDSN, "ledger DSN")
	fs.StringVar(&cfg.LogLevel, "log", cfg.LogLevel, "log level")

	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg.Stages = flagx.SplitList(*stages)
	if len(files) > 0 {
		cfg.Files = files
	}
	return nil
}
