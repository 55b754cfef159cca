// Package config loads runtime configuration for the attach CLI.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional JSON file (see parseJson) selected via flags: -c or -config.
//  3. Command-line flags (see parseFlags), which override earlier values.
//
// # JSON schema
//
//	{
//	  "cipher_mode": "aes-256-cbc",
//	  "key_hex": "",
//	  "iv_hex": "",
//	  "salt": "attachkeeper",
//	  "chunk_size": 4096,
//	  "output_dir": "encrypted",
//	  "stages": ["encrypt", "prepare", "upload"],
//	  "key_prefix": "attachments",
//	  "upload_backend": "minio",
//	  "s3_endpoint": "http://127.0.0.1:9000/",
//	  "s3_region": "us-east-1",
//	  "s3_bucket": "attachments",
//	  "s3_user": "admin",
//	  "s3_password": "secretpassword",
//	  "upload_timeout": "5m",
//	  "ledger_dsn": "attachkeeper.db",
//	  "log_level": "info"
//	}
//
// Primary API
//
//   - type Config                           : holds all settings
//   - func LoadConfig(args) (*Config, error): defaults, then JSON, then flags
//   - func (*Config) LoadDefaults()         : sets sensible defaults
//
// Credentials for the S3 backends may also come from the environment; the
// attach command loads a .env file before reading the configuration.
package config
