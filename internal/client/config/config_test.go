package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func defaults() *Config {
	c := &Config{}
	c.LoadDefaults()
	return c
}

func writeTempJSON(t *testing.T, data map[string]any) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "cfg.json")
	b, err := json.Marshal(data)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, b, 0o600))
	return path
}

func TestLoadDefaults(t *testing.T) {
	c := defaults()

	assert.Equal(t, "aes-256-cbc", c.CipherMode)
	assert.Equal(t, 4096, c.ChunkSize)
	assert.Equal(t, []string{"encrypt", "prepare", "upload"}, c.Stages)
	assert.Equal(t, "none", c.UploadBackend)
	assert.Equal(t, 5*time.Minute, c.UploadTimeout)
	assert.Empty(t, c.KeyHex)
	assert.Empty(t, c.Files)
}

func TestLoadConfig_NoArgs(t *testing.T) {
	cfg, err := LoadConfig(nil)
	require.NoError(t, err)
	assert.Empty(t, cmp.Diff(defaults(), cfg))
}

func TestParseFlags(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		expected func(c *Config)
		wantErr  bool
	}{
		{
			name: "cipher and storage flags",
			args: []string{"-m", "aes-128-cbc", "-k", "00ff", "-n", "1024", "-backend", "minio", "-b", "vault", "-u", "admin", "-p", "pw"},
			expected: func(c *Config) {
				c.CipherMode = "aes-128-cbc"
				c.KeyHex = "00ff"
				c.ChunkSize = 1024
				c.UploadBackend = "minio"
				c.S3Bucket = "vault"
				c.S3User = "admin"
				c.S3Password = "pw"
			},
		},
		{
			name: "stages, timeout and positional files",
			args: []string{"a.jpg", "-stages", "upload, prepare", "-timeout=30s", "b.pdf", "-db", "", "--", "-odd-name"},
			expected: func(c *Config) {
				c.Stages = []string{"upload", "prepare"}
				c.UploadTimeout = 30 * time.Second
				c.LedgerDSN = ""
				c.Files = []string{"a.jpg", "b.pdf", "-odd-name"}
			},
		},
		{
			name:     "config selector is not a file",
			args:     []string{"-c", "cfg.json", "x.txt"},
			expected: func(c *Config) { c.Files = []string{"x.txt"} },
		},
		{name: "bad chunk size", args: []string{"-n", "abc"}, wantErr: true},
		{name: "bad timeout", args: []string{"-timeout", "soon"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := defaults()
			err := parseFlags(cfg, tt.args)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)

			want := defaults()
			tt.expected(want)
			assert.Empty(t, cmp.Diff(want, cfg))
		})
	}
}

func TestParseJson(t *testing.T) {
	path := writeTempJSON(t, map[string]any{
		"cipher_mode":    "aes-192-cbc",
		"iv_hex":         "000102030405060708090a0b0c0d0e0f",
		"chunk_size":     8192,
		"stages":         []string{"encrypt"},
		"upload_backend": "s3-presigned",
		"s3_endpoint":    "http://minio:9000",
		"upload_timeout": "45s",
		"ledger_dsn":     "",
	})

	cfg := defaults()
	require.NoError(t, parseJson(cfg, []string{"-config", path}))

	want := defaults()
	want.CipherMode = "aes-192-cbc"
	want.IVHex = "000102030405060708090a0b0c0d0e0f"
	want.ChunkSize = 8192
	want.Stages = []string{"encrypt"}
	want.UploadBackend = "s3-presigned"
	want.S3Endpoint = "http://minio:9000"
	want.UploadTimeout = 45 * time.Second
	want.LedgerDSN = ""
	assert.Empty(t, cmp.Diff(want, cfg))
}

func TestParseJson_NoSelector(t *testing.T) {
	cfg := defaults()
	require.NoError(t, parseJson(cfg, []string{"file.txt"}))
	assert.Empty(t, cmp.Diff(defaults(), cfg))
}

func TestParseJson_Errors(t *testing.T) {
	cfg := defaults()
	require.Error(t, parseJson(cfg, []string{"-c", filepath.Join(t.TempDir(), "missing.json")}))

	bad := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte(`{ this is not valid json`), 0o600))
	require.Error(t, parseJson(cfg, []string{"-c", bad}))
}

func TestLoadConfig_FlagsOverrideJson(t *testing.T) {
	path := writeTempJSON(t, map[string]any{
		"s3_bucket": "from-json",
		"s3_region": "eu-west-1",
		"log_level": "debug",
	})

	cfg, err := LoadConfig([]string{"-c", path, "-b", "from-flag", "photo.png"})
	require.NoError(t, err)

	assert.Equal(t, "from-flag", cfg.S3Bucket)
	assert.Equal(t, "eu-west-1", cfg.S3Region)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, []string{"photo.png"}, cfg.Files)
}

func TestLoadConfig_Errors(t *testing.T) {
	_, err := LoadConfig([]string{"-c", filepath.Join(t.TempDir(), "missing.json")})
	require.Error(t, err)

	_, err = LoadConfig([]string{"-n", "many"})
	require.Error(t, err)
}
