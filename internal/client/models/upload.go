// Package models defines the records the attach CLI keeps locally.
package models

import "time"

// Upload is one stored attachment as recorded in the local ledger.
// Path is the original attachment path and is unique. LocalPath is the file
// that was actually sent, usually the encrypted copy.
//
// CipherMode and CipherIV (hex) are what that copy was encrypted with. Both
// are empty when the pipeline ran without encryption.
type Upload struct {
	Path        string
	LocalPath   string
	StorageKey  string
	Backend     string
	Bucket      string
	ETag        string
	SHA256      string
	Size        int64
	ContentType string
	CipherMode  string
	CipherIV    string
	UploadedAt  time.Time
}
