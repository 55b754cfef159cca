package uploads

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/attachkeeper/internal/client/models"
	"github.com/dmitrijs2005/attachkeeper/internal/common"
	"github.com/dmitrijs2005/attachkeeper/internal/dbx"
)

type SQLiteRepository struct {
	db dbx.DBTX
}

func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

const selectColumns = `path, local_path, storage_key, backend, bucket, etag, sha256, size, content_type, cipher_mode, cipher_iv, uploaded_at`

func (r *SQLiteRepository) Record(ctx context.Context, u *models.Upload) error {

	query := `INSERT INTO uploads (path, local_path, storage_key, backend, bucket, etag, sha256, size, content_type, cipher_mode, cipher_iv, uploaded_at)
			values (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(path) DO UPDATE SET local_path = excluded.local_path,
				storage_key = excluded.storage_key,
				backend = excluded.backend,
				bucket = excluded.bucket,
				etag = excluded.etag,
				sha256 = excluded.sha256,
				size = excluded.size,
				content_type = excluded.content_type,
				cipher_mode = excluded.cipher_mode,
				cipher_iv = excluded.cipher_iv,
				uploaded_at = excluded.uploaded_at
	`
	_, err := r.db.ExecContext(ctx, query, u.Path, u.LocalPath, u.StorageKey, u.Backend, u.Bucket, u.ETag, u.SHA256, u.Size,
		u.ContentType, u.CipherMode, u.CipherIV, u.UploadedAt.UTC().UnixMilli())
	if err != nil {
		return fmt.Errorf("failed to upsert upload: %w", err)
	}

	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanUpload(s scanner) (*models.Upload, error) {
	u := &models.Upload{}
	var uploadedAt int64
	if err := s.Scan(&u.Path, &u.LocalPath, &u.StorageKey, &u.Backend, &u.Bucket, &u.ETag, &u.SHA256, &u.Size,
		&u.ContentType, &u.CipherMode, &u.CipherIV, &uploadedAt); err != nil {
		return nil, err
	}
	u.UploadedAt = time.UnixMilli(uploadedAt).UTC()
	return u, nil
}

func (r *SQLiteRepository) GetByPath(ctx context.Context, path string) (*models.Upload, error) {

	query := `select ` + selectColumns + ` from uploads where path=?`
	u, err := scanUpload(r.db.QueryRowContext(ctx, query, path))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("upload %s: %w", path, common.ErrorNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get upload: %w", err)
	}

	return u, nil
}

// GetByLocalPath returns the newest upload whose sent file is localPath.
func (r *SQLiteRepository) GetByLocalPath(ctx context.Context, localPath string) (*models.Upload, error) {

	query := `select ` + selectColumns + ` from uploads where local_path=? order by uploaded_at desc limit 1`
	u, err := scanUpload(r.db.QueryRowContext(ctx, query, localPath))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("upload of %s: %w", localPath, common.ErrorNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get upload: %w", err)
	}

	return u, nil
}

func (r *SQLiteRepository) List(ctx context.Context) ([]*models.Upload, error) {

	query := `select ` + selectColumns + ` from uploads order by uploaded_at desc, path`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("error selecting uploads: %w", err)
	}
	defer rows.Close()

	var result []*models.Upload

	for rows.Next() {
		u, err := scanUpload(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, u)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}

func (r *SQLiteRepository) Delete(ctx context.Context, path string) error {

	result, err := r.db.ExecContext(ctx, `delete from uploads where path=?`, path)
	if err != nil {
		return fmt.Errorf("failed to delete upload: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return fmt.Errorf("upload %s: %w", path, common.ErrorNotFound)
	}

	return nil
}
