package uploads

import (
	"context"

	"github.com/dmitrijs2005/attachkeeper/internal/client/models"
)

// Repository describes the operations on Upload records.
type Repository interface {
	// Record inserts the upload or replaces the row with the same path.
	Record(ctx context.Context, u *models.Upload) error

	// GetByPath returns the upload for path, or common.ErrorNotFound.
	GetByPath(ctx context.Context, path string) (*models.Upload, error)

	// GetByLocalPath returns the newest upload that sent localPath, or
	// common.ErrorNotFound.
	GetByLocalPath(ctx context.Context, localPath string) (*models.Upload, error)

	// List returns all uploads, newest first.
	List(ctx context.Context) ([]*models.Upload, error)

	// Delete removes the row for path, or returns common.ErrorNotFound.
	Delete(ctx context.Context, path string) error
}
