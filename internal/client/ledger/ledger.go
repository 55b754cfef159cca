// Package ledger opens the local SQLite database that records finished
// uploads and applies its migrations.
package ledger

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dmitrijs2005/attachkeeper/internal/client/migrations"
	"github.com/dmitrijs2005/attachkeeper/internal/client/repositories/uploads"
	"github.com/dmitrijs2005/attachkeeper/internal/dbx"
	"github.com/pressly/goose/v3"

	_ "modernc.org/sqlite"
)

// Ledger bundles the database handle with the uploads repository.
type Ledger struct {
	db      *sql.DB
	Uploads uploads.Repository
}

func RunMigrations(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.Migrations)
	goose.SetLogger(goose.NopLogger())

	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("set goose dialect: %w", err)
	}

	return goose.UpContext(ctx, db, ".")
}

// Open connects to dsn and migrates it. SQLite allows one writer, so the
// pool is capped at a single connection; this also keeps ":memory:" usable.
func Open(ctx context.Context, dsn string) (*Ledger, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)

	if err := RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate ledger: %w", err)
	}

	return &Ledger{db: db, Uploads: uploads.NewSQLiteRepository(db)}, nil
}

func (l *Ledger) Close() error {
	return l.db.Close()
}

// Forget removes the rows for all paths, or none of them if any is missing.
func (l *Ledger) Forget(ctx context.Context, paths ...string) error {
	return dbx.WithTx(ctx, l.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := uploads.NewSQLiteRepository(tx)
		for _, p := range paths {
			if err := repo.Delete(ctx, p); err != nil {
				return err
			}
		}
		return nil
	})
}
