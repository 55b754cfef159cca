// Package uploads provides the client-side persistence layer for the upload
// ledger: one row per attachment path that reached object storage.
//
// # Overview
//
// The package defines a Repository interface for recording, querying and
// forgetting Upload records. A SQLite-backed implementation (SQLiteRepository)
// persists data via a dbx.DBTX (*sql.DB or *sql.Tx).
//
// Typical Usage
//
//	repo := uploads.NewSQLiteRepository(db)
//	_ = repo.Record(ctx, upload)
//	u, _ := repo.GetByPath(ctx, "/photos/cat.jpg")
//	all, _ := repo.List(ctx)
//
// See also: internal/client/models.Upload for field semantics.
package uploads
