// Package migrations embeds the SQL migrations for the local upload ledger.
package migrations

import "embed"

//go:embed *.sql
var Migrations embed.FS
