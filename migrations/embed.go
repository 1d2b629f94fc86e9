// Package migrations provides embedded migration SQL files for the report
// store. The SQL is the common subset of SQLite and PostgreSQL.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
