// Package migrations embeds the goose migrations for every SQL cache backend.
package migrations

import "embed"

// FS holds postgres/*.sql and sqlite/*.sql.
//
//go:embed postgres/*.sql sqlite/*.sql
var FS embed.FS

// Directories inside FS, one per goose dialect.
const (
	PostgresDir = "postgres"
	SQLiteDir   = "sqlite"
)
