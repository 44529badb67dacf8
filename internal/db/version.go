package db

import (
	"io/fs"

	"github.com/wikiroute/wikiroute/internal/db/migrations"
)

// SchemaVersion returns the number of SQL migration files in fsys, which
// equals the schema version a sink reaches after RunMigrations.
func SchemaVersion(fsys fs.FS) int {
	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return 0
	}

	count := 0
	for _, e := range entries {
		if !e.IsDir() {
			count++
		}
	}

	return count
}

// PostgresSchemaVersion is SchemaVersion of the embedded PostgreSQL set.
func PostgresSchemaVersion() int { return SchemaVersion(migrations.Postgres()) }

// SQLiteSchemaVersion is SchemaVersion of the embedded SQLite set.
func SQLiteSchemaVersion() int { return SchemaVersion(migrations.SQLite()) }
