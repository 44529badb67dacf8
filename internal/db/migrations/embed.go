// Package migrations embeds the goose SQL migrations for both graph sinks.
package migrations

import (
	"embed"
	"io/fs"
)

//go:embed postgres/*.sql sqlite/*.sql
var FS embed.FS

// Postgres returns the PostgreSQL migration set.
func Postgres() fs.FS {
	return sub("postgres")
}

// SQLite returns the SQLite migration set.
func SQLite() fs.FS {
	return sub("sqlite")
}

func sub(dir string) fs.FS {
	f, err := fs.Sub(FS, dir)
	if err != nil {
		// Only reachable if the embed pattern above changes.
		panic(err)
	}

	return f
}
