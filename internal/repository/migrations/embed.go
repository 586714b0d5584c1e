// Package migrations embeds the goose SQL migrations for each backend so the
// server applies them at startup without a filesystem path at runtime.
package migrations

import (
	"embed"
	"io/fs"
)

//go:embed sqlite/*.sql postgres/*.sql
var embedded embed.FS

// SQLite returns the migrations for the modernc.org/sqlite backend.
func SQLite() fs.FS { return sub("sqlite") }

// Postgres returns the migrations for the pgx backend.
func Postgres() fs.FS { return sub("postgres") }

func sub(dir string) fs.FS {
	f, err := fs.Sub(embedded, dir)
	if err != nil {
		// Only possible if the directory name above is wrong.
		panic("migrations: " + err.Error())
	}
	return f
}
