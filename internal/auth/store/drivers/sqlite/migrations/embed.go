// Package migrations embeds the schema migration files so the binary can
// apply them on startup without shipping loose SQL alongside it.
package migrations

import "embed"

//go:embed *.sql
var Migrations embed.FS
