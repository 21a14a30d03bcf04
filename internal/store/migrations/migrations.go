// Package migrations embeds the schema migration files for the
// profile database.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
