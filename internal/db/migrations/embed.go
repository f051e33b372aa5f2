// Package migrations holds the store's SQL migrations.
package migrations

import "embed"

// FS contains every NNN_name.sql migration in this directory.
//
//go:embed *.sql
var FS embed.FS
