// Package migrations holds the SQLite schema of the library index.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
