// Package migrations embeds the SQL applied to the postgres user store.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
