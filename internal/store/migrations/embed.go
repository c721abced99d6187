// Package migrations embeds the output database schema.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
