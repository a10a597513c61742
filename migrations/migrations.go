// Package migrations embeds the query-history schema.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
