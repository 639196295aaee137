// Package migrations holds the tile store schema.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
