// Package migrations embeds the goose SQL migrations for the asset registry.
package migrations

import "embed"

//go:embed *.sql
var Migrations embed.FS
