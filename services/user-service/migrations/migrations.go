// Package migrations embeds the service's goose migration files so the
// binary can apply them at startup.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
