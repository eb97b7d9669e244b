// Package migrations embeds the checkout schema for golang-migrate.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
