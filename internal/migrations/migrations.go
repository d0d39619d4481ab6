// Package migrations embeds the goose SQL migrations shared by the client
// and agent databases.
package migrations

import "embed"

// Migrations holds the *.sql files applied by dbx.RunMigrations.
//
//go:embed *.sql
var Migrations embed.FS
