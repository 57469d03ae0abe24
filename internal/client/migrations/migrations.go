// Package migrations embeds the goose SQL migrations for the client's local
// database. The schema version is a single incrementing integer managed by
// goose; upgrades are create-if-missing and never destructive.
package migrations

import "embed"

//go:embed *.sql
var Migrations embed.FS
