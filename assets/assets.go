// Package assets embeds the schema used by test fixtures and examples.
package assets

import "embed"

const (
	SqliteMigrationDir   = "migrations/sqlite"
	MySQLMigrationDir    = "migrations/mysql"
	PostgresMigrationDir = "migrations/postgres"
)

//go:embed migrations/*
var EmbedMigrations embed.FS
