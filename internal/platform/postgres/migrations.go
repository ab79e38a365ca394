package postgres

import "embed"

// Migrations holds the embedded goose migrations for the content schema.
//
//go:embed migrations/*.sql
var Migrations embed.FS
