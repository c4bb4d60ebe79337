package migrations

import "github.com/uptrace/bun/migrate"

// Migrations holds the schema for content documents and request logs.
var Migrations = migrate.NewMigrations()
