// Package migrations registers the schema migrations applied by pkg/db.
package migrations

import "github.com/uptrace/bun/migrate"

var Migrations = migrate.NewMigrations()
