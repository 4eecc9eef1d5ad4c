// Package migrations holds the versioned schema of the quiz database.
package migrations

import (
	"github.com/uptrace/bun/migrate"
)

var Migrations = migrate.NewMigrations()
