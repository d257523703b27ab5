package migrations

import "github.com/uptrace/bun/migrate"

// Migrations is the ordered set applied by `quizroom migrate`.
var Migrations = migrate.NewMigrations()
