// Package migrations compiles the schema migration files into the
// binary so a deployed controller never depends on loose .sql files.
package migrations

import (
	"embed"

	"github.com/norian27/Smart-Greenhouse-System/internal/infrastructure/database"
)

//go:embed *.sql
var migrationsFS embed.FS

func init() {
	database.MigrationsFS = migrationsFS
	database.MigrationsDir = "."
}
