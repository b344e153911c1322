package internal

import (
	"database/sql"
	"embed"
	"fmt"
	"sync"

	"github.com/pressly/goose/v3"
)

//go:embed migrations/sqlite/*.sql migrations/postgres/*.sql
var migrations embed.FS

// goose keeps its base FS and dialect in package state.
var migrateMu sync.Mutex

// RunMigrations brings the schema for driver ("sqlite" or "postgres") up to
// date. Already-applied migrations are skipped, so it is safe to run on
// every startup.
func RunMigrations(db *sql.DB, driver string) error {
	var dialect, dir string
	switch driver {
	case "sqlite":
		dialect, dir = "sqlite3", "migrations/sqlite"
	case "postgres":
		dialect, dir = "postgres", "migrations/postgres"
	default:
		return fmt.Errorf("unsupported database driver %q", driver)
	}

	migrateMu.Lock()
	defer migrateMu.Unlock()

	goose.SetBaseFS(migrations)
	goose.SetLogger(goose.NopLogger())

	if err := goose.SetDialect(dialect); err != nil {
		return err
	}

	return goose.Up(db, dir)
}
