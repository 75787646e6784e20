// Package migrations embeds the schema for each storage backend and applies
// it with golang-migrate.
//
// Each backend has its own directory of numbered up/down files. golang-migrate
// records the applied version in a schema_migrations table, so running Up on
// an already-migrated database is a no-op.
package migrations

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	pgmigrate "github.com/golang-migrate/migrate/v4/database/postgres"
	sqlitemigrate "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed sqlite/*.sql postgres/*.sql
var files embed.FS

// UpSQLite applies every pending SQLite migration to db.
//
// The migrate instance is not closed: closing it would close db, which
// belongs to the caller.
func UpSQLite(db *sql.DB) error {
	driver, err := sqlitemigrate.WithInstance(db, &sqlitemigrate.Config{})
	if err != nil {
		return fmt.Errorf("migrations: sqlite driver: %w", err)
	}
	return up("sqlite", driver)
}

// UpPostgres applies every pending Postgres migration to db.
func UpPostgres(db *sql.DB) error {
	driver, err := pgmigrate.WithInstance(db, &pgmigrate.Config{})
	if err != nil {
		return fmt.Errorf("migrations: postgres driver: %w", err)
	}
	return up("postgres", driver)
}

func up(dir string, driver database.Driver) error {
	src, err := iofs.New(files, dir)
	if err != nil {
		return fmt.Errorf("migrations: opening %s source: %w", dir, err)
	}
	defer src.Close()

	m, err := migrate.NewWithInstance("iofs", src, dir, driver)
	if err != nil {
		return fmt.Errorf("migrations: creating migrator: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migrations: applying %s: %w", dir, err)
	}
	return nil
}
