package database

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed migrations
var migrationsFS embed.FS

// RunMigrations applies all pending schema migrations for the dialect.
// A separate connection is used because the migrate driver closes the
// connection it is handed.
func (db *DB) RunMigrations() error {
	m, err := db.newMigrate()
	if err != nil {
		return err
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return nil
}

// MigrationVersion returns the current schema version and whether the last
// migration left the schema dirty.
func (db *DB) MigrationVersion() (uint, bool, error) {
	m, err := db.newMigrate()
	if err != nil {
		return 0, false, err
	}
	defer m.Close()

	version, dirty, err := m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("failed to read migration version: %w", err)
	}
	return version, dirty, nil
}

func (db *DB) newMigrate() (*migrate.Migrate, error) {
	migrateDB, err := sql.Open(db.Dialect.DriverName(), db.dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open migration database: %w", err)
	}

	driver, err := db.Dialect.MigrationDriver(migrateDB)
	if err != nil {
		migrateDB.Close()
		return nil, fmt.Errorf("failed to create migration driver: %w", err)
	}

	source, err := iofs.New(migrationsFS, "migrations/"+db.Dialect.MigrationsSubdir())
	if err != nil {
		driver.Close()
		return nil, fmt.Errorf("failed to read embedded migrations: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", source, db.Dialect.DriverName(), driver)
	if err != nil {
		driver.Close()
		return nil, fmt.Errorf("failed to create migrate instance: %w", err)
	}
	return m, nil
}
