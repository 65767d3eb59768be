package db

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	_ "github.com/golang-migrate/migrate/v4/source/file" // File source driver
)

// MigrateUp applies all pending up migrations.
// Returns nil if there are no pending migrations.
//
// IMPORTANT: the migrator takes ownership of the database connection and
// closes it when complete. Do not use the connection afterwards.
func MigrateUp(db *sql.DB, migrationsPath string) error {
	m, err := newMigrator(db, migrationsPath)
	if err != nil {
		return fmt.Errorf("failed to create migrator: %w", err)
	}
	defer m.Close()

	if err := m.Up(); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			// No pending migrations is not an error
			return nil
		}
		return fmt.Errorf("failed to apply migrations: %w", err)
	}

	return nil
}

// MigrateUpFromPath applies all pending migrations using a database path.
// This is the recommended entry point as it manages its own connection
// lifecycle.
//
// Example:
//
//	err := db.MigrateUpFromPath("data/library.db", "file://db/migrations")
func MigrateUpFromPath(dbPath, migrationsPath string) error {
	conn, err := NewSQLiteConnectionWithDefaults(dbPath)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	// No defer: MigrateUp closes the connection via migrator.Close()

	return MigrateUp(conn, migrationsPath)
}

// MigrateDown rolls back migrations by the specified number of steps.
// Pass -1 to roll back all migrations.
//
// IMPORTANT: the migrator takes ownership of the database connection and
// closes it when complete.
func MigrateDown(db *sql.DB, migrationsPath string, steps int) error {
	m, err := newMigrator(db, migrationsPath)
	if err != nil {
		return fmt.Errorf("failed to create migrator: %w", err)
	}
	defer m.Close()

	var migrateErr error
	if steps == -1 {
		migrateErr = m.Down()
	} else {
		migrateErr = m.Steps(-steps)
	}

	if migrateErr != nil {
		if errors.Is(migrateErr, migrate.ErrNoChange) {
			return nil
		}
		return fmt.Errorf("failed to roll back migrations: %w", migrateErr)
	}

	return nil
}

// GetMigrationVersionFromPath returns the current migration version and dirty
// state. Returns version=0 and dirty=false if no migrations have been applied.
func GetMigrationVersionFromPath(dbPath, migrationsPath string) (uint, bool, error) {
	conn, err := NewSQLiteConnectionWithDefaults(dbPath)
	if err != nil {
		return 0, false, fmt.Errorf("failed to open database: %w", err)
	}

	m, err := newMigrator(conn, migrationsPath)
	if err != nil {
		return 0, false, fmt.Errorf("failed to create migrator: %w", err)
	}
	defer m.Close()

	version, dirty, err := m.Version()
	if err != nil {
		if errors.Is(err, migrate.ErrNilVersion) {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("failed to get migration version: %w", err)
	}

	return version, dirty, nil
}

// newMigrator creates a migrate.Migrate instance for the given database.
//
// Note: the returned migrator takes ownership of the database connection.
// When migrator.Close() is called, the connection is also closed.
func newMigrator(db *sql.DB, migrationsPath string) (*migrate.Migrate, error) {
	if db == nil {
		return nil, errors.New("database connection is required")
	}
	if migrationsPath == "" {
		return nil, errors.New("migrations path is required")
	}

	driver, err := sqlite.WithInstance(db, &sqlite.Config{
		DatabaseName: "main",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create sqlite driver: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance(migrationsPath, "sqlite", driver)
	if err != nil {
		return nil, fmt.Errorf("failed to create migrate instance: %w", err)
	}

	return m, nil
}
