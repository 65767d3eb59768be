package db

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// Database manages the SQLite connection lifecycle: opening with WAL mode,
// running migrations, and graceful shutdown.
//
// Usage:
//
//	database, err := db.NewDatabase("data/library.db")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer database.Close()
//
//	repo := db.NewRepository(database)
type Database struct {
	db             *sql.DB
	path           string
	migrationsPath string
	mu             sync.RWMutex
}

// DatabaseConfig holds configuration for the Database.
type DatabaseConfig struct {
	// Path is the database file path
	Path string
	// MigrationsPath is the path to migrations directory (file:// URL format).
	// Default: "file://db/migrations"
	MigrationsPath string
	// ConnectionConfig allows customizing the SQLite connection
	ConnectionConfig *ConnectionConfig
}

// NewDatabase creates a Database with default configuration.
// The database file and its parent directories are created if missing.
func NewDatabase(path string) (*Database, error) {
	return NewDatabaseWithConfig(DatabaseConfig{Path: path})
}

// NewDatabaseWithConfig creates a Database with custom configuration.
func NewDatabaseWithConfig(config DatabaseConfig) (*Database, error) {
	if config.Path == "" {
		return nil, fmt.Errorf("database path is required")
	}

	dir := filepath.Dir(config.Path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory %s: %w", dir, err)
		}
	}

	var connConfig ConnectionConfig
	if config.ConnectionConfig != nil {
		connConfig = *config.ConnectionConfig
	} else {
		connConfig = DefaultConnectionConfig(config.Path)
	}

	conn, err := NewSQLiteConnection(connConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create database connection: %w", err)
	}

	migrationsPath := config.MigrationsPath
	if migrationsPath == "" {
		migrationsPath = "file://db/migrations"
	}

	return &Database{
		db:             conn,
		path:           config.Path,
		migrationsPath: migrationsPath,
	}, nil
}

// Migrate runs all pending database migrations. Safe to call multiple times.
//
// golang-migrate takes ownership of the connection it is given, so this uses
// the path-based runner which manages its own connection.
func (d *Database) Migrate() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if err := MigrateUpFromPath(d.path, d.migrationsPath); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	return nil
}

// DB returns the underlying sql.DB connection for use by repositories.
// Do not close it directly; use Database.Close instead.
func (d *Database) DB() *sql.DB {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.db
}

// Path returns the database file path.
func (d *Database) Path() string {
	return d.path
}

// Ping verifies the database connection is alive. Useful for health checks.
func (d *Database) Ping() error {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.db == nil {
		return fmt.Errorf("database connection is closed")
	}

	return d.db.Ping()
}

// Close gracefully closes the database connection.
// After Close is called, the Database instance should not be used.
func (d *Database) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.db == nil {
		return nil
	}

	if err := d.db.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}

	d.db = nil
	return nil
}
