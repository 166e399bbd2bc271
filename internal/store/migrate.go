package store

import (
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/matheus3301/wppbridge/internal/store/migrations"
)

// MigrateResult describes the schema after Migrate.
type MigrateResult struct {
	Version uint
	Changed bool
}

// DirtySchemaError means a previous migration stopped half way. The schema
// has to be repaired by hand before the instance can start again.
type DirtySchemaError struct {
	Version uint
}

func (e *DirtySchemaError) Error() string {
	return fmt.Sprintf("schema version %d is dirty: a previous migration failed", e.Version)
}

func (db *DB) migrator() (*migrate.Migrate, error) {
	source, err := iofs.New(migrations.FS, ".")
	if err != nil {
		return nil, fmt.Errorf("migration source: %w", err)
	}
	driver, err := sqlite3.WithInstance(db.DB, &sqlite3.Config{})
	if err != nil {
		return nil, fmt.Errorf("migration driver: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", source, "sqlite3", driver)
	if err != nil {
		return nil, fmt.Errorf("migration instance: %w", err)
	}
	return m, nil
}

// SchemaVersion reports the applied migration version, 0 on a fresh file.
func (db *DB) SchemaVersion() (uint, error) {
	m, err := db.migrator()
	if err != nil {
		return 0, err
	}
	version, dirty, err := m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	if dirty {
		return version, &DirtySchemaError{Version: version}
	}
	return version, nil
}

// Migrate applies the embedded migrations that are not applied yet.
func (db *DB) Migrate() (*MigrateResult, error) {
	before, err := db.SchemaVersion()
	if err != nil {
		return nil, err
	}
	m, err := db.migrator()
	if err != nil {
		return nil, err
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return nil, fmt.Errorf("migration up: %w", err)
	}
	after, err := db.SchemaVersion()
	if err != nil {
		return nil, err
	}
	return &MigrateResult{Version: after, Changed: after != before}, nil
}

// OpenMigrated opens the database at path and brings its schema up to date.
func OpenMigrated(path string) (*DB, *MigrateResult, error) {
	db, err := Open(path)
	if err != nil {
		return nil, nil, err
	}
	result, err := db.Migrate()
	if err != nil {
		_ = db.Close()
		return nil, nil, err
	}
	return db, result, nil
}
