package store

import (
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/matheus3301/imsgx/internal/store/migrations"
)

// SchemaVersion is the migration version this build writes.
const SchemaVersion uint = 2

// MigrateResult reports the output schema before and after Migrate.
type MigrateResult struct {
	From    uint // 0 for a new output database
	Version uint
	Changed bool
}

// DirtySchemaError is returned when a previous migration stopped halfway.
// The output database must be removed or repaired by hand.
type DirtySchemaError struct {
	Version uint
}

func (e *DirtySchemaError) Error() string {
	return fmt.Sprintf("output schema is dirty at version %d; remove the output database and extract again", e.Version)
}

// Migrate brings conversation_clean and extraction_runs up to SchemaVersion.
func (db *DB) Migrate() (*MigrateResult, error) {
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

	from, dirty, err := m.Version()
	switch {
	case errors.Is(err, migrate.ErrNilVersion):
		from = 0
	case err != nil:
		return nil, fmt.Errorf("read schema version: %w", err)
	case dirty:
		return nil, &DirtySchemaError{Version: from}
	case from > SchemaVersion:
		return nil, fmt.Errorf("output schema version %d is newer than this build (%d)", from, SchemaVersion)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return nil, fmt.Errorf("migration up: %w", err)
	}

	version, _, err := m.Version()
	if err != nil {
		return nil, fmt.Errorf("read schema version: %w", err)
	}
	return &MigrateResult{From: from, Version: version, Changed: version != from}, nil
}
