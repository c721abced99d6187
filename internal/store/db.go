// Package store owns the output database holding the extracted conversation.
package store

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

// DB wraps a SQLite connection to the output database.
type DB struct {
	*sql.DB
}

// outputDSN puts the output database in WAL mode so `imsgx browse` keeps
// reading the previous conversation while an extraction replaces it, and so
// the replace waits on a reader instead of failing with SQLITE_BUSY.
const outputDSN = "?_journal_mode=WAL&_busy_timeout=5000"

// Open connects to the output database at path, creating the file if needed.
func Open(path string) (*DB, error) {
	conn, err := sql.Open("sqlite3", path+outputDSN)
	if err != nil {
		return nil, fmt.Errorf("open output %s: %w", path, err)
	}
	if err := conn.Ping(); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open output %s: %w", path, err)
	}
	return &DB{conn}, nil
}

// OpenMigrated opens path and brings its schema up to date.
func OpenMigrated(path string) (*DB, *MigrateResult, error) {
	db, err := Open(path)
	if err != nil {
		return nil, nil, err
	}
	res, err := db.Migrate()
	if err != nil {
		_ = db.Close()
		return nil, nil, err
	}
	return db, res, nil
}
