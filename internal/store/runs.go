package store

import (
	"database/sql"
	"time"
)

// LatestRun returns the most recently finished run, or nil when none exist.
func (db *DB) LatestRun() (*Run, error) {
	var r Run
	var handleIDs string
	var started, finished int64
	err := db.QueryRow(`
		SELECT id, term, source_path, handle_ids, inserted, skipped, started_at, finished_at
		FROM extraction_runs
		ORDER BY finished_at DESC, rowid DESC
		LIMIT 1`).
		Scan(&r.ID, &r.Term, &r.SourcePath, &handleIDs, &r.Inserted, &r.Skipped, &started, &finished)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if r.HandleIDs, err = splitIDs(handleIDs); err != nil {
		return nil, err
	}
	r.StartedAt = time.UnixMilli(started)
	r.FinishedAt = time.UnixMilli(finished)
	return &r, nil
}
