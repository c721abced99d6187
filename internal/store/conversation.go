package store

import (
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

const recordColumns = `is_sent, message_text, utc_timestamp, formatted_date, service`

// ReplaceConversation swaps the contents of conversation_clean for records and
// logs run, all in one transaction. On success run gets its ID (a new UUID when
// empty), FinishedAt and Inserted. On error run is left untouched, nothing is
// applied and a *WriteFailureError is returned.
func (db *DB) ReplaceConversation(run *Run, records []ConversationRecord) error {
	if run == nil {
		return &WriteFailureError{Op: "record run", Err: errors.New("nil run")}
	}
	r := *run
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if r.FinishedAt.IsZero() {
		r.FinishedAt = time.Now()
	}
	r.Inserted = len(records)

	tx, err := db.Begin()
	if err != nil {
		return &WriteFailureError{Op: "begin tx", Err: err}
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec(`DELETE FROM conversation_clean`); err != nil {
		return &WriteFailureError{Op: "clear conversation_clean", Err: err}
	}

	stmt, err := tx.Prepare(`INSERT INTO conversation_clean (` + recordColumns + `) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return &WriteFailureError{Op: "prepare insert", Err: err}
	}
	defer func() { _ = stmt.Close() }()

	for i, r := range records {
		if _, err := stmt.Exec(r.IsSent, r.Text, r.Timestamp, r.FormattedDate, r.Service); err != nil {
			return &WriteFailureError{Op: fmt.Sprintf("insert record %d (row %d)", i, r.SourceRowID), Err: err}
		}
	}

	if _, err := tx.Exec(`
		INSERT INTO extraction_runs (id, term, source_path, handle_ids, inserted, skipped, started_at, finished_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.Term, r.SourcePath, joinIDs(r.HandleIDs), r.Inserted, r.Skipped,
		r.StartedAt.UnixMilli(), r.FinishedAt.UnixMilli()); err != nil {
		return &WriteFailureError{Op: "record run", Err: err}
	}

	if err := tx.Commit(); err != nil {
		return &WriteFailureError{Op: "commit", Err: err}
	}
	*run = r
	return nil
}

// ListConversation returns records oldest first. A limit <= 0 returns everything.
func (db *DB) ListConversation(limit, offset int) ([]ConversationRecord, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := db.Query(`
		SELECT `+recordColumns+`
		FROM conversation_clean
		ORDER BY utc_timestamp, rowid
		LIMIT ? OFFSET ?`, limit, offset)
	if err != nil {
		return nil, err
	}
	return scanRecords(rows)
}

// Range returns records with from <= utc_timestamp < to, oldest first. Bounds
// are in the native chat.db epoch.
func (db *DB) Range(from, to int64) ([]ConversationRecord, error) {
	rows, err := db.Query(`
		SELECT `+recordColumns+`
		FROM conversation_clean
		WHERE utc_timestamp >= ? AND utc_timestamp < ?
		ORDER BY utc_timestamp, rowid`, from, to)
	if err != nil {
		return nil, err
	}
	return scanRecords(rows)
}

// Recent returns the n newest records, newest first.
func (db *DB) Recent(n int) ([]ConversationRecord, error) {
	if n <= 0 {
		n = 5
	}
	rows, err := db.Query(`
		SELECT `+recordColumns+`
		FROM conversation_clean
		ORDER BY utc_timestamp DESC, rowid DESC
		LIMIT ?`, n)
	if err != nil {
		return nil, err
	}
	return scanRecords(rows)
}

// Count returns the number of records in conversation_clean.
func (db *DB) Count() (int, error) {
	var n int
	err := db.QueryRow(`SELECT COUNT(*) FROM conversation_clean`).Scan(&n)
	return n, err
}

// Summary counts records by direction and service.
func (db *DB) Summary() ([]ServiceCount, error) {
	rows, err := db.Query(`
		SELECT is_sent, COALESCE(service, ''), COUNT(*)
		FROM conversation_clean
		GROUP BY is_sent, service
		ORDER BY is_sent, service`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var counts []ServiceCount
	for rows.Next() {
		var c ServiceCount
		if err := rows.Scan(&c.IsSent, &c.Service, &c.Count); err != nil {
			return nil, err
		}
		counts = append(counts, c)
	}
	return counts, rows.Err()
}

func scanRecords(rows *sql.Rows) ([]ConversationRecord, error) {
	defer func() { _ = rows.Close() }()

	var records []ConversationRecord
	for rows.Next() {
		var r ConversationRecord
		var date, service sql.NullString
		if err := rows.Scan(&r.IsSent, &r.Text, &r.Timestamp, &date, &service); err != nil {
			return nil, err
		}
		r.FormattedDate = date.String
		r.Service = service.String
		records = append(records, r)
	}
	return records, rows.Err()
}

func joinIDs(ids []int64) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.FormatInt(id, 10)
	}
	return strings.Join(parts, ",")
}

func splitIDs(s string) ([]int64, error) {
	if s == "" {
		return nil, nil
	}
	parts := strings.Split(s, ",")
	ids := make([]int64, 0, len(parts))
	for _, p := range parts {
		id, err := strconv.ParseInt(p, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("parse handle id %q: %w", p, err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}
