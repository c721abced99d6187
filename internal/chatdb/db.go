// Package chatdb reads handles and messages from a Messages chat.db, read-only.
package chatdb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"strings"

	_ "github.com/mattn/go-sqlite3"
)

// StoreUnavailableError is returned when the source database cannot be opened or read.
type StoreUnavailableError struct {
	Path string
	Err  error
}

func (e *StoreUnavailableError) Error() string {
	return fmt.Sprintf("message store %s unavailable: %v", e.Path, e.Err)
}

func (e *StoreUnavailableError) Unwrap() error {
	return e.Err
}

// DB is a read-only connection to chat.db.
type DB struct {
	*sql.DB
	path string
}

// Open opens path read-only and checks that it holds the message and handle tables.
func Open(path string) (*DB, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, &StoreUnavailableError{Path: path, Err: err}
	}
	if info.IsDir() {
		return nil, &StoreUnavailableError{Path: path, Err: errors.New("is a directory")}
	}

	db, err := sql.Open("sqlite3", "file:"+path+"?mode=ro&_busy_timeout=5000&_query_only=true")
	if err != nil {
		return nil, &StoreUnavailableError{Path: path, Err: err}
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, &StoreUnavailableError{Path: path, Err: err}
	}

	var tables int
	err = db.QueryRow(`SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name IN ('message', 'handle')`).Scan(&tables)
	if err == nil && tables != 2 {
		err = errors.New("message or handle table missing")
	}
	if err != nil {
		_ = db.Close()
		return nil, &StoreUnavailableError{Path: path, Err: err}
	}
	return &DB{DB: db, path: path}, nil
}

// Path returns the file the DB was opened from.
func (db *DB) Path() string {
	return db.path
}

// Handles returns every handle with the number of messages it authored, by row id.
func (db *DB) Handles(ctx context.Context) ([]Handle, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT h.ROWID, COALESCE(h.id, ''), COALESCE(h.service, ''), COUNT(m.ROWID)
		FROM handle h
		LEFT JOIN message m ON m.handle_id = h.ROWID
		GROUP BY h.ROWID
		ORDER BY h.ROWID`)
	if err != nil {
		return nil, db.unavailable(err)
	}
	defer func() { _ = rows.Close() }()

	var handles []Handle
	for rows.Next() {
		var h Handle
		var service string
		if err := rows.Scan(&h.RowID, &h.Address, &service, &h.MessageCount); err != nil {
			return nil, db.unavailable(err)
		}
		h.Service = ParseService(service)
		handles = append(handles, h)
	}
	if err := rows.Err(); err != nil {
		return nil, db.unavailable(err)
	}
	return handles, nil
}

// MessagesForHandles returns messages authored by any of the handles, plus every
// message in a chat one of them participates in, ordered by date then row id.
// A message that sits in several chats may appear once per chat.
func (db *DB) MessagesForHandles(ctx context.Context, handleIDs []int64) ([]Message, error) {
	if len(handleIDs) == 0 {
		return nil, nil
	}
	in := placeholders(len(handleIDs))
	q := fmt.Sprintf(`
		SELECT DISTINCT m.ROWID, m.text, m.attributedBody, m.handle_id, m.is_from_me, m.date,
			COALESCE(NULLIF(h.service, ''), NULLIF(c.service_name, ''), NULLIF(m.service, ''), '')
		FROM message m
		LEFT JOIN handle h ON h.ROWID = m.handle_id
		LEFT JOIN chat_message_join cmj ON cmj.message_id = m.ROWID
		LEFT JOIN chat c ON c.ROWID = cmj.chat_id
		WHERE m.handle_id IN (%[1]s)
			OR cmj.chat_id IN (SELECT chat_id FROM chat_handle_join WHERE handle_id IN (%[1]s))
		ORDER BY m.date, m.ROWID`, in)

	args := make([]any, 0, 2*len(handleIDs))
	for range 2 {
		for _, id := range handleIDs {
			args = append(args, id)
		}
	}

	rows, err := db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, db.unavailable(err)
	}
	defer func() { _ = rows.Close() }()

	var msgs []Message
	for rows.Next() {
		var m Message
		var date sql.NullInt64
		var service string
		if err := rows.Scan(&m.RowID, &m.Text, &m.AttributedBody, &m.HandleID, &m.IsFromMe, &date, &service); err != nil {
			return nil, db.unavailable(err)
		}
		m.Date = date.Int64
		m.Service = ParseService(service)
		msgs = append(msgs, m)
	}
	if err := rows.Err(); err != nil {
		return nil, db.unavailable(err)
	}
	return msgs, nil
}

func (db *DB) unavailable(err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return &StoreUnavailableError{Path: db.path, Err: err}
}

func placeholders(count int) string {
	if count <= 0 {
		return ""
	}
	return strings.TrimRight(strings.Repeat("?,", count), ",")
}
