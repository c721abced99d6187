// Package chatdbtest builds small chat.db files for tests.
package chatdbtest

import (
	"database/sql"
	"path/filepath"
	"strconv"
	"testing"

	_ "github.com/mattn/go-sqlite3"
)

// schema is the subset of the Messages schema the extractor reads.
const schema = `
CREATE TABLE handle (
	ROWID INTEGER PRIMARY KEY AUTOINCREMENT UNIQUE,
	id TEXT NOT NULL,
	country TEXT,
	service TEXT NOT NULL,
	uncanonicalized_id TEXT
);
CREATE TABLE message (
	ROWID INTEGER PRIMARY KEY AUTOINCREMENT,
	guid TEXT UNIQUE NOT NULL,
	text TEXT,
	handle_id INTEGER DEFAULT 0,
	service TEXT,
	date INTEGER,
	is_from_me INTEGER DEFAULT 0,
	attributedBody BLOB
);
CREATE TABLE chat (
	ROWID INTEGER PRIMARY KEY AUTOINCREMENT,
	guid TEXT UNIQUE NOT NULL,
	chat_identifier TEXT,
	service_name TEXT
);
CREATE TABLE chat_handle_join (
	chat_id INTEGER REFERENCES chat (ROWID) ON DELETE CASCADE,
	handle_id INTEGER REFERENCES handle (ROWID) ON DELETE CASCADE,
	UNIQUE(chat_id, handle_id)
);
CREATE TABLE chat_message_join (
	chat_id INTEGER REFERENCES chat (ROWID) ON DELETE CASCADE,
	message_id INTEGER REFERENCES message (ROWID) ON DELETE CASCADE,
	message_date INTEGER DEFAULT 0,
	PRIMARY KEY (chat_id, message_id)
);`

// Message describes one message row. A nil Text stores NULL.
type Message struct {
	RowID    int64
	Text     *string
	Body     []byte
	HandleID int64
	FromMe   bool
	Date     int64
	Service  string
	ChatID   int64
}

// Fixture is a chat.db under construction in a test's temp dir.
type Fixture struct {
	Path string
	db   *sql.DB
	t    testing.TB
}

// New creates an empty chat.db.
func New(t testing.TB) *Fixture {
	t.Helper()
	path := filepath.Join(t.TempDir(), "chat.db")
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := db.Exec(schema); err != nil {
		t.Fatal(err)
	}
	f := &Fixture{Path: path, db: db, t: t}
	t.Cleanup(func() { _ = db.Close() })
	return f
}

// Str returns a pointer to s, for Message.Text.
func Str(s string) *string {
	return &s
}

// AddHandle inserts a handle row.
func (f *Fixture) AddHandle(rowID int64, address, service string) {
	f.t.Helper()
	f.exec(`INSERT INTO handle (ROWID, id, service) VALUES (?, ?, ?)`, rowID, address, service)
}

// AddChat inserts a chat and its participants.
func (f *Fixture) AddChat(rowID int64, identifier, service string, handleIDs ...int64) {
	f.t.Helper()
	f.exec(`INSERT INTO chat (ROWID, guid, chat_identifier, service_name) VALUES (?, ?, ?, ?)`,
		rowID, service+";-;"+identifier, identifier, service)
	for _, h := range handleIDs {
		f.exec(`INSERT INTO chat_handle_join (chat_id, handle_id) VALUES (?, ?)`, rowID, h)
	}
}

// AddMessage inserts a message row and, when ChatID is set, links it to the chat.
func (f *Fixture) AddMessage(m Message) {
	f.t.Helper()
	var text any
	if m.Text != nil {
		text = *m.Text
	}
	var body any
	if m.Body != nil {
		body = m.Body
	}
	f.exec(`INSERT INTO message (ROWID, guid, text, handle_id, service, date, is_from_me, attributedBody)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		m.RowID, "msg-"+strconv.FormatInt(m.RowID, 10), text, m.HandleID, m.Service, m.Date, m.FromMe, body)
	if m.ChatID != 0 {
		f.exec(`INSERT INTO chat_message_join (chat_id, message_id, message_date) VALUES (?, ?, ?)`, m.ChatID, m.RowID, m.Date)
	}
}

// Exec runs arbitrary SQL against the fixture, for schema edge cases.
func (f *Fixture) Exec(query string, args ...any) {
	f.t.Helper()
	f.exec(query, args...)
}

func (f *Fixture) exec(query string, args ...any) {
	f.t.Helper()
	if _, err := f.db.Exec(query, args...); err != nil {
		f.t.Fatalf("fixture exec %q: %v", query, err)
	}
}
