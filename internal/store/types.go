package store

import (
	"fmt"
	"time"
)

// ConversationRecord is one row of conversation_clean.
type ConversationRecord struct {
	IsSent        bool   `json:"is_sent"`
	Text          string `json:"message_text"`
	Timestamp     int64  `json:"utc_timestamp"` // native chat.db epoch, unchanged
	FormattedDate string `json:"formatted_date"`
	Service       string `json:"service"`
	SourceRowID   int64  `json:"-"` // message ROWID in chat.db; not persisted
}

// Run is one extraction, recorded alongside the records it wrote.
type Run struct {
	ID         string    `json:"id"`
	Term       string    `json:"term"`
	SourcePath string    `json:"source_path"`
	HandleIDs  []int64   `json:"handle_ids"`
	Inserted   int       `json:"inserted"`
	Skipped    int       `json:"skipped"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
}

// ServiceCount is a row of the per-direction, per-service summary.
type ServiceCount struct {
	IsSent  bool   `json:"is_sent"`
	Service string `json:"service"`
	Count   int    `json:"count"`
}

// WriteFailureError reports that the output could not be replaced. The
// previous contents of conversation_clean are left as they were.
type WriteFailureError struct {
	Op  string
	Err error
}

func (e *WriteFailureError) Error() string {
	return fmt.Sprintf("replace conversation: %s: %v", e.Op, e.Err)
}

func (e *WriteFailureError) Unwrap() error {
	return e.Err
}
