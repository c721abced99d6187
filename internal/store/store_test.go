package store

import (
	"errors"
	"path/filepath"
	"slices"
	"testing"
	"time"
)

func testDB(t *testing.T) *DB {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	db, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := db.Migrate(); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func sampleRecords() []ConversationRecord {
	return []ConversationRecord{
		{IsSent: false, Text: "hey, are you around?", Timestamp: 100, FormattedDate: "2024-01-01 10:00:00", Service: "iMessage", SourceRowID: 1},
		{IsSent: true, Text: "Running late, pickup at 6", Timestamp: 200, FormattedDate: "2024-01-01 10:05:00", Service: "iMessage", SourceRowID: 2},
		{IsSent: false, Text: "ok see you", Timestamp: 200, FormattedDate: "2024-01-01 10:05:00", Service: "SMS", SourceRowID: 3},
		{IsSent: true, Text: "100% on time_ish", Timestamp: 300, FormattedDate: "2024-01-01 10:10:00", Service: "SMS", SourceRowID: 4},
	}
}

func texts(records []ConversationRecord) []string {
	out := make([]string, len(records))
	for i, r := range records {
		out[i] = r.Text
	}
	return out
}

func TestMigrate(t *testing.T) {
	db, err := Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = db.Close() })

	first, err := db.Migrate()
	if err != nil {
		t.Fatal(err)
	}
	if first.From != 0 || first.Version != SchemaVersion || !first.Changed {
		t.Errorf("first Migrate() = %+v, want 0 -> %d changed", first, SchemaVersion)
	}

	second, err := db.Migrate()
	if err != nil {
		t.Fatal(err)
	}
	if second.Changed || second.From != SchemaVersion {
		t.Errorf("second Migrate() = %+v, want no change", second)
	}
}

func TestMigrateDirtySchema(t *testing.T) {
	db := testDB(t)
	if _, err := db.Exec(`UPDATE schema_migrations SET dirty = 1`); err != nil {
		t.Fatal(err)
	}

	_, err := db.Migrate()
	var dirty *DirtySchemaError
	if !errors.As(err, &dirty) {
		t.Fatalf("Migrate() error = %v, want DirtySchemaError", err)
	}
	if dirty.Version != SchemaVersion {
		t.Errorf("dirty version = %d, want %d", dirty.Version, SchemaVersion)
	}
}

// TestConversationCleanColumns pins the column names downstream queries rely on.
func TestConversationCleanColumns(t *testing.T) {
	db := testDB(t)

	rows, err := db.Query(`SELECT name, type FROM pragma_table_info('conversation_clean') ORDER BY cid`)
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = rows.Close() }()

	var got []string
	for rows.Next() {
		var name, typ string
		if err := rows.Scan(&name, &typ); err != nil {
			t.Fatal(err)
		}
		got = append(got, name+" "+typ)
	}
	want := []string{
		"is_sent BOOLEAN",
		"message_text TEXT",
		"utc_timestamp INTEGER",
		"formatted_date TEXT",
		"service TEXT",
	}
	if !slices.Equal(got, want) {
		t.Errorf("columns = %v, want %v", got, want)
	}
}

func TestReplaceConversation(t *testing.T) {
	db := testDB(t)

	run := &Run{Term: "5550100", HandleIDs: []int64{1, 2}, Skipped: 1, StartedAt: time.Now()}
	if err := db.ReplaceConversation(run, sampleRecords()); err != nil {
		t.Fatal(err)
	}
	if run.ID == "" || run.Inserted != 4 {
		t.Errorf("run = %+v, want generated id and 4 inserted", run)
	}

	got, err := db.ListConversation(0, 0)
	if err != nil {
		t.Fatal(err)
	}
	want := texts(sampleRecords())
	if !slices.Equal(texts(got), want) {
		t.Errorf("ListConversation() = %v, want %v", texts(got), want)
	}
	if !got[1].IsSent || got[1].Timestamp != 200 || got[1].Service != "iMessage" {
		t.Errorf("record 1 = %+v", got[1])
	}
}

func TestReplaceConversationIsIdempotent(t *testing.T) {
	db := testDB(t)

	for range 3 {
		if err := db.ReplaceConversation(&Run{Term: "x"}, sampleRecords()); err != nil {
			t.Fatal(err)
		}
	}
	n, err := db.Count()
	if err != nil {
		t.Fatal(err)
	}
	if n != 4 {
		t.Errorf("count after three replaces = %d, want 4", n)
	}

	if err := db.ReplaceConversation(&Run{Term: "x"}, nil); err != nil {
		t.Fatal(err)
	}
	if n, _ := db.Count(); n != 0 {
		t.Errorf("count after empty replace = %d, want 0", n)
	}
}

func TestReplaceConversationFailureKeepsPrior(t *testing.T) {
	db := testDB(t)

	if err := db.ReplaceConversation(&Run{Term: "first"}, sampleRecords()); err != nil {
		t.Fatal(err)
	}
	first, err := db.LatestRun()
	if err != nil {
		t.Fatal(err)
	}

	// The third record violates the non-empty text check after two rows are written.
	bad := []ConversationRecord{
		{Text: "new one", Timestamp: 1},
		{Text: "new two", Timestamp: 2},
		{Text: "", Timestamp: 3, SourceRowID: 99},
	}
	second := &Run{Term: "second"}
	err = db.ReplaceConversation(second, bad)
	var wf *WriteFailureError
	if !errors.As(err, &wf) {
		t.Fatalf("expected WriteFailureError, got %T: %v", err, err)
	}
	if second.ID != "" || second.Inserted != 0 || !second.FinishedAt.IsZero() {
		t.Errorf("failed replace filled in the caller's run: %+v", second)
	}

	got, err := db.ListConversation(0, 0)
	if err != nil {
		t.Fatal(err)
	}
	if !slices.Equal(texts(got), texts(sampleRecords())) {
		t.Errorf("prior output changed after failed replace: %v", texts(got))
	}
	latest, err := db.LatestRun()
	if err != nil {
		t.Fatal(err)
	}
	if latest == nil || latest.ID != first.ID {
		t.Errorf("failed replace recorded a run: %+v", latest)
	}
}

func TestReplaceConversationNilRun(t *testing.T) {
	db := testDB(t)
	if err := db.ReplaceConversation(&Run{Term: "first"}, sampleRecords()); err != nil {
		t.Fatal(err)
	}

	err := db.ReplaceConversation(nil, nil)
	var wf *WriteFailureError
	if !errors.As(err, &wf) {
		t.Fatalf("ReplaceConversation(nil) error = %v, want WriteFailureError", err)
	}
	if n, _ := db.Count(); n != 4 {
		t.Errorf("count after nil run = %d, want 4", n)
	}
}

func TestReaderSeesPriorConversationDuringReplace(t *testing.T) {
	path := filepath.Join(t.TempDir(), "conversation.db")
	writer, _, err := OpenMigrated(path)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = writer.Close() })
	if err := writer.ReplaceConversation(&Run{Term: "first"}, sampleRecords()); err != nil {
		t.Fatal(err)
	}

	var mode string
	if err := writer.QueryRow(`PRAGMA journal_mode`).Scan(&mode); err != nil {
		t.Fatal(err)
	}
	if mode != "wal" {
		t.Errorf("journal_mode = %q, want wal", mode)
	}

	reader, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = reader.Close() })

	tx, err := writer.Begin()
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = tx.Rollback() }()
	if _, err := tx.Exec(`DELETE FROM conversation_clean`); err != nil {
		t.Fatal(err)
	}

	got, err := reader.ListConversation(0, 0)
	if err != nil {
		t.Fatalf("read during replace: %v", err)
	}
	if !slices.Equal(texts(got), texts(sampleRecords())) {
		t.Errorf("reader saw %v during an uncommitted replace", texts(got))
	}
}

func TestRange(t *testing.T) {
	db := testDB(t)
	if err := db.ReplaceConversation(&Run{Term: "x"}, sampleRecords()); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name     string
		from, to int64
		want     int
	}{
		{"all", 0, 1000, 4},
		{"inclusive start", 200, 201, 2},
		{"exclusive end", 100, 200, 1},
		{"empty", 400, 500, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := db.Range(tt.from, tt.to)
			if err != nil {
				t.Fatal(err)
			}
			if len(got) != tt.want {
				t.Errorf("Range(%d, %d) = %d records, want %d", tt.from, tt.to, len(got), tt.want)
			}
		})
	}
}

func TestRecent(t *testing.T) {
	db := testDB(t)
	if err := db.ReplaceConversation(&Run{Term: "x"}, sampleRecords()); err != nil {
		t.Fatal(err)
	}

	got, err := db.Recent(2)
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"100% on time_ish", "ok see you"}
	if !slices.Equal(texts(got), want) {
		t.Errorf("Recent(2) = %v, want %v", texts(got), want)
	}
}

func TestSummary(t *testing.T) {
	db := testDB(t)
	if err := db.ReplaceConversation(&Run{Term: "x"}, sampleRecords()); err != nil {
		t.Fatal(err)
	}

	got, err := db.Summary()
	if err != nil {
		t.Fatal(err)
	}
	want := []ServiceCount{
		{IsSent: false, Service: "SMS", Count: 1},
		{IsSent: false, Service: "iMessage", Count: 1},
		{IsSent: true, Service: "SMS", Count: 1},
		{IsSent: true, Service: "iMessage", Count: 1},
	}
	if !slices.Equal(got, want) {
		t.Errorf("Summary() = %+v, want %+v", got, want)
	}
}

func TestSearch(t *testing.T) {
	db := testDB(t)
	if err := db.ReplaceConversation(&Run{Term: "x"}, sampleRecords()); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		keyword string
		want    []string
	}{
		{"PICKUP", []string{"Running late, pickup at 6"}},
		{"you", []string{"hey, are you around?", "ok see you"}},
		{"100%", []string{"100% on time_ish"}},
		{"%", []string{"100% on time_ish"}},
		{"e_i", []string{"100% on time_ish"}},
		{"nothing here", nil},
	}
	for _, tt := range tests {
		t.Run(tt.keyword, func(t *testing.T) {
			got, err := db.Search(tt.keyword, 10)
			if err != nil {
				t.Fatal(err)
			}
			if !slices.Equal(texts(got), tt.want) {
				t.Errorf("Search(%q) = %v, want %v", tt.keyword, texts(got), tt.want)
			}
		})
	}
}

func TestLatestRun(t *testing.T) {
	db := testDB(t)

	run, err := db.LatestRun()
	if err != nil {
		t.Fatal(err)
	}
	if run != nil {
		t.Fatalf("expected nil run on fresh db, got %+v", run)
	}

	started := time.UnixMilli(1_700_000_000_000)
	in := &Run{Term: "jane@example.com", SourcePath: "/tmp/chat.db", HandleIDs: []int64{3, 7}, Skipped: 2,
		StartedAt: started, FinishedAt: started.Add(time.Second)}
	if err := db.ReplaceConversation(in, sampleRecords()[:1]); err != nil {
		t.Fatal(err)
	}

	run, err = db.LatestRun()
	if err != nil {
		t.Fatal(err)
	}
	if run == nil || run.ID != in.ID || run.Term != in.Term || run.SourcePath != in.SourcePath {
		t.Fatalf("LatestRun() = %+v, want %+v", run, in)
	}
	if !slices.Equal(run.HandleIDs, []int64{3, 7}) || run.Inserted != 1 || run.Skipped != 2 {
		t.Errorf("LatestRun() = %+v", run)
	}
	if !run.StartedAt.Equal(started) {
		t.Errorf("StartedAt = %v, want %v", run.StartedAt, started)
	}
}
