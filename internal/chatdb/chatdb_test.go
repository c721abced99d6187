package chatdb

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/matheus3301/imsgx/internal/chatdb/chatdbtest"
)

func TestOpenMissingFile(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "nope.db"))
	var unavailable *StoreUnavailableError
	if !errors.As(err, &unavailable) {
		t.Fatalf("expected StoreUnavailableError, got %T: %v", err, err)
	}
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("error should wrap os.ErrNotExist: %v", err)
	}
}

func TestOpenDirectory(t *testing.T) {
	_, err := Open(t.TempDir())
	var unavailable *StoreUnavailableError
	if !errors.As(err, &unavailable) {
		t.Fatalf("expected StoreUnavailableError, got %T: %v", err, err)
	}
}

func TestOpenWrongSchema(t *testing.T) {
	f := chatdbtest.New(t)
	f.Exec(`DROP TABLE handle`)

	_, err := Open(f.Path)
	var unavailable *StoreUnavailableError
	if !errors.As(err, &unavailable) {
		t.Fatalf("expected StoreUnavailableError, got %T: %v", err, err)
	}
}

func TestOpenIsReadOnly(t *testing.T) {
	f := chatdbtest.New(t)
	db, err := Open(f.Path)
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = db.Close() }()

	if _, err := db.Exec(`INSERT INTO handle (id, service) VALUES ('x', 'SMS')`); err == nil {
		t.Error("write through read-only connection should fail")
	}
}

func TestHandlesWithCounts(t *testing.T) {
	f := chatdbtest.New(t)
	f.AddHandle(1, "+1-555-0100", "iMessage")
	f.AddHandle(2, "5550100", "SMS")
	f.AddMessage(chatdbtest.Message{RowID: 10, Text: chatdbtest.Str("a"), HandleID: 1, Date: 1})
	f.AddMessage(chatdbtest.Message{RowID: 11, Text: chatdbtest.Str("b"), HandleID: 1, Date: 2})

	db, err := Open(f.Path)
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = db.Close() }()

	handles, err := db.Handles(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(handles) != 2 {
		t.Fatalf("got %d handles, want 2", len(handles))
	}
	if handles[0].Service != ServiceIMessage || handles[0].MessageCount != 2 {
		t.Errorf("handle 1 = %+v, want iMessage with 2 messages", handles[0])
	}
	if handles[1].Service != ServiceSMS || handles[1].MessageCount != 0 {
		t.Errorf("handle 2 = %+v, want SMS with 0 messages", handles[1])
	}
}

func TestMessagesForHandles(t *testing.T) {
	f := chatdbtest.New(t)
	f.AddHandle(1, "+15550100", "iMessage")
	f.AddHandle(2, "+15550199", "iMessage")
	f.AddChat(1, "+15550100", "iMessage", 1)
	f.AddChat(2, "+15550199", "iMessage", 2)

	f.AddMessage(chatdbtest.Message{RowID: 1, Text: chatdbtest.Str("hi"), HandleID: 1, Date: 300, ChatID: 1})
	f.AddMessage(chatdbtest.Message{RowID: 2, Text: chatdbtest.Str("hey"), FromMe: true, Date: 200, ChatID: 1})
	f.AddMessage(chatdbtest.Message{RowID: 3, Body: []byte{0x01}, HandleID: 1, Date: 100, ChatID: 1})
	f.AddMessage(chatdbtest.Message{RowID: 4, Text: chatdbtest.Str("other"), HandleID: 2, Date: 50, ChatID: 2})
	f.AddMessage(chatdbtest.Message{RowID: 5, Text: chatdbtest.Str("to other"), FromMe: true, Date: 60, ChatID: 2})

	db, err := Open(f.Path)
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = db.Close() }()

	msgs, err := db.MessagesForHandles(context.Background(), []int64{1})
	if err != nil {
		t.Fatal(err)
	}
	if len(msgs) != 3 {
		t.Fatalf("got %d messages, want 3", len(msgs))
	}
	wantOrder := []int64{3, 2, 1}
	for i, m := range msgs {
		if m.RowID != wantOrder[i] {
			t.Errorf("msgs[%d].RowID = %d, want %d", i, m.RowID, wantOrder[i])
		}
	}
	if msgs[0].Text.Valid || len(msgs[0].AttributedBody) != 1 {
		t.Errorf("row 3 should have NULL text and a body: %+v", msgs[0])
	}
	if !msgs[1].IsFromMe || msgs[1].Service != ServiceIMessage {
		t.Errorf("row 2 should be from me over iMessage (chat service): %+v", msgs[1])
	}
}

func TestMessagesForNoHandles(t *testing.T) {
	f := chatdbtest.New(t)
	db, err := Open(f.Path)
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = db.Close() }()

	msgs, err := db.MessagesForHandles(context.Background(), nil)
	if err != nil || msgs != nil {
		t.Errorf("MessagesForHandles(nil) = %v, %v; want nil, nil", msgs, err)
	}
}

func TestServiceRank(t *testing.T) {
	order := []Service{ServiceIMessage, ServiceRCS, ServiceSMS, ServiceUnknown}
	for i := 1; i < len(order); i++ {
		if order[i-1].Rank() >= order[i].Rank() {
			t.Errorf("%s should rank before %s", order[i-1], order[i])
		}
	}
	if ParseService(" imessage ") != ServiceIMessage || ParseService("Fax") != ServiceUnknown {
		t.Error("ParseService did not normalize")
	}
}
