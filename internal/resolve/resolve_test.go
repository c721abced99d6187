package resolve

import (
	"slices"
	"testing"

	"github.com/matheus3301/imsgx/internal/chatdb"
)

func TestNormalizeAddress(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"+1-555-0100", "15550100"},
		{"(555) 010-0000", "5550100000"},
		{" 5550100 ", "5550100"},
		{"Jane.Doe@Example.com", "jane.doe@example.com"},
		{"  Bob@icloud.com ", "bob@icloud.com"},
		{"", ""},
		{"+-() ", ""},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := NormalizeAddress(tt.in); got != tt.want {
				t.Errorf("NormalizeAddress(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestResolveScenario(t *testing.T) {
	handles := []chatdb.Handle{
		{RowID: 2, Address: "5550100", Service: chatdb.ServiceSMS},
		{RowID: 1, Address: "+1-555-0100", Service: chatdb.ServiceIMessage},
		{RowID: 3, Address: "+1-555-0199", Service: chatdb.ServiceIMessage},
	}
	got := New().Resolve(handles, "5550100")
	if want := []int64{1, 2}; !slices.Equal(IDs(got), want) {
		t.Errorf("Resolve() ids = %v, want %v", IDs(got), want)
	}
}

func TestResolveMatching(t *testing.T) {
	handles := []chatdb.Handle{
		{RowID: 1, Address: "+15555550100", Service: chatdb.ServiceIMessage},
		{RowID: 2, Address: "5550100", Service: chatdb.ServiceSMS},
		{RowID: 3, Address: "jane@example.com", Service: chatdb.ServiceIMessage},
		{RowID: 4, Address: "0100", Service: chatdb.ServiceSMS},
		{RowID: 5, Address: "+15555550100", Service: chatdb.ServiceRCS},
	}
	tests := []struct {
		name string
		term string
		want []int64
	}{
		{"full number with punctuation", "+1 (555) 555-0100", []int64{1, 5, 2}},
		{"fragment", "555-0100", []int64{1, 5, 2}},
		{"email case-insensitive", "JANE@example.com", []int64{3}},
		{"email fragment", "jane", []int64{3}},
		{"short suffix rejected", "99990100", nil},
		{"blank", "   ", nil},
		{"punctuation only", "+()", nil},
		{"no match", "bob@example.com", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := New().Resolve(handles, tt.term)
			if got == nil {
				t.Fatal("Resolve() returned nil, want empty slice")
			}
			if !slices.Equal(IDs(got), tt.want) {
				t.Errorf("Resolve(%q) ids = %v, want %v", tt.term, IDs(got), tt.want)
			}
		})
	}
}

func TestResolveMinSuffixDigits(t *testing.T) {
	handles := []chatdb.Handle{{RowID: 1, Address: "0100", Service: chatdb.ServiceSMS}}
	if got := New().Resolve(handles, "5550100"); len(got) != 0 {
		t.Errorf("default resolver matched short suffix: %v", got)
	}
	if got := New(WithMinSuffixDigits(4)).Resolve(handles, "5550100"); len(got) != 1 {
		t.Errorf("resolver with 4-digit suffix = %v, want one match", got)
	}
}

func TestResolveStable(t *testing.T) {
	handles := []chatdb.Handle{
		{RowID: 9, Address: "+15550100", Service: chatdb.ServiceSMS},
		{RowID: 4, Address: "15550100", Service: chatdb.ServiceIMessage},
		{RowID: 7, Address: "5550100", Service: chatdb.ServiceUnknown},
		{RowID: 2, Address: "+1 555 0100", Service: chatdb.ServiceIMessage},
	}
	r := New()
	first := IDs(r.Resolve(handles, "5550100"))
	if want := []int64{2, 4, 9, 7}; !slices.Equal(first, want) {
		t.Fatalf("Resolve() ids = %v, want %v", first, want)
	}
	for range 5 {
		if again := IDs(r.Resolve(handles, "5550100")); !slices.Equal(first, again) {
			t.Fatalf("Resolve() not stable: %v then %v", first, again)
		}
	}
	if handles[0].RowID != 9 {
		t.Error("Resolve() reordered the input slice")
	}
}

func TestPrimary(t *testing.T) {
	tests := []struct {
		name    string
		handles []chatdb.Handle
		want    int64
		ok      bool
	}{
		{"empty", nil, 0, false},
		{"busiest iMessage", []chatdb.Handle{
			{RowID: 1, Service: chatdb.ServiceIMessage, MessageCount: 3},
			{RowID: 2, Service: chatdb.ServiceIMessage, MessageCount: 10},
			{RowID: 3, Service: chatdb.ServiceSMS, MessageCount: 50},
		}, 2, true},
		{"no iMessage falls back to busiest", []chatdb.Handle{
			{RowID: 1, Service: chatdb.ServiceSMS, MessageCount: 3},
			{RowID: 2, Service: chatdb.ServiceRCS, MessageCount: 8},
		}, 2, true},
		{"tie keeps first", []chatdb.Handle{
			{RowID: 4, Service: chatdb.ServiceIMessage, MessageCount: 5},
			{RowID: 5, Service: chatdb.ServiceIMessage, MessageCount: 5},
		}, 4, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Primary(tt.handles)
			if ok != tt.ok || got.RowID != tt.want {
				t.Errorf("Primary() = %d, %v; want %d, %v", got.RowID, ok, tt.want, tt.ok)
			}
		})
	}
}
