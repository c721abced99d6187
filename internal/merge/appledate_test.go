package merge

import (
	"testing"
	"time"
)

func TestAppleTime(t *testing.T) {
	tests := []struct {
		name   string
		native int64
		want   time.Time
	}{
		{"epoch", 0, time.Date(2001, 1, 1, 0, 0, 0, 0, time.UTC)},
		{"nanoseconds", 700_000_000_123_456_789, time.Date(2023, 3, 8, 20, 26, 40, 123_456_789, time.UTC)},
		{"legacy seconds", 400_000_000, time.Date(2013, 9, 4, 15, 6, 40, 0, time.UTC)},
		{"before epoch", -31_536_000, time.Date(2000, 1, 2, 0, 0, 0, 0, time.UTC)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := AppleTime(tt.native); !got.Equal(tt.want) {
				t.Errorf("AppleTime(%d) = %v, want %v", tt.native, got, tt.want)
			}
		})
	}
}

func TestNativeFromTimeRoundTrip(t *testing.T) {
	in := time.Date(2024, 6, 1, 12, 30, 0, 500, time.UTC)
	native := NativeFromTime(in)
	if got := AppleTime(native); !got.Equal(in) {
		t.Errorf("AppleTime(NativeFromTime(%v)) = %v", in, got)
	}
}

func TestFormatLocal(t *testing.T) {
	native := NativeFromTime(time.Date(2024, 1, 15, 3, 4, 5, 0, time.UTC))
	tokyo := time.FixedZone("JST", 9*60*60)

	if got := FormatLocal(native, time.UTC); got != "2024-01-15 03:04:05" {
		t.Errorf("FormatLocal(UTC) = %q", got)
	}
	if got := FormatLocal(native, tokyo); got != "2024-01-15 12:04:05" {
		t.Errorf("FormatLocal(JST) = %q", got)
	}
}
