package merge

import "time"

// appleEpochUnix is 2001-01-01T00:00:00Z in Unix seconds.
const appleEpochUnix = 978307200

// Dates written before macOS 10.13 count seconds rather than nanoseconds.
// Nanosecond values pass 1e11 about 100 seconds after the epoch.
const legacySecondsLimit = 100_000_000_000

// DateLayout is the civil time format written to formatted_date.
const DateLayout = "2006-01-02 15:04:05"

// AppleTime converts a chat.db date to a time.Time.
func AppleTime(native int64) time.Time {
	if native > -legacySecondsLimit && native < legacySecondsLimit {
		return time.Unix(appleEpochUnix+native, 0).UTC()
	}
	return time.Unix(appleEpochUnix, native).UTC()
}

// NativeFromTime converts t to the nanosecond chat.db epoch.
func NativeFromTime(t time.Time) int64 {
	return (t.Unix()-appleEpochUnix)*int64(time.Second) + int64(t.Nanosecond())
}

// FormatLocal renders a chat.db date as civil time in loc.
func FormatLocal(native int64, loc *time.Location) string {
	if loc == nil {
		loc = time.Local
	}
	return AppleTime(native).In(loc).Format(DateLayout)
}
