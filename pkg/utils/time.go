package utils

import "time"

// FormatTime renders t the way dates travel on the wire.
func FormatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

// ParseTime parses an RFC 3339 timestamp, with or without fractional
// seconds.
func ParseTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, err
	}
	return t.UTC(), nil
}

// Clock returns the current time. Services take one so tests can pin it.
type Clock func() time.Time

// SystemClock is the wall clock truncated to milliseconds, the precision
// notes are exchanged with.
func SystemClock() time.Time {
	return time.Now().UTC().Truncate(time.Millisecond)
}
