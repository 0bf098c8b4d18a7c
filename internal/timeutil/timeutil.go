// Package timeutil normalizes the timestamp formats seen across hosting
// APIs and ledger rows written by earlier versions of this tool into
// comparable UTC instants.
package timeutil

import (
	"fmt"
	"strings"
	"time"
)

// layouts covers the ISO-8601 variants we have observed in the wild:
// RFC 3339 with and without fractional seconds, timestamps without an
// offset (assumed UTC), and a space instead of the 'T' separator.
var layouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05Z07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04:05",
}

// ParseInstant parses an ISO-8601 timestamp variant into a UTC instant.
// Timestamps without an explicit offset are taken as UTC. An error
// means the caller must treat the instant as unknown.
func ParseInstant(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("empty timestamp")
	}

	for _, layout := range layouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", s)
}

// FormatInstant renders an instant in the canonical form the ledger
// stores: RFC 3339 in UTC.
func FormatInstant(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

// DaysAgo returns the instant the given number of days before now.
func DaysAgo(now time.Time, days int) time.Time {
	return now.Add(-time.Duration(days) * 24 * time.Hour)
}
