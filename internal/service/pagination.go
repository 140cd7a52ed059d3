package service

import (
	"errors"
	"time"
)

// ErrBadCursor is returned when a pagination cursor is not a parseable
// ISO-8601 timestamp.
var ErrBadCursor = errors.New("invalid cursor")

// ParseCursor parses an opaque list cursor. Cursors are the created_at
// timestamp of the last item of the previous page, in RFC 3339 form.
func ParseCursor(cursor string) (*time.Time, error) {
	if cursor == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339Nano, cursor)
	if err != nil {
		return nil, ErrBadCursor
	}
	return &t, nil
}

// FormatCursor renders a row timestamp as the next-page cursor.
func FormatCursor(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

// ClampLimit applies the server-side page size ceiling regardless of what the
// client asked for.
func ClampLimit(requested, fallback, ceiling int) int {
	if requested <= 0 {
		return fallback
	}
	if requested > ceiling {
		return ceiling
	}
	return requested
}
