package model

import (
	"errors"
	"strings"
	"time"
)

// DateLayout is the on-disk and on-wire calendar date format.
const DateLayout = "2006-01-02"

var dateLayouts = []string{
	DateLayout,
	"2006-01-02 15:04:05",
	"2006-01-02 15:04:05-07:00",
	"2006-01-02 15:04:05 -0700 MST",
	time.RFC3339,
	"2006/01/02",
}

// ParseDate reads a calendar date. Any time-of-day component is discarded.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, &DateParseError{Value: s, Err: errors.New("empty date")}
	}
	var lastErr error
	for _, layout := range dateLayouts {
		t, err := time.Parse(layout, s)
		if err == nil {
			return DateOf(t), nil
		}
		lastErr = err
	}
	return time.Time{}, &DateParseError{Value: s, Err: lastErr}
}

// DateOf truncates t to its calendar date in its own location, expressed at UTC midnight.
func DateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// WindowStart returns the first date kept by a trailing window of the given days.
func WindowStart(now time.Time, days int) time.Time {
	return DateOf(now).AddDate(0, 0, -days)
}
