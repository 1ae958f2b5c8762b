package utils

import (
	"fmt"
	"strings"
	"time"
)

// ParseDuration safely parses a duration string like "5m".
func ParseDuration(d string) time.Duration {
	if d == "" {
		return 5 * time.Minute
	}
	duration, err := time.ParseDuration(d)
	if err != nil {
		return 5 * time.Minute
	}
	return duration
}

// dateLayouts are the onset-date formats seen across snapshot years.
var dateLayouts = []string{
	"2006-01-02",
	"2006-01-02T15:04:05",
	"2006/01/02",
	"01/02/2006",
	"Jan 2, 2006",
}

// ParseDate parses a calendar date in any recognized snapshot format.
// Dates are calendar dates, not timestamps; any time-of-day part is dropped.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("empty date")
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date format: %q", s)
}

// ParseActive reads the snapshot's active flag, which shows up as Y/N,
// Yes/No, true/false or 1/0 depending on the export year.
func ParseActive(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "y", "yes", "true", "1", "active":
		return true
	default:
		return false
	}
}
