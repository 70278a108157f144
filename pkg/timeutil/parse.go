// Package timeutil parses the time bounds accepted on the command line.
package timeutil

import (
	"fmt"
	"regexp"
	"strconv"
	"time"
)

// Pre-compiled regex for relative bounds (e.g., "90s", "2h", "7d", "1w")
var relativeTimeRe = regexp.MustCompile(`^(\d+)([smhdw])$`)

var units = map[string]time.Duration{
	"s": time.Second,
	"m": time.Minute,
	"h": time.Hour,
	"d": 24 * time.Hour,
	"w": 7 * 24 * time.Hour,
}

// Parse parses a view bound relative to the current time. See ParseAt.
func Parse(input string) (time.Time, error) {
	return ParseAt(input, time.Now())
}

// ParseAt parses a view bound. The empty string means unbounded and yields
// the zero time.
//
// Examples:
//   - "" -> zero time (no bound)
//   - "now" -> now
//   - "30m" -> 30 minutes before now
//   - "2025-12-02" -> midnight UTC of that day
//   - "2025-12-02T06:00:00.5Z" -> that instant
func ParseAt(input string, now time.Time) (time.Time, error) {
	switch input {
	case "":
		return time.Time{}, nil
	case "now":
		return now.UTC(), nil
	}

	for _, layout := range []string{time.RFC3339Nano, time.DateTime, time.DateOnly} {
		if t, err := time.ParseInLocation(layout, input, time.UTC); err == nil {
			return t, nil
		}
	}

	if m := relativeTimeRe.FindStringSubmatch(input); m != nil {
		value, err := strconv.Atoi(m[1])
		if err != nil {
			return time.Time{}, fmt.Errorf("invalid time format: %s", input)
		}
		return now.UTC().Add(-time.Duration(value) * units[m[2]]), nil
	}

	return time.Time{}, fmt.Errorf("invalid time format: %s", input)
}

// FormatDuration formats a duration in a human-readable way.
func FormatDuration(d time.Duration) string {
	switch {
	case d < time.Minute:
		return fmt.Sprintf("%ds", int(d.Seconds()))
	case d < time.Hour:
		return fmt.Sprintf("%dm", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%.1fh", d.Hours())
	default:
		return fmt.Sprintf("%.1fd", d.Hours()/24)
	}
}

// ValidateRange checks view bounds. Zero bounds are open. It returns an
// error for an empty range and warnings for bounds that are probably typos.
func ValidateRange(start, end, now time.Time) (warnings []string, err error) {
	if !start.IsZero() && !end.IsZero() && !end.After(start) {
		return nil, fmt.Errorf("--until (%s) must be after --since (%s)",
			end.Format(time.RFC3339), start.Format(time.RFC3339))
	}

	if !start.IsZero() && start.After(now.Add(time.Minute)) {
		warnings = append(warnings, fmt.Sprintf("start is %s in the future; nothing will show until then",
			FormatDuration(start.Sub(now))))
	}
	if !end.IsZero() && end.Before(now) {
		warnings = append(warnings, "end is in the past; the view will not receive new entries")
	}
	return warnings, nil
}
