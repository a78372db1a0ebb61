// Package dateparse parses the lookback expressions used by history
// filters ("7d", "yesterday", "2026-08-01") into cutoff times.
package dateparse

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ParseSince parses a lookback input and returns the cutoff time:
// records at or after the cutoff match the filter. Uses the current
// time as the reference point.
//
// Supported formats:
//   - Exact dates: "2026-08-01" (midnight, local time)
//   - Relative windows: "7d", "2w", "1m", "36h"
//   - Keywords: "today", "yesterday", "last-week", "last-month"
//   - Day names: "monday", "tuesday", etc. (most recent occurrence)
func ParseSince(input string) (time.Time, error) {
	return ParseSinceFrom(input, time.Now())
}

// ParseSinceFrom parses a lookback input relative to the given
// reference time. This variant enables deterministic testing with a
// fixed "now".
func ParseSinceFrom(input string, now time.Time) (time.Time, error) {
	input = strings.TrimSpace(strings.ToLower(input))
	if input == "" {
		return time.Time{}, fmt.Errorf("empty since input")
	}

	// Exact date: YYYY-MM-DD
	if t, err := time.ParseInLocation("2006-01-02", input, now.Location()); err == nil {
		return t, nil
	}

	// Keywords
	switch input {
	case "today":
		return startOfDay(now), nil
	case "yesterday":
		return startOfDay(now.AddDate(0, 0, -1)), nil
	case "last-week":
		return startOfDay(now.AddDate(0, 0, -7)), nil
	case "last-month":
		return startOfDay(now.AddDate(0, -1, 0)), nil
	}

	// Relative windows: Nd, Nw, Nm, or any duration time.ParseDuration
	// accepts ("36h", "90m").
	if len(input) >= 2 && input[0] >= '0' && input[0] <= '9' {
		suffix := input[len(input)-1]
		if n, err := strconv.Atoi(input[:len(input)-1]); err == nil {
			switch suffix {
			case 'd':
				return now.AddDate(0, 0, -n), nil
			case 'w':
				return now.AddDate(0, 0, -n*7), nil
			case 'm':
				return now.AddDate(0, -n, 0), nil
			}
		}
	}
	if d, err := time.ParseDuration(input); err == nil && d > 0 {
		return now.Add(-d), nil
	}

	// Day names: most recent occurrence of that weekday
	dayMap := map[string]time.Weekday{
		"sunday":    time.Sunday,
		"monday":    time.Monday,
		"tuesday":   time.Tuesday,
		"wednesday": time.Wednesday,
		"thursday":  time.Thursday,
		"friday":    time.Friday,
		"saturday":  time.Saturday,
	}
	if target, ok := dayMap[input]; ok {
		daysBack := (int(now.Weekday()) - int(target) + 7) % 7
		if daysBack == 0 {
			daysBack = 7 // always step back to the previous occurrence
		}
		return startOfDay(now.AddDate(0, 0, -daysBack)), nil
	}

	return time.Time{}, fmt.Errorf("unrecognized since format: %q", input)
}

func startOfDay(t time.Time) time.Time {
	year, month, day := t.Date()
	return time.Date(year, month, day, 0, 0, 0, 0, t.Location())
}
