package parse

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var clockRe = regexp.MustCompile(`^(\d{1,2}):(\d{2})$`)

// Clock parses "HH:MM" into minutes after midnight.
func Clock(raw string) (int, error) {
	m := clockRe.FindStringSubmatch(strings.TrimSpace(raw))
	if m == nil {
		return 0, fmt.Errorf("invalid clock time %q, want HH:MM", raw)
	}
	h, _ := strconv.Atoi(m[1])
	min, _ := strconv.Atoi(m[2])
	if h > 23 || min > 59 {
		return 0, fmt.Errorf("clock time out of range: %q", raw)
	}
	return h*60 + min, nil
}

// EndTime resolves an end time given either as RFC3339 or as "HH:MM" on the
// same day as ref, in ref's location.
func EndTime(raw string, ref time.Time) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}
	minutes, err := Clock(raw)
	if err != nil {
		return time.Time{}, err
	}
	y, mo, d := ref.Date()
	return time.Date(y, mo, d, minutes/60, minutes%60, 0, 0, ref.Location()), nil
}

// Hours returns the length of [start, end] in fractional hours.
func Hours(start, end time.Time) float64 {
	return end.Sub(start).Hours()
}
