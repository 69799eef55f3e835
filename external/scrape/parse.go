package scrape

import (
	"strconv"
	"strings"
)

// ParseScore reads "2-1", "2 : 1" and similar pairs. Both sides must be
// non-negative integers.
func ParseScore(text string, separators ...string) (home, away *int, ok bool) {
	text = strings.TrimSpace(text)
	for _, sep := range separators {
		left, right, found := strings.Cut(text, sep)
		if !found {
			continue
		}
		h, errH := strconv.Atoi(strings.TrimSpace(left))
		a, errA := strconv.Atoi(strings.TrimSpace(right))
		if errH != nil || errA != nil || h < 0 || a < 0 {
			return nil, nil, false
		}
		return &h, &a, true
	}
	return nil, nil, false
}

// MinuteMarker returns the trimmed status text when it carries a minute tick
// such as 67' or 45+2'.
func MinuteMarker(status string) *string {
	status = strings.TrimSpace(status)
	if status == "" || !strings.ContainsAny(status, "'’") {
		return nil
	}
	for _, field := range strings.Fields(status) {
		if strings.ContainsAny(field, "'’") && strings.ContainsAny(field, "0123456789") {
			return &field
		}
	}
	return &status
}

// CollapseSpace joins whitespace runs so scraped text compares cleanly.
func CollapseSpace(text string) string {
	return strings.Join(strings.Fields(text), " ")
}
