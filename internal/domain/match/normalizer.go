package match

import (
	"regexp"
	"strconv"
	"strings"
	"unicode"
)

const maxMinute = 120

var minuteTokenPattern = regexp.MustCompile(`\d+\s*['’]`)

// statusRule lists markers for one status. A marker is one or more words and
// only matches whole words in order, so "LIVE" does not fire inside
// "DELIVERED" and "HT" does not fire inside "EIGHT".
type statusRule struct {
	status  Status
	markers []string
}

var defaultRules = []statusRule{
	{
		status:  StatusPaused,
		markers: []string{"HT", "PAUSE", "HALFTIME", "HALF TIME", "MI-TEMPS"},
	},
	{
		status:  StatusFinished,
		markers: []string{"FT", "AET", "ENDED", "FINISHED", "FULL TIME", "FULLTIME"},
	},
	{
		status:  StatusInPlay,
		markers: []string{"LIVE", "IN PROGRESS", "1ST HALF", "2ND HALF", "FIRST HALF", "SECOND HALF"},
	},
}

var normalizerRules = map[SourceType][]statusRule{
	SourceOneFootball: extendRules(defaultRules, map[Status][]string{
		StatusFinished: {"TERMINÉ", "TERMINE"},
	}),
	SourceLiveScore: extendRules(defaultRules, map[Status][]string{
		StatusFinished: {"AP", "AAW", "AFTER PEN"},
		StatusInPlay:   {"PEN", "ET"},
	}),
	SourceSportMonks: extendRules(defaultRules, map[Status][]string{
		StatusPaused:   {"BREAK"},
		StatusFinished: {"AWARDED"},
		StatusInPlay:   {"INPLAY"},
	}),
}

// Normalize maps provider status text to a canonical status. The minute
// marker corroborates a live match when the text alone is inconclusive.
// It never fails: anything unrecognized is SCHEDULED.
func Normalize(raw, minute *string, source SourceType) Status {
	if raw == nil {
		return StatusScheduled
	}
	text := strings.ToUpper(strings.TrimSpace(*raw))
	if text == "" {
		return StatusScheduled
	}

	if status := Status(text); status.Valid() {
		return status
	}

	rules, ok := normalizerRules[source]
	if !ok {
		rules = defaultRules
	}

	words := wordSequence(text)
	for _, rule := range rules {
		if rule.matches(words) {
			return rule.status
		}
	}

	if minuteTokenPattern.MatchString(text) {
		return StatusInPlay
	}
	if n, err := strconv.Atoi(text); err == nil && n >= 0 && n <= maxMinute {
		return StatusInPlay
	}
	if _, ok := ParseMinute(minute); ok {
		return StatusInPlay
	}

	return StatusScheduled
}

// ParseMinute reads markers like "67'", "45+2'" or "90" and reports the base
// minute when it lies in [0,120].
func ParseMinute(minute *string) (int, bool) {
	if minute == nil {
		return 0, false
	}
	text := strings.TrimSpace(*minute)
	text = strings.TrimRight(text, "'’")
	if plus := strings.IndexByte(text, '+'); plus > 0 {
		text = text[:plus]
	}
	n, err := strconv.Atoi(strings.TrimSpace(text))
	if err != nil || n < 0 || n > maxMinute {
		return 0, false
	}
	return n, true
}

func (r statusRule) matches(words string) bool {
	for _, marker := range r.markers {
		if strings.Contains(words, wordSequence(marker)) {
			return true
		}
	}
	return false
}

// wordSequence splits on anything that is not a letter or digit and joins the
// words with single spaces, padded at both ends so Contains only matches
// whole words: "HALF-TIME" and "half_time" both become " HALF TIME ".
func wordSequence(text string) string {
	fields := strings.FieldsFunc(strings.ToUpper(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	return " " + strings.Join(fields, " ") + " "
}

// extendRules copies base and appends source-specific markers to the rule
// with the same status, keeping the halftime, finished, live order.
func extendRules(base []statusRule, extra map[Status][]string) []statusRule {
	out := make([]statusRule, 0, len(base))
	for _, rule := range base {
		merged := statusRule{
			status:  rule.status,
			markers: append([]string(nil), rule.markers...),
		}
		merged.markers = append(merged.markers, extra[rule.status]...)
		out = append(out, merged)
	}
	return out
}
