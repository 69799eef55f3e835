package scrape

import "testing"

func TestParseScore(t *testing.T) {
	t.Parallel()

	tests := []struct {
		text      string
		seps      []string
		home      int
		away      int
		wantFound bool
	}{
		{text: "2 - 1", seps: []string{"-"}, home: 2, away: 1, wantFound: true},
		{text: "0-0", seps: []string{"-"}, home: 0, away: 0, wantFound: true},
		{text: " 3 : 2 ", seps: []string{":"}, home: 3, away: 2, wantFound: true},
		{text: "1:4", seps: []string{"-", ":"}, home: 1, away: 4, wantFound: true},
		{text: "15:00", seps: []string{"-"}},
		{text: "? - ?", seps: []string{"-"}},
		{text: "", seps: []string{"-"}},
	}

	for _, tc := range tests {
		home, away, ok := ParseScore(tc.text, tc.seps...)
		if ok != tc.wantFound {
			t.Fatalf("ParseScore(%q) ok=%v want %v", tc.text, ok, tc.wantFound)
		}
		if !ok {
			if home != nil || away != nil {
				t.Fatalf("ParseScore(%q) returned scores on failure", tc.text)
			}
			continue
		}
		if *home != tc.home || *away != tc.away {
			t.Fatalf("ParseScore(%q) = %d-%d want %d-%d", tc.text, *home, *away, tc.home, tc.away)
		}
	}
}

func TestMinuteMarker(t *testing.T) {
	t.Parallel()

	if got := MinuteMarker("67'"); got == nil || *got != "67'" {
		t.Fatalf("unexpected minute: %v", got)
	}
	if got := MinuteMarker("Live 45+2'"); got == nil || *got != "45+2'" {
		t.Fatalf("unexpected minute: %v", got)
	}
	if got := MinuteMarker("Half Time"); got != nil {
		t.Fatalf("expected no minute, got %q", *got)
	}
}
