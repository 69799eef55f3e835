package match

import "testing"

func TestCanTransition(t *testing.T) {
	t.Parallel()

	allowed := [][2]Status{
		{StatusScheduled, StatusInPlay},
		{StatusScheduled, StatusPaused},
		{StatusScheduled, StatusFinished},
		{StatusInPlay, StatusPaused},
		{StatusInPlay, StatusFinished},
		{StatusPaused, StatusInPlay},
		{StatusPaused, StatusFinished},
	}
	for _, pair := range allowed {
		if !CanTransition(pair[0], pair[1]) {
			t.Fatalf("expected %s -> %s to be allowed", pair[0], pair[1])
		}
	}

	rejected := [][2]Status{
		{StatusInPlay, StatusScheduled},
		{StatusPaused, StatusScheduled},
		{StatusFinished, StatusInPlay},
		{StatusFinished, StatusScheduled},
		{Status(""), StatusInPlay},
	}
	for _, pair := range rejected {
		if CanTransition(pair[0], pair[1]) {
			t.Fatalf("expected %s -> %s to be rejected", pair[0], pair[1])
		}
	}
}

func TestShootoutWinners(t *testing.T) {
	t.Parallel()

	home, away := ShootoutWinners(IntPtr(1), IntPtr(1), IntPtr(5), IntPtr(4))
	if home == nil || away == nil || !*home || *away {
		t.Fatalf("expected home shoot-out win, got home=%v away=%v", home, away)
	}

	home, away = ShootoutWinners(IntPtr(2), IntPtr(1), IntPtr(5), IntPtr(4))
	if home != nil || away != nil {
		t.Fatalf("expected no shoot-out winner when regular score is not level")
	}

	home, away = ShootoutWinners(IntPtr(0), IntPtr(0), IntPtr(3), nil)
	if home != nil || away != nil {
		t.Fatalf("expected no shoot-out winner with a missing penalty score")
	}
}

func TestParseStatus(t *testing.T) {
	t.Parallel()

	if got, err := ParseStatus(" in_play "); err != nil || got != StatusInPlay {
		t.Fatalf("ParseStatus = (%s, %v), want IN_PLAY", got, err)
	}
	if _, err := ParseStatus("LIVE"); err == nil {
		t.Fatalf("expected non canonical status to be rejected")
	}
}

func TestMatchClearCandidate(t *testing.T) {
	t.Parallel()

	m := Match{StatusCandidate: StatusPtr(StatusInPlay), ConsecutiveSameCandidate: 2}
	m.ClearCandidate()
	if m.StatusCandidate != nil || m.ConsecutiveSameCandidate != 0 || m.StatusCandidateSince != nil {
		t.Fatalf("expected candidate fields cleared, got %+v", m)
	}
}
