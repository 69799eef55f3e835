package usecase

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/riskibarqy/score-tracker/internal/domain/match"
	matchmock "github.com/riskibarqy/score-tracker/internal/mocks/domain/match"
	"github.com/riskibarqy/score-tracker/internal/platform/resilience"
	"github.com/stretchr/testify/mock"
)

type fixedIDs struct{ id string }

func (g fixedIDs) NewID() (string, error) { return g.id, nil }

func newTestMatchService(t *testing.T, repo *matchmock.Repository, events *matchmock.EventRepository) *MatchService {
	t.Helper()

	registry, err := NewProviderRegistry(stubProvider{source: match.SourceLiveScore}, stubProvider{source: match.SourceOneFootball})
	if err != nil {
		t.Fatalf("build registry: %v", err)
	}
	locks := resilience.NewKeyedMutex()
	tracker := NewTrackingService(repo, registry, locks, nil, nil, nil, DefaultTrackingConfig())
	tracker.now = func() time.Time { return reconcileNow }

	svc := NewMatchService(repo, events, tracker, locks, fixedIDs{id: "6f1c2a55-8d7e-4e59-9d0a-0f4b8c1d2e3f"}, nil, nil)
	svc.now = func() time.Time { return reconcileNow }
	return svc
}

func TestMatchService_ManualUpdate(t *testing.T) {
	t.Parallel()

	repo := matchmock.NewRepository(t)
	svc := newTestMatchService(t, repo, matchmock.NewEventRepository(t))

	current := startedMatch(match.StatusInPlay)
	current.ScoreHome, current.ScoreAway = match.IntPtr(1), match.IntPtr(0)
	current.StatusCandidate = match.StatusPtr(match.StatusPaused)
	current.ConsecutiveSameCandidate = 2
	current.StatusCandidateSince = match.TimePtr(reconcileNow.Add(-time.Minute))

	repo.On("GetByID", mock.Anything, current.ID).Return(current, true, nil).Once()
	repo.On("Save", mock.Anything,
		mock.MatchedBy(func(m match.Match) bool {
			return m.Status == match.StatusFinished &&
				*m.ScoreHome == 1 && *m.ScoreAway == 1 &&
				*m.PenaltyHome == 4 && *m.PenaltyAway == 3 &&
				m.WinnerHomeTAB != nil && *m.WinnerHomeTAB &&
				m.WinnerAwayTAB != nil && !*m.WinnerAwayTAB &&
				m.StatusCandidate == nil && m.ConsecutiveSameCandidate == 0 && m.StatusCandidateSince == nil &&
				!m.TrackingEnabled
		}),
		mock.MatchedBy(func(events []match.Event) bool {
			if len(events) != 1 {
				return false
			}
			e := events[0]
			return e.Type == match.EventManualUpdate && e.TriggeredBy == match.TriggerManual &&
				*e.OldStatus == match.StatusInPlay && *e.NewStatus == match.StatusFinished &&
				*e.OldScoreHome == 1 && *e.OldScoreAway == 0 &&
				*e.NewScoreHome == 1 && *e.NewScoreAway == 1
		}),
	).Return(nil).Once()

	got, err := svc.ManualUpdate(context.Background(), ManualUpdateInput{
		MatchID:     current.ID,
		Status:      "finished",
		ScoreHome:   match.IntPtr(1),
		ScoreAway:   match.IntPtr(1),
		PenaltyHome: match.IntPtr(4),
		PenaltyAway: match.IntPtr(3),
	})
	if err != nil {
		t.Fatalf("ManualUpdate error: %v", err)
	}
	if got.TrackingEnabled || got.Status != match.StatusFinished {
		t.Fatalf("unexpected result %+v", got)
	}
}

func TestMatchService_ManualUpdateRejectsInvalidInput(t *testing.T) {
	t.Parallel()

	svc := newTestMatchService(t, matchmock.NewRepository(t), matchmock.NewEventRepository(t))

	if _, err := svc.ManualUpdate(context.Background(), ManualUpdateInput{MatchID: "m-1", Status: "LIVE"}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for unknown status, got %v", err)
	}
	if _, err := svc.ManualUpdate(context.Background(), ManualUpdateInput{MatchID: "m-1", Status: "IN_PLAY", ScoreHome: match.IntPtr(-1)}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for negative score, got %v", err)
	}
}

func TestMatchService_ManualUpdateMissingMatch(t *testing.T) {
	t.Parallel()

	repo := matchmock.NewRepository(t)
	svc := newTestMatchService(t, repo, matchmock.NewEventRepository(t))

	repo.On("GetByID", mock.Anything, "missing").Return(match.Match{}, false, nil).Once()

	if _, err := svc.ManualUpdate(context.Background(), ManualUpdateInput{MatchID: "missing", Status: "IN_PLAY"}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestMatchService_EnableTrackingResetsErrors(t *testing.T) {
	t.Parallel()

	repo := matchmock.NewRepository(t)
	svc := newTestMatchService(t, repo, matchmock.NewEventRepository(t))

	current := startedMatch(match.StatusInPlay)
	current.TrackingEnabled = false
	current.ErrorCount = 5
	current.LastError = match.StringPtr("timeout")

	repo.On("GetByID", mock.Anything, current.ID).Return(current, true, nil).Once()
	repo.On("Save", mock.Anything,
		mock.MatchedBy(func(m match.Match) bool {
			return m.TrackingEnabled && m.ErrorCount == 0 && m.LastError == nil
		}),
		mock.MatchedBy(func(events []match.Event) bool {
			return len(events) == 1 && events[0].Type == match.EventTrackingEnabled && events[0].TriggeredBy == match.TriggerAdmin
		}),
	).Return(nil).Once()

	if _, err := svc.EnableTracking(context.Background(), current.ID); err != nil {
		t.Fatalf("EnableTracking error: %v", err)
	}
}

func TestMatchService_DisableTrackingIsNoopWhenAlreadyDisabled(t *testing.T) {
	t.Parallel()

	repo := matchmock.NewRepository(t)
	svc := newTestMatchService(t, repo, matchmock.NewEventRepository(t))

	current := startedMatch(match.StatusInPlay)
	current.TrackingEnabled = false
	repo.On("GetByID", mock.Anything, current.ID).Return(current, true, nil).Once()

	got, err := svc.DisableTracking(context.Background(), current.ID)
	if err != nil {
		t.Fatalf("DisableTracking error: %v", err)
	}
	if got.TrackingEnabled {
		t.Fatalf("expected tracking to stay disabled")
	}
}

func TestMatchService_DisableTracking(t *testing.T) {
	t.Parallel()

	repo := matchmock.NewRepository(t)
	svc := newTestMatchService(t, repo, matchmock.NewEventRepository(t))

	current := startedMatch(match.StatusPaused)
	repo.On("GetByID", mock.Anything, current.ID).Return(current, true, nil).Once()
	repo.On("Save", mock.Anything,
		mock.MatchedBy(func(m match.Match) bool { return !m.TrackingEnabled }),
		mock.MatchedBy(func(events []match.Event) bool {
			return len(events) == 1 && events[0].Type == match.EventTrackingDisabled
		}),
	).Return(nil).Once()

	if _, err := svc.DisableTracking(context.Background(), current.ID); err != nil {
		t.Fatalf("DisableTracking error: %v", err)
	}
}

func TestMatchService_Create(t *testing.T) {
	t.Parallel()

	repo := matchmock.NewRepository(t)
	svc := newTestMatchService(t, repo, matchmock.NewEventRepository(t))

	kickoff := time.Date(2026, 4, 19, 19, 0, 0, 0, time.FixedZone("CET", 3600))
	repo.On("Create", mock.Anything, mock.MatchedBy(func(m match.Match) bool {
		return m.ID == "6f1c2a55-8d7e-4e59-9d0a-0f4b8c1d2e3f" &&
			m.Status == match.StatusScheduled &&
			m.TrackingEnabled &&
			m.Source == match.SourceOneFootball &&
			m.KickoffAt.Location() == time.UTC
	})).Return(nil).Once()

	got, err := svc.Create(context.Background(), CreateMatchInput{
		HomeTeam:  "PSG",
		AwayTeam:  "Lyon",
		Source:    "one_football",
		Locator:   "https://onefootball.com/en/match/2512345",
		KickoffAt: kickoff,
	})
	if err != nil {
		t.Fatalf("Create error: %v", err)
	}
	if !got.KickoffAt.Equal(kickoff) {
		t.Fatalf("kickoff changed: %s", got.KickoffAt)
	}
}

func TestMatchService_CreateRejectsUnknownSource(t *testing.T) {
	t.Parallel()

	svc := newTestMatchService(t, matchmock.NewRepository(t), matchmock.NewEventRepository(t))

	_, err := svc.Create(context.Background(), CreateMatchInput{
		HomeTeam:  "A",
		AwayTeam:  "B",
		Source:    "FLASHSCORE",
		Locator:   "https://example.org/m/1",
		KickoffAt: reconcileNow,
	})
	if !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestMatchService_CreateDuplicateIsConflict(t *testing.T) {
	t.Parallel()

	repo := matchmock.NewRepository(t)
	svc := newTestMatchService(t, repo, matchmock.NewEventRepository(t))

	repo.On("Create", mock.Anything, mock.AnythingOfType("match.Match")).
		Return(fmt.Errorf("%w: id=x", match.ErrDuplicateID)).Once()

	_, err := svc.Create(context.Background(), CreateMatchInput{
		HomeTeam:  "A",
		AwayTeam:  "B",
		Source:    "LIVE_SCORE",
		Locator:   "https://www.livescore.com/en/football/x/1/",
		KickoffAt: reconcileNow,
	})
	if !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
}

func TestMatchService_ListEventsNewestFirst(t *testing.T) {
	t.Parallel()

	repo := matchmock.NewRepository(t)
	events := matchmock.NewEventRepository(t)
	svc := newTestMatchService(t, repo, events)

	current := startedMatch(match.StatusInPlay)
	repo.On("GetByID", mock.Anything, current.ID).Return(current, true, nil).Once()
	events.On("ListByMatch", mock.Anything, current.ID, defaultEventListLimit).
		Return([]match.Event{
			{ID: 2, MatchID: current.ID, Type: match.EventStatusChange, OccurredAt: reconcileNow},
			{ID: 1, MatchID: current.ID, Type: match.EventAntiFlappingActivated, OccurredAt: reconcileNow.Add(-time.Minute)},
		}, nil).
		Once()

	got, err := svc.ListEvents(context.Background(), current.ID, 0)
	if err != nil {
		t.Fatalf("ListEvents error: %v", err)
	}
	if len(got) != 2 || got[0].ID != 2 {
		t.Fatalf("unexpected events %+v", got)
	}
}

func TestMatchService_DeleteFinished(t *testing.T) {
	t.Parallel()

	repo := matchmock.NewRepository(t)
	svc := newTestMatchService(t, repo, matchmock.NewEventRepository(t))

	repo.On("DeleteFinished", mock.Anything).Return([]string{"a", "b"}, nil).Once()

	n, err := svc.DeleteFinished(context.Background())
	if err != nil || n != 2 {
		t.Fatalf("DeleteFinished = (%d, %v), want (2, nil)", n, err)
	}
}

func TestMatchService_RefreshRecordsAudit(t *testing.T) {
	t.Parallel()

	repo := matchmock.NewRepository(t)
	svc := newTestMatchService(t, repo, matchmock.NewEventRepository(t))

	current := startedMatch(match.StatusInPlay)
	current.Source = match.SourceOneFootball

	repo.On("GetByID", mock.Anything, current.ID).Return(current, true, nil).Once()
	repo.On("Save", mock.Anything,
		mock.MatchedBy(func(m match.Match) bool { return m.ErrorCount == 1 }),
		mock.MatchedBy(func(events []match.Event) bool {
			return len(events) >= 1 && events[0].Type == match.EventManualRefresh && events[0].TriggeredBy == match.TriggerAdmin
		}),
	).Return(nil).Once()

	if _, err := svc.Refresh(context.Background(), current.ID); err != nil {
		t.Fatalf("Refresh error: %v", err)
	}
}
