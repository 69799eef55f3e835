package usecase

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/riskibarqy/score-tracker/internal/domain/match"
	matchmock "github.com/riskibarqy/score-tracker/internal/mocks/domain/match"
	"github.com/stretchr/testify/mock"
)

type recordingTracker struct {
	mu      sync.Mutex
	calls   []string
	results map[string]func() (bool, error)
}

func (r *recordingTracker) TryTrack(_ context.Context, matchID string) (bool, error) {
	r.mu.Lock()
	r.calls = append(r.calls, matchID)
	fn := r.results[matchID]
	r.mu.Unlock()
	if fn == nil {
		return true, nil
	}
	return fn()
}

func newTestScheduler(t *testing.T, repo match.Repository, tracker matchTracker) *PollScheduler {
	t.Helper()

	cfg := DefaultSchedulerConfig()
	cfg.Workers = 4
	s, err := NewPollScheduler(repo, tracker, cfg, nil)
	if err != nil {
		t.Fatalf("new scheduler: %v", err)
	}
	t.Cleanup(func() { s.pool.Release() })
	s.now = func() time.Time { return reconcileNow }
	return s
}

func TestPollScheduler_TierSelection(t *testing.T) {
	t.Parallel()

	repo := matchmock.NewRepository(t)
	tracker := &recordingTracker{}
	s := newTestScheduler(t, repo, tracker)

	repo.On("ListTrackable", mock.Anything, match.StatusInPlay).Return([]match.Match{{ID: "live-1"}, {ID: "live-2"}}, nil).Once()
	repo.On("ListTrackable", mock.Anything, match.StatusPaused).Return([]match.Match{{ID: "paused-1"}}, nil).Once()
	repo.On("ListTrackableByKickoff", mock.Anything, match.StatusScheduled,
		reconcileNow.Add(-4*time.Hour), reconcileNow.Add(time.Hour)).
		Return([]match.Match{{ID: "near-1"}}, nil).Once()
	repo.On("ListTrackableByKickoff", mock.Anything, match.StatusScheduled,
		reconcileNow.Add(time.Hour), reconcileNow.Add(24*time.Hour)).
		Return(nil, nil).Once()

	for tier, want := range map[Tier]int{TierLive: 2, TierPaused: 1, TierNear: 1, TierFar: 0} {
		got, err := s.RunTier(context.Background(), tier)
		if err != nil {
			t.Fatalf("RunTier(%s) error: %v", tier, err)
		}
		if got.Selected != want || got.Tracked != want {
			t.Fatalf("RunTier(%s) = %+v, want %d selected and tracked", tier, got, want)
		}
	}

	sort.Strings(tracker.calls)
	want := []string{"live-1", "live-2", "near-1", "paused-1"}
	if len(tracker.calls) != len(want) {
		t.Fatalf("tracked %v, want %v", tracker.calls, want)
	}
	for i := range want {
		if tracker.calls[i] != want[i] {
			t.Fatalf("tracked %v, want %v", tracker.calls, want)
		}
	}
}

func TestPollScheduler_FailuresAreContainedPerMatch(t *testing.T) {
	t.Parallel()

	repo := matchmock.NewRepository(t)
	tracker := &recordingTracker{results: map[string]func() (bool, error){
		"boom":   func() (bool, error) { panic("nil pointer in provider") },
		"broken": func() (bool, error) { return true, errors.New("save tracked match: connection refused") },
		"busy":   func() (bool, error) { return false, nil },
	}}
	s := newTestScheduler(t, repo, tracker)

	repo.On("ListTrackable", mock.Anything, match.StatusInPlay).
		Return([]match.Match{{ID: "boom"}, {ID: "broken"}, {ID: "busy"}, {ID: "ok-1"}, {ID: "ok-2"}}, nil).
		Once()

	got, err := s.RunTier(context.Background(), TierLive)
	if err != nil {
		t.Fatalf("RunTier error: %v", err)
	}
	if got.Selected != 5 || got.Tracked != 2 || got.Failed != 2 || got.Skipped != 1 {
		t.Fatalf("unexpected tick result %+v", got)
	}
}

func TestPollScheduler_SelectionErrorIsReturned(t *testing.T) {
	t.Parallel()

	repo := matchmock.NewRepository(t)
	s := newTestScheduler(t, repo, &recordingTracker{})

	repo.On("ListTrackable", mock.Anything, match.StatusPaused).Return(nil, errors.New("db down")).Once()

	if _, err := s.RunTier(context.Background(), TierPaused); err == nil {
		t.Fatalf("expected selection error")
	}
}

func TestPollScheduler_StartRunsStartupScan(t *testing.T) {
	t.Parallel()

	repo := matchmock.NewRepository(t)
	tracker := &recordingTracker{}
	s := newTestScheduler(t, repo, tracker)

	repo.On("ListTrackableByKickoff", mock.Anything, match.StatusScheduled,
		reconcileNow.Add(-4*time.Hour), reconcileNow.Add(time.Hour)).
		Return([]match.Match{{ID: "late-start"}}, nil).Once()

	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start error: %v", err)
	}
	if err := s.Start(context.Background()); err == nil {
		t.Fatalf("expected second Start to fail")
	}

	stopCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.Stop(stopCtx); err != nil {
		t.Fatalf("Stop error: %v", err)
	}

	tracker.mu.Lock()
	defer tracker.mu.Unlock()
	if len(tracker.calls) != 1 || tracker.calls[0] != "late-start" {
		t.Fatalf("expected startup scan to track late-start, got %v", tracker.calls)
	}
}

func TestSchedulerConfig_Validate(t *testing.T) {
	t.Parallel()

	if err := DefaultSchedulerConfig().Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}

	cfg := DefaultSchedulerConfig()
	cfg.LiveInterval = time.Minute
	cfg.PausedInterval = 30 * time.Second
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected live slower than paused to be rejected")
	}

	cfg = DefaultSchedulerConfig()
	cfg.FarLookahead = 30 * time.Minute
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected far window inside near window to be rejected")
	}

	cfg = DefaultSchedulerConfig()
	cfg.Workers = 0
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected zero workers to be rejected")
	}
}
