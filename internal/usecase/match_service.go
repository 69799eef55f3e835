package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/riskibarqy/score-tracker/internal/domain/match"
	"github.com/riskibarqy/score-tracker/internal/platform/id"
	"github.com/riskibarqy/score-tracker/internal/platform/logging"
	"github.com/riskibarqy/score-tracker/internal/platform/resilience"
)

const defaultEventListLimit = 100

type CreateMatchInput struct {
	ExternalID string
	HomeTeam   string
	AwayTeam   string
	Source     string
	Locator    string
	KickoffAt  time.Time
}

type ManualUpdateInput struct {
	MatchID     string
	Status      string
	ScoreHome   *int
	ScoreAway   *int
	PenaltyHome *int
	PenaltyAway *int
}

// MatchService holds operator entry points. Every mutation runs under the
// same per-match lock as automatic tracking.
type MatchService struct {
	matches   match.Repository
	events    match.EventRepository
	tracker   *TrackingService
	locks     *resilience.KeyedMutex
	ids       id.Generator
	publisher EventPublisher
	logger    *logging.Logger
	now       func() time.Time
}

func NewMatchService(
	matches match.Repository,
	events match.EventRepository,
	tracker *TrackingService,
	locks *resilience.KeyedMutex,
	ids id.Generator,
	publisher EventPublisher,
	logger *logging.Logger,
) *MatchService {
	if locks == nil {
		locks = resilience.NewKeyedMutex()
	}
	if ids == nil {
		ids = id.NewUUIDGenerator()
	}
	if publisher == nil {
		publisher = nopPublisher{}
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &MatchService{
		matches:   matches,
		events:    events,
		tracker:   tracker,
		locks:     locks,
		ids:       ids,
		publisher: publisher,
		logger:    logger,
		now:       time.Now,
	}
}

func (s *MatchService) Create(ctx context.Context, input CreateMatchInput) (match.Match, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.MatchService.Create")
	defer span.End()

	input.HomeTeam = strings.TrimSpace(input.HomeTeam)
	input.AwayTeam = strings.TrimSpace(input.AwayTeam)
	input.Locator = strings.TrimSpace(input.Locator)
	source := match.ParseSourceType(input.Source)

	if input.HomeTeam == "" || input.AwayTeam == "" {
		return match.Match{}, fmt.Errorf("%w: home_team and away_team are required", ErrInvalidInput)
	}
	if input.Locator == "" {
		return match.Match{}, fmt.Errorf("%w: locator is required", ErrInvalidInput)
	}
	if input.KickoffAt.IsZero() {
		return match.Match{}, fmt.Errorf("%w: kickoff_at is required", ErrInvalidInput)
	}
	if s.tracker != nil {
		if _, err := s.tracker.registry.Resolve(source); err != nil {
			return match.Match{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
		}
	}

	matchID, err := s.ids.NewID()
	if err != nil {
		return match.Match{}, fmt.Errorf("generate match id: %w", err)
	}

	now := s.now()
	m := match.Match{
		ID:              matchID,
		ExternalID:      strings.TrimSpace(input.ExternalID),
		HomeTeam:        input.HomeTeam,
		AwayTeam:        input.AwayTeam,
		Source:          source,
		Locator:         input.Locator,
		KickoffAt:       input.KickoffAt.UTC(),
		Status:          match.StatusScheduled,
		TrackingEnabled: true,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := s.matches.Create(ctx, m); err != nil {
		if errors.Is(err, match.ErrDuplicateID) {
			return match.Match{}, fmt.Errorf("%w: id=%s", ErrConflict, m.ID)
		}
		return match.Match{}, fmt.Errorf("create match: %w", err)
	}

	s.logger.InfoContext(ctx, "match registered", "match_id", m.ID, "source", m.Source, "kickoff_at", m.KickoffAt)
	return m, nil
}

func (s *MatchService) Get(ctx context.Context, matchID string) (match.Match, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.MatchService.Get", matchAttr(matchID))
	defer span.End()

	m, ok, err := s.matches.GetByID(ctx, strings.TrimSpace(matchID))
	if err != nil {
		return match.Match{}, fmt.Errorf("get match: %w", err)
	}
	if !ok {
		return match.Match{}, fmt.Errorf("%w: match=%s", ErrNotFound, matchID)
	}
	return m, nil
}

func (s *MatchService) List(ctx context.Context, filter match.ListFilter) ([]match.Match, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.MatchService.List")
	defer span.End()

	if filter.Status != "" && !filter.Status.Valid() {
		return nil, fmt.Errorf("%w: unknown status %q", ErrInvalidInput, filter.Status)
	}
	if filter.Limit < 0 || filter.Offset < 0 {
		return nil, fmt.Errorf("%w: limit and offset must be >= 0", ErrInvalidInput)
	}

	items, err := s.matches.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list matches: %w", err)
	}
	return items, nil
}

func (s *MatchService) ListEvents(ctx context.Context, matchID string, limit int) ([]match.Event, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.MatchService.ListEvents", matchAttr(matchID))
	defer span.End()

	if _, err := s.Get(ctx, matchID); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = defaultEventListLimit
	}

	items, err := s.events.ListByMatch(ctx, matchID, limit)
	if err != nil {
		return nil, fmt.Errorf("list match events: %w", err)
	}
	return items, nil
}

// ManualUpdate applies an operator correction and turns tracking off so the
// next poll cannot overwrite it.
func (s *MatchService) ManualUpdate(ctx context.Context, input ManualUpdateInput) (match.Match, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.MatchService.ManualUpdate", matchAttr(input.MatchID))
	defer span.End()

	status, err := match.ParseStatus(input.Status)
	if err != nil {
		return match.Match{}, fmt.Errorf("%w: status must be one of SCHEDULED, IN_PLAY, PAUSED, FINISHED", ErrInvalidInput)
	}
	for name, v := range map[string]*int{
		"score_home":   input.ScoreHome,
		"score_away":   input.ScoreAway,
		"penalty_home": input.PenaltyHome,
		"penalty_away": input.PenaltyAway,
	} {
		if v != nil && *v < 0 {
			return match.Match{}, fmt.Errorf("%w: %s must be >= 0", ErrInvalidInput, name)
		}
	}

	return s.mutate(ctx, input.MatchID, func(m *match.Match, now time.Time) []match.Event {
		event := match.NewEvent(*m, match.EventManualUpdate, match.TriggerManual, now)
		event.OldStatus = match.StatusPtr(m.Status)
		event.NewStatus = match.StatusPtr(status)
		event.OldScoreHome = m.ScoreHome
		event.OldScoreAway = m.ScoreAway
		event.NewScoreHome = input.ScoreHome
		event.NewScoreAway = input.ScoreAway

		m.Status = status
		m.ScoreHome = input.ScoreHome
		m.ScoreAway = input.ScoreAway
		m.PenaltyHome = input.PenaltyHome
		m.PenaltyAway = input.PenaltyAway
		m.WinnerHomeTAB, m.WinnerAwayTAB = match.ShootoutWinners(m.ScoreHome, m.ScoreAway, m.PenaltyHome, m.PenaltyAway)
		m.ClearCandidate()
		m.TrackingEnabled = false
		if status == match.StatusPaused {
			m.HalfTimeSeen = true
		}

		s.logger.WarnContext(ctx, "manual update applied, tracking disabled",
			"match_id", m.ID,
			"status", status,
			"score", formatScore(m.ScoreHome, m.ScoreAway),
		)
		return []match.Event{event}
	})
}

func (s *MatchService) EnableTracking(ctx context.Context, matchID string) (match.Match, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.MatchService.EnableTracking", matchAttr(matchID))
	defer span.End()

	return s.mutate(ctx, matchID, func(m *match.Match, now time.Time) []match.Event {
		if m.TrackingEnabled {
			return nil
		}
		m.TrackingEnabled = true
		m.ErrorCount = 0
		m.LastError = nil
		return []match.Event{match.NewEvent(*m, match.EventTrackingEnabled, match.TriggerAdmin, now)}
	})
}

func (s *MatchService) DisableTracking(ctx context.Context, matchID string) (match.Match, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.MatchService.DisableTracking", matchAttr(matchID))
	defer span.End()

	return s.mutate(ctx, matchID, func(m *match.Match, now time.Time) []match.Event {
		if !m.TrackingEnabled {
			return nil
		}
		m.TrackingEnabled = false
		return []match.Event{match.NewEvent(*m, match.EventTrackingDisabled, match.TriggerAdmin, now)}
	})
}

// Refresh polls the match right away, waiting behind any scheduled pass.
func (s *MatchService) Refresh(ctx context.Context, matchID string) (match.Match, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.MatchService.Refresh", matchAttr(matchID))
	defer span.End()

	if s.tracker == nil {
		return match.Match{}, fmt.Errorf("%w: tracking is not configured", ErrDependencyUnavailable)
	}
	matchID = strings.TrimSpace(matchID)
	if matchID == "" {
		return match.Match{}, fmt.Errorf("%w: match id is required", ErrInvalidInput)
	}

	audit := match.Event{
		MatchID:     matchID,
		Type:        match.EventManualRefresh,
		TriggeredBy: match.TriggerAdmin,
		OccurredAt:  s.now(),
	}
	m, err := s.tracker.Track(ctx, matchID, &audit)
	if err != nil {
		return match.Match{}, err
	}
	s.logger.InfoContext(ctx, "match refreshed manually", "match_id", matchID, "status", m.Status)
	return m, nil
}

// DeleteFinished removes finished matches together with their audit trail.
func (s *MatchService) DeleteFinished(ctx context.Context) (int, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.MatchService.DeleteFinished")
	defer span.End()

	ids, err := s.matches.DeleteFinished(ctx)
	if err != nil {
		return 0, fmt.Errorf("delete finished matches: %w", err)
	}
	if len(ids) > 0 {
		s.logger.InfoContext(ctx, "deleted finished matches", "count", len(ids))
	}
	return len(ids), nil
}

func (s *MatchService) mutate(ctx context.Context, matchID string, apply func(m *match.Match, now time.Time) []match.Event) (match.Match, error) {
	matchID = strings.TrimSpace(matchID)
	if matchID == "" {
		return match.Match{}, fmt.Errorf("%w: match id is required", ErrInvalidInput)
	}

	unlock := s.locks.Lock(matchID)
	defer unlock()

	m, ok, err := s.matches.GetByID(ctx, matchID)
	if err != nil {
		return match.Match{}, fmt.Errorf("get match: %w", err)
	}
	if !ok {
		return match.Match{}, fmt.Errorf("%w: match=%s", ErrNotFound, matchID)
	}

	now := s.now()
	events := apply(&m, now)
	if len(events) == 0 {
		return m, nil
	}
	m.UpdatedAt = now

	if err := s.matches.Save(ctx, m, events); err != nil {
		if errors.Is(err, match.ErrNotFound) {
			return match.Match{}, fmt.Errorf("%w: match=%s was deleted", ErrNotFound, matchID)
		}
		return match.Match{}, fmt.Errorf("save match: %w", err)
	}
	if err := s.publisher.Publish(ctx, events); err != nil {
		s.logger.WarnContext(ctx, "publish match events failed", "match_id", m.ID, "error", err)
	}
	return m, nil
}
