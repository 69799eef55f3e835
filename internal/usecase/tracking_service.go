package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/riskibarqy/score-tracker/internal/domain/match"
	"github.com/riskibarqy/score-tracker/internal/platform/logging"
	"github.com/riskibarqy/score-tracker/internal/platform/resilience"
	"github.com/sourcegraph/conc/panics"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

type TrackingConfig struct {
	Reconcile    ReconcileConfig
	FetchTimeout time.Duration
}

func DefaultTrackingConfig() TrackingConfig {
	return TrackingConfig{
		Reconcile:    DefaultReconcileConfig(),
		FetchTimeout: 15 * time.Second,
	}
}

// TrackingService runs one fetch-normalize-reconcile-persist pass per match.
// Passes for the same match never overlap.
type TrackingService struct {
	matches   match.Repository
	registry  *ProviderRegistry
	locks     *resilience.KeyedMutex
	publisher EventPublisher
	metrics   TrackingMetrics
	logger    *logging.Logger
	cfg       TrackingConfig
	now       func() time.Time
}

func NewTrackingService(
	matches match.Repository,
	registry *ProviderRegistry,
	locks *resilience.KeyedMutex,
	publisher EventPublisher,
	metrics TrackingMetrics,
	logger *logging.Logger,
	cfg TrackingConfig,
) *TrackingService {
	if locks == nil {
		locks = resilience.NewKeyedMutex()
	}
	if publisher == nil {
		publisher = nopPublisher{}
	}
	if metrics == nil {
		metrics = nopMetrics{}
	}
	if logger == nil {
		logger = logging.Default()
	}
	defaults := DefaultTrackingConfig()
	if cfg.FetchTimeout <= 0 {
		cfg.FetchTimeout = defaults.FetchTimeout
	}
	cfg.Reconcile = normalizeReconcileConfig(cfg.Reconcile)

	return &TrackingService{
		matches:   matches,
		registry:  registry,
		locks:     locks,
		publisher: publisher,
		metrics:   metrics,
		logger:    logger,
		cfg:       cfg,
		now:       time.Now,
	}
}

// TryTrack runs a scheduled pass unless one is already in flight for the
// match, in which case it reports tracked=false.
func (s *TrackingService) TryTrack(ctx context.Context, matchID string) (tracked bool, err error) {
	unlock, ok := s.locks.TryLock(matchID)
	if !ok {
		s.metrics.IncSkipped(skipReasonInFlight)
		s.logger.DebugContext(ctx, "tracking pass already in flight", "match_id", matchID)
		return false, nil
	}
	defer unlock()

	_, err = s.trackLocked(ctx, matchID, false, nil)
	return true, err
}

// Track waits for any in-flight pass and then polls the match, even when
// tracking is disabled. The optional event is persisted with the pass.
func (s *TrackingService) Track(ctx context.Context, matchID string, audit *match.Event) (match.Match, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.TrackingService.Track", matchAttr(matchID))
	defer span.End()

	unlock := s.locks.Lock(matchID)
	defer unlock()

	return s.trackLocked(ctx, matchID, true, audit)
}

func (s *TrackingService) trackLocked(ctx context.Context, matchID string, force bool, audit *match.Event) (match.Match, error) {
	current, ok, err := s.matches.GetByID(ctx, matchID)
	if err != nil {
		return match.Match{}, fmt.Errorf("get match: %w", err)
	}
	if !ok {
		return match.Match{}, fmt.Errorf("%w: match=%s", ErrNotFound, matchID)
	}
	if !force && !current.TrackingEnabled {
		s.metrics.ObservePoll(current.Source, pollResultDisabled, 0)
		return current, nil
	}

	started := s.now()
	snap := s.fetch(ctx, current)
	if err := ctx.Err(); err != nil {
		// Shutting down; a cancelled pass must not count against the error budget.
		return current, err
	}
	normalized := match.Normalize(snap.RawStatus, snap.Minute, current.Source)

	now := s.now()
	out := Reconcile(current, snap, normalized, s.cfg.Reconcile, now)
	out.Match.UpdatedAt = now
	s.logRejections(ctx, out)

	events := out.Events
	if audit != nil {
		audit.MatchID = current.ID
		events = append([]match.Event{*audit}, events...)
	}

	if err := s.matches.Save(ctx, out.Match, events); err != nil {
		s.metrics.ObservePoll(current.Source, pollResultFailed, now.Sub(started))
		if errors.Is(err, match.ErrNotFound) {
			return match.Match{}, fmt.Errorf("%w: match=%s was deleted", ErrNotFound, matchID)
		}
		return current, fmt.Errorf("save tracked match: %w", err)
	}

	result := pollResultOK
	switch {
	case !snap.Found:
		result = pollResultFailed
		s.logger.WarnContext(ctx, "match fetch failed",
			"match_id", current.ID,
			"source", current.Source,
			"error_count", out.Match.ErrorCount,
			"max_errors", s.cfg.Reconcile.MaxErrors,
			"error", snap.FailureReason(),
		)
	case now.Before(current.KickoffAt):
		result = pollResultGated
	}
	s.metrics.ObservePoll(current.Source, result, now.Sub(started))

	for _, event := range events {
		s.metrics.IncEvent(event.Type)
		if event.Type == match.EventErrorDetected {
			s.logger.ErrorContext(ctx, "match error budget exhausted, tracking disabled",
				"match_id", current.ID,
				"source", current.Source,
				"error", snap.FailureReason(),
			)
		}
	}
	if current.Status != out.Match.Status {
		s.logger.InfoContext(ctx, "match status changed",
			"match_id", current.ID,
			"from", current.Status,
			"to", out.Match.Status,
			"tracking_enabled", out.Match.TrackingEnabled,
		)
	}

	s.publish(ctx, events)
	return out.Match, nil
}

// fetch never fails: resolution errors, provider errors, timeouts and panics
// all become a not-found snapshot carrying the reason.
func (s *TrackingService) fetch(ctx context.Context, m match.Match) match.Snapshot {
	provider, err := s.registry.Resolve(m.Source)
	if err != nil {
		s.logger.ErrorContext(ctx, "resolve snapshot provider failed", "match_id", m.ID, "source", m.Source, "error", err)
		return match.Failed(err)
	}

	fetchCtx, cancel := context.WithTimeout(ctx, s.cfg.FetchTimeout)
	defer cancel()

	span := trace.SpanFromContext(fetchCtx)
	span.SetAttributes(
		attribute.String("match.id", m.ID),
		attribute.String("match.source", string(m.Source)),
	)

	var (
		snap     match.Snapshot
		fetchErr error
		catcher  panics.Catcher
	)
	catcher.Try(func() {
		snap, fetchErr = provider.Fetch(fetchCtx, m.Locator)
	})
	if recovered := catcher.Recovered(); recovered != nil {
		s.logger.ErrorContext(ctx, "snapshot provider panicked", "match_id", m.ID, "source", m.Source, "panic", recovered.String())
		return match.Failed(fmt.Errorf("provider panic: %v", recovered.Value))
	}
	if fetchErr != nil {
		if errors.Is(fetchCtx.Err(), context.DeadlineExceeded) {
			fetchErr = fmt.Errorf("fetch timed out after %s: %w", s.cfg.FetchTimeout, fetchErr)
		}
		return match.Failed(fetchErr)
	}
	return snap
}

func (s *TrackingService) publish(ctx context.Context, events []match.Event) {
	if len(events) == 0 {
		return
	}
	if err := s.publisher.Publish(ctx, events); err != nil {
		s.logger.WarnContext(ctx, "publish match events failed", "count", len(events), "error", err)
	}
}

func (s *TrackingService) logRejections(ctx context.Context, out ReconcileOutcome) {
	for _, r := range out.Rejections {
		s.metrics.IncRejection(r.Kind)
		switch r.Kind {
		case RejectionInvalidTransition:
			s.logger.WarnContext(ctx, "invalid status transition ignored",
				"match_id", out.Match.ID,
				"from", r.FromStatus,
				"to", r.ToStatus,
			)
		case RejectionScoreRollback:
			s.logger.WarnContext(ctx, "score rollback rejected",
				"match_id", out.Match.ID,
				"old_score", formatScore(r.OldHome, r.OldAway),
				"new_score", formatScore(r.NewHome, r.NewAway),
			)
		}
	}
}

func formatScore(home, away *int) string {
	var b strings.Builder
	writeScorePart(&b, home)
	b.WriteByte('-')
	writeScorePart(&b, away)
	return b.String()
}

func writeScorePart(b *strings.Builder, v *int) {
	if v == nil {
		b.WriteByte('?')
		return
	}
	fmt.Fprintf(b, "%d", *v)
}
