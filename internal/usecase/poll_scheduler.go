package usecase

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/panjf2000/ants/v2"
	"github.com/riskibarqy/score-tracker/internal/domain/match"
	"github.com/riskibarqy/score-tracker/internal/platform/logging"
	"github.com/robfig/cron/v3"
	"github.com/sourcegraph/conc/panics"
)

type Tier string

const (
	TierLive   Tier = "live"
	TierPaused Tier = "paused"
	TierNear   Tier = "near"
	TierFar    Tier = "far"
)

type SchedulerConfig struct {
	Workers        int
	LiveInterval   time.Duration
	PausedInterval time.Duration
	NearInterval   time.Duration
	FarInterval    time.Duration
	NearLookback   time.Duration
	NearLookahead  time.Duration
	FarLookahead   time.Duration
	StartupScan    bool
}

func DefaultSchedulerConfig() SchedulerConfig {
	return SchedulerConfig{
		Workers:        16,
		LiveInterval:   15 * time.Second,
		PausedInterval: 45 * time.Second,
		NearInterval:   60 * time.Second,
		FarInterval:    10 * time.Minute,
		NearLookback:   4 * time.Hour,
		NearLookahead:  time.Hour,
		FarLookahead:   24 * time.Hour,
		StartupScan:    true,
	}
}

// Validate enforces that hotter tiers are polled at least as often as colder ones.
func (c SchedulerConfig) Validate() error {
	if c.Workers < 1 {
		return fmt.Errorf("scheduler workers must be > 0")
	}
	intervals := []struct {
		name  string
		value time.Duration
	}{
		{"live", c.LiveInterval},
		{"paused", c.PausedInterval},
		{"near", c.NearInterval},
		{"far", c.FarInterval},
	}
	for i, item := range intervals {
		if item.value <= 0 {
			return fmt.Errorf("scheduler %s interval must be > 0", item.name)
		}
		if i > 0 && item.value < intervals[i-1].value {
			return fmt.Errorf("scheduler %s interval (%s) must not be shorter than %s interval (%s)",
				item.name, item.value, intervals[i-1].name, intervals[i-1].value)
		}
	}
	if c.NearLookback < 0 || c.NearLookahead <= 0 || c.FarLookahead <= c.NearLookahead {
		return fmt.Errorf("scheduler windows must satisfy near lookahead > 0 and far lookahead > near lookahead")
	}
	return nil
}

func (c SchedulerConfig) interval(tier Tier) time.Duration {
	switch tier {
	case TierLive:
		return c.LiveInterval
	case TierPaused:
		return c.PausedInterval
	case TierNear:
		return c.NearInterval
	default:
		return c.FarInterval
	}
}

type matchTracker interface {
	TryTrack(ctx context.Context, matchID string) (bool, error)
}

type TickResult struct {
	Tier     Tier
	Selected int
	Tracked  int
	Skipped  int
	Failed   int
}

// PollScheduler drives tracking passes on a per-tier cadence. Ticks of
// different tiers may overlap; ticks of the same tier never do.
type PollScheduler struct {
	matches match.Repository
	tracker matchTracker
	cfg     SchedulerConfig
	logger  *logging.Logger
	pool    *ants.Pool
	cron    *cron.Cron
	now     func() time.Time

	mu     sync.Mutex
	cancel context.CancelFunc
	scans  sync.WaitGroup
}

func NewPollScheduler(matches match.Repository, tracker matchTracker, cfg SchedulerConfig, logger *logging.Logger) (*PollScheduler, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = logging.Default()
	}

	pool, err := ants.NewPool(cfg.Workers)
	if err != nil {
		return nil, fmt.Errorf("create worker pool: %w", err)
	}

	cronLog := cronLogger{logger: logger}
	return &PollScheduler{
		matches: matches,
		tracker: tracker,
		cfg:     cfg,
		logger:  logger,
		pool:    pool,
		cron: cron.New(
			cron.WithLocation(time.UTC),
			cron.WithLogger(cronLog),
			cron.WithChain(cron.Recover(cronLog), cron.SkipIfStillRunning(cronLog)),
		),
		now: time.Now,
	}, nil
}

func (s *PollScheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		return fmt.Errorf("scheduler already started")
	}

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	for _, tier := range []Tier{TierLive, TierPaused, TierNear, TierFar} {
		tier := tier
		spec := "@every " + s.cfg.interval(tier).String()
		if _, err := s.cron.AddFunc(spec, func() { s.tick(runCtx, tier) }); err != nil {
			cancel()
			return fmt.Errorf("schedule %s tier: %w", tier, err)
		}
	}
	s.cancel = cancel
	s.cron.Start()

	if s.cfg.StartupScan {
		s.scans.Add(1)
		go func() {
			defer s.scans.Done()
			s.logger.InfoContext(runCtx, "running startup scan of near-kickoff window")
			s.tick(runCtx, TierNear)
		}()
	}

	s.logger.InfoContext(ctx, "poll scheduler started",
		"workers", s.cfg.Workers,
		"live_interval", s.cfg.LiveInterval,
		"paused_interval", s.cfg.PausedInterval,
		"near_interval", s.cfg.NearInterval,
		"far_interval", s.cfg.FarInterval,
	)
	return nil
}

// Stop waits for running ticks until ctx expires, then cancels them.
func (s *PollScheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	cancel := s.cancel
	s.cancel = nil
	s.mu.Unlock()

	defer s.pool.Release()
	if cancel == nil {
		return nil
	}

	done := make(chan struct{})
	go func() {
		<-s.cron.Stop().Done()
		s.scans.Wait()
		close(done)
	}()

	select {
	case <-done:
		cancel()
		return nil
	case <-ctx.Done():
		cancel()
		return fmt.Errorf("stop poll scheduler: %w", ctx.Err())
	}
}

func (s *PollScheduler) tick(ctx context.Context, tier Tier) {
	result, err := s.RunTier(ctx, tier)
	if err != nil {
		s.logger.ErrorContext(ctx, "poll tier failed", "tier", tier, "error", err)
		return
	}
	if result.Selected > 0 {
		s.logger.DebugContext(ctx, "poll tier completed",
			"tier", tier,
			"selected", result.Selected,
			"tracked", result.Tracked,
			"skipped", result.Skipped,
			"failed", result.Failed,
		)
	}
}

// RunTier selects the tier's matches and tracks them on the worker pool. It
// returns after every dispatched pass has finished.
func (s *PollScheduler) RunTier(ctx context.Context, tier Tier) (TickResult, error) {
	result := TickResult{Tier: tier}

	items, err := s.selectMatches(ctx, tier)
	if err != nil {
		return result, err
	}
	result.Selected = len(items)
	if len(items) == 0 {
		return result, nil
	}

	var (
		tracked atomic.Int32
		skipped atomic.Int32
		failed  atomic.Int32
		workers sync.WaitGroup
	)
	for _, item := range items {
		matchID := item.ID
		workers.Add(1)
		if err := s.pool.Submit(func() {
			defer workers.Done()

			var (
				ok      bool
				taskErr error
				catcher panics.Catcher
			)
			catcher.Try(func() {
				ok, taskErr = s.tracker.TryTrack(ctx, matchID)
			})
			if recovered := catcher.Recovered(); recovered != nil {
				failed.Add(1)
				s.logger.ErrorContext(ctx, "tracking pass panicked", "tier", tier, "match_id", matchID, "panic", recovered.String())
				return
			}
			switch {
			case taskErr != nil:
				failed.Add(1)
				s.logger.ErrorContext(ctx, "tracking pass failed", "tier", tier, "match_id", matchID, "error", taskErr)
			case !ok:
				skipped.Add(1)
			default:
				tracked.Add(1)
			}
		}); err != nil {
			workers.Done()
			failed.Add(1)
			s.logger.ErrorContext(ctx, "submit tracking pass failed", "tier", tier, "match_id", matchID, "error", err)
		}
	}
	workers.Wait()

	result.Tracked = int(tracked.Load())
	result.Skipped = int(skipped.Load())
	result.Failed = int(failed.Load())
	return result, nil
}

func (s *PollScheduler) selectMatches(ctx context.Context, tier Tier) ([]match.Match, error) {
	now := s.now().UTC()
	var (
		items []match.Match
		err   error
	)
	switch tier {
	case TierLive:
		items, err = s.matches.ListTrackable(ctx, match.StatusInPlay)
	case TierPaused:
		items, err = s.matches.ListTrackable(ctx, match.StatusPaused)
	case TierNear:
		items, err = s.matches.ListTrackableByKickoff(ctx, match.StatusScheduled,
			now.Add(-s.cfg.NearLookback), now.Add(s.cfg.NearLookahead))
	case TierFar:
		items, err = s.matches.ListTrackableByKickoff(ctx, match.StatusScheduled,
			now.Add(s.cfg.NearLookahead), now.Add(s.cfg.FarLookahead))
	default:
		return nil, fmt.Errorf("unknown tier %q", tier)
	}
	if err != nil {
		return nil, fmt.Errorf("select %s matches: %w", tier, err)
	}
	return items, nil
}

type cronLogger struct {
	logger *logging.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.logger.Debug("cron: "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.logger.Error("cron: "+msg, append(keysAndValues, "error", err)...)
}
