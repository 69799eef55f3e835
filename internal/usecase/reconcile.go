package usecase

import (
	"strings"
	"time"

	"github.com/riskibarqy/score-tracker/internal/domain/match"
)

type ReconcileConfig struct {
	RequiredConfirmations int
	MaxErrors             int
}

func DefaultReconcileConfig() ReconcileConfig {
	return ReconcileConfig{
		RequiredConfirmations: 3,
		MaxErrors:             5,
	}
}

func normalizeReconcileConfig(cfg ReconcileConfig) ReconcileConfig {
	defaults := DefaultReconcileConfig()
	if cfg.RequiredConfirmations < 1 {
		cfg.RequiredConfirmations = defaults.RequiredConfirmations
	}
	if cfg.MaxErrors < 1 {
		cfg.MaxErrors = defaults.MaxErrors
	}
	return cfg
}

type RejectionKind string

const (
	RejectionInvalidTransition RejectionKind = "invalid_transition"
	RejectionScoreRollback     RejectionKind = "score_rollback"
)

// Rejection records input the reducer ignored so the caller can log it.
type Rejection struct {
	Kind       RejectionKind
	FromStatus match.Status
	ToStatus   match.Status
	OldHome    *int
	OldAway    *int
	NewHome    *int
	NewAway    *int
}

type ReconcileOutcome struct {
	Match      match.Match
	Events     []match.Event
	Rejections []Rejection
}

// Reconcile folds one snapshot into the match and returns the new state with
// the audit events it produced. It does no I/O and never mutates current.
func Reconcile(current match.Match, snap match.Snapshot, normalized match.Status, cfg ReconcileConfig, now time.Time) ReconcileOutcome {
	cfg = normalizeReconcileConfig(cfg)
	r := reconciler{m: current, now: now, cfg: cfg}

	if !snap.Found {
		r.fetchFailed(snap.FailureReason())
		return r.outcome()
	}

	if now.Before(current.KickoffAt) {
		r.m.ErrorCount = 0
		r.m.LastError = nil
		r.m.LastFetchAt = match.TimePtr(now)
		if r.m.Status == "" {
			r.m.Status = match.StatusScheduled
		}
		return r.outcome()
	}

	r.m.LastFetchAt = match.TimePtr(now)
	r.m.RawStatus = snap.RawStatus
	r.m.Minute = snap.Minute
	r.m.ErrorCount = 0
	r.m.LastError = nil
	if r.m.Status == "" {
		r.m.Status = match.StatusScheduled
	}

	r.applyStatus(normalized, snap)
	r.applyScore(normalized, snap)

	return r.outcome()
}

type reconciler struct {
	m          match.Match
	events     []match.Event
	rejections []Rejection
	now        time.Time
	cfg        ReconcileConfig
}

func (r *reconciler) outcome() ReconcileOutcome {
	return ReconcileOutcome{Match: r.m, Events: r.events, Rejections: r.rejections}
}

func (r *reconciler) fetchFailed(reason string) {
	r.m.ErrorCount++
	r.m.LastError = match.StringPtr(reason)
	r.m.LastFetchAt = match.TimePtr(r.now)

	if r.m.ErrorCount < r.cfg.MaxErrors || !r.m.TrackingEnabled {
		return
	}

	r.m.TrackingEnabled = false
	event := match.NewEvent(r.m, match.EventErrorDetected, match.TriggerScheduler, r.now)
	event.Minute = nil
	event.RawStatus = match.StringPtr(reason)
	r.events = append(r.events, event)
}

func (r *reconciler) applyStatus(next match.Status, snap match.Snapshot) {
	current := r.m.Status

	if current == match.StatusFinished &&
		(next == match.StatusInPlay || next == match.StatusPaused) &&
		hasMinute(snap.Minute) {
		r.m.Status = next
		r.m.TrackingEnabled = true
		r.m.ClearCandidate()
		r.statusEvent(match.EventStatusChange, current, next, match.TriggerAutoCorrection)
		return
	}

	if current == match.StatusFinished {
		return
	}

	if next == current {
		if r.m.StatusCandidate != nil && *r.m.StatusCandidate != current {
			r.m.ClearCandidate()
		}
		return
	}

	if !match.CanTransition(current, next) {
		r.rejections = append(r.rejections, Rejection{
			Kind:       RejectionInvalidTransition,
			FromStatus: current,
			ToStatus:   next,
		})
		return
	}

	if r.m.StatusCandidate == nil || *r.m.StatusCandidate != next {
		r.m.StatusCandidate = match.StatusPtr(next)
		r.m.ConsecutiveSameCandidate = 1
		r.m.StatusCandidateSince = match.TimePtr(r.now)
		r.statusEvent(match.EventAntiFlappingActivated, current, next, match.TriggerScheduler)
	} else {
		r.m.ConsecutiveSameCandidate++
	}

	// A single FINISHED observation is trusted without further confirmations.
	commit := r.m.ConsecutiveSameCandidate >= r.cfg.RequiredConfirmations ||
		(next == match.StatusFinished && r.m.ConsecutiveSameCandidate >= 1)
	if !commit {
		return
	}

	r.m.Status = next
	r.m.ClearCandidate()
	if next == match.StatusPaused {
		r.m.HalfTimeSeen = true
	}
	r.statusEvent(match.EventStatusChange, current, next, match.TriggerScheduler)
	if next == match.StatusFinished {
		r.m.TrackingEnabled = false
	}
}

func (r *reconciler) applyScore(normalized match.Status, snap match.Snapshot) {
	if !snap.HasScore() {
		return
	}

	oldHome, oldAway := r.m.ScoreHome, r.m.ScoreAway
	newHome, newAway := snap.Home, snap.Away
	if match.EqualInt(oldHome, newHome) && match.EqualInt(oldAway, newAway) {
		return
	}

	inverted := oldHome != nil && oldAway != nil && *newHome == *oldAway && *newAway == *oldHome
	if !inverted && normalized != match.StatusFinished && isRollback(oldHome, oldAway, newHome, newAway) {
		r.rejections = append(r.rejections, Rejection{
			Kind:    RejectionScoreRollback,
			OldHome: oldHome,
			OldAway: oldAway,
			NewHome: newHome,
			NewAway: newAway,
		})
		return
	}

	r.m.ScoreHome = match.IntPtr(*newHome)
	r.m.ScoreAway = match.IntPtr(*newAway)

	event := match.NewEvent(r.m, match.EventScoreChange, match.TriggerScheduler, r.now)
	event.OldScoreHome = oldHome
	event.OldScoreAway = oldAway
	event.NewScoreHome = r.m.ScoreHome
	event.NewScoreAway = r.m.ScoreAway
	r.events = append(r.events, event)
}

func (r *reconciler) statusEvent(eventType match.EventType, from, to match.Status, trigger match.Trigger) {
	event := match.NewEvent(r.m, eventType, trigger, r.now)
	event.OldStatus = match.StatusPtr(from)
	event.NewStatus = match.StatusPtr(to)
	r.events = append(r.events, event)
}

func isRollback(oldHome, oldAway, newHome, newAway *int) bool {
	if oldHome == nil || oldAway == nil {
		return false
	}
	return *newHome < *oldHome || *newAway < *oldAway
}

func hasMinute(minute *string) bool {
	return minute != nil && strings.TrimSpace(*minute) != ""
}
