package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/riskibarqy/score-tracker/internal/domain/match"
)

type MatchRepository struct {
	mu      sync.RWMutex
	matches map[string]match.Match
	events  *EventRepository
}

func NewMatchRepository(events *EventRepository, seed []match.Match) *MatchRepository {
	matches := make(map[string]match.Match, len(seed))
	for _, item := range seed {
		matches[item.ID] = cloneMatch(item)
	}

	return &MatchRepository{matches: matches, events: events}
}

func (r *MatchRepository) Create(_ context.Context, m match.Match) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.matches[m.ID]; exists {
		return fmt.Errorf("insert match id=%s: %w", m.ID, match.ErrDuplicateID)
	}
	r.matches[m.ID] = cloneMatch(m)
	return nil
}

func (r *MatchRepository) GetByID(_ context.Context, id string) (match.Match, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	item, ok := r.matches[id]
	if !ok {
		return match.Match{}, false, nil
	}
	return cloneMatch(item), true, nil
}

func (r *MatchRepository) Save(ctx context.Context, m match.Match, events []match.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.matches[m.ID]; !ok {
		return fmt.Errorf("save match id=%s: %w", m.ID, match.ErrNotFound)
	}
	r.matches[m.ID] = cloneMatch(m)
	return r.events.Append(ctx, events)
}

func (r *MatchRepository) List(_ context.Context, filter match.ListFilter) ([]match.Match, error) {
	out := r.collect(func(m match.Match) bool {
		if filter.Status != "" && m.Status != filter.Status {
			return false
		}
		if filter.Tracking != nil && m.TrackingEnabled != *filter.Tracking {
			return false
		}
		return true
	})

	sort.Slice(out, func(i, j int) bool {
		if !out[i].KickoffAt.Equal(out[j].KickoffAt) {
			return out[i].KickoffAt.After(out[j].KickoffAt)
		}
		return out[i].ID < out[j].ID
	})

	if filter.Offset > 0 {
		if filter.Offset >= len(out) {
			return []match.Match{}, nil
		}
		out = out[filter.Offset:]
	}
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (r *MatchRepository) ListTrackable(_ context.Context, status match.Status) ([]match.Match, error) {
	out := r.collect(func(m match.Match) bool {
		return m.TrackingEnabled && m.Status == status
	})
	sortByKickoff(out)
	return out, nil
}

func (r *MatchRepository) ListTrackableByKickoff(_ context.Context, status match.Status, from, to time.Time) ([]match.Match, error) {
	out := r.collect(func(m match.Match) bool {
		return m.TrackingEnabled &&
			m.Status == status &&
			!m.KickoffAt.Before(from) &&
			!m.KickoffAt.After(to)
	})
	sortByKickoff(out)
	return out, nil
}

func (r *MatchRepository) DeleteFinished(_ context.Context) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	ids := make([]string, 0)
	for id, item := range r.matches {
		if item.Status == match.StatusFinished {
			ids = append(ids, id)
			delete(r.matches, id)
		}
	}
	sort.Strings(ids)
	r.events.deleteByMatchIDs(ids)
	return ids, nil
}

func (r *MatchRepository) collect(keep func(match.Match) bool) []match.Match {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]match.Match, 0, len(r.matches))
	for _, item := range r.matches {
		if keep(item) {
			out = append(out, cloneMatch(item))
		}
	}
	return out
}

func sortByKickoff(items []match.Match) {
	sort.Slice(items, func(i, j int) bool {
		if !items[i].KickoffAt.Equal(items[j].KickoffAt) {
			return items[i].KickoffAt.Before(items[j].KickoffAt)
		}
		return items[i].ID < items[j].ID
	})
}

func cloneMatch(m match.Match) match.Match {
	out := m
	out.ScoreHome = cloneValue(m.ScoreHome)
	out.ScoreAway = cloneValue(m.ScoreAway)
	out.PenaltyHome = cloneValue(m.PenaltyHome)
	out.PenaltyAway = cloneValue(m.PenaltyAway)
	out.WinnerHomeTAB = cloneValue(m.WinnerHomeTAB)
	out.WinnerAwayTAB = cloneValue(m.WinnerAwayTAB)
	out.Minute = cloneValue(m.Minute)
	out.RawStatus = cloneValue(m.RawStatus)
	out.LastError = cloneValue(m.LastError)
	out.LastFetchAt = cloneValue(m.LastFetchAt)
	out.StatusCandidate = cloneValue(m.StatusCandidate)
	out.StatusCandidateSince = cloneValue(m.StatusCandidateSince)
	return out
}

func cloneValue[T any](v *T) *T {
	if v == nil {
		return nil
	}
	out := *v
	return &out
}
