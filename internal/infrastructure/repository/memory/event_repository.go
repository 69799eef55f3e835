package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/riskibarqy/score-tracker/internal/domain/match"
)

type EventRepository struct {
	mu      sync.RWMutex
	nextID  int64
	byMatch map[string][]match.Event
}

func NewEventRepository() *EventRepository {
	return &EventRepository{byMatch: make(map[string][]match.Event)}
}

func (r *EventRepository) Append(_ context.Context, events []match.Event) error {
	if len(events) == 0 {
		return nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	for _, event := range events {
		r.nextID++
		event.ID = r.nextID
		r.byMatch[event.MatchID] = append(r.byMatch[event.MatchID], event)
	}
	return nil
}

func (r *EventRepository) ListByMatch(_ context.Context, matchID string, limit int) ([]match.Event, error) {
	r.mu.RLock()
	items := r.byMatch[matchID]
	out := make([]match.Event, len(items))
	copy(out, items)
	r.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].OccurredAt.Equal(out[j].OccurredAt) {
			return out[i].OccurredAt.After(out[j].OccurredAt)
		}
		return out[i].ID > out[j].ID
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *EventRepository) deleteByMatchIDs(ids []string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, id := range ids {
		delete(r.byMatch, id)
	}
}
