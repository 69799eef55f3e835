package match

import (
	"context"
	"time"
)

// Repository persists the match aggregate.
type Repository interface {
	Create(ctx context.Context, m Match) error
	GetByID(ctx context.Context, id string) (Match, bool, error)
	// Save updates an existing match and appends events in one unit of work.
	// It returns ErrNotFound when the match was deleted in the meantime.
	Save(ctx context.Context, m Match, events []Event) error
	List(ctx context.Context, filter ListFilter) ([]Match, error)
	ListTrackable(ctx context.Context, status Status) ([]Match, error)
	ListTrackableByKickoff(ctx context.Context, status Status, from, to time.Time) ([]Match, error)
	DeleteFinished(ctx context.Context) ([]string, error)
}

// EventRepository is the append-only audit log.
type EventRepository interface {
	Append(ctx context.Context, events []Event) error
	// ListByMatch returns newest first. limit <= 0 means no limit.
	ListByMatch(ctx context.Context, matchID string, limit int) ([]Event, error)
}
