package postgres

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/riskibarqy/score-tracker/internal/domain/match"
	qb "github.com/riskibarqy/score-tracker/internal/platform/querybuilder"
)

const matchEventsTable = "match_events"

type EventRepository struct {
	db *sqlx.DB
}

func NewEventRepository(db *sqlx.DB) *EventRepository {
	return &EventRepository{db: db}
}

func (r *EventRepository) Append(ctx context.Context, events []match.Event) error {
	return appendEvents(ctx, r.db, events)
}

func (r *EventRepository) ListByMatch(ctx context.Context, matchID string, limit int) ([]match.Event, error) {
	query, args, err := qb.Select("*").From(matchEventsTable).
		Where(qb.Eq("match_id", matchID)).
		OrderBy("occurred_at DESC", "id DESC").
		Limit(limit).
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build list match events query: %w", err)
	}

	var rows []matchEventTableModel
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list match events match_id=%s: %w", matchID, err)
	}

	out := make([]match.Event, 0, len(rows))
	for _, row := range rows {
		out = append(out, eventFromRow(row))
	}
	return out, nil
}

// appendEvents writes all events with a single multi-row insert.
func appendEvents(ctx context.Context, exec sqlx.ExecerContext, events []match.Event) error {
	if len(events) == 0 {
		return nil
	}

	query, args, err := buildInsertEventsQuery(events)
	if err != nil {
		return err
	}
	if _, err := exec.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("insert match events: %w", err)
	}
	return nil
}

func buildInsertEventsQuery(events []match.Event) (string, []any, error) {
	cols, err := qb.ModelColumns(matchEventInsertModel{})
	if err != nil {
		return "", nil, fmt.Errorf("read match event columns: %w", err)
	}

	builder := qb.InsertInto(matchEventsTable).Columns(cols...)
	for _, event := range events {
		vals, err := qb.ModelValues(eventToInsertRow(event))
		if err != nil {
			return "", nil, fmt.Errorf("read match event values: %w", err)
		}
		builder.Values(vals...)
	}

	query, args, err := builder.ToSQL()
	if err != nil {
		return "", nil, fmt.Errorf("build insert match events query: %w", err)
	}
	return query, args, nil
}
