package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/riskibarqy/score-tracker/internal/domain/match"
	qb "github.com/riskibarqy/score-tracker/internal/platform/querybuilder"
)

const matchesTable = "matches"

type MatchRepository struct {
	db *sqlx.DB
}

func NewMatchRepository(db *sqlx.DB) *MatchRepository {
	return &MatchRepository{db: db}
}

func (r *MatchRepository) Create(ctx context.Context, m match.Match) error {
	query, args, err := qb.InsertModel(matchesTable, matchToRow(m), "")
	if err != nil {
		return fmt.Errorf("build insert match query: %w", err)
	}

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("insert match id=%s: %w: %v", m.ID, match.ErrDuplicateID, err)
		}
		return fmt.Errorf("insert match id=%s: %w", m.ID, err)
	}
	return nil
}

func (r *MatchRepository) GetByID(ctx context.Context, id string) (match.Match, bool, error) {
	query, args, err := qb.Select("*").From(matchesTable).
		Where(qb.Eq("id", id)).
		ToSQL()
	if err != nil {
		return match.Match{}, false, fmt.Errorf("build get match query: %w", err)
	}

	var row matchTableModel
	err = r.db.GetContext(ctx, &row, query, args...)
	if isRetryableStatementError(err) {
		err = r.db.GetContext(ctx, &row, query, args...)
	}
	if err != nil {
		if isNotFound(err) {
			return match.Match{}, false, nil
		}
		return match.Match{}, false, fmt.Errorf("get match id=%s: %w", id, err)
	}

	return matchFromRow(row), true, nil
}

// Save updates the match row and appends events inside one transaction. A row
// removed by DeleteFinished is never written back.
func (r *MatchRepository) Save(ctx context.Context, m match.Match, events []match.Event) error {
	query, args, err := qb.UpdateModel(matchesTable, matchToRow(m), "id", "created_at")
	if err != nil {
		return fmt.Errorf("build update match query: %w", err)
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx save match: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	res, err := tx.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update match id=%s: %w", m.ID, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update match id=%s rows affected: %w", m.ID, err)
	}
	if affected == 0 {
		return fmt.Errorf("update match id=%s: %w", m.ID, match.ErrNotFound)
	}
	if err := appendEvents(ctx, tx, events); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx save match: %w", err)
	}
	return nil
}

func (r *MatchRepository) List(ctx context.Context, filter match.ListFilter) ([]match.Match, error) {
	conditions := make([]qb.Condition, 0, 2)
	if filter.Status != "" {
		conditions = append(conditions, qb.Eq("status", string(filter.Status)))
	}
	if filter.Tracking != nil {
		conditions = append(conditions, qb.Eq("tracking_enabled", *filter.Tracking))
	}

	query, args, err := qb.Select("*").From(matchesTable).
		Where(conditions...).
		OrderBy("kickoff_at DESC", "id").
		Limit(filter.Limit).
		Offset(filter.Offset).
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build list matches query: %w", err)
	}

	return r.selectMatches(ctx, "list matches", query, args)
}

func (r *MatchRepository) ListTrackable(ctx context.Context, status match.Status) ([]match.Match, error) {
	query, args, err := qb.Select("*").From(matchesTable).
		Where(
			qb.Eq("tracking_enabled", true),
			qb.Eq("status", string(status)),
		).
		OrderBy("kickoff_at", "id").
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build list trackable matches query: %w", err)
	}

	return r.selectMatches(ctx, "list trackable matches", query, args)
}

// ListTrackableByKickoff selects tracked matches whose kickoff lies in [from, to].
func (r *MatchRepository) ListTrackableByKickoff(ctx context.Context, status match.Status, from, to time.Time) ([]match.Match, error) {
	query, args, err := qb.Select("*").From(matchesTable).
		Where(
			qb.Eq("tracking_enabled", true),
			qb.Eq("status", string(status)),
			qb.Gte("kickoff_at", from.UTC()),
			qb.Lte("kickoff_at", to.UTC()),
		).
		OrderBy("kickoff_at", "id").
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build list trackable matches by kickoff query: %w", err)
	}

	return r.selectMatches(ctx, "list trackable matches by kickoff", query, args)
}

// DeleteFinished removes finished matches. Their events go with them through
// the match_events foreign key.
func (r *MatchRepository) DeleteFinished(ctx context.Context) ([]string, error) {
	query, args, err := qb.DeleteFrom(matchesTable).
		Where(qb.Eq("status", string(match.StatusFinished))).
		Suffix("RETURNING id").
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build delete finished matches query: %w", err)
	}

	var ids []string
	if err := r.db.SelectContext(ctx, &ids, query, args...); err != nil {
		return nil, fmt.Errorf("delete finished matches: %w", err)
	}
	return ids, nil
}

func (r *MatchRepository) selectMatches(ctx context.Context, op, query string, args []any) ([]match.Match, error) {
	var rows []matchTableModel
	err := r.db.SelectContext(ctx, &rows, query, args...)
	if isRetryableStatementError(err) {
		rows = nil
		err = r.db.SelectContext(ctx, &rows, query, args...)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	out := make([]match.Match, 0, len(rows))
	for _, row := range rows {
		out = append(out, matchFromRow(row))
	}
	return out, nil
}
