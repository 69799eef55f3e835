package cache

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/riskibarqy/score-tracker/internal/domain/match"
	basecache "github.com/riskibarqy/score-tracker/internal/platform/cache"
)

const matchListPrefix = "match:list:"

// MatchRepository caches the public list query. Every write drops the cached
// lists, and the tracking path (GetByID, ListTrackable*) always reads through.
type MatchRepository struct {
	next  match.Repository
	cache *basecache.Store
}

func NewMatchRepository(next match.Repository, cache *basecache.Store) *MatchRepository {
	return &MatchRepository{next: next, cache: cache}
}

func (r *MatchRepository) Create(ctx context.Context, m match.Match) error {
	if err := r.next.Create(ctx, m); err != nil {
		return err
	}
	r.invalidate(ctx)
	return nil
}

func (r *MatchRepository) GetByID(ctx context.Context, id string) (match.Match, bool, error) {
	return r.next.GetByID(ctx, id)
}

func (r *MatchRepository) Save(ctx context.Context, m match.Match, events []match.Event) error {
	if err := r.next.Save(ctx, m, events); err != nil {
		return err
	}
	r.invalidate(ctx)
	return nil
}

func (r *MatchRepository) List(ctx context.Context, filter match.ListFilter) ([]match.Match, error) {
	v, err := r.cache.GetOrLoad(ctx, listKey(filter), func(ctx context.Context) (any, error) {
		items, err := r.next.List(ctx, filter)
		if err != nil {
			return nil, err
		}
		return append([]match.Match(nil), items...), nil
	})
	if err != nil {
		return nil, err
	}

	items, _ := v.([]match.Match)
	return append([]match.Match(nil), items...), nil
}

func (r *MatchRepository) ListTrackable(ctx context.Context, status match.Status) ([]match.Match, error) {
	return r.next.ListTrackable(ctx, status)
}

func (r *MatchRepository) ListTrackableByKickoff(ctx context.Context, status match.Status, from, to time.Time) ([]match.Match, error) {
	return r.next.ListTrackableByKickoff(ctx, status, from, to)
}

func (r *MatchRepository) DeleteFinished(ctx context.Context) ([]string, error) {
	ids, err := r.next.DeleteFinished(ctx)
	if err != nil {
		return nil, err
	}
	if len(ids) > 0 {
		r.invalidate(ctx)
	}
	return ids, nil
}

func (r *MatchRepository) invalidate(ctx context.Context) {
	r.cache.DeletePrefix(ctx, matchListPrefix)
}

func listKey(filter match.ListFilter) string {
	var b strings.Builder
	b.WriteString(matchListPrefix)
	b.WriteString(string(filter.Status))
	b.WriteByte(':')
	if filter.Tracking != nil {
		b.WriteString(strconv.FormatBool(*filter.Tracking))
	}
	b.WriteByte(':')
	b.WriteString(strconv.Itoa(filter.Limit))
	b.WriteByte(':')
	b.WriteString(strconv.Itoa(filter.Offset))
	return b.String()
}
