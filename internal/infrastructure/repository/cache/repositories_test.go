package cache

import (
	"context"
	"testing"
	"time"

	"github.com/riskibarqy/score-tracker/internal/domain/match"
	matchmock "github.com/riskibarqy/score-tracker/internal/mocks/domain/match"
	basecache "github.com/riskibarqy/score-tracker/internal/platform/cache"
	"github.com/stretchr/testify/mock"
)

func TestMatchRepository_ListIsCachedUntilWrite(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	next := matchmock.NewRepository(t)
	repo := NewMatchRepository(next, basecache.NewStore(time.Minute))

	live := match.ListFilter{Status: match.StatusInPlay}
	next.On("List", mock.Anything, live).Return([]match.Match{{ID: "m1"}}, nil).Twice()
	next.On("Save", mock.Anything, mock.AnythingOfType("match.Match"), mock.Anything).Return(nil).Once()

	for i := 0; i < 3; i++ {
		items, err := repo.List(ctx, live)
		if err != nil {
			t.Fatalf("list: %v", err)
		}
		if len(items) != 1 || items[0].ID != "m1" {
			t.Fatalf("unexpected items: %+v", items)
		}
	}

	if err := repo.Save(ctx, match.Match{ID: "m1"}, nil); err != nil {
		t.Fatalf("save: %v", err)
	}
	if _, err := repo.List(ctx, live); err != nil {
		t.Fatalf("list after save: %v", err)
	}
}

func TestMatchRepository_GetByIDReadsThrough(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	next := matchmock.NewRepository(t)
	repo := NewMatchRepository(next, basecache.NewStore(time.Minute))

	next.On("GetByID", mock.Anything, "m1").Return(match.Match{ID: "m1", Status: match.StatusPaused}, true, nil).Times(2)

	for i := 0; i < 2; i++ {
		m, ok, err := repo.GetByID(ctx, "m1")
		if err != nil || !ok || m.Status != match.StatusPaused {
			t.Fatalf("get: m=%+v ok=%v err=%v", m, ok, err)
		}
	}
}

func TestListKey_DistinguishesFilters(t *testing.T) {
	t.Parallel()

	tracking := true
	keys := map[string]struct{}{}
	for _, filter := range []match.ListFilter{
		{},
		{Status: match.StatusFinished},
		{Tracking: &tracking},
		{Limit: 10},
		{Limit: 10, Offset: 10},
	} {
		keys[listKey(filter)] = struct{}{}
	}
	if len(keys) != 5 {
		t.Fatalf("expected 5 distinct keys, got %d", len(keys))
	}
}
