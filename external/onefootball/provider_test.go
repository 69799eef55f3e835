package onefootball

import (
	"context"
	stderrors "errors"
	"testing"

	crerr "github.com/cockroachdb/errors"
	"github.com/riskibarqy/score-tracker/external/scrape"
	"github.com/riskibarqy/score-tracker/internal/domain/match"
	"github.com/riskibarqy/score-tracker/internal/platform/logging"
)

type pageFunc func(ctx context.Context, pageURL string) ([]byte, error)

func (f pageFunc) Fetch(ctx context.Context, pageURL string) ([]byte, error) {
	return f(ctx, pageURL)
}

func fetchSnapshot(t *testing.T, html string) match.Snapshot {
	t.Helper()
	p := NewProvider(pageFunc(func(context.Context, string) ([]byte, error) {
		return []byte(html), nil
	}), logging.NewNop())

	snap, err := p.Fetch(context.Background(), "https://onefootball.com/en/match/1")
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	return snap
}

func TestProviderFetch_SingleScoreNode(t *testing.T) {
	t.Parallel()

	snap := fetchSnapshot(t, `<div class="MatchScore_container__a1">
		<p class="title-2-bold MatchScore_numeric__ke8YT">2 : 1</p>
		<p class="MatchScore_data__b2">Live</p>
		<p class="MatchScore_data__b2">74'</p>
	</div>`)

	if !snap.HasScore() || *snap.Home != 2 || *snap.Away != 1 {
		t.Fatalf("unexpected score: %+v", snap)
	}
	if snap.RawStatus == nil || *snap.RawStatus != "Live 74'" {
		t.Fatalf("unexpected raw status: %v", snap.RawStatus)
	}
	if snap.Minute == nil || *snap.Minute != "74'" {
		t.Fatalf("unexpected minute: %v", snap.Minute)
	}
	if got := match.Normalize(snap.RawStatus, snap.Minute, match.SourceOneFootball); got != match.StatusInPlay {
		t.Fatalf("expected IN_PLAY, got %s", got)
	}
}

func TestProviderFetch_ScorePerSide(t *testing.T) {
	t.Parallel()

	snap := fetchSnapshot(t, `<span class="MatchScore_numeric__x1">0</span>
		<span class="MatchScore_divider">:</span>
		<span class="MatchScore_numeric__x1">3</span>
		<span class="MatchScore_data__x2">Full time</span>`)

	if !snap.HasScore() || *snap.Home != 0 || *snap.Away != 3 {
		t.Fatalf("unexpected score: %+v", snap)
	}
	if got := match.Normalize(snap.RawStatus, snap.Minute, match.SourceOneFootball); got != match.StatusFinished {
		t.Fatalf("expected FINISHED, got %s", got)
	}
}

func TestProviderFetch_HalfTimeFromSecondStatus(t *testing.T) {
	t.Parallel()

	snap := fetchSnapshot(t, `<p class="MatchScore_numeric__ke8YT">1 : 1</p>
		<div class="matchHeader__status">45'</div>
		<div class="matchHeader__status">Half time</div>`)

	if got := match.Normalize(snap.RawStatus, snap.Minute, match.SourceOneFootball); got != match.StatusPaused {
		t.Fatalf("expected PAUSED, got %s (raw=%v)", got, snap.RawStatus)
	}
}

func TestProviderFetch_NoScoreIsScheduled(t *testing.T) {
	t.Parallel()

	snap := fetchSnapshot(t, `<div class="MatchScore_data__b2">Today 20:45</div>`)
	if !snap.Found || snap.HasScore() {
		t.Fatalf("unexpected snapshot: %+v", snap)
	}
	if snap.RawStatus == nil || *snap.RawStatus != string(match.StatusScheduled) {
		t.Fatalf("expected SCHEDULED raw status, got %v", snap.RawStatus)
	}
}

func TestProviderFetch_UnparsableScoreKeepsStatus(t *testing.T) {
	t.Parallel()

	snap := fetchSnapshot(t, `<p class="MatchScore_numeric__ke8YT">- : -</p><p class="MatchScore_data__b2">Postponed</p>`)
	if snap.HasScore() {
		t.Fatalf("expected no score, got %+v", snap)
	}
	if snap.RawStatus == nil || *snap.RawStatus != "Postponed" {
		t.Fatalf("unexpected raw status: %v", snap.RawStatus)
	}
}

func TestProviderFetch_PageNotFound(t *testing.T) {
	t.Parallel()

	p := NewProvider(pageFunc(func(context.Context, string) ([]byte, error) {
		return nil, crerr.Wrap(scrape.ErrPageNotFound, "status=410")
	}), logging.NewNop())

	snap, err := p.Fetch(context.Background(), "https://onefootball.com/gone")
	if err != nil || snap.Found {
		t.Fatalf("expected not-found snapshot, got snap=%+v err=%v", snap, err)
	}
	if p.Supports() != match.SourceOneFootball {
		t.Fatalf("unexpected source: %s", p.Supports())
	}
}

func TestProviderFetch_InfrastructureErrorIsReturned(t *testing.T) {
	t.Parallel()

	boom := stderrors.New("tls handshake timeout")
	p := NewProvider(pageFunc(func(context.Context, string) ([]byte, error) {
		return nil, boom
	}), logging.NewNop())

	if _, err := p.Fetch(context.Background(), "https://onefootball.com/x"); !stderrors.Is(err, boom) {
		t.Fatalf("expected wrapped error, got %v", err)
	}
}
