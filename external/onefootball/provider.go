package onefootball

import (
	"bytes"
	"context"
	stderrors "errors"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	crerr "github.com/cockroachdb/errors"
	"github.com/riskibarqy/score-tracker/external/scrape"
	"github.com/riskibarqy/score-tracker/internal/domain/match"
	"github.com/riskibarqy/score-tracker/internal/platform/logging"
)

// OneFootball ships hashed CSS module class names, so selectors match on the
// stable prefix.
const (
	selectorScore  = "[class*=MatchScore_numeric]"
	selectorStatus = "[class*=MatchScore_data], div.matchHeader__status"
)

type PageFetcher interface {
	Fetch(ctx context.Context, pageURL string) ([]byte, error)
}

type Provider struct {
	pages  PageFetcher
	logger *logging.Logger
}

func NewProvider(pages PageFetcher, logger *logging.Logger) *Provider {
	if logger == nil {
		logger = logging.Default()
	}
	return &Provider{pages: pages, logger: logger}
}

func (p *Provider) Supports() match.SourceType {
	return match.SourceOneFootball
}

func (p *Provider) Fetch(ctx context.Context, locator string) (match.Snapshot, error) {
	body, err := p.pages.Fetch(ctx, locator)
	if err != nil {
		if stderrors.Is(err, scrape.ErrPageNotFound) {
			return match.NotFound(), nil
		}
		return match.Snapshot{}, crerr.Wrap(err, "fetch onefootball page")
	}

	snap, err := parsePage(body)
	if err != nil {
		return match.Snapshot{}, err
	}
	p.logger.DebugContext(ctx, "onefootball page parsed",
		"locator", locator,
		"has_score", snap.HasScore(),
	)
	return snap, nil
}

func parsePage(body []byte) (match.Snapshot, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return match.Snapshot{}, crerr.Wrap(err, "parse onefootball html")
	}

	scoreNodes := doc.Find(selectorScore)
	if scoreNodes.Length() == 0 {
		return match.ScheduledSnapshot(), nil
	}

	snap := match.Snapshot{Found: true}
	snap.Home, snap.Away = parseScoreNodes(scoreNodes)

	statuses := make([]string, 0, 2)
	doc.Find(selectorStatus).Each(func(_ int, s *goquery.Selection) {
		if text := scrape.CollapseSpace(s.Text()); text != "" {
			statuses = append(statuses, text)
		}
	})
	if len(statuses) == 0 {
		return snap, nil
	}

	raw := strings.Join(statuses, " ")
	snap.RawStatus = &raw
	for _, status := range statuses {
		if minute := scrape.MinuteMarker(status); minute != nil {
			snap.Minute = minute
			break
		}
	}
	return snap, nil
}

// parseScoreNodes accepts either one "2 : 1" node or one node per side.
func parseScoreNodes(nodes *goquery.Selection) (*int, *int) {
	first := scrape.CollapseSpace(nodes.First().Text())
	if home, away, ok := scrape.ParseScore(first, ":", "-"); ok {
		return home, away
	}
	if nodes.Length() < 2 {
		return nil, nil
	}

	home, errH := strconv.Atoi(first)
	away, errA := strconv.Atoi(scrape.CollapseSpace(nodes.Eq(1).Text()))
	if errH != nil || errA != nil || home < 0 || away < 0 {
		return nil, nil
	}
	return &home, &away
}
