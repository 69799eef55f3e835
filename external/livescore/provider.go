package livescore

import (
	"bytes"
	"context"
	stderrors "errors"
	"sort"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	sonic "github.com/bytedance/sonic"
	crerr "github.com/cockroachdb/errors"
	"github.com/riskibarqy/score-tracker/external/scrape"
	"github.com/riskibarqy/score-tracker/internal/domain/match"
	"github.com/riskibarqy/score-tracker/internal/platform/logging"
)

const (
	selectorScore    = "#score-or-time"
	selectorStatus   = "#SEV__status"
	selectorNextData = "script#__NEXT_DATA__"
)

type PageFetcher interface {
	Fetch(ctx context.Context, pageURL string) ([]byte, error)
}

// Provider reads LiveScore match pages. The rendered score block is preferred;
// the embedded Next.js payload fills in whatever the markup lacks.
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
	return match.SourceLiveScore
}

func (p *Provider) Fetch(ctx context.Context, locator string) (match.Snapshot, error) {
	body, err := p.pages.Fetch(ctx, locator)
	if err != nil {
		if stderrors.Is(err, scrape.ErrPageNotFound) {
			return match.NotFound(), nil
		}
		return match.Snapshot{}, crerr.Wrap(err, "fetch livescore page")
	}

	snap, err := parsePage(body)
	if err != nil {
		return match.Snapshot{}, err
	}
	p.logger.DebugContext(ctx, "livescore page parsed",
		"locator", locator,
		"found", snap.Found,
		"has_score", snap.HasScore(),
	)
	return snap, nil
}

func parsePage(body []byte) (match.Snapshot, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return match.Snapshot{}, crerr.Wrap(err, "parse livescore html")
	}

	embedded, hasEmbedded := parseNextData(doc)

	scoreNode := doc.Find(selectorScore).First()
	if scoreNode.Length() == 0 {
		if hasEmbedded && embedded.hasData() {
			return embedded.snapshot(), nil
		}
		return match.ScheduledSnapshot(), nil
	}

	snap := match.Snapshot{Found: true}
	snap.Home, snap.Away, _ = scrape.ParseScore(scrape.CollapseSpace(scoreNode.Text()), "-")
	if !snap.HasScore() && hasEmbedded {
		snap.Home, snap.Away = embedded.home, embedded.away
	}

	status := scrape.CollapseSpace(doc.Find(selectorStatus).First().Text())
	if status == "" && hasEmbedded {
		status = embedded.rawStatus()
	}
	if status != "" {
		snap.RawStatus = &status
		snap.Minute = scrape.MinuteMarker(status)
	}
	return snap, nil
}

type nextDataEvent struct {
	home        *int
	away        *int
	status      string
	eventStatus string
}

func (e nextDataEvent) hasData() bool {
	return e.home != nil || e.away != nil || e.status != "" || e.eventStatus != ""
}

// rawStatus prefers the clock text ("67'", "HT") over eventStatus.
func (e nextDataEvent) rawStatus() string {
	if e.status != "" {
		return e.status
	}
	return e.eventStatus
}

func (e nextDataEvent) snapshot() match.Snapshot {
	snap := match.Snapshot{Found: true, Home: e.home, Away: e.away}
	if status := e.rawStatus(); status != "" {
		snap.RawStatus = &status
		snap.Minute = scrape.MinuteMarker(e.status)
	} else {
		snap.RawStatus = match.StringPtr(string(match.StatusScheduled))
	}
	return snap
}

func parseNextData(doc *goquery.Document) (nextDataEvent, bool) {
	text := strings.TrimSpace(doc.Find(selectorNextData).First().Text())
	if text == "" {
		return nextDataEvent{}, false
	}

	var payload any
	if err := sonic.UnmarshalString(text, &payload); err != nil {
		return nextDataEvent{}, false
	}

	node := findEventNode(payload)
	if node == nil {
		return nextDataEvent{}, false
	}
	return nextDataEvent{
		home:        scoreValue(node["homeTeamScore"]),
		away:        scoreValue(node["awayTeamScore"]),
		status:      stringValue(node["status"]),
		eventStatus: stringValue(node["eventStatus"]),
	}, true
}

// findEventNode walks the payload breadth first and returns the shallowest
// object that carries team scores or an event status.
func findEventNode(root any) map[string]any {
	queue := []any{root}
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		switch typed := current.(type) {
		case map[string]any:
			if _, ok := typed["homeTeamScore"]; ok {
				return typed
			}
			if _, ok := typed["eventStatus"]; ok {
				return typed
			}
			keys := make([]string, 0, len(typed))
			for key := range typed {
				keys = append(keys, key)
			}
			sort.Strings(keys)
			for _, key := range keys {
				queue = append(queue, typed[key])
			}
		case []any:
			queue = append(queue, typed...)
		}
	}
	return nil
}

func scoreValue(value any) *int {
	switch typed := value.(type) {
	case float64:
		if typed < 0 {
			return nil
		}
		return match.IntPtr(int(typed))
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(typed))
		if err != nil || n < 0 {
			return nil
		}
		return match.IntPtr(n)
	default:
		return nil
	}
}

func stringValue(value any) string {
	text, ok := value.(string)
	if !ok {
		return ""
	}
	text = strings.TrimSpace(text)
	if strings.EqualFold(text, "null") {
		return ""
	}
	return text
}
