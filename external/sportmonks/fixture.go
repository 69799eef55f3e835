package sportmonks

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/riskibarqy/score-tracker/internal/domain/match"
)

// stateDeveloperNames covers fixtures returned without the state include.
var stateDeveloperNames = map[int64]string{
	1:  "NS",
	2:  "INPLAY_1ST_HALF",
	3:  "HT",
	4:  "BREAK",
	5:  "FT",
	6:  "INPLAY_ET",
	7:  "AET",
	8:  "FT_PEN",
	9:  "INPLAY_PENALTIES",
	10: "POSTPONED",
	12: "CANCELLED",
	17: "AWARDED",
	22: "INPLAY_2ND_HALF",
}

type fixtureEnvelope struct {
	Data fixtureDetails `json:"data"`
}

type fixtureDetails struct {
	ID           int64                  `json:"id"`
	StartingAt   string                 `json:"starting_at"`
	StateID      int64                  `json:"state_id"`
	ResultInfo   string                 `json:"result_info"`
	Participants []fixtureParticipant   `json:"participants"`
	Scores       []fixtureScoreItem     `json:"scores"`
	State        relation[fixtureState] `json:"state"`
	Periods      []fixturePeriod        `json:"periods"`
}

type fixtureParticipant struct {
	ID   int64                  `json:"id"`
	Name string                 `json:"name"`
	Meta fixtureParticipantMeta `json:"meta"`
}

type fixtureParticipantMeta struct {
	Location string `json:"location"`
}

type fixtureState struct {
	ID            int64  `json:"id"`
	State         string `json:"state"`
	Name          string `json:"name"`
	ShortName     string `json:"short_name"`
	DeveloperName string `json:"developer_name"`
}

type fixturePeriod struct {
	TypeID      int64  `json:"type_id"`
	Description string `json:"description"`
	Ticking     bool   `json:"ticking"`
	Minutes     *int   `json:"minutes"`
	TimeAdded   *int   `json:"time_added"`
}

type fixtureScoreItem struct {
	ParticipantID int64          `json:"participant_id"`
	Description   string         `json:"description"`
	Score         map[string]any `json:"score"`
	Data          map[string]any `json:"data"`
	Goals         any            `json:"goals"`
}

func (f fixtureDetails) snapshot() match.Snapshot {
	snap := match.Snapshot{Found: true}
	if raw := f.rawStatus(); raw != "" {
		snap.RawStatus = &raw
	}
	snap.Minute = f.minute()
	snap.Home, snap.Away = resolveFixtureScores(f.Scores, f.Participants)
	return snap
}

func (f fixtureDetails) rawStatus() string {
	if f.State.Set {
		for _, candidate := range []string{f.State.Data.DeveloperName, f.State.Data.State, f.State.Data.ShortName} {
			if value := strings.TrimSpace(candidate); value != "" {
				return value
			}
		}
	}
	if name, ok := stateDeveloperNames[f.StateID]; ok {
		return name
	}
	return strings.TrimSpace(f.ResultInfo)
}

// minute reports the running clock of the ticking period, e.g. "67'" or
// "90+3'".
func (f fixtureDetails) minute() *string {
	for _, period := range f.Periods {
		if !period.Ticking || period.Minutes == nil || *period.Minutes < 0 {
			continue
		}
		text := strconv.Itoa(*period.Minutes) + "'"
		if period.TimeAdded != nil && *period.TimeAdded > 0 {
			text = fmt.Sprintf("%d+%d'", *period.Minutes, *period.TimeAdded)
		}
		return &text
	}
	return nil
}

func resolveFixtureParticipants(participants []fixtureParticipant) (int64, int64) {
	var homeID, awayID int64
	for _, item := range participants {
		switch strings.ToLower(strings.TrimSpace(item.Meta.Location)) {
		case "home":
			homeID = item.ID
		case "away":
			awayID = item.ID
		}
	}
	return homeID, awayID
}

// resolveFixtureScores keeps only the highest weighted score description and
// returns nil for a side that has no value at that weight.
func resolveFixtureScores(scores []fixtureScoreItem, participants []fixtureParticipant) (*int, *int) {
	if len(scores) == 0 {
		return nil, nil
	}

	homeParticipantID, awayParticipantID := resolveFixtureParticipants(participants)

	bestWeight := 0
	var home, away *int
	for _, score := range scores {
		value, ok := score.numericScore()
		if !ok {
			continue
		}

		weight := scoreDescriptionWeight(score.Description)
		if weight > bestWeight {
			bestWeight = weight
			home, away = nil, nil
		}
		if weight < bestWeight {
			continue
		}

		if score.ParticipantID == homeParticipantID && homeParticipantID > 0 {
			home = match.IntPtr(value)
		}
		if score.ParticipantID == awayParticipantID && awayParticipantID > 0 {
			away = match.IntPtr(value)
		}
	}
	return home, away
}

func scoreDescriptionWeight(raw string) int {
	value := strings.ToLower(strings.TrimSpace(raw))
	switch {
	case value == "current":
		return 6
	case strings.Contains(value, "normal_time"), strings.Contains(value, "90"):
		return 5
	case strings.Contains(value, "extra_time"):
		return 4
	case value == "2nd_half":
		return 3
	case value == "1st_half":
		return 2
	default:
		return 1
	}
}

func (f fixtureScoreItem) numericScore() (int, bool) {
	for _, candidate := range []any{
		f.Goals,
		lookupMapValue(f.Data, "goals"),
		lookupMapValue(f.Score, "goals"),
		lookupMapValue(f.Score, "score"),
		lookupMapValue(f.Score, "value"),
		lookupMapValue(f.Score, "total"),
	} {
		if candidate == nil {
			continue
		}
		score, ok := asInt(candidate)
		if ok && score >= 0 {
			return score, true
		}
	}
	return 0, false
}

func lookupMapValue(src map[string]any, key string) any {
	if src == nil {
		return nil
	}
	return src[key]
}

func asInt(value any) (int, bool) {
	switch typed := value.(type) {
	case float64:
		return int(typed), true
	case int:
		return typed, true
	case int64:
		return int(typed), true
	case string:
		parsed, err := strconv.Atoi(strings.TrimSpace(typed))
		if err != nil {
			return 0, false
		}
		return parsed, true
	default:
		return 0, false
	}
}
