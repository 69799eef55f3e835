package publisher

import (
	"time"

	"github.com/bytedance/sonic"
	"github.com/riskibarqy/score-tracker/internal/domain/match"
	"github.com/valyala/bytebufferpool"
)

// eventMessage is the wire form shared by every publisher.
type eventMessage struct {
	ID           int64     `json:"id,omitempty"`
	MatchID      string    `json:"match_id"`
	Type         string    `json:"type"`
	OldStatus    *string   `json:"old_status,omitempty"`
	NewStatus    *string   `json:"new_status,omitempty"`
	OldScoreHome *int      `json:"old_score_home,omitempty"`
	OldScoreAway *int      `json:"old_score_away,omitempty"`
	NewScoreHome *int      `json:"new_score_home,omitempty"`
	NewScoreAway *int      `json:"new_score_away,omitempty"`
	Minute       *string   `json:"minute,omitempty"`
	RawStatus    *string   `json:"raw_status,omitempty"`
	TriggeredBy  string    `json:"triggered_by"`
	OccurredAt   time.Time `json:"occurred_at"`
}

func newEventMessage(e match.Event) eventMessage {
	return eventMessage{
		ID:           e.ID,
		MatchID:      e.MatchID,
		Type:         string(e.Type),
		OldStatus:    statusString(e.OldStatus),
		NewStatus:    statusString(e.NewStatus),
		OldScoreHome: e.OldScoreHome,
		OldScoreAway: e.OldScoreAway,
		NewScoreHome: e.NewScoreHome,
		NewScoreAway: e.NewScoreAway,
		Minute:       e.Minute,
		RawStatus:    e.RawStatus,
		TriggeredBy:  string(e.TriggeredBy),
		OccurredAt:   e.OccurredAt.UTC(),
	}
}

// encodeEvent renders e as JSON. The returned slice is owned by the caller.
func encodeEvent(e match.Event) ([]byte, error) {
	buf := bytebufferpool.Get()
	defer bytebufferpool.Put(buf)

	if err := sonic.ConfigDefault.NewEncoder(buf).Encode(newEventMessage(e)); err != nil {
		return nil, err
	}

	out := buf.Bytes()
	if n := len(out); n > 0 && out[n-1] == '\n' {
		out = out[:n-1]
	}
	return append([]byte(nil), out...), nil
}

func statusString(s *match.Status) *string {
	if s == nil {
		return nil
	}
	out := string(*s)
	return &out
}
