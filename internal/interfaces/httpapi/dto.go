package httpapi

import (
	"time"

	"github.com/riskibarqy/score-tracker/internal/domain/match"
)

type matchDTO struct {
	ID                       string     `json:"id"`
	ExternalID               string     `json:"external_id,omitempty"`
	HomeTeam                 string     `json:"home_team"`
	AwayTeam                 string     `json:"away_team"`
	Source                   string     `json:"source"`
	Locator                  string     `json:"locator"`
	KickoffAt                time.Time  `json:"kickoff_at"`
	Status                   string     `json:"status"`
	ScoreHome                *int       `json:"score_home"`
	ScoreAway                *int       `json:"score_away"`
	PenaltyHome              *int       `json:"penalty_home,omitempty"`
	PenaltyAway              *int       `json:"penalty_away,omitempty"`
	WinnerHomeTAB            *bool      `json:"winner_home_tab,omitempty"`
	WinnerAwayTAB            *bool      `json:"winner_away_tab,omitempty"`
	Minute                   *string    `json:"minute,omitempty"`
	RawStatus                *string    `json:"raw_status,omitempty"`
	TrackingEnabled          bool       `json:"tracking_enabled"`
	ErrorCount               int        `json:"error_count"`
	LastError                *string    `json:"last_error,omitempty"`
	LastFetchAt              *time.Time `json:"last_fetch_at,omitempty"`
	StatusCandidate          *string    `json:"status_candidate,omitempty"`
	ConsecutiveSameCandidate int        `json:"consecutive_same_candidate"`
	StatusCandidateSince     *time.Time `json:"status_candidate_since,omitempty"`
	HalfTimeSeen             bool       `json:"half_time_seen"`
	CreatedAt                time.Time  `json:"created_at"`
	UpdatedAt                time.Time  `json:"updated_at"`
}

type eventDTO struct {
	ID           int64     `json:"id"`
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

type deleteFinishedDTO struct {
	Deleted int `json:"deleted"`
}

func matchToDTO(m match.Match) matchDTO {
	return matchDTO{
		ID:                       m.ID,
		ExternalID:               m.ExternalID,
		HomeTeam:                 m.HomeTeam,
		AwayTeam:                 m.AwayTeam,
		Source:                   string(m.Source),
		Locator:                  m.Locator,
		KickoffAt:                m.KickoffAt,
		Status:                   string(m.Status),
		ScoreHome:                m.ScoreHome,
		ScoreAway:                m.ScoreAway,
		PenaltyHome:              m.PenaltyHome,
		PenaltyAway:              m.PenaltyAway,
		WinnerHomeTAB:            m.WinnerHomeTAB,
		WinnerAwayTAB:            m.WinnerAwayTAB,
		Minute:                   m.Minute,
		RawStatus:                m.RawStatus,
		TrackingEnabled:          m.TrackingEnabled,
		ErrorCount:               m.ErrorCount,
		LastError:                m.LastError,
		LastFetchAt:              m.LastFetchAt,
		StatusCandidate:          statusString(m.StatusCandidate),
		ConsecutiveSameCandidate: m.ConsecutiveSameCandidate,
		StatusCandidateSince:     m.StatusCandidateSince,
		HalfTimeSeen:             m.HalfTimeSeen,
		CreatedAt:                m.CreatedAt,
		UpdatedAt:                m.UpdatedAt,
	}
}

func eventToDTO(e match.Event) eventDTO {
	return eventDTO{
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
		OccurredAt:   e.OccurredAt,
	}
}

func statusString(s *match.Status) *string {
	if s == nil {
		return nil
	}
	v := string(*s)
	return &v
}
