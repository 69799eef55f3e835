package postgres

import (
	"database/sql"
	"time"

	"github.com/riskibarqy/score-tracker/internal/domain/match"
)

type matchTableModel struct {
	ID                       string         `db:"id"`
	ExternalID               string         `db:"external_id"`
	HomeTeam                 string         `db:"home_team"`
	AwayTeam                 string         `db:"away_team"`
	Source                   string         `db:"source"`
	Locator                  string         `db:"locator"`
	KickoffAt                time.Time      `db:"kickoff_at"`
	Status                   string         `db:"status"`
	ScoreHome                sql.NullInt64  `db:"score_home"`
	ScoreAway                sql.NullInt64  `db:"score_away"`
	PenaltyHome              sql.NullInt64  `db:"penalty_home"`
	PenaltyAway              sql.NullInt64  `db:"penalty_away"`
	WinnerHomeTAB            sql.NullBool   `db:"winner_home_tab"`
	WinnerAwayTAB            sql.NullBool   `db:"winner_away_tab"`
	Minute                   sql.NullString `db:"minute"`
	RawStatus                sql.NullString `db:"raw_status"`
	TrackingEnabled          bool           `db:"tracking_enabled"`
	ErrorCount               int            `db:"error_count"`
	LastError                sql.NullString `db:"last_error"`
	LastFetchAt              *time.Time     `db:"last_fetch_at"`
	StatusCandidate          sql.NullString `db:"status_candidate"`
	ConsecutiveSameCandidate int            `db:"consecutive_same_candidate"`
	StatusCandidateSince     *time.Time     `db:"status_candidate_since"`
	HalfTimeSeen             bool           `db:"half_time_seen"`
	CreatedAt                time.Time      `db:"created_at"`
	UpdatedAt                time.Time      `db:"updated_at"`
}

type matchEventTableModel struct {
	ID           int64          `db:"id"`
	MatchID      string         `db:"match_id"`
	EventType    string         `db:"event_type"`
	OldStatus    sql.NullString `db:"old_status"`
	NewStatus    sql.NullString `db:"new_status"`
	OldScoreHome sql.NullInt64  `db:"old_score_home"`
	OldScoreAway sql.NullInt64  `db:"old_score_away"`
	NewScoreHome sql.NullInt64  `db:"new_score_home"`
	NewScoreAway sql.NullInt64  `db:"new_score_away"`
	Minute       sql.NullString `db:"minute"`
	RawStatus    sql.NullString `db:"raw_status"`
	TriggeredBy  string         `db:"triggered_by"`
	OccurredAt   time.Time      `db:"occurred_at"`
}

// matchEventInsertModel omits the serial id.
type matchEventInsertModel struct {
	MatchID      string         `db:"match_id"`
	EventType    string         `db:"event_type"`
	OldStatus    sql.NullString `db:"old_status"`
	NewStatus    sql.NullString `db:"new_status"`
	OldScoreHome sql.NullInt64  `db:"old_score_home"`
	OldScoreAway sql.NullInt64  `db:"old_score_away"`
	NewScoreHome sql.NullInt64  `db:"new_score_home"`
	NewScoreAway sql.NullInt64  `db:"new_score_away"`
	Minute       sql.NullString `db:"minute"`
	RawStatus    sql.NullString `db:"raw_status"`
	TriggeredBy  string         `db:"triggered_by"`
	OccurredAt   time.Time      `db:"occurred_at"`
}

func matchToRow(m match.Match) matchTableModel {
	return matchTableModel{
		ID:                       m.ID,
		ExternalID:               m.ExternalID,
		HomeTeam:                 m.HomeTeam,
		AwayTeam:                 m.AwayTeam,
		Source:                   string(m.Source),
		Locator:                  m.Locator,
		KickoffAt:                m.KickoffAt.UTC(),
		Status:                   string(m.Status),
		ScoreHome:                intToNull(m.ScoreHome),
		ScoreAway:                intToNull(m.ScoreAway),
		PenaltyHome:              intToNull(m.PenaltyHome),
		PenaltyAway:              intToNull(m.PenaltyAway),
		WinnerHomeTAB:            boolToNull(m.WinnerHomeTAB),
		WinnerAwayTAB:            boolToNull(m.WinnerAwayTAB),
		Minute:                   stringToNull(m.Minute),
		RawStatus:                stringToNull(m.RawStatus),
		TrackingEnabled:          m.TrackingEnabled,
		ErrorCount:               m.ErrorCount,
		LastError:                stringToNull(m.LastError),
		LastFetchAt:              utcTime(m.LastFetchAt),
		StatusCandidate:          statusToNull(m.StatusCandidate),
		ConsecutiveSameCandidate: m.ConsecutiveSameCandidate,
		StatusCandidateSince:     utcTime(m.StatusCandidateSince),
		HalfTimeSeen:             m.HalfTimeSeen,
		CreatedAt:                m.CreatedAt.UTC(),
		UpdatedAt:                m.UpdatedAt.UTC(),
	}
}

func matchFromRow(row matchTableModel) match.Match {
	return match.Match{
		ID:                       row.ID,
		ExternalID:               row.ExternalID,
		HomeTeam:                 row.HomeTeam,
		AwayTeam:                 row.AwayTeam,
		Source:                   match.SourceType(row.Source),
		Locator:                  row.Locator,
		KickoffAt:                row.KickoffAt.UTC(),
		Status:                   match.Status(row.Status),
		ScoreHome:                nullToInt(row.ScoreHome),
		ScoreAway:                nullToInt(row.ScoreAway),
		PenaltyHome:              nullToInt(row.PenaltyHome),
		PenaltyAway:              nullToInt(row.PenaltyAway),
		WinnerHomeTAB:            nullToBool(row.WinnerHomeTAB),
		WinnerAwayTAB:            nullToBool(row.WinnerAwayTAB),
		Minute:                   nullToString(row.Minute),
		RawStatus:                nullToString(row.RawStatus),
		TrackingEnabled:          row.TrackingEnabled,
		ErrorCount:               row.ErrorCount,
		LastError:                nullToString(row.LastError),
		LastFetchAt:              utcTime(row.LastFetchAt),
		StatusCandidate:          nullToStatus(row.StatusCandidate),
		ConsecutiveSameCandidate: row.ConsecutiveSameCandidate,
		StatusCandidateSince:     utcTime(row.StatusCandidateSince),
		HalfTimeSeen:             row.HalfTimeSeen,
		CreatedAt:                row.CreatedAt.UTC(),
		UpdatedAt:                row.UpdatedAt.UTC(),
	}
}

func eventToInsertRow(e match.Event) matchEventInsertModel {
	return matchEventInsertModel{
		MatchID:      e.MatchID,
		EventType:    string(e.Type),
		OldStatus:    statusToNull(e.OldStatus),
		NewStatus:    statusToNull(e.NewStatus),
		OldScoreHome: intToNull(e.OldScoreHome),
		OldScoreAway: intToNull(e.OldScoreAway),
		NewScoreHome: intToNull(e.NewScoreHome),
		NewScoreAway: intToNull(e.NewScoreAway),
		Minute:       stringToNull(e.Minute),
		RawStatus:    stringToNull(e.RawStatus),
		TriggeredBy:  string(e.TriggeredBy),
		OccurredAt:   e.OccurredAt.UTC(),
	}
}

func eventFromRow(row matchEventTableModel) match.Event {
	return match.Event{
		ID:           row.ID,
		MatchID:      row.MatchID,
		Type:         match.EventType(row.EventType),
		OldStatus:    nullToStatus(row.OldStatus),
		NewStatus:    nullToStatus(row.NewStatus),
		OldScoreHome: nullToInt(row.OldScoreHome),
		OldScoreAway: nullToInt(row.OldScoreAway),
		NewScoreHome: nullToInt(row.NewScoreHome),
		NewScoreAway: nullToInt(row.NewScoreAway),
		Minute:       nullToString(row.Minute),
		RawStatus:    nullToString(row.RawStatus),
		TriggeredBy:  match.Trigger(row.TriggeredBy),
		OccurredAt:   row.OccurredAt.UTC(),
	}
}
