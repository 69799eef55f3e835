package match

import "time"

type EventType string

const (
	EventStatusChange          EventType = "STATUS_CHANGE"
	EventScoreChange           EventType = "SCORE_CHANGE"
	EventAntiFlappingActivated EventType = "ANTI_FLAPPING_ACTIVATED"
	EventErrorDetected         EventType = "ERROR_DETECTED"
	EventTrackingEnabled       EventType = "TRACKING_ENABLED"
	EventTrackingDisabled      EventType = "TRACKING_DISABLED"
	EventManualUpdate          EventType = "MANUAL_UPDATE"
	EventManualRefresh         EventType = "MANUAL_REFRESH"
)

type Trigger string

const (
	TriggerScheduler      Trigger = "SCHEDULER"
	TriggerAutoCorrection Trigger = "AUTO_CORRECTION"
	TriggerManual         Trigger = "MANUAL"
	TriggerAdmin          Trigger = "ADMIN"
)

// Event is one append-only audit record. ID is assigned by the event log.
type Event struct {
	ID           int64
	MatchID      string
	Type         EventType
	OldStatus    *Status
	NewStatus    *Status
	OldScoreHome *int
	OldScoreAway *int
	NewScoreHome *int
	NewScoreAway *int
	Minute       *string
	RawStatus    *string
	TriggeredBy  Trigger
	OccurredAt   time.Time
}

// NewEvent stamps an event with the match's current minute and raw status.
func NewEvent(m Match, eventType EventType, trigger Trigger, at time.Time) Event {
	return Event{
		MatchID:     m.ID,
		Type:        eventType,
		Minute:      m.Minute,
		RawStatus:   m.RawStatus,
		TriggeredBy: trigger,
		OccurredAt:  at,
	}
}
