package usecase

import (
	"context"
	"time"

	"github.com/riskibarqy/score-tracker/internal/domain/match"
)

// EventPublisher forwards committed audit events to downstream consumers.
// Publishing is best effort; the event log stays the source of truth.
type EventPublisher interface {
	Publish(ctx context.Context, events []match.Event) error
}

type TrackingMetrics interface {
	ObservePoll(source match.SourceType, result string, elapsed time.Duration)
	IncEvent(eventType match.EventType)
	IncRejection(kind RejectionKind)
	IncSkipped(reason string)
}

const (
	pollResultOK       = "ok"
	pollResultFailed   = "failed"
	pollResultGated    = "pre_kickoff"
	pollResultDisabled = "disabled"

	skipReasonInFlight = "in_flight"
)

type nopPublisher struct{}

func (nopPublisher) Publish(context.Context, []match.Event) error { return nil }

type nopMetrics struct{}

func (nopMetrics) ObservePoll(match.SourceType, string, time.Duration) {}
func (nopMetrics) IncEvent(match.EventType)                            {}
func (nopMetrics) IncRejection(RejectionKind)                          {}
func (nopMetrics) IncSkipped(string)                                   {}
