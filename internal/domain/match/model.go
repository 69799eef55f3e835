package match

import (
	"errors"
	"strings"
	"time"
)

var (
	ErrUnknownSource = errors.New("no snapshot provider registered for source")
	ErrInvalidStatus = errors.New("invalid match status")
	ErrDuplicateID   = errors.New("match id already exists")
	ErrNotFound      = errors.New("match does not exist")
)

// Status is the canonical lifecycle state of a match.
type Status string

const (
	StatusScheduled Status = "SCHEDULED"
	StatusInPlay    Status = "IN_PLAY"
	StatusPaused    Status = "PAUSED"
	StatusFinished  Status = "FINISHED"
)

func (s Status) Valid() bool {
	switch s {
	case StatusScheduled, StatusInPlay, StatusPaused, StatusFinished:
		return true
	default:
		return false
	}
}

func (s Status) String() string {
	return string(s)
}

func ParseStatus(raw string) (Status, error) {
	status := Status(strings.ToUpper(strings.TrimSpace(raw)))
	if !status.Valid() {
		return "", ErrInvalidStatus
	}
	return status, nil
}

// SourceType tags which provider knows how to read a match locator.
type SourceType string

const (
	SourceOneFootball SourceType = "ONE_FOOTBALL"
	SourceLiveScore   SourceType = "LIVE_SCORE"
	SourceSportMonks  SourceType = "SPORTMONKS"
)

func ParseSourceType(raw string) SourceType {
	return SourceType(strings.ToUpper(strings.TrimSpace(raw)))
}

// Match is the tracked aggregate. Optional values are pointers; nil means
// not observed yet.
type Match struct {
	ID         string
	ExternalID string
	HomeTeam   string
	AwayTeam   string
	Source     SourceType
	Locator    string
	KickoffAt  time.Time

	Status    Status
	ScoreHome *int
	ScoreAway *int

	PenaltyHome   *int
	PenaltyAway   *int
	WinnerHomeTAB *bool
	WinnerAwayTAB *bool

	Minute    *string
	RawStatus *string

	TrackingEnabled bool
	ErrorCount      int
	LastError       *string
	LastFetchAt     *time.Time

	// StatusCandidate is nil whenever ConsecutiveSameCandidate is zero.
	StatusCandidate          *Status
	ConsecutiveSameCandidate int
	StatusCandidateSince     *time.Time

	HalfTimeSeen bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// ClearCandidate drops pending debounce state.
func (m *Match) ClearCandidate() {
	m.StatusCandidate = nil
	m.ConsecutiveSameCandidate = 0
	m.StatusCandidateSince = nil
}

// ListFilter narrows List results. Zero values mean "any".
type ListFilter struct {
	Status   Status
	Tracking *bool
	Limit    int
	Offset   int
}

// Snapshot is one point-in-time read from a provider.
type Snapshot struct {
	Found     bool
	RawStatus *string
	Minute    *string
	Home      *int
	Away      *int
	// Failure explains a snapshot that was not found.
	Failure string
}

const defaultFailure = "match data not found"

func NotFound() Snapshot {
	return Snapshot{}
}

// Failed converts a fetch error into a not-found snapshot carrying its message.
func Failed(err error) Snapshot {
	if err == nil {
		return NotFound()
	}
	return Snapshot{Failure: err.Error()}
}

func (s Snapshot) FailureReason() string {
	if s.Failure == "" {
		return defaultFailure
	}
	return s.Failure
}

// ScheduledSnapshot is returned when a page exists but carries no score yet.
func ScheduledSnapshot() Snapshot {
	return Snapshot{Found: true, RawStatus: StringPtr(string(StatusScheduled))}
}

func (s Snapshot) HasScore() bool {
	return s.Home != nil && s.Away != nil
}

func IntPtr(v int) *int {
	return &v
}

func StringPtr(v string) *string {
	return &v
}

func BoolPtr(v bool) *bool {
	return &v
}

func TimePtr(v time.Time) *time.Time {
	return &v
}

func StatusPtr(v Status) *Status {
	return &v
}

// EqualInt compares optional ints by value.
func EqualInt(a, b *int) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

// ShootoutWinners decides the penalty winner flags. Both are nil unless both
// shoot-out scores are known and the regular score is level.
func ShootoutWinners(home, away, penaltyHome, penaltyAway *int) (*bool, *bool) {
	if penaltyHome == nil || penaltyAway == nil || home == nil || away == nil {
		return nil, nil
	}
	if *home != *away {
		return nil, nil
	}
	return BoolPtr(*penaltyHome > *penaltyAway), BoolPtr(*penaltyAway > *penaltyHome)
}
