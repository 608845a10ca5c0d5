package domain

import (
	"fmt"
	"time"

	"github.com/grousion/grousion/internal/platform/id"
)

// RoundStatus describes the lifecycle state of one response-collection round.
type RoundStatus int

const (
	// RoundStatusUnspecified represents an invalid round status value.
	RoundStatusUnspecified RoundStatus = iota
	// RoundStatusNotStarted indicates the round exists but is not collecting answers.
	RoundStatusNotStarted
	// RoundStatusStarted indicates the round is collecting answers.
	RoundStatusStarted
	// RoundStatusEnded indicates the round has finished.
	RoundStatusEnded
)

// Label returns a stable label for a round status.
func (s RoundStatus) Label() string {
	switch s {
	case RoundStatusNotStarted:
		return "not_started"
	case RoundStatusStarted:
		return "started"
	case RoundStatusEnded:
		return "ended"
	default:
		return "unspecified"
	}
}

// RoundStatusFromLabel resolves a stored label back to a status.
func RoundStatusFromLabel(label string) RoundStatus {
	switch label {
	case "not_started":
		return RoundStatusNotStarted
	case "started":
		return RoundStatusStarted
	case "ended":
		return RoundStatusEnded
	default:
		return RoundStatusUnspecified
	}
}

// RespondentType describes which entity answers a round.
type RespondentType int

const (
	// RespondentTypeUnspecified represents an invalid respondent type value.
	RespondentTypeUnspecified RespondentType = iota
	// RespondentTypeIndividual collects one answer per participant (round 1).
	RespondentTypeIndividual
	// RespondentTypeGroup collects one answer per discussion group (round >= 2).
	RespondentTypeGroup
)

// Label returns a stable label for a respondent type.
func (t RespondentType) Label() string {
	switch t {
	case RespondentTypeIndividual:
		return "individual"
	case RespondentTypeGroup:
		return "group"
	default:
		return "unspecified"
	}
}

// RespondentTypeFromLabel resolves a stored label back to a respondent type.
func RespondentTypeFromLabel(label string) RespondentType {
	switch label {
	case "individual":
		return RespondentTypeIndividual
	case "group":
		return RespondentTypeGroup
	default:
		return RespondentTypeUnspecified
	}
}

// RespondentTypeForRound returns the respondent type a round number implies:
// individual responses for round 1, group responses from round 2 onward.
func RespondentTypeForRound(roundNumber int) RespondentType {
	if roundNumber <= 1 {
		return RespondentTypeIndividual
	}
	return RespondentTypeGroup
}

// Round is one response-collection period for a statement. Round numbers are
// contiguous and unique per statement, starting at 1.
type Round struct {
	ID          string
	StatementID string
	RoundNumber int
	Status      RoundStatus
	Respondent  RespondentType
	StartedAt   *time.Time
	EndedAt     *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// CreateRound creates a not-started round for a statement.
func CreateRound(statementID string, roundNumber int, now func() time.Time, idGenerator func() (string, error)) (Round, error) {
	if now == nil {
		now = time.Now
	}
	if idGenerator == nil {
		idGenerator = id.NewID
	}
	if roundNumber < 1 {
		return Round{}, fmt.Errorf("round number must be positive, got %d", roundNumber)
	}

	roundID, err := idGenerator()
	if err != nil {
		return Round{}, fmt.Errorf("generate round id: %w", err)
	}

	createdAt := now().UTC()
	return Round{
		ID:          roundID,
		StatementID: statementID,
		RoundNumber: roundNumber,
		Status:      RoundStatusNotStarted,
		Respondent:  RespondentTypeForRound(roundNumber),
		CreatedAt:   createdAt,
		UpdatedAt:   createdAt,
	}, nil
}

// StartRound marks the round as collecting answers.
func StartRound(round Round, now func() time.Time) Round {
	if now == nil {
		now = time.Now
	}
	startedAt := now().UTC()
	updated := round
	updated.Status = RoundStatusStarted
	updated.StartedAt = &startedAt
	updated.UpdatedAt = startedAt
	return updated
}

// EndRound marks the round as finished. Ending an ended round is a no-op.
func EndRound(round Round, now func() time.Time) Round {
	if now == nil {
		now = time.Now
	}
	if round.Status == RoundStatusEnded {
		return round
	}
	endedAt := now().UTC()
	updated := round
	updated.Status = RoundStatusEnded
	updated.EndedAt = &endedAt
	updated.UpdatedAt = endedAt
	return updated
}
