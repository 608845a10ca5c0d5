package domain

import (
	"fmt"
	"strings"
	"time"

	apperrors "github.com/grousion/grousion/internal/errors"
	"github.com/grousion/grousion/internal/platform/id"
)

// StatementStatus reflects whether a statement currently owns the session's
// active round.
type StatementStatus int

const (
	// StatementStatusUnspecified represents an invalid statement status value.
	StatementStatusUnspecified StatementStatus = iota
	// StatementStatusInactive indicates no round is running for the statement.
	StatementStatusInactive
	// StatementStatusActive indicates the statement owns the active round.
	StatementStatusActive
)

// Label returns a stable label for a statement status.
func (s StatementStatus) Label() string {
	switch s {
	case StatementStatusInactive:
		return "inactive"
	case StatementStatusActive:
		return "active"
	default:
		return "unspecified"
	}
}

// StatementStatusFromLabel resolves a stored label back to a status.
func StatementStatusFromLabel(label string) StatementStatus {
	switch label {
	case "inactive":
		return StatementStatusInactive
	case "active":
		return StatementStatusActive
	default:
		return StatementStatusUnspecified
	}
}

// TimerStatus describes the advisory timer state on a statement.
type TimerStatus int

const (
	// TimerStatusStopped indicates no timer is running.
	TimerStatusStopped TimerStatus = iota
	// TimerStatusRunning indicates a countdown is in progress. Expiry is
	// evaluated client-side; the engine never enforces it.
	TimerStatusRunning
)

// Label returns a stable label for a timer status.
func (s TimerStatus) Label() string {
	if s == TimerStatusRunning {
		return "running"
	}
	return "stopped"
}

// TimerStatusFromLabel resolves a stored label back to a timer status.
func TimerStatusFromLabel(label string) TimerStatus {
	if label == "running" {
		return TimerStatusRunning
	}
	return TimerStatusStopped
}

// ErrStatementContentEmpty indicates a missing statement body.
var ErrStatementContentEmpty = apperrors.New(apperrors.CodeStatementContentEmpty, "statement content is required")

// Statement is one discussion prompt belonging to a session.
type Statement struct {
	ID        string
	SessionID string
	Content   string
	// Background holds optional supporting context shown to participants.
	Background string
	Status     StatementStatus
	// TimerSeconds is the configured countdown duration; zero means untimed.
	TimerSeconds   int
	TimerStartedAt *time.Time
	TimerStatus    TimerStatus
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// CreateStatementInput describes a new statement.
type CreateStatementInput struct {
	SessionID    string
	Content      string
	Background   string
	TimerSeconds int
}

// CreateStatement creates an inactive statement with a generated ID.
func CreateStatement(input CreateStatementInput, now func() time.Time, idGenerator func() (string, error)) (Statement, error) {
	if now == nil {
		now = time.Now
	}
	if idGenerator == nil {
		idGenerator = id.NewID
	}

	content := strings.TrimSpace(input.Content)
	if content == "" {
		return Statement{}, ErrStatementContentEmpty
	}
	if input.TimerSeconds < 0 {
		return Statement{}, apperrors.New(apperrors.CodeTimerInvalidDuration, "timer duration must not be negative")
	}

	statementID, err := idGenerator()
	if err != nil {
		return Statement{}, fmt.Errorf("generate statement id: %w", err)
	}

	createdAt := now().UTC()
	return Statement{
		ID:           statementID,
		SessionID:    input.SessionID,
		Content:      content,
		Background:   strings.TrimSpace(input.Background),
		Status:       StatementStatusInactive,
		TimerSeconds: input.TimerSeconds,
		TimerStatus:  TimerStatusStopped,
		CreatedAt:    createdAt,
		UpdatedAt:    createdAt,
	}, nil
}

// StartTimer records a running countdown of the given duration. Timers are
// advisory and independent of round status.
func StartTimer(statement Statement, seconds int, now func() time.Time) (Statement, error) {
	if now == nil {
		now = time.Now
	}
	if seconds <= 0 {
		return Statement{}, apperrors.New(apperrors.CodeTimerInvalidDuration, "timer duration must be positive")
	}

	startedAt := now().UTC()
	updated := statement
	updated.TimerSeconds = seconds
	updated.TimerStartedAt = &startedAt
	updated.TimerStatus = TimerStatusRunning
	updated.UpdatedAt = startedAt
	return updated, nil
}

// StopTimer clears any running countdown.
func StopTimer(statement Statement, now func() time.Time) Statement {
	if now == nil {
		now = time.Now
	}
	updated := statement
	updated.TimerStartedAt = nil
	updated.TimerStatus = TimerStatusStopped
	updated.UpdatedAt = now().UTC()
	return updated
}
