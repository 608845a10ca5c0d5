package domain

import (
	"fmt"
	"strings"
	"time"

	apperrors "github.com/grousion/grousion/internal/errors"
	"github.com/grousion/grousion/internal/platform/id"
)

// SessionStatus describes the lifecycle state of a deliberation session.
type SessionStatus int

const (
	// SessionStatusUnspecified represents an invalid session status value.
	SessionStatusUnspecified SessionStatus = iota
	// SessionStatusDraft indicates the session is being prepared.
	SessionStatusDraft
	// SessionStatusPublished indicates the session is open for participants to join.
	SessionStatusPublished
	// SessionStatusStarted indicates the session is running rounds.
	SessionStatusStarted
	// SessionStatusEnded indicates the session has ended.
	SessionStatusEnded
)

// sessionStatusLabels maps statuses to their stable string labels.
var sessionStatusLabels = map[SessionStatus]string{
	SessionStatusDraft:     "draft",
	SessionStatusPublished: "published",
	SessionStatusStarted:   "started",
	SessionStatusEnded:     "ended",
}

// Label returns a stable label for a session status.
func (s SessionStatus) Label() string {
	if label, ok := sessionStatusLabels[s]; ok {
		return label
	}
	return "unspecified"
}

// SessionStatusFromLabel resolves a stored label back to a status.
func SessionStatusFromLabel(label string) SessionStatus {
	for status, candidate := range sessionStatusLabels {
		if candidate == label {
			return status
		}
	}
	return SessionStatusUnspecified
}

var (
	// ErrSessionNameEmpty indicates a missing session name.
	ErrSessionNameEmpty = apperrors.New(apperrors.CodeSessionNameEmpty, "session name is required")
)

// Session represents one deliberation session owned by a facilitator.
type Session struct {
	ID        string
	Name      string
	CreatedBy string
	Status    SessionStatus
	// AllowJoins reports whether new participants may currently join.
	AllowJoins bool
	// ActiveRoundID is the sole arbiter of which round is live; empty when
	// no round is active.
	ActiveRoundID string
	// TestMode marks sessions populated with synthetic participants.
	TestMode             bool
	TestParticipantCount int
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

// CreateSessionInput describes the metadata needed to create a session.
type CreateSessionInput struct {
	Name      string
	CreatedBy string
	TestMode  bool
}

// CreateSession creates a new draft session with a generated ID and timestamps.
func CreateSession(input CreateSessionInput, now func() time.Time, idGenerator func() (string, error)) (Session, error) {
	if now == nil {
		now = time.Now
	}
	if idGenerator == nil {
		idGenerator = id.NewID
	}

	name := strings.TrimSpace(input.Name)
	if name == "" {
		return Session{}, ErrSessionNameEmpty
	}

	sessionID, err := idGenerator()
	if err != nil {
		return Session{}, fmt.Errorf("generate session id: %w", err)
	}

	createdAt := now().UTC()
	return Session{
		ID:        sessionID,
		Name:      name,
		CreatedBy: strings.TrimSpace(input.CreatedBy),
		Status:    SessionStatusDraft,
		TestMode:  input.TestMode,
		CreatedAt: createdAt,
		UpdatedAt: createdAt,
	}, nil
}

// PublishSession transitions a draft session to published and opens joins.
// Publishing requires at least one statement.
func PublishSession(session Session, statementCount int, now func() time.Time) (Session, error) {
	if now == nil {
		now = time.Now
	}
	if session.Status == SessionStatusPublished {
		return session, nil
	}
	if session.Status != SessionStatusDraft {
		return Session{}, invalidSessionTransition(session.Status, SessionStatusPublished)
	}
	if statementCount < 1 {
		return Session{}, apperrors.WithMetadata(
			apperrors.CodeSessionNoStatements,
			"session cannot be published without statements",
			map[string]string{"SessionID": session.ID},
		)
	}

	updated := session
	updated.Status = SessionStatusPublished
	updated.AllowJoins = true
	updated.UpdatedAt = now().UTC()
	return updated, nil
}

// StartSession transitions a session into the started state. Entry from
// published requires at least two participants and one statement and closes
// joins; re-entering started is a no-op; entry from ended is the reopen path
// and carries no guards.
func StartSession(session Session, participantCount, statementCount int, now func() time.Time) (Session, error) {
	if now == nil {
		now = time.Now
	}

	switch session.Status {
	case SessionStatusStarted:
		return session, nil
	case SessionStatusPublished:
		if statementCount < 1 {
			return Session{}, apperrors.WithMetadata(
				apperrors.CodeSessionNoStatements,
				"session cannot start without statements",
				map[string]string{"SessionID": session.ID},
			)
		}
		if participantCount < 2 {
			return Session{}, apperrors.WithMetadata(
				apperrors.CodeSessionNotEnoughParticipants,
				fmt.Sprintf("session needs at least 2 participants to start, has %d", participantCount),
				map[string]string{"SessionID": session.ID, "ParticipantCount": fmt.Sprintf("%d", participantCount)},
			)
		}
	case SessionStatusEnded:
		// Reopen: unconditional.
	default:
		return Session{}, invalidSessionTransition(session.Status, SessionStatusStarted)
	}

	updated := session
	updated.Status = SessionStatusStarted
	updated.AllowJoins = false
	updated.UpdatedAt = now().UTC()
	return updated, nil
}

// EndSession transitions a started session to ended. Ending an already ended
// session is a no-op.
func EndSession(session Session, now func() time.Time) (Session, error) {
	if now == nil {
		now = time.Now
	}
	if session.Status == SessionStatusEnded {
		return session, nil
	}
	if session.Status != SessionStatusStarted {
		return Session{}, invalidSessionTransition(session.Status, SessionStatusEnded)
	}

	updated := session
	updated.Status = SessionStatusEnded
	updated.UpdatedAt = now().UTC()
	return updated, nil
}

// CanJoin reports whether the session currently accepts new participants.
func (s Session) CanJoin() bool {
	return s.Status == SessionStatusPublished && s.AllowJoins
}

func invalidSessionTransition(from, to SessionStatus) error {
	return apperrors.WithMetadata(
		apperrors.CodeSessionInvalidStatusTransition,
		fmt.Sprintf("session status transition not allowed: %s -> %s", from.Label(), to.Label()),
		map[string]string{"FromStatus": from.Label(), "ToStatus": to.Label()},
	)
}
