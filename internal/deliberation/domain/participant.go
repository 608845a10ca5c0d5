package domain

import (
	"fmt"
	"strings"
	"time"

	apperrors "github.com/grousion/grousion/internal/errors"
	"github.com/grousion/grousion/internal/platform/id"
)

// ErrParticipantNameEmpty indicates a missing participant display name.
var ErrParticipantNameEmpty = apperrors.New(apperrors.CodeParticipantNameEmpty, "participant name is required")

// Participant is one person attending a session. Display names are unique
// within a session.
type Participant struct {
	ID        string
	SessionID string
	Name      string
	// IsTest marks synthetic participants used for dry runs.
	IsTest    bool
	CreatedAt time.Time
}

// CreateParticipantInput describes a new participant.
type CreateParticipantInput struct {
	SessionID string
	Name      string
	IsTest    bool
}

// CreateParticipant creates a participant with a generated ID.
func CreateParticipant(input CreateParticipantInput, now func() time.Time, idGenerator func() (string, error)) (Participant, error) {
	if now == nil {
		now = time.Now
	}
	if idGenerator == nil {
		idGenerator = id.NewID
	}

	name := strings.TrimSpace(input.Name)
	if name == "" {
		return Participant{}, ErrParticipantNameEmpty
	}

	participantID, err := idGenerator()
	if err != nil {
		return Participant{}, fmt.Errorf("generate participant id: %w", err)
	}

	return Participant{
		ID:        participantID,
		SessionID: input.SessionID,
		Name:      name,
		IsTest:    input.IsTest,
		CreatedAt: now().UTC(),
	}, nil
}
