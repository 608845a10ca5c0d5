package domain

import (
	"fmt"
	"strings"
	"time"

	apperrors "github.com/grousion/grousion/internal/errors"
	"github.com/grousion/grousion/internal/platform/id"
)

// Agreement and confidence levels share one bounded scale.
const (
	ScaleMin = 1
	ScaleMax = 10
)

// RespondentKind identifies which entity an answer is attributed to.
type RespondentKind int

const (
	// RespondentKindUnspecified represents an invalid respondent kind value.
	RespondentKindUnspecified RespondentKind = iota
	// RespondentKindParticipant attributes the answer to one participant.
	RespondentKindParticipant
	// RespondentKindGroup attributes the answer to a discussion group.
	RespondentKindGroup
)

// Label returns a stable label for a respondent kind.
func (k RespondentKind) Label() string {
	switch k {
	case RespondentKindParticipant:
		return "participant"
	case RespondentKindGroup:
		return "group"
	default:
		return "unspecified"
	}
}

// RespondentKindFromLabel resolves a stored label back to a respondent kind.
func RespondentKindFromLabel(label string) RespondentKind {
	switch label {
	case "participant":
		return RespondentKindParticipant
	case "group":
		return RespondentKindGroup
	default:
		return RespondentKindUnspecified
	}
}

// Answer is one graded response for a round. At most one answer exists per
// (round, respondent) pair; repeated submissions overwrite.
type Answer struct {
	ID              string
	RoundID         string
	RespondentID    string
	RespondentKind  RespondentKind
	AgreementLevel  int
	ConfidenceLevel int
	Comment         string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// CreateAnswerInput describes one answer submission.
type CreateAnswerInput struct {
	RoundID         string
	RespondentID    string
	RespondentKind  RespondentKind
	AgreementLevel  int
	ConfidenceLevel int
	Comment         string
}

// CreateAnswer validates and creates an answer with a generated ID.
func CreateAnswer(input CreateAnswerInput, now func() time.Time, idGenerator func() (string, error)) (Answer, error) {
	if now == nil {
		now = time.Now
	}
	if idGenerator == nil {
		idGenerator = id.NewID
	}

	respondentID := strings.TrimSpace(input.RespondentID)
	if respondentID == "" {
		return Answer{}, apperrors.New(apperrors.CodeAnswerRespondentEmpty, "answer respondent is required")
	}
	if input.RespondentKind != RespondentKindParticipant && input.RespondentKind != RespondentKindGroup {
		return Answer{}, apperrors.New(apperrors.CodeAnswerInvalidRespondent, "answer respondent kind is invalid")
	}
	if err := validateScale("agreement_level", input.AgreementLevel); err != nil {
		return Answer{}, err
	}
	if err := validateScale("confidence_level", input.ConfidenceLevel); err != nil {
		return Answer{}, err
	}

	answerID, err := idGenerator()
	if err != nil {
		return Answer{}, fmt.Errorf("generate answer id: %w", err)
	}

	createdAt := now().UTC()
	return Answer{
		ID:              answerID,
		RoundID:         input.RoundID,
		RespondentID:    respondentID,
		RespondentKind:  input.RespondentKind,
		AgreementLevel:  input.AgreementLevel,
		ConfidenceLevel: input.ConfidenceLevel,
		Comment:         strings.TrimSpace(input.Comment),
		CreatedAt:       createdAt,
		UpdatedAt:       createdAt,
	}, nil
}

func validateScale(field string, value int) error {
	if value < ScaleMin || value > ScaleMax {
		return apperrors.WithMetadata(
			apperrors.CodeAnswerScaleOutOfRange,
			fmt.Sprintf("%s must be between %d and %d, got %d", field, ScaleMin, ScaleMax, value),
			map[string]string{"Field": field, "Value": fmt.Sprintf("%d", value)},
		)
	}
	return nil
}
