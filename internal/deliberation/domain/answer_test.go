package domain

import (
	"testing"
	"time"

	apperrors "github.com/grousion/grousion/internal/errors"
)

func TestCreateAnswerValid(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 8, 1, 14, 0, 0, 0, time.UTC)
	answer, err := CreateAnswer(CreateAnswerInput{
		RoundID:         "round-1",
		RespondentID:    "part-1",
		RespondentKind:  RespondentKindParticipant,
		AgreementLevel:  7,
		ConfidenceLevel: 4,
		Comment:         "  mostly agree  ",
	}, fixedClock(now), sequentialIDGenerator("ans-1"))
	if err != nil {
		t.Fatalf("create answer: %v", err)
	}
	if answer.ID != "ans-1" {
		t.Fatalf("expected generated id, got %q", answer.ID)
	}
	if answer.Comment != "mostly agree" {
		t.Fatalf("expected trimmed comment, got %q", answer.Comment)
	}
}

func TestCreateAnswerRejectsOutOfRangeScales(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name       string
		agreement  int
		confidence int
	}{
		{"agreement below min", 0, 5},
		{"agreement above max", 11, 5},
		{"confidence below min", 5, 0},
		{"confidence above max", 5, 11},
	}
	for _, tc := range cases {
		_, err := CreateAnswer(CreateAnswerInput{
			RoundID:         "round-1",
			RespondentID:    "part-1",
			RespondentKind:  RespondentKindParticipant,
			AgreementLevel:  tc.agreement,
			ConfidenceLevel: tc.confidence,
		}, nil, nil)
		if !apperrors.IsCode(err, apperrors.CodeAnswerScaleOutOfRange) {
			t.Fatalf("%s: expected scale error, got %v", tc.name, err)
		}
	}
}

func TestCreateAnswerRequiresRespondent(t *testing.T) {
	t.Parallel()

	_, err := CreateAnswer(CreateAnswerInput{
		RoundID:         "round-1",
		RespondentID:    "  ",
		RespondentKind:  RespondentKindParticipant,
		AgreementLevel:  5,
		ConfidenceLevel: 5,
	}, nil, nil)
	if !apperrors.IsCode(err, apperrors.CodeAnswerRespondentEmpty) {
		t.Fatalf("expected respondent error, got %v", err)
	}

	_, err = CreateAnswer(CreateAnswerInput{
		RoundID:         "round-1",
		RespondentID:    "part-1",
		RespondentKind:  RespondentKindUnspecified,
		AgreementLevel:  5,
		ConfidenceLevel: 5,
	}, nil, nil)
	if !apperrors.IsCode(err, apperrors.CodeAnswerInvalidRespondent) {
		t.Fatalf("expected respondent kind error, got %v", err)
	}
}

func TestRespondentKindLabelsRoundTrip(t *testing.T) {
	t.Parallel()

	for _, kind := range []RespondentKind{RespondentKindParticipant, RespondentKindGroup} {
		if RespondentKindFromLabel(kind.Label()) != kind {
			t.Fatalf("label round-trip failed for %s", kind.Label())
		}
	}
}
