package service

import (
	"context"
	"testing"

	"github.com/grousion/grousion/internal/deliberation/domain"
	apperrors "github.com/grousion/grousion/internal/errors"
)

func TestRecordAnswerRequiresStartedRound(t *testing.T) {
	t.Parallel()

	svc, store, _ := newTestService(t)
	_, statementID, roundID := seedStartedSession(t, store, []string{"Ada", "Brin"})
	ctx := context.Background()

	if _, err := svc.EndRound(ctx, statementID); err != nil {
		t.Fatalf("end round: %v", err)
	}

	_, err := svc.RecordAnswer(ctx, RecordAnswerParams{
		RoundID:         roundID,
		RespondentID:    "part-1",
		RespondentKind:  domain.RespondentKindParticipant,
		AgreementLevel:  5,
		ConfidenceLevel: 5,
	})
	if !apperrors.IsCode(err, apperrors.CodeRoundNotStarted) {
		t.Fatalf("expected round-not-started code, got %v", err)
	}
}

func TestRecordAnswerScaleValidation(t *testing.T) {
	t.Parallel()

	svc, store, _ := newTestService(t)
	_, _, roundID := seedStartedSession(t, store, []string{"Ada", "Brin"})
	ctx := context.Background()

	for _, params := range []RecordAnswerParams{
		{RoundID: roundID, RespondentID: "part-1", RespondentKind: domain.RespondentKindParticipant, AgreementLevel: 0, ConfidenceLevel: 5},
		{RoundID: roundID, RespondentID: "part-1", RespondentKind: domain.RespondentKindParticipant, AgreementLevel: 5, ConfidenceLevel: 11},
	} {
		if _, err := svc.RecordAnswer(ctx, params); !apperrors.IsCode(err, apperrors.CodeAnswerScaleOutOfRange) {
			t.Fatalf("expected scale-out-of-range code for %+v, got %v", params, err)
		}
	}
}

func TestRecordAnswerRejectsUnknownRespondent(t *testing.T) {
	t.Parallel()

	svc, store, _ := newTestService(t)
	_, _, roundID := seedStartedSession(t, store, []string{"Ada", "Brin"})
	ctx := context.Background()

	_, err := svc.RecordAnswer(ctx, RecordAnswerParams{
		RoundID:         roundID,
		RespondentID:    "stranger",
		RespondentKind:  domain.RespondentKindParticipant,
		AgreementLevel:  5,
		ConfidenceLevel: 5,
	})
	if !apperrors.IsCode(err, apperrors.CodeAnswerInvalidRespondent) {
		t.Fatalf("expected invalid-respondent code, got %v", err)
	}
}

func TestRecordAnswerFailsBeforeWriteWhenStatementMissing(t *testing.T) {
	t.Parallel()

	svc, store, publisher := newTestService(t)
	_, statementID, roundID := seedStartedSession(t, store, []string{"Ada", "Brin"})
	ctx := context.Background()

	delete(store.statements, statementID)

	_, err := svc.RecordAnswer(ctx, RecordAnswerParams{
		RoundID:         roundID,
		RespondentID:    "part-1",
		RespondentKind:  domain.RespondentKindParticipant,
		AgreementLevel:  5,
		ConfidenceLevel: 5,
	})
	if !apperrors.IsCode(err, apperrors.CodeNotFound) {
		t.Fatalf("expected not-found code, got %v", err)
	}

	answers, listErr := store.ListAnswersByRound(ctx, roundID)
	if listErr != nil {
		t.Fatalf("list answers: %v", listErr)
	}
	if len(answers) != 0 {
		t.Fatalf("expected no answer persisted, got %d", len(answers))
	}
	if publisher.has("sess-1:" + EntityAnswer) {
		t.Fatal("expected no answer change signal")
	}
}

func TestRecordAnswerUpsertAggregatesOnce(t *testing.T) {
	t.Parallel()

	svc, store, _ := newTestService(t)
	_, statementID, roundID := seedStartedSession(t, store, []string{"Ada", "Brin"})
	ctx := context.Background()

	if _, err := svc.RecordAnswer(ctx, RecordAnswerParams{
		RoundID:         roundID,
		RespondentID:    "part-1",
		RespondentKind:  domain.RespondentKindParticipant,
		AgreementLevel:  3,
		ConfidenceLevel: 4,
		Comment:         "unsure",
	}); err != nil {
		t.Fatalf("first answer: %v", err)
	}
	if _, err := svc.RecordAnswer(ctx, RecordAnswerParams{
		RoundID:         roundID,
		RespondentID:    "part-1",
		RespondentKind:  domain.RespondentKindParticipant,
		AgreementLevel:  9,
		ConfidenceLevel: 8,
		Comment:         "convinced now",
	}); err != nil {
		t.Fatalf("revised answer: %v", err)
	}

	summaries, err := svc.AggregateForStatement(ctx, statementID)
	if err != nil {
		t.Fatalf("aggregate: %v", err)
	}
	if len(summaries) != 1 {
		t.Fatalf("expected 1 round summary, got %d", len(summaries))
	}
	summary := summaries[0]
	if summary.AnswerCount != 1 {
		t.Fatalf("expected single aggregated answer after revision, got %d", summary.AnswerCount)
	}
	if summary.MeanAgreement != 9 || summary.MeanConfidence != 8 {
		t.Fatalf("expected revised values in aggregate, got %f/%f", summary.MeanAgreement, summary.MeanConfidence)
	}
	if summary.AgreementHistogram[8] != 1 || summary.AgreementHistogram[2] != 0 {
		t.Fatalf("expected histogram to track only the revision, got %v", summary.AgreementHistogram)
	}
	if len(summary.Answers) != 1 || summary.Answers[0].Name != "Ada" {
		t.Fatalf("expected Ada's answer in summary, got %+v", summary.Answers)
	}
	if summary.Answers[0].Comment != "convinced now" {
		t.Fatalf("expected revised comment, got %q", summary.Answers[0].Comment)
	}
}

func TestAggregateForStatementComputesMeans(t *testing.T) {
	t.Parallel()

	svc, store, _ := newTestService(t)
	_, statementID, roundID := seedStartedSession(t, store, []string{"Ada", "Brin", "Cleo"})
	ctx := context.Background()

	values := []struct {
		participant string
		agreement   int
		confidence  int
	}{
		{"part-1", 2, 10},
		{"part-2", 4, 6},
		{"part-3", 9, 5},
	}
	for _, value := range values {
		if _, err := svc.RecordAnswer(ctx, RecordAnswerParams{
			RoundID:         roundID,
			RespondentID:    value.participant,
			RespondentKind:  domain.RespondentKindParticipant,
			AgreementLevel:  value.agreement,
			ConfidenceLevel: value.confidence,
		}); err != nil {
			t.Fatalf("record answer: %v", err)
		}
	}

	summaries, err := svc.AggregateForStatement(ctx, statementID)
	if err != nil {
		t.Fatalf("aggregate: %v", err)
	}
	summary := summaries[0]
	if summary.AnswerCount != 3 {
		t.Fatalf("expected 3 answers, got %d", summary.AnswerCount)
	}
	if summary.MeanAgreement != 5 {
		t.Fatalf("expected mean agreement 5, got %f", summary.MeanAgreement)
	}
	if summary.MeanConfidence != 7 {
		t.Fatalf("expected mean confidence 7, got %f", summary.MeanConfidence)
	}
}

func TestPriorGroupAnswersEmptyForFirstRound(t *testing.T) {
	t.Parallel()

	svc, store, _ := newTestService(t)
	_, _, roundID := seedStartedSession(t, store, []string{"Ada", "Brin"})

	answers, err := svc.PriorGroupAnswers(context.Background(), roundID, "part-1")
	if err != nil {
		t.Fatalf("prior group answers: %v", err)
	}
	if len(answers) != 0 {
		t.Fatalf("expected empty result for round 1, got %d answers", len(answers))
	}
}

func TestPriorGroupAnswersEmptyForUngroupedParticipant(t *testing.T) {
	t.Parallel()

	svc, store, _ := newTestService(t)
	names := []string{"Ada", "Brin", "Cleo"}
	_, statementID, round1ID := seedStartedSession(t, store, names)
	round2ID := advanceToGroupRound(t, svc, statementID, round1ID, len(names))

	// Groups not formed yet, so everyone is ungrouped.
	answers, err := svc.PriorGroupAnswers(context.Background(), round2ID, "part-1")
	if err != nil {
		t.Fatalf("prior group answers: %v", err)
	}
	if len(answers) != 0 {
		t.Fatalf("expected empty result before partitioning, got %d answers", len(answers))
	}
}

func TestPriorGroupAnswersRestrictedToGroupmates(t *testing.T) {
	t.Parallel()

	svc, store, _ := newTestService(t)
	names := []string{"Ada", "Brin", "Cleo", "Dev", "Eiko", "Finn"}
	_, statementID, round1ID := seedStartedSession(t, store, names)
	round2ID := advanceToGroupRound(t, svc, statementID, round1ID, len(names))
	ctx := context.Background()

	_, members, err := svc.FormGroups(ctx, round2ID)
	if err != nil {
		t.Fatalf("form groups: %v", err)
	}

	groupOf := make(map[string]string)
	groupSize := make(map[string]int)
	for _, member := range members {
		groupOf[member.ParticipantID] = member.GroupID
		groupSize[member.GroupID]++
	}

	answers, err := svc.PriorGroupAnswers(ctx, round2ID, "part-1")
	if err != nil {
		t.Fatalf("prior group answers: %v", err)
	}
	if len(answers) != groupSize[groupOf["part-1"]] {
		t.Fatalf("expected one prior answer per groupmate, got %d for group of %d",
			len(answers), groupSize[groupOf["part-1"]])
	}
	for _, answer := range answers {
		if groupOf[answer.ParticipantID] != groupOf["part-1"] {
			t.Fatalf("answer from non-groupmate %s leaked", answer.ParticipantID)
		}
		if answer.Name == "" {
			t.Fatalf("expected display name on prior answer, got %+v", answer)
		}
	}
}
