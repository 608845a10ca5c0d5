package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/grousion/grousion/internal/deliberation/domain"
	"github.com/grousion/grousion/internal/deliberation/storage"
	apperrors "github.com/grousion/grousion/internal/errors"
)

// RecordAnswerParams describes one graded answer submission.
type RecordAnswerParams struct {
	RoundID         string
	RespondentID    string
	RespondentKind  domain.RespondentKind
	AgreementLevel  int
	ConfidenceLevel int
	Comment         string
}

// RecordAnswer upserts one answer per (round, respondent) pair. Answers are
// accepted only while the round is collecting.
func (s *Service) RecordAnswer(ctx context.Context, params RecordAnswerParams) (domain.Answer, error) {
	round, err := s.store.GetRound(ctx, params.RoundID)
	if err != nil {
		return domain.Answer{}, mapStoreError(err, "record answer")
	}
	if round.Status != domain.RoundStatusStarted {
		return domain.Answer{}, apperrors.WithMetadata(
			apperrors.CodeRoundNotStarted,
			"round is not collecting answers",
			map[string]string{"RoundID": round.ID, "RoundStatus": round.Status.Label()},
		)
	}

	answer, err := domain.CreateAnswer(domain.CreateAnswerInput{
		RoundID:         round.ID,
		RespondentID:    params.RespondentID,
		RespondentKind:  params.RespondentKind,
		AgreementLevel:  params.AgreementLevel,
		ConfidenceLevel: params.ConfidenceLevel,
		Comment:         params.Comment,
	}, s.clock, s.newID)
	if err != nil {
		return domain.Answer{}, err
	}

	if err := s.validateRespondent(ctx, round, answer); err != nil {
		return domain.Answer{}, err
	}

	// Resolve the session before writing so the change signal is never lost
	// to a statement-load failure after the upsert.
	statement, err := s.store.GetStatement(ctx, round.StatementID)
	if err != nil {
		return domain.Answer{}, mapStoreError(err, "record answer")
	}

	if err := s.withRetry(ctx, func() error {
		return s.store.UpsertAnswer(ctx, answer)
	}); err != nil {
		return domain.Answer{}, mapStoreError(err, "record answer")
	}

	s.publish(statement.SessionID, EntityAnswer)
	return answer, nil
}

// validateRespondent checks the answer's respondent exists in the round's
// scope: a session participant or one of the round's groups.
func (s *Service) validateRespondent(ctx context.Context, round domain.Round, answer domain.Answer) error {
	switch answer.RespondentKind {
	case domain.RespondentKindParticipant:
		if _, err := s.store.GetParticipant(ctx, answer.RespondentID); err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				return apperrors.WithMetadata(
					apperrors.CodeAnswerInvalidRespondent,
					"answer respondent is not a session participant",
					map[string]string{"RespondentID": answer.RespondentID},
				)
			}
			return mapStoreError(err, "record answer")
		}
	case domain.RespondentKindGroup:
		groups, err := s.store.ListGroupsByRound(ctx, round.ID)
		if err != nil {
			return mapStoreError(err, "record answer")
		}
		for _, group := range groups {
			if group.ID == answer.RespondentID {
				return nil
			}
		}
		return apperrors.WithMetadata(
			apperrors.CodeAnswerInvalidRespondent,
			"answer respondent is not a group in this round",
			map[string]string{"RespondentID": answer.RespondentID, "RoundID": round.ID},
		)
	}
	return nil
}

// RespondentAnswer pairs an answer with its display name for presentation.
type RespondentAnswer struct {
	RespondentID    string
	RespondentKind  domain.RespondentKind
	Name            string
	AgreementLevel  int
	ConfidenceLevel int
	Comment         string
}

// RoundSummary aggregates one round's answers for the presenter view.
// Histogram buckets are indexed by scale value minus one.
type RoundSummary struct {
	RoundID             string
	RoundNumber         int
	Respondent          domain.RespondentType
	Status              domain.RoundStatus
	AnswerCount         int
	MeanAgreement       float64
	MeanConfidence      float64
	AgreementHistogram  [domain.ScaleMax]int
	ConfidenceHistogram [domain.ScaleMax]int
	Answers             []RespondentAnswer
}

// AggregateForStatement summarizes every round of a statement: counts,
// means, scale distributions, and per-respondent values with display names.
func (s *Service) AggregateForStatement(ctx context.Context, statementID string) ([]RoundSummary, error) {
	statement, err := s.store.GetStatement(ctx, statementID)
	if err != nil {
		return nil, mapStoreError(err, "aggregate statement")
	}
	rounds, err := s.store.ListRoundsByStatement(ctx, statement.ID)
	if err != nil {
		return nil, mapStoreError(err, "aggregate statement")
	}
	participantNames, err := s.participantNames(ctx, statement.SessionID)
	if err != nil {
		return nil, err
	}

	summaries := make([]RoundSummary, 0, len(rounds))
	for _, round := range rounds {
		answers, err := s.store.ListAnswersByRound(ctx, round.ID)
		if err != nil {
			return nil, mapStoreError(err, "aggregate statement")
		}
		groupLabels, err := s.groupLabels(ctx, round.ID)
		if err != nil {
			return nil, err
		}

		summary := RoundSummary{
			RoundID:     round.ID,
			RoundNumber: round.RoundNumber,
			Respondent:  round.Respondent,
			Status:      round.Status,
			AnswerCount: len(answers),
		}
		var agreementTotal, confidenceTotal int
		for _, answer := range answers {
			agreementTotal += answer.AgreementLevel
			confidenceTotal += answer.ConfidenceLevel
			if answer.AgreementLevel >= domain.ScaleMin && answer.AgreementLevel <= domain.ScaleMax {
				summary.AgreementHistogram[answer.AgreementLevel-1]++
			}
			if answer.ConfidenceLevel >= domain.ScaleMin && answer.ConfidenceLevel <= domain.ScaleMax {
				summary.ConfidenceHistogram[answer.ConfidenceLevel-1]++
			}
			summary.Answers = append(summary.Answers, RespondentAnswer{
				RespondentID:    answer.RespondentID,
				RespondentKind:  answer.RespondentKind,
				Name:            respondentName(answer, participantNames, groupLabels),
				AgreementLevel:  answer.AgreementLevel,
				ConfidenceLevel: answer.ConfidenceLevel,
				Comment:         answer.Comment,
			})
		}
		if len(answers) > 0 {
			summary.MeanAgreement = float64(agreementTotal) / float64(len(answers))
			summary.MeanConfidence = float64(confidenceTotal) / float64(len(answers))
		}
		summaries = append(summaries, summary)
	}
	return summaries, nil
}

// PriorAnswer is one groupmate's answer from the previous round.
type PriorAnswer struct {
	ParticipantID   string
	Name            string
	AgreementLevel  int
	ConfidenceLevel int
	Comment         string
}

// PriorGroupAnswers returns the previous round's answers from the
// participant's current groupmates, for display during group discussion.
// The result is empty, never an error, when the round has no prior round or
// the participant is ungrouped.
func (s *Service) PriorGroupAnswers(ctx context.Context, roundID, participantID string) ([]PriorAnswer, error) {
	round, err := s.store.GetRound(ctx, roundID)
	if err != nil {
		return nil, mapStoreError(err, "prior group answers")
	}
	if round.RoundNumber <= 1 {
		return nil, nil
	}

	members, err := s.store.ListGroupMembersByRound(ctx, round.ID)
	if err != nil {
		return nil, mapStoreError(err, "prior group answers")
	}
	var groupID string
	for _, member := range members {
		if member.ParticipantID == participantID {
			groupID = member.GroupID
			break
		}
	}
	if groupID == "" {
		return nil, nil
	}
	groupmates := make(map[string]bool)
	for _, member := range members {
		if member.GroupID == groupID {
			groupmates[member.ParticipantID] = true
		}
	}

	prior, err := s.store.GetRoundByNumber(ctx, round.StatementID, round.RoundNumber-1)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, nil
		}
		return nil, mapStoreError(err, "prior group answers")
	}
	answers, err := s.store.ListAnswersByRound(ctx, prior.ID)
	if err != nil {
		return nil, mapStoreError(err, "prior group answers")
	}

	statement, err := s.store.GetStatement(ctx, round.StatementID)
	if err != nil {
		return nil, mapStoreError(err, "prior group answers")
	}
	participantNames, err := s.participantNames(ctx, statement.SessionID)
	if err != nil {
		return nil, err
	}

	var priorAnswers []PriorAnswer
	for _, answer := range answers {
		if answer.RespondentKind != domain.RespondentKindParticipant {
			continue
		}
		if !groupmates[answer.RespondentID] {
			continue
		}
		priorAnswers = append(priorAnswers, PriorAnswer{
			ParticipantID:   answer.RespondentID,
			Name:            participantNames[answer.RespondentID],
			AgreementLevel:  answer.AgreementLevel,
			ConfidenceLevel: answer.ConfidenceLevel,
			Comment:         answer.Comment,
		})
	}
	return priorAnswers, nil
}

func (s *Service) participantNames(ctx context.Context, sessionID string) (map[string]string, error) {
	participants, err := s.store.ListParticipantsBySession(ctx, sessionID)
	if err != nil {
		return nil, mapStoreError(err, "load participants")
	}
	names := make(map[string]string, len(participants))
	for _, participant := range participants {
		names[participant.ID] = participant.Name
	}
	return names, nil
}

// groupLabels assigns stable presentation labels to a round's groups in
// creation order.
func (s *Service) groupLabels(ctx context.Context, roundID string) (map[string]string, error) {
	groups, err := s.store.ListGroupsByRound(ctx, roundID)
	if err != nil {
		return nil, mapStoreError(err, "load groups")
	}
	labels := make(map[string]string, len(groups))
	for _, group := range groups {
		labels[group.ID] = fmt.Sprintf("Group %d", group.Number)
	}
	return labels, nil
}

func respondentName(answer domain.Answer, participantNames, groupLabels map[string]string) string {
	switch answer.RespondentKind {
	case domain.RespondentKindParticipant:
		if name, ok := participantNames[answer.RespondentID]; ok {
			return name
		}
	case domain.RespondentKindGroup:
		if label, ok := groupLabels[answer.RespondentID]; ok {
			return label
		}
	}
	return answer.RespondentID
}
