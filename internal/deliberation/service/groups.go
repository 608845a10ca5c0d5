package service

import (
	"context"
	"errors"

	"github.com/grousion/grousion/internal/deliberation/domain"
	"github.com/grousion/grousion/internal/deliberation/storage"
	apperrors "github.com/grousion/grousion/internal/errors"
)

// FormGroups partitions the round's eligible participants into groups of
// two or three with a randomly chosen leader each. Calling it again for a
// round that already has groups returns the existing partition untouched.
// A racing second partition loses on the per-round group-number constraint
// and re-reads the winner's groups, so retried and concurrent calls
// converge on one partition.
func (s *Service) FormGroups(ctx context.Context, roundID string) ([]domain.Group, []domain.GroupMember, error) {
	round, err := s.store.GetRound(ctx, roundID)
	if err != nil {
		return nil, nil, mapStoreError(err, "form groups")
	}
	statement, err := s.store.GetStatement(ctx, round.StatementID)
	if err != nil {
		return nil, nil, mapStoreError(err, "form groups")
	}

	existing, err := s.store.ListGroupsByRound(ctx, round.ID)
	if err != nil {
		return nil, nil, mapStoreError(err, "form groups")
	}
	if len(existing) > 0 {
		members, err := s.store.ListGroupMembersByRound(ctx, round.ID)
		if err != nil {
			return nil, nil, mapStoreError(err, "form groups")
		}
		return existing, members, nil
	}

	eligible, err := s.eligibleParticipants(ctx, statement, round)
	if err != nil {
		return nil, nil, err
	}
	if len(eligible) == 0 {
		return nil, nil, apperrors.WithMetadata(
			apperrors.CodeGroupNoEligibleParticipants,
			"no participants are eligible for group formation",
			map[string]string{"RoundID": round.ID},
		)
	}

	assignments := domain.PartitionParticipants(eligible, s.rng)
	now := s.clock().UTC()
	groups := make([]domain.Group, 0, len(assignments))
	members := make([]domain.GroupMember, 0, len(eligible))
	for i, assignment := range assignments {
		groupID, idErr := s.newID()
		if idErr != nil {
			return nil, nil, idErr
		}
		groups = append(groups, domain.Group{
			ID:        groupID,
			RoundID:   round.ID,
			Number:    i + 1,
			LeaderID:  assignment.LeaderID,
			Status:    domain.GroupStatusActive,
			CreatedAt: now,
		})
		for _, participantID := range assignment.MemberIDs {
			members = append(members, domain.GroupMember{
				GroupID:       groupID,
				ParticipantID: participantID,
			})
		}
	}

	if err := s.withRetry(ctx, func() error {
		return s.store.PutRoundGroups(ctx, groups, members)
	}); err != nil {
		if errors.Is(err, storage.ErrConflict) {
			return s.rereadGroups(ctx, round.ID)
		}
		return nil, nil, mapStoreError(err, "form groups")
	}

	s.publish(statement.SessionID, EntityGroup)
	return groups, members, nil
}

// GroupsForRound returns the stored partition for one round.
func (s *Service) GroupsForRound(ctx context.Context, roundID string) ([]domain.Group, []domain.GroupMember, error) {
	groups, err := s.store.ListGroupsByRound(ctx, roundID)
	if err != nil {
		return nil, nil, mapStoreError(err, "groups for round")
	}
	members, err := s.store.ListGroupMembersByRound(ctx, roundID)
	if err != nil {
		return nil, nil, mapStoreError(err, "groups for round")
	}
	return groups, members, nil
}

// eligibleParticipants resolves the configured eligibility policy. With the
// prior-round policy, rounds without a prior round fall back to the full
// participant list. A group-respondent prior round counts every member of
// an answering group as a respondent, so round 3 and beyond keep forming.
func (s *Service) eligibleParticipants(ctx context.Context, statement domain.Statement, round domain.Round) ([]string, error) {
	if s.eligibility == EligibilityPriorRoundRespondents && round.RoundNumber > 1 {
		prior, err := s.store.GetRoundByNumber(ctx, statement.ID, round.RoundNumber-1)
		if err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				return s.allParticipantIDs(ctx, statement.SessionID)
			}
			return nil, mapStoreError(err, "form groups")
		}
		answers, err := s.store.ListAnswersByRound(ctx, prior.ID)
		if err != nil {
			return nil, mapStoreError(err, "form groups")
		}

		seen := make(map[string]bool)
		var eligible []string
		answeredGroups := make(map[string]bool)
		for _, answer := range answers {
			switch answer.RespondentKind {
			case domain.RespondentKindParticipant:
				if !seen[answer.RespondentID] {
					seen[answer.RespondentID] = true
					eligible = append(eligible, answer.RespondentID)
				}
			case domain.RespondentKindGroup:
				answeredGroups[answer.RespondentID] = true
			}
		}
		if len(answeredGroups) > 0 {
			members, err := s.store.ListGroupMembersByRound(ctx, prior.ID)
			if err != nil {
				return nil, mapStoreError(err, "form groups")
			}
			for _, member := range members {
				if answeredGroups[member.GroupID] && !seen[member.ParticipantID] {
					seen[member.ParticipantID] = true
					eligible = append(eligible, member.ParticipantID)
				}
			}
		}
		return eligible, nil
	}
	return s.allParticipantIDs(ctx, statement.SessionID)
}

func (s *Service) allParticipantIDs(ctx context.Context, sessionID string) ([]string, error) {
	participants, err := s.store.ListParticipantsBySession(ctx, sessionID)
	if err != nil {
		return nil, mapStoreError(err, "form groups")
	}
	ids := make([]string, 0, len(participants))
	for _, participant := range participants {
		ids = append(ids, participant.ID)
	}
	return ids, nil
}

func (s *Service) rereadGroups(ctx context.Context, roundID string) ([]domain.Group, []domain.GroupMember, error) {
	groups, err := s.store.ListGroupsByRound(ctx, roundID)
	if err != nil {
		return nil, nil, mapStoreError(err, "form groups")
	}
	members, err := s.store.ListGroupMembersByRound(ctx, roundID)
	if err != nil {
		return nil, nil, mapStoreError(err, "form groups")
	}
	return groups, members, nil
}
