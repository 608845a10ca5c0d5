package service

import (
	"context"

	"github.com/grousion/grousion/internal/deliberation/domain"
)

// SessionView is the full reconciliation read: everything a client needs to
// render a session after initial load or a change signal.
type SessionView struct {
	Session      domain.Session
	Statements   []domain.Statement
	Rounds       map[string][]domain.Round // keyed by statement ID
	Participants []domain.Participant
	ActiveRound  *domain.Round
	Groups       []domain.Group
	GroupMembers []domain.GroupMember
}

// GetSessionView assembles the session, its statements and rounds, its
// participants, and the active round's groups in one read.
func (s *Service) GetSessionView(ctx context.Context, sessionID string) (SessionView, error) {
	session, err := s.store.GetSession(ctx, sessionID)
	if err != nil {
		return SessionView{}, mapStoreError(err, "session view")
	}

	statements, err := s.store.ListStatementsBySession(ctx, sessionID)
	if err != nil {
		return SessionView{}, mapStoreError(err, "session view")
	}
	rounds := make(map[string][]domain.Round, len(statements))
	for _, statement := range statements {
		statementRounds, err := s.store.ListRoundsByStatement(ctx, statement.ID)
		if err != nil {
			return SessionView{}, mapStoreError(err, "session view")
		}
		rounds[statement.ID] = statementRounds
	}

	participants, err := s.store.ListParticipantsBySession(ctx, sessionID)
	if err != nil {
		return SessionView{}, mapStoreError(err, "session view")
	}

	view := SessionView{
		Session:      session,
		Statements:   statements,
		Rounds:       rounds,
		Participants: participants,
	}

	if session.ActiveRoundID != "" {
		for _, statementRounds := range rounds {
			for _, round := range statementRounds {
				if round.ID == session.ActiveRoundID {
					active := round
					view.ActiveRound = &active
				}
			}
		}
		groups, err := s.store.ListGroupsByRound(ctx, session.ActiveRoundID)
		if err != nil {
			return SessionView{}, mapStoreError(err, "session view")
		}
		members, err := s.store.ListGroupMembersByRound(ctx, session.ActiveRoundID)
		if err != nil {
			return SessionView{}, mapStoreError(err, "session view")
		}
		view.Groups = groups
		view.GroupMembers = members
	}

	return view, nil
}
