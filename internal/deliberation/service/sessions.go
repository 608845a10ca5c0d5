package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/grousion/grousion/internal/deliberation/domain"
	"github.com/grousion/grousion/internal/deliberation/storage"
	apperrors "github.com/grousion/grousion/internal/errors"
)

// CreateSessionParams describes a new deliberation session.
type CreateSessionParams struct {
	Name                 string
	CreatedBy            string
	TestMode             bool
	TestParticipantCount int
}

// CreateSession creates a draft session.
func (s *Service) CreateSession(ctx context.Context, params CreateSessionParams) (domain.Session, error) {
	session, err := domain.CreateSession(domain.CreateSessionInput{
		Name:      params.Name,
		CreatedBy: params.CreatedBy,
		TestMode:  params.TestMode,
	}, s.clock, s.newID)
	if err != nil {
		return domain.Session{}, err
	}
	if params.TestMode && params.TestParticipantCount > 0 {
		session.TestParticipantCount = params.TestParticipantCount
	}

	if err := s.withRetry(ctx, func() error {
		return s.store.PutSession(ctx, session)
	}); err != nil {
		return domain.Session{}, mapStoreError(err, "create session")
	}
	s.publish(session.ID, EntitySession)
	return session, nil
}

// GetSession loads one session.
func (s *Service) GetSession(ctx context.Context, sessionID string) (domain.Session, error) {
	session, err := s.store.GetSession(ctx, sessionID)
	if err != nil {
		return domain.Session{}, mapStoreError(err, "get session")
	}
	return session, nil
}

// ListSessions lists all sessions newest-first.
func (s *Service) ListSessions(ctx context.Context) ([]domain.Session, error) {
	sessions, err := s.store.ListSessions(ctx)
	if err != nil {
		return nil, mapStoreError(err, "list sessions")
	}
	return sessions, nil
}

// RenameSession updates a session's display name.
func (s *Service) RenameSession(ctx context.Context, sessionID, name string) (domain.Session, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return domain.Session{}, domain.ErrSessionNameEmpty
	}

	session, err := s.store.GetSession(ctx, sessionID)
	if err != nil {
		return domain.Session{}, mapStoreError(err, "rename session")
	}
	session.Name = name
	session.UpdatedAt = s.clock().UTC()

	if err := s.withRetry(ctx, func() error {
		return s.store.UpdateSession(ctx, session)
	}); err != nil {
		return domain.Session{}, mapStoreError(err, "rename session")
	}
	s.publish(session.ID, EntitySession)
	return session, nil
}

// PublishSession transitions a draft session to published and opens joins.
func (s *Service) PublishSession(ctx context.Context, sessionID string) (domain.Session, error) {
	session, err := s.store.GetSession(ctx, sessionID)
	if err != nil {
		return domain.Session{}, mapStoreError(err, "publish session")
	}
	statements, err := s.store.ListStatementsBySession(ctx, sessionID)
	if err != nil {
		return domain.Session{}, mapStoreError(err, "publish session")
	}

	updated, err := domain.PublishSession(session, len(statements), s.clock)
	if err != nil {
		return domain.Session{}, err
	}
	if updated == session {
		return session, nil
	}

	if err := s.withRetry(ctx, func() error {
		return s.store.UpdateSession(ctx, updated)
	}); err != nil {
		return domain.Session{}, mapStoreError(err, "publish session")
	}
	s.publish(updated.ID, EntitySession)
	return updated, nil
}

// StartSession transitions a published session to started and closes joins.
// Test-mode sessions are topped up with synthetic participants first.
func (s *Service) StartSession(ctx context.Context, sessionID string) (domain.Session, error) {
	session, err := s.store.GetSession(ctx, sessionID)
	if err != nil {
		return domain.Session{}, mapStoreError(err, "start session")
	}

	if session.TestMode && session.Status == domain.SessionStatusPublished {
		if err := s.seedTestParticipants(ctx, session); err != nil {
			return domain.Session{}, err
		}
	}

	participants, err := s.store.ListParticipantsBySession(ctx, sessionID)
	if err != nil {
		return domain.Session{}, mapStoreError(err, "start session")
	}
	statements, err := s.store.ListStatementsBySession(ctx, sessionID)
	if err != nil {
		return domain.Session{}, mapStoreError(err, "start session")
	}

	updated, err := domain.StartSession(session, len(participants), len(statements), s.clock)
	if err != nil {
		return domain.Session{}, err
	}
	if updated == session {
		return session, nil
	}

	if err := s.withRetry(ctx, func() error {
		return s.store.UpdateSession(ctx, updated)
	}); err != nil {
		return domain.Session{}, mapStoreError(err, "start session")
	}
	s.publish(updated.ID, EntitySession)
	return updated, nil
}

// EndSession transitions a started session to ended.
func (s *Service) EndSession(ctx context.Context, sessionID string) (domain.Session, error) {
	session, err := s.store.GetSession(ctx, sessionID)
	if err != nil {
		return domain.Session{}, mapStoreError(err, "end session")
	}

	updated, err := domain.EndSession(session, s.clock)
	if err != nil {
		return domain.Session{}, err
	}
	if updated == session {
		return session, nil
	}

	if err := s.withRetry(ctx, func() error {
		return s.store.UpdateSession(ctx, updated)
	}); err != nil {
		return domain.Session{}, mapStoreError(err, "end session")
	}
	s.publish(updated.ID, EntitySession)
	return updated, nil
}

// ReopenSession transitions an ended session back to started.
func (s *Service) ReopenSession(ctx context.Context, sessionID string) (domain.Session, error) {
	session, err := s.store.GetSession(ctx, sessionID)
	if err != nil {
		return domain.Session{}, mapStoreError(err, "reopen session")
	}
	if session.Status != domain.SessionStatusEnded && session.Status != domain.SessionStatusStarted {
		return domain.Session{}, apperrors.New(
			apperrors.CodeSessionInvalidStatusTransition,
			fmt.Sprintf("session cannot be reopened from %s", session.Status.Label()),
		)
	}

	updated, err := domain.StartSession(session, 0, 0, s.clock)
	if err != nil {
		return domain.Session{}, err
	}
	if updated == session {
		return session, nil
	}

	if err := s.withRetry(ctx, func() error {
		return s.store.UpdateSession(ctx, updated)
	}); err != nil {
		return domain.Session{}, mapStoreError(err, "reopen session")
	}
	s.publish(updated.ID, EntitySession)
	return updated, nil
}

// JoinSession registers a named participant while the session accepts joins.
func (s *Service) JoinSession(ctx context.Context, sessionID, name string) (domain.Participant, error) {
	session, err := s.store.GetSession(ctx, sessionID)
	if err != nil {
		return domain.Participant{}, mapStoreError(err, "join session")
	}
	if !session.CanJoin() {
		return domain.Participant{}, apperrors.WithMetadata(
			apperrors.CodeSessionJoinsClosed,
			"session is not accepting participants",
			map[string]string{"SessionID": session.ID, "SessionStatus": session.Status.Label()},
		)
	}

	participant, err := domain.CreateParticipant(domain.CreateParticipantInput{
		SessionID: sessionID,
		Name:      name,
	}, s.clock, s.newID)
	if err != nil {
		return domain.Participant{}, err
	}

	if err := s.withRetry(ctx, func() error {
		return s.store.InsertParticipant(ctx, participant)
	}); err != nil {
		if errors.Is(err, storage.ErrConflict) {
			return domain.Participant{}, apperrors.WithMetadata(
				apperrors.CodeParticipantNameTaken,
				fmt.Sprintf("participant name %q is already taken", participant.Name),
				map[string]string{"SessionID": sessionID, "Name": participant.Name},
			)
		}
		return domain.Participant{}, mapStoreError(err, "join session")
	}
	s.publish(sessionID, EntityParticipant)
	return participant, nil
}

// DeleteSession removes a session and all dependent records.
func (s *Service) DeleteSession(ctx context.Context, sessionID string) error {
	if err := s.withRetry(ctx, func() error {
		return s.store.DeleteSession(ctx, sessionID)
	}); err != nil {
		return mapStoreError(err, "delete session")
	}
	s.publish(sessionID, EntitySession)
	return nil
}

// seedTestParticipants tops a test-mode session up to its configured
// synthetic participant count. Name collisions from earlier runs are
// harmless and skipped.
func (s *Service) seedTestParticipants(ctx context.Context, session domain.Session) error {
	if session.TestParticipantCount < 1 {
		return nil
	}
	existing, err := s.store.ListParticipantsBySession(ctx, session.ID)
	if err != nil {
		return mapStoreError(err, "seed test participants")
	}
	missing := session.TestParticipantCount - len(existing)
	for i := 0; i < missing; i++ {
		participant, err := domain.CreateParticipant(domain.CreateParticipantInput{
			SessionID: session.ID,
			Name:      fmt.Sprintf("Test Participant %d", len(existing)+i+1),
			IsTest:    true,
		}, s.clock, s.newID)
		if err != nil {
			return err
		}
		if err := s.store.InsertParticipant(ctx, participant); err != nil {
			if errors.Is(err, storage.ErrConflict) {
				continue
			}
			return mapStoreError(err, "seed test participants")
		}
	}
	if missing > 0 {
		s.publish(session.ID, EntityParticipant)
	}
	return nil
}
