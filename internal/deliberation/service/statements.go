package service

import (
	"context"

	"github.com/grousion/grousion/internal/deliberation/domain"
)

// CreateStatementParams describes a new discussion statement.
type CreateStatementParams struct {
	SessionID    string
	Content      string
	Background   string
	TimerSeconds int
}

// CreateStatement adds a statement to a session.
func (s *Service) CreateStatement(ctx context.Context, params CreateStatementParams) (domain.Statement, error) {
	if _, err := s.store.GetSession(ctx, params.SessionID); err != nil {
		return domain.Statement{}, mapStoreError(err, "create statement")
	}

	statement, err := domain.CreateStatement(domain.CreateStatementInput{
		SessionID:    params.SessionID,
		Content:      params.Content,
		Background:   params.Background,
		TimerSeconds: params.TimerSeconds,
	}, s.clock, s.newID)
	if err != nil {
		return domain.Statement{}, err
	}

	if err := s.withRetry(ctx, func() error {
		return s.store.PutStatement(ctx, statement)
	}); err != nil {
		return domain.Statement{}, mapStoreError(err, "create statement")
	}
	s.publish(params.SessionID, EntityStatement)
	return statement, nil
}

// GetStatement loads one statement.
func (s *Service) GetStatement(ctx context.Context, statementID string) (domain.Statement, error) {
	statement, err := s.store.GetStatement(ctx, statementID)
	if err != nil {
		return domain.Statement{}, mapStoreError(err, "get statement")
	}
	return statement, nil
}

// ListStatements lists a session's statements in creation order.
func (s *Service) ListStatements(ctx context.Context, sessionID string) ([]domain.Statement, error) {
	statements, err := s.store.ListStatementsBySession(ctx, sessionID)
	if err != nil {
		return nil, mapStoreError(err, "list statements")
	}
	return statements, nil
}
