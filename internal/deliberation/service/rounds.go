package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/grousion/grousion/internal/deliberation/domain"
	"github.com/grousion/grousion/internal/deliberation/storage"
	apperrors "github.com/grousion/grousion/internal/errors"
)

// OpenFirstRound creates round 1 for a statement when no rounds exist yet.
// Concurrent calls race on the round-number constraint; the loser re-reads
// and returns the winner's round.
func (s *Service) OpenFirstRound(ctx context.Context, statementID string) (domain.Round, error) {
	statement, err := s.store.GetStatement(ctx, statementID)
	if err != nil {
		return domain.Round{}, mapStoreError(err, "open first round")
	}

	existing, err := s.store.GetRoundByNumber(ctx, statement.ID, 1)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return domain.Round{}, mapStoreError(err, "open first round")
	}

	round, err := domain.CreateRound(statement.ID, 1, s.clock, s.newID)
	if err != nil {
		return domain.Round{}, err
	}
	if err := s.withRetry(ctx, func() error {
		return s.store.InsertRound(ctx, round)
	}); err != nil {
		if errors.Is(err, storage.ErrConflict) {
			return s.rereadRound(ctx, statement.ID, 1, "open first round")
		}
		return domain.Round{}, mapStoreError(err, "open first round")
	}
	s.publish(statement.SessionID, EntityRound)
	return round, nil
}

// StartRound opens the statement's pending round for answers. At most one
// round may be live per session; a live round on a different statement is a
// conflict the facilitator must end first.
func (s *Service) StartRound(ctx context.Context, statementID string) (domain.Round, error) {
	statement, err := s.store.GetStatement(ctx, statementID)
	if err != nil {
		return domain.Round{}, mapStoreError(err, "start round")
	}
	session, err := s.store.GetSession(ctx, statement.SessionID)
	if err != nil {
		return domain.Round{}, mapStoreError(err, "start round")
	}

	if session.ActiveRoundID != "" {
		active, err := s.store.GetRound(ctx, session.ActiveRoundID)
		if err != nil && !errors.Is(err, storage.ErrNotFound) {
			return domain.Round{}, mapStoreError(err, "start round")
		}
		if err == nil {
			if active.StatementID != statement.ID {
				return domain.Round{}, apperrors.WithMetadata(
					apperrors.CodeRoundActiveOnOtherStatement,
					"another statement already has a live round",
					map[string]string{
						"SessionID":         session.ID,
						"ActiveStatementID": active.StatementID,
						"ActiveRoundID":     active.ID,
					},
				)
			}
			if active.Status == domain.RoundStatusStarted {
				return active, nil
			}
		}
	}

	pending, err := s.pendingRound(ctx, statement)
	if err != nil {
		return domain.Round{}, err
	}

	// An already started round means a previous call failed after the round
	// write; resume by re-stamping the statement and session state.
	started := pending
	if pending.Status != domain.RoundStatusStarted {
		started = domain.StartRound(pending, s.clock)
		if err := s.withRetry(ctx, func() error {
			return s.store.UpdateRound(ctx, started)
		}); err != nil {
			return domain.Round{}, mapStoreError(err, "start round")
		}
	}

	statement.Status = domain.StatementStatusActive
	statement.UpdatedAt = s.clock().UTC()
	if statement.TimerSeconds > 0 && statement.TimerStatus != domain.TimerStatusRunning {
		statement, err = domain.StartTimer(statement, statement.TimerSeconds, s.clock)
		if err != nil {
			return domain.Round{}, err
		}
	}
	if err := s.withRetry(ctx, func() error {
		return s.store.UpdateStatement(ctx, statement)
	}); err != nil {
		return domain.Round{}, mapStoreError(err, "start round")
	}

	session.ActiveRoundID = started.ID
	session.UpdatedAt = s.clock().UTC()
	if err := s.withRetry(ctx, func() error {
		return s.store.UpdateSession(ctx, session)
	}); err != nil {
		return domain.Round{}, mapStoreError(err, "start round")
	}

	s.publish(session.ID, EntityRound, EntityStatement, EntitySession)
	return started, nil
}

// EndRound closes the statement's live round. Ending an already ended round
// is a no-op.
func (s *Service) EndRound(ctx context.Context, statementID string) (domain.Round, error) {
	statement, err := s.store.GetStatement(ctx, statementID)
	if err != nil {
		return domain.Round{}, mapStoreError(err, "end round")
	}

	rounds, err := s.store.ListRoundsByStatement(ctx, statement.ID)
	if err != nil {
		return domain.Round{}, mapStoreError(err, "end round")
	}
	if len(rounds) == 0 {
		return domain.Round{}, apperrors.New(apperrors.CodeRoundNotStarted, "statement has no rounds")
	}
	current := rounds[len(rounds)-1]
	if current.Status == domain.RoundStatusEnded {
		return current, nil
	}
	if current.Status != domain.RoundStatusStarted {
		return domain.Round{}, apperrors.WithMetadata(
			apperrors.CodeRoundNotStarted,
			"round is not collecting answers",
			map[string]string{"RoundID": current.ID, "RoundStatus": current.Status.Label()},
		)
	}

	ended := domain.EndRound(current, s.clock)
	if err := s.withRetry(ctx, func() error {
		return s.store.UpdateRound(ctx, ended)
	}); err != nil {
		return domain.Round{}, mapStoreError(err, "end round")
	}

	statement.Status = domain.StatementStatusInactive
	statement = domain.StopTimer(statement, s.clock)
	if err := s.withRetry(ctx, func() error {
		return s.store.UpdateStatement(ctx, statement)
	}); err != nil {
		return domain.Round{}, mapStoreError(err, "end round")
	}

	session, err := s.store.GetSession(ctx, statement.SessionID)
	if err != nil {
		return domain.Round{}, mapStoreError(err, "end round")
	}
	if session.ActiveRoundID == ended.ID {
		session.ActiveRoundID = ""
		session.UpdatedAt = s.clock().UTC()
		if err := s.withRetry(ctx, func() error {
			return s.store.UpdateSession(ctx, session)
		}); err != nil {
			return domain.Round{}, mapStoreError(err, "end round")
		}
	}

	s.publish(statement.SessionID, EntityRound, EntityStatement, EntitySession)
	return ended, nil
}

// AdvanceRound creates the statement's next round in the not_started state.
// Rounds at or above 2 collect one answer per group. An existing round at
// the next number is normalized instead of reported as an error, so repeat
// and concurrent calls converge on the same round.
func (s *Service) AdvanceRound(ctx context.Context, statementID string) (domain.Round, error) {
	statement, err := s.store.GetStatement(ctx, statementID)
	if err != nil {
		return domain.Round{}, mapStoreError(err, "advance round")
	}

	rounds, err := s.store.ListRoundsByStatement(ctx, statement.ID)
	if err != nil {
		return domain.Round{}, mapStoreError(err, "advance round")
	}
	if len(rounds) == 0 {
		return domain.Round{}, apperrors.New(
			apperrors.CodeRoundNotStarted,
			"statement has no rounds to advance from",
		)
	}
	nextNumber := rounds[len(rounds)-1].RoundNumber + 1

	existing, err := s.store.GetRoundByNumber(ctx, statement.ID, nextNumber)
	if err == nil {
		return s.normalizeRound(ctx, statement, existing)
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return domain.Round{}, mapStoreError(err, "advance round")
	}

	round, err := domain.CreateRound(statement.ID, nextNumber, s.clock, s.newID)
	if err != nil {
		return domain.Round{}, err
	}
	if err := s.withRetry(ctx, func() error {
		return s.store.InsertRound(ctx, round)
	}); err != nil {
		if errors.Is(err, storage.ErrConflict) {
			return s.rereadRound(ctx, statement.ID, nextNumber, "advance round")
		}
		return domain.Round{}, mapStoreError(err, "advance round")
	}
	s.publish(statement.SessionID, EntityRound)
	return round, nil
}

// StartStatementTimer starts an advisory countdown on a statement. Timers
// are independent of round status; expiry is evaluated client-side.
func (s *Service) StartStatementTimer(ctx context.Context, statementID string, seconds int) (domain.Statement, error) {
	statement, err := s.store.GetStatement(ctx, statementID)
	if err != nil {
		return domain.Statement{}, mapStoreError(err, "start timer")
	}
	updated, err := domain.StartTimer(statement, seconds, s.clock)
	if err != nil {
		return domain.Statement{}, err
	}
	if err := s.withRetry(ctx, func() error {
		return s.store.UpdateStatement(ctx, updated)
	}); err != nil {
		return domain.Statement{}, mapStoreError(err, "start timer")
	}
	s.publish(statement.SessionID, EntityStatement)
	return updated, nil
}

// StopStatementTimer clears a statement's countdown.
func (s *Service) StopStatementTimer(ctx context.Context, statementID string) (domain.Statement, error) {
	statement, err := s.store.GetStatement(ctx, statementID)
	if err != nil {
		return domain.Statement{}, mapStoreError(err, "stop timer")
	}
	updated := domain.StopTimer(statement, s.clock)
	if err := s.withRetry(ctx, func() error {
		return s.store.UpdateStatement(ctx, updated)
	}); err != nil {
		return domain.Statement{}, mapStoreError(err, "stop timer")
	}
	s.publish(statement.SessionID, EntityStatement)
	return updated, nil
}

// pendingRound returns the statement's not_started round, creating round 1
// lazily when the statement has none. A started latest round is returned as
// well so a retried start can finish stamping the statement and session.
func (s *Service) pendingRound(ctx context.Context, statement domain.Statement) (domain.Round, error) {
	rounds, err := s.store.ListRoundsByStatement(ctx, statement.ID)
	if err != nil {
		return domain.Round{}, mapStoreError(err, "start round")
	}
	if len(rounds) == 0 {
		return s.OpenFirstRound(ctx, statement.ID)
	}
	current := rounds[len(rounds)-1]
	if current.Status == domain.RoundStatusEnded {
		return domain.Round{}, apperrors.WithMetadata(
			apperrors.CodeRoundNotOpenable,
			fmt.Sprintf("statement has no pending round; round %d is %s", current.RoundNumber, current.Status.Label()),
			map[string]string{"StatementID": statement.ID, "RoundID": current.ID},
		)
	}
	return current, nil
}

// normalizeRound repairs a pre-existing next round so its respondent type
// matches what its round number implies and it is pending again.
func (s *Service) normalizeRound(ctx context.Context, statement domain.Statement, round domain.Round) (domain.Round, error) {
	expected := domain.RespondentTypeForRound(round.RoundNumber)
	if round.Respondent == expected && round.Status == domain.RoundStatusNotStarted {
		return round, nil
	}
	round.Respondent = expected
	round.Status = domain.RoundStatusNotStarted
	round.StartedAt = nil
	round.EndedAt = nil
	round.UpdatedAt = s.clock().UTC()
	if err := s.withRetry(ctx, func() error {
		return s.store.UpdateRound(ctx, round)
	}); err != nil {
		return domain.Round{}, mapStoreError(err, "advance round")
	}
	s.publish(statement.SessionID, EntityRound)
	return round, nil
}

func (s *Service) rereadRound(ctx context.Context, statementID string, roundNumber int, operation string) (domain.Round, error) {
	round, err := s.store.GetRoundByNumber(ctx, statementID, roundNumber)
	if err != nil {
		return domain.Round{}, mapStoreError(err, operation)
	}
	return round, nil
}
