package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/grousion/grousion/internal/deliberation/domain"
	"github.com/grousion/grousion/internal/deliberation/storage"
)

const roundColumns = "id, statement_id, round_number, status, respondent_type, started_at, ended_at, created_at, updated_at"

// InsertRound persists one round row. The (statement_id, round_number)
// uniqueness constraint surfaces concurrent advancement as storage.ErrConflict.
func (s *Store) InsertRound(ctx context.Context, round domain.Round) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	if strings.TrimSpace(round.ID) == "" {
		return fmt.Errorf("round id is required")
	}

	_, err := s.sqlDB.ExecContext(ctx, `
INSERT INTO rounds (`+roundColumns+`)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
`,
		round.ID,
		round.StatementID,
		round.RoundNumber,
		round.Status.Label(),
		round.Respondent.Label(),
		nullableMillis(round.StartedAt),
		nullableMillis(round.EndedAt),
		toMillis(round.CreatedAt),
		toMillis(round.UpdatedAt),
	)
	return classifyWriteError(err, "insert round")
}

// GetRound loads one round by ID.
func (s *Store) GetRound(ctx context.Context, roundID string) (domain.Round, error) {
	if err := ctx.Err(); err != nil {
		return domain.Round{}, err
	}
	if s == nil || s.sqlDB == nil {
		return domain.Round{}, fmt.Errorf("storage is not configured")
	}
	roundID = strings.TrimSpace(roundID)
	if roundID == "" {
		return domain.Round{}, storage.ErrNotFound
	}

	row := s.sqlDB.QueryRowContext(ctx, `
SELECT `+roundColumns+`
FROM rounds
WHERE id = ?
`, roundID)
	round, err := scanRound(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Round{}, storage.ErrNotFound
		}
		return domain.Round{}, fmt.Errorf("get round: %w", err)
	}
	return round, nil
}

// GetRoundByNumber loads one round by statement and round number.
func (s *Store) GetRoundByNumber(ctx context.Context, statementID string, roundNumber int) (domain.Round, error) {
	if err := ctx.Err(); err != nil {
		return domain.Round{}, err
	}
	if s == nil || s.sqlDB == nil {
		return domain.Round{}, fmt.Errorf("storage is not configured")
	}
	statementID = strings.TrimSpace(statementID)
	if statementID == "" || roundNumber < 1 {
		return domain.Round{}, storage.ErrNotFound
	}

	row := s.sqlDB.QueryRowContext(ctx, `
SELECT `+roundColumns+`
FROM rounds
WHERE statement_id = ? AND round_number = ?
`, statementID, roundNumber)
	round, err := scanRound(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Round{}, storage.ErrNotFound
		}
		return domain.Round{}, fmt.Errorf("get round by number: %w", err)
	}
	return round, nil
}

// UpdateRound overwrites one existing round row.
func (s *Store) UpdateRound(ctx context.Context, round domain.Round) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	if strings.TrimSpace(round.ID) == "" {
		return fmt.Errorf("round id is required")
	}

	result, err := s.sqlDB.ExecContext(ctx, `
UPDATE rounds
SET status = ?, respondent_type = ?, started_at = ?, ended_at = ?, updated_at = ?
WHERE id = ?
`,
		round.Status.Label(),
		round.Respondent.Label(),
		nullableMillis(round.StartedAt),
		nullableMillis(round.EndedAt),
		toMillis(round.UpdatedAt),
		round.ID,
	)
	if err != nil {
		return classifyWriteError(err, "update round")
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update round rows affected: %w", err)
	}
	if affected == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// ListRoundsByStatement lists all rounds for one statement ordered by round number.
func (s *Store) ListRoundsByStatement(ctx context.Context, statementID string) ([]domain.Round, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.sqlDB == nil {
		return nil, fmt.Errorf("storage is not configured")
	}
	statementID = strings.TrimSpace(statementID)
	if statementID == "" {
		return nil, fmt.Errorf("statement id is required")
	}

	rows, err := s.sqlDB.QueryContext(ctx, `
SELECT `+roundColumns+`
FROM rounds
WHERE statement_id = ?
ORDER BY round_number ASC
`, statementID)
	if err != nil {
		return nil, fmt.Errorf("list rounds: %w", err)
	}
	defer rows.Close()

	var rounds []domain.Round
	for rows.Next() {
		round, scanErr := scanRound(rows.Scan)
		if scanErr != nil {
			return nil, fmt.Errorf("scan round: %w", scanErr)
		}
		rounds = append(rounds, round)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rounds: %w", err)
	}
	return rounds, nil
}

func scanRound(scan func(dest ...any) error) (domain.Round, error) {
	var (
		round                domain.Round
		statusLabel          string
		respondentLabel      string
		startedAt, endedAt   sql.NullInt64
		createdAt, updatedAt int64
	)
	err := scan(
		&round.ID,
		&round.StatementID,
		&round.RoundNumber,
		&statusLabel,
		&respondentLabel,
		&startedAt,
		&endedAt,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return domain.Round{}, err
	}
	round.Status = domain.RoundStatusFromLabel(statusLabel)
	round.Respondent = domain.RespondentTypeFromLabel(respondentLabel)
	round.StartedAt = millisPointer(startedAt)
	round.EndedAt = millisPointer(endedAt)
	round.CreatedAt = fromMillis(createdAt)
	round.UpdatedAt = fromMillis(updatedAt)
	return round, nil
}
