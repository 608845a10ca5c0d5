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

const statementColumns = "id, session_id, content, background, status, timer_seconds, timer_started_at, timer_status, created_at, updated_at"

// PutStatement persists one statement row.
func (s *Store) PutStatement(ctx context.Context, statement domain.Statement) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	if strings.TrimSpace(statement.ID) == "" {
		return fmt.Errorf("statement id is required")
	}

	_, err := s.sqlDB.ExecContext(ctx, `
INSERT INTO statements (`+statementColumns+`)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
`,
		statement.ID,
		statement.SessionID,
		statement.Content,
		statement.Background,
		statement.Status.Label(),
		statement.TimerSeconds,
		nullableMillis(statement.TimerStartedAt),
		statement.TimerStatus.Label(),
		toMillis(statement.CreatedAt),
		toMillis(statement.UpdatedAt),
	)
	return classifyWriteError(err, "put statement")
}

// GetStatement loads one statement by ID.
func (s *Store) GetStatement(ctx context.Context, statementID string) (domain.Statement, error) {
	if err := ctx.Err(); err != nil {
		return domain.Statement{}, err
	}
	if s == nil || s.sqlDB == nil {
		return domain.Statement{}, fmt.Errorf("storage is not configured")
	}
	statementID = strings.TrimSpace(statementID)
	if statementID == "" {
		return domain.Statement{}, storage.ErrNotFound
	}

	row := s.sqlDB.QueryRowContext(ctx, `
SELECT `+statementColumns+`
FROM statements
WHERE id = ?
`, statementID)
	statement, err := scanStatement(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Statement{}, storage.ErrNotFound
		}
		return domain.Statement{}, fmt.Errorf("get statement: %w", err)
	}
	return statement, nil
}

// UpdateStatement overwrites one existing statement row.
func (s *Store) UpdateStatement(ctx context.Context, statement domain.Statement) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	if strings.TrimSpace(statement.ID) == "" {
		return fmt.Errorf("statement id is required")
	}

	result, err := s.sqlDB.ExecContext(ctx, `
UPDATE statements
SET content = ?, background = ?, status = ?, timer_seconds = ?, timer_started_at = ?, timer_status = ?, updated_at = ?
WHERE id = ?
`,
		statement.Content,
		statement.Background,
		statement.Status.Label(),
		statement.TimerSeconds,
		nullableMillis(statement.TimerStartedAt),
		statement.TimerStatus.Label(),
		toMillis(statement.UpdatedAt),
		statement.ID,
	)
	if err != nil {
		return classifyWriteError(err, "update statement")
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update statement rows affected: %w", err)
	}
	if affected == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// ListStatementsBySession lists all statements for one session in creation order.
func (s *Store) ListStatementsBySession(ctx context.Context, sessionID string) ([]domain.Statement, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.sqlDB == nil {
		return nil, fmt.Errorf("storage is not configured")
	}
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return nil, fmt.Errorf("session id is required")
	}

	rows, err := s.sqlDB.QueryContext(ctx, `
SELECT `+statementColumns+`
FROM statements
WHERE session_id = ?
ORDER BY created_at ASC, id ASC
`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("list statements: %w", err)
	}
	defer rows.Close()

	var statements []domain.Statement
	for rows.Next() {
		statement, scanErr := scanStatement(rows.Scan)
		if scanErr != nil {
			return nil, fmt.Errorf("scan statement: %w", scanErr)
		}
		statements = append(statements, statement)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate statements: %w", err)
	}
	return statements, nil
}

func scanStatement(scan func(dest ...any) error) (domain.Statement, error) {
	var (
		statement            domain.Statement
		statusLabel          string
		timerStartedAt       sql.NullInt64
		timerStatusLabel     string
		createdAt, updatedAt int64
	)
	err := scan(
		&statement.ID,
		&statement.SessionID,
		&statement.Content,
		&statement.Background,
		&statusLabel,
		&statement.TimerSeconds,
		&timerStartedAt,
		&timerStatusLabel,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return domain.Statement{}, err
	}
	statement.Status = domain.StatementStatusFromLabel(statusLabel)
	statement.TimerStartedAt = millisPointer(timerStartedAt)
	statement.TimerStatus = domain.TimerStatusFromLabel(timerStatusLabel)
	statement.CreatedAt = fromMillis(createdAt)
	statement.UpdatedAt = fromMillis(updatedAt)
	return statement, nil
}
