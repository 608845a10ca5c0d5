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

const sessionColumns = "id, name, created_by, status, allow_joins, active_round_id, test_mode, test_participant_count, created_at, updated_at"

// PutSession persists one session row.
func (s *Store) PutSession(ctx context.Context, session domain.Session) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	if strings.TrimSpace(session.ID) == "" {
		return fmt.Errorf("session id is required")
	}

	_, err := s.sqlDB.ExecContext(ctx, `
INSERT INTO sessions (`+sessionColumns+`)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
`,
		session.ID,
		session.Name,
		session.CreatedBy,
		session.Status.Label(),
		boolToInt(session.AllowJoins),
		session.ActiveRoundID,
		boolToInt(session.TestMode),
		session.TestParticipantCount,
		toMillis(session.CreatedAt),
		toMillis(session.UpdatedAt),
	)
	return classifyWriteError(err, "put session")
}

// GetSession loads one session by ID.
func (s *Store) GetSession(ctx context.Context, sessionID string) (domain.Session, error) {
	if err := ctx.Err(); err != nil {
		return domain.Session{}, err
	}
	if s == nil || s.sqlDB == nil {
		return domain.Session{}, fmt.Errorf("storage is not configured")
	}
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return domain.Session{}, storage.ErrNotFound
	}

	row := s.sqlDB.QueryRowContext(ctx, `
SELECT `+sessionColumns+`
FROM sessions
WHERE id = ?
`, sessionID)
	session, err := scanSession(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Session{}, storage.ErrNotFound
		}
		return domain.Session{}, fmt.Errorf("get session: %w", err)
	}
	return session, nil
}

// UpdateSession overwrites one existing session row.
func (s *Store) UpdateSession(ctx context.Context, session domain.Session) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	if strings.TrimSpace(session.ID) == "" {
		return fmt.Errorf("session id is required")
	}

	result, err := s.sqlDB.ExecContext(ctx, `
UPDATE sessions
SET name = ?, created_by = ?, status = ?, allow_joins = ?, active_round_id = ?, test_mode = ?, test_participant_count = ?, updated_at = ?
WHERE id = ?
`,
		session.Name,
		session.CreatedBy,
		session.Status.Label(),
		boolToInt(session.AllowJoins),
		session.ActiveRoundID,
		boolToInt(session.TestMode),
		session.TestParticipantCount,
		toMillis(session.UpdatedAt),
		session.ID,
	)
	if err != nil {
		return classifyWriteError(err, "update session")
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update session rows affected: %w", err)
	}
	if affected == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// ListSessions lists all sessions newest-first.
func (s *Store) ListSessions(ctx context.Context) ([]domain.Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.sqlDB == nil {
		return nil, fmt.Errorf("storage is not configured")
	}

	rows, err := s.sqlDB.QueryContext(ctx, `
SELECT `+sessionColumns+`
FROM sessions
ORDER BY created_at DESC, id DESC
`)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	var sessions []domain.Session
	for rows.Next() {
		session, scanErr := scanSession(rows.Scan)
		if scanErr != nil {
			return nil, fmt.Errorf("scan session: %w", scanErr)
		}
		sessions = append(sessions, session)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sessions: %w", err)
	}
	return sessions, nil
}

// DeleteSession removes the session row; foreign keys cascade the removal to
// statements, rounds, participants, groups, and answers.
func (s *Store) DeleteSession(ctx context.Context, sessionID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return storage.ErrNotFound
	}

	result, err := s.sqlDB.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, sessionID)
	if err != nil {
		return classifyWriteError(err, "delete session")
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete session rows affected: %w", err)
	}
	if affected == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func scanSession(scan func(dest ...any) error) (domain.Session, error) {
	var (
		session              domain.Session
		statusLabel          string
		allowJoins           int
		testMode             int
		createdAt, updatedAt int64
	)
	err := scan(
		&session.ID,
		&session.Name,
		&session.CreatedBy,
		&statusLabel,
		&allowJoins,
		&session.ActiveRoundID,
		&testMode,
		&session.TestParticipantCount,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return domain.Session{}, err
	}
	session.Status = domain.SessionStatusFromLabel(statusLabel)
	session.AllowJoins = allowJoins != 0
	session.TestMode = testMode != 0
	session.CreatedAt = fromMillis(createdAt)
	session.UpdatedAt = fromMillis(updatedAt)
	return session, nil
}

func boolToInt(value bool) int {
	if value {
		return 1
	}
	return 0
}
