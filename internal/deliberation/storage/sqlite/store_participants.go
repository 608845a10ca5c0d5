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

const participantColumns = "id, session_id, name, is_test, created_at"

// InsertParticipant persists one participant row. The (session_id, name)
// uniqueness constraint surfaces duplicate names as storage.ErrConflict.
func (s *Store) InsertParticipant(ctx context.Context, participant domain.Participant) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	if strings.TrimSpace(participant.ID) == "" {
		return fmt.Errorf("participant id is required")
	}

	_, err := s.sqlDB.ExecContext(ctx, `
INSERT INTO participants (`+participantColumns+`)
VALUES (?, ?, ?, ?, ?)
`,
		participant.ID,
		participant.SessionID,
		participant.Name,
		boolToInt(participant.IsTest),
		toMillis(participant.CreatedAt),
	)
	return classifyWriteError(err, "insert participant")
}

// GetParticipant loads one participant by ID.
func (s *Store) GetParticipant(ctx context.Context, participantID string) (domain.Participant, error) {
	if err := ctx.Err(); err != nil {
		return domain.Participant{}, err
	}
	if s == nil || s.sqlDB == nil {
		return domain.Participant{}, fmt.Errorf("storage is not configured")
	}
	participantID = strings.TrimSpace(participantID)
	if participantID == "" {
		return domain.Participant{}, storage.ErrNotFound
	}

	row := s.sqlDB.QueryRowContext(ctx, `
SELECT `+participantColumns+`
FROM participants
WHERE id = ?
`, participantID)
	participant, err := scanParticipant(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Participant{}, storage.ErrNotFound
		}
		return domain.Participant{}, fmt.Errorf("get participant: %w", err)
	}
	return participant, nil
}

// ListParticipantsBySession lists all participants for one session in join order.
func (s *Store) ListParticipantsBySession(ctx context.Context, sessionID string) ([]domain.Participant, error) {
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
SELECT `+participantColumns+`
FROM participants
WHERE session_id = ?
ORDER BY created_at ASC, id ASC
`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("list participants: %w", err)
	}
	defer rows.Close()

	var participants []domain.Participant
	for rows.Next() {
		participant, scanErr := scanParticipant(rows.Scan)
		if scanErr != nil {
			return nil, fmt.Errorf("scan participant: %w", scanErr)
		}
		participants = append(participants, participant)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate participants: %w", err)
	}
	return participants, nil
}

func scanParticipant(scan func(dest ...any) error) (domain.Participant, error) {
	var (
		participant domain.Participant
		isTest      int
		createdAt   int64
	)
	err := scan(
		&participant.ID,
		&participant.SessionID,
		&participant.Name,
		&isTest,
		&createdAt,
	)
	if err != nil {
		return domain.Participant{}, err
	}
	participant.IsTest = isTest != 0
	participant.CreatedAt = fromMillis(createdAt)
	return participant, nil
}
