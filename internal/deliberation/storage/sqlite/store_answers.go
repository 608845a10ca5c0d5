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

const answerColumns = "id, round_id, respondent_kind, respondent_id, agreement_level, confidence_level, comment, created_at, updated_at"

// UpsertAnswer writes one answer per (round, respondent) pair. A repeat write
// for the same pair overwrites the levels and comment while preserving the
// original creation time.
func (s *Store) UpsertAnswer(ctx context.Context, answer domain.Answer) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	if strings.TrimSpace(answer.ID) == "" {
		return fmt.Errorf("answer id is required")
	}

	_, err := s.sqlDB.ExecContext(ctx, `
INSERT INTO answers (`+answerColumns+`)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(round_id, respondent_kind, respondent_id) DO UPDATE SET
	agreement_level = excluded.agreement_level,
	confidence_level = excluded.confidence_level,
	comment = excluded.comment,
	updated_at = excluded.updated_at
`,
		answer.ID,
		answer.RoundID,
		answer.RespondentKind.Label(),
		answer.RespondentID,
		answer.AgreementLevel,
		answer.ConfidenceLevel,
		answer.Comment,
		toMillis(answer.CreatedAt),
		toMillis(answer.UpdatedAt),
	)
	return classifyWriteError(err, "upsert answer")
}

// GetAnswer loads one answer by round and respondent.
func (s *Store) GetAnswer(ctx context.Context, roundID string, kind domain.RespondentKind, respondentID string) (domain.Answer, error) {
	if err := ctx.Err(); err != nil {
		return domain.Answer{}, err
	}
	if s == nil || s.sqlDB == nil {
		return domain.Answer{}, fmt.Errorf("storage is not configured")
	}
	roundID = strings.TrimSpace(roundID)
	respondentID = strings.TrimSpace(respondentID)
	if roundID == "" || respondentID == "" {
		return domain.Answer{}, storage.ErrNotFound
	}

	row := s.sqlDB.QueryRowContext(ctx, `
SELECT `+answerColumns+`
FROM answers
WHERE round_id = ? AND respondent_kind = ? AND respondent_id = ?
`, roundID, kind.Label(), respondentID)
	answer, err := scanAnswer(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Answer{}, storage.ErrNotFound
		}
		return domain.Answer{}, fmt.Errorf("get answer: %w", err)
	}
	return answer, nil
}

// ListAnswersByRound lists all answers recorded for one round.
func (s *Store) ListAnswersByRound(ctx context.Context, roundID string) ([]domain.Answer, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.sqlDB == nil {
		return nil, fmt.Errorf("storage is not configured")
	}
	roundID = strings.TrimSpace(roundID)
	if roundID == "" {
		return nil, fmt.Errorf("round id is required")
	}

	rows, err := s.sqlDB.QueryContext(ctx, `
SELECT `+answerColumns+`
FROM answers
WHERE round_id = ?
ORDER BY created_at ASC, id ASC
`, roundID)
	if err != nil {
		return nil, fmt.Errorf("list answers: %w", err)
	}
	defer rows.Close()

	var answers []domain.Answer
	for rows.Next() {
		answer, scanErr := scanAnswer(rows.Scan)
		if scanErr != nil {
			return nil, fmt.Errorf("scan answer: %w", scanErr)
		}
		answers = append(answers, answer)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate answers: %w", err)
	}
	return answers, nil
}

func scanAnswer(scan func(dest ...any) error) (domain.Answer, error) {
	var (
		answer               domain.Answer
		kindLabel            string
		createdAt, updatedAt int64
	)
	err := scan(
		&answer.ID,
		&answer.RoundID,
		&kindLabel,
		&answer.RespondentID,
		&answer.AgreementLevel,
		&answer.ConfidenceLevel,
		&answer.Comment,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return domain.Answer{}, err
	}
	answer.RespondentKind = domain.RespondentKindFromLabel(kindLabel)
	answer.CreatedAt = fromMillis(createdAt)
	answer.UpdatedAt = fromMillis(updatedAt)
	return answer, nil
}
