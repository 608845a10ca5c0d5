package sqlite

import (
	"context"
	"fmt"
	"strings"

	"github.com/grousion/grousion/internal/deliberation/domain"
)

const groupColumns = "id, round_id, group_number, leader_id, status, merged_into, created_at"

// PutRoundGroups atomically persists all groups and members for one round.
// A partial partition is never visible to readers. The (round_id,
// group_number) constraint makes a racing second partition fail with
// ErrConflict instead of committing alongside the first.
func (s *Store) PutRoundGroups(ctx context.Context, groups []domain.Group, members []domain.GroupMember) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	for _, group := range groups {
		if strings.TrimSpace(group.ID) == "" {
			return fmt.Errorf("group id is required")
		}
	}

	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin group partition write: %w", err)
	}
	rollbackWith := func(cause error) error {
		if rollbackErr := tx.Rollback(); rollbackErr != nil {
			return fmt.Errorf("%w: rollback group partition write: %v", cause, rollbackErr)
		}
		return cause
	}

	for _, group := range groups {
		_, execErr := tx.ExecContext(ctx, `
INSERT INTO groups (`+groupColumns+`)
VALUES (?, ?, ?, ?, ?, ?, ?)
`,
			group.ID,
			group.RoundID,
			group.Number,
			group.LeaderID,
			group.Status.Label(),
			group.MergedInto,
			toMillis(group.CreatedAt),
		)
		if execErr != nil {
			return rollbackWith(classifyWriteError(execErr, "put group"))
		}
	}
	for _, member := range members {
		_, execErr := tx.ExecContext(ctx, `
INSERT INTO group_members (group_id, participant_id)
VALUES (?, ?)
`,
			member.GroupID,
			member.ParticipantID,
		)
		if execErr != nil {
			return rollbackWith(classifyWriteError(execErr, "put group member"))
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit group partition write: %w", err)
	}
	return nil
}

// ListGroupsByRound lists all groups for one round in group-number order.
func (s *Store) ListGroupsByRound(ctx context.Context, roundID string) ([]domain.Group, error) {
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
SELECT `+groupColumns+`
FROM groups
WHERE round_id = ?
ORDER BY group_number ASC
`, roundID)
	if err != nil {
		return nil, fmt.Errorf("list groups: %w", err)
	}
	defer rows.Close()

	var groups []domain.Group
	for rows.Next() {
		var (
			group       domain.Group
			statusLabel string
			createdAt   int64
		)
		if scanErr := rows.Scan(
			&group.ID,
			&group.RoundID,
			&group.Number,
			&group.LeaderID,
			&statusLabel,
			&group.MergedInto,
			&createdAt,
		); scanErr != nil {
			return nil, fmt.Errorf("scan group: %w", scanErr)
		}
		group.Status = domain.GroupStatusFromLabel(statusLabel)
		group.CreatedAt = fromMillis(createdAt)
		groups = append(groups, group)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate groups: %w", err)
	}
	return groups, nil
}

// ListGroupMembersByRound lists the membership of every group in one round.
func (s *Store) ListGroupMembersByRound(ctx context.Context, roundID string) ([]domain.GroupMember, error) {
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
SELECT gm.group_id, gm.participant_id
FROM group_members gm
JOIN groups g ON g.id = gm.group_id
WHERE g.round_id = ?
ORDER BY gm.group_id ASC, gm.participant_id ASC
`, roundID)
	if err != nil {
		return nil, fmt.Errorf("list group members: %w", err)
	}
	defer rows.Close()

	var members []domain.GroupMember
	for rows.Next() {
		var member domain.GroupMember
		if scanErr := rows.Scan(&member.GroupID, &member.ParticipantID); scanErr != nil {
			return nil, fmt.Errorf("scan group member: %w", scanErr)
		}
		members = append(members, member)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate group members: %w", err)
	}
	return members, nil
}
