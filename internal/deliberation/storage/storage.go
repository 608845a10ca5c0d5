// Package storage declares the persistence boundary for the deliberation
// engine. Implementations must surface uniqueness violations as ErrConflict
// so the orchestration layer can apply its re-read-and-proceed pattern, and
// transient backend failures as ErrUnavailable so callers can retry.
package storage

import (
	"context"
	"errors"

	"github.com/grousion/grousion/internal/deliberation/domain"
)

var (
	// ErrNotFound indicates a requested record is missing.
	ErrNotFound = errors.New("record not found")
	// ErrConflict indicates a write violated a uniqueness constraint.
	ErrConflict = errors.New("record conflict")
	// ErrUnavailable indicates a transient backend failure that may be retried.
	ErrUnavailable = errors.New("storage unavailable")
)

// SessionStore persists session records.
type SessionStore interface {
	PutSession(ctx context.Context, session domain.Session) error
	GetSession(ctx context.Context, sessionID string) (domain.Session, error)
	UpdateSession(ctx context.Context, session domain.Session) error
	ListSessions(ctx context.Context) ([]domain.Session, error)
	// DeleteSession removes the session and cascades to statements, rounds,
	// groups, group members, and answers.
	DeleteSession(ctx context.Context, sessionID string) error
}

// StatementStore persists statement records.
type StatementStore interface {
	PutStatement(ctx context.Context, statement domain.Statement) error
	GetStatement(ctx context.Context, statementID string) (domain.Statement, error)
	UpdateStatement(ctx context.Context, statement domain.Statement) error
	ListStatementsBySession(ctx context.Context, sessionID string) ([]domain.Statement, error)
}

// RoundStore persists round records. InsertRound enforces the
// (statement_id, round_number) uniqueness constraint and reports violations
// as ErrConflict; that constraint is the serialization point for concurrent
// round advancement.
type RoundStore interface {
	InsertRound(ctx context.Context, round domain.Round) error
	GetRound(ctx context.Context, roundID string) (domain.Round, error)
	GetRoundByNumber(ctx context.Context, statementID string, roundNumber int) (domain.Round, error)
	UpdateRound(ctx context.Context, round domain.Round) error
	ListRoundsByStatement(ctx context.Context, statementID string) ([]domain.Round, error)
}

// ParticipantStore persists participant records. InsertParticipant enforces
// name uniqueness within a session and reports violations as ErrConflict.
type ParticipantStore interface {
	InsertParticipant(ctx context.Context, participant domain.Participant) error
	GetParticipant(ctx context.Context, participantID string) (domain.Participant, error)
	ListParticipantsBySession(ctx context.Context, sessionID string) ([]domain.Participant, error)
}

// GroupStore persists discussion groups and their membership. PutRoundGroups
// writes all groups and members for one round atomically.
type GroupStore interface {
	PutRoundGroups(ctx context.Context, groups []domain.Group, members []domain.GroupMember) error
	ListGroupsByRound(ctx context.Context, roundID string) ([]domain.Group, error)
	ListGroupMembersByRound(ctx context.Context, roundID string) ([]domain.GroupMember, error)
}

// AnswerStore persists answers. UpsertAnswer enforces at most one answer per
// (round, respondent) pair; a second write for the same pair overwrites the
// levels and comment while preserving the original creation time.
type AnswerStore interface {
	UpsertAnswer(ctx context.Context, answer domain.Answer) error
	GetAnswer(ctx context.Context, roundID string, kind domain.RespondentKind, respondentID string) (domain.Answer, error)
	ListAnswersByRound(ctx context.Context, roundID string) ([]domain.Answer, error)
}

// Store aggregates the per-entity persistence boundaries.
type Store interface {
	SessionStore
	StatementStore
	RoundStore
	ParticipantStore
	GroupStore
	AnswerStore
}
