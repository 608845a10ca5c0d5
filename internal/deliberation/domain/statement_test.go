package domain

import (
	"errors"
	"testing"
	"time"

	apperrors "github.com/grousion/grousion/internal/errors"
)

func TestCreateStatement(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 8, 1, 11, 0, 0, 0, time.UTC)
	statement, err := CreateStatement(CreateStatementInput{
		SessionID:  "sess-1",
		Content:    "  Remote work improves productivity.  ",
		Background: "Context for participants.",
	}, fixedClock(now), sequentialIDGenerator("stmt-1"))
	if err != nil {
		t.Fatalf("create statement: %v", err)
	}
	if statement.Content != "Remote work improves productivity." {
		t.Fatalf("expected trimmed content, got %q", statement.Content)
	}
	if statement.Status != StatementStatusInactive {
		t.Fatalf("expected inactive status, got %s", statement.Status.Label())
	}
	if statement.TimerStatus != TimerStatusStopped {
		t.Fatal("expected stopped timer")
	}
}

func TestCreateStatementRequiresContent(t *testing.T) {
	t.Parallel()

	_, err := CreateStatement(CreateStatementInput{SessionID: "sess-1", Content: " "}, nil, nil)
	if !errors.Is(err, ErrStatementContentEmpty) {
		t.Fatalf("expected content error, got %v", err)
	}
}

func TestStartTimer(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 8, 1, 11, 30, 0, 0, time.UTC)
	statement := Statement{ID: "stmt-1"}

	_, err := StartTimer(statement, 0, fixedClock(now))
	if !apperrors.IsCode(err, apperrors.CodeTimerInvalidDuration) {
		t.Fatalf("expected duration error, got %v", err)
	}

	running, err := StartTimer(statement, 120, fixedClock(now))
	if err != nil {
		t.Fatalf("start timer: %v", err)
	}
	if running.TimerStatus != TimerStatusRunning {
		t.Fatal("expected running timer")
	}
	if running.TimerSeconds != 120 {
		t.Fatalf("expected 120s duration, got %d", running.TimerSeconds)
	}
	if running.TimerStartedAt == nil || !running.TimerStartedAt.Equal(now) {
		t.Fatal("expected timer start stamp")
	}

	stopped := StopTimer(running, fixedClock(now.Add(time.Minute)))
	if stopped.TimerStatus != TimerStatusStopped {
		t.Fatal("expected stopped timer")
	}
	if stopped.TimerStartedAt != nil {
		t.Fatal("expected cleared timer start")
	}
}
