package errors

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestErrorIsMatchesByCode(t *testing.T) {
	t.Parallel()

	err := New(CodeRoundActiveOnOtherStatement, "another statement owns the active round")
	if !errors.Is(err, New(CodeRoundActiveOnOtherStatement, "different message")) {
		t.Fatal("expected code-based match")
	}
	if errors.Is(err, New(CodeNotFound, "missing")) {
		t.Fatal("expected mismatch for different codes")
	}
}

func TestWrapPreservesCause(t *testing.T) {
	t.Parallel()

	cause := fmt.Errorf("disk io")
	err := Wrap(CodeStoreUnavailable, "put session", cause)
	if !errors.Is(err, cause) {
		t.Fatal("expected wrapped cause in chain")
	}
	if GetCode(err) != CodeStoreUnavailable {
		t.Fatalf("expected store unavailable code, got %s", GetCode(err))
	}
}

func TestHTTPStatusMapping(t *testing.T) {
	t.Parallel()

	cases := []struct {
		code Code
		want int
	}{
		{CodeAnswerScaleOutOfRange, http.StatusBadRequest},
		{CodeSessionNotEnoughParticipants, http.StatusPreconditionFailed},
		{CodeRoundActiveOnOtherStatement, http.StatusConflict},
		{CodeParticipantNameTaken, http.StatusConflict},
		{CodeNotFound, http.StatusNotFound},
		{CodeStoreUnavailable, http.StatusServiceUnavailable},
		{CodeRateLimited, http.StatusTooManyRequests},
		{CodeUnknown, http.StatusInternalServerError},
	}
	for _, tc := range cases {
		if got := tc.code.HTTPStatus(); got != tc.want {
			t.Fatalf("code %s: expected status %d, got %d", tc.code, tc.want, got)
		}
	}
}

func TestRetryableOnlyForStoreUnavailable(t *testing.T) {
	t.Parallel()

	if !CodeStoreUnavailable.Retryable() {
		t.Fatal("expected store unavailable to be retryable")
	}
	for _, code := range []Code{CodeRateLimited, CodeConflict, CodeAnswerScaleOutOfRange, CodeUnknown} {
		if code.Retryable() {
			t.Fatalf("expected %s to be non-retryable", code)
		}
	}
}

func TestWriteHTTPDomainError(t *testing.T) {
	t.Parallel()

	rec := httptest.NewRecorder()
	WriteHTTP(rec, WithMetadata(CodeSessionNoStatements, "session has no statements", map[string]string{"session_id": "s1"}))

	if rec.Code != http.StatusPreconditionFailed {
		t.Fatalf("expected 412, got %d", rec.Code)
	}
	var envelope struct {
		Error struct {
			Code     string            `json:"code"`
			Message  string            `json:"message"`
			Metadata map[string]string `json:"metadata"`
		} `json:"error"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if envelope.Error.Code != string(CodeSessionNoStatements) {
		t.Fatalf("expected code %s, got %s", CodeSessionNoStatements, envelope.Error.Code)
	}
	if envelope.Error.Metadata["session_id"] != "s1" {
		t.Fatalf("expected metadata to round-trip, got %v", envelope.Error.Metadata)
	}
}

func TestWriteHTTPUnknownErrorHidesMessage(t *testing.T) {
	t.Parallel()

	rec := httptest.NewRecorder()
	WriteHTTP(rec, fmt.Errorf("sql: connection reset"))

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
	var envelope struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if envelope.Error.Message == "sql: connection reset" {
		t.Fatal("expected internal message to be hidden")
	}
}
