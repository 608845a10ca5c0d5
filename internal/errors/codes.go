// Package errors provides structured error handling for the deliberation engine.
package errors

import "net/http"

// Code is a machine-readable error code.
type Code string

const (
	// CodeUnknown represents an unknown error.
	CodeUnknown Code = "UNKNOWN"

	// CodeInvalidRequest marks malformed transport payloads.
	CodeInvalidRequest Code = "INVALID_REQUEST"

	// Session errors
	CodeSessionNameEmpty               Code = "SESSION_NAME_EMPTY"
	CodeSessionInvalidStatusTransition Code = "SESSION_INVALID_STATUS_TRANSITION"
	CodeSessionNoStatements            Code = "SESSION_NO_STATEMENTS"
	CodeSessionNotEnoughParticipants   Code = "SESSION_NOT_ENOUGH_PARTICIPANTS"
	CodeSessionJoinsClosed             Code = "SESSION_JOINS_CLOSED"

	// Participant errors
	CodeParticipantNameEmpty Code = "PARTICIPANT_NAME_EMPTY"
	CodeParticipantNameTaken Code = "PARTICIPANT_NAME_TAKEN"

	// Statement errors
	CodeStatementContentEmpty Code = "STATEMENT_CONTENT_EMPTY"

	// Round errors
	CodeRoundActiveOnOtherStatement Code = "ROUND_ACTIVE_ON_OTHER_STATEMENT"
	CodeRoundNotOpenable            Code = "ROUND_NOT_OPENABLE"
	CodeRoundNotStarted             Code = "ROUND_NOT_STARTED"
	CodeTimerInvalidDuration        Code = "TIMER_INVALID_DURATION"

	// Group errors
	CodeGroupNoEligibleParticipants Code = "GROUP_NO_ELIGIBLE_PARTICIPANTS"

	// Answer errors
	CodeAnswerScaleOutOfRange   Code = "ANSWER_SCALE_OUT_OF_RANGE"
	CodeAnswerRespondentEmpty   Code = "ANSWER_RESPONDENT_EMPTY"
	CodeAnswerInvalidRespondent Code = "ANSWER_INVALID_RESPONDENT"

	// Storage errors
	CodeNotFound         Code = "NOT_FOUND"
	CodeConflict         Code = "CONFLICT"
	CodeStoreUnavailable Code = "STORE_UNAVAILABLE"
	CodeRateLimited      Code = "RATE_LIMITED"
)

// HTTPStatus maps domain codes to HTTP response statuses.
func (c Code) HTTPStatus() int {
	switch c {
	// Bad request - validation failures, bad input
	case CodeInvalidRequest,
		CodeSessionNameEmpty,
		CodeParticipantNameEmpty,
		CodeStatementContentEmpty,
		CodeTimerInvalidDuration,
		CodeAnswerScaleOutOfRange,
		CodeAnswerRespondentEmpty,
		CodeAnswerInvalidRespondent:
		return http.StatusBadRequest

	// Precondition failed - state doesn't allow the operation
	case CodeSessionInvalidStatusTransition,
		CodeSessionNoStatements,
		CodeSessionNotEnoughParticipants,
		CodeSessionJoinsClosed,
		CodeRoundNotOpenable,
		CodeRoundNotStarted,
		CodeGroupNoEligibleParticipants:
		return http.StatusPreconditionFailed

	// Conflict - duplicate-creation races and uniqueness violations
	case CodeParticipantNameTaken,
		CodeRoundActiveOnOtherStatement,
		CodeConflict:
		return http.StatusConflict

	case CodeNotFound:
		return http.StatusNotFound

	case CodeStoreUnavailable:
		return http.StatusServiceUnavailable

	case CodeRateLimited:
		return http.StatusTooManyRequests

	default:
		return http.StatusInternalServerError
	}
}

// Retryable reports whether callers may retry automatically. Only transient
// store failures qualify; rate limits are surfaced immediately so a real
// quota issue is never masked by blind retries.
func (c Code) Retryable() bool {
	return c == CodeStoreUnavailable
}
