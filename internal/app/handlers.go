package app

import (
	"context"
	"encoding/json"
	"net"
	"net/http"

	"github.com/grousion/grousion/internal/deliberation/domain"
	"github.com/grousion/grousion/internal/deliberation/service"
	apperrors "github.com/grousion/grousion/internal/errors"
)

// apiHandler serves the JSON API backed by the deliberation service.
type apiHandler struct {
	svc         *service.Service
	joinLimiter *windowLimiter
}

func (a *apiHandler) register(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/sessions", a.createSession)
	mux.HandleFunc("GET /api/sessions", a.listSessions)
	mux.HandleFunc("GET /api/sessions/{sessionID}", a.getSessionView)
	mux.HandleFunc("DELETE /api/sessions/{sessionID}", a.deleteSession)
	mux.HandleFunc("PATCH /api/sessions/{sessionID}/name", a.renameSession)
	mux.HandleFunc("POST /api/sessions/{sessionID}/publish", a.publishSession)
	mux.HandleFunc("POST /api/sessions/{sessionID}/start", a.startSession)
	mux.HandleFunc("POST /api/sessions/{sessionID}/end", a.endSession)
	mux.HandleFunc("POST /api/sessions/{sessionID}/reopen", a.reopenSession)
	mux.HandleFunc("POST /api/sessions/{sessionID}/participants", a.joinSession)
	mux.HandleFunc("POST /api/sessions/{sessionID}/statements", a.createStatement)
	mux.HandleFunc("GET /api/sessions/{sessionID}/statements", a.listStatements)
	mux.HandleFunc("GET /api/statements/{statementID}", a.getStatement)
	mux.HandleFunc("GET /api/statements/{statementID}/summary", a.statementSummary)
	mux.HandleFunc("POST /api/statements/{statementID}/rounds/start", a.startRound)
	mux.HandleFunc("POST /api/statements/{statementID}/rounds/end", a.endRound)
	mux.HandleFunc("POST /api/statements/{statementID}/rounds/advance", a.advanceRound)
	mux.HandleFunc("POST /api/statements/{statementID}/timer/start", a.startTimer)
	mux.HandleFunc("POST /api/statements/{statementID}/timer/stop", a.stopTimer)
	mux.HandleFunc("POST /api/rounds/{roundID}/groups", a.formGroups)
	mux.HandleFunc("GET /api/rounds/{roundID}/groups", a.listGroups)
	mux.HandleFunc("POST /api/rounds/{roundID}/answers", a.recordAnswer)
	mux.HandleFunc("GET /api/rounds/{roundID}/participants/{participantID}/prior-answers", a.priorGroupAnswers)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func decodeJSON(r *http.Request, dest any) error {
	if err := json.NewDecoder(r.Body).Decode(dest); err != nil {
		return apperrors.Wrap(apperrors.CodeInvalidRequest, "invalid JSON payload", err)
	}
	return nil
}

// clientKey identifies a caller for rate limiting. Falls back to the raw
// remote address when it has no port.
func clientKey(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func (a *apiHandler) createSession(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Name                 string `json:"name"`
		CreatedBy            string `json:"created_by"`
		TestMode             bool   `json:"test_mode"`
		TestParticipantCount int    `json:"test_participant_count"`
	}
	if err := decodeJSON(r, &payload); err != nil {
		apperrors.WriteHTTP(w, err)
		return
	}

	session, err := a.svc.CreateSession(r.Context(), service.CreateSessionParams{
		Name:                 payload.Name,
		CreatedBy:            payload.CreatedBy,
		TestMode:             payload.TestMode,
		TestParticipantCount: payload.TestParticipantCount,
	})
	if err != nil {
		apperrors.WriteHTTP(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, renderSession(session))
}

func (a *apiHandler) listSessions(w http.ResponseWriter, r *http.Request) {
	sessions, err := a.svc.ListSessions(r.Context())
	if err != nil {
		apperrors.WriteHTTP(w, err)
		return
	}
	rendered := make([]sessionJSON, 0, len(sessions))
	for _, session := range sessions {
		rendered = append(rendered, renderSession(session))
	}
	writeJSON(w, http.StatusOK, map[string]any{"sessions": rendered})
}

func (a *apiHandler) getSessionView(w http.ResponseWriter, r *http.Request) {
	view, err := a.svc.GetSessionView(r.Context(), r.PathValue("sessionID"))
	if err != nil {
		apperrors.WriteHTTP(w, err)
		return
	}
	writeJSON(w, http.StatusOK, renderSessionView(view))
}

func (a *apiHandler) deleteSession(w http.ResponseWriter, r *http.Request) {
	if err := a.svc.DeleteSession(r.Context(), r.PathValue("sessionID")); err != nil {
		apperrors.WriteHTTP(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *apiHandler) renameSession(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Name string `json:"name"`
	}
	if err := decodeJSON(r, &payload); err != nil {
		apperrors.WriteHTTP(w, err)
		return
	}
	session, err := a.svc.RenameSession(r.Context(), r.PathValue("sessionID"), payload.Name)
	if err != nil {
		apperrors.WriteHTTP(w, err)
		return
	}
	writeJSON(w, http.StatusOK, renderSession(session))
}

func (a *apiHandler) publishSession(w http.ResponseWriter, r *http.Request) {
	a.sessionTransition(w, r, a.svc.PublishSession)
}

func (a *apiHandler) startSession(w http.ResponseWriter, r *http.Request) {
	a.sessionTransition(w, r, a.svc.StartSession)
}

func (a *apiHandler) endSession(w http.ResponseWriter, r *http.Request) {
	a.sessionTransition(w, r, a.svc.EndSession)
}

func (a *apiHandler) reopenSession(w http.ResponseWriter, r *http.Request) {
	a.sessionTransition(w, r, a.svc.ReopenSession)
}

func (a *apiHandler) sessionTransition(w http.ResponseWriter, r *http.Request, transition func(context.Context, string) (domain.Session, error)) {
	session, err := transition(r.Context(), r.PathValue("sessionID"))
	if err != nil {
		apperrors.WriteHTTP(w, err)
		return
	}
	writeJSON(w, http.StatusOK, renderSession(session))
}

func (a *apiHandler) joinSession(w http.ResponseWriter, r *http.Request) {
	if !a.joinLimiter.Allow(clientKey(r)) {
		apperrors.WriteHTTP(w, apperrors.New(apperrors.CodeRateLimited, "too many join attempts, slow down"))
		return
	}

	var payload struct {
		Name string `json:"name"`
	}
	if err := decodeJSON(r, &payload); err != nil {
		apperrors.WriteHTTP(w, err)
		return
	}
	participant, err := a.svc.JoinSession(r.Context(), r.PathValue("sessionID"), payload.Name)
	if err != nil {
		apperrors.WriteHTTP(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, renderParticipant(participant))
}

func (a *apiHandler) createStatement(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Content      string `json:"content"`
		Background   string `json:"background"`
		TimerSeconds int    `json:"timer_seconds"`
	}
	if err := decodeJSON(r, &payload); err != nil {
		apperrors.WriteHTTP(w, err)
		return
	}
	statement, err := a.svc.CreateStatement(r.Context(), service.CreateStatementParams{
		SessionID:    r.PathValue("sessionID"),
		Content:      payload.Content,
		Background:   payload.Background,
		TimerSeconds: payload.TimerSeconds,
	})
	if err != nil {
		apperrors.WriteHTTP(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, renderStatement(statement))
}

func (a *apiHandler) listStatements(w http.ResponseWriter, r *http.Request) {
	statements, err := a.svc.ListStatements(r.Context(), r.PathValue("sessionID"))
	if err != nil {
		apperrors.WriteHTTP(w, err)
		return
	}
	rendered := make([]statementJSON, 0, len(statements))
	for _, statement := range statements {
		rendered = append(rendered, renderStatement(statement))
	}
	writeJSON(w, http.StatusOK, map[string]any{"statements": rendered})
}

func (a *apiHandler) getStatement(w http.ResponseWriter, r *http.Request) {
	statement, err := a.svc.GetStatement(r.Context(), r.PathValue("statementID"))
	if err != nil {
		apperrors.WriteHTTP(w, err)
		return
	}
	writeJSON(w, http.StatusOK, renderStatement(statement))
}

func (a *apiHandler) statementSummary(w http.ResponseWriter, r *http.Request) {
	summaries, err := a.svc.AggregateForStatement(r.Context(), r.PathValue("statementID"))
	if err != nil {
		apperrors.WriteHTTP(w, err)
		return
	}
	rendered := make([]roundSummaryJSON, 0, len(summaries))
	for _, summary := range summaries {
		rendered = append(rendered, renderRoundSummary(summary))
	}
	writeJSON(w, http.StatusOK, map[string]any{"rounds": rendered})
}

func (a *apiHandler) startRound(w http.ResponseWriter, r *http.Request) {
	round, err := a.svc.StartRound(r.Context(), r.PathValue("statementID"))
	if err != nil {
		apperrors.WriteHTTP(w, err)
		return
	}
	writeJSON(w, http.StatusOK, renderRound(round))
}

func (a *apiHandler) endRound(w http.ResponseWriter, r *http.Request) {
	round, err := a.svc.EndRound(r.Context(), r.PathValue("statementID"))
	if err != nil {
		apperrors.WriteHTTP(w, err)
		return
	}
	writeJSON(w, http.StatusOK, renderRound(round))
}

func (a *apiHandler) advanceRound(w http.ResponseWriter, r *http.Request) {
	round, err := a.svc.AdvanceRound(r.Context(), r.PathValue("statementID"))
	if err != nil {
		apperrors.WriteHTTP(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, renderRound(round))
}

func (a *apiHandler) startTimer(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Seconds int `json:"seconds"`
	}
	if err := decodeJSON(r, &payload); err != nil {
		apperrors.WriteHTTP(w, err)
		return
	}
	statement, err := a.svc.StartStatementTimer(r.Context(), r.PathValue("statementID"), payload.Seconds)
	if err != nil {
		apperrors.WriteHTTP(w, err)
		return
	}
	writeJSON(w, http.StatusOK, renderStatement(statement))
}

func (a *apiHandler) stopTimer(w http.ResponseWriter, r *http.Request) {
	statement, err := a.svc.StopStatementTimer(r.Context(), r.PathValue("statementID"))
	if err != nil {
		apperrors.WriteHTTP(w, err)
		return
	}
	writeJSON(w, http.StatusOK, renderStatement(statement))
}

func (a *apiHandler) formGroups(w http.ResponseWriter, r *http.Request) {
	groups, members, err := a.svc.FormGroups(r.Context(), r.PathValue("roundID"))
	if err != nil {
		apperrors.WriteHTTP(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, renderGrouping(groups, members))
}

func (a *apiHandler) listGroups(w http.ResponseWriter, r *http.Request) {
	groups, members, err := a.svc.GroupsForRound(r.Context(), r.PathValue("roundID"))
	if err != nil {
		apperrors.WriteHTTP(w, err)
		return
	}
	writeJSON(w, http.StatusOK, renderGrouping(groups, members))
}

func (a *apiHandler) recordAnswer(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		RespondentID    string `json:"respondent_id"`
		RespondentKind  string `json:"respondent_kind"`
		AgreementLevel  int    `json:"agreement_level"`
		ConfidenceLevel int    `json:"confidence_level"`
		Comment         string `json:"comment"`
	}
	if err := decodeJSON(r, &payload); err != nil {
		apperrors.WriteHTTP(w, err)
		return
	}
	answer, err := a.svc.RecordAnswer(r.Context(), service.RecordAnswerParams{
		RoundID:         r.PathValue("roundID"),
		RespondentID:    payload.RespondentID,
		RespondentKind:  domain.RespondentKindFromLabel(payload.RespondentKind),
		AgreementLevel:  payload.AgreementLevel,
		ConfidenceLevel: payload.ConfidenceLevel,
		Comment:         payload.Comment,
	})
	if err != nil {
		apperrors.WriteHTTP(w, err)
		return
	}
	writeJSON(w, http.StatusOK, renderAnswer(answer))
}

func (a *apiHandler) priorGroupAnswers(w http.ResponseWriter, r *http.Request) {
	answers, err := a.svc.PriorGroupAnswers(r.Context(), r.PathValue("roundID"), r.PathValue("participantID"))
	if err != nil {
		apperrors.WriteHTTP(w, err)
		return
	}
	rendered := make([]priorAnswerJSON, 0, len(answers))
	for _, answer := range answers {
		rendered = append(rendered, priorAnswerJSON{
			ParticipantID:   answer.ParticipantID,
			Name:            answer.Name,
			AgreementLevel:  answer.AgreementLevel,
			ConfidenceLevel: answer.ConfidenceLevel,
			Comment:         answer.Comment,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"answers": rendered})
}
