package app

import (
	"time"

	"github.com/grousion/grousion/internal/deliberation/domain"
	"github.com/grousion/grousion/internal/deliberation/service"
)

// JSON shapes for the API. Enum fields carry their labels so clients never
// see internal numeric values.

type sessionJSON struct {
	ID                   string    `json:"id"`
	Name                 string    `json:"name"`
	CreatedBy            string    `json:"created_by,omitempty"`
	Status               string    `json:"status"`
	AllowJoins           bool      `json:"allow_joins"`
	ActiveRoundID        string    `json:"active_round_id,omitempty"`
	TestMode             bool      `json:"test_mode,omitempty"`
	TestParticipantCount int       `json:"test_participant_count,omitempty"`
	CreatedAt            time.Time `json:"created_at"`
	UpdatedAt            time.Time `json:"updated_at"`
}

type statementJSON struct {
	ID             string     `json:"id"`
	SessionID      string     `json:"session_id"`
	Content        string     `json:"content"`
	Background     string     `json:"background,omitempty"`
	Status         string     `json:"status"`
	TimerSeconds   int        `json:"timer_seconds,omitempty"`
	TimerStartedAt *time.Time `json:"timer_started_at,omitempty"`
	TimerStatus    string     `json:"timer_status"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

type roundJSON struct {
	ID          string     `json:"id"`
	StatementID string     `json:"statement_id"`
	RoundNumber int        `json:"round_number"`
	Status      string     `json:"status"`
	Respondent  string     `json:"respondent"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	EndedAt     *time.Time `json:"ended_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

type participantJSON struct {
	ID        string    `json:"id"`
	SessionID string    `json:"session_id"`
	Name      string    `json:"name"`
	IsTest    bool      `json:"is_test,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

type groupJSON struct {
	ID         string   `json:"id"`
	RoundID    string   `json:"round_id"`
	Number     int      `json:"number"`
	LeaderID   string   `json:"leader_id"`
	Status     string   `json:"status"`
	MergedInto string   `json:"merged_into,omitempty"`
	MemberIDs  []string `json:"member_ids"`
}

type answerJSON struct {
	ID              string    `json:"id"`
	RoundID         string    `json:"round_id"`
	RespondentID    string    `json:"respondent_id"`
	RespondentKind  string    `json:"respondent_kind"`
	AgreementLevel  int       `json:"agreement_level"`
	ConfidenceLevel int       `json:"confidence_level"`
	Comment         string    `json:"comment,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

type priorAnswerJSON struct {
	ParticipantID   string `json:"participant_id"`
	Name            string `json:"name"`
	AgreementLevel  int    `json:"agreement_level"`
	ConfidenceLevel int    `json:"confidence_level"`
	Comment         string `json:"comment,omitempty"`
}

type respondentAnswerJSON struct {
	RespondentID    string `json:"respondent_id"`
	RespondentKind  string `json:"respondent_kind"`
	Name            string `json:"name"`
	AgreementLevel  int    `json:"agreement_level"`
	ConfidenceLevel int    `json:"confidence_level"`
	Comment         string `json:"comment,omitempty"`
}

type roundSummaryJSON struct {
	RoundID             string                 `json:"round_id"`
	RoundNumber         int                    `json:"round_number"`
	Respondent          string                 `json:"respondent"`
	Status              string                 `json:"status"`
	AnswerCount         int                    `json:"answer_count"`
	MeanAgreement       float64                `json:"mean_agreement"`
	MeanConfidence      float64                `json:"mean_confidence"`
	AgreementHistogram  []int                  `json:"agreement_histogram"`
	ConfidenceHistogram []int                  `json:"confidence_histogram"`
	Answers             []respondentAnswerJSON `json:"answers"`
}

type sessionViewJSON struct {
	Session      sessionJSON            `json:"session"`
	Statements   []statementJSON        `json:"statements"`
	Rounds       map[string][]roundJSON `json:"rounds"`
	Participants []participantJSON      `json:"participants"`
	ActiveRound  *roundJSON             `json:"active_round,omitempty"`
	Groups       []groupJSON            `json:"groups,omitempty"`
}

func renderSession(session domain.Session) sessionJSON {
	return sessionJSON{
		ID:                   session.ID,
		Name:                 session.Name,
		CreatedBy:            session.CreatedBy,
		Status:               session.Status.Label(),
		AllowJoins:           session.AllowJoins,
		ActiveRoundID:        session.ActiveRoundID,
		TestMode:             session.TestMode,
		TestParticipantCount: session.TestParticipantCount,
		CreatedAt:            session.CreatedAt,
		UpdatedAt:            session.UpdatedAt,
	}
}

func renderStatement(statement domain.Statement) statementJSON {
	return statementJSON{
		ID:             statement.ID,
		SessionID:      statement.SessionID,
		Content:        statement.Content,
		Background:     statement.Background,
		Status:         statement.Status.Label(),
		TimerSeconds:   statement.TimerSeconds,
		TimerStartedAt: statement.TimerStartedAt,
		TimerStatus:    statement.TimerStatus.Label(),
		CreatedAt:      statement.CreatedAt,
		UpdatedAt:      statement.UpdatedAt,
	}
}

func renderRound(round domain.Round) roundJSON {
	return roundJSON{
		ID:          round.ID,
		StatementID: round.StatementID,
		RoundNumber: round.RoundNumber,
		Status:      round.Status.Label(),
		Respondent:  round.Respondent.Label(),
		StartedAt:   round.StartedAt,
		EndedAt:     round.EndedAt,
		CreatedAt:   round.CreatedAt,
		UpdatedAt:   round.UpdatedAt,
	}
}

func renderParticipant(participant domain.Participant) participantJSON {
	return participantJSON{
		ID:        participant.ID,
		SessionID: participant.SessionID,
		Name:      participant.Name,
		IsTest:    participant.IsTest,
		CreatedAt: participant.CreatedAt,
	}
}

func renderAnswer(answer domain.Answer) answerJSON {
	return answerJSON{
		ID:              answer.ID,
		RoundID:         answer.RoundID,
		RespondentID:    answer.RespondentID,
		RespondentKind:  answer.RespondentKind.Label(),
		AgreementLevel:  answer.AgreementLevel,
		ConfidenceLevel: answer.ConfidenceLevel,
		Comment:         answer.Comment,
		CreatedAt:       answer.CreatedAt,
		UpdatedAt:       answer.UpdatedAt,
	}
}

func renderGroups(groups []domain.Group, members []domain.GroupMember) []groupJSON {
	memberIDs := make(map[string][]string, len(groups))
	for _, member := range members {
		memberIDs[member.GroupID] = append(memberIDs[member.GroupID], member.ParticipantID)
	}

	rendered := make([]groupJSON, 0, len(groups))
	for _, group := range groups {
		rendered = append(rendered, groupJSON{
			ID:         group.ID,
			RoundID:    group.RoundID,
			Number:     group.Number,
			LeaderID:   group.LeaderID,
			Status:     group.Status.Label(),
			MergedInto: group.MergedInto,
			MemberIDs:  memberIDs[group.ID],
		})
	}
	return rendered
}

func renderGrouping(groups []domain.Group, members []domain.GroupMember) map[string]any {
	return map[string]any{"groups": renderGroups(groups, members)}
}

func renderRoundSummary(summary service.RoundSummary) roundSummaryJSON {
	answers := make([]respondentAnswerJSON, 0, len(summary.Answers))
	for _, answer := range summary.Answers {
		answers = append(answers, respondentAnswerJSON{
			RespondentID:    answer.RespondentID,
			RespondentKind:  answer.RespondentKind.Label(),
			Name:            answer.Name,
			AgreementLevel:  answer.AgreementLevel,
			ConfidenceLevel: answer.ConfidenceLevel,
			Comment:         answer.Comment,
		})
	}
	return roundSummaryJSON{
		RoundID:             summary.RoundID,
		RoundNumber:         summary.RoundNumber,
		Respondent:          summary.Respondent.Label(),
		Status:              summary.Status.Label(),
		AnswerCount:         summary.AnswerCount,
		MeanAgreement:       summary.MeanAgreement,
		MeanConfidence:      summary.MeanConfidence,
		AgreementHistogram:  summary.AgreementHistogram[:],
		ConfidenceHistogram: summary.ConfidenceHistogram[:],
		Answers:             answers,
	}
}

func renderSessionView(view service.SessionView) sessionViewJSON {
	statements := make([]statementJSON, 0, len(view.Statements))
	for _, statement := range view.Statements {
		statements = append(statements, renderStatement(statement))
	}

	rounds := make(map[string][]roundJSON, len(view.Rounds))
	for statementID, statementRounds := range view.Rounds {
		rendered := make([]roundJSON, 0, len(statementRounds))
		for _, round := range statementRounds {
			rendered = append(rendered, renderRound(round))
		}
		rounds[statementID] = rendered
	}

	participants := make([]participantJSON, 0, len(view.Participants))
	for _, participant := range view.Participants {
		participants = append(participants, renderParticipant(participant))
	}

	rendered := sessionViewJSON{
		Session:      renderSession(view.Session),
		Statements:   statements,
		Rounds:       rounds,
		Participants: participants,
		Groups:       renderGroups(view.Groups, view.GroupMembers),
	}
	if view.ActiveRound != nil {
		active := renderRound(*view.ActiveRound)
		rendered.ActiveRound = &active
	}
	return rendered
}
