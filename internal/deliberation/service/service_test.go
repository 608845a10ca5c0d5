package service

import (
	"context"
	"fmt"
	"math/rand/v2"
	"sync"
	"testing"
	"time"

	"github.com/grousion/grousion/internal/deliberation/domain"
	"github.com/grousion/grousion/internal/deliberation/storage"
)

// fakeStore is an in-memory storage.Store with the same conflict semantics
// as the SQLite implementation.
type fakeStore struct {
	mu           sync.Mutex
	sessions     map[string]domain.Session
	statements   map[string]domain.Statement
	rounds       map[string]domain.Round
	participants map[string]domain.Participant
	groups       map[string]domain.Group
	members      []domain.GroupMember
	answers      map[string]domain.Answer

	failNext error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		sessions:     make(map[string]domain.Session),
		statements:   make(map[string]domain.Statement),
		rounds:       make(map[string]domain.Round),
		participants: make(map[string]domain.Participant),
		groups:       make(map[string]domain.Group),
		answers:      make(map[string]domain.Answer),
	}
}

func (f *fakeStore) takeFailure() error {
	if f.failNext != nil {
		err := f.failNext
		f.failNext = nil
		return err
	}
	return nil
}

func (f *fakeStore) PutSession(ctx context.Context, session domain.Session) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.takeFailure(); err != nil {
		return err
	}
	f.sessions[session.ID] = session
	return nil
}

func (f *fakeStore) GetSession(ctx context.Context, sessionID string) (domain.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	session, ok := f.sessions[sessionID]
	if !ok {
		return domain.Session{}, storage.ErrNotFound
	}
	return session, nil
}

func (f *fakeStore) UpdateSession(ctx context.Context, session domain.Session) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.takeFailure(); err != nil {
		return err
	}
	if _, ok := f.sessions[session.ID]; !ok {
		return storage.ErrNotFound
	}
	f.sessions[session.ID] = session
	return nil
}

func (f *fakeStore) ListSessions(ctx context.Context) ([]domain.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var sessions []domain.Session
	for _, session := range f.sessions {
		sessions = append(sessions, session)
	}
	return sessions, nil
}

func (f *fakeStore) DeleteSession(ctx context.Context, sessionID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.sessions[sessionID]; !ok {
		return storage.ErrNotFound
	}
	delete(f.sessions, sessionID)
	for id, statement := range f.statements {
		if statement.SessionID != sessionID {
			continue
		}
		delete(f.statements, id)
		for roundID, round := range f.rounds {
			if round.StatementID != id {
				continue
			}
			delete(f.rounds, roundID)
			for groupID, group := range f.groups {
				if group.RoundID == roundID {
					delete(f.groups, groupID)
				}
			}
			for key, answer := range f.answers {
				if answer.RoundID == roundID {
					delete(f.answers, key)
				}
			}
		}
	}
	for id, participant := range f.participants {
		if participant.SessionID == sessionID {
			delete(f.participants, id)
		}
	}
	return nil
}

func (f *fakeStore) PutStatement(ctx context.Context, statement domain.Statement) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.takeFailure(); err != nil {
		return err
	}
	f.statements[statement.ID] = statement
	return nil
}

func (f *fakeStore) GetStatement(ctx context.Context, statementID string) (domain.Statement, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	statement, ok := f.statements[statementID]
	if !ok {
		return domain.Statement{}, storage.ErrNotFound
	}
	return statement, nil
}

func (f *fakeStore) UpdateStatement(ctx context.Context, statement domain.Statement) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.statements[statement.ID]; !ok {
		return storage.ErrNotFound
	}
	f.statements[statement.ID] = statement
	return nil
}

func (f *fakeStore) ListStatementsBySession(ctx context.Context, sessionID string) ([]domain.Statement, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var statements []domain.Statement
	for _, statement := range f.statements {
		if statement.SessionID == sessionID {
			statements = append(statements, statement)
		}
	}
	sortByCreation(statements, func(s domain.Statement) (time.Time, string) { return s.CreatedAt, s.ID })
	return statements, nil
}

func (f *fakeStore) InsertRound(ctx context.Context, round domain.Round) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.takeFailure(); err != nil {
		return err
	}
	for _, existing := range f.rounds {
		if existing.StatementID == round.StatementID && existing.RoundNumber == round.RoundNumber {
			return storage.ErrConflict
		}
	}
	f.rounds[round.ID] = round
	return nil
}

func (f *fakeStore) GetRound(ctx context.Context, roundID string) (domain.Round, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	round, ok := f.rounds[roundID]
	if !ok {
		return domain.Round{}, storage.ErrNotFound
	}
	return round, nil
}

func (f *fakeStore) GetRoundByNumber(ctx context.Context, statementID string, roundNumber int) (domain.Round, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, round := range f.rounds {
		if round.StatementID == statementID && round.RoundNumber == roundNumber {
			return round, nil
		}
	}
	return domain.Round{}, storage.ErrNotFound
}

func (f *fakeStore) UpdateRound(ctx context.Context, round domain.Round) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.rounds[round.ID]; !ok {
		return storage.ErrNotFound
	}
	f.rounds[round.ID] = round
	return nil
}

func (f *fakeStore) ListRoundsByStatement(ctx context.Context, statementID string) ([]domain.Round, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var rounds []domain.Round
	for _, round := range f.rounds {
		if round.StatementID == statementID {
			rounds = append(rounds, round)
		}
	}
	for i := 0; i < len(rounds); i++ {
		for j := i + 1; j < len(rounds); j++ {
			if rounds[j].RoundNumber < rounds[i].RoundNumber {
				rounds[i], rounds[j] = rounds[j], rounds[i]
			}
		}
	}
	return rounds, nil
}

func (f *fakeStore) InsertParticipant(ctx context.Context, participant domain.Participant) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.takeFailure(); err != nil {
		return err
	}
	for _, existing := range f.participants {
		if existing.SessionID == participant.SessionID && existing.Name == participant.Name {
			return storage.ErrConflict
		}
	}
	f.participants[participant.ID] = participant
	return nil
}

func (f *fakeStore) GetParticipant(ctx context.Context, participantID string) (domain.Participant, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	participant, ok := f.participants[participantID]
	if !ok {
		return domain.Participant{}, storage.ErrNotFound
	}
	return participant, nil
}

func (f *fakeStore) ListParticipantsBySession(ctx context.Context, sessionID string) ([]domain.Participant, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var participants []domain.Participant
	for _, participant := range f.participants {
		if participant.SessionID == sessionID {
			participants = append(participants, participant)
		}
	}
	sortByCreation(participants, func(p domain.Participant) (time.Time, string) { return p.CreatedAt, p.ID })
	return participants, nil
}

func (f *fakeStore) PutRoundGroups(ctx context.Context, groups []domain.Group, members []domain.GroupMember) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.takeFailure(); err != nil {
		return err
	}
	for _, group := range groups {
		for _, existing := range f.groups {
			if existing.RoundID == group.RoundID && existing.Number == group.Number {
				return storage.ErrConflict
			}
		}
	}
	for _, group := range groups {
		f.groups[group.ID] = group
	}
	f.members = append(f.members, members...)
	return nil
}

func (f *fakeStore) ListGroupsByRound(ctx context.Context, roundID string) ([]domain.Group, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var groups []domain.Group
	for _, group := range f.groups {
		if group.RoundID == roundID {
			groups = append(groups, group)
		}
	}
	sortByCreation(groups, func(g domain.Group) (time.Time, string) { return g.CreatedAt, g.ID })
	return groups, nil
}

func (f *fakeStore) ListGroupMembersByRound(ctx context.Context, roundID string) ([]domain.GroupMember, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var members []domain.GroupMember
	for _, member := range f.members {
		group, ok := f.groups[member.GroupID]
		if ok && group.RoundID == roundID {
			members = append(members, member)
		}
	}
	return members, nil
}

func (f *fakeStore) UpsertAnswer(ctx context.Context, answer domain.Answer) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.takeFailure(); err != nil {
		return err
	}
	key := answerKey(answer.RoundID, answer.RespondentKind, answer.RespondentID)
	if existing, ok := f.answers[key]; ok {
		existing.AgreementLevel = answer.AgreementLevel
		existing.ConfidenceLevel = answer.ConfidenceLevel
		existing.Comment = answer.Comment
		existing.UpdatedAt = answer.UpdatedAt
		f.answers[key] = existing
		return nil
	}
	f.answers[key] = answer
	return nil
}

func (f *fakeStore) GetAnswer(ctx context.Context, roundID string, kind domain.RespondentKind, respondentID string) (domain.Answer, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	answer, ok := f.answers[answerKey(roundID, kind, respondentID)]
	if !ok {
		return domain.Answer{}, storage.ErrNotFound
	}
	return answer, nil
}

func (f *fakeStore) ListAnswersByRound(ctx context.Context, roundID string) ([]domain.Answer, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var answers []domain.Answer
	for _, answer := range f.answers {
		if answer.RoundID == roundID {
			answers = append(answers, answer)
		}
	}
	sortByCreation(answers, func(a domain.Answer) (time.Time, string) { return a.CreatedAt, a.ID })
	return answers, nil
}

func answerKey(roundID string, kind domain.RespondentKind, respondentID string) string {
	return roundID + "|" + kind.Label() + "|" + respondentID
}

func sortByCreation[T any](items []T, key func(T) (time.Time, string)) {
	for i := 0; i < len(items); i++ {
		for j := i + 1; j < len(items); j++ {
			ti, idi := key(items[i])
			tj, idj := key(items[j])
			if tj.Before(ti) || (tj.Equal(ti) && idj < idi) {
				items[i], items[j] = items[j], items[i]
			}
		}
	}
}

// recordingPublisher captures change signals for assertions.
type recordingPublisher struct {
	mu     sync.Mutex
	events []string
}

func (r *recordingPublisher) Publish(sessionID, entity string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, sessionID+":"+entity)
}

func (r *recordingPublisher) has(event string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, candidate := range r.events {
		if candidate == event {
			return true
		}
	}
	return false
}

func fixedClock(at time.Time) func() time.Time {
	return func() time.Time { return at }
}

func fixedTestTime() time.Time {
	return time.Date(2026, 8, 1, 9, 0, 0, 0, time.UTC)
}

func seededTestRNG() *rand.Rand {
	return rand.New(rand.NewPCG(7, 11))
}

func sequentialIDGenerator(prefix string) func() (string, error) {
	var counter int
	return func() (string, error) {
		counter++
		return fmt.Sprintf("%s-%d", prefix, counter), nil
	}
}

func newTestService(t *testing.T) (*Service, *fakeStore, *recordingPublisher) {
	t.Helper()
	store := newFakeStore()
	publisher := &recordingPublisher{}
	svc := New(store, Options{
		Clock:       fixedClock(fixedTestTime()),
		IDGenerator: sequentialIDGenerator("id"),
		RNG:         seededTestRNG(),
		Publisher:   publisher,
	})
	return svc, store, publisher
}

// seedStartedSession stores a started session with one statement, a started
// round 1, and the given participants. Returns session, statement, round IDs.
func seedStartedSession(t *testing.T, store *fakeStore, participantNames []string) (string, string, string) {
	t.Helper()
	ctx := context.Background()
	now := time.Date(2026, 8, 1, 8, 0, 0, 0, time.UTC)

	session := domain.Session{
		ID:        "sess-1",
		Name:      "Energy transition",
		Status:    domain.SessionStatusStarted,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := store.PutSession(ctx, session); err != nil {
		t.Fatalf("seed session: %v", err)
	}
	statement := domain.Statement{
		ID:        "stmt-1",
		SessionID: session.ID,
		Content:   "Wind power should be subsidized",
		Status:    domain.StatementStatusActive,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := store.PutStatement(ctx, statement); err != nil {
		t.Fatalf("seed statement: %v", err)
	}
	startedAt := now
	round := domain.Round{
		ID:          "round-1",
		StatementID: statement.ID,
		RoundNumber: 1,
		Status:      domain.RoundStatusStarted,
		Respondent:  domain.RespondentTypeIndividual,
		StartedAt:   &startedAt,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := store.InsertRound(ctx, round); err != nil {
		t.Fatalf("seed round: %v", err)
	}
	session.ActiveRoundID = round.ID
	if err := store.UpdateSession(ctx, session); err != nil {
		t.Fatalf("seed active round: %v", err)
	}
	for i, name := range participantNames {
		participant := domain.Participant{
			ID:        fmt.Sprintf("part-%d", i+1),
			SessionID: session.ID,
			Name:      name,
			CreatedAt: now.Add(time.Duration(i) * time.Second),
		}
		if err := store.InsertParticipant(ctx, participant); err != nil {
			t.Fatalf("seed participant %s: %v", name, err)
		}
	}
	return session.ID, statement.ID, round.ID
}
