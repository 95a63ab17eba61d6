package plan

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"intake/pkg/discovery"
)

// fakeStore backs pipeline tests with both the session and plan contracts,
// mirroring the conditional semantics of the sqlite store.
type fakeStore struct {
	mu       sync.Mutex
	sessions map[string]*discovery.Session
	turns    map[string][]discovery.Turn
	plans    map[string]*Plan
	order    []string
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		sessions: make(map[string]*discovery.Session),
		turns:    make(map[string][]discovery.Turn),
		plans:    make(map[string]*Plan),
	}
}

func (s *fakeStore) addSession(id string, status discovery.Status, turns ...discovery.Turn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[id] = &discovery.Session{ID: id, Status: status, TurnCount: len(turns)}
	s.turns[id] = turns
}

func (s *fakeStore) CreateSession(_ context.Context, sess *discovery.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *sess
	s.sessions[sess.ID] = &cp
	return nil
}

func (s *fakeStore) GetSession(_ context.Context, id string) (*discovery.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	if !ok {
		return nil, discovery.ErrSessionNotFound
	}
	cp := *sess
	return &cp, nil
}

func (s *fakeStore) UpdateSessionStatus(_ context.Context, id string, from, to discovery.Status) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	if !ok {
		return discovery.ErrSessionNotFound
	}
	if sess.Status != from || !from.CanTransitionTo(to) {
		return &discovery.StateConflictError{SessionID: id, Status: sess.Status, Op: "transition to " + string(to)}
	}
	sess.Status = to
	return nil
}

func (s *fakeStore) AppendTurn(_ context.Context, turn *discovery.Turn) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[turn.SessionID]
	if !ok {
		return discovery.ErrSessionNotFound
	}
	if turn.TurnNumber != 0 && sess.TurnCount != turn.TurnNumber-1 {
		return discovery.ErrTurnConflict
	}
	s.turns[turn.SessionID] = append(s.turns[turn.SessionID], *turn)
	sess.TurnCount = turn.TurnNumber
	return nil
}

func (s *fakeStore) ListTurns(_ context.Context, sessionID string) ([]discovery.Turn, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]discovery.Turn{}, s.turns[sessionID]...), nil
}

func (s *fakeStore) SaveExtractedRequirements(_ context.Context, sessionID string, raw json.RawMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[sessionID]
	if !ok {
		return discovery.ErrSessionNotFound
	}
	sess.ExtractedRequirements = append(json.RawMessage{}, raw...)
	return nil
}

func (s *fakeStore) CreatePlan(_ context.Context, p *Plan) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *p
	s.plans[p.ID] = &cp
	s.order = append(s.order, p.ID)
	return nil
}

func (s *fakeStore) GetPlan(_ context.Context, id string) (*Plan, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.plans[id]
	if !ok {
		return nil, ErrPlanNotFound
	}
	cp := *p
	return &cp, nil
}

func (s *fakeStore) ListPlansBySession(_ context.Context, sessionID string) ([]Plan, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Plan
	for _, id := range s.order {
		if s.plans[id].SessionID == sessionID {
			out = append(out, *s.plans[id])
		}
	}
	return out, nil
}

func (s *fakeStore) SaveStructuredRequirements(_ context.Context, planID string, req *Requirements) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.plans[planID]
	if !ok {
		return ErrPlanNotFound
	}
	p.StructuredRequirements = req
	p.UpdatedAt = time.Now().UTC()
	return nil
}

func (s *fakeStore) SaveUserSummary(_ context.Context, planID string, summary *UserSummary) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.plans[planID]
	if !ok {
		return ErrPlanNotFound
	}
	p.UserSummary = summary
	p.UpdatedAt = time.Now().UTC()
	return nil
}

func (s *fakeStore) MarkPlanFailed(_ context.Context, planID string, stage Stage, reason string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.plans[planID]
	if !ok {
		return ErrPlanNotFound
	}
	p.Status = PlanFailed
	p.FailureStage = stage
	p.FailureReason = reason
	p.UpdatedAt = time.Now().UTC()
	return nil
}

func (s *fakeStore) CompletePlan(_ context.Context, planID, sessionID string, tech *TechnicalPlan, completeSession bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.plans[planID]
	if !ok {
		return ErrPlanNotFound
	}
	if completeSession {
		sess, ok := s.sessions[sessionID]
		if !ok {
			return discovery.ErrSessionNotFound
		}
		if sess.Status != discovery.StatusGenerating {
			return &discovery.StateConflictError{SessionID: sessionID, Status: sess.Status, Op: "complete"}
		}
		sess.Status = discovery.StatusCompleted
	}
	p.TechnicalPlan = tech
	p.Status = PlanCompleted
	p.UpdatedAt = time.Now().UTC()
	return nil
}
