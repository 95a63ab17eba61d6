package discovery

import (
	"context"
	"encoding/json"
	"sort"
	"sync"
	"time"
)

// fakeStore is an in-memory SessionStore with the same conditional-append
// semantics the sqlite store provides.
type fakeStore struct {
	mu       sync.Mutex
	sessions map[string]*Session
	turns    map[string][]Turn
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		sessions: make(map[string]*Session),
		turns:    make(map[string][]Turn),
	}
}

func (s *fakeStore) CreateSession(_ context.Context, sess *Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *sess
	s.sessions[sess.ID] = &cp
	return nil
}

func (s *fakeStore) GetSession(_ context.Context, id string) (*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	cp := *sess
	return &cp, nil
}

func (s *fakeStore) UpdateSessionStatus(_ context.Context, id string, from, to Status) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	if !ok {
		return ErrSessionNotFound
	}
	if sess.Status != from || !from.CanTransitionTo(to) {
		return &StateConflictError{SessionID: id, Status: sess.Status, Op: "transition to " + string(to)}
	}
	sess.Status = to
	sess.UpdatedAt = time.Now().UTC()
	return nil
}

func (s *fakeStore) AppendTurn(_ context.Context, turn *Turn) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[turn.SessionID]
	if !ok {
		return ErrSessionNotFound
	}
	if turn.TurnNumber != 0 && sess.TurnCount != turn.TurnNumber-1 {
		return ErrTurnConflict
	}
	s.turns[turn.SessionID] = append(s.turns[turn.SessionID], *turn)
	sess.TurnCount = turn.TurnNumber
	sess.UpdatedAt = time.Now().UTC()
	return nil
}

func (s *fakeStore) ListTurns(_ context.Context, sessionID string) ([]Turn, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	turns := append([]Turn{}, s.turns[sessionID]...)
	sort.Slice(turns, func(i, j int) bool { return turns[i].TurnNumber < turns[j].TurnNumber })
	return turns, nil
}

func (s *fakeStore) SaveExtractedRequirements(_ context.Context, sessionID string, raw json.RawMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[sessionID]
	if !ok {
		return ErrSessionNotFound
	}
	sess.ExtractedRequirements = append(json.RawMessage{}, raw...)
	return nil
}
