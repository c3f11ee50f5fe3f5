// Package session contains concrete ProfileStore and SessionStore
// implementations. The interfaces live in the core package; select an
// implementation at wiring time. The in-memory stores here are safe for
// concurrent access and best suited for tests or ephemeral demo servers;
// the sqlite subpackage provides durable variants.
package session

import (
	"context"
	"sync"
	"time"

	"github.com/avachat/ava/core"
)

// InMemoryProfileStore is a volatile ProfileStore backed by a process-local
// map. Each returned profile is cloned to prevent external mutation of
// internal state.
type InMemoryProfileStore struct {
	mu       sync.RWMutex
	profiles map[string]*core.Profile
}

// NewInMemoryProfileStore constructs an empty in-memory profile store.
func NewInMemoryProfileStore() *InMemoryProfileStore {
	return &InMemoryProfileStore{profiles: make(map[string]*core.Profile)}
}

// Get returns a clone of the stored profile or core.ErrProfileNotFound.
func (s *InMemoryProfileStore) Get(_ context.Context, userID string) (*core.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	profile, ok := s.profiles[userID]
	if !ok {
		return nil, core.ErrProfileNotFound
	}
	return profile.Clone(), nil
}

// Save stores a clone of the provided profile snapshot.
func (s *InMemoryProfileStore) Save(_ context.Context, profile *core.Profile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.profiles[profile.ID] = profile.Clone()
	return nil
}

// InMemorySessionStore is a volatile SessionStore holding sessions and their
// ordered turn logs in process-local maps.
type InMemorySessionStore struct {
	mu       sync.RWMutex
	sessions map[string]*core.Session
	turns    map[string][]core.Turn // sessionID -> ordered log
	byTurnID map[string]string      // turnID -> sessionID
}

// NewInMemorySessionStore constructs an empty in-memory session store.
func NewInMemorySessionStore() *InMemorySessionStore {
	return &InMemorySessionStore{
		sessions: make(map[string]*core.Session),
		turns:    make(map[string][]core.Turn),
		byTurnID: make(map[string]string),
	}
}

// Create opens a new session owned by userID.
func (s *InMemorySessionStore) Create(_ context.Context, userID string) (*core.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	session := &core.Session{ID: core.NewID(), UserID: userID, StartedAt: time.Now().UTC()}
	s.sessions[session.ID] = session
	cp := *session
	return &cp, nil
}

// Get returns a copy of the session or core.ErrSessionNotFound.
func (s *InMemorySessionStore) Get(_ context.Context, sessionID string) (*core.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.sessions[sessionID]
	if !ok {
		return nil, core.ErrSessionNotFound
	}
	cp := *session
	return &cp, nil
}

// AppendTurn appends one turn to the session's ordered log.
func (s *InMemorySessionStore) AppendTurn(_ context.Context, turn core.Turn) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[turn.SessionID]; !ok {
		return core.ErrSessionNotFound
	}
	s.turns[turn.SessionID] = append(s.turns[turn.SessionID], turn)
	s.byTurnID[turn.ID] = turn.SessionID
	return nil
}

// TagTurnMemories records memory ids on a previously appended turn.
func (s *InMemorySessionStore) TagTurnMemories(_ context.Context, turnID string, memoryIDs []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sessionID, ok := s.byTurnID[turnID]
	if !ok {
		return core.ErrTurnNotFound
	}
	log := s.turns[sessionID]
	for i := range log {
		if log[i].ID == turnID {
			log[i].MemoryIDs = append(log[i].MemoryIDs, memoryIDs...)
			return nil
		}
	}
	return core.ErrTurnNotFound
}

// RecentTurns returns up to limit most recent turns in chronological order.
// Returned turns are copies.
func (s *InMemorySessionStore) RecentTurns(_ context.Context, sessionID string, limit int) ([]core.Turn, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	log, ok := s.turns[sessionID]
	if !ok {
		if _, exists := s.sessions[sessionID]; !exists {
			return nil, core.ErrSessionNotFound
		}
		return []core.Turn{}, nil
	}
	start := 0
	if limit > 0 && len(log) > limit {
		start = len(log) - limit
	}
	out := make([]core.Turn, len(log)-start)
	copy(out, log[start:])
	return out, nil
}

// IncrementTurnCount adds n to the session's turn counter.
func (s *InMemorySessionStore) IncrementTurnCount(_ context.Context, sessionID string, n int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.sessions[sessionID]
	if !ok {
		return core.ErrSessionNotFound
	}
	session.TurnCount += n
	return nil
}
