package session

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/zhouzirui/z-interview/backend/internal/model/chat"
)

var ErrSessionNotFound = errors.New("session not found")

// State tracks the interviews started by this process and which one is
// current. The current pointer is only a default for callers that do not
// name a session; the last upload wins.
type State struct {
	mu        sync.RWMutex
	current   string
	sessions  map[string]chat.Session
	lastStamp map[string]time.Time
	now       func() time.Time
}

// NewState starts with a fresh, context-free current session.
func NewState() *State {
	return newStateWithClock(time.Now)
}

func newStateWithClock(now func() time.Time) *State {
	s := &State{
		sessions:  make(map[string]chat.Session),
		lastStamp: make(map[string]time.Time),
		now:       now,
	}
	initial := s.mint("", "")
	s.current = initial.ID
	return s
}

// mint registers a new session. Callers hold mu or own s exclusively.
func (s *State) mint(personaID, context string) chat.Session {
	session := chat.Session{
		ID:        uuid.NewString(),
		PersonaID: personaID,
		Context:   context,
		CreatedAt: s.now().UTC(),
	}
	s.sessions[session.ID] = session
	return session
}

// Begin mints a new session with the given context and makes it current.
func (s *State) Begin(personaID, context string) chat.Session {
	s.mu.Lock()
	defer s.mu.Unlock()

	session := s.mint(personaID, context)
	s.current = session.ID
	return session
}

// Current returns the active session.
func (s *State) Current() chat.Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sessions[s.current]
}

// Get looks up a session started by this process.
func (s *State) Get(id string) (chat.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	session, ok := s.sessions[id]
	if !ok {
		return chat.Session{}, ErrSessionNotFound
	}
	return session, nil
}

// Resolve returns the named session, or the current one when id is empty.
func (s *State) Resolve(id string) (chat.Session, error) {
	if id == "" {
		return s.Current(), nil
	}
	return s.Get(id)
}

// Stamp returns the write timestamp for the next message of sessionID. Stamps
// have millisecond precision, which every backend preserves, and strictly
// increase within a session even if the wall clock steps back.
func (s *State) Stamp(sessionID string) time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()

	ts := s.now().UTC().Truncate(time.Millisecond)
	if last, ok := s.lastStamp[sessionID]; ok && !ts.After(last) {
		ts = last.Add(time.Millisecond)
	}
	s.lastStamp[sessionID] = ts
	return ts
}
