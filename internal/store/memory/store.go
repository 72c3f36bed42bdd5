// Package memory keeps transcripts in process memory. It backs the
// "memory://" primary URL and doubles as a controllable backend in tests.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/zhouzirui/z-interview/backend/internal/model/chat"
	"github.com/zhouzirui/z-interview/backend/internal/store"
)

// Store is an in-memory store.Store.
type Store struct {
	mu       sync.RWMutex
	messages map[string][]chat.Message
	offline  bool
}

// New returns an empty Store.
func New() *Store {
	return &Store{messages: make(map[string][]chat.Message)}
}

// SetOffline makes every subsequent call fail with store.ErrUnavailable
// until it is switched back.
func (s *Store) SetOffline(offline bool) {
	s.mu.Lock()
	s.offline = offline
	s.mu.Unlock()
}

// Insert appends msg to its session.
func (s *Store) Insert(_ context.Context, msg chat.Message) (chat.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.offline {
		return chat.Message{}, fmt.Errorf("memory insert: %w", store.ErrUnavailable)
	}
	if msg.SessionID == "" || !msg.Role.Valid() {
		return chat.Message{}, fmt.Errorf("memory insert: invalid message: %w", store.ErrProtocol)
	}

	msg.ID = uuid.NewString()
	s.messages[msg.SessionID] = append(s.messages[msg.SessionID], msg)
	return msg, nil
}

// Query returns a copy of the session's messages in timestamp order.
func (s *Store) Query(_ context.Context, sessionID string, limit int) ([]chat.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.offline {
		return nil, fmt.Errorf("memory query: %w", store.ErrUnavailable)
	}

	stored := s.messages[sessionID]
	copied := make([]chat.Message, len(stored))
	copy(copied, stored)

	sort.SliceStable(copied, func(i, j int) bool {
		return copied[i].Timestamp.Before(copied[j].Timestamp)
	})
	if limit > 0 && len(copied) > limit {
		copied = copied[:limit]
	}
	return copied, nil
}

// Len reports how many messages are held for sessionID.
func (s *Store) Len(sessionID string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.messages[sessionID])
}

// Close is a no-op.
func (s *Store) Close(context.Context) error { return nil }
