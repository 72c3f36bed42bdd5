// Package store persists interview transcripts across a primary backend and a
// local fallback.
package store

import (
	"context"
	"errors"

	"github.com/zhouzirui/z-interview/backend/internal/model/chat"
)

var (
	// ErrUnavailable marks a backend that could not be reached or timed out.
	ErrUnavailable = errors.New("store unavailable")
	// ErrProtocol marks a write or query the backend rejected.
	ErrProtocol = errors.New("store protocol error")
)

// DefaultTranscriptLimit caps how many turns a transcript read returns.
const DefaultTranscriptLimit = 100

// Store is implemented by every persistence backend. Insert returns the
// message with its backend-assigned ID. Query returns the messages of one
// session in ascending timestamp order; limit <= 0 means no cap.
type Store interface {
	Insert(ctx context.Context, msg chat.Message) (chat.Message, error)
	Query(ctx context.Context, sessionID string, limit int) ([]chat.Message, error)
	Close(ctx context.Context) error
}

// Classified reports whether err is one of the failures a router may absorb.
func Classified(err error) bool {
	return errors.Is(err, ErrUnavailable) || errors.Is(err, ErrProtocol)
}
