package store

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"

	"github.com/zhouzirui/z-interview/backend/internal/model/chat"
)

// Router writes to the primary backend and falls back to the secondary one
// when the primary fails. Reads merge both backends so a session split by a
// mid-interview outage still comes back whole.
type Router struct {
	primary  Store
	fallback Store
	limit    int
}

// NewRouter wires a router. primary may be nil for fully degraded mode.
func NewRouter(primary, fallback Store, limit int) *Router {
	if limit <= 0 {
		limit = DefaultTranscriptLimit
	}
	return &Router{primary: primary, fallback: fallback, limit: limit}
}

// Write persists msg on the first backend that accepts it.
func (r *Router) Write(ctx context.Context, msg chat.Message) (chat.Message, error) {
	var primaryErr error
	if r.primary != nil {
		stored, err := r.primary.Insert(ctx, msg)
		if err == nil {
			return stored, nil
		}
		if !Classified(err) {
			return chat.Message{}, err
		}
		primaryErr = err
		log.Printf("[store] primary write failed for session=%s, using fallback: %v", msg.SessionID, err)
	}

	if r.fallback == nil {
		if primaryErr == nil {
			primaryErr = fmt.Errorf("no backend configured: %w", ErrUnavailable)
		}
		return chat.Message{}, primaryErr
	}

	stored, err := r.fallback.Insert(ctx, msg)
	if err != nil {
		return chat.Message{}, fmt.Errorf("write message: %w", errors.Join(primaryErr, err))
	}
	return stored, nil
}

// ReadSession returns the ordered transcript of sessionID.
func (r *Router) ReadSession(ctx context.Context, sessionID string) ([]chat.Message, error) {
	var (
		merged   []chat.Message
		failures []error
		attempts int
	)

	for _, backend := range []struct {
		name  string
		store Store
	}{
		{"primary", r.primary},
		{"fallback", r.fallback},
	} {
		if backend.store == nil {
			continue
		}
		attempts++

		limit := r.limit
		if backend.name == "fallback" {
			limit = 0
		}
		messages, err := backend.store.Query(ctx, sessionID, limit)
		if err != nil {
			log.Printf("[store] %s read failed for session=%s: %v", backend.name, sessionID, err)
			failures = append(failures, err)
			continue
		}
		merged = append(merged, messages...)
	}

	if attempts == 0 {
		return nil, fmt.Errorf("read session: no backend configured: %w", ErrUnavailable)
	}
	if len(failures) == attempts {
		return nil, fmt.Errorf("read session: %w", errors.Join(failures...))
	}

	return r.order(merged), nil
}

// order de-duplicates, sorts by timestamp keeping arrival order for ties and
// applies the transcript cap. A turn is a duplicate when its ID or its
// (role, timestamp, content) was already seen; a primary insert that timed
// out may still have committed before the fallback retry. Timestamps strictly
// increase within a session, so distinct turns never share a key.
func (r *Router) order(messages []chat.Message) []chat.Message {
	seenIDs := make(map[string]struct{}, len(messages))
	seenTurns := make(map[turnKey]struct{}, len(messages))
	unique := messages[:0]
	for _, msg := range messages {
		turn := keyOf(msg)
		if _, dup := seenTurns[turn]; dup {
			continue
		}
		if msg.ID != "" {
			if _, dup := seenIDs[msg.ID]; dup {
				continue
			}
			seenIDs[msg.ID] = struct{}{}
		}
		seenTurns[turn] = struct{}{}
		unique = append(unique, msg)
	}

	sort.SliceStable(unique, func(i, j int) bool {
		return unique[i].Timestamp.Before(unique[j].Timestamp)
	})

	if len(unique) > r.limit {
		unique = unique[:r.limit]
	}
	return unique
}

type turnKey struct {
	role    chat.Role
	stamp   int64
	content string
}

func keyOf(msg chat.Message) turnKey {
	return turnKey{role: msg.Role, stamp: msg.Timestamp.UnixMilli(), content: msg.Content}
}

// Close releases both backends.
func (r *Router) Close(ctx context.Context) error {
	var errs []error
	for _, s := range []Store{r.primary, r.fallback} {
		if s == nil {
			continue
		}
		if err := s.Close(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
