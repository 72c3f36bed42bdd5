package mongo

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/zhouzirui/z-interview/backend/internal/model/chat"
	"github.com/zhouzirui/z-interview/backend/internal/store"
)

func TestNewDoesNotRequireServer(t *testing.T) {
	start := time.Now()
	s, err := New(context.Background(), Config{URL: "mongodb://127.0.0.1:1", Timeout: 200 * time.Millisecond})
	if err != nil {
		t.Fatalf("New err: %v", err)
	}
	defer s.Close(context.Background())

	if time.Since(start) > time.Second {
		t.Fatal("New must not block on the server")
	}
}

func TestNewRejectsMalformedURL(t *testing.T) {
	if _, err := New(context.Background(), Config{URL: "not-a-mongo-url"}); err == nil {
		t.Fatal("expected error for malformed url")
	}
}

func TestUnreachableServerIsUnavailable(t *testing.T) {
	ctx := context.Background()
	s, err := New(ctx, Config{URL: "mongodb://127.0.0.1:1", Timeout: 200 * time.Millisecond})
	if err != nil {
		t.Fatalf("New err: %v", err)
	}
	defer s.Close(ctx)

	msg := chat.Message{SessionID: "s1", Role: chat.RoleUser, Content: "hi", Timestamp: time.Now()}
	if _, err := s.Insert(ctx, msg); !errors.Is(err, store.ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable on insert, got %v", err)
	}
	if _, err := s.Query(ctx, "s1", 10); !errors.Is(err, store.ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable on query, got %v", err)
	}
}

func TestDocumentConversion(t *testing.T) {
	ts := time.Date(2025, 1, 2, 3, 4, 5, 6000000, time.UTC)
	msg := chat.Message{SessionID: "s1", Role: chat.RoleAssistant, Content: "hello", Timestamp: ts}

	doc := documentFromMessage(msg)
	if !doc.ID.IsZero() {
		t.Fatal("new documents must leave _id to the server")
	}
	doc.ID = primitive.NewObjectID()

	back := doc.toMessage()
	if back.ID != doc.ID.Hex() || back.SessionID != "s1" || back.Role != chat.RoleAssistant || !back.Timestamp.Equal(ts) {
		t.Fatalf("unexpected conversion %+v", back)
	}
}

func TestConfigDefaults(t *testing.T) {
	cfg := Config{}.withDefaults()
	if cfg.URL != DefaultURL || cfg.Database != DefaultDatabase || cfg.Collection != DefaultCollection || cfg.Timeout != DefaultTimeout {
		t.Fatalf("unexpected defaults %+v", cfg)
	}
}
