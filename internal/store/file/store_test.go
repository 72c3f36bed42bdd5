package file

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/zhouzirui/z-interview/backend/internal/model/chat"
)

func newMessage(sessionID, content string, ts time.Time) chat.Message {
	return chat.Message{SessionID: sessionID, Role: chat.RoleUser, Content: content, Timestamp: ts}
}

func TestInsertAppendsOneLinePerMessage(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "history.ndjson")
	s := Open(path)
	now := time.Now().UTC()

	first, err := s.Insert(ctx, newMessage("a", "one", now))
	if err != nil {
		t.Fatalf("Insert err: %v", err)
	}
	if _, err := s.Insert(ctx, newMessage("b", "two", now)); err != nil {
		t.Fatalf("Insert err: %v", err)
	}
	if first.ID == "" {
		t.Fatal("expected generated id")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile err: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(lines))
	}

	var rec record
	if err := json.Unmarshal([]byte(lines[0]), &rec); err != nil {
		t.Fatalf("line is not json: %v", err)
	}
	if rec.ID != first.ID || rec.SessionID != "a" || rec.Content != "one" {
		t.Fatalf("unexpected record %+v", rec)
	}
}

func TestQueryFiltersAndKeepsOrder(t *testing.T) {
	ctx := context.Background()
	s := Open(filepath.Join(t.TempDir(), "history.ndjson"))
	now := time.Now().UTC()

	for i, content := range []string{"a1", "b1", "a2", "a3"} {
		sessionID := content[:1]
		if _, err := s.Insert(ctx, newMessage(sessionID, content, now.Add(time.Duration(i)*time.Millisecond))); err != nil {
			t.Fatalf("Insert err: %v", err)
		}
	}

	got, err := s.Query(ctx, "a", 0)
	if err != nil {
		t.Fatalf("Query err: %v", err)
	}
	if len(got) != 3 || got[0].Content != "a1" || got[2].Content != "a3" {
		t.Fatalf("unexpected result %+v", got)
	}

	limited, err := s.Query(ctx, "a", 2)
	if err != nil || len(limited) != 2 {
		t.Fatalf("expected limit to apply, got %d err=%v", len(limited), err)
	}
}

func TestCorruptDocumentReadsAsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.ndjson")
	if err := os.WriteFile(path, []byte("[{not json"), 0o644); err != nil {
		t.Fatalf("WriteFile err: %v", err)
	}

	got, err := Open(path).Query(context.Background(), "a", 0)
	if err != nil {
		t.Fatalf("Query err: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("expected empty result, got %+v", got)
	}
}

func TestCorruptLinesAreSkipped(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "history.ndjson")
	s := Open(path)
	if _, err := s.Insert(ctx, newMessage("a", "kept", time.Now())); err != nil {
		t.Fatalf("Insert err: %v", err)
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		t.Fatalf("OpenFile err: %v", err)
	}
	_, _ = f.WriteString("{\"sessionId\":\"a\",\"content\":\"half-writ")
	_ = f.Close()

	got, err := s.Query(ctx, "a", 0)
	if err != nil {
		t.Fatalf("Query err: %v", err)
	}
	if len(got) != 1 || got[0].Content != "kept" {
		t.Fatalf("unexpected result %+v", got)
	}
}

func TestLegacyArrayDocument(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "chat_history.json")
	legacy := `[
  {"session_id": "old", "role": "user", "content": "hi", "timestamp": "2024-06-01 10:00:00.000001", "_id": "x1"},
  {"session_id": "old", "role": "assistant", "content": "hello", "timestamp": "2024-06-01 10:00:01.5", "_id": "x2"},
  {"sessionId": "new", "role": "user", "content": "yo", "timestamp": "2024-06-01T10:00:02Z", "id": "x3"}
]`
	if err := os.WriteFile(path, []byte(legacy), 0o644); err != nil {
		t.Fatalf("WriteFile err: %v", err)
	}
	s := Open(path)

	got, err := s.Query(ctx, "old", 0)
	if err != nil {
		t.Fatalf("Query err: %v", err)
	}
	if len(got) != 2 || got[0].ID != "x1" || got[1].Content != "hello" {
		t.Fatalf("unexpected legacy read %+v", got)
	}

	kept, err := s.Compact(ctx)
	if err != nil {
		t.Fatalf("Compact err: %v", err)
	}
	if kept != 3 {
		t.Fatalf("expected 3 records kept, got %d", kept)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile err: %v", err)
	}
	if strings.HasPrefix(strings.TrimSpace(string(data)), "[") {
		t.Fatal("expected compaction to rewrite as one record per line")
	}

	if _, err := s.Insert(ctx, newMessage("new", "after", time.Now())); err != nil {
		t.Fatalf("Insert err: %v", err)
	}
	again, err := s.Query(ctx, "new", 0)
	if err != nil || len(again) != 2 {
		t.Fatalf("expected 2 messages after compaction, got %d err=%v", len(again), err)
	}
}

func TestInsertAfterLegacyArrayWithoutCompaction(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "chat_history.json")
	legacy := `[{"_id": "1", "session_id": "a", "role": "user", "content": "old", "timestamp": "2024-06-01 10:00:00"}]`
	if err := os.WriteFile(path, []byte(legacy), 0o644); err != nil {
		t.Fatalf("WriteFile err: %v", err)
	}
	s := Open(path)

	if _, err := s.Insert(ctx, newMessage("a", "new", time.Date(2024, 6, 1, 10, 0, 1, 0, time.UTC))); err != nil {
		t.Fatalf("Insert err: %v", err)
	}

	got, err := s.Query(ctx, "a", 0)
	if err != nil {
		t.Fatalf("Query err: %v", err)
	}
	if len(got) != 2 || got[0].Content != "old" || got[1].Content != "new" {
		t.Fatalf("expected legacy and appended messages, got %+v", got)
	}

	kept, err := s.Compact(ctx)
	if err != nil || kept != 2 {
		t.Fatalf("expected compaction to keep 2 records, got %d err=%v", kept, err)
	}
}

func TestCorruptLegacyArrayKeepsAppendedLines(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "chat_history.json")
	if err := os.WriteFile(path, []byte("[{not json"), 0o644); err != nil {
		t.Fatalf("WriteFile err: %v", err)
	}
	s := Open(path)

	if _, err := s.Insert(ctx, newMessage("a", "kept", time.Now())); err != nil {
		t.Fatalf("Insert err: %v", err)
	}

	got, err := s.Query(ctx, "a", 0)
	if err != nil || len(got) != 1 || got[0].Content != "kept" {
		t.Fatalf("expected appended message to survive, got %+v err=%v", got, err)
	}
}

func TestInsertAfterTornTail(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "history.ndjson")
	s := Open(path)
	base := time.Now()

	if _, err := s.Insert(ctx, newMessage("a", "first", base)); err != nil {
		t.Fatalf("Insert err: %v", err)
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		t.Fatalf("OpenFile err: %v", err)
	}
	if _, err := f.WriteString(`{"id":"x","sessionId":"a","ro`); err != nil {
		t.Fatalf("WriteString err: %v", err)
	}
	f.Close()

	if _, err := s.Insert(ctx, newMessage("a", "acknowledged", base.Add(time.Millisecond))); err != nil {
		t.Fatalf("Insert err: %v", err)
	}

	got, err := s.Query(ctx, "a", 0)
	if err != nil {
		t.Fatalf("Query err: %v", err)
	}
	if len(got) != 2 || got[0].Content != "first" || got[1].Content != "acknowledged" {
		t.Fatalf("expected both acknowledged messages, got %+v", got)
	}
}

func TestCompactDropsCorruptLines(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "history.ndjson")
	good := `{"id":"1","sessionId":"a","role":"user","content":"x","timestamp":"2025-01-01T00:00:00Z"}`
	if err := os.WriteFile(path, []byte(good+"\ngarbage\n"), 0o644); err != nil {
		t.Fatalf("WriteFile err: %v", err)
	}

	kept, err := Open(path).Compact(ctx)
	if err != nil {
		t.Fatalf("Compact err: %v", err)
	}
	if kept != 1 {
		t.Fatalf("expected 1 record kept, got %d", kept)
	}
	data, _ := os.ReadFile(path)
	if strings.Contains(string(data), "garbage") {
		t.Fatal("expected corrupt line to be dropped")
	}
}

func TestUnwritablePathMovesToTempDir(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "not-a-dir")
	if err := os.WriteFile(blocker, []byte("x"), 0o644); err != nil {
		t.Fatalf("WriteFile err: %v", err)
	}

	s := Open(filepath.Join(blocker, "history-fallback-test.ndjson"))
	t.Cleanup(func() { _ = os.Remove(s.Path()) })

	if !s.Persistent() {
		t.Fatal("expected temp directory to be usable")
	}
	if filepath.Dir(s.Path()) != filepath.Clean(os.TempDir()) {
		t.Fatalf("expected temp directory path, got %s", s.Path())
	}
}

func TestNoopModeNeverFails(t *testing.T) {
	ctx := context.Background()
	s := &Store{path: "/nonexistent/never", noop: true}

	if _, err := s.Insert(ctx, newMessage("a", "lost", time.Now())); err != nil {
		t.Fatalf("Insert err: %v", err)
	}
	got, err := s.Query(ctx, "a", 0)
	if err != nil || len(got) != 0 {
		t.Fatalf("expected empty result, got %d err=%v", len(got), err)
	}
}

func TestConcurrentInserts(t *testing.T) {
	ctx := context.Background()
	s := Open(filepath.Join(t.TempDir(), "history.ndjson"))

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := s.Insert(ctx, newMessage("a", strings.Repeat("x", 4096), time.Now())); err != nil {
				t.Errorf("Insert err: %v", err)
			}
		}()
	}
	wg.Wait()

	got, err := s.Query(ctx, "a", 0)
	if err != nil || len(got) != 20 {
		t.Fatalf("expected 20 intact records, got %d err=%v", len(got), err)
	}
}
