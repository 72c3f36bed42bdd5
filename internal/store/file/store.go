// Package file implements the local fallback store: an append-only log with
// one JSON record per line.
package file

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/moby/sys/atomicwriter"

	"github.com/zhouzirui/z-interview/backend/internal/model/chat"
	"github.com/zhouzirui/z-interview/backend/internal/store"
)

// DefaultPath is used when no fallback path is configured.
const DefaultPath = "chat_history.ndjson"

// record is the on-disk shape of a message.
type record struct {
	ID        string    `json:"id"`
	SessionID string    `json:"sessionId"`
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

func recordFromMessage(msg chat.Message) record {
	return record{
		ID:        msg.ID,
		SessionID: msg.SessionID,
		Role:      string(msg.Role),
		Content:   msg.Content,
		Timestamp: msg.Timestamp,
	}
}

func (r record) toMessage() chat.Message {
	return chat.Message{
		ID:        r.ID,
		SessionID: r.SessionID,
		Role:      chat.Role(r.Role),
		Content:   r.Content,
		Timestamp: r.Timestamp,
	}
}

// legacyRecord accepts the whole-document array layout, including the
// snake_case keys and naive datetimes written by earlier deployments.
type legacyRecord struct {
	ID             string `json:"id"`
	MongoID        string `json:"_id"`
	SessionID      string `json:"sessionId"`
	SnakeSessionID string `json:"session_id"`
	Role           string `json:"role"`
	Content        string `json:"content"`
	Timestamp      string `json:"timestamp"`
}

var legacyTimeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05.999999999",
}

func (l legacyRecord) toRecord() (record, bool) {
	rec := record{ID: l.ID, SessionID: l.SessionID, Role: l.Role, Content: l.Content}
	if rec.ID == "" {
		rec.ID = l.MongoID
	}
	if rec.SessionID == "" {
		rec.SessionID = l.SnakeSessionID
	}
	if rec.SessionID == "" {
		return record{}, false
	}
	for _, layout := range legacyTimeLayouts {
		if ts, err := time.Parse(layout, l.Timestamp); err == nil {
			rec.Timestamp = ts.UTC()
			return rec, true
		}
	}
	return record{}, false
}

// decodeLegacy decodes the leading JSON array of data and returns its records
// together with whatever follows the array. When the array itself is corrupt
// its records are lost and the whole document is handed back for line
// decoding, so lines appended after it survive.
func decodeLegacy(path string, data []byte) ([]record, []byte) {
	dec := json.NewDecoder(bytes.NewReader(data))

	var legacy []legacyRecord
	if err := dec.Decode(&legacy); err != nil {
		log.Printf("[store] fallback document %s is corrupt, dropping the legacy array: %v", path, err)
		return nil, data
	}

	records := make([]record, 0, len(legacy))
	for _, item := range legacy {
		if rec, ok := item.toRecord(); ok {
			records = append(records, rec)
		}
	}
	if skipped := len(legacy) - len(records); skipped > 0 {
		log.Printf("[store] skipped %d unreadable records in %s", skipped, path)
	}
	return records, data[dec.InputOffset():]
}

// Store is the fallback store.Store. All file access is serialized by mu.
type Store struct {
	mu   sync.Mutex
	path string
	noop bool
}

// Open prepares the log at path. When path cannot be written the log moves
// to the process temp directory; when that fails too the store keeps
// accepting calls without persisting anything. Open never fails.
func Open(path string) *Store {
	if path == "" {
		path = DefaultPath
	}

	err := ensureWritable(path)
	if err == nil {
		return &Store{path: path}
	}
	log.Printf("[store] fallback path %s not writable, using temp directory: %v", path, err)

	tmpPath := filepath.Join(os.TempDir(), filepath.Base(path))
	if err := ensureWritable(tmpPath); err == nil {
		return &Store{path: tmpPath}
	}
	log.Printf("[store] temp fallback %s not writable, history will not be persisted", tmpPath)

	return &Store{path: tmpPath, noop: true}
}

func ensureWritable(path string) error {
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	return f.Close()
}

// Path returns the file backing the log.
func (s *Store) Path() string { return s.path }

// Persistent reports whether writes reach disk.
func (s *Store) Persistent() bool { return !s.noop }

// Insert assigns an ID and appends one line to the log.
func (s *Store) Insert(_ context.Context, msg chat.Message) (chat.Message, error) {
	msg.ID = uuid.NewString()

	line, err := json.Marshal(recordFromMessage(msg))
	if err != nil {
		return chat.Message{}, fmt.Errorf("encode fallback record: %w", store.ErrProtocol)
	}
	line = append(line, '\n')

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.noop {
		return msg, nil
	}

	f, err := os.OpenFile(s.path, os.O_CREATE|os.O_RDWR|os.O_APPEND, 0o644)
	if err != nil {
		return chat.Message{}, fmt.Errorf("open fallback log: %v: %w", err, store.ErrUnavailable)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return chat.Message{}, fmt.Errorf("stat fallback log: %v: %w", err, store.ErrUnavailable)
	}
	size := info.Size()

	// A torn tail from an earlier failed append gets its own line so the new
	// record is not glued onto it.
	if size > 0 {
		last := make([]byte, 1)
		if _, err := f.ReadAt(last, size-1); err != nil {
			return chat.Message{}, fmt.Errorf("read fallback log tail: %v: %w", err, store.ErrUnavailable)
		}
		if last[0] != '\n' {
			line = append([]byte{'\n'}, line...)
		}
	}

	if n, err := f.Write(line); err != nil || n != len(line) {
		if err == nil {
			err = io.ErrShortWrite
		}
		if truncErr := f.Truncate(size); truncErr != nil {
			log.Printf("[store] rolling back partial append to %s failed: %v", s.path, truncErr)
		}
		return chat.Message{}, fmt.Errorf("append fallback log: %v: %w", err, store.ErrUnavailable)
	}
	if err := f.Sync(); err != nil {
		return chat.Message{}, fmt.Errorf("sync fallback log: %v: %w", err, store.ErrUnavailable)
	}
	return msg, nil
}

// Query returns the session's messages in log order. Corrupt records are
// skipped. limit <= 0 returns every match.
func (s *Store) Query(_ context.Context, sessionID string, limit int) ([]chat.Message, error) {
	s.mu.Lock()
	records, err := s.load()
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}

	var out []chat.Message
	for _, rec := range records {
		if rec.SessionID != sessionID {
			continue
		}
		out = append(out, rec.toMessage())
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Timestamp.Before(out[j].Timestamp)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Compact rewrites the log atomically, dropping corrupt lines and converting a
// legacy JSON array document into one record per line. It returns the number
// of records kept.
func (s *Store) Compact(_ context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.noop {
		return 0, nil
	}

	records, err := s.load()
	if err != nil {
		return 0, err
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for _, rec := range records {
		if rec.ID == "" {
			rec.ID = uuid.NewString()
		}
		if err := enc.Encode(rec); err != nil {
			return 0, fmt.Errorf("encode fallback record %s: %w", rec.ID, err)
		}
	}

	if err := atomicwriter.WriteFile(s.path, buf.Bytes(), 0o644); err != nil {
		return 0, fmt.Errorf("rewrite fallback log: %v: %w", err, store.ErrUnavailable)
	}
	return len(records), nil
}

// Close is a no-op; every write already closes its handle.
func (s *Store) Close(context.Context) error { return nil }

// load reads every well-formed record. Callers hold mu.
func (s *Store) load() ([]record, error) {
	if s.noop {
		return nil, nil
	}

	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read fallback log: %v: %w", err, store.ErrUnavailable)
	}

	var records []record
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		// A legacy array document may be followed by lines appended since.
		legacy, rest := decodeLegacy(s.path, trimmed)
		records = legacy
		data = rest
	}

	lines, err := decodeLines(s.path, data)
	if err != nil {
		return nil, err
	}
	return append(records, lines...), nil
}

// decodeLines parses one record per line, skipping corrupt lines.
func decodeLines(path string, data []byte) ([]record, error) {
	var (
		records []record
		skipped int
	)

	reader := bufio.NewReader(bytes.NewReader(data))
	for {
		line, err := reader.ReadBytes('\n')
		if trimmedLine := bytes.TrimSpace(line); len(trimmedLine) > 0 {
			var rec record
			if jsonErr := json.Unmarshal(trimmedLine, &rec); jsonErr != nil || rec.SessionID == "" {
				skipped++
			} else {
				records = append(records, rec)
			}
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, fmt.Errorf("scan fallback log: %v: %w", err, store.ErrUnavailable)
		}
	}

	if skipped > 0 {
		log.Printf("[store] skipped %d corrupt records in %s", skipped, path)
	}
	return records, nil
}
