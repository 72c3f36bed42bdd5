// Package sqlstore is a primary store on a relational database through GORM.
package sqlstore

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	sqliteDriver "github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/zhouzirui/z-interview/backend/internal/model/chat"
	"github.com/zhouzirui/z-interview/backend/internal/store"
)

const defaultTimeout = 2 * time.Second

type messageRow struct {
	ID        string    `gorm:"primaryKey;size:64"`
	SessionID string    `gorm:"size:191;not null;index:idx_chat_messages_session_ts,priority:1"`
	Role      string    `gorm:"size:16;not null"`
	Content   string    `gorm:"type:text;not null"`
	Timestamp time.Time `gorm:"column:sent_at;not null;index:idx_chat_messages_session_ts,priority:2"`
}

func (messageRow) TableName() string {
	return "chat_messages"
}

func rowFromMessage(msg chat.Message) messageRow {
	return messageRow{
		ID:        msg.ID,
		SessionID: msg.SessionID,
		Role:      string(msg.Role),
		Content:   msg.Content,
		Timestamp: msg.Timestamp.UTC(),
	}
}

func (r messageRow) toMessage() chat.Message {
	return chat.Message{
		ID:        r.ID,
		SessionID: r.SessionID,
		Role:      chat.Role(r.Role),
		Content:   r.Content,
		Timestamp: r.Timestamp.UTC(),
	}
}

// Store implements store.Store on a single table. The schema is migrated on
// first use so that an unreachable server never blocks startup.
type Store struct {
	db      *gorm.DB
	timeout time.Duration

	mu       sync.Mutex
	migrated bool
}

// Open builds a store for driver ("postgres", "mysql" or "sqlite") without
// contacting the server.
func Open(driver, dsn string, timeout time.Duration) (*Store, error) {
	dialector, err := dialectorFor(driver, dsn)
	if err != nil {
		return nil, err
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		DisableAutomaticPing: true,
		Logger:               logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open %s store: %w", driver, err)
	}

	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Store{db: db, timeout: timeout}, nil
}

// OpenURL accepts postgres://, postgresql://, mysql:// and sqlite:// URLs.
func OpenURL(raw string, timeout time.Duration) (*Store, error) {
	driver, dsn, err := ParseURL(raw)
	if err != nil {
		return nil, err
	}
	return Open(driver, dsn, timeout)
}

// ParseURL converts a store URL into a GORM driver name and DSN.
func ParseURL(raw string) (driver, dsn string, err error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return "", "", fmt.Errorf("parse store url: %w", err)
	}

	switch strings.ToLower(u.Scheme) {
	case "postgres", "postgresql":
		return "postgres", raw, nil
	case "mysql":
		return "mysql", mysqlDSN(u), nil
	case "sqlite":
		path := u.Opaque
		if path == "" {
			path = u.Host + u.Path
		}
		if path == "" {
			return "", "", errors.New("sqlite store url needs a file path")
		}
		return "sqlite", path, nil
	default:
		return "", "", fmt.Errorf("unsupported sql scheme %q", u.Scheme)
	}
}

func mysqlDSN(u *url.URL) string {
	var b strings.Builder
	if u.User != nil {
		b.WriteString(u.User.String())
		b.WriteString("@")
	}
	b.WriteString("tcp(")
	b.WriteString(u.Host)
	b.WriteString(")")
	b.WriteString(u.Path)

	query := u.Query()
	if query.Get("parseTime") == "" {
		query.Set("parseTime", "true")
	}
	b.WriteString("?")
	b.WriteString(query.Encode())
	return b.String()
}

func dialectorFor(driver, dsn string) (gorm.Dialector, error) {
	switch strings.ToLower(strings.TrimSpace(driver)) {
	case "postgres":
		return postgres.Open(dsn), nil
	case "mysql":
		// Skipping the version probe keeps Open from dialing the server.
		return mysql.New(mysql.Config{DSN: dsn, SkipInitializeWithVersion: true}), nil
	case "sqlite":
		if dir := filepath.Dir(dsn); dir != "" && dir != "." && dsn != ":memory:" {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("create sqlite db dir: %w", err)
			}
		}
		return sqliteDriver.Open(dsn), nil
	default:
		return nil, fmt.Errorf("unsupported driver %q", driver)
	}
}

func (s *Store) ensureSchema(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.migrated {
		return nil
	}
	if err := s.db.WithContext(ctx).AutoMigrate(&messageRow{}); err != nil {
		return fmt.Errorf("migrate chat_messages: %v: %w", err, store.ErrUnavailable)
	}
	s.migrated = true
	return nil
}

// Insert stores msg under a fresh UUID.
func (s *Store) Insert(ctx context.Context, msg chat.Message) (chat.Message, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	if err := s.ensureSchema(ctx); err != nil {
		return chat.Message{}, err
	}

	msg.ID = uuid.NewString()
	row := rowFromMessage(msg)
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return chat.Message{}, classify("insert message", err)
	}
	return msg, nil
}

// Query returns up to limit messages of sessionID ordered by timestamp.
func (s *Store) Query(ctx context.Context, sessionID string, limit int) ([]chat.Message, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	if err := s.ensureSchema(ctx); err != nil {
		return nil, err
	}

	query := s.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("sent_at ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}

	var rows []messageRow
	if err := query.Find(&rows).Error; err != nil {
		return nil, classify("find messages", err)
	}

	messages := make([]chat.Message, 0, len(rows))
	for _, row := range rows {
		messages = append(messages, row.toMessage())
	}
	return messages, nil
}

// Close closes the underlying connection pool.
func (s *Store) Close(context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func classify(op string, err error) error {
	switch {
	case errors.Is(err, gorm.ErrInvalidData),
		errors.Is(err, gorm.ErrInvalidField),
		errors.Is(err, gorm.ErrDuplicatedKey),
		errors.Is(err, gorm.ErrInvalidValue):
		return fmt.Errorf("%s: %v: %w", op, err, store.ErrProtocol)
	default:
		return fmt.Errorf("%s: %v: %w", op, err, store.ErrUnavailable)
	}
}
