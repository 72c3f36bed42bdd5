// Package mongo is the networked primary store backed by MongoDB.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/zhouzirui/z-interview/backend/internal/model/chat"
	"github.com/zhouzirui/z-interview/backend/internal/store"
)

const (
	DefaultURL        = "mongodb://localhost:27017"
	DefaultDatabase   = "interview_simulator"
	DefaultCollection = "chats"
	DefaultTimeout    = 2 * time.Second
)

// Config describes how to reach the primary MongoDB deployment.
type Config struct {
	URL        string
	Database   string
	Collection string
	// Timeout bounds server selection and each operation.
	Timeout time.Duration
}

func (c Config) withDefaults() Config {
	if c.URL == "" {
		c.URL = DefaultURL
	}
	if c.Database == "" {
		c.Database = DefaultDatabase
	}
	if c.Collection == "" {
		c.Collection = DefaultCollection
	}
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	return c
}

// document is the stored shape of a message.
type document struct {
	ID        primitive.ObjectID `bson:"_id,omitempty"`
	SessionID string             `bson:"session_id"`
	Role      string             `bson:"role"`
	Content   string             `bson:"content"`
	Timestamp time.Time          `bson:"timestamp"`
}

func documentFromMessage(msg chat.Message) document {
	return document{
		SessionID: msg.SessionID,
		Role:      string(msg.Role),
		Content:   msg.Content,
		Timestamp: msg.Timestamp,
	}
}

func (d document) toMessage() chat.Message {
	return chat.Message{
		ID:        d.ID.Hex(),
		SessionID: d.SessionID,
		Role:      chat.Role(d.Role),
		Content:   d.Content,
		Timestamp: d.Timestamp.UTC(),
	}
}

// Store implements store.Store on a MongoDB collection.
type Store struct {
	client  *mongo.Client
	chats   *mongo.Collection
	timeout time.Duration
}

// New builds the client without waiting for the server: the driver connects
// in the background and failures surface on first use. Only a malformed URL
// is reported here.
func New(ctx context.Context, cfg Config) (*Store, error) {
	cfg = cfg.withDefaults()

	opts := options.Client().
		ApplyURI(cfg.URL).
		SetServerSelectionTimeout(cfg.Timeout).
		SetConnectTimeout(cfg.Timeout)

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("configure mongo client: %w", err)
	}

	return &Store{
		client:  client,
		chats:   client.Database(cfg.Database).Collection(cfg.Collection),
		timeout: cfg.Timeout,
	}, nil
}

// Insert stores msg and returns it with the generated ObjectID.
func (s *Store) Insert(ctx context.Context, msg chat.Message) (chat.Message, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	res, err := s.chats.InsertOne(ctx, documentFromMessage(msg))
	if err != nil {
		return chat.Message{}, classify("insert message", err)
	}

	oid, ok := res.InsertedID.(primitive.ObjectID)
	if !ok {
		return chat.Message{}, fmt.Errorf("insert message: unexpected id type %T: %w", res.InsertedID, store.ErrProtocol)
	}
	msg.ID = oid.Hex()
	return msg, nil
}

// Query returns up to limit messages of sessionID in timestamp order.
func (s *Store) Query(ctx context.Context, sessionID string, limit int) ([]chat.Message, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	opts := options.Find().SetSort(bson.D{{Key: "timestamp", Value: 1}, {Key: "_id", Value: 1}})
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}

	cursor, err := s.chats.Find(ctx, bson.M{"session_id": sessionID}, opts)
	if err != nil {
		return nil, classify("find messages", err)
	}
	defer cursor.Close(ctx)

	var docs []document
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, classify("decode messages", err)
	}

	messages := make([]chat.Message, 0, len(docs))
	for _, doc := range docs {
		messages = append(messages, doc.toMessage())
	}
	return messages, nil
}

// Close disconnects the client.
func (s *Store) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

// classify maps driver errors onto the store taxonomy: rejected commands and
// encoding failures are protocol errors, everything else means the server
// could not be used.
func classify(op string, err error) error {
	var (
		writeErr   mongo.WriteException
		commandErr mongo.CommandError
	)
	switch {
	case errors.As(err, &writeErr), errors.As(err, &commandErr):
		return fmt.Errorf("%s: %v: %w", op, err, store.ErrProtocol)
	case errors.Is(err, mongo.ErrNilDocument), errors.Is(err, mongo.ErrNilValue):
		return fmt.Errorf("%s: %v: %w", op, err, store.ErrProtocol)
	default:
		return fmt.Errorf("%s: %v: %w", op, err, store.ErrUnavailable)
	}
}
