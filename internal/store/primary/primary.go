// Package primary selects the networked primary backend from a store URL.
package primary

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/zhouzirui/z-interview/backend/internal/store"
	"github.com/zhouzirui/z-interview/backend/internal/store/memory"
	"github.com/zhouzirui/z-interview/backend/internal/store/mongo"
	"github.com/zhouzirui/z-interview/backend/internal/store/sqlstore"
)

// Config carries the primary store settings.
type Config struct {
	URL        string
	Database   string
	Collection string
	Timeout    time.Duration
}

// Open returns the backend named by cfg.URL. It never contacts the server.
// A "none" URL yields a nil store, which the router treats as permanently
// unavailable.
func Open(ctx context.Context, cfg Config) (store.Store, error) {
	raw := strings.TrimSpace(cfg.URL)
	if raw == "" {
		raw = mongo.DefaultURL
	}

	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("parse primary store url: %w", err)
	}

	switch scheme := strings.ToLower(u.Scheme); scheme {
	case "mongodb", "mongodb+srv":
		s, err := mongo.New(ctx, mongo.Config{
			URL:        raw,
			Database:   cfg.Database,
			Collection: cfg.Collection,
			Timeout:    cfg.Timeout,
		})
		if err != nil {
			return nil, err
		}
		return s, nil
	case "postgres", "postgresql", "mysql", "sqlite":
		s, err := sqlstore.OpenURL(raw, cfg.Timeout)
		if err != nil {
			return nil, err
		}
		return s, nil
	case "memory":
		return memory.New(), nil
	case "none":
		return nil, nil
	default:
		return nil, fmt.Errorf("unsupported primary store scheme %q", scheme)
	}
}

// Describe returns url with any password masked, for logging.
func Describe(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.User == nil {
		return raw
	}
	if _, ok := u.User.Password(); ok {
		u.User = url.UserPassword(u.User.Username(), "xxxxx")
	}
	return u.String()
}
