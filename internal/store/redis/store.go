// Package redis stores bookmarks in Redis.
//
// Rows are JSON strings under bookmarks:bookmark:{id}. Each owner has a sorted
// set of IDs scored by creation time, so every read and delete goes through
// the owner's own set. Writes publish a change event on bookmarks:changes.
package redis

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/MrSnakeDoc/bookmarks/internal/logger"
	"github.com/MrSnakeDoc/bookmarks/internal/store"
)

// Store handles Redis operations for bookmarks and change events
type Store struct {
	client *redis.Client
	logger logger.Logger
	now    func() time.Time
}

// Option configures a Store.
type Option func(*Store)

// WithClock overrides the clock used to stamp CreatedAt.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// NewStore creates a new Redis store on an already connected client
func NewStore(client *redis.Client, log logger.Logger, opts ...Option) *Store {
	s := &Store{
		client: client,
		logger: log.With(logger.String("store", "redis")),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

var _ store.Store = (*Store)(nil)

// Ping checks that Redis answers.
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close releases the client connections.
func (s *Store) Close() error {
	return s.client.Close()
}
