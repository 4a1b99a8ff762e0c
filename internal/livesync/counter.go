package livesync

import (
	"context"
	"sync"

	"github.com/MrSnakeDoc/bookmarks/internal/domain"
	"github.com/MrSnakeDoc/bookmarks/internal/logger"
	"github.com/MrSnakeDoc/bookmarks/internal/store"
)

// Counter keeps the number of bookmarks owned by a session fresh.
// It polls only and never subscribes to changes.
type Counter struct {
	session  domain.Session
	reader   store.Reader
	logger   logger.Logger
	onUpdate func(int)
	loop     *Loop[int]

	mu    sync.RWMutex
	count int
}

// NewCounter builds a counter for session. onUpdate, when not nil, is called
// with every new count.
func NewCounter(session domain.Session, reader store.Reader, cfg Config, onUpdate func(int)) *Counter {
	log := cfg.Logger.With(
		logger.String("view", "count"),
		logger.String("user_id", session.OwnerID()),
	)
	c := &Counter{
		session:  session,
		reader:   reader,
		logger:   log,
		onUpdate: onUpdate,
	}
	c.loop = NewLoop("count", cfg.Interval, c.fetch, c.set, log)
	return c
}

// Initialize seeds the count, then fetches immediately and every interval.
func (c *Counter) Initialize(ctx context.Context, initialCount int) {
	if c.loop.Stopped() {
		return
	}
	c.set(initialCount)
	c.loop.Start(ctx)
}

// Refresh fetches the count once. Errors leave the count unchanged.
func (c *Counter) Refresh(ctx context.Context) {
	if err := c.loop.Refresh(ctx); err != nil {
		c.logger.Warn("count refresh failed", logger.Error(err))
	}
}

// Count returns the last applied count.
func (c *Counter) Count() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.count
}

// Teardown stops polling. It is idempotent.
func (c *Counter) Teardown() {
	c.loop.Stop()
}

func (c *Counter) fetch(ctx context.Context) (int, error) {
	return c.reader.CountByOwner(ctx, c.session.OwnerID())
}

func (c *Counter) set(n int) {
	c.mu.Lock()
	c.count = n
	c.mu.Unlock()

	if c.onUpdate != nil {
		c.onUpdate(n)
	}
}
